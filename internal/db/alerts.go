// Alert 저장소
//
// 목록 조회는 (created_at, id) 키셋 페이지네이션 — OFFSET 미사용

package db

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/logsense/backend/internal/model"
)

func (db *Postgres) EnsureAlertSchema(ctx context.Context) error {
	_, err := db.Pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS alerts (
			id                  TEXT PRIMARY KEY,
			fingerprint         TEXT NOT NULL,
			service             TEXT NOT NULL,
			category            TEXT NOT NULL,
			severity            TEXT NOT NULL,
			confidence          DOUBLE PRECISION NOT NULL,
			summary             TEXT NOT NULL,
			root_cause          TEXT NOT NULL DEFAULT '',
			recommended_actions JSONB NOT NULL DEFAULT '[]',
			verification_steps  JSONB NOT NULL DEFAULT '[]',
			needs_human_review  BOOLEAN NOT NULL DEFAULT FALSE,
			occurrence_count    INTEGER NOT NULL DEFAULT 1,
			log_ids             JSONB NOT NULL DEFAULT '[]',
			created_at          TIMESTAMPTZ NOT NULL,
			notified_at         TIMESTAMPTZ,
			notification_count  INTEGER NOT NULL DEFAULT 0
		);
	`)
	if err != nil {
		return fmt.Errorf("failed to ensure alerts schema: %w", err)
	}

	for _, stmt := range []string{
		`CREATE INDEX IF NOT EXISTS alerts_created_at_idx ON alerts(created_at DESC, id DESC)`,
		`CREATE INDEX IF NOT EXISTS alerts_fingerprint_idx ON alerts(fingerprint)`,
	} {
		if _, err := db.Pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to ensure alerts index: %w", err)
		}
	}
	return nil
}

func (db *Postgres) InsertAlert(ctx context.Context, alert *model.Alert) error {
	actions, err := json.Marshal(alert.RecommendedActions)
	if err != nil {
		return fmt.Errorf("failed to marshal recommended_actions: %w", err)
	}
	steps, err := json.Marshal(alert.VerificationSteps)
	if err != nil {
		return fmt.Errorf("failed to marshal verification_steps: %w", err)
	}
	logIDs, err := json.Marshal(alert.LogIDs)
	if err != nil {
		return fmt.Errorf("failed to marshal log_ids: %w", err)
	}

	_, err = db.Pool.Exec(ctx, `
		INSERT INTO alerts (id, fingerprint, service, category, severity, confidence, summary,
			root_cause, recommended_actions, verification_steps, needs_human_review,
			occurrence_count, log_ids, created_at, notification_count)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, 0)
	`, alert.ID, alert.Fingerprint, alert.Service, alert.Category, alert.Severity, alert.Confidence,
		alert.Summary, alert.RootCause, actions, steps, alert.NeedsHumanReview,
		alert.OccurrenceCount, logIDs, alert.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert alert: %w", err)
	}
	return nil
}

const alertColumns = `id, fingerprint, service, category, severity, confidence, summary,
	root_cause, recommended_actions, verification_steps, needs_human_review,
	occurrence_count, log_ids, created_at, notified_at, notification_count`

func scanAlert(row interface{ Scan(dest ...any) error }) (*model.Alert, error) {
	var a model.Alert
	var actions, steps, logIDs []byte

	err := row.Scan(&a.ID, &a.Fingerprint, &a.Service, &a.Category, &a.Severity, &a.Confidence,
		&a.Summary, &a.RootCause, &actions, &steps, &a.NeedsHumanReview,
		&a.OccurrenceCount, &logIDs, &a.CreatedAt, &a.NotifiedAt, &a.NotificationCount)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(actions, &a.RecommendedActions); err != nil {
		return nil, fmt.Errorf("failed to unmarshal recommended_actions: %w", err)
	}
	if err := json.Unmarshal(steps, &a.VerificationSteps); err != nil {
		return nil, fmt.Errorf("failed to unmarshal verification_steps: %w", err)
	}
	if err := json.Unmarshal(logIDs, &a.LogIDs); err != nil {
		return nil, fmt.Errorf("failed to unmarshal log_ids: %w", err)
	}
	return &a, nil
}

func (db *Postgres) GetAlert(ctx context.Context, id string) (*model.Alert, error) {
	row := db.Pool.QueryRow(ctx, `SELECT `+alertColumns+` FROM alerts WHERE id = $1`, id)
	return scanAlert(row)
}

// ListAlerts - 최신순 목록 조회. before가 zero면 첫 페이지
func (db *Postgres) ListAlerts(ctx context.Context, limit int, before time.Time, beforeID string) ([]model.Alert, error) {
	query := `SELECT ` + alertColumns + ` FROM alerts`
	args := []any{}
	if !before.IsZero() {
		query += ` WHERE (created_at, id) < ($1, $2)`
		args = append(args, before, beforeID)
	}
	query += fmt.Sprintf(` ORDER BY created_at DESC, id DESC LIMIT $%d`, len(args)+1)
	args = append(args, limit)

	rows, err := db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query alerts: %w", err)
	}
	defer rows.Close()

	alerts := []model.Alert{}
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan alert: %w", err)
		}
		alerts = append(alerts, *a)
	}
	return alerts, rows.Err()
}

func (db *Postgres) Stats(ctx context.Context) (*model.StatsResponse, error) {
	stats := &model.StatsResponse{
		SeverityCounts: map[string]int{},
		CategoryCounts: map[string]int{},
	}

	rows, err := db.Pool.Query(ctx, `SELECT severity, COUNT(*) FROM alerts GROUP BY severity`)
	if err != nil {
		return nil, fmt.Errorf("failed to query severity stats: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var severity string
		var count int
		if err := rows.Scan(&severity, &count); err != nil {
			return nil, fmt.Errorf("failed to scan severity stats: %w", err)
		}
		stats.SeverityCounts[severity] = count
		stats.TotalAlerts += count
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	catRows, err := db.Pool.Query(ctx, `SELECT category, COUNT(*) FROM alerts GROUP BY category`)
	if err != nil {
		return nil, fmt.Errorf("failed to query category stats: %w", err)
	}
	defer catRows.Close()
	for catRows.Next() {
		var category string
		var count int
		if err := catRows.Scan(&category, &count); err != nil {
			return nil, fmt.Errorf("failed to scan category stats: %w", err)
		}
		stats.CategoryCounts[category] = count
	}
	return stats, catRows.Err()
}

// MarkAlertNotified - fan-out 성공 후 북키핑. count는 이번에 전송된 대상 수
func (db *Postgres) MarkAlertNotified(ctx context.Context, id string, count int) error {
	_, err := db.Pool.Exec(ctx, `
		UPDATE alerts
		SET notified_at = COALESCE(notified_at, NOW()),
		    notification_count = notification_count + $2
		WHERE id = $1
	`, id, count)
	if err != nil {
		return fmt.Errorf("failed to mark alert notified: %w", err)
	}
	return nil
}

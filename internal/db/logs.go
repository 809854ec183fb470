// 정규화된 로그 저장소

package db

import (
	"context"
	"fmt"

	"github.com/logsense/backend/internal/model"
)

func (db *Postgres) EnsureLogSchema(ctx context.Context) error {
	_, err := db.Pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS log_records (
			id          TEXT PRIMARY KEY,
			source      TEXT NOT NULL,
			container   TEXT NOT NULL,
			service     TEXT NOT NULL,
			severity    TEXT NOT NULL,
			raw_log     TEXT NOT NULL,
			fingerprint TEXT NOT NULL,
			timestamp   TIMESTAMPTZ NOT NULL,
			ingested_at TIMESTAMPTZ NOT NULL
		);
	`)
	if err != nil {
		return fmt.Errorf("failed to ensure log_records schema: %w", err)
	}

	for _, stmt := range []string{
		`CREATE INDEX IF NOT EXISTS log_records_fingerprint_idx ON log_records(fingerprint)`,
		`CREATE INDEX IF NOT EXISTS log_records_ingested_at_idx ON log_records(ingested_at DESC)`,
	} {
		if _, err := db.Pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to ensure log_records index: %w", err)
		}
	}
	return nil
}

func (db *Postgres) SaveLogRecord(ctx context.Context, rec *model.LogRecord) error {
	_, err := db.Pool.Exec(ctx, `
		INSERT INTO log_records (id, source, container, service, severity, raw_log, fingerprint, timestamp, ingested_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, rec.ID, rec.Source, rec.Container, rec.Service, rec.Severity, rec.RawLog, rec.Fingerprint, rec.Timestamp, rec.IngestedAt)
	if err != nil {
		return fmt.Errorf("failed to save log record: %w", err)
	}
	return nil
}

// GetRecentLogs - 최근 수집된 로그 조회 (디버깅용 endpoint에서 사용)
func (db *Postgres) GetRecentLogs(ctx context.Context, limit int) ([]model.LogRecord, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT id, source, container, service, severity, raw_log, fingerprint, timestamp, ingested_at
		FROM log_records
		ORDER BY ingested_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent logs: %w", err)
	}
	defer rows.Close()

	records := []model.LogRecord{}
	for rows.Next() {
		var rec model.LogRecord
		if err := rows.Scan(&rec.ID, &rec.Source, &rec.Container, &rec.Service, &rec.Severity,
			&rec.RawLog, &rec.Fingerprint, &rec.Timestamp, &rec.IngestedAt); err != nil {
			return nil, fmt.Errorf("failed to scan log record: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

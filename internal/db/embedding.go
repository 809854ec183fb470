// Alert 요약 임베딩 저장소 (pgvector)
//
// 연관 알림 조회는 코사인 거리(<=>) 기준 최근접 탐색

package db

import (
	"context"
	"fmt"

	"github.com/logsense/backend/internal/model"
	"github.com/pgvector/pgvector-go"
)

func (db *Postgres) EnsureEmbeddingSchema(ctx context.Context) error {
	if _, err := db.Pool.Exec(ctx, `CREATE EXTENSION IF NOT EXISTS vector`); err != nil {
		return fmt.Errorf("failed to ensure vector extension: %w", err)
	}
	if _, err := db.Pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS alert_embeddings (
			id         BIGSERIAL PRIMARY KEY,
			alert_id   TEXT NOT NULL REFERENCES alerts(id) ON DELETE CASCADE,
			summary    TEXT NOT NULL,
			embedding  vector(768) NOT NULL,
			model      TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
	`); err != nil {
		return fmt.Errorf("failed to ensure alert_embeddings schema: %w", err)
	}
	if _, err := db.Pool.Exec(ctx, `CREATE UNIQUE INDEX IF NOT EXISTS alert_embeddings_alert_id_idx ON alert_embeddings(alert_id)`); err != nil {
		return fmt.Errorf("failed to ensure alert_embeddings index: %w", err)
	}
	return nil
}

func (db *Postgres) InsertAlertEmbedding(ctx context.Context, alertID, summary, embeddingModel string, vec []float32) error {
	_, err := db.Pool.Exec(ctx, `
		INSERT INTO alert_embeddings (alert_id, summary, embedding, model)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (alert_id) DO NOTHING
	`, alertID, summary, pgvector.NewVector(vec), embeddingModel)
	if err != nil {
		return fmt.Errorf("failed to insert alert embedding: %w", err)
	}
	return nil
}

// GetAlertEmbedding - 저장된 임베딩 벡터 조회
func (db *Postgres) GetAlertEmbedding(ctx context.Context, alertID string) ([]float32, error) {
	var vec pgvector.Vector
	err := db.Pool.QueryRow(ctx, `
		SELECT embedding FROM alert_embeddings WHERE alert_id = $1
	`, alertID).Scan(&vec)
	if err != nil {
		return nil, err
	}
	return vec.Slice(), nil
}

// FindRelatedAlerts - 주어진 벡터와 가까운 다른 알림 조회 (자기 자신 제외)
func (db *Postgres) FindRelatedAlerts(ctx context.Context, excludeAlertID string, vec []float32, limit int) ([]model.RelatedAlert, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT a.id, a.summary, a.category, a.severity, a.created_at,
		       e.embedding <=> $1 AS distance
		FROM alert_embeddings e
		JOIN alerts a ON a.id = e.alert_id
		WHERE e.alert_id != $2
		ORDER BY distance ASC
		LIMIT $3
	`, pgvector.NewVector(vec), excludeAlertID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query related alerts: %w", err)
	}
	defer rows.Close()

	related := []model.RelatedAlert{}
	for rows.Next() {
		var r model.RelatedAlert
		if err := rows.Scan(&r.ID, &r.Summary, &r.Category, &r.Severity, &r.CreatedAt, &r.Distance); err != nil {
			return nil, fmt.Errorf("failed to scan related alert: %w", err)
		}
		related = append(related, r)
	}
	return related, rows.Err()
}

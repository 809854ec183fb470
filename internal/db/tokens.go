// Push 토큰 저장소
//
// 동일 토큰 재등록은 설정 갱신 + 재활성화 (멱등)

package db

import (
	"context"
	"fmt"

	"github.com/logsense/backend/internal/model"
)

func (db *Postgres) EnsurePushTokenSchema(ctx context.Context) error {
	_, err := db.Pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS push_tokens (
			token         TEXT PRIMARY KEY,
			min_severity  TEXT NOT NULL DEFAULT 'warn',
			service       TEXT NOT NULL DEFAULT '',
			platform      TEXT NOT NULL DEFAULT 'expo',
			active        BOOLEAN NOT NULL DEFAULT TRUE,
			registered_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
	`)
	if err != nil {
		return fmt.Errorf("failed to ensure push_tokens schema: %w", err)
	}
	return nil
}

func (db *Postgres) UpsertPushTarget(ctx context.Context, target model.PushTarget) error {
	_, err := db.Pool.Exec(ctx, `
		INSERT INTO push_tokens (token, min_severity, service, platform, active, registered_at)
		VALUES ($1, $2, $3, $4, TRUE, NOW())
		ON CONFLICT (token) DO UPDATE SET
			min_severity = EXCLUDED.min_severity,
			service = EXCLUDED.service,
			platform = EXCLUDED.platform,
			active = TRUE,
			registered_at = NOW()
	`, target.Token, target.MinSeverity, target.Service, target.Platform)
	if err != nil {
		return fmt.Errorf("failed to upsert push target: %w", err)
	}
	return nil
}

func (db *Postgres) DeletePushTarget(ctx context.Context, token string) error {
	_, err := db.Pool.Exec(ctx, `DELETE FROM push_tokens WHERE token = $1`, token)
	if err != nil {
		return fmt.Errorf("failed to delete push target: %w", err)
	}
	return nil
}

// DeactivatePushTarget - 영구 실패(DeviceNotRegistered) 토큰 비활성화
func (db *Postgres) DeactivatePushTarget(ctx context.Context, token string) error {
	_, err := db.Pool.Exec(ctx, `UPDATE push_tokens SET active = FALSE WHERE token = $1`, token)
	if err != nil {
		return fmt.Errorf("failed to deactivate push target: %w", err)
	}
	return nil
}

func (db *Postgres) GetActivePushTargets(ctx context.Context) ([]model.PushTarget, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT token, min_severity, service, platform, active, registered_at
		FROM push_tokens
		WHERE active = TRUE
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query push targets: %w", err)
	}
	defer rows.Close()

	targets := []model.PushTarget{}
	for rows.Next() {
		var t model.PushTarget
		if err := rows.Scan(&t.Token, &t.MinSeverity, &t.Service, &t.Platform, &t.Active, &t.RegisteredAt); err != nil {
			return nil, fmt.Errorf("failed to scan push target: %w", err)
		}
		targets = append(targets, t)
	}
	return targets, rows.Err()
}

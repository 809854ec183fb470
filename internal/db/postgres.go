// PostgreSQL 연결 풀 및 스키마 부트스트랩 정의
//
// 환경변수:
//   - DATABASE_URL: 전체 접속 URL (있으면 우선)
//   - PGHOST / PGPORT / PGUSER / PGPASSWORD / PGDATABASE / PGSSLMODE

package db

import (
	"context"
	"fmt"
	"net/url"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/logsense/backend/internal/config"
)

// Postgres 구조체 정의
// 모든 저장소 메서드의 리시버
type Postgres struct {
	Pool *pgxpool.Pool
}

// Postgres 객체 생성
func NewPostgres(ctx context.Context, cfg config.PostgresConfig) (*Postgres, error) {
	dsn := cfg.DatabaseURL
	if dsn == "" {
		dsn = buildPostgresURL(cfg)
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	return &Postgres{Pool: pool}, nil
}

func (p *Postgres) Close() {
	p.Pool.Close()
}

// EnsureSchema - 기동 시 필요한 테이블 전부 생성
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	for _, ensure := range []func(context.Context) error{
		p.EnsureLogSchema,
		p.EnsureAlertSchema,
		p.EnsurePushTokenSchema,
		p.EnsureWebhookSchema,
		p.EnsureEmbeddingSchema,
	} {
		if err := ensure(ctx); err != nil {
			return err
		}
	}
	return nil
}

func buildPostgresURL(cfg config.PostgresConfig) string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(cfg.User, cfg.Password),
		Host:   fmt.Sprintf("%s:%s", cfg.Host, cfg.Port),
		Path:   cfg.Database,
	}
	q := u.Query()
	q.Set("sslmode", cfg.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}

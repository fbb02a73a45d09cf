package db

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"chat-llm/internal/config"
)

// NewPool construye y devuelve un pool de conexiones configurado.
func NewPool(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}

	// Configuración razonable para ambientes iniciales.
	poolCfg.MaxConns = 10
	poolCfg.MinConns = 1
	poolCfg.MaxConnLifetime = 30 * time.Minute
	poolCfg.MaxConnIdleTime = 5 * time.Minute
	poolCfg.HealthCheckPeriod = 30 * time.Second
	poolCfg.ConnConfig.ConnectTimeout = 5 * time.Second

	return pgxpool.NewWithConfig(ctx, poolCfg)
}

// Ping verifica conectividad con la base de datos.
func Ping(ctx context.Context, pool *pgxpool.Pool) error {
	return pool.Ping(ctx)
}

// EnsureSchema crea las tablas si no existen. Sin FK de messages a
// conversations: el modelo tolera escrituras huérfanas cuando un delete
// corre en paralelo con un envío.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	const schema = `
		CREATE TABLE IF NOT EXISTS conversations (
			id         uuid PRIMARY KEY,
			title      text NOT NULL,
			created_at timestamptz NOT NULL,
			updated_at timestamptz NOT NULL
		);
		CREATE TABLE IF NOT EXISTS messages (
			id              uuid PRIMARY KEY,
			conversation_id uuid NOT NULL,
			role            text NOT NULL,
			content         text NOT NULL,
			images          text[] NOT NULL DEFAULT '{}',
			created_at      timestamptz NOT NULL
		);
		CREATE INDEX IF NOT EXISTS messages_conversation_idx
			ON messages (conversation_id, created_at);
	`
	_, err := pool.Exec(ctx, schema)
	return err
}

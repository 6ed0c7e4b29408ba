// Package sink exports archived message metadata to a PostgreSQL database so
// downstream tooling can query the archive without walking the filesystem.
package sink

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mailarc/mailarc/config"
	"github.com/mailarc/mailarc/consts"
	"github.com/mailarc/mailarc/logger"
	"github.com/mailarc/mailarc/mailsource"
	"github.com/mailarc/mailarc/metrics"
)

const schema = `
CREATE TABLE IF NOT EXISTS archived_messages (
	id BIGSERIAL PRIMARY KEY,
	fingerprint TEXT NOT NULL UNIQUE,
	message_class TEXT NOT NULL,
	subject TEXT NOT NULL,
	sender TEXT NOT NULL,
	received_at TIMESTAMPTZ,
	recipients TEXT[] NOT NULL DEFAULT '{}',
	file_path TEXT NOT NULL,
	body_preview TEXT NOT NULL DEFAULT '',
	archived_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_archived_messages_class ON archived_messages (message_class);
CREATE INDEX IF NOT EXISTS idx_archived_messages_sender ON archived_messages (sender);
`

// Sink writes archived message rows to PostgreSQL.
type Sink struct {
	pool *pgxpool.Pool
}

// Connect opens the sink pool and ensures the export schema exists.
func Connect(ctx context.Context, cfg config.SinkConfig) (*Sink, error) {
	sslMode := "disable"
	if cfg.TLSMode {
		sslMode = "require"
	}

	connString := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Name, sslMode)

	logger.Info("connecting to export sink",
		"host", cfg.Host, "port", cfg.Port, "database", cfg.Name, "sslmode", sslMode)

	poolConfig, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("unable to parse sink connection string: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", consts.ErrSinkUnavailable, err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%w: %v", consts.ErrSinkUnavailable, err)
	}

	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to initialize sink schema: %w", err)
	}

	return &Sink{pool: pool}, nil
}

// Export writes one archived message row. Re-exporting the same fingerprint
// refreshes the stored path and preview instead of failing.
func (s *Sink) Export(ctx context.Context, msg *mailsource.MessageRecord) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO archived_messages (fingerprint, message_class, subject, sender, received_at, recipients, file_path, body_preview)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (fingerprint) DO UPDATE SET
			file_path = EXCLUDED.file_path,
			body_preview = EXCLUDED.body_preview`,
		msg.Fingerprint, msg.MessageClass, msg.Subject, msg.Sender,
		msg.ReceivedTime, msg.ResolvedRecipients(), msg.ComputedFilePath, msg.BodyPreview)
	if err != nil {
		return fmt.Errorf("failed to export message %s: %w", msg.Fingerprint, err)
	}
	metrics.SinkWrites.Inc()
	return nil
}

// Close releases the connection pool.
func (s *Sink) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

package assetlog

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/dshills/filestorm/internal/assetlog/migrations"
)

// postgresOperationTimeout bounds every statement the backend issues.
const postgresOperationTimeout = 5 * time.Second

// PostgresBackend persists assets in PostgreSQL.
type PostgresBackend struct {
	db      *sql.DB
	timeout time.Duration
}

// NewPostgresBackend wraps an open connection. The caller owns schema
// setup; OpenPostgres handles both.
func NewPostgresBackend(db *sql.DB) *PostgresBackend {
	return &PostgresBackend{db: db, timeout: postgresOperationTimeout}
}

// OpenPostgres connects to the DSN and brings the schema up to date.
func OpenPostgres(ctx context.Context, dsn string) (*PostgresBackend, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open asset log: %w", err)
	}
	b := NewPostgresBackend(db)
	if err := b.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate asset log: %w", err)
	}
	return b, nil
}

func (b *PostgresBackend) migrate(ctx context.Context) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		return err
	}
	return goose.UpContext(ctx, b.db, ".")
}

// Record upserts the asset row keyed by upload id.
func (b *PostgresBackend) Record(ctx context.Context, a Asset) error {
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	if a.UploadedAt.IsZero() {
		a.UploadedAt = time.Now().UTC()
	}
	query := `
		INSERT INTO assets (upload_id, document_id, name, mime, size, url, uploaded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (upload_id)
		DO UPDATE SET
			document_id = EXCLUDED.document_id,
			name = EXCLUDED.name,
			mime = EXCLUDED.mime,
			size = EXCLUDED.size,
			url = EXCLUDED.url,
			uploaded_at = EXCLUDED.uploaded_at`
	if _, err := b.db.ExecContext(ctx, query,
		a.ID, a.DocumentID, a.Name, a.MIME, a.Size, a.URL, a.UploadedAt); err != nil {
		return fmt.Errorf("record asset: %w", err)
	}
	return nil
}

// List returns the assets recorded for a document ordered by upload
// time. An empty documentID lists every asset.
func (b *PostgresBackend) List(ctx context.Context, documentID string) ([]Asset, error) {
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	query := `
		SELECT upload_id, document_id, name, mime, size, url, uploaded_at
		FROM assets
		ORDER BY uploaded_at, upload_id`
	args := []any{}
	if documentID != "" {
		query = `
		SELECT upload_id, document_id, name, mime, size, url, uploaded_at
		FROM assets
		WHERE document_id = $1
		ORDER BY uploaded_at, upload_id`
		args = append(args, documentID)
	}

	rows, err := b.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list assets: %w", err)
	}
	defer rows.Close()

	var out []Asset
	for rows.Next() {
		var a Asset
		if err := rows.Scan(&a.ID, &a.DocumentID, &a.Name, &a.MIME, &a.Size, &a.URL, &a.UploadedAt); err != nil {
			return nil, fmt.Errorf("scan asset: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Close closes the underlying connection pool.
func (b *PostgresBackend) Close() error {
	return b.db.Close()
}

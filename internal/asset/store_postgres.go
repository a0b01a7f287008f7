package asset

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"landregistry/pkg/platform/sentinel"
)

// PostgresStore persists asset references in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore constructs a PostgreSQL-backed reference store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Save(ctx context.Context, ref *Reference) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO asset_references (reference_id, size_bytes, mime_class, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (reference_id) DO NOTHING`,
		ref.ReferenceID, ref.SizeBytes, ref.MimeClass, ref.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("save asset reference: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, referenceID string) (*Reference, error) {
	var ref Reference
	err := s.db.QueryRowContext(ctx, `
		SELECT reference_id, size_bytes, mime_class, created_at
		FROM asset_references WHERE reference_id = $1`,
		referenceID,
	).Scan(&ref.ReferenceID, &ref.SizeBytes, &ref.MimeClass, &ref.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("asset reference %s: %w", referenceID, sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("find asset reference: %w", err)
	}
	return &ref, nil
}

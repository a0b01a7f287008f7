package principal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"landregistry/pkg/platform/sentinel"
	"landregistry/pkg/platform/tx"
)

// PostgresStore persists principal records in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore constructs a PostgreSQL-backed principal store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Find(ctx context.Context, principalID string) (*Record, error) {
	var r Record
	err := tx.QuerierFor(ctx, s.db).QueryRowContext(ctx, `
		SELECT principal_id, classification, full_name, nationality, id_type,
		       id_number, residential_address, profile_asset_id, created_at, updated_at
		FROM principals WHERE principal_id = $1`,
		principalID,
	).Scan(
		&r.PrincipalID, &r.Classification, &r.Profile.FullName, &r.Profile.Nationality,
		&r.Profile.IDType, &r.Profile.IDNumber, &r.Profile.ResidentialAddress,
		&r.Profile.AssetReferenceID, &r.CreatedAt, &r.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("principal %s: %w", principalID, sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("find principal: %w", err)
	}
	return &r, nil
}

func (s *PostgresStore) Save(ctx context.Context, record *Record) error {
	_, err := tx.QuerierFor(ctx, s.db).ExecContext(ctx, `
		INSERT INTO principals (principal_id, classification, full_name, nationality,
		                        id_type, id_number, residential_address, profile_asset_id,
		                        created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (principal_id) DO UPDATE SET
			classification = EXCLUDED.classification,
			full_name = EXCLUDED.full_name,
			nationality = EXCLUDED.nationality,
			id_type = EXCLUDED.id_type,
			id_number = EXCLUDED.id_number,
			residential_address = EXCLUDED.residential_address,
			profile_asset_id = EXCLUDED.profile_asset_id,
			updated_at = EXCLUDED.updated_at`,
		record.PrincipalID, record.Classification, record.Profile.FullName,
		record.Profile.Nationality, record.Profile.IDType, record.Profile.IDNumber,
		record.Profile.ResidentialAddress, record.Profile.AssetReferenceID,
		record.CreatedAt, record.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("save principal: %w", err)
	}
	return nil
}

package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"landregistry/pkg/platform/sentinel"
	"landregistry/pkg/platform/tx"
)

// PostgresStore persists parcels and history in PostgreSQL. Write operations
// honor a transaction carried in the context, so the workflow engine can
// commit a decision, the owner swap and the history append as one unit.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore constructs a PostgreSQL-backed ledger store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, parcel *Parcel) error {
	result, err := tx.QuerierFor(ctx, s.db).ExecContext(ctx, `
		INSERT INTO parcels (parcel_id, owner_principal_id, owner_name, location,
		                     area_sqft, price, registered_at, asset_reference_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (parcel_id) DO NOTHING`,
		parcel.ParcelID, parcel.OwnerPrincipalID, parcel.OwnerName, parcel.Location,
		parcel.AreaSqFt, parcel.Price, parcel.RegisteredAt, parcel.AssetReferenceID,
	)
	if err != nil {
		return fmt.Errorf("create parcel: %w", err)
	}
	inserted, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("create parcel: %w", err)
	}
	if inserted == 0 {
		return fmt.Errorf("parcel %s: %w", parcel.ParcelID, sentinel.ErrConflict)
	}
	return nil
}

func (s *PostgresStore) Find(ctx context.Context, parcelID uuid.UUID) (*Parcel, error) {
	var p Parcel
	err := tx.QuerierFor(ctx, s.db).QueryRowContext(ctx, `
		SELECT parcel_id, owner_principal_id, owner_name, location,
		       area_sqft, price, registered_at, asset_reference_id
		FROM parcels WHERE parcel_id = $1`,
		parcelID,
	).Scan(
		&p.ParcelID, &p.OwnerPrincipalID, &p.OwnerName, &p.Location,
		&p.AreaSqFt, &p.Price, &p.RegisteredAt, &p.AssetReferenceID,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("parcel %s: %w", parcelID, sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("find parcel: %w", err)
	}
	return &p, nil
}

func (s *PostgresStore) Transfer(ctx context.Context, parcelID uuid.UUID, expectedOwner, newOwner, newOwnerName string, price int64, entry HistoryEntry) error {
	q := tx.QuerierFor(ctx, s.db)

	result, err := q.ExecContext(ctx, `
		UPDATE parcels
		SET owner_principal_id = $1, owner_name = $2, price = $3
		WHERE parcel_id = $4 AND owner_principal_id = $5`,
		newOwner, newOwnerName, price, parcelID, expectedOwner,
	)
	if err != nil {
		return fmt.Errorf("transfer parcel: %w", err)
	}
	updated, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("transfer parcel: %w", err)
	}
	if updated == 0 {
		var exists bool
		if err := q.QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM parcels WHERE parcel_id = $1)`, parcelID,
		).Scan(&exists); err != nil {
			return fmt.Errorf("transfer parcel: %w", err)
		}
		if !exists {
			return fmt.Errorf("parcel %s: %w", parcelID, sentinel.ErrNotFound)
		}
		return fmt.Errorf("parcel %s: %w", parcelID, sentinel.ErrStaleOwner)
	}

	_, err = q.ExecContext(ctx, `
		INSERT INTO history_entries (parcel_id, transfer_request_id,
		                             from_principal_id, to_principal_id, approved_at)
		VALUES ($1, $2, $3, $4, $5)`,
		entry.ParcelID, entry.TransferRequestID,
		entry.FromPrincipalID, entry.ToPrincipalID, entry.ApprovedAt,
	)
	if err != nil {
		return fmt.Errorf("append history: %w", err)
	}
	return nil
}

func (s *PostgresStore) History(ctx context.Context, parcelID uuid.UUID) ([]HistoryEntry, error) {
	rows, err := tx.QuerierFor(ctx, s.db).QueryContext(ctx, `
		SELECT parcel_id, transfer_request_id, from_principal_id, to_principal_id, approved_at
		FROM history_entries
		WHERE parcel_id = $1
		ORDER BY approved_at ASC, transfer_request_id ASC`,
		parcelID,
	)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	defer rows.Close()

	entries := make([]HistoryEntry, 0)
	for rows.Next() {
		var e HistoryEntry
		if err := rows.Scan(&e.ParcelID, &e.TransferRequestID, &e.FromPrincipalID, &e.ToPrincipalID, &e.ApprovedAt); err != nil {
			return nil, fmt.Errorf("scan history entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	return entries, nil
}

func (s *PostgresStore) ParcelIDsByOwner(ctx context.Context, principalID string) ([]uuid.UUID, error) {
	rows, err := tx.QuerierFor(ctx, s.db).QueryContext(ctx, `
		SELECT parcel_id FROM parcels
		WHERE owner_principal_id = $1
		ORDER BY registered_at ASC, parcel_id ASC`,
		principalID,
	)
	if err != nil {
		return nil, fmt.Errorf("list parcels by owner: %w", err)
	}
	defer rows.Close()

	ids := make([]uuid.UUID, 0)
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan parcel id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list parcels by owner: %w", err)
	}
	return ids, nil
}

package workflow

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"landregistry/pkg/platform/sentinel"
	"landregistry/pkg/platform/tx"
)

// PostgresStore persists requests in PostgreSQL. The decided transition is a
// single UPDATE guarded on status = 'pending', so concurrent deciders race on
// the row and exactly one sees an affected row. All methods honor a
// transaction carried in the context.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore constructs a PostgreSQL-backed request store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) CreateRegistration(ctx context.Context, req *RegistrationRequest) error {
	_, err := tx.QuerierFor(ctx, s.db).ExecContext(ctx, `
		INSERT INTO registration_requests (request_id, submitter_principal_id, owner_name,
		                                   location, area_sqft, price, asset_reference_id,
		                                   status, reason, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		req.RequestID, req.SubmitterPrincipalID, req.OwnerName, req.Location,
		req.AreaSqFt, req.Price, req.AssetReferenceID, req.Status, req.Reason, req.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("create registration request: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindRegistration(ctx context.Context, requestID uuid.UUID) (*RegistrationRequest, error) {
	var (
		r         RegistrationRequest
		decidedAt sql.NullTime
		decidedBy sql.NullString
	)
	err := tx.QuerierFor(ctx, s.db).QueryRowContext(ctx, `
		SELECT request_id, submitter_principal_id, owner_name, location, area_sqft,
		       price, asset_reference_id, status, reason, created_at, decided_at, decided_by
		FROM registration_requests WHERE request_id = $1`,
		requestID,
	).Scan(
		&r.RequestID, &r.SubmitterPrincipalID, &r.OwnerName, &r.Location, &r.AreaSqFt,
		&r.Price, &r.AssetReferenceID, &r.Status, &r.Reason, &r.CreatedAt, &decidedAt, &decidedBy,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("registration request %s: %w", requestID, sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("find registration request: %w", err)
	}
	if decidedAt.Valid {
		r.DecidedAt = &decidedAt.Time
	}
	r.DecidedBy = decidedBy.String
	return &r, nil
}

func (s *PostgresStore) CreateTransfer(ctx context.Context, req *TransferRequest) error {
	_, err := tx.QuerierFor(ctx, s.db).ExecContext(ctx, `
		INSERT INTO transfer_requests (request_id, parcel_id, from_principal_id,
		                               to_principal_id, price, asset_reference_id,
		                               status, reason, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		req.RequestID, req.ParcelID, req.FromPrincipalID, req.ToPrincipalID,
		req.Price, req.AssetReferenceID, req.Status, req.Reason, req.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("create transfer request: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindTransfer(ctx context.Context, requestID uuid.UUID) (*TransferRequest, error) {
	var (
		r         TransferRequest
		decidedAt sql.NullTime
		decidedBy sql.NullString
	)
	err := tx.QuerierFor(ctx, s.db).QueryRowContext(ctx, `
		SELECT request_id, parcel_id, from_principal_id, to_principal_id, price,
		       asset_reference_id, status, reason, created_at, decided_at, decided_by
		FROM transfer_requests WHERE request_id = $1`,
		requestID,
	).Scan(
		&r.RequestID, &r.ParcelID, &r.FromPrincipalID, &r.ToPrincipalID, &r.Price,
		&r.AssetReferenceID, &r.Status, &r.Reason, &r.CreatedAt, &decidedAt, &decidedBy,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("transfer request %s: %w", requestID, sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("find transfer request: %w", err)
	}
	if decidedAt.Valid {
		r.DecidedAt = &decidedAt.Time
	}
	r.DecidedBy = decidedBy.String
	return &r, nil
}

func (s *PostgresStore) MarkRegistrationDecided(ctx context.Context, requestID uuid.UUID, status Status, reason, decidedBy string, decidedAt time.Time) error {
	return s.markDecided(ctx, "registration_requests", requestID, status, reason, decidedBy, decidedAt)
}

func (s *PostgresStore) MarkTransferDecided(ctx context.Context, requestID uuid.UUID, status Status, reason, decidedBy string, decidedAt time.Time) error {
	return s.markDecided(ctx, "transfer_requests", requestID, status, reason, decidedBy, decidedAt)
}

func (s *PostgresStore) markDecided(ctx context.Context, table string, requestID uuid.UUID, status Status, reason, decidedBy string, decidedAt time.Time) error {
	q := tx.QuerierFor(ctx, s.db)

	result, err := q.ExecContext(ctx, `
		UPDATE `+table+`
		SET status = $1, reason = $2, decided_by = $3, decided_at = $4
		WHERE request_id = $5 AND status = $6`,
		status, reason, decidedBy, decidedAt, requestID, StatusPending,
	)
	if err != nil {
		return fmt.Errorf("mark request decided: %w", err)
	}
	updated, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark request decided: %w", err)
	}
	if updated == 1 {
		return nil
	}

	var exists bool
	if err := q.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM `+table+` WHERE request_id = $1)`, requestID,
	).Scan(&exists); err != nil {
		return fmt.Errorf("mark request decided: %w", err)
	}
	if !exists {
		return fmt.Errorf("request %s: %w", requestID, sentinel.ErrNotFound)
	}
	return fmt.Errorf("request %s: %w", requestID, sentinel.ErrAlreadyDecided)
}

func (s *PostgresStore) OverrideRegistrationDecision(ctx context.Context, requestID uuid.UUID, status Status, reason string) error {
	return s.overrideDecision(ctx, "registration_requests", requestID, status, reason)
}

func (s *PostgresStore) OverrideTransferDecision(ctx context.Context, requestID uuid.UUID, status Status, reason string) error {
	return s.overrideDecision(ctx, "transfer_requests", requestID, status, reason)
}

func (s *PostgresStore) overrideDecision(ctx context.Context, table string, requestID uuid.UUID, status Status, reason string) error {
	result, err := tx.QuerierFor(ctx, s.db).ExecContext(ctx, `
		UPDATE `+table+` SET status = $1, reason = $2 WHERE request_id = $3`,
		status, reason, requestID,
	)
	if err != nil {
		return fmt.Errorf("override decision: %w", err)
	}
	updated, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("override decision: %w", err)
	}
	if updated == 0 {
		return fmt.Errorf("request %s: %w", requestID, sentinel.ErrNotFound)
	}
	return nil
}

func (s *PostgresStore) PendingRegistrations(ctx context.Context) ([]RegistrationRequest, error) {
	rows, err := tx.QuerierFor(ctx, s.db).QueryContext(ctx, `
		SELECT request_id, submitter_principal_id, owner_name, location, area_sqft,
		       price, asset_reference_id, status, reason, created_at
		FROM registration_requests
		WHERE status = $1
		ORDER BY created_at ASC`,
		StatusPending,
	)
	if err != nil {
		return nil, fmt.Errorf("list pending registrations: %w", err)
	}
	defer rows.Close()

	pending := make([]RegistrationRequest, 0)
	for rows.Next() {
		var r RegistrationRequest
		if err := rows.Scan(
			&r.RequestID, &r.SubmitterPrincipalID, &r.OwnerName, &r.Location, &r.AreaSqFt,
			&r.Price, &r.AssetReferenceID, &r.Status, &r.Reason, &r.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan registration request: %w", err)
		}
		pending = append(pending, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list pending registrations: %w", err)
	}
	return pending, nil
}

func (s *PostgresStore) PendingTransfers(ctx context.Context) ([]TransferRequest, error) {
	rows, err := tx.QuerierFor(ctx, s.db).QueryContext(ctx, `
		SELECT request_id, parcel_id, from_principal_id, to_principal_id, price,
		       asset_reference_id, status, reason, created_at
		FROM transfer_requests
		WHERE status = $1
		ORDER BY created_at ASC`,
		StatusPending,
	)
	if err != nil {
		return nil, fmt.Errorf("list pending transfers: %w", err)
	}
	defer rows.Close()

	pending := make([]TransferRequest, 0)
	for rows.Next() {
		var r TransferRequest
		if err := rows.Scan(
			&r.RequestID, &r.ParcelID, &r.FromPrincipalID, &r.ToPrincipalID, &r.Price,
			&r.AssetReferenceID, &r.Status, &r.Reason, &r.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan transfer request: %w", err)
		}
		pending = append(pending, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list pending transfers: %w", err)
	}
	return pending, nil
}

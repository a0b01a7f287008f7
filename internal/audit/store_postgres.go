package audit

import (
	"context"
	"database/sql"
	"fmt"
)

// PostgresStore persists audit events in PostgreSQL. Audit writes stay out of
// workflow transactions on purpose: a failed audit insert must not roll back
// a decision.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore constructs a PostgreSQL-backed audit store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Append(ctx context.Context, event Event) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_events (event_id, principal_id, action, subject, occurred_at)
		VALUES ($1, $2, $3, $4, $5)`,
		event.EventID, event.PrincipalID, event.Action, event.Subject, event.OccurredAt,
	)
	if err != nil {
		return fmt.Errorf("append audit event: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListByPrincipal(ctx context.Context, principalID string) ([]Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT event_id, principal_id, action, subject, occurred_at
		FROM audit_events
		WHERE principal_id = $1
		ORDER BY occurred_at ASC`,
		principalID,
	)
	if err != nil {
		return nil, fmt.Errorf("list audit events: %w", err)
	}
	defer rows.Close()

	events := make([]Event, 0)
	for rows.Next() {
		var e Event
		if err := rows.Scan(&e.EventID, &e.PrincipalID, &e.Action, &e.Subject, &e.OccurredAt); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list audit events: %w", err)
	}
	return events, nil
}

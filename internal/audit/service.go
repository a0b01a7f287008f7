package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Sink receives every appended event after it is persisted. Used to mirror
// the trail onto Kafka; failures are logged, never propagated.
type Sink interface {
	Publish(ctx context.Context, event Event) error
}

// Service captures structured audit events. It is append-only and uses the
// store for persistence so tests can swap sinks easily.
type Service struct {
	store  Store
	sink   Sink
	logger *slog.Logger
}

// Option configures the Service.
type Option func(*Service)

func WithSink(sink Sink) Option {
	return func(s *Service) { s.sink = sink }
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// NewService constructs an audit Service.
func NewService(store Store, opts ...Option) *Service {
	s := &Service{store: store}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Emit records an event, filling in the ID and timestamp when absent.
func (s *Service) Emit(ctx context.Context, event Event) error {
	if event.EventID == uuid.Nil {
		event.EventID = uuid.New()
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now()
	}
	if err := s.store.Append(ctx, event); err != nil {
		return err
	}
	if s.sink != nil {
		if err := s.sink.Publish(ctx, event); err != nil && s.logger != nil {
			s.logger.WarnContext(ctx, "audit sink publish failed",
				"event_id", event.EventID.String(),
				"action", event.Action,
				"error", err,
			)
		}
	}
	return nil
}

// List returns the audit trail for one principal.
func (s *Service) List(ctx context.Context, principalID string) ([]Event, error) {
	return s.store.ListByPrincipal(ctx, principalID)
}

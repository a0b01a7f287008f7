package audit

import "context"

// Worker consumes audit events from a channel and persists them through the
// service. It decouples hot request paths from audit persistence latency.
type Worker struct {
	service *Service
	inbox   <-chan Event
}

func NewWorker(service *Service, inbox <-chan Event) *Worker {
	return &Worker{service: service, inbox: inbox}
}

func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event := <-w.inbox:
			if err := w.service.Emit(ctx, event); err != nil {
				return err
			}
		}
	}
}

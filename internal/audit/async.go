package audit

import "context"

// AsyncEmitter queues events onto a channel drained by a Worker, keeping
// audit persistence off the request path. When the queue is full the event is
// dropped rather than blocking a decision.
type AsyncEmitter struct {
	outbox chan<- Event
}

func NewAsyncEmitter(outbox chan<- Event) *AsyncEmitter {
	return &AsyncEmitter{outbox: outbox}
}

func (e *AsyncEmitter) Emit(_ context.Context, event Event) error {
	select {
	case e.outbox <- event:
	default:
	}
	return nil
}

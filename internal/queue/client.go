package queue

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"resume-pipeline/internal/shared/util"
)

// Client sends messages to a queue backend.
type Client interface {
	Send(ctx context.Context, msg Message) error
}

// HandlerFunc processes one delivered message.
type HandlerFunc func(ctx context.Context, msg Message) error

// Inline runs the handler on a goroutine in the same process. The handler gets a
// detached context that keeps only the request id.
type Inline struct {
	Handler HandlerFunc
	wg      sync.WaitGroup
}

// NewInline constructs an in-process dispatcher.
func NewInline(h HandlerFunc) *Inline {
	return &Inline{Handler: h}
}

// Send schedules the handler and returns immediately.
func (q *Inline) Send(ctx context.Context, msg Message) error {
	if q.Handler == nil {
		return errors.New("inline queue has no handler")
	}
	if msg.EnqueuedAt == "" {
		msg.EnqueuedAt = time.Now().UTC().Format(time.RFC3339)
	}
	runCtx := util.WithRequestID(util.DetachWithRequestID(ctx), msg.RequestID)
	q.wg.Add(1)
	go func() {
		defer q.wg.Done()
		if err := q.Handler(runCtx, msg); err != nil {
			log.Printf("inline queue handler submission_id=%s request_id=%s error=%v", msg.SubmissionID, msg.RequestID, err)
		}
	}()
	return nil
}

// Wait blocks until every scheduled handler returned.
func (q *Inline) Wait() {
	q.wg.Wait()
}

var _ Client = (*Inline)(nil)

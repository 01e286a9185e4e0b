package notifier

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// DrainTimeout bounds how long Run keeps delivering buffered messages after shutdown.
const DrainTimeout = 5 * time.Second

// Queue decouples callers from a slow Notifier. Notify never blocks: when the
// buffer is full the message is dropped and logged.
type Queue struct {
	inner Notifier
	ch    chan string
}

// NewQueue wraps inner with a buffer of size messages.
func NewQueue(inner Notifier, size int) *Queue {
	if size <= 0 {
		size = 64
	}
	return &Queue{inner: inner, ch: make(chan string, size)}
}

// Notify implements Notifier.
func (q *Queue) Notify(_ context.Context, text string) error {
	select {
	case q.ch <- text:
	default:
		log.Warn().Msg("notification queue full, dropping message")
	}
	return nil
}

// Run delivers queued messages until ctx is cancelled, then flushes what is
// still buffered for at most DrainTimeout.
func (q *Queue) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			q.drain(ctx)
			return
		case text := <-q.ch:
			q.send(ctx, text)
		}
	}
}

func (q *Queue) drain(parent context.Context) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(parent), DrainTimeout)
	defer cancel()
	for {
		select {
		case text := <-q.ch:
			if ctx.Err() != nil {
				log.Warn().Int("dropped", len(q.ch)+1).Msg("notification drain timed out")
				return
			}
			q.send(ctx, text)
		default:
			return
		}
	}
}

func (q *Queue) send(ctx context.Context, text string) {
	if err := q.inner.Notify(ctx, text); err != nil {
		log.Error().Err(err).Msg("send notification")
	}
}

package notifier

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type recorder struct {
	mu   sync.Mutex
	msgs []string
}

func (r *recorder) Notify(_ context.Context, text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, text)
	return nil
}

func (r *recorder) Messages() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.msgs...)
}

func TestQueue_DeliversInOrder(t *testing.T) {
	rec := &recorder{}
	q := NewQueue(rec, 4)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go q.Run(ctx)

	q.Notify(ctx, "a")
	q.Notify(ctx, "b")

	assert.Eventually(t, func() bool { return len(rec.Messages()) == 2 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"a", "b"}, rec.Messages())
}

func TestQueue_DropsWhenFull(t *testing.T) {
	rec := &recorder{}
	q := NewQueue(rec, 1)

	assert.NoError(t, q.Notify(context.Background(), "kept"))
	assert.NoError(t, q.Notify(context.Background(), "dropped"))
	assert.Len(t, q.ch, 1)
}

func TestQueue_FlushesBufferOnShutdown(t *testing.T) {
	rec := &recorder{}
	q := NewQueue(rec, 4)
	q.Notify(context.Background(), "regression report")
	q.Notify(context.Background(), "prune report")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	done := make(chan struct{})
	go func() {
		q.Run(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
	assert.Equal(t, []string{"regression report", "prune report"}, rec.Messages())
}

package notifier

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestNotifier(url string) *TelegramNotifier {
	n := NewTelegramNotifier("TOKEN", "42", "", 60000)
	n.BaseURL = url
	n.Backoff = time.Millisecond
	return n
}

func TestSend_PostsMessage(t *testing.T) {
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/botTOKEN/sendMessage", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := newTestNotifier(srv.URL)
	require.NoError(t, n.Notify(context.Background(), "Price change: +0.1000%"))
	assert.Equal(t, "42", got["chat_id"])
	assert.Equal(t, "HTML", got["parse_mode"])
	assert.Equal(t, "Price change: +0.1000%", got["text"])
}

func TestSendWithRetry_RecoversAfterFailure(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			http.Error(w, "flood", http.StatusTooManyRequests)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := newTestNotifier(srv.URL)
	require.NoError(t, n.SendWithRetry(context.Background(), "hello", 3))
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestSendWithRetry_Exhausted(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusInternalServerError)
	}))
	defer srv.Close()

	n := newTestNotifier(srv.URL)
	err := n.SendWithRetry(context.Background(), "hello", 2)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "all 3 retries exhausted")
}

func TestSend_BreakerOpens(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.Error(w, "down", http.StatusBadGateway)
	}))
	defer srv.Close()

	n := newTestNotifier(srv.URL)
	for i := 0; i < 5; i++ {
		assert.Error(t, n.Send(context.Background(), "x"))
	}
	err := n.Send(context.Background(), "x")
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, int32(5), atomic.LoadInt32(&calls))
}

func TestSend_CancelledContext(t *testing.T) {
	n := newTestNotifier("http://127.0.0.1:0")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Error(t, n.Send(ctx, "x"))
}

func TestPoll_DispatchesCommands(t *testing.T) {
	var (
		mu      sync.Mutex
		replies []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/botTOKEN/getUpdates":
			assert.Equal(t, "7", r.URL.Query().Get("offset"))
			w.Write([]byte(`{"ok":true,"result":[
				{"update_id":7,"message":{"text":" /count "}},
				{"update_id":8},
				{"update_id":9,"message":{"text":"/unknown"}}]}`))
		case "/botTOKEN/sendMessage":
			var body map[string]string
			json.NewDecoder(r.Body).Decode(&body)
			mu.Lock()
			replies = append(replies, body["text"])
			mu.Unlock()
		}
	}))
	defer srv.Close()

	n := newTestNotifier(srv.URL)
	var seen []string
	next, err := n.poll(context.Background(), srv.Client(), 7, func(_ context.Context, cmd string) string {
		seen = append(seen, cmd)
		if cmd == "/count" {
			return "Table futures_trades holds 3 rows."
		}
		return ""
	})
	require.NoError(t, err)
	assert.Equal(t, 10, next)
	assert.Equal(t, []string{"/count", "/unknown"}, seen)
	assert.Equal(t, []string{"Table futures_trades holds 3 rows."}, replies)
}

func TestLogNotifier(t *testing.T) {
	assert.NoError(t, LogNotifier{}.Notify(context.Background(), "hello"))
}

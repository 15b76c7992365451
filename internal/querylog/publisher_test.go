package querylog

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
)

type stubWriter struct {
	mu       sync.Mutex
	msgs     []kafka.Message
	failures int
	closed   bool
}

func (s *stubWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failures > 0 {
		s.failures--
		return errors.New("broker unavailable")
	}
	s.msgs = append(s.msgs, msgs...)
	return nil
}

func (s *stubWriter) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *stubWriter) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.msgs)
}

func TestPublisherDeliversEvents(t *testing.T) {
	w := &stubWriter{failures: 1}
	p := newPublisher(w, 8, nil)
	p.backoff = time.Millisecond

	p.Start(context.Background())
	p.Publish("sess-1", "rust", 3)

	require.Eventually(t, func() bool { return w.count() == 1 }, time.Second, time.Millisecond)
	require.NoError(t, p.Close())
	require.True(t, w.closed)

	var ev Event
	require.NoError(t, json.Unmarshal(w.msgs[0].Value, &ev))
	require.Equal(t, "sess-1", ev.Session)
	require.Equal(t, "rust", ev.Query)
	require.Equal(t, 3, ev.Hits)
	require.NotEmpty(t, ev.ID)
	require.Equal(t, []byte("sess-1"), w.msgs[0].Key)
}

func TestPublisherDropsWhenFull(t *testing.T) {
	w := &stubWriter{}
	p := newPublisher(w, 1, nil)

	p.Publish("", "a", 0)
	p.Publish("", "b", 0)
	require.Len(t, p.events, 1)

	require.NoError(t, p.Close())
	p.Publish("", "after close", 0)
	require.NoError(t, p.Close())
}

func TestNilPublisherIsNoop(t *testing.T) {
	p := New(nil, "search_queries", 0, nil)
	require.Nil(t, p)

	p.Start(context.Background())
	p.Publish("s", "q", 1)
	require.NoError(t, p.Close())
}

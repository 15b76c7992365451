package querylog

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

// Event is one applied search query.
type Event struct {
	ID        string    `json:"id"`
	Session   string    `json:"session,omitempty"`
	Query     string    `json:"query"`
	Hits      int       `json:"hits"`
	Timestamp time.Time `json:"ts"`
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Publisher ships query events to Kafka in the background. A nil
// *Publisher is valid and drops everything.
type Publisher struct {
	w       messageWriter
	log     *slog.Logger
	events  chan Event
	backoff time.Duration
	retries int

	wg     sync.WaitGroup
	mu     sync.RWMutex
	closed bool
}

// New creates a publisher writing to topic on brokers. It returns nil when no
// brokers are configured.
func New(brokers []string, topic string, buffer int, logger *slog.Logger) *Publisher {
	if len(brokers) == 0 {
		return nil
	}
	w := kafka.NewWriter(kafka.WriterConfig{
		Brokers:     brokers,
		Topic:       topic,
		MaxAttempts: 3,
	})
	return newPublisher(w, buffer, logger)
}

func newPublisher(w messageWriter, buffer int, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if buffer <= 0 {
		buffer = 256
	}
	return &Publisher{
		w:       w,
		log:     logger,
		events:  make(chan Event, buffer),
		backoff: time.Second,
		retries: 3,
	}
}

// Start launches the delivery loop. It stops when ctx is canceled or Close is called.
func (p *Publisher) Start(ctx context.Context) {
	if p == nil {
		return
	}
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-p.events:
				if !ok {
					return
				}
				p.deliver(ctx, ev)
			}
		}
	}()
}

// Publish enqueues an event without blocking; it is dropped when the buffer is full.
func (p *Publisher) Publish(session, query string, hits int) {
	if p == nil {
		return
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return
	}

	ev := Event{
		ID:        uuid.NewString(),
		Session:   session,
		Query:     query,
		Hits:      hits,
		Timestamp: time.Now().UTC(),
	}
	select {
	case p.events <- ev:
	default:
		p.log.Warn("query log buffer full, dropping event", slog.String("query", query))
	}
}

func (p *Publisher) deliver(ctx context.Context, ev Event) {
	payload, err := json.Marshal(ev)
	if err != nil {
		p.log.Error("marshal query event", slog.Any("err", err))
		return
	}
	msg := kafka.Message{Key: []byte(ev.Session), Value: payload}

	backoff := p.backoff
	for attempt := range p.retries {
		err := p.w.WriteMessages(ctx, msg)
		if err == nil {
			return
		}
		p.log.Warn("query log write failed, retrying",
			slog.Any("err", err),
			slog.Int("attempt", attempt+1),
			slog.Duration("backoff", backoff),
		)
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return
		}
		backoff *= 2
	}
	p.log.Error("query log write exhausted retries", slog.String("id", ev.ID))
}

// Close stops accepting events, waits for the loop and closes the writer.
func (p *Publisher) Close() error {
	if p == nil {
		return nil
	}
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.events)
	p.mu.Unlock()

	p.wg.Wait()
	return p.w.Close()
}

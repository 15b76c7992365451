package searchfilter

import (
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/DeafMist/blog-search/backend/internal/models"
	"github.com/DeafMist/blog-search/backend/internal/render"
	"github.com/DeafMist/blog-search/backend/internal/search"
)

// Snapshot exposes the current set of searchable posts.
type Snapshot interface {
	Posts() []models.Post
}

// Input is the text box the user types into.
type Input interface {
	Value() string
}

// Container receives rendered result entries.
type Container interface {
	Clear()
	Append(entry string)
}

// Result describes what a single input event did to the container.
type Result struct {
	Seq     uint64
	Applied bool
	Hits    []models.Post
}

// Component wires a text input to a results container over an index snapshot.
type Component struct {
	index   Snapshot
	input   Input
	results Container
	limit   int
	log     *slog.Logger

	mu      sync.Mutex
	lastSeq uint64
	nextSeq uint64

	// OnQuery is called after every applied non-empty query.
	OnQuery func(query string, hits int)
}

// New builds a component. A nil input or results container yields a
// component that ignores every event.
func New(index Snapshot, input Input, results Container, limit int, logger *slog.Logger) *Component {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if limit <= 0 || limit > search.MaxResults {
		limit = search.MaxResults
	}
	return &Component{index: index, input: input, results: results, limit: limit, log: logger}
}

// Attached reports whether both page elements are present.
func (c *Component) Attached() bool {
	return c.input != nil && c.results != nil
}

// HandleInput reacts to a change of the input value, stamping it with the
// next local sequence number.
func (c *Component) HandleInput() Result {
	if !c.Attached() {
		return Result{}
	}
	c.mu.Lock()
	c.nextSeq++
	seq := c.nextSeq
	c.mu.Unlock()
	return c.Apply(seq, c.input.Value())
}

// Apply runs raw as the query for event seq. Events older than or equal to
// the last applied one are discarded so the container always shows the
// newest keystroke.
func (c *Component) Apply(seq uint64, raw string) Result {
	if !c.Attached() {
		return Result{Seq: seq}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if seq <= c.lastSeq {
		c.log.Debug("dropping stale input", slog.Uint64("seq", seq), slog.Uint64("last", c.lastSeq))
		return Result{Seq: seq}
	}
	c.lastSeq = seq
	if seq > c.nextSeq {
		c.nextSeq = seq
	}

	c.results.Clear()
	query := search.Normalize(raw)
	if query == "" {
		return Result{Seq: seq, Applied: true}
	}

	var posts []models.Post
	if c.index != nil {
		posts = c.index.Posts()
	}
	hits := search.Filter(posts, query, c.limit)
	for _, p := range hits {
		entry, err := render.Entry(p)
		if err != nil {
			c.log.Warn("skip result entry", slog.Any("err", err))
			continue
		}
		c.results.Append(entry)
	}

	if c.OnQuery != nil {
		c.OnQuery(query, len(hits))
	}
	return Result{Seq: seq, Applied: true, Hits: hits}
}

// LastSeq returns the sequence number of the last applied event.
func (c *Component) LastSeq() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastSeq
}

// Buffer is an in-memory results container safe for concurrent use.
type Buffer struct {
	mu      sync.RWMutex
	entries []string
}

// Clear removes all entries.
func (b *Buffer) Clear() {
	b.mu.Lock()
	b.entries = b.entries[:0]
	b.mu.Unlock()
}

// Append adds an entry at the end.
func (b *Buffer) Append(entry string) {
	b.mu.Lock()
	b.entries = append(b.entries, entry)
	b.mu.Unlock()
}

// Len returns the number of entries.
func (b *Buffer) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.entries)
}

// HTML concatenates the entries in order.
func (b *Buffer) HTML() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return strings.Join(b.entries, "")
}

// TextInput is an in-memory input box.
type TextInput struct {
	mu    sync.RWMutex
	value string
}

// Set replaces the current value.
func (t *TextInput) Set(v string) {
	t.mu.Lock()
	t.value = v
	t.mu.Unlock()
}

// Value returns the current value.
func (t *TextInput) Value() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.value
}

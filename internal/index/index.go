package index

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/DeafMist/blog-search/backend/internal/models"
)

// ErrStatus is returned when the index endpoint answers with a non-2xx status.
var ErrStatus = errors.New("unexpected index status")

// Source produces the full list of posts to search over.
type Source interface {
	Fetch(ctx context.Context) ([]models.Post, error)
}

// HTTPSource downloads the pre-built JSON index from a fixed URL.
type HTTPSource struct {
	URL    string
	Client *http.Client
}

// NewHTTPSource builds a source with a dedicated client.
func NewHTTPSource(url string, timeout time.Duration) *HTTPSource {
	return &HTTPSource{
		URL:    url,
		Client: &http.Client{Timeout: timeout},
	}
}

// Fetch issues one uncached GET and decodes a JSON array of posts.
func (s *HTTPSource) Fetch(ctx context.Context) ([]models.Post, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("build index request: %w", err)
	}
	// The index changes between deployments, never serve it from a cache.
	req.Header.Set("Cache-Control", "no-store")
	req.Header.Set("Pragma", "no-cache")
	req.Header.Set("Accept", "application/json")

	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}

	res, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch index: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, res.Body)
		return nil, fmt.Errorf("%w: %s", ErrStatus, res.Status)
	}

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("read index: %w", err)
	}

	var posts []models.Post
	if err := json.Unmarshal(body, &posts); err != nil {
		return nil, fmt.Errorf("decode index: %w", err)
	}
	return posts, nil
}

// Index holds the posts loaded at startup. The snapshot is written once and
// read-only afterwards; readers before completion observe an empty index.
type Index struct {
	src  Source
	log  *slog.Logger
	once sync.Once

	posts atomic.Pointer[[]models.Post]
	ready atomic.Bool
	done  chan struct{}

	// OnLoad, when set, is told how the single load attempt ended.
	OnLoad func(count int, err error)
}

// New creates an unloaded index backed by src.
func New(src Source, logger *slog.Logger) *Index {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Index{src: src, log: logger, done: make(chan struct{})}
}

// Load fetches the posts exactly once. Failures are logged and leave the
// index empty; later calls return immediately.
func (i *Index) Load(ctx context.Context) {
	i.once.Do(func() {
		defer close(i.done)
		defer i.ready.Store(true)

		posts, err := i.fetch(ctx)
		if i.OnLoad != nil {
			i.OnLoad(len(posts), err)
		}
		if err != nil {
			i.log.Warn("search index unavailable, serving empty results", slog.Any("err", err))
			return
		}

		i.posts.Store(&posts)
		i.log.Info("search index loaded", slog.Int("records", len(posts)))
	})
}

func (i *Index) fetch(ctx context.Context) ([]models.Post, error) {
	if i.src == nil {
		return nil, errors.New("no index source configured")
	}
	posts, err := i.src.Fetch(ctx)
	if err != nil {
		return nil, err
	}
	return posts, nil
}

// Posts returns the loaded snapshot, or nil if nothing has been loaded.
// Callers must not modify the returned slice.
func (i *Index) Posts() []models.Post {
	p := i.posts.Load()
	if p == nil {
		return nil
	}
	return *p
}

// Ready reports whether the load attempt has finished.
func (i *Index) Ready() bool {
	return i.ready.Load()
}

// Done is closed once the load attempt has finished.
func (i *Index) Done() <-chan struct{} {
	return i.done
}

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/DeafMist/blog-search/backend/internal/search"
)

// Index source kinds.
const (
	SourceHTTP          = "http"
	SourceElasticsearch = "elasticsearch"
)

// Common contains Elasticsearch parameters shared by every service.
type Common struct {
	ElasticsearchAddr  string
	ElasticsearchIndex string
}

// API describes HTTP-layer configuration.
type API struct {
	Common
	BindAddr        string
	IndexSource     string
	IndexURL        string
	IndexTimeout    time.Duration
	IndexMaxRecords int
	MaxResults      int
	SessionCapacity int
	SessionTTL      time.Duration
	KafkaBrokers    []string
	KafkaTopic      string
	QueryLogBuffer  int
}

// IndexGen configures the static index generator.
type IndexGen struct {
	Common
	Root       string
	StatePath  string
	SitePath   string
	OutputPath string
	Limit      int
}

// Site is the subset of the blog site config the index generator needs.
type Site struct {
	Name         string `yaml:"name"`
	URL          string `yaml:"url"`
	BaseURL      string `yaml:"base_url"`
	PostsPerPage int    `yaml:"posts_per_page"`
}

func loadCommon() Common {
	return Common{
		ElasticsearchAddr:  getEnv("ELASTICSEARCH_ADDR", "http://elasticsearch:9200"),
		ElasticsearchIndex: getEnv("ELASTICSEARCH_INDEX", "posts"),
	}
}

// LoadAPI builds an API config from environment variables.
func LoadAPI() (*API, error) {
	c := &API{
		Common:          loadCommon(),
		BindAddr:        getEnv("API_BIND_ADDR", "0.0.0.0:8080"),
		IndexSource:     strings.ToLower(getEnv("INDEX_SOURCE", SourceHTTP)),
		IndexURL:        getEnv("INDEX_URL", "http://localhost:8000/feeds/search.json"),
		IndexTimeout:    getDuration("INDEX_TIMEOUT", "10s"),
		IndexMaxRecords: getInt("INDEX_MAX_RECORDS", 200),
		MaxResults:      getInt("SEARCH_MAX_RESULTS", search.MaxResults),
		SessionCapacity: getInt("SESSION_CAPACITY", 10000),
		SessionTTL:      getDuration("SESSION_TTL", "30m"),
		KafkaBrokers:    splitAndTrim(getEnv("KAFKA_BROKERS", "")),
		KafkaTopic:      getEnv("KAFKA_TOPIC", "search_queries"),
		QueryLogBuffer:  getInt("QUERYLOG_BUFFER", 256),
	}

	switch c.IndexSource {
	case SourceHTTP:
		if c.IndexURL == "" {
			return nil, fmt.Errorf("INDEX_URL must be set for the http source")
		}
	case SourceElasticsearch:
	default:
		return nil, fmt.Errorf("INDEX_SOURCE must be %q or %q, got %q", SourceHTTP, SourceElasticsearch, c.IndexSource)
	}

	if c.IndexTimeout <= 0 {
		return nil, fmt.Errorf("INDEX_TIMEOUT must be positive")
	}
	if c.IndexMaxRecords <= 0 {
		return nil, fmt.Errorf("INDEX_MAX_RECORDS must be positive")
	}
	if c.MaxResults <= 0 || c.MaxResults > search.MaxResults {
		return nil, fmt.Errorf("SEARCH_MAX_RESULTS must be between 1 and %d", search.MaxResults)
	}
	if c.SessionCapacity <= 0 {
		return nil, fmt.Errorf("SESSION_CAPACITY must be positive")
	}
	if c.SessionTTL <= 0 {
		return nil, fmt.Errorf("SESSION_TTL must be positive")
	}

	return c, nil
}

// LoadIndexGen builds an IndexGen config rooted at root (or BLOG_ROOT).
func LoadIndexGen(root string) (*IndexGen, error) {
	if root == "" {
		root = getEnv("BLOG_ROOT", ".")
	}
	c := &IndexGen{
		Common:     loadCommon(),
		Root:       root,
		StatePath:  getEnv("INDEXGEN_STATE", filepath.Join(root, "data", "state.json")),
		SitePath:   getEnv("INDEXGEN_SITE_CONFIG", filepath.Join(root, "config", "config.json")),
		OutputPath: getEnv("INDEXGEN_OUTPUT", filepath.Join(root, "feeds", "search.json")),
		Limit:      getInt("INDEXGEN_LIMIT", 200),
	}

	if c.Limit <= 0 {
		return nil, fmt.Errorf("INDEXGEN_LIMIT must be positive")
	}

	return c, nil
}

// LoadSite reads the "site" section of the blog config. The file may be JSON
// or YAML; a missing file yields an empty Site.
func LoadSite(path string) (Site, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		if os.IsNotExist(err) {
			return Site{}, nil
		}
		return Site{}, fmt.Errorf("read site config %s: %w", path, err)
	}

	var doc struct {
		Site Site `yaml:"site"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return Site{}, fmt.Errorf("parse site config %s: %w", path, err)
	}

	doc.Site.URL = strings.TrimRight(doc.Site.URL, "/")
	doc.Site.BaseURL = strings.TrimRight(doc.Site.BaseURL, "/")
	if doc.Site.PostsPerPage <= 0 {
		doc.Site.PostsPerPage = 20
	}
	return doc.Site, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return fallback
}

func getDuration(key, fallback string) time.Duration {
	d, err := time.ParseDuration(getEnv(key, fallback))
	if err != nil {
		fd, ferr := time.ParseDuration(fallback)
		if ferr != nil {
			panic(fmt.Sprintf("invalid fallback duration %q: %v", fallback, ferr))
		}
		return fd
	}
	return d
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

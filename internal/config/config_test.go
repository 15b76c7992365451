package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/DeafMist/blog-search/backend/internal/config"
	"github.com/stretchr/testify/require"
)

func TestLoadAPIDefaults(t *testing.T) {
	for _, key := range []string{
		"API_BIND_ADDR", "INDEX_SOURCE", "INDEX_URL", "INDEX_TIMEOUT", "SEARCH_MAX_RESULTS",
		"SESSION_CAPACITY", "SESSION_TTL", "KAFKA_BROKERS", "KAFKA_TOPIC",
		"ELASTICSEARCH_ADDR", "ELASTICSEARCH_INDEX",
	} {
		t.Setenv(key, "")
	}

	cfg, err := config.LoadAPI()
	require.NoError(t, err)

	require.Equal(t, "0.0.0.0:8080", cfg.BindAddr)
	require.Equal(t, config.SourceHTTP, cfg.IndexSource)
	require.Equal(t, "http://localhost:8000/feeds/search.json", cfg.IndexURL)
	require.Equal(t, 10*time.Second, cfg.IndexTimeout)
	require.Equal(t, 20, cfg.MaxResults)
	require.Equal(t, 30*time.Minute, cfg.SessionTTL)
	require.Empty(t, cfg.KafkaBrokers)
	require.Equal(t, "search_queries", cfg.KafkaTopic)
	require.Equal(t, "http://elasticsearch:9200", cfg.ElasticsearchAddr)
	require.Equal(t, "posts", cfg.ElasticsearchIndex)
}

func TestLoadAPIOverrides(t *testing.T) {
	t.Setenv("API_BIND_ADDR", ":9090")
	t.Setenv("INDEX_SOURCE", "Elasticsearch")
	t.Setenv("INDEX_TIMEOUT", "3s")
	t.Setenv("SEARCH_MAX_RESULTS", "5")
	t.Setenv("SESSION_CAPACITY", "12")
	t.Setenv("SESSION_TTL", "1h")
	t.Setenv("KAFKA_BROKERS", "broker-a:29092, broker-b:29093")
	t.Setenv("ELASTICSEARCH_INDEX", "blog")

	cfg, err := config.LoadAPI()
	require.NoError(t, err)
	require.Equal(t, ":9090", cfg.BindAddr)
	require.Equal(t, config.SourceElasticsearch, cfg.IndexSource)
	require.Equal(t, 3*time.Second, cfg.IndexTimeout)
	require.Equal(t, 5, cfg.MaxResults)
	require.Equal(t, 12, cfg.SessionCapacity)
	require.Equal(t, time.Hour, cfg.SessionTTL)
	require.Equal(t, []string{"broker-a:29092", "broker-b:29093"}, cfg.KafkaBrokers)
	require.Equal(t, "blog", cfg.ElasticsearchIndex)
}

func TestLoadAPIValidation(t *testing.T) {
	t.Setenv("INDEX_SOURCE", "ftp")
	_, err := config.LoadAPI()
	require.ErrorContains(t, err, "INDEX_SOURCE")

	t.Setenv("INDEX_SOURCE", "")
	t.Setenv("SEARCH_MAX_RESULTS", "-1")
	_, err = config.LoadAPI()
	require.ErrorContains(t, err, "SEARCH_MAX_RESULTS")

	t.Setenv("SEARCH_MAX_RESULTS", "50")
	_, err = config.LoadAPI()
	require.ErrorContains(t, err, "SEARCH_MAX_RESULTS")

	t.Setenv("SEARCH_MAX_RESULTS", "20")
	cfg, err := config.LoadAPI()
	require.NoError(t, err)
	require.Equal(t, 20, cfg.MaxResults)
}

func TestLoadIndexGen(t *testing.T) {
	t.Setenv("INDEXGEN_STATE", "")
	t.Setenv("INDEXGEN_SITE_CONFIG", "")
	t.Setenv("INDEXGEN_OUTPUT", "")
	t.Setenv("INDEXGEN_LIMIT", "")

	cfg, err := config.LoadIndexGen("/srv/blog")
	require.NoError(t, err)
	require.Equal(t, filepath.Join("/srv/blog", "data", "state.json"), cfg.StatePath)
	require.Equal(t, filepath.Join("/srv/blog", "config", "config.json"), cfg.SitePath)
	require.Equal(t, filepath.Join("/srv/blog", "feeds", "search.json"), cfg.OutputPath)
	require.Equal(t, 200, cfg.Limit)

	t.Setenv("INDEXGEN_LIMIT", "0")
	_, err = config.LoadIndexGen("/srv/blog")
	require.Error(t, err)
}

func TestLoadSite(t *testing.T) {
	dir := t.TempDir()

	jsonPath := filepath.Join(dir, "config.json")
	require.NoError(t, os.WriteFile(jsonPath, []byte(`{"site":{"name":"Travel","url":"https://example.com/","base_url":"/blog/","posts_per_page":10}}`), 0o644))
	site, err := config.LoadSite(jsonPath)
	require.NoError(t, err)
	require.Equal(t, config.Site{Name: "Travel", URL: "https://example.com", BaseURL: "/blog", PostsPerPage: 10}, site)

	yamlPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(yamlPath, []byte("site:\n  name: Travel\n  base_url: /blog\n"), 0o644))
	site, err = config.LoadSite(yamlPath)
	require.NoError(t, err)
	require.Equal(t, "/blog", site.BaseURL)
	require.Equal(t, 20, site.PostsPerPage)

	site, err = config.LoadSite(filepath.Join(dir, "missing.json"))
	require.NoError(t, err)
	require.Equal(t, config.Site{}, site)
}

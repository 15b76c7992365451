package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/DeafMist/blog-search/backend/internal/config"
	"github.com/DeafMist/blog-search/backend/internal/elasticsearch"
	"github.com/DeafMist/blog-search/backend/internal/logger"
	"github.com/DeafMist/blog-search/backend/internal/models"
	"github.com/DeafMist/blog-search/backend/internal/processing"
)

type postIndexer interface {
	IndexPost(ctx context.Context, post models.Post) error
}

type state struct {
	Posts []models.Post `json:"posts"`
}

type stats struct {
	Read       int
	Written    int
	Summarized int
	Pushed     int
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		root  string
		limit int
		push  bool
	)

	cmd := &cobra.Command{
		Use:          "indexgen",
		Short:        "Rebuild the static search index of the blog",
		Long:         "Reads data/state.json, normalizes post urls, drops duplicates and writes feeds/search.json for the search box.",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			log := logger.New("indexgen")

			cfg, err := config.LoadIndexGen(root)
			if err != nil {
				log.Error("load config", slog.Any("err", err))
				return err
			}
			if cmd.Flags().Changed("limit") {
				cfg.Limit = limit
			}

			site, err := config.LoadSite(cfg.SitePath)
			if err != nil {
				log.Error("load site config", slog.Any("err", err))
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			var es postIndexer
			if push {
				client, err := elasticsearch.New(cfg.ElasticsearchAddr, cfg.ElasticsearchIndex, log)
				if err != nil {
					log.Error("init elasticsearch", slog.Any("err", err))
					return err
				}
				if err := client.WaitReady(ctx, 3, 2*time.Second); err != nil {
					log.Error("elasticsearch unavailable", slog.Any("err", err))
					return err
				}
				es = client
			}

			st, err := generate(ctx, log, cfg, site, es)
			if err != nil {
				log.Error("generate index", slog.Any("err", err))
				return err
			}

			log.Info("search index rebuilt",
				slog.String("output", cfg.OutputPath),
				slog.Int("read", st.Read),
				slog.Int("written", st.Written),
				slog.Int("summarized", st.Summarized),
				slog.Int("pushed", st.Pushed),
			)
			return nil
		},
	}

	cmd.Flags().StringVar(&root, "root", "", "blog root directory (default $BLOG_ROOT or .)")
	cmd.Flags().IntVar(&limit, "limit", 200, "maximum number of posts in the index")
	cmd.Flags().BoolVar(&push, "push", false, "also index every post into Elasticsearch")
	return cmd
}

func generate(ctx context.Context, log *slog.Logger, cfg *config.IndexGen, site config.Site, es postIndexer) (stats, error) {
	var st stats

	posts, err := readState(cfg.StatePath)
	if err != nil {
		return st, err
	}
	st.Read = len(posts)

	posts, changed := processing.NormalizePosts(posts, site.BaseURL)
	if changed {
		log.Info("normalized post urls", slog.Int("before", st.Read), slog.Int("after", len(posts)))
	}

	if len(posts) > cfg.Limit {
		posts = posts[:cfg.Limit]
	}

	for i := range posts {
		if posts[i].Description != "" {
			continue
		}
		path := processing.ContentPath(cfg.Root, posts[i].URL)
		if path == "" {
			continue
		}
		desc, err := processing.SummarizeFile(path)
		if err != nil {
			log.Debug("no summary for post", slog.String("url", posts[i].URL), slog.Any("err", err))
			continue
		}
		posts[i].Description = desc
		st.Summarized++
	}

	if err := writeIndex(cfg.OutputPath, posts); err != nil {
		return st, err
	}
	st.Written = len(posts)

	if es != nil {
		for _, p := range posts {
			pushCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			err := es.IndexPost(pushCtx, p)
			cancel()
			if err != nil {
				return st, fmt.Errorf("push %s: %w", p.URL, err)
			}
			st.Pushed++
		}
	}

	return st, nil
}

func readState(path string) ([]models.Post, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read state: %w", err)
	}

	var st state
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("parse state %s: %w", path, err)
	}
	return st.Posts, nil
}

func writeIndex(path string, posts []models.Post) error {
	if posts == nil {
		posts = []models.Post{}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(posts); err != nil {
		return fmt.Errorf("encode index: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create index dir: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write index: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replace index: %w", err)
	}
	return nil
}

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/DeafMist/blog-search/backend/internal/config"
	"github.com/DeafMist/blog-search/backend/internal/elasticsearch"
	"github.com/DeafMist/blog-search/backend/internal/index"
	"github.com/DeafMist/blog-search/backend/internal/logger"
	"github.com/DeafMist/blog-search/backend/internal/metrics"
	"github.com/DeafMist/blog-search/backend/internal/querylog"
)

func main() {
	log := logger.New("api")
	cfg, err := config.LoadAPI()
	if err != nil {
		log.Error("load config", slog.Any("err", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	src, backend, err := newSource(ctx, cfg, log)
	if err != nil {
		log.Error("init index source", slog.Any("err", err))
		os.Exit(1)
	}

	idx := index.New(src, log)
	idx.OnLoad = metrics.ObserveIndexLoad
	go func() {
		loadCtx, cancel := context.WithTimeout(ctx, cfg.IndexTimeout)
		defer cancel()
		idx.Load(loadCtx)
	}()

	qlog := querylog.New(cfg.KafkaBrokers, cfg.KafkaTopic, cfg.QueryLogBuffer, log)
	qlog.Start(ctx)
	defer func() {
		if err := qlog.Close(); err != nil {
			log.Warn("close query log", slog.Any("err", err))
		}
	}()

	srv := newServer(log, cfg, idx, qlog, backend)

	httpServer := &http.Server{
		Addr:              cfg.BindAddr,
		Handler:           srv.routes(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      15 * time.Second,
	}

	go func() {
		log.Info("api server starting",
			slog.String("addr", cfg.BindAddr),
			slog.String("index_source", cfg.IndexSource),
		)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server stopped", slog.Any("err", err))
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	log.Info("shutdown signal received")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown", slog.Any("err", err))
	}
}

// newSource picks the index source. For Elasticsearch it also returns the
// client as the health checker, after the cluster has answered a ping.
func newSource(ctx context.Context, cfg *config.API, log *slog.Logger) (index.Source, healthChecker, error) {
	if cfg.IndexSource != config.SourceElasticsearch {
		return index.NewHTTPSource(cfg.IndexURL, cfg.IndexTimeout), nil, nil
	}

	es, err := elasticsearch.New(cfg.ElasticsearchAddr, cfg.ElasticsearchIndex, log)
	if err != nil {
		return nil, nil, err
	}
	es.MaxRecords = cfg.IndexMaxRecords

	if err := es.WaitReady(ctx, 10, 3*time.Second); err != nil {
		return nil, nil, fmt.Errorf("connect to elasticsearch: %w", err)
	}
	log.Info("connected to elasticsearch", slog.String("addr", cfg.ElasticsearchAddr))

	return es, es, nil
}

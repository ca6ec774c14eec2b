package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/mohammad-safakhou/narrator/config"
	"github.com/mohammad-safakhou/narrator/internal/cache"
	"github.com/mohammad-safakhou/narrator/internal/listing"
	"github.com/mohammad-safakhou/narrator/internal/narration"
	"github.com/mohammad-safakhou/narrator/internal/search"
	"github.com/mohammad-safakhou/narrator/internal/sources"
	"github.com/mohammad-safakhou/narrator/internal/storage"
	"github.com/mohammad-safakhou/narrator/internal/telemetry"
	"github.com/mohammad-safakhou/narrator/provider"
	"github.com/prometheus/client_golang/prometheus"
)

// app holds the wired services shared by every command.
type app struct {
	cfg       *config.Config
	store     storage.Store
	index     *search.Index
	metrics   *telemetry.Metrics
	narration *narration.Service
	listing   *listing.Service
}

func newLogger(prefix string) *log.Logger {
	return log.New(log.Writer(), prefix, log.LstdFlags)
}

func buildApp(ctx context.Context, cfgPath string) (*app, error) {
	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		return nil, err
	}

	var metrics *telemetry.Metrics
	if cfg.Telemetry.Enabled {
		metrics = telemetry.NewMetrics(prometheus.DefaultRegisterer)
	}

	st, err := storage.Open(ctx, cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}

	gen, err := provider.NewProvider(cfg.LLM, metrics)
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	idx, err := search.NewIndex()
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	collector := sources.NewHTTPCollector(cfg.Sources, newLogger("[SOURCES] "))

	crewLogger := log.New(io.Discard, "", 0)
	if cfg.General.Debug || strings.EqualFold(cfg.General.LogLevel, "debug") {
		crewLogger = newLogger("[CREW] ")
	}

	narrations := narration.NewService(collector, cache.NewNarrationCache(st), gen, cfg.Narration,
		narration.WithLogger(newLogger("[NARRATION] ")),
		narration.WithCrewLogger(crewLogger),
		narration.WithMetrics(metrics),
	)
	listings := listing.NewService(collector, cache.NewListingCache(st, cfg.Sources.Name, cfg.Cache.ListingMaxAge),
		listing.WithLogger(newLogger("[LISTING] ")),
		listing.WithMetrics(metrics),
		listing.WithIndex(idx),
	)

	return &app{
		cfg:       cfg,
		store:     st,
		index:     idx,
		metrics:   metrics,
		narration: narrations,
		listing:   listings,
	}, nil
}

func (a *app) Close() error {
	_ = a.index.Close()
	return a.store.Close()
}

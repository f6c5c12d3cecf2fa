package main

import (
	"fmt"
	"log/slog"

	"go.uber.org/multierr"

	"github.com/example/go-piper-phonemize/internal/config"
	"github.com/example/go-piper-phonemize/internal/diacritize"
	"github.com/example/go-piper-phonemize/internal/inventory"
	"github.com/example/go-piper-phonemize/internal/phonemize"
	"github.com/example/go-piper-phonemize/internal/pipeline"
	"github.com/example/go-piper-phonemize/internal/voice"
)

// app holds the long-lived pieces a command needs.
type app struct {
	cfg         config.Config
	catalog     *voice.Catalog
	inventories *inventory.Store
	gateway     *phonemize.Gateway
	diacritizer *diacritize.Registry
	pipeline    *pipeline.Pipeline
}

// newCatalogAndStore loads only what the read-only commands need.
func newCatalogAndStore(cfg config.Config) (*voice.Catalog, *inventory.Store, error) {
	catalog, err := voice.LoadCatalog(cfg.Paths.VoicesManifest)
	if err != nil {
		return nil, nil, err
	}

	return catalog, inventory.NewStore(cfg.Paths.InventoryDir, catalog), nil
}

// newApp wires the full pipeline with the configured engine. Models and
// inventories load lazily on first use.
func newApp(cfg config.Config) (*app, error) {
	engine, err := phonemize.NewEngine(cfg.Phonemizer, cfg.Paths.DataDir)
	if err != nil {
		return nil, err
	}

	return newAppWithEngine(cfg, engine)
}

func newAppWithEngine(cfg config.Config, engine phonemize.Engine) (*app, error) {
	catalog, store, err := newCatalogAndStore(cfg)
	if err != nil {
		_ = engine.Close()
		return nil, err
	}

	logger := slog.Default()
	gateway := phonemize.NewGateway(engine)
	registry := diacritize.NewRegistry(diacritize.ONNXLoader(cfg.Runtime), logger)

	p := pipeline.New(pipeline.Options{
		Catalog:     catalog,
		Inventories: store,
		Phonemizer:  phonemize.New(catalog, gateway, logger),
		Diacritizer: registry,
		ModelPath:   cfg.Paths.DiacritizerModel,
		Workers:     cfg.Batch.Workers,
		Logger:      logger,
	})

	logger.Debug("pipeline ready",
		"engine", gateway.Engine(),
		"voices", len(catalog.List()),
		"inventory_dir", cfg.Paths.InventoryDir,
	)

	return &app{
		cfg:         cfg,
		catalog:     catalog,
		inventories: store,
		gateway:     gateway,
		diacritizer: registry,
		pipeline:    p,
	}, nil
}

func (a *app) Close() error {
	err := multierr.Append(a.diacritizer.Close(), a.gateway.Close())
	if err != nil {
		return fmt.Errorf("close: %w", err)
	}

	return nil
}

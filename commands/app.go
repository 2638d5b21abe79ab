package commands

import (
	"fmt"

	"wiki-engine/cache"
	"wiki-engine/config"
	"wiki-engine/handlers"
	"wiki-engine/markup"
	"wiki-engine/metrics"
	"wiki-engine/repositories"
	"wiki-engine/services"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// app is the fully wired service graph.
type app struct {
	db       *gorm.DB
	store    *cache.BadgerStore
	registry *prometheus.Registry
	services handlers.Services
	autolock services.AutolockService
}

func openDB(cfg *config.Config, logger *zap.Logger) (*gorm.DB, error) {
	db, err := config.InitDB(cfg.Database, logger)
	if err != nil {
		return nil, err
	}
	if err := config.AutoMigrate(db); err != nil {
		return nil, fmt.Errorf("migrating database: %w", err)
	}
	return db, nil
}

func newApp(cfg *config.Config, logger *zap.Logger) (*app, error) {
	db, err := openDB(cfg, logger)
	if err != nil {
		return nil, err
	}

	store, err := cache.Open(cache.Config{Path: cfg.Cache.Path, Logger: logger})
	if err != nil {
		return nil, err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	renderers, err := markup.NewDefaultRegistry(cfg.Wiki.MarkupTypes, markup.NewLinker(cfg.Wiki.BasePath))
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	policy := services.NewPolicy(cfg.Wiki)

	// Initialize repositories
	userRepo := repositories.NewUserRepository(db)
	articleRepo := repositories.NewArticleRepository(db)
	articleVersionRepo := repositories.NewArticleVersionRepository(db)

	// Initialize services
	authService := services.NewAuthService(userRepo, cfg.JWT)
	articleService := services.NewArticleService(articleRepo, policy, cfg.Wiki, logger)
	revisionService := services.NewRevisionService(articleVersionRepo, policy, logger)
	leaseService := services.NewLeaseService(store, logger, m)
	editService := services.NewEditService(articleService, revisionService, leaseService, renderers, policy, cfg.Wiki, logger, m)
	viewService := services.NewViewService(articleService, revisionService, renderers, cfg.Wiki, logger)

	return &app{
		db:       db,
		store:    store,
		registry: registry,
		services: handlers.Services{
			Auth:      authService,
			Articles:  articleService,
			Revisions: revisionService,
			Edits:     editService,
			Views:     viewService,
		},
		autolock: services.NewAutolockService(articleRepo, cfg.Wiki, logger, m),
	}, nil
}

func (a *app) Close() error {
	err := a.store.Close()
	if sqlDB, dbErr := a.db.DB(); dbErr == nil {
		if closeErr := sqlDB.Close(); err == nil {
			err = closeErr
		}
	}
	return err
}

package container

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	database "github.com/FACorreiaa/kamino-places-api/app/db"
	appMiddleware "github.com/FACorreiaa/kamino-places-api/app/middleware"
	"github.com/FACorreiaa/kamino-places-api/config"
	"github.com/FACorreiaa/kamino-places-api/internal/api/chat"
	"github.com/FACorreiaa/kamino-places-api/internal/api/narrative"
	"github.com/FACorreiaa/kamino-places-api/internal/api/places"
	"github.com/FACorreiaa/kamino-places-api/internal/router"
)

// Container holds all application dependencies.
type Container struct {
	Config     *config.Config
	Logger     *slog.Logger
	Pool       *pgxpool.Pool
	Maintainer *narrative.Maintainer
	Router     *router.Config
}

// NewContainer runs the migrations, opens the pool and builds every
// repository, service and handler.
func NewContainer(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Container, error) {
	dbConfig, err := database.NewDatabaseConfig(cfg, logger)
	if err != nil {
		return nil, err
	}
	if err := database.RunMigrations(dbConfig.ConnectionURL, logger); err != nil {
		return nil, err
	}
	pool, err := database.Init(ctx, dbConfig, logger)
	if err != nil {
		return nil, err
	}
	if !database.WaitForDB(ctx, pool, logger) {
		pool.Close()
		return nil, fmt.Errorf("database not ready")
	}

	c, err := build(ctx, cfg, logger, pool)
	if err != nil {
		pool.Close()
		return nil, err
	}
	c.Pool = pool
	return c, nil
}

func build(ctx context.Context, cfg *config.Config, logger *slog.Logger, db places.DB) (*Container, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	placesRepo := places.NewRepository(db, logger.With(slog.String("component", "PlacesRepository")))
	placesService := places.NewServiceImpl(placesRepo, logger.With(slog.String("component", "PlacesService")), places.Settings{
		Mode:           cfg.Mode,
		AllowDeleteAll: cfg.Admin.AllowDeleteAll,
		Location:       loc,
		CacheTTL:       cfg.Places.CacheTTL,
	})

	var store narrative.DocumentStore = narrative.UnavailableStore{}
	var generator narrative.TextGenerator = narrative.UnavailableStore{}
	if cfg.Gemini.APIKey != "" {
		gemini, err := narrative.NewGeminiStore(ctx, narrative.GeminiConfig{
			APIKey:            cfg.Gemini.APIKey,
			Model:             cfg.Gemini.Model,
			RequestsPerSecond: cfg.Gemini.RequestsPerSecond,
			Burst:             cfg.Gemini.Burst,
		}, logger.With(slog.String("component", "GeminiStore")))
		if err != nil {
			return nil, err
		}
		store, generator = gemini, gemini
	} else {
		logger.Warn("GEMINI_API_KEY not set, narrative routes will answer 503")
	}

	narrativeLogger := logger.With(slog.String("component", "Narratives"))
	narrativeService := narrative.NewServiceImpl(placesRepo, store, generator, narrativeLogger, narrative.Settings{
		Dir:            cfg.Narratives.Dir,
		StoreID:        cfg.Gemini.FileSearchStoreID,
		MaxUploadBytes: cfg.Narratives.MaxUploadBytes,
	})
	maintainer := narrative.NewMaintainer(placesRepo, store, narrativeLogger,
		cfg.Narratives.Dir, cfg.Gemini.FileSearchStoreID, cfg.Narratives.RefreshConcurrency)

	chatService := chat.NewServiceImpl(placesRepo, store, logger.With(slog.String("component", "Chat")), chat.Settings{
		Location: loc,
	})

	return &Container{
		Config:     cfg,
		Logger:     logger,
		Maintainer: maintainer,
		Router: &router.Config{
			PlacesHandler:    places.NewHandler(placesService, logger),
			NarrativeHandler: narrative.NewHandler(narrativeService, maintainer, cfg.Narratives.MaxUploadBytes, logger),
			ChatHandler:      chat.NewHandler(chatService, cfg.Chat.SessionTTL, logger),
			AdminMiddleware:  appMiddleware.RequireAdmin([]byte(cfg.Admin.JWTSecret)),
			AllowedOrigins:   cfg.CORS.AllowedOrigins,
		},
	}, nil
}

func (c *Container) Close() {
	if c.Pool != nil {
		c.Pool.Close()
	}
}

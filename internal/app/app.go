package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/yungbote/fred-backend/internal/data/db"
	"github.com/yungbote/fred-backend/internal/data/repos"
	apphttp "github.com/yungbote/fred-backend/internal/http"
	"github.com/yungbote/fred-backend/internal/modules/resources"
	"github.com/yungbote/fred-backend/internal/observability"
	"github.com/yungbote/fred-backend/internal/platform/logger"
)

type App struct {
	Log      *logger.Logger
	DB       *gorm.DB
	Router   *gin.Engine
	Server   *apphttp.Server
	Cfg      Config
	Clients  Clients
	Repos    Repos
	Services Services

	pg           *db.PostgresService
	shutdownOTel func(context.Context) error
}

// NewLogger builds the process logger from the log section.
func NewLogger(cfg Config) (*logger.Logger, error) {
	log, err := logger.NewWithOptions(logger.Options{
		Mode:     cfg.Log.Mode,
		Level:    cfg.Log.Level,
		Redact:   cfg.Log.Redact,
		HashSalt: cfg.Log.HashSalt,
	})
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	return log, nil
}

// OpenDatabase connects and migrates the schema.
func OpenDatabase(log *logger.Logger, cfg Config) (*db.PostgresService, error) {
	pg, err := db.NewPostgresService(log, db.Config{
		URL:           cfg.Database.URL,
		Host:          cfg.Database.Host,
		Port:          cfg.Database.Port,
		User:          cfg.Database.User,
		Password:      cfg.Database.Password,
		Name:          cfg.Database.Name,
		SSLMode:       cfg.Database.SSLMode,
		MaxOpenConns:  cfg.Database.MaxOpenConns,
		MaxIdleConns:  cfg.Database.MaxIdleConns,
		SlowThreshold: cfg.Database.SlowThreshold,
	})
	if err != nil {
		return nil, fmt.Errorf("init database: %w", err)
	}
	if err := pg.AutoMigrateAll(); err != nil {
		_ = pg.Close()
		return nil, fmt.Errorf("automigrate: %w", err)
	}
	return pg, nil
}

// SeedResources upserts the built-in support catalog.
func SeedResources(ctx context.Context, log *logger.Logger, gdb *gorm.DB) (int, error) {
	catalog := resources.New(resources.UsecasesDeps{Log: log, Resources: repos.NewResourceRepo(gdb, log)})
	return catalog.SeedDefaults(ctx)
}

func New(ctx context.Context, log *logger.Logger, cfg Config) (*App, error) {
	a := &App{Log: log, Cfg: cfg}

	a.shutdownOTel = observability.InitOTel(ctx, log, observability.OtelConfig{
		Enabled:     cfg.OTel.Enabled,
		ServiceName: cfg.OTel.ServiceName,
		Environment: cfg.App.Environment,
		Version:     cfg.App.Version,
		Endpoint:    cfg.OTel.Endpoint,
		Headers:     observability.ParseHeaders(cfg.OTel.Headers),
		Insecure:    cfg.OTel.Insecure,
		SampleRatio: cfg.OTel.SampleRatio,
	})

	pg, err := OpenDatabase(log, cfg)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.pg = pg
	a.DB = pg.DB()

	clients, err := wireClients(ctx, log, cfg)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Clients = clients

	a.Repos = wireRepos(a.DB, log)
	serviceset, err := wireServices(log, cfg, a.Clients, a.Repos)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Services = serviceset

	if cfg.Resources.SeedOnStart {
		if _, err := a.Services.Resources.SeedDefaults(ctx); err != nil {
			a.Close()
			return nil, err
		}
	}

	handlerset := wireHandlers(log, a.Services, a.readinessProbes())
	middleware := wireMiddleware(log, a.Repos, a.Services)
	a.Router = wireRouter(log, cfg, handlerset, middleware)
	a.Server = apphttp.NewServer(log, a.Router, apphttp.ServerConfig{
		Addr:            cfg.HTTP.Addr,
		ReadTimeout:     cfg.HTTP.ReadTimeout,
		WriteTimeout:    cfg.HTTP.WriteTimeout,
		ShutdownTimeout: cfg.HTTP.ShutdownTimeout,
	})
	return a, nil
}

// Run serves HTTP and drains background tasks until ctx is cancelled or either side fails.
func (a *App) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return a.Services.Worker.Run(gctx) })
	g.Go(func() error { return a.Server.Run(gctx) })
	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (a *App) Close() {
	if a == nil {
		return
	}
	a.Clients.Close()
	if a.pg != nil {
		if err := a.pg.Close(); err != nil {
			a.Log.Warn("database close failed", "error", err)
		}
	}
	if a.shutdownOTel != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.shutdownOTel(ctx); err != nil {
			a.Log.Warn("otel shutdown failed", "error", err)
		}
	}
	a.Log.Sync()
}

package bootstrap

import (
	"context"
	"fmt"
	"github.com/ZertGraf/userboard/internal/api"
	"github.com/ZertGraf/userboard/internal/api/handler"
	"github.com/ZertGraf/userboard/internal/pkg/config"
	"github.com/ZertGraf/userboard/internal/pkg/logger"
	"github.com/ZertGraf/userboard/internal/pkg/postgres"
	"github.com/ZertGraf/userboard/internal/repository"
	"github.com/ZertGraf/userboard/internal/service"
	"github.com/ZertGraf/userboard/internal/ui"
	"github.com/ZertGraf/userboard/internal/upstream"
)

type Application struct {
	Config   *config.Config
	Logger   *logger.Logger
	Postgres *postgres.Connection
	Migrator *postgres.Migrator

	Upstream     *upstream.Client
	SnapshotRepo repository.SnapshotRepository

	Host *ui.Host

	PageHandler  *handler.PageHandler
	StateHandler *handler.StateHandler

	HTTPServer *api.HTTPServer
}

func New() (*Application, error) {
	cfg, err := config.New()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	log, err := logger.New(&logger.Config{
		Level:     cfg.LogLevel,
		Format:    cfg.LogFormat,
		AddSource: cfg.LogAddSource,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	client, err := upstream.New(&upstream.Config{
		URL:       cfg.UpstreamURL,
		Timeout:   cfg.UpstreamTimeout,
		UserAgent: cfg.UpstreamUserAgent,
	}, log)
	if err != nil {
		return nil, fmt.Errorf("failed to create upstream client: %w", err)
	}

	app := &Application{
		Config:   cfg,
		Logger:   log,
		Upstream: client,
	}

	if cfg.SnapshotStore == config.SnapshotStorePostgres {
		app.Postgres, err = postgres.New(log, cfg.Postgres())
		if err != nil {
			return nil, fmt.Errorf("failed to create postgres connection: %w", err)
		}
	}

	return app, nil
}

func (app *Application) Init(ctx context.Context) error {
	app.Logger.Info("initializing application")

	if err := app.initSnapshotStore(ctx); err != nil {
		return err
	}

	app.Host = ui.NewHost(ui.HostConfig{
		MountID:        app.Config.UIMountID,
		LoadingRefresh: app.Config.UILoadingRefresh,
	}, app.newUserList, app.Logger)

	// the one mount of the process; a skeleton without the mount element is fatal
	if err := app.Host.Mount(ctx); err != nil {
		return fmt.Errorf("failed to mount application: %w", err)
	}

	app.PageHandler = handler.NewPageHandler(app.Host, app.Logger)
	app.StateHandler = handler.NewStateHandler(app.Host, app.SnapshotRepo, app.Logger)

	serverConfig := &api.ServerConfig{
		Host:         app.Config.ServerHost,
		Port:         app.Config.ServerPort,
		ReadTimeout:  app.Config.ServerReadTimeout,
		WriteTimeout: app.Config.ServerWriteTimeout,
		IdleTimeout:  app.Config.ServerIdleTimeout,
	}

	app.HTTPServer = api.NewHTTPServer(
		serverConfig,
		app.PageHandler,
		app.StateHandler,
		app.Health,
		app.Logger,
	)

	if err := app.HTTPServer.Start(ctx); err != nil {
		return fmt.Errorf("failed to start http server: %w", err)
	}

	app.Logger.Info("application initialized successfully")
	return nil
}

func (app *Application) initSnapshotStore(ctx context.Context) error {
	if app.Postgres == nil {
		app.SnapshotRepo = repository.NewMemorySnapshotRepo()
		app.Logger.Info("using in-memory snapshot store")
		return nil
	}

	if err := app.Postgres.Connect(ctx); err != nil {
		return fmt.Errorf("postgres connection failed: %w", err)
	}

	app.Migrator = postgres.NewMigrator(app.Postgres.Pool(), &postgres.MigrationConfig{
		Timeout:   app.Config.DatabaseMigrationTimeout,
		TableName: app.Config.DatabaseMigrationTable,
		Enabled:   app.Config.DatabaseMigrationEnabled,
	}, app.Logger)

	if err := app.Migrator.RunMigrations(ctx); err != nil {
		return fmt.Errorf("database migrations failed: %w", err)
	}

	app.SnapshotRepo = repository.NewUserSnapshotRepo(app.Postgres.Pool(), app.Logger)
	return nil
}

// newUserList builds the component for one mount of the application.
func (app *Application) newUserList() ui.Component {
	var opts []service.Option
	if app.Config.ScopedRetry() {
		opts = append(opts, service.WithScopedRefetch())
	}
	return service.NewUserList(app.Upstream, app.SnapshotRepo, app.Logger, opts...)
}

func (app *Application) Shutdown(ctx context.Context) error {
	app.Logger.Info("shutting down application")

	if app.HTTPServer != nil {
		if err := app.HTTPServer.Stop(ctx); err != nil {
			app.Logger.Error("error stopping http server", "error", err)
		}
	}

	if app.Host != nil {
		app.Host.Unmount()
	}

	if app.Postgres != nil {
		app.Postgres.Close()
	}

	app.Logger.Info("application shutdown completed")
	return nil
}

func (app *Application) Health(ctx context.Context) error {
	if app.Postgres == nil {
		return nil
	}
	if err := app.Postgres.Health(ctx); err != nil {
		return fmt.Errorf("postgres health check failed: %w", err)
	}
	if err := app.Migrator.Health(ctx); err != nil {
		return fmt.Errorf("migrator health check failed: %w", err)
	}
	return nil
}

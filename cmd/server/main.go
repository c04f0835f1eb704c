package main

import (
	"context"
	"fmt"
	"github.com/ZertGraf/userboard/internal/bootstrap"
	goversion "github.com/caarlos0/go-version"
	"os"
	"os/signal"
	"syscall"
	"time"
)

// set by -ldflags at release time
var (
	version   = "0.1.0"
	commit    = ""
	treeState = ""
	date      = ""
	builtBy   = ""
)

func main() {
	// create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// initialize application
	app, err := bootstrap.New()
	if err != nil {
		fmt.Printf("failed to initialize application: %v\n", err)
		os.Exit(1)
	}

	// mount the page and start serving
	if err = app.Init(ctx); err != nil {
		app.Logger.Error("failed to start application", "error", err)
		os.Exit(1)
	}

	// setup graceful shutdown handling
	setupGracefulShutdown(ctx, cancel, app)

	info := buildVersion()
	app.Logger.Info("userboard service started",
		"version", info.GitVersion,
		"commit", info.GitCommit,
		"go_version", info.GoVersion,
		"environment", app.Config.Environment,
		"log_level", app.Config.LogLevel,
		"retry_mode", app.Config.UIRetryMode,
		"snapshot_store", app.Config.SnapshotStore)

	// wait for shutdown signal
	<-ctx.Done()
	app.Logger.Info("received shutdown signal, initiating graceful shutdown")

	// graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	// shutdown application components
	if err = app.Shutdown(shutdownCtx); err != nil {
		app.Logger.Error("application shutdown failed", "error", err)
		os.Exit(1)
	}

	app.Logger.Info("service stopped gracefully")
}

func buildVersion() goversion.Info {
	return goversion.GetVersionInfo(
		goversion.WithAppDetails("userboard", "Renders the demo users API as a table", ""),
		func(i *goversion.Info) {
			if version != "" {
				i.GitVersion = version
			}
			if commit != "" {
				i.GitCommit = commit
			}
			if treeState != "" {
				i.GitTreeState = treeState
			}
			if date != "" {
				i.BuildDate = date
			}
			if builtBy != "" {
				i.BuiltBy = builtBy
			}
		},
	)
}

// setupGracefulShutdown configures signal handling for clean shutdown
func setupGracefulShutdown(ctx context.Context, cancel context.CancelFunc, app *bootstrap.Application) {
	// channel for receiving os signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		select {
		case sig := <-sigChan:
			app.Logger.Info("received shutdown signal", "signal", sig.String())
			// cancel main context to initiate shutdown
			cancel()
		case <-ctx.Done():
			// context already cancelled
		}
	}()
}

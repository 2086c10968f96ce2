// Package main provides the entry point for the Smart Bundles server.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/samber/do/v2"

	"github.com/smartbundles/bundles-server/internal/di"
	"github.com/smartbundles/bundles-server/internal/logger"
)

func main() {
	injector := di.NewContainer()

	log, err := do.Invoke[*logger.Logger](injector)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	if err := di.Bootstrap(injector); err != nil {
		_ = injector.Shutdown()
		log.Fatal("Failed to bootstrap server", "error", err)
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server gracefully...")

	// The container shuts services down in reverse dependency order: the
	// HTTP server first, then clients, the index, the cache and the database.
	if report := injector.Shutdown(); !report.Succeed {
		log.WithError(report).Error("Shutdown error")
	}

	log.Info("Server stopped")
}

package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/akashx/akashx/app/indexer"
	"go.uber.org/zap"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	app, err := indexer.Initialize(ctx, indexer.LoadConfig())
	if err != nil {
		panic(err)
	}

	if err := app.RebuildIfRequested(ctx); err != nil {
		app.Logger.Error("Rebuild failed, continuing with regular sync", zap.Error(err))
	}

	if err := app.SetupScheduler(ctx); err != nil {
		app.Logger.Fatal("Unable to schedule sync", zap.Error(err))
	}
	app.SetupServer()

	app.Start(ctx)
}

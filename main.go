package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/locvowork/conductores_admin/internal/bootstrap"
	"github.com/locvowork/conductores_admin/internal/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := bootstrap.NewApp()
	if err := app.Initialize(ctx); err != nil {
		logger.ErrorLog(ctx, "Failed to initialize application", err)
		panic(err)
	}

	if err := app.Run(ctx); err != nil {
		logger.ErrorLog(ctx, "Server stopped", err)
		os.Exit(1)
	}
}

package main

import (
	"context"
	"log"
	"os"

	"github.com/dmitrijs2005/tenantdrive/internal/logging"
	"github.com/dmitrijs2005/tenantdrive/internal/server"
	"github.com/dmitrijs2005/tenantdrive/internal/server/config"
)

func main() {

	ctx := context.Background()
	cfg := config.LoadConfig()
	logger := logging.NewJSON(os.Stdout, cfg.LogLevel)

	app, err := server.NewApp(ctx, cfg, logger)
	if err != nil {
		log.Printf("%v", err)
		os.Exit(1)
	}
	defer app.Close()

	if err := app.Run(ctx); err != nil {
		logger.Error(ctx, "app failed", "error", err)
	}

}

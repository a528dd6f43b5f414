package main

import (
	"context"
	"log"
	"log/slog"
	"os"

	"github.com/dmitrijs2005/pcpboard/internal/admin/cli"
	"github.com/dmitrijs2005/pcpboard/internal/logging"
	"github.com/dmitrijs2005/pcpboard/internal/server/config"
	"github.com/dmitrijs2005/pcpboard/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/pcpboard/internal/server/services"
)

func main() {

	ctx := context.Background()

	if err := config.LoadDotenv(); err != nil {
		log.Fatalf("%v", err)
	}
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("%v", err)
	}
	opts, err := cli.ParseArgs(os.Args[1:])
	if err != nil {
		log.Fatalf("%v", err)
	}

	db, err := repomanager.OpenPostgres(ctx, cfg.DatabaseDSN)
	if err != nil {
		log.Fatalf("db init error: %v", err)
	}
	defer db.Close()

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		log.Fatalf("migrations failed: %v", err)
	}

	logger := logging.NewJSONLogger(os.Stderr, slog.LevelWarn)
	us := services.NewUserService(db, rm, services.NewTokenService(db, rm, logger, cfg.TokenTTL), logger)

	if err := cli.NewApp(us, os.Stdin, os.Stdout).Run(ctx, opts); err != nil {
		db.Close()
		log.Fatalf("%v", err)
	}

}

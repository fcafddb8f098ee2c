package main

import (
	"context"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/dearher/bagstore/internal/infrastructure/store"
	"github.com/dearher/bagstore/internal/observability/logger"
)

func main() {
	_ = godotenv.Load()

	databaseURL := pflag.String("database-url", os.Getenv("DATABASE_URL"), "PostgreSQL connection string")
	logLevel := pflag.String("log-level", "info", "log level")
	pflag.Parse()

	log, err := logger.New(logger.Config{Level: *logLevel, Format: "console"})
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	if *databaseURL == "" {
		log.Fatal("DATABASE_URL or --database-url is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := store.ConnectPostgres(ctx, *databaseURL)
	if err != nil {
		log.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer db.Close()

	if err := store.Migrate(db, log); err != nil {
		log.Fatal("migration failed", zap.Error(err))
	}
}

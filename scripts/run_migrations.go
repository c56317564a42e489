package main

import (
	"context"
	"os"

	"go.uber.org/zap"

	"github.com/safar/techshop-orders/internal/config"
	"github.com/safar/techshop-orders/internal/database"
	"github.com/safar/techshop-orders/internal/logging"
)

func main() {
	logger, err := logging.New(os.Getenv("LOG_LEVEL"))
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	if len(os.Args) < 2 {
		logger.Fatal("usage: go run scripts/run_migrations.go [up|down]")
	}

	direction := database.Direction(os.Args[1])
	if direction != database.Up && direction != database.Down {
		logger.Fatal("direction must be 'up' or 'down'", zap.String("direction", os.Args[1]))
	}

	dbCfg, err := config.LoadDatabase()
	if err != nil {
		logger.Fatal("load database config", zap.Error(err))
	}
	db, err := database.NewConnection(&dbCfg)
	if err != nil {
		logger.Fatal("connect to database", zap.Error(err))
	}
	defer db.Close()

	dir := "migrations"
	files, err := database.MigrationFiles(dir, direction, 0)
	if err != nil {
		logger.Fatal("list migrations", zap.Error(err))
	}
	for _, name := range files {
		logger.Info("running migration", zap.String("file", name))
	}

	ran, err := database.Migrate(context.Background(), db, dir, direction, 0)
	if err != nil {
		logger.Fatal("migration failed", zap.Strings("applied", ran), zap.Error(err))
	}

	logger.Info("migrations complete", zap.Int("count", len(ran)), zap.String("direction", string(direction)))
}

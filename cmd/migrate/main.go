package main

import (
	"context"
	"database/sql"
	"flag"
	"os"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/patitas/patitas-backend/internal/config"
	"github.com/patitas/patitas-backend/internal/log"
)

func main() {
	dir := flag.String("dir", "sql", "directory with migration files")
	command := flag.String("command", "up", "goose command (up, down, status, version)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger, err := log.NewSugar(cfg.Env)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	database, err := sql.Open("pgx", cfg.Database.PostgresDSN)
	if err != nil {
		logger.Fatalw("Database open failed", "error", err)
	}
	defer database.Close()

	ctx := context.Background()
	if err := database.PingContext(ctx); err != nil {
		logger.Fatalw("Database unreachable", "error", err)
	}

	if err := goose.SetDialect("postgres"); err != nil {
		logger.Fatalw("Goose dialect setup failed", "error", err)
	}

	if err := goose.RunContext(ctx, *command, database, *dir, flag.Args()...); err != nil {
		logger.Errorw("Migration failed", "command", *command, "error", err)
		os.Exit(1)
	}

	logger.Infow("Migrations applied", "command", *command, "dir", *dir)
}

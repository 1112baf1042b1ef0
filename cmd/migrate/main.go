package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/ayo6706/cashdesk/internal/config"
	"github.com/ayo6706/cashdesk/internal/db"
)

func main() {
	down := flag.Bool("down", false, "roll back the most recent migration instead of applying all")
	flag.Parse()

	if err := run(*down); err != nil {
		fmt.Fprintf(os.Stderr, "migrate: %v\n", err)
		os.Exit(1)
	}
}

func run(down bool) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	pool, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()

	if down {
		return db.RollbackMigration(pool)
	}
	return db.RunMigrations(pool)
}

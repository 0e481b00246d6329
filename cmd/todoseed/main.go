package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"todolist/internal/config"
	"todolist/internal/repository"
	"todolist/internal/seed"
)

func main() {
	configPath := flag.String("config", "", "path to a config file")
	file := flag.String("file", "", "seed file to load instead of the built-in demo data")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	db, err := repository.NewDB(cfg.DatabaseDriver, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	sqlDB, err := db.DB()
	if err == nil {
		defer sqlDB.Close()
	}

	data := seed.Default()
	if *file != "" {
		raw, err := os.ReadFile(*file)
		if err != nil {
			log.Fatalf("read seed file: %v", err)
		}
		if data, err = seed.Parse(raw); err != nil {
			log.Fatalf("%v", err)
		}
	}

	if _, err := seed.Run(ctx, repository.NewTodoRepository(db), data, time.Now()); err != nil {
		log.Fatalf("%v", err)
	}
}

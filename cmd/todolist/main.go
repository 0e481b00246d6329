package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"todolist/internal/bot"
	"todolist/internal/config"
	"todolist/internal/httpapi"
	"todolist/internal/repository"
	"todolist/internal/seed"
	"todolist/internal/service"
	"todolist/internal/validation"
)

func main() {
	configPath := flag.String("config", "", "path to a config file")
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

	todoRepo := repository.NewTodoRepository(db)
	subscriberRepo := repository.NewSubscriberRepository(db)

	validator := validation.New()
	todoSvc := service.NewTodoService(todoRepo, validator)
	reportSvc := service.NewReportService(todoSvc)

	if cfg.Seed {
		if _, err := seed.Run(ctx, todoRepo, seed.Default(), time.Now()); err != nil {
			log.Fatalf("seed: %v", err)
		}
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           httpapi.NewRouter(todoSvc, log.New(os.Stdout, "", 0)),
		ReadHeaderTimeout: 10 * time.Second,
	}
	serverErr := make(chan error, 1)
	go func() {
		log.Printf("[info] http listening on %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	if cfg.BotEnabled() {
		telegramBot, err := bot.New(cfg.TelegramToken, todoSvc, validator, subscriberRepo, reportSvc)
		if err != nil {
			log.Fatalf("bot: %v", err)
		}

		scheduler := service.NewSchedulerService(time.Local)
		if _, err := scheduler.Schedule(cfg.ReportDailyAt, cfg.ReportInterval, "report", func() {
			jobCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := telegramBot.SendReports(jobCtx); err != nil && !errors.Is(err, context.Canceled) {
				log.Printf("report: %v", err)
			}
		}); err != nil && !errors.Is(err, service.ErrNoSchedule) {
			log.Fatalf("schedule reports: %v", err)
		}
		scheduler.Start()
		defer scheduler.Stop()

		go func() {
			if err := telegramBot.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Printf("bot stopped with error: %v", err)
			}
		}()
	} else {
		log.Println("[info] TELEGRAM_TOKEN not set, bot disabled")
	}

	log.Println("Todo list server started.")
	select {
	case <-ctx.Done():
	case err, ok := <-serverErr:
		if ok {
			log.Printf("http: %v", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("http shutdown: %v", err)
	}
	log.Println("Shutdown complete.")
}

package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/LarryDahl/TODOv2/internal/bot"
	"github.com/LarryDahl/TODOv2/internal/clock"
	"github.com/LarryDahl/TODOv2/internal/config"
	"github.com/LarryDahl/TODOv2/internal/repository"
	"github.com/LarryDahl/TODOv2/internal/service"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	db, err := repository.NewDB(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	sqlDB, err := db.DB()
	if err == nil {
		defer sqlDB.Close()
	}

	clk := clock.System{}

	userRepo := repository.NewUserRepository(db)
	categoryRepo := repository.NewCategoryRepository(db)
	taskRepo := repository.NewTaskRepository(db)
	projectRepo := repository.NewProjectRepository(db)
	jobRepo := repository.NewJobRepository(db)
	statsRepo := repository.NewStatsRepository(db)

	categorySvc := service.NewCategoryService(categoryRepo)
	taskSvc := service.NewTaskService(taskRepo, categoryRepo, clk)
	projectSvc := service.NewProjectService(projectRepo, clk)
	jobSvc := service.NewJobService(jobRepo, clk, cfg.JobMaxAttempts)
	digestSvc := service.NewDigestService(taskRepo, categoryRepo, jobRepo, clk)
	statsSvc := service.NewStatsService(statsRepo, clk)

	telegramBot, err := bot.New(cfg.TelegramToken, userRepo, categorySvc, taskSvc, projectSvc, jobSvc, digestSvc, statsSvc, clk)
	if err != nil {
		log.Fatalf("bot: %v", err)
	}
	telegramBot.RegisterRunners()

	scheduler := service.NewSchedulerService(time.Local)

	if _, err := scheduler.ScheduleInterval(cfg.PollInterval, func() {
		tickCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		jobSvc.Tick(tickCtx)
	}); err != nil {
		log.Fatalf("schedule job polling: %v", err)
	}

	sendDigests := func() {
		digestCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := telegramBot.SendDailyReports(digestCtx); err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("digest: %v", err)
		}
	}
	if cfg.DigestTime != "" {
		if _, err := scheduler.ScheduleDaily(cfg.DigestTime, sendDigests); err != nil {
			log.Fatalf("schedule digests: %v", err)
		}
	} else {
		if _, err := scheduler.ScheduleInterval(cfg.DigestInterval, sendDigests); err != nil {
			log.Fatalf("schedule digests: %v", err)
		}
	}

	scheduler.Start()
	defer scheduler.Stop()

	log.Println("Task bot started.")
	if err := telegramBot.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("bot stopped with error: %v", err)
	}
	log.Println("Shutdown complete.")
}

package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"

	"github.com/memalihaider/ai-business-developer-sub004/config"
	"github.com/memalihaider/ai-business-developer-sub004/middleware"
	"github.com/memalihaider/ai-business-developer-sub004/routes"
	"github.com/memalihaider/ai-business-developer-sub004/utils"
	"github.com/memalihaider/ai-business-developer-sub004/worker"
)

func main() {
	// Initialize logger
	logger := log.New(os.Stdout, "SCHEDULER: ", log.Ldate|log.Ltime|log.Lshortfile)

	// Load configuration
	if err := config.LoadConfig(); err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize error reporting
	if err := utils.InitSentry(config.AppConfig.SentryDSN, config.AppConfig.Environment); err != nil {
		logger.Printf("Failed to initialize Sentry: %v", err)
	}

	// Initialize database connection
	if err := config.ConnectDB(); err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer func() {
		if err := config.CloseDB(); err != nil {
			logger.Printf("Failed to close database: %v", err)
		}
	}()

	// Create Fiber app
	app := fiber.New()

	// Add CORS middleware
	app.Use(middleware.CORS())

	// Build the scheduler with its mailer and queue admin
	mailer := utils.NewSMTPMailer(
		config.AppConfig.SMTPHost,
		config.AppConfig.SMTPPort,
		config.AppConfig.SMTPUsername,
		config.AppConfig.SMTPPassword,
		config.AppConfig.FromEmail,
		config.AppConfig.FromName,
	)
	scheduler := worker.NewSequenceScheduler(config.DB, mailer, config.AppConfig.Scheduler, config.AppConfig.BaseURL, logger)
	admin := worker.NewQueueAdmin(config.DB, logger)

	// Start the background worker that ticks the scheduler
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if config.AppConfig.Scheduler.WorkerEnabled {
		schedulerWorker := worker.NewSchedulerWorker(scheduler, config.AppConfig.Scheduler.WorkerInterval, log.New(os.Stdout, "WORKER: ", log.LstdFlags))
		go schedulerWorker.Start(ctx)
	}

	// Setup routes
	routes.SetupRoutes(app, config.DB, scheduler, admin)

	// Shutdown cleanly on SIGINT/SIGTERM
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		logger.Println("Shutting down...")
		cancel()
		if err := app.Shutdown(); err != nil {
			logger.Printf("Failed to shut down server: %v", err)
		}
	}()

	// Start server
	logger.Printf("Server starting on port %s", config.AppConfig.ServerPort)
	if err := app.Listen(":" + config.AppConfig.ServerPort); err != nil {
		logger.Fatalf("Failed to start server: %v", err)
	}
}

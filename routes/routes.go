package routes

import (
	"log"
	"os"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"gorm.io/gorm"

	controller "github.com/memalihaider/ai-business-developer-sub004/controllers"
	"github.com/memalihaider/ai-business-developer-sub004/middleware"
	"github.com/memalihaider/ai-business-developer-sub004/worker"
)

func SetupRoutes(app *fiber.App, db *gorm.DB, scheduler *worker.SequenceScheduler, admin *worker.QueueAdmin) {
	// Initialize controllers with their respective loggers
	schedulerController := controller.NewSchedulerController(db, scheduler, admin, log.New(os.Stdout, "SCHEDULER: ", log.LstdFlags))
	contactController := controller.NewContactController(db, log.New(os.Stdout, "CONTACT: ", log.LstdFlags))
	sequenceController := controller.NewSequenceController(db, log.New(os.Stdout, "SEQUENCE: ", log.LstdFlags))
	trackingController := controller.NewTrackingController(db, log.New(os.Stdout, "TRACKING: ", log.LstdFlags))

	// Health check endpoint
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	// Public endpoints referenced from outgoing emails
	app.Get("/unsubscribe/:token", contactController.HandleUnsubscribe)
	app.Get("/track/open/:messageID", trackingController.HandleOpenTracking)

	// API group with versioning
	api := app.Group("/api/v1", logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))

	// Scheduler trigger surface, guarded by the cron secret and rate limited
	schedulerRoutes := api.Group("/scheduler", middleware.CronAuth(), middleware.SchedulerRateLimiter())
	schedulerRoutes.Get("/", schedulerController.HandleGet)
	schedulerRoutes.Post("/", schedulerController.HandlePost)
	schedulerRoutes.Put("/", schedulerController.HandlePut)

	// Contact routes
	contact := api.Group("/contacts")
	contact.Post("/", contactController.CreateContact)
	contact.Get("/", contactController.GetContacts)
	contact.Get("/:id", contactController.GetContact)
	contact.Put("/:id", contactController.UpdateContact)
	contact.Delete("/:id", contactController.DeleteContact)

	// Sequence routes
	sequence := api.Group("/sequences")
	sequence.Post("/", sequenceController.CreateSequence)
	sequence.Get("/", sequenceController.GetSequences)
	sequence.Get("/:id", sequenceController.GetSequence)
	sequence.Put("/:id", sequenceController.UpdateSequence)
	sequence.Delete("/:id", sequenceController.DeleteSequence)
	sequence.Post("/:id/enroll", sequenceController.EnrollContact)

	// Setup 404 handler
	app.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error":   "Not Found",
			"message": "The requested resource was not found",
		})
	})

	log.Println("API routes initialized successfully")
}

package controller

import (
	"errors"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/memalihaider/ai-business-developer-sub004/models"
	"github.com/memalihaider/ai-business-developer-sub004/utils"
	"github.com/memalihaider/ai-business-developer-sub004/worker"
)

type SchedulerController struct {
	DB        *gorm.DB
	Scheduler *worker.SequenceScheduler
	Admin     *worker.QueueAdmin
	Logger    *log.Logger
}

func NewSchedulerController(db *gorm.DB, scheduler *worker.SequenceScheduler, admin *worker.QueueAdmin, logger *log.Logger) *SchedulerController {
	return &SchedulerController{
		DB:        db,
		Scheduler: scheduler,
		Admin:     admin,
		Logger:    logger,
	}
}

// HandleGet serves scheduler diagnostics: ?action=pending lists due-soon
// queued sends, ?action=runs lists recent run log entries (optionally
// filtered by sequence_id), and no action returns the summary counters.
func (sc *SchedulerController) HandleGet(c *fiber.Ctx) error {
	switch c.Query("action") {
	case "pending":
		return sc.listPending(c)
	case "runs":
		return sc.listRuns(c)
	default:
		return sc.summary(c)
	}
}

func (sc *SchedulerController) listPending(c *fiber.Ctx) error {
	var pending []models.ScheduledEmail
	if err := sc.DB.
		Where("status = ? AND scheduled_at <= ?", models.ScheduledEmailStatusPending, time.Now().Add(24*time.Hour)).
		Order("scheduled_at ASC, id ASC").
		Limit(100).
		Find(&pending).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch pending emails", err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"pending": pending,
	})
}

func (sc *SchedulerController) listRuns(c *fiber.Ctx) error {
	query := sc.DB.Order("executed_at DESC").Limit(50)
	if sequenceID := c.Query("sequence_id"); sequenceID != "" {
		query = query.Where("sequence_id = ?", utils.ParseUint(sequenceID))
	}

	var runs []models.SequenceRun
	if err := query.Find(&runs).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch sequence runs", err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"runs":    runs,
	})
}

func (sc *SchedulerController) summary(c *fiber.Ctx) error {
	var pendingCount, activeSequences, sentLast24h int64

	if err := sc.DB.Model(&models.ScheduledEmail{}).
		Where("status = ?", models.ScheduledEmailStatusPending).
		Count(&pendingCount).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to compute summary", err)
	}
	if err := sc.DB.Model(&models.Sequence{}).
		Where("status = ?", "active").
		Count(&activeSequences).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to compute summary", err)
	}
	if err := sc.DB.Model(&models.ScheduledEmail{}).
		Where("status = ? AND sent_at >= ?", models.ScheduledEmailStatusSent, time.Now().Add(-24*time.Hour)).
		Count(&sentLast24h).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to compute summary", err)
	}

	return c.JSON(fiber.Map{
		"success":          true,
		"pending_count":    pendingCount,
		"active_sequences": activeSequences,
		"sent_last_24h":    sentLast24h,
	})
}

// HandlePost triggers scheduler actions: {action:"process"} runs one batch
// synchronously, {action:"schedule_email"} enqueues one send.
func (sc *SchedulerController) HandlePost(c *fiber.Ctx) error {
	var input struct {
		Action       string `json:"action"`
		SequenceID   uint   `json:"sequence_id"`
		ContactID    uint   `json:"contact_id"`
		StepID       uint   `json:"step_id"`
		DelayInHours *int   `json:"delay_in_hours"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}

	switch input.Action {
	case "process":
		summary, err := sc.Scheduler.ProcessDueSends()
		if err != nil {
			utils.LogError("scheduler_process_failed", err, nil)
			return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to process due sends", err)
		}
		return c.JSON(fiber.Map{
			"success":   true,
			"processed": summary.Processed,
			"sent":      summary.Sent,
			"failed":    summary.Failed,
		})

	case "schedule_email":
		if input.SequenceID == 0 || input.ContactID == 0 || input.StepID == 0 {
			return utils.ErrorResponse(c, fiber.StatusBadRequest, "sequence_id, contact_id and step_id are required", nil)
		}

		scheduled, err := sc.Scheduler.ScheduleStep(input.SequenceID, input.ContactID, input.StepID, input.DelayInHours)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.ErrorResponse(c, fiber.StatusNotFound, "Sequence, contact or step not found", nil)
		}
		if err != nil {
			return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to schedule email", err)
		}

		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"success":         true,
			"scheduled_email": scheduled,
		})

	default:
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Unknown action", nil)
	}
}

// HandlePut applies operator mutations to one queued send: reschedule or
// cancel.
func (sc *SchedulerController) HandlePut(c *fiber.Ctx) error {
	var input struct {
		ScheduledEmailID uint   `json:"scheduled_email_id"`
		Action           string `json:"action"`
		NewScheduledAt   string `json:"new_scheduled_at"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if input.ScheduledEmailID == 0 {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "scheduled_email_id is required", nil)
	}

	switch input.Action {
	case "reschedule":
		if input.NewScheduledAt == "" {
			return utils.ErrorResponse(c, fiber.StatusBadRequest, "new_scheduled_at is required", nil)
		}
		newScheduledAt, err := time.Parse(time.RFC3339, input.NewScheduledAt)
		if err != nil {
			return utils.ErrorResponse(c, fiber.StatusBadRequest, "new_scheduled_at must be RFC3339", err)
		}

		scheduled, err := sc.Admin.Reschedule(input.ScheduledEmailID, newScheduledAt)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.ErrorResponse(c, fiber.StatusNotFound, "Scheduled email not found", nil)
		}
		if err != nil {
			return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to reschedule email", err)
		}
		return c.JSON(fiber.Map{
			"success":         true,
			"scheduled_email": scheduled,
		})

	case "cancel":
		scheduled, err := sc.Admin.Cancel(input.ScheduledEmailID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.ErrorResponse(c, fiber.StatusNotFound, "Scheduled email not found", nil)
		}
		if err != nil {
			return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to cancel email", err)
		}
		return c.JSON(fiber.Map{
			"success":         true,
			"scheduled_email": scheduled,
		})

	default:
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Unknown action", nil)
	}
}

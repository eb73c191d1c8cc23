package controller

import (
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/memalihaider/ai-business-developer-sub004/models"
	"github.com/memalihaider/ai-business-developer-sub004/utils"
)

type SequenceController struct {
	DB     *gorm.DB
	Logger *log.Logger
}

func NewSequenceController(db *gorm.DB, logger *log.Logger) *SequenceController {
	return &SequenceController{
		DB:     db,
		Logger: logger,
	}
}

type sequenceStepInput struct {
	StepOrder  int    `json:"step_order" validate:"required,min=1"`
	Subject    string `json:"subject" validate:"omitempty,max=500"`
	Body       string `json:"body" validate:"required"`
	DelayHours int    `json:"delay_hours" validate:"gte=0"`
}

// CreateSequence creates a sequence together with its ordered steps
func (sc *SequenceController) CreateSequence(c *fiber.Ctx) error {
	var input struct {
		Name        string              `json:"name" validate:"required,max=200"`
		Description string              `json:"description"`
		UserID      uint                `json:"user_id"`
		Steps       []sequenceStepInput `json:"steps" validate:"required,min=1,dive"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", err)
	}

	// Step orders must be unique within the sequence
	seen := make(map[int]bool, len(input.Steps))
	for _, step := range input.Steps {
		if seen[step.StepOrder] {
			return utils.ErrorResponse(c, fiber.StatusBadRequest, "Duplicate step order", nil)
		}
		seen[step.StepOrder] = true
	}

	sequence := models.Sequence{
		Name:        input.Name,
		Description: input.Description,
		UserID:      input.UserID,
		Status:      "draft",
	}
	for _, step := range input.Steps {
		sequence.Steps = append(sequence.Steps, models.SequenceStep{
			StepOrder:  step.StepOrder,
			Subject:    step.Subject,
			Body:       step.Body,
			DelayHours: step.DelayHours,
		})
	}

	if err := sc.DB.Create(&sequence).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to create sequence", err)
	}

	return c.Status(fiber.StatusCreated).JSON(utils.SuccessResponse(sequence))
}

// GetSequences lists sequences
func (sc *SequenceController) GetSequences(c *fiber.Ctx) error {
	query := sc.DB.Model(&models.Sequence{})
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}
	if userID := c.Query("user_id"); userID != "" {
		query = query.Where("user_id = ?", utils.ParseUint(userID))
	}

	var sequences []models.Sequence
	if err := query.Preload("Steps", func(db *gorm.DB) *gorm.DB {
		return db.Order("step_order ASC")
	}).Order("created_at DESC").Find(&sequences).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch sequences", err)
	}

	return c.JSON(utils.SuccessResponse(sequences))
}

// GetSequence returns one sequence with its steps in order
func (sc *SequenceController) GetSequence(c *fiber.Ctx) error {
	var sequence models.Sequence
	if err := sc.DB.Preload("Steps", func(db *gorm.DB) *gorm.DB {
		return db.Order("step_order ASC")
	}).First(&sequence, c.Params("id")).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Sequence not found", nil)
	}
	return c.JSON(utils.SuccessResponse(sequence))
}

// UpdateSequence updates sequence metadata and status
func (sc *SequenceController) UpdateSequence(c *fiber.Ctx) error {
	var sequence models.Sequence
	if err := sc.DB.First(&sequence, c.Params("id")).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Sequence not found", nil)
	}

	var input struct {
		Name        *string `json:"name"`
		Description *string `json:"description"`
		Status      *string `json:"status" validate:"omitempty,oneof=draft active paused"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", err)
	}

	updates := map[string]interface{}{}
	if input.Name != nil {
		updates["name"] = *input.Name
	}
	if input.Description != nil {
		updates["description"] = *input.Description
	}
	if input.Status != nil {
		updates["status"] = *input.Status
	}

	if len(updates) > 0 {
		if err := sc.DB.Model(&sequence).Updates(updates).Error; err != nil {
			return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to update sequence", err)
		}
	}

	return c.JSON(utils.SuccessResponse(sequence))
}

// DeleteSequence soft-deletes a sequence and its steps
func (sc *SequenceController) DeleteSequence(c *fiber.Ctx) error {
	var sequence models.Sequence
	if err := sc.DB.First(&sequence, c.Params("id")).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Sequence not found", nil)
	}

	if err := sc.DB.Where("sequence_id = ?", sequence.ID).Delete(&models.SequenceStep{}).Error; err != nil {
		sc.Logger.Printf("Failed to delete steps for sequence %d: %v", sequence.ID, err)
	}
	if err := sc.DB.Delete(&sequence).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to delete sequence", err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Sequence deleted successfully",
	})
}

// EnrollContact starts the sequence for one contact by scheduling its first
// step. The contact's status is checked at send time, not here.
func (sc *SequenceController) EnrollContact(c *fiber.Ctx) error {
	var sequence models.Sequence
	if err := sc.DB.First(&sequence, c.Params("id")).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Sequence not found", nil)
	}

	var input struct {
		ContactID uint `json:"contact_id" validate:"required"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", err)
	}

	var contact models.Contact
	if err := sc.DB.First(&contact, input.ContactID).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Contact not found", nil)
	}

	var firstStep models.SequenceStep
	if err := sc.DB.Where("sequence_id = ?", sequence.ID).
		Order("step_order ASC").
		First(&firstStep).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Sequence has no steps", nil)
	}

	scheduled := models.ScheduledEmail{
		SequenceID:  sequence.ID,
		StepID:      firstStep.ID,
		ContactID:   contact.ID,
		ScheduledAt: time.Now().Add(time.Duration(firstStep.DelayHours) * time.Hour),
		Status:      models.ScheduledEmailStatusPending,
	}
	if err := sc.DB.Create(&scheduled).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to enroll contact", err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success":         true,
		"scheduled_email": scheduled,
	})
}

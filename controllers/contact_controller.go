package controller

import (
	"log"
	"strconv"
	"strings"

	"github.com/badoux/checkmail"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/memalihaider/ai-business-developer-sub004/models"
	"github.com/memalihaider/ai-business-developer-sub004/utils"
)

type ContactController struct {
	DB     *gorm.DB
	Logger *log.Logger
}

func NewContactController(db *gorm.DB, logger *log.Logger) *ContactController {
	return &ContactController{
		DB:     db,
		Logger: logger,
	}
}

// CreateContact creates a new contact with validation
func (cc *ContactController) CreateContact(c *fiber.Ctx) error {
	var input struct {
		Email        string            `json:"email" validate:"required,email"`
		FirstName    string            `json:"first_name" validate:"omitempty,max=100"`
		LastName     string            `json:"last_name" validate:"omitempty,max=100"`
		Company      string            `json:"company" validate:"omitempty,max=200"`
		Position     string            `json:"position" validate:"omitempty,max=200"`
		Phone        string            `json:"phone" validate:"omitempty,max=50"`
		Source       string            `json:"source"`
		UserID       uint              `json:"user_id"`
		CustomFields map[string]string `json:"custom_fields"`
	}

	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", err)
	}
	if err := checkmail.ValidateFormat(input.Email); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid email address", err)
	}

	// Check if contact already exists
	var existing models.Contact
	if err := cc.DB.Where("email = ?", strings.ToLower(input.Email)).First(&existing).Error; err == nil {
		return utils.ErrorResponse(c, fiber.StatusConflict, "Contact with this email already exists", nil)
	}

	contact := models.Contact{
		Email:            strings.ToLower(input.Email),
		FirstName:        input.FirstName,
		LastName:         input.LastName,
		Company:          input.Company,
		Position:         input.Position,
		Phone:            input.Phone,
		Source:           input.Source,
		UserID:           input.UserID,
		Status:           models.ContactStatusActive,
		UnsubscribeToken: uuid.New().String(),
		CustomFields:     convertCustomFields(input.CustomFields),
	}

	if err := cc.DB.Create(&contact).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to create contact", err)
	}

	return c.Status(fiber.StatusCreated).JSON(utils.SuccessResponse(contact))
}

// Helper function to convert custom fields
func convertCustomFields(fields map[string]string) []models.ContactCustomField {
	var result []models.ContactCustomField
	for name, value := range fields {
		result = append(result, models.ContactCustomField{
			Name:  name,
			Value: value,
		})
	}
	return result
}

// GetContacts returns paginated list of contacts with filters
func (cc *ContactController) GetContacts(c *fiber.Ctx) error {
	page, _ := strconv.Atoi(c.Query("page", "1"))
	limit, _ := strconv.Atoi(c.Query("limit", "20"))
	if limit > 100 {
		limit = 100
	}
	offset := (page - 1) * limit

	query := cc.DB.Model(&models.Contact{})
	if email := c.Query("email"); email != "" {
		query = query.Where("email LIKE ?", "%"+email+"%")
	}
	if company := c.Query("company"); company != "" {
		query = query.Where("company LIKE ?", "%"+company+"%")
	}
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}
	if userID := c.Query("user_id"); userID != "" {
		query = query.Where("user_id = ?", utils.ParseUint(userID))
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to count contacts", err)
	}

	var contacts []models.Contact
	if err := query.Preload("CustomFields").
		Order("created_at DESC").
		Offset(offset).Limit(limit).
		Find(&contacts).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch contacts", err)
	}

	return c.JSON(utils.PaginatedResponse{
		Data:  contacts,
		Total: total,
		Page:  page,
		Limit: limit,
	})
}

// GetContact returns a single contact with its custom fields
func (cc *ContactController) GetContact(c *fiber.Ctx) error {
	var contact models.Contact
	if err := cc.DB.Preload("CustomFields").First(&contact, c.Params("id")).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Contact not found", nil)
	}
	return c.JSON(utils.SuccessResponse(contact))
}

// UpdateContact updates contact fields and status
func (cc *ContactController) UpdateContact(c *fiber.Ctx) error {
	var contact models.Contact
	if err := cc.DB.First(&contact, c.Params("id")).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Contact not found", nil)
	}

	var input struct {
		FirstName *string `json:"first_name"`
		LastName  *string `json:"last_name"`
		Company   *string `json:"company"`
		Position  *string `json:"position"`
		Phone     *string `json:"phone"`
		Status    *string `json:"status" validate:"omitempty,oneof=active unsubscribed bounced"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", err)
	}

	updates := map[string]interface{}{}
	if input.FirstName != nil {
		updates["first_name"] = *input.FirstName
	}
	if input.LastName != nil {
		updates["last_name"] = *input.LastName
	}
	if input.Company != nil {
		updates["company"] = *input.Company
	}
	if input.Position != nil {
		updates["position"] = *input.Position
	}
	if input.Phone != nil {
		updates["phone"] = *input.Phone
	}
	if input.Status != nil {
		updates["status"] = *input.Status
	}

	if len(updates) > 0 {
		if err := cc.DB.Model(&contact).Updates(updates).Error; err != nil {
			return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to update contact", err)
		}
	}

	return c.JSON(utils.SuccessResponse(contact))
}

// DeleteContact soft-deletes a contact
func (cc *ContactController) DeleteContact(c *fiber.Ctx) error {
	var contact models.Contact
	if err := cc.DB.First(&contact, c.Params("id")).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Contact not found", nil)
	}

	if err := cc.DB.Delete(&contact).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to delete contact", err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Contact deleted successfully",
	})
}

// HandleUnsubscribe flips a contact to unsubscribed via the public link in
// every outgoing email. Pending sends for the contact are cancelled by the
// scheduler at send time rather than here.
func (cc *ContactController) HandleUnsubscribe(c *fiber.Ctx) error {
	token := c.Params("token")

	var contact models.Contact
	if err := cc.DB.Where("unsubscribe_token = ?", token).First(&contact).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Invalid unsubscribe link", nil)
	}

	if contact.Status != models.ContactStatusUnsubscribed {
		if err := cc.DB.Model(&contact).Update("status", models.ContactStatusUnsubscribed).Error; err != nil {
			return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to unsubscribe", err)
		}
		utils.LogEvent("contact_unsubscribed", map[string]interface{}{
			"contact_id": contact.ID,
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "You have been unsubscribed",
	})
}

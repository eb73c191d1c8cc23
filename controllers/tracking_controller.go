package controller

import (
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/memalihaider/ai-business-developer-sub004/models"
	"github.com/memalihaider/ai-business-developer-sub004/utils"
)

// transparent 1x1 GIF returned by the open-tracking pixel
var trackingPixelGIF = []byte{
	0x47, 0x49, 0x46, 0x38, 0x39, 0x61, 0x01, 0x00, 0x01, 0x00, 0x80, 0x00,
	0x00, 0x00, 0x00, 0x00, 0xff, 0xff, 0xff, 0x21, 0xf9, 0x04, 0x01, 0x00,
	0x00, 0x00, 0x00, 0x2c, 0x00, 0x00, 0x00, 0x00, 0x01, 0x00, 0x01, 0x00,
	0x00, 0x02, 0x02, 0x44, 0x01, 0x00, 0x3b,
}

type TrackingController struct {
	DB     *gorm.DB
	Logger *log.Logger
}

func NewTrackingController(db *gorm.DB, logger *log.Logger) *TrackingController {
	return &TrackingController{
		DB:     db,
		Logger: logger,
	}
}

// HandleOpenTracking records the first open of a sent email and serves the
// pixel. Always responds with the image, even for unknown message IDs, so
// mail clients render nothing unusual.
func (tc *TrackingController) HandleOpenTracking(c *fiber.Ctx) error {
	messageID := c.Params("messageID")

	var scheduled models.ScheduledEmail
	if err := tc.DB.Where("message_id = ?", messageID).First(&scheduled).Error; err == nil {
		if scheduled.OpenedAt == nil {
			if err := tc.DB.Model(&scheduled).Update("opened_at", utils.Pointer(time.Now())).Error; err != nil {
				tc.Logger.Printf("Failed to record open for message %s: %v", messageID, err)
			} else {
				utils.LogEvent("email_opened", map[string]interface{}{
					"message_id":  messageID,
					"contact_id":  scheduled.ContactID,
					"sequence_id": scheduled.SequenceID,
				})
			}
		}
	}

	c.Set("Content-Type", "image/gif")
	c.Set("Cache-Control", "no-cache, no-store, must-revalidate")
	return c.Send(trackingPixelGIF)
}

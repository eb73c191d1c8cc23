package worker

import (
	"log"
	"time"

	"gorm.io/gorm"

	"github.com/memalihaider/ai-business-developer-sub004/models"
)

// QueueAdmin exposes operator control over individual queued sends. It owns
// writes to ScheduledAt (reschedule) and the operator-triggered cancelled
// transition, as opposed to the automatic unsubscribe cancellation done by
// the scheduler.
type QueueAdmin struct {
	DB     *gorm.DB
	Logger *log.Logger
}

func NewQueueAdmin(db *gorm.DB, logger *log.Logger) *QueueAdmin {
	return &QueueAdmin{
		DB:     db,
		Logger: logger,
	}
}

// Reschedule moves a queued send to a new due time. The new time is not
// validated against the clock; scheduling into the past makes the item due
// immediately, which is an operator decision.
func (qa *QueueAdmin) Reschedule(scheduledEmailID uint, newScheduledAt time.Time) (*models.ScheduledEmail, error) {
	var scheduled models.ScheduledEmail
	if err := qa.DB.First(&scheduled, scheduledEmailID).Error; err != nil {
		return nil, err
	}

	if err := qa.DB.Model(&scheduled).Update("scheduled_at", newScheduledAt).Error; err != nil {
		return nil, err
	}
	scheduled.ScheduledAt = newScheduledAt

	qa.Logger.Printf("Rescheduled email %d to %s", scheduled.ID, newScheduledAt.Format(time.RFC3339))
	return &scheduled, nil
}

// Cancel sets the cancelled status unconditionally. Cancelling an item that
// is already terminal overwrites the status in place, so repeated calls are
// idempotent and never error.
func (qa *QueueAdmin) Cancel(scheduledEmailID uint) (*models.ScheduledEmail, error) {
	var scheduled models.ScheduledEmail
	if err := qa.DB.First(&scheduled, scheduledEmailID).Error; err != nil {
		return nil, err
	}

	if err := qa.DB.Model(&scheduled).Update("status", models.ScheduledEmailStatusCancelled).Error; err != nil {
		return nil, err
	}
	scheduled.Status = models.ScheduledEmailStatusCancelled

	qa.Logger.Printf("Cancelled scheduled email %d", scheduled.ID)
	return &scheduled, nil
}

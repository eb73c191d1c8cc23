package worker

import (
	"errors"
	"log"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/memalihaider/ai-business-developer-sub004/config"
	"github.com/memalihaider/ai-business-developer-sub004/models"
	"github.com/memalihaider/ai-business-developer-sub004/utils"
)

// ProcessSummary aggregates one ProcessDueSends invocation. Cancellations are
// counted in Processed but in neither Sent nor Failed.
type ProcessSummary struct {
	Processed int `json:"processed"`
	Sent      int `json:"sent"`
	Failed    int `json:"failed"`
}

// SequenceScheduler owns the due-work scan: it claims due scheduled emails,
// personalizes and dispatches them, records outcomes and advances each
// contact to the successor step.
type SequenceScheduler struct {
	DB      *gorm.DB
	Mailer  utils.Mailer
	Config  config.SchedulerConfig
	Logger  *log.Logger
	BaseURL string
}

func NewSequenceScheduler(db *gorm.DB, mailer utils.Mailer, cfg config.SchedulerConfig, baseURL string, logger *log.Logger) *SequenceScheduler {
	return &SequenceScheduler{
		DB:      db,
		Mailer:  mailer,
		Config:  cfg,
		Logger:  logger,
		BaseURL: baseURL,
	}
}

// ProcessDueSends selects up to Config.BatchSize pending scheduled emails
// whose due time has passed, earliest first (ties broken by id), and handles
// each one independently. Item-level errors are logged and counted; only a
// failure of the initial select aborts the invocation.
func (s *SequenceScheduler) ProcessDueSends() (ProcessSummary, error) {
	var summary ProcessSummary

	var due []models.ScheduledEmail
	if err := s.DB.
		Where("status = ? AND scheduled_at <= ?", models.ScheduledEmailStatusPending, time.Now()).
		Order("scheduled_at ASC, id ASC").
		Limit(s.Config.BatchSize).
		Find(&due).Error; err != nil {
		return summary, err
	}

	for i := range due {
		s.processItem(&due[i], &summary)
	}

	return summary, nil
}

// processItem runs one scheduled email to a terminal state and updates the
// batch counters. It never returns an error; outcomes are persisted per item.
func (s *SequenceScheduler) processItem(item *models.ScheduledEmail, summary *ProcessSummary) {
	// Claim the row before dispatching so an overlapping invocation that
	// selected the same item skips it instead of double-sending. If a later
	// status write fails the row is left in processing and never re-selected;
	// recovering it takes an operator update back to pending.
	claim := s.DB.Model(&models.ScheduledEmail{}).
		Where("id = ? AND status = ?", item.ID, models.ScheduledEmailStatusPending).
		Update("status", models.ScheduledEmailStatusProcessing)
	if claim.Error != nil {
		s.Logger.Printf("Failed to claim scheduled email %d: %v", item.ID, claim.Error)
		summary.Processed++
		summary.Failed++
		return
	}
	if claim.RowsAffected == 0 {
		// Already claimed or cancelled elsewhere
		return
	}

	summary.Processed++

	var contact models.Contact
	if err := s.DB.Preload("CustomFields").First(&contact, item.ContactID).Error; err != nil {
		s.markFailed(item, "contact lookup failed: "+err.Error())
		summary.Failed++
		return
	}

	// Unsubscribe and bounce checks happen at send time, not at schedule
	// time, so a contact scheduled while active is still filtered out here.
	if !contact.IsContactable() {
		if err := s.DB.Model(item).Update("status", models.ScheduledEmailStatusCancelled).Error; err != nil {
			s.Logger.Printf("Failed to cancel scheduled email %d: %v", item.ID, err)
			summary.Failed++
		}
		return
	}

	var step models.SequenceStep
	if err := s.DB.First(&step, item.StepID).Error; err != nil {
		s.markFailed(item, "step lookup failed: "+err.Error())
		summary.Failed++
		return
	}

	subject := step.Subject
	if subject == "" {
		subject = s.Config.DefaultSubject
	}

	body := utils.RenderTemplate(step.Body, &contact, contact.CustomFieldMap())
	body = utils.AppendUnsubscribeFooter(body, s.BaseURL, contact.UnsubscribeToken)

	messageID := uuid.New().String()
	returnedID, err := s.Mailer.Send(utils.Email{
		To:      contact.Email,
		Subject: subject,
		Body:    utils.InjectTracking(body, s.BaseURL, messageID),
	})
	if returnedID != "" {
		messageID = returnedID
	}
	if err != nil {
		utils.LogError("delivery_failed", err, map[string]interface{}{
			"scheduled_email_id": item.ID,
			"contact_id":         contact.ID,
			"sequence_id":        item.SequenceID,
		})
		s.markFailed(item, err.Error())
		summary.Failed++
		return
	}

	if err := s.recordSuccess(item, &step, &contact, messageID); err != nil {
		s.Logger.Printf("Failed to record outcome for scheduled email %d: %v", item.ID, err)
		summary.Failed++
		return
	}

	summary.Sent++
}

// markFailed transitions an item to the terminal failed state. Failures are
// not retried automatically; re-sending requires operator action.
func (s *SequenceScheduler) markFailed(item *models.ScheduledEmail, reason string) {
	if err := s.DB.Model(item).Updates(map[string]interface{}{
		"status":     models.ScheduledEmailStatusFailed,
		"last_error": reason,
	}).Error; err != nil {
		s.Logger.Printf("Failed to mark scheduled email %d as failed: %v", item.ID, err)
	}
}

// recordSuccess persists the sent outcome, appends the run log entry and
// schedules the successor step, or logs sequence completion when the step
// was the last one.
func (s *SequenceScheduler) recordSuccess(item *models.ScheduledEmail, step *models.SequenceStep, contact *models.Contact, messageID string) error {
	now := time.Now()

	if err := s.DB.Model(item).Updates(map[string]interface{}{
		"status":     models.ScheduledEmailStatusSent,
		"sent_at":    now,
		"message_id": messageID,
	}).Error; err != nil {
		return err
	}

	run := models.SequenceRun{
		SequenceID: item.SequenceID,
		ContactID:  item.ContactID,
		StepID:     utils.Pointer(step.ID),
		Status:     models.SequenceRunStatusCompleted,
		ExecutedAt: now,
	}
	if err := s.DB.Create(&run).Error; err != nil {
		return err
	}

	if err := s.DB.Model(step).Update("sent_count", gorm.Expr("sent_count + ?", 1)).Error; err != nil {
		s.Logger.Printf("Failed to bump sent count for step %d: %v", step.ID, err)
	}
	if err := s.DB.Model(contact).Update("last_contacted_at", now).Error; err != nil {
		s.Logger.Printf("Failed to update last contact time for contact %d: %v", contact.ID, err)
	}

	return s.scheduleSuccessor(item, step, now)
}

// scheduleSuccessor enqueues the step with the next-higher order in the same
// sequence. When no successor exists the sequence is complete for this
// contact and a sequence_completed run entry is appended instead.
func (s *SequenceScheduler) scheduleSuccessor(item *models.ScheduledEmail, step *models.SequenceStep, sentAt time.Time) error {
	var next models.SequenceStep
	err := s.DB.
		Where("sequence_id = ? AND step_order = ?", item.SequenceID, step.StepOrder+1).
		First(&next).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		completed := models.SequenceRun{
			SequenceID: item.SequenceID,
			ContactID:  item.ContactID,
			StepID:     nil,
			Status:     models.SequenceRunStatusSequenceCompleted,
			ExecutedAt: sentAt,
		}
		return s.DB.Create(&completed).Error
	}
	if err != nil {
		return err
	}

	successor := models.ScheduledEmail{
		SequenceID:  item.SequenceID,
		StepID:      next.ID,
		ContactID:   item.ContactID,
		ScheduledAt: sentAt.Add(time.Duration(next.DelayHours) * time.Hour),
		Status:      models.ScheduledEmailStatusPending,
	}
	return s.DB.Create(&successor).Error
}

// ScheduleStep creates one pending scheduled email for a contact at
// now + delayHours. A nil delay falls back to the configured default.
func (s *SequenceScheduler) ScheduleStep(sequenceID, contactID, stepID uint, delayHours *int) (*models.ScheduledEmail, error) {
	var sequence models.Sequence
	if err := s.DB.First(&sequence, sequenceID).Error; err != nil {
		return nil, err
	}
	var contact models.Contact
	if err := s.DB.First(&contact, contactID).Error; err != nil {
		return nil, err
	}
	var step models.SequenceStep
	if err := s.DB.Where("id = ? AND sequence_id = ?", stepID, sequenceID).First(&step).Error; err != nil {
		return nil, err
	}

	delay := s.Config.DefaultStepDelayHours
	if delayHours != nil {
		delay = *delayHours
	}

	scheduled := models.ScheduledEmail{
		SequenceID:  sequenceID,
		StepID:      stepID,
		ContactID:   contactID,
		ScheduledAt: time.Now().Add(time.Duration(delay) * time.Hour),
		Status:      models.ScheduledEmailStatusPending,
	}
	if err := s.DB.Create(&scheduled).Error; err != nil {
		return nil, err
	}
	return &scheduled, nil
}

package worker

import (
	"errors"
	"fmt"
	"log"
	"os"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/memalihaider/ai-business-developer-sub004/config"
	"github.com/memalihaider/ai-business-developer-sub004/models"
	"github.com/memalihaider/ai-business-developer-sub004/utils"
)

// fakeMailer records outgoing emails instead of delivering them
type fakeMailer struct {
	sent []utils.Email
	err  error
}

func (f *fakeMailer) Send(email utils.Email) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.sent = append(f.sent, email)
	return fmt.Sprintf("msg-%d", len(f.sent)), nil
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, config.MigrateDB(db))
	return db
}

func newTestScheduler(t *testing.T, db *gorm.DB, mailer *fakeMailer) *SequenceScheduler {
	t.Helper()

	cfg := config.SchedulerConfig{
		BatchSize:             50,
		DefaultSubject:        "Follow-up",
		DefaultStepDelayHours: 24,
	}
	logger := log.New(os.Stdout, "TEST: ", log.LstdFlags)
	return NewSequenceScheduler(db, mailer, cfg, "http://localhost:5000", logger)
}

func seedSequence(t *testing.T, db *gorm.DB, steps ...models.SequenceStep) models.Sequence {
	t.Helper()

	sequence := models.Sequence{Name: "Outreach", Status: "active", Steps: steps}
	require.NoError(t, db.Create(&sequence).Error)
	return sequence
}

func seedContact(t *testing.T, db *gorm.DB, status string) models.Contact {
	t.Helper()

	contact := models.Contact{
		Email:            "ada@acme.test",
		FirstName:        "Ada",
		LastName:         "Lovelace",
		Company:          "Acme",
		Status:           status,
		UnsubscribeToken: "tok-" + status,
	}
	require.NoError(t, db.Create(&contact).Error)
	return contact
}

func seedScheduledEmail(t *testing.T, db *gorm.DB, sequence models.Sequence, step models.SequenceStep, contact models.Contact, dueAt time.Time) models.ScheduledEmail {
	t.Helper()

	scheduled := models.ScheduledEmail{
		SequenceID:  sequence.ID,
		StepID:      step.ID,
		ContactID:   contact.ID,
		ScheduledAt: dueAt,
		Status:      models.ScheduledEmailStatusPending,
	}
	require.NoError(t, db.Create(&scheduled).Error)
	return scheduled
}

func TestProcessDueSendsDeliversAndSchedulesSuccessor(t *testing.T) {
	db := newTestDB(t)
	mailer := &fakeMailer{}
	scheduler := newTestScheduler(t, db, mailer)

	sequence := seedSequence(t, db,
		models.SequenceStep{StepOrder: 1, Subject: "Hello {{firstName}}", Body: "Hi {{firstName}} at {{company}}", DelayHours: 0},
		models.SequenceStep{StepOrder: 2, Subject: "Following up", Body: "Still there?", DelayHours: 5},
	)
	contact := seedContact(t, db, models.ContactStatusActive)
	item := seedScheduledEmail(t, db, sequence, sequence.Steps[0], contact, time.Now().Add(-time.Minute))

	summary, err := scheduler.ProcessDueSends()
	require.NoError(t, err)
	assert.Equal(t, ProcessSummary{Processed: 1, Sent: 1, Failed: 0}, summary)

	require.Len(t, mailer.sent, 1)
	assert.Equal(t, "ada@acme.test", mailer.sent[0].To)
	assert.Contains(t, mailer.sent[0].Body, "Hi Ada at Acme")
	assert.Contains(t, mailer.sent[0].Body, "/unsubscribe/")

	var updated models.ScheduledEmail
	require.NoError(t, db.First(&updated, item.ID).Error)
	assert.Equal(t, models.ScheduledEmailStatusSent, updated.Status)
	require.NotNil(t, updated.SentAt)
	assert.NotEmpty(t, updated.MessageID)

	// Successor for step 2 is queued at sent time + 5h
	var successor models.ScheduledEmail
	require.NoError(t, db.
		Where("step_id = ? AND contact_id = ?", sequence.Steps[1].ID, contact.ID).
		First(&successor).Error)
	assert.Equal(t, models.ScheduledEmailStatusPending, successor.Status)
	assert.WithinDuration(t, updated.SentAt.Add(5*time.Hour), successor.ScheduledAt, 2*time.Second)

	var run models.SequenceRun
	require.NoError(t, db.Where("status = ?", models.SequenceRunStatusCompleted).First(&run).Error)
	require.NotNil(t, run.StepID)
	assert.Equal(t, sequence.Steps[0].ID, *run.StepID)
}

func TestProcessDueSendsLastStepCompletesSequence(t *testing.T) {
	db := newTestDB(t)
	mailer := &fakeMailer{}
	scheduler := newTestScheduler(t, db, mailer)

	sequence := seedSequence(t, db,
		models.SequenceStep{StepOrder: 1, Subject: "Last", Body: "Bye", DelayHours: 0},
	)
	contact := seedContact(t, db, models.ContactStatusActive)
	seedScheduledEmail(t, db, sequence, sequence.Steps[0], contact, time.Now().Add(-time.Minute))

	summary, err := scheduler.ProcessDueSends()
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Sent)

	var completed models.SequenceRun
	require.NoError(t, db.
		Where("status = ?", models.SequenceRunStatusSequenceCompleted).
		First(&completed).Error)
	assert.Nil(t, completed.StepID)

	var pendingCount int64
	require.NoError(t, db.Model(&models.ScheduledEmail{}).
		Where("status = ?", models.ScheduledEmailStatusPending).
		Count(&pendingCount).Error)
	assert.Zero(t, pendingCount)
}

func TestProcessDueSendsCancelsUnsubscribedContact(t *testing.T) {
	db := newTestDB(t)
	mailer := &fakeMailer{}
	scheduler := newTestScheduler(t, db, mailer)

	sequence := seedSequence(t, db,
		models.SequenceStep{StepOrder: 1, Subject: "Hi", Body: "Hello", DelayHours: 0},
	)
	contact := seedContact(t, db, models.ContactStatusUnsubscribed)
	item := seedScheduledEmail(t, db, sequence, sequence.Steps[0], contact, time.Now().Add(-time.Minute))

	summary, err := scheduler.ProcessDueSends()
	require.NoError(t, err)
	assert.Equal(t, ProcessSummary{Processed: 1, Sent: 0, Failed: 0}, summary)

	// The delivery transport is never invoked for filtered contacts
	assert.Empty(t, mailer.sent)

	var updated models.ScheduledEmail
	require.NoError(t, db.First(&updated, item.ID).Error)
	assert.Equal(t, models.ScheduledEmailStatusCancelled, updated.Status)
}

func TestProcessDueSendsBouncedContactCancelled(t *testing.T) {
	db := newTestDB(t)
	mailer := &fakeMailer{}
	scheduler := newTestScheduler(t, db, mailer)

	sequence := seedSequence(t, db,
		models.SequenceStep{StepOrder: 1, Subject: "Hi", Body: "Hello", DelayHours: 0},
	)
	contact := seedContact(t, db, models.ContactStatusBounced)
	item := seedScheduledEmail(t, db, sequence, sequence.Steps[0], contact, time.Now().Add(-time.Minute))

	_, err := scheduler.ProcessDueSends()
	require.NoError(t, err)

	assert.Empty(t, mailer.sent)
	var updated models.ScheduledEmail
	require.NoError(t, db.First(&updated, item.ID).Error)
	assert.Equal(t, models.ScheduledEmailStatusCancelled, updated.Status)
}

func TestProcessDueSendsDeliveryFailureIsTerminal(t *testing.T) {
	db := newTestDB(t)
	mailer := &fakeMailer{err: errors.New("smtp connection refused")}
	scheduler := newTestScheduler(t, db, mailer)

	sequence := seedSequence(t, db,
		models.SequenceStep{StepOrder: 1, Subject: "Hi", Body: "Hello", DelayHours: 0},
		models.SequenceStep{StepOrder: 2, Subject: "Next", Body: "Next", DelayHours: 1},
	)
	contact := seedContact(t, db, models.ContactStatusActive)
	item := seedScheduledEmail(t, db, sequence, sequence.Steps[0], contact, time.Now().Add(-time.Minute))

	summary, err := scheduler.ProcessDueSends()
	require.NoError(t, err)
	assert.Equal(t, ProcessSummary{Processed: 1, Sent: 0, Failed: 1}, summary)

	var updated models.ScheduledEmail
	require.NoError(t, db.First(&updated, item.ID).Error)
	assert.Equal(t, models.ScheduledEmailStatusFailed, updated.Status)
	assert.Contains(t, updated.LastError, "smtp connection refused")

	// No successor is scheduled after a failure
	var count int64
	require.NoError(t, db.Model(&models.ScheduledEmail{}).
		Where("step_id = ?", sequence.Steps[1].ID).
		Count(&count).Error)
	assert.Zero(t, count)

	// A second pass finds nothing to do: failed is terminal
	summary, err = scheduler.ProcessDueSends()
	require.NoError(t, err)
	assert.Equal(t, ProcessSummary{}, summary)
}

func TestProcessDueSendsUsesDefaultSubject(t *testing.T) {
	db := newTestDB(t)
	mailer := &fakeMailer{}
	scheduler := newTestScheduler(t, db, mailer)

	sequence := seedSequence(t, db,
		models.SequenceStep{StepOrder: 1, Subject: "", Body: "Hello", DelayHours: 0},
	)
	contact := seedContact(t, db, models.ContactStatusActive)
	seedScheduledEmail(t, db, sequence, sequence.Steps[0], contact, time.Now().Add(-time.Minute))

	_, err := scheduler.ProcessDueSends()
	require.NoError(t, err)

	require.Len(t, mailer.sent, 1)
	assert.Equal(t, "Follow-up", mailer.sent[0].Subject)
}

func TestProcessDueSendsRendersCustomFields(t *testing.T) {
	db := newTestDB(t)
	mailer := &fakeMailer{}
	scheduler := newTestScheduler(t, db, mailer)

	sequence := seedSequence(t, db,
		models.SequenceStep{StepOrder: 1, Subject: "Hi", Body: "Your plan: {{plan}}", DelayHours: 0},
	)
	contact := seedContact(t, db, models.ContactStatusActive)
	require.NoError(t, db.Create(&models.ContactCustomField{
		ContactID: contact.ID,
		Name:      "plan",
		Value:     "enterprise",
	}).Error)
	seedScheduledEmail(t, db, sequence, sequence.Steps[0], contact, time.Now().Add(-time.Minute))

	_, err := scheduler.ProcessDueSends()
	require.NoError(t, err)

	require.Len(t, mailer.sent, 1)
	assert.Contains(t, mailer.sent[0].Body, "Your plan: enterprise")
}

func TestProcessDueSendsRespectsBatchBound(t *testing.T) {
	db := newTestDB(t)
	mailer := &fakeMailer{}
	scheduler := newTestScheduler(t, db, mailer)

	sequence := seedSequence(t, db,
		models.SequenceStep{StepOrder: 1, Subject: "Hi", Body: "Hello", DelayHours: 0},
	)
	contact := seedContact(t, db, models.ContactStatusActive)

	dueAt := time.Now().Add(-time.Hour)
	for i := 0; i < 60; i++ {
		seedScheduledEmail(t, db, sequence, sequence.Steps[0], contact, dueAt.Add(time.Duration(i)*time.Second))
	}

	summary, err := scheduler.ProcessDueSends()
	require.NoError(t, err)
	assert.Equal(t, 50, summary.Processed)
	assert.Equal(t, 50, summary.Sent)

	var pending []models.ScheduledEmail
	require.NoError(t, db.
		Where("status = ?", models.ScheduledEmailStatusPending).
		Order("scheduled_at ASC").
		Find(&pending).Error)
	require.Len(t, pending, 10)

	// The remainder keeps its original due time, and the earliest-due items
	// were the ones handled first
	assert.WithinDuration(t, dueAt.Add(50*time.Second), pending[0].ScheduledAt, 2*time.Second)
}

func TestProcessItemSkipsAlreadyClaimedRow(t *testing.T) {
	db := newTestDB(t)
	mailer := &fakeMailer{}
	scheduler := newTestScheduler(t, db, mailer)

	sequence := seedSequence(t, db,
		models.SequenceStep{StepOrder: 1, Subject: "Hi", Body: "Hello", DelayHours: 0},
	)
	contact := seedContact(t, db, models.ContactStatusActive)
	item := seedScheduledEmail(t, db, sequence, sequence.Steps[0], contact, time.Now().Add(-time.Minute))

	// An overlapping invocation claims the row between the select and the
	// claim update; this invocation still holds the stale pending snapshot
	require.NoError(t, db.Model(&models.ScheduledEmail{}).
		Where("id = ?", item.ID).
		Update("status", models.ScheduledEmailStatusProcessing).Error)

	var summary ProcessSummary
	scheduler.processItem(&item, &summary)

	// The lost claim is skipped outright: nothing sent, nothing counted
	assert.Equal(t, ProcessSummary{}, summary)
	assert.Empty(t, mailer.sent)

	var updated models.ScheduledEmail
	require.NoError(t, db.First(&updated, item.ID).Error)
	assert.Equal(t, models.ScheduledEmailStatusProcessing, updated.Status)
}

func TestProcessDueSendsIgnoresFutureItems(t *testing.T) {
	db := newTestDB(t)
	mailer := &fakeMailer{}
	scheduler := newTestScheduler(t, db, mailer)

	sequence := seedSequence(t, db,
		models.SequenceStep{StepOrder: 1, Subject: "Hi", Body: "Hello", DelayHours: 0},
	)
	contact := seedContact(t, db, models.ContactStatusActive)
	seedScheduledEmail(t, db, sequence, sequence.Steps[0], contact, time.Now().Add(time.Hour))

	summary, err := scheduler.ProcessDueSends()
	require.NoError(t, err)
	assert.Equal(t, ProcessSummary{}, summary)
	assert.Empty(t, mailer.sent)
}

func TestScheduleStepDefaultsDelay(t *testing.T) {
	db := newTestDB(t)
	scheduler := newTestScheduler(t, db, &fakeMailer{})

	sequence := seedSequence(t, db,
		models.SequenceStep{StepOrder: 1, Subject: "Hi", Body: "Hello", DelayHours: 0},
	)
	contact := seedContact(t, db, models.ContactStatusActive)

	// nil delay falls back to the configured default of 24h
	scheduled, err := scheduler.ScheduleStep(sequence.ID, contact.ID, sequence.Steps[0].ID, nil)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(24*time.Hour), scheduled.ScheduledAt, 2*time.Second)

	// explicit zero delay means due immediately
	scheduled, err = scheduler.ScheduleStep(sequence.ID, contact.ID, sequence.Steps[0].ID, utils.Pointer(0))
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now(), scheduled.ScheduledAt, 2*time.Second)
}

func TestScheduleStepUnknownRecords(t *testing.T) {
	db := newTestDB(t)
	scheduler := newTestScheduler(t, db, &fakeMailer{})

	_, err := scheduler.ScheduleStep(999, 999, 999, nil)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

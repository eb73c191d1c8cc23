package worker

import (
	"log"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/memalihaider/ai-business-developer-sub004/models"
)

func newTestAdmin(t *testing.T, db *gorm.DB) *QueueAdmin {
	t.Helper()
	return NewQueueAdmin(db, log.New(os.Stdout, "TEST: ", log.LstdFlags))
}

func TestRescheduleUpdatesDueTime(t *testing.T) {
	db := newTestDB(t)
	admin := newTestAdmin(t, db)

	sequence := seedSequence(t, db,
		models.SequenceStep{StepOrder: 1, Subject: "Hi", Body: "Hello", DelayHours: 0},
	)
	contact := seedContact(t, db, models.ContactStatusActive)
	item := seedScheduledEmail(t, db, sequence, sequence.Steps[0], contact, time.Now().Add(time.Hour))

	newTime := time.Now().Add(48 * time.Hour).Truncate(time.Second)
	scheduled, err := admin.Reschedule(item.ID, newTime)
	require.NoError(t, err)
	assert.WithinDuration(t, newTime, scheduled.ScheduledAt, time.Second)

	var updated models.ScheduledEmail
	require.NoError(t, db.First(&updated, item.ID).Error)
	assert.WithinDuration(t, newTime, updated.ScheduledAt, time.Second)
	assert.Equal(t, models.ScheduledEmailStatusPending, updated.Status)
}

func TestRescheduleUnknownID(t *testing.T) {
	db := newTestDB(t)
	admin := newTestAdmin(t, db)

	_, err := admin.Reschedule(12345, time.Now())
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestCancelIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	admin := newTestAdmin(t, db)

	sequence := seedSequence(t, db,
		models.SequenceStep{StepOrder: 1, Subject: "Hi", Body: "Hello", DelayHours: 0},
	)
	contact := seedContact(t, db, models.ContactStatusActive)
	item := seedScheduledEmail(t, db, sequence, sequence.Steps[0], contact, time.Now().Add(time.Hour))

	scheduled, err := admin.Cancel(item.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ScheduledEmailStatusCancelled, scheduled.Status)

	// A second cancel overwrites the same status and never errors
	scheduled, err = admin.Cancel(item.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ScheduledEmailStatusCancelled, scheduled.Status)
}

func TestCancelUnknownID(t *testing.T) {
	db := newTestDB(t)
	admin := newTestAdmin(t, db)

	_, err := admin.Cancel(12345)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestCancelledItemIsNotProcessed(t *testing.T) {
	db := newTestDB(t)
	admin := newTestAdmin(t, db)
	mailer := &fakeMailer{}
	scheduler := newTestScheduler(t, db, mailer)

	sequence := seedSequence(t, db,
		models.SequenceStep{StepOrder: 1, Subject: "Hi", Body: "Hello", DelayHours: 0},
	)
	contact := seedContact(t, db, models.ContactStatusActive)
	item := seedScheduledEmail(t, db, sequence, sequence.Steps[0], contact, time.Now().Add(-time.Minute))

	_, err := admin.Cancel(item.ID)
	require.NoError(t, err)

	summary, err := scheduler.ProcessDueSends()
	require.NoError(t, err)
	assert.Equal(t, ProcessSummary{}, summary)
	assert.Empty(t, mailer.sent)
}

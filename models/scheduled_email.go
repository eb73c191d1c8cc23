package models

import (
	"time"

	"gorm.io/gorm"
)

// ScheduledEmail statuses. Transitions are monotonic: pending -> processing
// -> {sent, failed}, or pending -> cancelled. sent, failed and cancelled are
// terminal.
const (
	ScheduledEmailStatusPending    = "pending"
	ScheduledEmailStatusProcessing = "processing"
	ScheduledEmailStatusSent       = "sent"
	ScheduledEmailStatusFailed     = "failed"
	ScheduledEmailStatusCancelled  = "cancelled"
)

// SequenceRun statuses
const (
	SequenceRunStatusCompleted         = "completed"
	SequenceRunStatusSequenceCompleted = "sequence_completed"
)

// ScheduledEmail is one queued, due-dated email tied to one contact and one
// sequence step. Rows are never deleted; terminal rows remain as an audit trail.
type ScheduledEmail struct {
	gorm.Model
	SequenceID uint `gorm:"not null;index" json:"sequence_id"`
	StepID     uint `gorm:"not null;index" json:"step_id"`
	ContactID  uint `gorm:"not null;index" json:"contact_id"`

	ScheduledAt time.Time  `gorm:"not null;index" json:"scheduled_at"`
	Status      string     `gorm:"default:'pending';index" json:"status"`
	SentAt      *time.Time `json:"sent_at"`
	OpenedAt    *time.Time `json:"opened_at"`

	MessageID string `gorm:"index" json:"message_id"`
	LastError string `json:"last_error,omitempty"`

	// Relations
	Sequence Sequence     `json:"-"`
	Step     SequenceStep `gorm:"foreignKey:StepID" json:"-"`
	Contact  Contact      `json:"-"`
}

// SequenceRun is an append-only execution log entry, one per outcome.
// StepID is nil for the terminal sequence_completed marker.
type SequenceRun struct {
	gorm.Model
	SequenceID uint  `gorm:"not null;index" json:"sequence_id"`
	ContactID  uint  `gorm:"not null;index" json:"contact_id"`
	StepID     *uint `json:"step_id"`

	Status     string    `gorm:"not null" json:"status"`
	ExecutedAt time.Time `gorm:"not null" json:"executed_at"`
}

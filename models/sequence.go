package models

import "gorm.io/gorm"

// Sequence represents automated email sequences
type Sequence struct {
	gorm.Model
	UserID uint `gorm:"not null;index" json:"user_id"`

	Name        string `gorm:"not null" json:"name"`
	Description string `json:"description"`
	Status      string `gorm:"default:'draft'" json:"status"` // draft, active, paused

	// Relations
	Steps []SequenceStep `gorm:"foreignKey:SequenceID" json:"steps,omitempty"`
}

// SequenceStep represents one ordered stage of a sequence. StepOrder is unique
// within a sequence; the step with the highest order has no successor.
type SequenceStep struct {
	gorm.Model
	SequenceID uint `gorm:"not null;index;uniqueIndex:idx_sequence_step_order" json:"sequence_id"`

	StepOrder  int    `gorm:"not null;uniqueIndex:idx_sequence_step_order" json:"step_order"`
	Subject    string `json:"subject"`
	Body       string `gorm:"type:text" json:"body"` // template with {{placeholder}} variables
	DelayHours int    `gorm:"not null;default:0" json:"delay_hours"`

	// Tracking (denormalized for dashboards)
	SentCount int `gorm:"default:0" json:"sent_count"`
}

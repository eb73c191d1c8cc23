package models

import (
	"time"

	"gorm.io/gorm"
)

// Contact statuses
const (
	ContactStatusActive       = "active"
	ContactStatusUnsubscribed = "unsubscribed"
	ContactStatusBounced      = "bounced"
)

// Contact represents a single address-book entry that can be enrolled in sequences
type Contact struct {
	gorm.Model
	UserID uint `gorm:"not null;index" json:"user_id"`

	Email     string `gorm:"not null;index" json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Company   string `json:"company"`
	Position  string `json:"position"`
	Phone     string `json:"phone"`

	// Status - a contact that is unsubscribed or bounced must never receive a send
	Status string `gorm:"default:'active';index" json:"status"` // active, unsubscribed, bounced

	// Token used in unsubscribe links
	UnsubscribeToken string `gorm:"uniqueIndex" json:"-"`

	// Metadata
	Source          string     `json:"source"`
	LastContactedAt *time.Time `json:"last_contacted_at"`

	// Relations
	CustomFields []ContactCustomField `gorm:"foreignKey:ContactID" json:"custom_fields,omitempty"`
}

// ContactCustomField represents custom fields for contacts
type ContactCustomField struct {
	gorm.Model
	ContactID uint   `gorm:"not null;index" json:"contact_id"`
	Name      string `gorm:"not null;index" json:"name"`
	Value     string `gorm:"type:text" json:"value"`
}

// IsContactable reports whether the contact may still receive sequence emails
func (c *Contact) IsContactable() bool {
	return c.Status != ContactStatusUnsubscribed && c.Status != ContactStatusBounced
}

// CustomFieldMap flattens the normalized custom fields into a name->value map
func (c *Contact) CustomFieldMap() map[string]string {
	fields := make(map[string]string, len(c.CustomFields))
	for _, f := range c.CustomFields {
		fields[f.Name] = f.Value
	}
	return fields
}

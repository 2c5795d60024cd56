package models

import "time"

// Consultation is a playhouse design consultation request. PreferredDate and
// PreferredTime are optional; when both are present the CRM sync additionally
// creates a meeting record linked to the lead.
type Consultation struct {
	ID            uint   `gorm:"primaryKey" json:"id"`
	ExternalRef   string `gorm:"type:varchar(36);uniqueIndex" json:"externalRef"`
	Name          string `gorm:"type:varchar(255);not null" json:"name"`
	Email         string `gorm:"type:varchar(255);not null;index" json:"email"`
	Phone         string `gorm:"type:varchar(50);not null" json:"phone"`
	Message       string `gorm:"type:text" json:"message,omitempty"`
	PreferredDate string `gorm:"type:varchar(10)" json:"preferredDate,omitempty"` // YYYY-MM-DD
	PreferredTime string `gorm:"type:varchar(5)" json:"preferredTime,omitempty"`  // HH:MM

	SyncEnvelope

	CRMMeetingID int64 `gorm:"default:0" json:"crmMeetingId,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// TableName specifies the table name
func (Consultation) TableName() string {
	return "consultations"
}

// HasPreferredSlot reports whether the visitor picked a meeting slot
func (c *Consultation) HasPreferredSlot() bool {
	return c.PreferredDate != "" && c.PreferredTime != ""
}

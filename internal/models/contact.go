package models

import "time"

// Contact is a lead submitted through the website contact form.
// Payload fields arrive validated by the form layer but are stored
// as untrusted strings.
type Contact struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	ExternalRef string `gorm:"type:varchar(36);uniqueIndex" json:"externalRef"`
	Name        string `gorm:"type:varchar(255);not null" json:"name"`
	Email       string `gorm:"type:varchar(255);not null;index" json:"email"`
	Phone       string `gorm:"type:varchar(50);not null" json:"phone"`
	Message     string `gorm:"type:text" json:"message,omitempty"`

	SyncEnvelope

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// TableName specifies the table name
func (Contact) TableName() string {
	return "contacts"
}

package models

import (
	"time"

	"gorm.io/datatypes"
)

// Sync directions. Only push (local -> CRM) exists today; the column is kept
// so the audit trail stays unambiguous if a pull path is ever added.
const (
	SyncDirectionPush = "push"
)

// SyncTask is the audit trail of sync attempts. One row exists per
// (direction, entity_type, entity_id) and is updated in place on every attempt.
type SyncTask struct {
	ID         uint           `gorm:"primaryKey" json:"id"`
	Direction  string         `gorm:"type:varchar(10);not null;uniqueIndex:idx_task_entity" json:"direction"`
	EntityType string         `gorm:"type:varchar(50);not null;uniqueIndex:idx_task_entity" json:"entityType"`
	EntityID   uint           `gorm:"not null;uniqueIndex:idx_task_entity" json:"entityId"`
	Status     string         `gorm:"type:varchar(20);not null" json:"status"`
	Attempts   int            `gorm:"not null;default:0" json:"attempts"`
	LastError  string         `gorm:"type:text" json:"lastError,omitempty"`
	Payload    datatypes.JSON `gorm:"type:jsonb" json:"payload,omitempty"`
	CreatedAt  time.Time      `json:"createdAt"`
	UpdatedAt  time.Time      `json:"updatedAt"`
}

// TableName specifies the table name
func (SyncTask) TableName() string {
	return "sync_tasks"
}

package models

import "time"

// Sync status values shared by all syncable records
const (
	SyncStatusPending    = "pending"
	SyncStatusInProgress = "in_progress"
	SyncStatusSynced     = "synced"
	SyncStatusFailed     = "failed"
)

// Entity type names used in sync audit rows and log fields
const (
	EntityTypeContact      = "contact"
	EntityTypeConsultation = "consultation"
)

// SyncEnvelope carries the sync bookkeeping embedded in every syncable record.
// The sync engine is the only writer of these fields once a record exists.
type SyncEnvelope struct {
	SyncStatus        string     `gorm:"type:varchar(20);not null;default:'pending';index:,composite:sync_scan" json:"syncStatus"`
	SyncAttempts      int        `gorm:"not null;default:0" json:"syncAttempts"`
	LastSyncAttemptAt *time.Time `gorm:"index:,composite:sync_scan" json:"lastSyncAttemptAt,omitempty"`
	SyncError         string     `gorm:"type:text" json:"syncError,omitempty"`
	CRMLeadID         int64      `gorm:"default:0" json:"crmLeadId,omitempty"`
}

// Synced reports whether the record reached its terminal synced state
func (e SyncEnvelope) Synced() bool {
	return e.SyncStatus == SyncStatusSynced
}

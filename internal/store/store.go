package store

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	apperrors "github.com/woodentreasures/playhouse-server/internal/errors"
	"github.com/woodentreasures/playhouse-server/internal/models"
)

// staleClaimAfter is how long an in_progress claim is honored. A claim older
// than this belongs to a crashed worker and the record becomes eligible again.
const staleClaimAfter = 10 * time.Minute

// Store owns persistence and status transitions for syncable records.
// All writes are single-row updates; the worst concurrent-sync outcome is a
// duplicate remote submission, never corrupted local state.
type Store struct {
	db          *gorm.DB
	maxAttempts int
}

// New creates a record store
func New(db *gorm.DB, maxAttempts int) *Store {
	return &Store{db: db, maxAttempts: maxAttempts}
}

// MaxAttempts returns the configured sync attempt ceiling
func (s *Store) MaxAttempts() int {
	return s.maxAttempts
}

// CreateContact inserts a contact with status pending and zero attempts
func (s *Store) CreateContact(c *models.Contact) (uint, error) {
	if err := validateRequired(c.Name, c.Email, c.Phone); err != nil {
		return 0, err
	}
	c.ExternalRef = uuid.NewString()
	c.SyncStatus = models.SyncStatusPending
	c.SyncAttempts = 0

	if err := s.db.Create(c).Error; err != nil {
		return 0, apperrors.NewStoreError("failed to create contact", err)
	}
	return c.ID, nil
}

// CreateConsultation inserts a consultation with status pending and zero attempts
func (s *Store) CreateConsultation(c *models.Consultation) (uint, error) {
	if err := validateRequired(c.Name, c.Email, c.Phone); err != nil {
		return 0, err
	}
	c.ExternalRef = uuid.NewString()
	c.SyncStatus = models.SyncStatusPending
	c.SyncAttempts = 0

	if err := s.db.Create(c).Error; err != nil {
		return 0, apperrors.NewStoreError("failed to create consultation", err)
	}
	return c.ID, nil
}

// GetContact fetches a contact by id
func (s *Store) GetContact(id uint) (*models.Contact, error) {
	var c models.Contact
	if err := s.db.First(&c, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperrors.NewNotFoundError("contact not found", err)
		}
		return nil, apperrors.NewStoreError("failed to fetch contact", err)
	}
	return &c, nil
}

// GetConsultation fetches a consultation by id
func (s *Store) GetConsultation(id uint) (*models.Consultation, error) {
	var c models.Consultation
	if err := s.db.First(&c, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperrors.NewNotFoundError("consultation not found", err)
		}
		return nil, apperrors.NewStoreError("failed to fetch consultation", err)
	}
	return &c, nil
}

// ListPendingContacts returns contacts eligible for (re)sync, oldest attempt
// first with never-attempted records sorting before everything else.
func (s *Store) ListPendingContacts(limit int) ([]models.Contact, error) {
	var contacts []models.Contact
	if err := s.eligible(models.Contact{}.TableName()).
		Limit(limit).
		Find(&contacts).Error; err != nil {
		return nil, apperrors.NewStoreError("failed to list pending contacts", err)
	}
	return contacts, nil
}

// ListPendingConsultations returns consultations eligible for (re)sync
func (s *Store) ListPendingConsultations(limit int) ([]models.Consultation, error) {
	var consultations []models.Consultation
	if err := s.eligible(models.Consultation{}.TableName()).
		Limit(limit).
		Find(&consultations).Error; err != nil {
		return nil, apperrors.NewStoreError("failed to list pending consultations", err)
	}
	return consultations, nil
}

// eligible builds the shared eligibility query: not yet synced, below the
// attempt ceiling, and not claimed by a live worker.
func (s *Store) eligible(table string) *gorm.DB {
	cutoff := time.Now().UTC().Add(-staleClaimAfter)
	return s.db.Table(table).
		Where("sync_status <> ?", models.SyncStatusSynced).
		Where("sync_attempts < ?", s.maxAttempts).
		Where("sync_status <> ? OR last_sync_attempt_at < ?", models.SyncStatusInProgress, cutoff).
		Order("last_sync_attempt_at ASC NULLS FIRST")
}

// ClaimContact atomically flips an eligible contact to in_progress.
// Returns false when another worker already holds the record.
func (s *Store) ClaimContact(id uint) (bool, error) {
	return s.claim(models.Contact{}.TableName(), id)
}

// ClaimConsultation atomically flips an eligible consultation to in_progress
func (s *Store) ClaimConsultation(id uint) (bool, error) {
	return s.claim(models.Consultation{}.TableName(), id)
}

func (s *Store) claim(table string, id uint) (bool, error) {
	cutoff := time.Now().UTC().Add(-staleClaimAfter)
	res := s.db.Table(table).
		Where("id = ?", id).
		Where("sync_attempts < ?", s.maxAttempts).
		Where(s.db.Where("sync_status IN ?", []string{models.SyncStatusPending, models.SyncStatusFailed}).
			Or(s.db.Where("sync_status = ?", models.SyncStatusInProgress).
				Where("last_sync_attempt_at < ?", cutoff))).
		Updates(map[string]interface{}{
			"sync_status": models.SyncStatusInProgress,
			// Stamped at claim time so an abandoned claim ages out even if the
			// worker dies before the first mark
			"last_sync_attempt_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return false, apperrors.NewStoreError("failed to claim record", res.Error)
	}
	return res.RowsAffected == 1, nil
}

// MarkContactSynced records a successful sync: terminal status, attempt
// counted, error cleared, remote lead id stored.
func (s *Store) MarkContactSynced(id uint, crmLeadID int64) error {
	res := s.db.Model(&models.Contact{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"sync_status":          models.SyncStatusSynced,
			"sync_attempts":        gorm.Expr("sync_attempts + 1"),
			"last_sync_attempt_at": time.Now().UTC(),
			"sync_error":           "",
			"crm_lead_id":          crmLeadID,
		})
	return s.markResult(res, id)
}

// MarkContactFailed records a failed attempt and the error text
func (s *Store) MarkContactFailed(id uint, errorMessage string) error {
	res := s.db.Model(&models.Contact{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"sync_status":          models.SyncStatusFailed,
			"sync_attempts":        gorm.Expr("sync_attempts + 1"),
			"last_sync_attempt_at": time.Now().UTC(),
			"sync_error":           errorMessage,
		})
	return s.markResult(res, id)
}

// MarkConsultationSynced records a successful consultation sync
func (s *Store) MarkConsultationSynced(id uint, crmLeadID, crmMeetingID int64) error {
	res := s.db.Model(&models.Consultation{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"sync_status":          models.SyncStatusSynced,
			"sync_attempts":        gorm.Expr("sync_attempts + 1"),
			"last_sync_attempt_at": time.Now().UTC(),
			"sync_error":           "",
			"crm_lead_id":          crmLeadID,
			"crm_meeting_id":       crmMeetingID,
		})
	return s.markResult(res, id)
}

// MarkConsultationFailed records a failed attempt and the error text
func (s *Store) MarkConsultationFailed(id uint, errorMessage string) error {
	res := s.db.Model(&models.Consultation{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"sync_status":          models.SyncStatusFailed,
			"sync_attempts":        gorm.Expr("sync_attempts + 1"),
			"last_sync_attempt_at": time.Now().UTC(),
			"sync_error":           errorMessage,
		})
	return s.markResult(res, id)
}

func (s *Store) markResult(res *gorm.DB, id uint) error {
	if res.Error != nil {
		return apperrors.NewStoreError("failed to update sync state", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperrors.NewNotFoundError("record not found", nil)
	}
	return nil
}

// UpsertSyncTask updates the audit row for an entity, creating it on the
// first attempt. The payload snapshot is stored alongside for diagnostics.
func (s *Store) UpsertSyncTask(entityType string, entityID uint, status string, lastError string, payload interface{}) error {
	var snapshot []byte
	if payload != nil {
		snapshot, _ = json.Marshal(payload)
	}

	task := models.SyncTask{
		Direction:  models.SyncDirectionPush,
		EntityType: entityType,
		EntityID:   entityID,
		Status:     status,
		Attempts:   1,
		LastError:  lastError,
		Payload:    datatypes.JSON(snapshot),
	}

	err := s.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "direction"}, {Name: "entity_type"}, {Name: "entity_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"status":     status,
			"attempts":   gorm.Expr("sync_tasks.attempts + 1"),
			"last_error": lastError,
			"payload":    snapshot,
			"updated_at": time.Now().UTC(),
		}),
	}).Create(&task).Error
	if err != nil {
		return apperrors.NewStoreError("failed to upsert sync task", err)
	}
	return nil
}

// ListSyncTasks returns the audit rows for an entity
func (s *Store) ListSyncTasks(entityType string, entityID uint) ([]models.SyncTask, error) {
	var tasks []models.SyncTask
	if err := s.db.
		Where("entity_type = ? AND entity_id = ?", entityType, entityID).
		Order("updated_at DESC").
		Find(&tasks).Error; err != nil {
		return nil, apperrors.NewStoreError("failed to list sync tasks", err)
	}
	return tasks, nil
}

// StatusCounts returns the number of records per sync status for a table
func (s *Store) StatusCounts(table string) (map[string]int64, error) {
	type row struct {
		SyncStatus string
		Count      int64
	}
	var rows []row
	if err := s.db.Table(table).
		Select("sync_status, count(*) as count").
		Group("sync_status").
		Scan(&rows).Error; err != nil {
		return nil, apperrors.NewStoreError("failed to count sync statuses", err)
	}

	counts := make(map[string]int64, len(rows))
	for _, r := range rows {
		counts[r.SyncStatus] = r.Count
	}
	return counts, nil
}

func validateRequired(name, email, phone string) error {
	if name == "" || email == "" || phone == "" {
		return apperrors.NewValidationError("name, email and phone are required", nil)
	}
	return nil
}

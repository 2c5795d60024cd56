package sync

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/woodentreasures/playhouse-server/internal/models"
	"github.com/woodentreasures/playhouse-server/internal/services/crm"
	"github.com/woodentreasures/playhouse-server/internal/store"
)

// CRMClient is the slice of the CRM client the engine needs. The production
// implementation lives in internal/services/crm; tests substitute stubs.
type CRMClient interface {
	CreateContact(data crm.ContactData) crm.Result
	CreateConsultationMeeting(data crm.ConsultationData) crm.Result
}

// BatchResult summarizes one ProcessPendingSyncs invocation
type BatchResult struct {
	Processed int       `json:"processed"`
	Synced    int       `json:"synced"`
	Failed    int       `json:"failed"`
	StartedAt time.Time `json:"startedAt"`
	Duration  string    `json:"duration"`
}

// Engine drains pending records from the store, pushes them through the CRM
// client and records the outcome. Records are processed sequentially to bound
// load on the CRM; one record's failure never aborts its siblings.
type Engine struct {
	store     *store.Store
	client    CRMClient
	batchSize int

	mu         sync.Mutex
	lastResult *BatchResult
}

// NewEngine creates a sync engine
func NewEngine(st *store.Store, client CRMClient, batchSize int) *Engine {
	if batchSize <= 0 {
		batchSize = 25
	}
	return &Engine{
		store:     st,
		client:    client,
		batchSize: batchSize,
	}
}

// ProcessPendingSyncs runs one batch over both entity kinds. Store failures
// abort the batch; everything CRM-side is recorded per record and retried on
// the next run until the attempt ceiling.
func (e *Engine) ProcessPendingSyncs(ctx context.Context) (BatchResult, error) {
	result := BatchResult{StartedAt: time.Now().UTC()}

	consultations, err := e.store.ListPendingConsultations(e.batchSize)
	if err != nil {
		return result, err
	}
	for i := range consultations {
		if ctx.Err() != nil {
			return e.finish(result), ctx.Err()
		}
		e.syncConsultation(&consultations[i], &result)
	}

	contacts, err := e.store.ListPendingContacts(e.batchSize)
	if err != nil {
		return e.finish(result), err
	}
	for i := range contacts {
		if ctx.Err() != nil {
			return e.finish(result), ctx.Err()
		}
		e.syncContact(&contacts[i], &result)
	}

	result = e.finish(result)
	if result.Processed > 0 {
		logrus.WithFields(logrus.Fields{
			"processed": result.Processed,
			"synced":    result.Synced,
			"failed":    result.Failed,
		}).Info("Sync batch completed")
	}
	return result, nil
}

func (e *Engine) finish(result BatchResult) BatchResult {
	result.Duration = time.Since(result.StartedAt).String()
	e.mu.Lock()
	e.lastResult = &result
	e.mu.Unlock()
	return result
}

// LastResult returns the most recent batch summary, nil before the first run
func (e *Engine) LastResult() *BatchResult {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastResult
}

// syncContact processes a single contact record end to end
func (e *Engine) syncContact(c *models.Contact, result *BatchResult) {
	log := logrus.WithFields(logrus.Fields{
		"entity": models.EntityTypeContact,
		"id":     c.ID,
	})

	claimed, err := e.store.ClaimContact(c.ID)
	if err != nil {
		log.WithError(err).Error("Failed to claim contact")
		return
	}
	if !claimed {
		// Another path holds the record, its outcome will be recorded there
		return
	}
	result.Processed++

	data := crm.ContactData{
		ExternalRef: c.ExternalRef,
		Name:        c.Name,
		Email:       c.Email,
		Phone:       c.Phone,
		Message:     c.Message,
	}

	res := e.client.CreateContact(data)
	if res.OK() {
		if err := e.store.MarkContactSynced(c.ID, res.LeadID); err != nil {
			log.WithError(err).Error("Failed to mark contact synced")
			return
		}
		result.Synced++
		e.recordTask(models.EntityTypeContact, c.ID, models.SyncStatusSynced, "", data)
		return
	}

	log.WithField("reason", res.Message).Warn("Contact sync attempt failed")
	if err := e.store.MarkContactFailed(c.ID, res.Message); err != nil {
		log.WithError(err).Error("Failed to mark contact failed")
		return
	}
	result.Failed++
	e.recordTask(models.EntityTypeContact, c.ID, models.SyncStatusFailed, res.Message, data)
}

// syncConsultation processes a single consultation record end to end
func (e *Engine) syncConsultation(c *models.Consultation, result *BatchResult) {
	log := logrus.WithFields(logrus.Fields{
		"entity": models.EntityTypeConsultation,
		"id":     c.ID,
	})

	claimed, err := e.store.ClaimConsultation(c.ID)
	if err != nil {
		log.WithError(err).Error("Failed to claim consultation")
		return
	}
	if !claimed {
		return
	}
	result.Processed++

	data := crm.ConsultationData{
		ExternalRef:   c.ExternalRef,
		Name:          c.Name,
		Email:         c.Email,
		Phone:         c.Phone,
		Message:       c.Message,
		PreferredDate: c.PreferredDate,
		PreferredTime: c.PreferredTime,
	}

	res := e.client.CreateConsultationMeeting(data)
	if res.OK() {
		if err := e.store.MarkConsultationSynced(c.ID, res.LeadID, res.MeetingID); err != nil {
			log.WithError(err).Error("Failed to mark consultation synced")
			return
		}
		result.Synced++
		e.recordTask(models.EntityTypeConsultation, c.ID, models.SyncStatusSynced, "", data)
		return
	}

	log.WithField("reason", res.Message).Warn("Consultation sync attempt failed")
	if err := e.store.MarkConsultationFailed(c.ID, res.Message); err != nil {
		log.WithError(err).Error("Failed to mark consultation failed")
		return
	}
	result.Failed++
	e.recordTask(models.EntityTypeConsultation, c.ID, models.SyncStatusFailed, res.Message, data)
}

// recordTask updates the audit trail; audit failures are logged, never fatal
func (e *Engine) recordTask(entityType string, id uint, status, lastError string, payload interface{}) {
	if err := e.store.UpsertSyncTask(entityType, id, status, lastError, payload); err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{
			"entity": entityType,
			"id":     id,
		}).Error("Failed to record sync task")
	}
}

// SyncContactNow performs the best-effort immediate sync after a submission.
// Failures are downgraded to a warning; the caller reports the record as
// queued either way. Returns the record's status after the attempt.
func (e *Engine) SyncContactNow(id uint) string {
	c, err := e.store.GetContact(id)
	if err != nil {
		logrus.WithError(err).Warn("Immediate contact sync skipped")
		return models.SyncStatusPending
	}

	var result BatchResult
	e.syncContact(c, &result)

	updated, err := e.store.GetContact(id)
	if err != nil {
		return models.SyncStatusPending
	}
	return updated.SyncStatus
}

// SyncConsultationNow performs the best-effort immediate sync after a submission
func (e *Engine) SyncConsultationNow(id uint) string {
	c, err := e.store.GetConsultation(id)
	if err != nil {
		logrus.WithError(err).Warn("Immediate consultation sync skipped")
		return models.SyncStatusPending
	}

	var result BatchResult
	e.syncConsultation(c, &result)

	updated, err := e.store.GetConsultation(id)
	if err != nil {
		return models.SyncStatusPending
	}
	return updated.SyncStatus
}

package sync

import (
	"context"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/woodentreasures/playhouse-server/internal/models"
	"github.com/woodentreasures/playhouse-server/internal/services/crm"
	"github.com/woodentreasures/playhouse-server/internal/store"
)

// stubCRM scripts CRM responses per call and counts invocations
type stubCRM struct {
	calls    int
	results  []crm.Result
	fallback crm.Result

	lastContact      crm.ContactData
	lastConsultation crm.ConsultationData
}

func (s *stubCRM) next() crm.Result {
	s.calls++
	if len(s.results) > 0 {
		r := s.results[0]
		s.results = s.results[1:]
		return r
	}
	return s.fallback
}

func (s *stubCRM) CreateContact(data crm.ContactData) crm.Result {
	s.lastContact = data
	return s.next()
}

func (s *stubCRM) CreateConsultationMeeting(data crm.ConsultationData) crm.Result {
	s.lastConsultation = data
	return s.next()
}

func newTestEngine(t *testing.T, maxAttempts int, client CRMClient) (*Engine, *store.Store) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	if err := db.AutoMigrate(&models.Contact{}, &models.Consultation{}, &models.SyncTask{}); err != nil {
		t.Fatalf("Failed to migrate schema: %v", err)
	}

	st := store.New(db, maxAttempts)
	return NewEngine(st, client, 10), st
}

func TestProcessPendingSyncsEmpty(t *testing.T) {
	client := &stubCRM{fallback: crm.Result{Status: crm.StatusSuccess, LeadID: 1}}
	engine, _ := newTestEngine(t, 5, client)

	result, err := engine.ProcessPendingSyncs(context.Background())
	if err != nil {
		t.Fatalf("Empty batch must not error: %v", err)
	}
	if result.Processed != 0 {
		t.Errorf("Expected 0 processed, got %d", result.Processed)
	}
	if client.calls != 0 {
		t.Errorf("Empty pending set must perform zero CRM calls, got %d", client.calls)
	}
}

func TestConsultationSyncedOnFirstAttempt(t *testing.T) {
	client := &stubCRM{fallback: crm.Result{Status: crm.StatusSuccess, LeadID: 101, MeetingID: 202}}
	engine, st := newTestEngine(t, 5, client)

	id, err := st.CreateConsultation(&models.Consultation{
		Name:          "Test User",
		Email:         "test@example.com",
		Phone:         "1234567890",
		PreferredDate: "2025-02-27",
		PreferredTime: "15:30",
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	result, err := engine.ProcessPendingSyncs(context.Background())
	if err != nil {
		t.Fatalf("Batch failed: %v", err)
	}
	if result.Processed != 1 || result.Synced != 1 || result.Failed != 0 {
		t.Errorf("Unexpected batch result: %+v", result)
	}

	c, err := st.GetConsultation(id)
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if c.SyncStatus != models.SyncStatusSynced {
		t.Errorf("Expected synced, got %s", c.SyncStatus)
	}
	if c.SyncAttempts != 1 {
		t.Errorf("Expected 1 attempt, got %d", c.SyncAttempts)
	}
	if c.SyncError != "" {
		t.Errorf("Expected no sync error, got %q", c.SyncError)
	}
	if c.CRMLeadID != 101 || c.CRMMeetingID != 202 {
		t.Errorf("Remote ids not stored: %d/%d", c.CRMLeadID, c.CRMMeetingID)
	}

	if client.lastConsultation.PreferredDate != "2025-02-27" || client.lastConsultation.PreferredTime != "15:30" {
		t.Errorf("Preferred slot not passed to CRM client: %+v", client.lastConsultation)
	}
	if client.lastConsultation.ExternalRef == "" {
		t.Error("External ref must be passed to the CRM client")
	}
}

func TestRecordSyncsOnThirdBatch(t *testing.T) {
	client := &stubCRM{
		results: []crm.Result{
			{Status: crm.StatusTransport, Message: "connection refused"},
			{Status: crm.StatusTransport, Message: "connection refused"},
		},
		fallback: crm.Result{Status: crm.StatusSuccess, LeadID: 7},
	}
	engine, st := newTestEngine(t, 5, client)

	id, err := st.CreateContact(&models.Contact{Name: "Retry", Email: "r@example.com", Phone: "1"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	for batch := 1; batch <= 3; batch++ {
		if _, err := engine.ProcessPendingSyncs(context.Background()); err != nil {
			t.Fatalf("Batch %d failed: %v", batch, err)
		}

		c, err := st.GetContact(id)
		if err != nil {
			t.Fatalf("Fetch failed: %v", err)
		}
		if c.SyncAttempts != batch {
			t.Errorf("After batch %d expected %d attempts, got %d", batch, batch, c.SyncAttempts)
		}
		if batch < 3 && c.SyncStatus != models.SyncStatusFailed {
			t.Errorf("After batch %d expected failed, got %s", batch, c.SyncStatus)
		}
		if batch == 3 && c.SyncStatus != models.SyncStatusSynced {
			t.Errorf("After batch 3 expected synced, got %s", c.SyncStatus)
		}
	}

	if client.calls != 3 {
		t.Errorf("Expected exactly 3 CRM calls, got %d", client.calls)
	}
}

func TestRecordTerminalAfterMaxAttempts(t *testing.T) {
	const maxAttempts = 3

	client := &stubCRM{fallback: crm.Result{Status: crm.StatusValidation, Message: "missing field"}}
	engine, st := newTestEngine(t, maxAttempts, client)

	id, err := st.CreateContact(&models.Contact{Name: "Doomed", Email: "d@example.com", Phone: "1"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	// MaxAttempts batches exhaust the record, further batches must skip it
	for batch := 0; batch < maxAttempts+2; batch++ {
		if _, err := engine.ProcessPendingSyncs(context.Background()); err != nil {
			t.Fatalf("Batch failed: %v", err)
		}
	}

	c, err := st.GetContact(id)
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if c.SyncStatus != models.SyncStatusFailed {
		t.Errorf("Expected terminal failed, got %s", c.SyncStatus)
	}
	if c.SyncAttempts != maxAttempts {
		t.Errorf("Expected attempts capped at %d, got %d", maxAttempts, c.SyncAttempts)
	}
	if c.SyncError != "missing field" {
		t.Errorf("Expected last error recorded, got %q", c.SyncError)
	}
	if client.calls != maxAttempts {
		t.Errorf("Expected exactly %d CRM calls, got %d", maxAttempts, client.calls)
	}

	pending, err := st.ListPendingContacts(10)
	if err != nil {
		t.Fatalf("ListPending failed: %v", err)
	}
	if len(pending) != 0 {
		t.Errorf("Exhausted record must be excluded from pending, got %d", len(pending))
	}
}

func TestOneFailureDoesNotAbortBatch(t *testing.T) {
	client := &stubCRM{
		results: []crm.Result{
			{Status: crm.StatusTransport, Message: "boom"},
		},
		fallback: crm.Result{Status: crm.StatusSuccess, LeadID: 9},
	}
	engine, st := newTestEngine(t, 5, client)

	if _, err := st.CreateContact(&models.Contact{Name: "A", Email: "a@example.com", Phone: "1"}); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if _, err := st.CreateContact(&models.Contact{Name: "B", Email: "b@example.com", Phone: "1"}); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	result, err := engine.ProcessPendingSyncs(context.Background())
	if err != nil {
		t.Fatalf("Batch failed: %v", err)
	}
	if result.Processed != 2 {
		t.Errorf("Both records must be processed, got %d", result.Processed)
	}
	if result.Synced != 1 || result.Failed != 1 {
		t.Errorf("Expected one success and one failure, got %+v", result)
	}
}

func TestSyncContactNowImmediatePath(t *testing.T) {
	client := &stubCRM{fallback: crm.Result{Status: crm.StatusSuccess, LeadID: 11}}
	engine, st := newTestEngine(t, 5, client)

	id, err := st.CreateContact(&models.Contact{Name: "Now", Email: "now@example.com", Phone: "1"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	status := engine.SyncContactNow(id)
	if status != models.SyncStatusSynced {
		t.Errorf("Expected synced, got %s", status)
	}

	// Terminal state is idempotent: another immediate sync performs no call
	before := client.calls
	status = engine.SyncContactNow(id)
	if status != models.SyncStatusSynced {
		t.Errorf("Expected synced to be sticky, got %s", status)
	}
	if client.calls != before {
		t.Error("Synced record must not be re-submitted to the CRM")
	}
}

func TestAuditTrailWritten(t *testing.T) {
	client := &stubCRM{fallback: crm.Result{Status: crm.StatusSuccess, LeadID: 5}}
	engine, st := newTestEngine(t, 5, client)

	id, err := st.CreateContact(&models.Contact{Name: "Audit", Email: "audit@example.com", Phone: "1"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if _, err := engine.ProcessPendingSyncs(context.Background()); err != nil {
		t.Fatalf("Batch failed: %v", err)
	}

	tasks, err := st.ListSyncTasks(models.EntityTypeContact, id)
	if err != nil {
		t.Fatalf("Failed to read audit trail: %v", err)
	}
	if len(tasks) != 1 {
		t.Fatalf("Expected one audit row, got %d", len(tasks))
	}
	if tasks[0].Status != models.SyncStatusSynced {
		t.Errorf("Expected audit status synced, got %s", tasks[0].Status)
	}
	if tasks[0].Direction != models.SyncDirectionPush {
		t.Errorf("Expected push direction, got %s", tasks[0].Direction)
	}
}

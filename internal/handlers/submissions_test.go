package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/woodentreasures/playhouse-server/internal/models"
	"github.com/woodentreasures/playhouse-server/internal/store"
	"github.com/woodentreasures/playhouse-server/internal/utils"
)

const testJWTSecret = "test-secret"

func newTestRouter(t *testing.T) (*Router, *store.Store) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Contact{}, &models.Consultation{}, &models.SyncTask{}, &models.UserAuth{}))

	st := store.New(db, 5)
	// nil engine/client: the CRM-disabled configuration
	return NewRouter(st, nil, nil, testJWTSecret), st
}

func postJSON(t *testing.T, router *Router, path string, body map[string]interface{}) *httptest.ResponseRecorder {
	t.Helper()

	payload, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestSubmitContactSnakeCase(t *testing.T) {
	router, st := newTestRouter(t)

	rec := postJSON(t, router, "/api/contact", map[string]interface{}{
		"name":         "Test User",
		"email":        "test@example.com",
		"phone_number": "1234567890",
		"message":      "I want a castle playhouse",
	})

	assert.Equal(t, http.StatusCreated, rec.Code)

	var resp struct {
		ID         uint   `json:"id"`
		SyncStatus string `json:"syncStatus"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, models.SyncStatusPending, resp.SyncStatus)

	contact, err := st.GetContact(resp.ID)
	require.NoError(t, err)
	assert.Equal(t, "Test User", contact.Name)
	assert.Equal(t, "1234567890", contact.Phone)
	assert.Equal(t, "I want a castle playhouse", contact.Message)
}

func TestSubmitContactCamelCase(t *testing.T) {
	router, st := newTestRouter(t)

	rec := postJSON(t, router, "/api/contact", map[string]interface{}{
		"firstName":   "Test",
		"lastName":    "User",
		"email":       "test@example.com",
		"phoneNumber": "1234567890",
	})

	require.Equal(t, http.StatusCreated, rec.Code)

	var resp struct {
		ID uint `json:"id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	contact, err := st.GetContact(resp.ID)
	require.NoError(t, err)
	// Same canonical shape regardless of the client's field naming
	assert.Equal(t, "Test User", contact.Name)
	assert.Equal(t, "1234567890", contact.Phone)
}

func TestSubmitContactValidation(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := postJSON(t, router, "/api/contact", map[string]interface{}{
		"name":  "No Phone",
		"email": "test@example.com",
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSubmitConsultationWithSlot(t *testing.T) {
	router, st := newTestRouter(t)

	rec := postJSON(t, router, "/api/consultation", map[string]interface{}{
		"name":           "Test User",
		"email":          "test@example.com",
		"phone":          "1234567890",
		"preferred_date": "2025-02-27",
		"preferredTime":  "15:30",
	})

	require.Equal(t, http.StatusCreated, rec.Code)

	var resp struct {
		ID         uint   `json:"id"`
		SyncStatus string `json:"syncStatus"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, models.SyncStatusPending, resp.SyncStatus)

	c, err := st.GetConsultation(resp.ID)
	require.NoError(t, err)
	assert.Equal(t, "2025-02-27", c.PreferredDate)
	assert.Equal(t, "15:30", c.PreferredTime)
	assert.Equal(t, 0, c.SyncAttempts)
}

func TestAdminEndpointsRequireAuth(t *testing.T) {
	router, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/sync/status", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLoginAndSyncStatus(t *testing.T) {
	router, st := newTestRouter(t)

	hash, err := utils.HashPassword("hunter2")
	require.NoError(t, err)
	require.NoError(t, st.EnsureAdmin("admin@example.com", hash))

	rec := postJSON(t, router, "/auth/login", map[string]interface{}{
		"email":    "admin@example.com",
		"password": "hunter2",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var tokens struct {
		AccessToken string `json:"accessToken"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &tokens))
	require.NotEmpty(t, tokens.AccessToken)

	req := httptest.NewRequest(http.MethodGet, "/api/sync/status", nil)
	req.Header.Set("Authorization", "Bearer "+tokens.AccessToken)
	statusRec := httptest.NewRecorder()
	router.ServeHTTP(statusRec, req)

	require.Equal(t, http.StatusOK, statusRec.Code)

	var status map[string]interface{}
	require.NoError(t, json.Unmarshal(statusRec.Body.Bytes(), &status))
	assert.Contains(t, status, "contacts")
	assert.Contains(t, status, "consultations")
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	router, st := newTestRouter(t)

	hash, err := utils.HashPassword("hunter2")
	require.NoError(t, err)
	require.NoError(t, st.EnsureAdmin("admin@example.com", hash))

	rec := postJSON(t, router, "/auth/login", map[string]interface{}{
		"email":    "admin@example.com",
		"password": "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestTestConnectionDisabled(t *testing.T) {
	router, st := newTestRouter(t)

	hash, err := utils.HashPassword("hunter2")
	require.NoError(t, err)
	require.NoError(t, st.EnsureAdmin("admin@example.com", hash))

	rec := postJSON(t, router, "/auth/login", map[string]interface{}{
		"email":    "admin@example.com",
		"password": "hunter2",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var tokens struct {
		AccessToken string `json:"accessToken"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &tokens))

	req := httptest.NewRequest(http.MethodGet, "/api/crm/test-connection", nil)
	req.Header.Set("Authorization", "Bearer "+tokens.AccessToken)
	connRec := httptest.NewRecorder()
	router.ServeHTTP(connRec, req)

	assert.Equal(t, http.StatusServiceUnavailable, connRec.Code)
}

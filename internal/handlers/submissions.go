package handlers

import (
	"encoding/json"
	"net/http"

	apperrors "github.com/woodentreasures/playhouse-server/internal/errors"
	"github.com/woodentreasures/playhouse-server/internal/models"
)

// submitContact accepts a contact form submission, stores it durably and
// fires a best-effort immediate sync. The submission succeeds even when the
// CRM is down: the record is queued and the worker picks it up later.
func (r *Router) submitContact(w http.ResponseWriter, req *http.Request) {
	payload, err := decodeSubmission(req)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	contact := &models.Contact{
		Name:    payload.name(),
		Email:   payload.email(),
		Phone:   payload.phone(),
		Message: payload.message(),
	}

	id, err := r.store.CreateContact(contact)
	if err != nil {
		if apperrors.IsValidation(err) {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to store submission")
		return
	}

	syncStatus := models.SyncStatusPending
	if r.engine != nil {
		syncStatus = r.engine.SyncContactNow(id)
	}

	respondJSON(w, http.StatusCreated, map[string]interface{}{
		"id":         id,
		"syncStatus": syncStatus,
	})
}

// submitConsultation accepts a consultation request, optionally with a
// preferred meeting slot
func (r *Router) submitConsultation(w http.ResponseWriter, req *http.Request) {
	payload, err := decodeSubmission(req)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	consultation := &models.Consultation{
		Name:          payload.name(),
		Email:         payload.email(),
		Phone:         payload.phone(),
		Message:       payload.message(),
		PreferredDate: payload.pick("preferred_date", "preferredDate"),
		PreferredTime: payload.pick("preferred_time", "preferredTime"),
	}

	id, err := r.store.CreateConsultation(consultation)
	if err != nil {
		if apperrors.IsValidation(err) {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to store submission")
		return
	}

	syncStatus := models.SyncStatusPending
	if r.engine != nil {
		syncStatus = r.engine.SyncConsultationNow(id)
	}

	respondJSON(w, http.StatusCreated, map[string]interface{}{
		"id":         id,
		"syncStatus": syncStatus,
	})
}

// submission holds the raw form payload. Form clients send a mix of snake_case
// and camelCase field names; normalization to the canonical shape happens
// here, before the store and the CRM client ever see the data.
type submission map[string]interface{}

func decodeSubmission(req *http.Request) (submission, error) {
	var payload submission
	if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
		return nil, err
	}
	return payload, nil
}

// pick returns the first non-empty string among the given keys
func (s submission) pick(keys ...string) string {
	for _, key := range keys {
		if v, ok := s[key].(string); ok && v != "" {
			return v
		}
	}
	return ""
}

func (s submission) name() string {
	if v := s.pick("name", "full_name", "fullName"); v != "" {
		return v
	}
	first := s.pick("first_name", "firstName")
	last := s.pick("last_name", "lastName")
	if first != "" && last != "" {
		return first + " " + last
	}
	return first + last
}

func (s submission) email() string {
	return s.pick("email", "email_address", "emailAddress")
}

func (s submission) phone() string {
	return s.pick("phone", "phone_number", "phoneNumber")
}

func (s submission) message() string {
	return s.pick("message", "notes", "comments")
}

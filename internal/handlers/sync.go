package handlers

import (
	"net/http"

	"github.com/woodentreasures/playhouse-server/internal/models"
)

// testConnection reports CRM endpoint health for monitoring
func (r *Router) testConnection(w http.ResponseWriter, req *http.Request) {
	if r.crmClient == nil {
		respondError(w, http.StatusServiceUnavailable, "CRM sync is disabled (CRM_URL not configured)")
		return
	}
	report := r.crmClient.TestConnection()
	respondJSON(w, http.StatusOK, report)
}

// runSync triggers one sync batch on demand, in addition to the timer
func (r *Router) runSync(w http.ResponseWriter, req *http.Request) {
	if r.engine == nil {
		respondError(w, http.StatusServiceUnavailable, "CRM sync is disabled (CRM_URL not configured)")
		return
	}
	result, err := r.engine.ProcessPendingSyncs(req.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// syncStatus reports per-status record counts and the last batch summary
func (r *Router) syncStatus(w http.ResponseWriter, req *http.Request) {
	contactCounts, err := r.store.StatusCounts(models.Contact{}.TableName())
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	consultationCounts, err := r.store.StatusCounts(models.Consultation{}.TableName())
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	resp := map[string]interface{}{
		"contacts":      contactCounts,
		"consultations": consultationCounts,
	}
	if r.engine != nil {
		resp["lastBatch"] = r.engine.LastResult()
	}
	respondJSON(w, http.StatusOK, resp)
}

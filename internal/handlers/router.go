package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/woodentreasures/playhouse-server/internal/middleware"
	"github.com/woodentreasures/playhouse-server/internal/services/crm"
	"github.com/woodentreasures/playhouse-server/internal/store"
	"github.com/woodentreasures/playhouse-server/internal/sync"
)

// ConnectionTester is the monitoring slice of the CRM client
type ConnectionTester interface {
	TestConnection() crm.ConnectionReport
}

// Router wraps the mux router and the sync subsystem dependencies.
// engine and crmClient are nil when CRM sync is disabled.
type Router struct {
	*mux.Router
	store     *store.Store
	engine    *sync.Engine
	crmClient ConnectionTester
	jwtSecret string
}

// NewRouter creates a new HTTP router with all routes
func NewRouter(st *store.Store, engine *sync.Engine, crmClient ConnectionTester, jwtSecret string) *Router {
	r := &Router{
		Router:    mux.NewRouter(),
		store:     st,
		engine:    engine,
		crmClient: crmClient,
		jwtSecret: jwtSecret,
	}

	// Health check endpoint
	r.HandleFunc("/health", r.healthCheck).Methods("GET")

	// Public form submission endpoints
	r.HandleFunc("/api/contact", r.submitContact).Methods("POST")
	r.HandleFunc("/api/consultation", r.submitConsultation).Methods("POST")

	// Auth
	r.HandleFunc("/auth/login", r.login).Methods("POST")

	// Sync control endpoints (admin only)
	admin := r.PathPrefix("/api").Subrouter()
	admin.Use(middleware.Auth(jwtSecret))
	admin.HandleFunc("/crm/test-connection", r.testConnection).Methods("GET")
	admin.HandleFunc("/sync/run", r.runSync).Methods("POST")
	admin.HandleFunc("/sync/status", r.syncStatus).Methods("GET")

	return r
}

// Handler returns the http.Handler for the server
func (r *Router) Handler() http.Handler {
	return r.Router
}

// healthCheck returns the health status of the API
func (r *Router) healthCheck(w http.ResponseWriter, req *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}

// respondJSON sends a JSON response
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondError sends an error response
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"error": message,
	})
}

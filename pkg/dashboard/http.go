package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/synaptica-ai/vitals/pkg/appointments"
	"github.com/synaptica-ai/vitals/pkg/common/logger"
	"github.com/synaptica-ai/vitals/pkg/observability/metrics"
	"github.com/synaptica-ai/vitals/pkg/records"
	"github.com/synaptica-ai/vitals/pkg/session"
)

const (
	SessionCookie = "dashboard_session"
	SessionHeader = "X-Session-ID"
)

type HTTPHandler struct {
	service      *Service
	sessions     session.Store
	appointments *appointments.Service
	sessionTTL   time.Duration
	maxBody      int64
	now          func() time.Time
}

func NewHTTPHandler(service *Service, sessions session.Store, appts *appointments.Service, sessionTTL time.Duration, maxBody int64) *HTTPHandler {
	return &HTTPHandler{
		service:      service,
		sessions:     sessions,
		appointments: appts,
		sessionTTL:   sessionTTL,
		maxBody:      maxBody,
		now:          time.Now,
	}
}

// Register mounts the dashboard API on router, normally the /api/v1 subrouter.
func (h *HTTPHandler) Register(router *mux.Router) {
	router.HandleFunc("/session", h.handleSession).Methods(http.MethodGet)
	router.HandleFunc("/session/login", h.handleLogin).Methods(http.MethodPost)
	router.HandleFunc("/session/logout", h.handleLogout).Methods(http.MethodPost)
	router.HandleFunc("/patients", h.handlePatients).Methods(http.MethodGet)
	router.HandleFunc("/overview", h.handleOverview).Methods(http.MethodGet)
	router.HandleFunc("/history", h.handleHistory).Methods(http.MethodGet)
	router.HandleFunc("/appointments", h.handleBook).Methods(http.MethodPost)
}

func (h *HTTPHandler) handleSession(w http.ResponseWriter, r *http.Request) {
	sess, err := h.current(r.Context(), r)
	if err != nil {
		logger.Log.WithError(err).Error("failed to load session")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (h *HTTPHandler) handleLogin(w http.ResponseWriter, r *http.Request) {
	h.limitBody(w, r)

	var creds session.Credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	sess, err := h.current(r.Context(), r)
	if err != nil {
		logger.Log.WithError(err).Error("failed to load session")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	next, err := session.Login(sess, creds, h.service.records, records.CanonicalID)
	if err != nil {
		metrics.ObserveLogin(false)
		switch {
		case errors.Is(err, session.ErrEmptyPatientID):
			http.Error(w, "Please enter a Patient ID", http.StatusBadRequest)
		case errors.Is(err, session.ErrPatientUnknown):
			logger.Log.WithField("patient_id", creds.PatientID).Info("login rejected")
			http.Error(w, "Invalid Patient ID", http.StatusUnauthorized)
		default:
			http.Error(w, "internal error", http.StatusInternalServerError)
		}
		return
	}
	metrics.ObserveLogin(true)

	if !h.save(w, r, next) {
		return
	}
	logger.Log.WithFields(map[string]interface{}{
		"session_id": next.ID,
		"patient_id": next.PatientID,
	}).Info("Patient logged in")
	writeJSON(w, http.StatusOK, next)
}

func (h *HTTPHandler) handleLogout(w http.ResponseWriter, r *http.Request) {
	sess, stored, err := h.lookup(r.Context(), r)
	if err != nil {
		logger.Log.WithError(err).Error("failed to load session")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	next := session.Logout(sess)
	// Nothing to persist for callers that never had a session.
	if stored && !h.save(w, r, next) {
		return
	}
	writeJSON(w, http.StatusOK, next)
}

func (h *HTTPHandler) handlePatients(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"patient_ids": h.service.PatientIDs()})
}

func (h *HTTPHandler) handleOverview(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.authenticated(w, r, session.ViewOverview)
	if !ok {
		return
	}

	view, err := h.service.Overview(r.Context(), sess.PatientID)
	if err != nil {
		h.viewError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *HTTPHandler) handleHistory(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	metric, err := ParseMetric(query.Get("metric"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	chart, err := ParseChart(query.Get("chart"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	sess, ok := h.authenticated(w, r, session.ViewHistory)
	if !ok {
		return
	}

	view, err := h.service.History(r.Context(), sess.PatientID, metric, chart)
	if err != nil {
		h.viewError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *HTTPHandler) handleBook(w http.ResponseWriter, r *http.Request) {
	h.limitBody(w, r)

	sess, ok := h.authenticated(w, r, "")
	if !ok {
		return
	}

	var req appointments.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	appt, err := h.appointments.Book(r.Context(), sess.PatientID, req)
	if err != nil {
		switch {
		case appointments.IsValidationError(err):
			http.Error(w, err.Error(), http.StatusBadRequest)
		case errors.Is(err, appointments.ErrNotRecorded):
			http.Error(w, "appointment could not be recorded", http.StatusServiceUnavailable)
		default:
			logger.Log.WithError(err).Error("failed to book appointment")
			http.Error(w, "internal error", http.StatusInternalServerError)
		}
		return
	}
	writeJSON(w, http.StatusCreated, appt)
}

// authenticated loads the caller's session and, when view is set, moves it
// to that view. It writes the error response itself.
func (h *HTTPHandler) authenticated(w http.ResponseWriter, r *http.Request, view session.View) (session.Session, bool) {
	sess, err := h.current(r.Context(), r)
	if err != nil {
		logger.Log.WithError(err).Error("failed to load session")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return sess, false
	}
	if !sess.Authenticated {
		http.Error(w, "login required", http.StatusUnauthorized)
		return sess, false
	}
	if view == "" || sess.View == view {
		return sess, true
	}

	next, err := session.SelectView(sess, view)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return sess, false
	}
	if !h.save(w, r, next) {
		return next, false
	}
	return next, true
}

// current returns the request's stored session or a fresh logged-out one.
func (h *HTTPHandler) current(ctx context.Context, r *http.Request) (session.Session, error) {
	sess, _, err := h.lookup(ctx, r)
	return sess, err
}

// lookup returns the caller's session and whether it came from the store.
// Unknown or absent IDs yield a fresh, unsaved session.
func (h *HTTPHandler) lookup(ctx context.Context, r *http.Request) (session.Session, bool, error) {
	id := sessionID(r)
	if id == "" {
		return session.New(h.now()), false, nil
	}
	sess, err := h.sessions.Get(ctx, id)
	if errors.Is(err, session.ErrSessionNotFound) {
		return session.New(h.now()), false, nil
	}
	if err != nil {
		return session.Session{}, false, err
	}
	return sess, true, nil
}

func (h *HTTPHandler) save(w http.ResponseWriter, r *http.Request, sess session.Session) bool {
	if err := h.sessions.Save(r.Context(), sess); err != nil {
		logger.Log.WithError(err).Error("failed to save session")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return false
	}
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    sess.ID,
		Path:     "/",
		MaxAge:   int(h.sessionTTL.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	w.Header().Set(SessionHeader, sess.ID)
	return true
}

func (h *HTTPHandler) viewError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, records.ErrPatientNotFound):
		http.Error(w, "Invalid Patient ID", http.StatusUnauthorized)
	default:
		logger.Log.WithError(err).Error("failed to build view")
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func (h *HTTPHandler) limitBody(w http.ResponseWriter, r *http.Request) {
	if h.maxBody > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxBody)
	}
}

func sessionID(r *http.Request) string {
	if id := r.Header.Get(SessionHeader); id != "" {
		return id
	}
	if c, err := r.Cookie(SessionCookie); err == nil {
		return c.Value
	}
	return ""
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

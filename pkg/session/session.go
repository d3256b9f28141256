package session

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

type View string

const (
	ViewLogin    View = "login"
	ViewOverview View = "overview"
	ViewHistory  View = "history"
)

var (
	ErrNotAuthenticated = errors.New("not logged in")
	ErrUnknownView      = errors.New("unknown view")
	ErrEmptyPatientID   = errors.New("patient id required")
	ErrPatientUnknown   = errors.New("invalid patient id")
)

// Session is the per-user state of the dashboard. Login, Logout and
// SelectView take a Session and return the next one.
type Session struct {
	ID            string    `json:"id"`
	PatientID     string    `json:"patient_id,omitempty"`
	Authenticated bool      `json:"authenticated"`
	View          View      `json:"view"`
	CreatedAt     time.Time `json:"created_at"`
}

type Credentials struct {
	PatientID string `json:"patient_id"`
}

// Directory resolves login identifiers against the dataset.
type Directory interface {
	HasPatient(id string) bool
}

func New(now time.Time) Session {
	return Session{
		ID:        uuid.NewString(),
		View:      ViewLogin,
		CreatedAt: now.UTC(),
	}
}

// Login authenticates by exact patient identifier. On failure the input
// session is returned unchanged alongside the error.
func Login(s Session, creds Credentials, dir Directory, canonical func(string) string) (Session, error) {
	id := strings.TrimSpace(creds.PatientID)
	if id == "" {
		return s, ErrEmptyPatientID
	}
	if canonical != nil {
		id = canonical(id)
	}
	if !dir.HasPatient(id) {
		return s, fmt.Errorf("login %q: %w", creds.PatientID, ErrPatientUnknown)
	}
	next := s
	next.PatientID = id
	next.Authenticated = true
	next.View = ViewOverview
	return next, nil
}

func Logout(s Session) Session {
	next := s
	next.PatientID = ""
	next.Authenticated = false
	next.View = ViewLogin
	return next
}

func SelectView(s Session, view View) (Session, error) {
	if !s.Authenticated {
		return s, ErrNotAuthenticated
	}
	switch view {
	case ViewOverview, ViewHistory:
	default:
		return s, fmt.Errorf("%w: %s", ErrUnknownView, view)
	}
	next := s
	next.View = view
	return next, nil
}

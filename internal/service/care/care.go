// Package care implements identity, approval, assignment, notes and alerts
// for one encrypted document store. Every mutation is one store transaction;
// every operation starts with the uniform policy check (tenant match, role
// permission, relationship predicates) before touching the document.
package care

import (
	"context"
	"log/slog"
	"time"

	"github.com/carelog/carelog_backend/internal/model"
	"github.com/carelog/carelog_backend/internal/store"
	"github.com/carelog/carelog_backend/pkg/authorize"
	"github.com/carelog/carelog_backend/pkg/reqctx"
	"github.com/carelog/carelog_backend/pkg/sessiontoken"
	"github.com/carelog/carelog_backend/pkg/util/password"
)

// ---------------------------------------------------------------------------
// DTOs
// ---------------------------------------------------------------------------

type RegisterRequest struct {
	UserID     string
	Password   string
	Role       model.Role
	HospitalID string
	FullName   string
	DOB        string
	Sex        string
	Pronouns   string
	Bio        string
}

type AuthenticateRequest struct {
	UserID   string
	Password string
}

// Auth is the result of a successful authentication.
type Auth struct {
	Session     *reqctx.Session
	AccessToken string
	ExpiresIn   time.Duration
}

type UpdateProfileRequest struct {
	FullName *string
	DOB      *string
	Sex      *string
	Pronouns *string
	Bio      *string
}

type AddNoteRequest struct {
	PatientID string
	Kind      model.NoteKind
	Mood      int
	Pain      int
	Appetite  int
	Narrative string
	Diagnosis string
	// Visibility applies to clinical notes; empty defaults to clinician-only.
	Visibility model.Visibility
	// Private applies to patient journal notes.
	Private bool
}

type NoteFilter struct {
	PatientID string
	Kind      model.NoteKind
	// Search matches case-insensitively against narrative and diagnosis.
	Search string
}

type SetNoteVisibilityRequest struct {
	Visibility *model.Visibility
	Private    *bool
}

// ---------------------------------------------------------------------------
// Service interface
// ---------------------------------------------------------------------------

type Service interface {
	// Identity
	Register(ctx context.Context, req RegisterRequest) (*model.User, error)
	Authenticate(ctx context.Context, req AuthenticateRequest) (*Auth, error)
	VerifyToken(ctx context.Context, token string) (*reqctx.Session, error)
	GetUser(ctx context.Context, sess *reqctx.Session, userID string) (*model.User, error)
	UpdateProfile(ctx context.Context, sess *reqctx.Session, userID string, req UpdateProfileRequest) (*model.User, error)
	ChangePassword(ctx context.Context, sess *reqctx.Session, oldPassword, newPassword string) error
	DeleteUser(ctx context.Context, sess *reqctx.Session, userID string) error

	// Approval workflow
	Approve(ctx context.Context, sess *reqctx.Session, userID string) error
	Reject(ctx context.Context, sess *reqctx.Session, userID string) error
	ListPending(ctx context.Context, sess *reqctx.Session) ([]model.User, error)

	// Assignments
	Assign(ctx context.Context, sess *reqctx.Session, clinicianID, patientID string) error
	Unassign(ctx context.Context, sess *reqctx.Session, clinicianID, patientID string) error
	ListAssignments(ctx context.Context, sess *reqctx.Session) ([]model.Assignment, error)
	SetAssignmentPolicy(ctx context.Context, sess *reqctx.Session, requireAssignment bool) error

	// Directory
	ListUsers(ctx context.Context, sess *reqctx.Session) ([]model.User, error)
	ListPatients(ctx context.Context, sess *reqctx.Session) ([]model.User, error)
	ListClinicians(ctx context.Context, sess *reqctx.Session) ([]model.User, error)

	// Notes and alerts
	AddNote(ctx context.Context, sess *reqctx.Session, req AddNoteRequest) (*model.Note, error)
	ListNotes(ctx context.Context, sess *reqctx.Session, filter NoteFilter) ([]model.Note, error)
	SetNoteVisibility(ctx context.Context, sess *reqctx.Session, noteID string, req SetNoteVisibilityRequest) (*model.Note, error)
	ListAlerts(ctx context.Context, sess *reqctx.Session) ([]model.Alert, error)
	AcknowledgeAlert(ctx context.Context, sess *reqctx.Session, alertID string) (*model.Alert, error)
}

// Options tunes behavior that comes from configuration.
type Options struct {
	PasswordParams *password.Params
	// RequireAssignmentDefault seeds the assignment restriction flag of
	// every newly created hospital.
	RequireAssignmentDefault bool
}

// ---------------------------------------------------------------------------
// Implementation
// ---------------------------------------------------------------------------

type careService struct {
	docs   *store.DocStore
	authz  authorize.IAuthorization
	tokens *sessiontoken.Manager
	opts   Options
	logger *slog.Logger
}

func New(docs *store.DocStore, authz authorize.IAuthorization, tokens *sessiontoken.Manager, opts Options, logger *slog.Logger) Service {
	if opts.PasswordParams == nil {
		opts.PasswordParams = password.DefaultParams()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &careService{
		docs:   docs,
		authz:  authz,
		tokens: tokens,
		opts:   opts,
		logger: logger,
	}
}

// hospitalOf resolves the session's hospital inside a transaction or view.
func hospitalOf(doc *model.Document, sess *reqctx.Session) (*model.Hospital, error) {
	h := doc.Hospital(sess.HospitalID)
	if h == nil {
		return nil, ErrHospitalNotFound
	}
	// The session user may have been deleted since the token was issued.
	if _, ok := h.Users[sess.UserID]; !ok {
		return nil, ErrUserNotFound
	}
	return h, nil
}

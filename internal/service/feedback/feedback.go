// Package feedback implements clinician-gated release of machine-drafted
// feedback on patient journal entries. A request moves drafted -> approved
// -> delivered, or drafted -> rejected; rejected and delivered are terminal
// and nothing a patient sees skips clinician review.
package feedback

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/carelog/carelog_backend/internal/model"
	"github.com/carelog/carelog_backend/internal/store"
	"github.com/carelog/carelog_backend/pkg/authorize"
	"github.com/carelog/carelog_backend/pkg/reqctx"
)

// Drafter produces the initial feedback text for a journal note. Drafting
// runs outside the store transaction; a failed draft leaves the request in
// drafted state with no text.
type Drafter interface {
	Draft(ctx context.Context, note model.Note) (string, error)
}

// ---------------------------------------------------------------------------
// Service interface
// ---------------------------------------------------------------------------

type ReviewRequest struct {
	Approve bool
	// FinalText overrides the draft on approval; empty keeps the draft.
	FinalText string
}

type Service interface {
	// Request opens a feedback request on the patient's own journal note.
	Request(ctx context.Context, sess *reqctx.Session, noteID string) (*model.FeedbackRequest, error)
	// GenerateDraft runs the drafter for a request and stores the result.
	GenerateDraft(ctx context.Context, sess *reqctx.Session, requestID string) (*model.FeedbackRequest, error)
	StoreDraft(ctx context.Context, sess *reqctx.Session, requestID, text string) (*model.FeedbackRequest, error)
	Review(ctx context.Context, sess *reqctx.Session, requestID string, req ReviewRequest) (*model.FeedbackRequest, error)
	// Deliver releases an approved request to its patient.
	Deliver(ctx context.Context, sess *reqctx.Session, requestID string) (*model.FeedbackRequest, error)
	List(ctx context.Context, sess *reqctx.Session) ([]model.FeedbackRequest, error)
	ListPending(ctx context.Context, sess *reqctx.Session) ([]model.FeedbackRequest, error)
}

// ---------------------------------------------------------------------------
// Implementation
// ---------------------------------------------------------------------------

type feedbackService struct {
	docs    *store.DocStore
	authz   authorize.IAuthorization
	drafter Drafter
	logger  *slog.Logger
}

func New(docs *store.DocStore, authz authorize.IAuthorization, drafter Drafter, logger *slog.Logger) Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &feedbackService{docs: docs, authz: authz, drafter: drafter, logger: logger}
}

func (s *feedbackService) Request(ctx context.Context, sess *reqctx.Session, noteID string) (*model.FeedbackRequest, error) {
	if err := s.authz.MustEnforce(ctx, sess.Role, authorize.Domain(sess.HospitalID), authorize.ResourceFeedback, authorize.ActionCreate); err != nil {
		return nil, err
	}

	var out *model.FeedbackRequest
	err := s.docs.Update(ctx, func(doc *model.Document) error {
		h := doc.Hospital(sess.HospitalID)
		if h == nil {
			return authorize.ErrForbidden
		}
		n := h.NoteByID(noteID)
		if n == nil {
			return ErrNoteNotFound
		}
		if n.Kind != model.NoteKindJournal || n.PatientID != sess.UserID {
			return authorize.ErrForbidden
		}
		for _, f := range h.Feedback {
			if f.NoteID == noteID && f.Status != model.FeedbackRejected {
				return ErrAlreadyRequested
			}
		}

		f := &model.FeedbackRequest{
			ID:         uuid.NewString(),
			HospitalID: h.ID,
			NoteID:     noteID,
			PatientID:  sess.UserID,
			Status:     model.FeedbackDrafted,
			CreatedAt:  time.Now().UTC(),
		}
		h.Feedback = append(h.Feedback, f)

		c := *f
		out = &c
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("feedback requested", "request", out.ID, "note", noteID, "hospital", sess.HospitalID)
	return out, nil
}

// GenerateDraft reads the request, runs the drafter without holding the
// writer lock, then stores the text. If drafting fails the request stays
// drafted and empty, and can be retried.
func (s *feedbackService) GenerateDraft(ctx context.Context, sess *reqctx.Session, requestID string) (*model.FeedbackRequest, error) {
	if err := s.authz.MustEnforce(ctx, sess.Role, authorize.Domain(sess.HospitalID), authorize.ResourceFeedback, authorize.ActionDraft); err != nil {
		return nil, err
	}

	var note *model.Note
	var viewErr error
	s.docs.View(ctx, func(doc *model.Document) {
		h := doc.Hospital(sess.HospitalID)
		if h == nil {
			viewErr = authorize.ErrForbidden
			return
		}
		f := h.FeedbackByID(requestID)
		if f == nil {
			viewErr = ErrRequestNotFound
			return
		}
		if f.Status != model.FeedbackDrafted {
			viewErr = ErrInvalidTransition
			return
		}
		n := h.NoteByID(f.NoteID)
		if n == nil {
			viewErr = ErrNoteNotFound
			return
		}
		c := *n
		note = &c
	})
	if viewErr != nil {
		return nil, viewErr
	}

	text, err := s.drafter.Draft(ctx, *note)
	if err != nil {
		s.logger.Error("draft generation failed", "request", requestID, "error", err)
		return nil, err
	}
	return s.StoreDraft(ctx, sess, requestID, text)
}

func (s *feedbackService) StoreDraft(ctx context.Context, sess *reqctx.Session, requestID, text string) (*model.FeedbackRequest, error) {
	if err := s.authz.MustEnforce(ctx, sess.Role, authorize.Domain(sess.HospitalID), authorize.ResourceFeedback, authorize.ActionDraft); err != nil {
		return nil, err
	}
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyDraft
	}

	var out *model.FeedbackRequest
	err := s.docs.Update(ctx, func(doc *model.Document) error {
		h := doc.Hospital(sess.HospitalID)
		if h == nil {
			return authorize.ErrForbidden
		}
		f := h.FeedbackByID(requestID)
		if f == nil {
			return ErrRequestNotFound
		}
		if f.Status != model.FeedbackDrafted {
			return ErrInvalidTransition
		}
		f.DraftText = text

		c := *f
		out = &c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Review approves or rejects a drafted request. Reviewing is clinician work;
// when the hospital requires assignments the reviewer must be assigned to
// the patient.
func (s *feedbackService) Review(ctx context.Context, sess *reqctx.Session, requestID string, req ReviewRequest) (*model.FeedbackRequest, error) {
	if err := s.authz.MustEnforce(ctx, sess.Role, authorize.Domain(sess.HospitalID), authorize.ResourceFeedback, authorize.ActionReview); err != nil {
		return nil, err
	}

	var out *model.FeedbackRequest
	err := s.docs.Update(ctx, func(doc *model.Document) error {
		h := doc.Hospital(sess.HospitalID)
		if h == nil {
			return authorize.ErrForbidden
		}
		f := h.FeedbackByID(requestID)
		if f == nil {
			return ErrRequestNotFound
		}
		if h.Policy.RequireAssignment && !h.Assigned(sess.UserID, f.PatientID) {
			return authorize.ErrForbidden
		}
		if f.Status != model.FeedbackDrafted {
			return ErrInvalidTransition
		}

		now := time.Now().UTC()
		f.ReviewerID = sess.UserID
		f.ReviewedAt = &now
		if req.Approve {
			text := req.FinalText
			if strings.TrimSpace(text) == "" {
				text = f.DraftText
			}
			if strings.TrimSpace(text) == "" {
				return ErrEmptyDraft
			}
			f.Status = model.FeedbackApproved
			f.FinalText = text
		} else {
			f.Status = model.FeedbackRejected
		}

		c := *f
		out = &c
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("feedback reviewed",
		"request", requestID,
		"hospital", sess.HospitalID,
		"status", string(out.Status),
		"by", sess.UserID,
	)
	return out, nil
}

func (s *feedbackService) Deliver(ctx context.Context, sess *reqctx.Session, requestID string) (*model.FeedbackRequest, error) {
	if err := s.authz.MustEnforce(ctx, sess.Role, authorize.Domain(sess.HospitalID), authorize.ResourceFeedback, authorize.ActionDeliver); err != nil {
		return nil, err
	}

	var out *model.FeedbackRequest
	err := s.docs.Update(ctx, func(doc *model.Document) error {
		h := doc.Hospital(sess.HospitalID)
		if h == nil {
			return authorize.ErrForbidden
		}
		f := h.FeedbackByID(requestID)
		if f == nil {
			return ErrRequestNotFound
		}
		if f.PatientID != sess.UserID {
			return authorize.ErrForbidden
		}
		if f.Status != model.FeedbackApproved {
			return ErrInvalidTransition
		}
		f.Status = model.FeedbackDelivered

		c := *f
		out = &c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// List returns the requests the session may see: patients their own,
// clinicians their patients' (all of them when assignments are not
// required), admins everything in the hospital. Drafts are hidden from
// patients until delivery.
func (s *feedbackService) List(ctx context.Context, sess *reqctx.Session) ([]model.FeedbackRequest, error) {
	if err := s.authz.MustEnforce(ctx, sess.Role, authorize.Domain(sess.HospitalID), authorize.ResourceFeedback, authorize.ActionRead); err != nil {
		return nil, err
	}
	return s.list(ctx, sess, nil)
}

func (s *feedbackService) ListPending(ctx context.Context, sess *reqctx.Session) ([]model.FeedbackRequest, error) {
	if err := s.authz.MustEnforce(ctx, sess.Role, authorize.Domain(sess.HospitalID), authorize.ResourceFeedback, authorize.ActionReview); err != nil {
		return nil, err
	}
	return s.list(ctx, sess, func(f *model.FeedbackRequest) bool {
		return f.Status == model.FeedbackDrafted
	})
}

func (s *feedbackService) list(ctx context.Context, sess *reqctx.Session, keep func(*model.FeedbackRequest) bool) ([]model.FeedbackRequest, error) {
	var out []model.FeedbackRequest
	var viewErr error
	s.docs.View(ctx, func(doc *model.Document) {
		h := doc.Hospital(sess.HospitalID)
		if h == nil {
			viewErr = authorize.ErrForbidden
			return
		}
		for _, f := range h.Feedback {
			if !visibleTo(h, sess, f) {
				continue
			}
			if keep != nil && !keep(f) {
				continue
			}
			c := *f
			if sess.Role == model.RolePatient && c.Status != model.FeedbackDelivered {
				// The draft and final text stay invisible until delivery.
				c.DraftText = ""
				c.FinalText = ""
			}
			out = append(out, c)
		}
	})
	if viewErr != nil {
		return nil, viewErr
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func visibleTo(h *model.Hospital, sess *reqctx.Session, f *model.FeedbackRequest) bool {
	switch sess.Role {
	case model.RoleAdmin:
		return true
	case model.RolePatient:
		return f.PatientID == sess.UserID
	case model.RoleClinician:
		return !h.Policy.RequireAssignment || h.Assigned(sess.UserID, f.PatientID)
	}
	return false
}

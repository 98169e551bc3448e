package care

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/carelog/carelog_backend/internal/model"
	"github.com/carelog/carelog_backend/pkg/authorize"
	"github.com/carelog/carelog_backend/pkg/reqctx"
)

// AddNote records a patient journal entry or a clinical note. A pain score
// at the alert threshold raises an open Alert in the same transaction, so a
// persisted note with pain 10 always has its alert.
func (s *careService) AddNote(ctx context.Context, sess *reqctx.Session, req AddNoteRequest) (*model.Note, error) {
	if err := s.authz.MustEnforce(ctx, sess.Role, authorize.Domain(sess.HospitalID), authorize.ResourceNote, authorize.ActionCreate); err != nil {
		return nil, err
	}
	if !model.ValidScore(req.Mood) || !model.ValidScore(req.Pain) || !model.ValidScore(req.Appetite) {
		return nil, ErrInvalidScore
	}
	if strings.TrimSpace(req.Narrative) == "" {
		return nil, ErrEmptyNarrative
	}

	switch sess.Role {
	case model.RolePatient:
		// Patients write journal entries about themselves only.
		if req.Kind != model.NoteKindJournal {
			return nil, ErrInvalidRole
		}
		if req.PatientID != "" && req.PatientID != sess.UserID {
			return nil, authorize.ErrForbidden
		}
		req.PatientID = sess.UserID
		req.Diagnosis = ""
		req.Visibility = ""
	case model.RoleClinician:
		if req.Kind != model.NoteKindClinical {
			return nil, ErrInvalidRole
		}
		if req.Visibility == "" {
			req.Visibility = model.ClinicianOnly
		}
		if req.Visibility != model.ClinicianOnly && req.Visibility != model.VisibleToPatient {
			return nil, ErrInvalidRole
		}
		req.Private = false
	default:
		return nil, ErrInvalidRole
	}

	var created *model.Note
	err := s.docs.Update(ctx, func(doc *model.Document) error {
		h, err := hospitalOf(doc, sess)
		if err != nil {
			return err
		}
		if sess.Role == model.RoleClinician {
			if err := requireApprovedRole(h, req.PatientID, model.RolePatient); err != nil {
				return err
			}
			if h.Policy.RequireAssignment && !h.Assigned(sess.UserID, req.PatientID) {
				return authorize.ErrForbidden
			}
		}

		now := time.Now().UTC()
		n := &model.Note{
			ID:         uuid.NewString(),
			HospitalID: h.ID,
			AuthorID:   sess.UserID,
			PatientID:  req.PatientID,
			Kind:       req.Kind,
			Mood:       req.Mood,
			Pain:       req.Pain,
			Appetite:   req.Appetite,
			Narrative:  req.Narrative,
			Diagnosis:  req.Diagnosis,
			Visibility: req.Visibility,
			Private:    req.Private,
			CreatedAt:  now,
		}
		h.Notes = append(h.Notes, n)

		if n.Pain >= model.PainAlertThreshold {
			h.Alerts = append(h.Alerts, &model.Alert{
				ID:           uuid.NewString(),
				HospitalID:   h.ID,
				PatientID:    n.PatientID,
				SourceNoteID: n.ID,
				Status:       model.AlertOpen,
				CreatedAt:    now,
			})
		}

		c := *n
		created = &c
		return nil
	})
	if err != nil {
		return nil, err
	}

	if created.Pain >= model.PainAlertThreshold {
		s.logger.Warn("pain alert raised",
			"patient", created.PatientID,
			"hospital", created.HospitalID,
			"note", created.ID,
		)
	}
	return created, nil
}

// ListNotes returns the notes the session is allowed to see, newest first.
// Patients see their own journal plus clinical notes about them marked
// visible-to-patient. Clinicians see notes for their patients, minus private
// journal entries. Admins see everything in their hospital.
func (s *careService) ListNotes(ctx context.Context, sess *reqctx.Session, filter NoteFilter) ([]model.Note, error) {
	if err := s.authz.MustEnforce(ctx, sess.Role, authorize.Domain(sess.HospitalID), authorize.ResourceNote, authorize.ActionRead); err != nil {
		return nil, err
	}

	var out []model.Note
	var viewErr error
	s.docs.View(ctx, func(doc *model.Document) {
		h, err := hospitalOf(doc, sess)
		if err != nil {
			viewErr = err
			return
		}
		for _, n := range h.Notes {
			if !noteVisibleTo(h, sess, n) {
				continue
			}
			if filter.PatientID != "" && n.PatientID != filter.PatientID {
				continue
			}
			if filter.Kind != "" && n.Kind != filter.Kind {
				continue
			}
			if filter.Search != "" && !noteMatches(n, filter.Search) {
				continue
			}
			out = append(out, *n)
		}
	})
	if viewErr != nil {
		return nil, viewErr
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// SetNoteVisibility toggles the sharing flags of a note. Only the author may
// change them: Visibility on clinical notes, Private on journal entries.
func (s *careService) SetNoteVisibility(ctx context.Context, sess *reqctx.Session, noteID string, req SetNoteVisibilityRequest) (*model.Note, error) {
	if err := s.authz.MustEnforce(ctx, sess.Role, authorize.Domain(sess.HospitalID), authorize.ResourceNote, authorize.ActionUpdate); err != nil {
		return nil, err
	}

	var out *model.Note
	err := s.docs.Update(ctx, func(doc *model.Document) error {
		h, err := hospitalOf(doc, sess)
		if err != nil {
			return err
		}
		n := h.NoteByID(noteID)
		if n == nil {
			return ErrNoteNotFound
		}
		if n.AuthorID != sess.UserID {
			return authorize.ErrForbidden
		}

		if req.Visibility != nil {
			if n.Kind != model.NoteKindClinical {
				return ErrInvalidRole
			}
			if *req.Visibility != model.ClinicianOnly && *req.Visibility != model.VisibleToPatient {
				return ErrInvalidRole
			}
			n.Visibility = *req.Visibility
		}
		if req.Private != nil {
			if n.Kind != model.NoteKindJournal {
				return ErrInvalidRole
			}
			n.Private = *req.Private
		}

		c := *n
		out = &c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func noteVisibleTo(h *model.Hospital, sess *reqctx.Session, n *model.Note) bool {
	switch sess.Role {
	case model.RoleAdmin:
		return true
	case model.RolePatient:
		if n.PatientID != sess.UserID {
			return false
		}
		if n.Kind == model.NoteKindClinical {
			return n.Visibility == model.VisibleToPatient
		}
		return true
	case model.RoleClinician:
		if h.Policy.RequireAssignment && !h.Assigned(sess.UserID, n.PatientID) && n.AuthorID != sess.UserID {
			return false
		}
		if n.Kind == model.NoteKindJournal && n.Private {
			return false
		}
		return true
	}
	return false
}

func noteMatches(n *model.Note, search string) bool {
	q := strings.ToLower(search)
	return strings.Contains(strings.ToLower(n.Narrative), q) ||
		strings.Contains(strings.ToLower(n.Diagnosis), q)
}

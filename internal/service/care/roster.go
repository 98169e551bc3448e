package care

import (
	"context"
	"sort"
	"time"

	"github.com/carelog/carelog_backend/internal/model"
	"github.com/carelog/carelog_backend/pkg/authorize"
	"github.com/carelog/carelog_backend/pkg/reqctx"
)

// ---------------------------------------------------------------------------
// Approval workflow
// ---------------------------------------------------------------------------

// Approve moves a pending account to approved. Only a pending account can be
// approved; anything else is an invalid transition.
func (s *careService) Approve(ctx context.Context, sess *reqctx.Session, userID string) error {
	return s.resolvePending(ctx, sess, userID, authorize.ActionApprove, model.StatusApproved)
}

// Reject moves a pending account to rejected. Rejected accounts keep their
// record but can never authenticate.
func (s *careService) Reject(ctx context.Context, sess *reqctx.Session, userID string) error {
	return s.resolvePending(ctx, sess, userID, authorize.ActionReject, model.StatusRejected)
}

func (s *careService) resolvePending(ctx context.Context, sess *reqctx.Session, userID string, action authorize.Action, to model.Status) error {
	if err := s.authz.MustEnforce(ctx, sess.Role, authorize.Domain(sess.HospitalID), authorize.ResourceUser, action); err != nil {
		return err
	}

	err := s.docs.Update(ctx, func(doc *model.Document) error {
		h, err := hospitalOf(doc, sess)
		if err != nil {
			return err
		}
		u, ok := h.Users[userID]
		if !ok {
			return ErrUserNotFound
		}
		if u.Status != model.StatusPending {
			return ErrNotPending
		}
		u.Status = to
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("registration resolved",
		"user", userID,
		"hospital", sess.HospitalID,
		"status", string(to),
		"by", sess.UserID,
	)
	return nil
}

func (s *careService) ListPending(ctx context.Context, sess *reqctx.Session) ([]model.User, error) {
	if err := s.authz.MustEnforce(ctx, sess.Role, authorize.Domain(sess.HospitalID), authorize.ResourceUser, authorize.ActionApprove); err != nil {
		return nil, err
	}
	return s.listUsers(ctx, sess, func(u *model.User) bool {
		return u.Status == model.StatusPending
	})
}

// ---------------------------------------------------------------------------
// Assignments
// ---------------------------------------------------------------------------

// Assign links an approved clinician to an approved patient. Assigning an
// already-assigned pair is a no-op.
func (s *careService) Assign(ctx context.Context, sess *reqctx.Session, clinicianID, patientID string) error {
	if err := s.authz.MustEnforce(ctx, sess.Role, authorize.Domain(sess.HospitalID), authorize.ResourceAssignment, authorize.ActionCreate); err != nil {
		return err
	}

	return s.docs.Update(ctx, func(doc *model.Document) error {
		h, err := hospitalOf(doc, sess)
		if err != nil {
			return err
		}
		if err := requireApprovedRole(h, clinicianID, model.RoleClinician); err != nil {
			return err
		}
		if err := requireApprovedRole(h, patientID, model.RolePatient); err != nil {
			return err
		}
		if h.Assigned(clinicianID, patientID) {
			return nil
		}
		h.Assignments = append(h.Assignments, &model.Assignment{
			ClinicianID: clinicianID,
			PatientID:   patientID,
			CreatedAt:   time.Now().UTC(),
		})
		return nil
	})
}

// Unassign removes the link. Removing a link that does not exist is a no-op.
func (s *careService) Unassign(ctx context.Context, sess *reqctx.Session, clinicianID, patientID string) error {
	if err := s.authz.MustEnforce(ctx, sess.Role, authorize.Domain(sess.HospitalID), authorize.ResourceAssignment, authorize.ActionDelete); err != nil {
		return err
	}

	return s.docs.Update(ctx, func(doc *model.Document) error {
		h, err := hospitalOf(doc, sess)
		if err != nil {
			return err
		}
		kept := h.Assignments[:0]
		for _, a := range h.Assignments {
			if a.ClinicianID == clinicianID && a.PatientID == patientID {
				continue
			}
			kept = append(kept, a)
		}
		h.Assignments = kept
		return nil
	})
}

func (s *careService) ListAssignments(ctx context.Context, sess *reqctx.Session) ([]model.Assignment, error) {
	if err := s.authz.MustEnforce(ctx, sess.Role, authorize.Domain(sess.HospitalID), authorize.ResourceAssignment, authorize.ActionList); err != nil {
		return nil, err
	}

	var out []model.Assignment
	var viewErr error
	s.docs.View(ctx, func(doc *model.Document) {
		h, err := hospitalOf(doc, sess)
		if err != nil {
			viewErr = err
			return
		}
		for _, a := range h.Assignments {
			out = append(out, *a)
		}
	})
	if viewErr != nil {
		return nil, viewErr
	}
	return out, nil
}

// SetAssignmentPolicy flips the hospital-wide flag that gates clinician
// access to patients behind an active assignment.
func (s *careService) SetAssignmentPolicy(ctx context.Context, sess *reqctx.Session, requireAssignment bool) error {
	if err := s.authz.MustEnforce(ctx, sess.Role, authorize.Domain(sess.HospitalID), authorize.ResourcePolicy, authorize.ActionUpdate); err != nil {
		return err
	}

	err := s.docs.Update(ctx, func(doc *model.Document) error {
		h, err := hospitalOf(doc, sess)
		if err != nil {
			return err
		}
		h.Policy.RequireAssignment = requireAssignment
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("assignment policy changed",
		"hospital", sess.HospitalID,
		"require_assignment", requireAssignment,
		"by", sess.UserID,
	)
	return nil
}

// ---------------------------------------------------------------------------
// Directory
// ---------------------------------------------------------------------------

// ListPatients returns approved patients. When the hospital requires
// assignments, a clinician only sees the patients assigned to them.
func (s *careService) ListPatients(ctx context.Context, sess *reqctx.Session) ([]model.User, error) {
	if err := s.authz.MustEnforce(ctx, sess.Role, authorize.Domain(sess.HospitalID), authorize.ResourceUser, authorize.ActionList); err != nil {
		return nil, err
	}

	var out []model.User
	var viewErr error
	s.docs.View(ctx, func(doc *model.Document) {
		h, err := hospitalOf(doc, sess)
		if err != nil {
			viewErr = err
			return
		}
		restrict := sess.Role == model.RoleClinician && h.Policy.RequireAssignment
		for _, u := range h.Users {
			if u.Role != model.RolePatient || u.Status != model.StatusApproved {
				continue
			}
			if restrict && !h.Assigned(sess.UserID, u.ID) {
				continue
			}
			c := *u
			c.PasswordHash = ""
			out = append(out, c)
		}
	})
	if viewErr != nil {
		return nil, viewErr
	}
	sortUsers(out)
	return out, nil
}

// ListUsers returns every account in the caller's hospital, whatever role or
// status. Admin-only; it is the whole-directory accessor export tooling
// reads from.
func (s *careService) ListUsers(ctx context.Context, sess *reqctx.Session) ([]model.User, error) {
	if err := s.authz.MustEnforce(ctx, sess.Role, authorize.Domain(sess.HospitalID), authorize.ResourceUser, authorize.ActionList); err != nil {
		return nil, err
	}
	if sess.Role != model.RoleAdmin {
		return nil, authorize.ErrForbidden
	}
	return s.listUsers(ctx, sess, func(*model.User) bool { return true })
}

func (s *careService) ListClinicians(ctx context.Context, sess *reqctx.Session) ([]model.User, error) {
	if err := s.authz.MustEnforce(ctx, sess.Role, authorize.Domain(sess.HospitalID), authorize.ResourceUser, authorize.ActionList); err != nil {
		return nil, err
	}
	return s.listUsers(ctx, sess, func(u *model.User) bool {
		return u.Role == model.RoleClinician && u.Status == model.StatusApproved
	})
}

func (s *careService) listUsers(ctx context.Context, sess *reqctx.Session, keep func(*model.User) bool) ([]model.User, error) {
	var out []model.User
	var viewErr error
	s.docs.View(ctx, func(doc *model.Document) {
		h, err := hospitalOf(doc, sess)
		if err != nil {
			viewErr = err
			return
		}
		for _, u := range h.Users {
			if !keep(u) {
				continue
			}
			c := *u
			c.PasswordHash = ""
			out = append(out, c)
		}
	})
	if viewErr != nil {
		return nil, viewErr
	}
	sortUsers(out)
	return out, nil
}

func sortUsers(users []model.User) {
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
}

func requireApprovedRole(h *model.Hospital, userID string, role model.Role) error {
	u, ok := h.Users[userID]
	if !ok {
		return ErrUserNotFound
	}
	if u.Role != role {
		return ErrInvalidRole
	}
	if u.Status != model.StatusApproved {
		return ErrNotApproved
	}
	return nil
}

package care

import (
	"context"
	"sort"
	"time"

	"github.com/carelog/carelog_backend/internal/model"
	"github.com/carelog/carelog_backend/pkg/authorize"
	"github.com/carelog/carelog_backend/pkg/reqctx"
)

// ListAlerts returns alerts in the session's hospital, open ones first and
// newest first within each status. When the hospital requires assignments, a
// clinician only sees alerts for patients assigned to them.
func (s *careService) ListAlerts(ctx context.Context, sess *reqctx.Session) ([]model.Alert, error) {
	if err := s.authz.MustEnforce(ctx, sess.Role, authorize.Domain(sess.HospitalID), authorize.ResourceAlert, authorize.ActionRead); err != nil {
		return nil, err
	}

	var out []model.Alert
	var viewErr error
	s.docs.View(ctx, func(doc *model.Document) {
		h, err := hospitalOf(doc, sess)
		if err != nil {
			viewErr = err
			return
		}
		restrict := sess.Role == model.RoleClinician && h.Policy.RequireAssignment
		for _, a := range h.Alerts {
			if restrict && !h.Assigned(sess.UserID, a.PatientID) {
				continue
			}
			out = append(out, *a)
		}
	})
	if viewErr != nil {
		return nil, viewErr
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Status != out[j].Status {
			return out[i].Status == model.AlertOpen
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// AcknowledgeAlert closes an open alert. Acknowledging twice fails rather
// than silently succeeding so a second clinician learns someone already
// handled it.
func (s *careService) AcknowledgeAlert(ctx context.Context, sess *reqctx.Session, alertID string) (*model.Alert, error) {
	if err := s.authz.MustEnforce(ctx, sess.Role, authorize.Domain(sess.HospitalID), authorize.ResourceAlert, authorize.ActionAcknowledge); err != nil {
		return nil, err
	}

	var out *model.Alert
	err := s.docs.Update(ctx, func(doc *model.Document) error {
		h, err := hospitalOf(doc, sess)
		if err != nil {
			return err
		}
		a := h.AlertByID(alertID)
		if a == nil {
			return ErrAlertNotFound
		}
		if sess.Role == model.RoleClinician && h.Policy.RequireAssignment && !h.Assigned(sess.UserID, a.PatientID) {
			return authorize.ErrForbidden
		}
		if a.Status == model.AlertAcknowledged {
			return ErrAlreadyAcknowledged
		}

		now := time.Now().UTC()
		a.Status = model.AlertAcknowledged
		a.AcknowledgedBy = sess.UserID
		a.AcknowledgedAt = &now

		c := *a
		out = &c
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("alert acknowledged", "alert", alertID, "hospital", sess.HospitalID, "by", sess.UserID)
	return out, nil
}

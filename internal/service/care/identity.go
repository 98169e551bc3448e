package care

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/carelog/carelog_backend/internal/model"
	"github.com/carelog/carelog_backend/pkg/authorize"
	"github.com/carelog/carelog_backend/pkg/reqctx"
	"github.com/carelog/carelog_backend/pkg/util/password"
)

// Register creates a user account. User ids are unique across all hospitals.
// Registering with an unknown hospital id creates that hospital and makes
// the registrant its founding admin, approved immediately, whatever role
// they asked for; the hospital's assignment policy starts from the
// configured default. In an existing hospital patients are approved on
// registration while clinicians and admins stay pending until an admin
// approves them.
func (s *careService) Register(ctx context.Context, req RegisterRequest) (*model.User, error) {
	req.UserID = strings.TrimSpace(req.UserID)
	req.HospitalID = strings.TrimSpace(req.HospitalID)
	if req.UserID == "" || req.HospitalID == "" {
		return nil, fmt.Errorf("%w: user id and hospital id are required", ErrInvalidCredentials)
	}
	if !req.Role.Valid() {
		return nil, ErrInvalidRole
	}
	if err := password.CheckStrength(req.Password); err != nil {
		return nil, err
	}

	// Hashing is deliberately outside the store transaction; argon2 work
	// must not hold the writer lock.
	hash, err := password.Hash(req.Password, s.opts.PasswordParams)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	var created *model.User
	err = s.docs.Update(ctx, func(doc *model.Document) error {
		if u, _ := doc.FindUser(req.UserID); u != nil {
			return ErrDuplicateUser
		}

		role := req.Role
		h := doc.Hospital(req.HospitalID)
		if h == nil {
			h = model.NewHospital(req.HospitalID, model.HospitalPolicy{
				RequireAssignment: s.opts.RequireAssignmentDefault,
			}, time.Now().UTC())
			doc.Hospitals[req.HospitalID] = h
			// First registrant founds the hospital as its admin.
			role = model.RoleAdmin
		}

		status := model.StatusPending
		if role == model.RolePatient || len(h.Users) == 0 {
			status = model.StatusApproved
		}

		u := &model.User{
			ID:           req.UserID,
			HospitalID:   req.HospitalID,
			Role:         role,
			Status:       status,
			PasswordHash: hash,
			FullName:     req.FullName,
			DOB:          req.DOB,
			Sex:          req.Sex,
			Pronouns:     req.Pronouns,
			Bio:          req.Bio,
			CreatedAt:    time.Now().UTC(),
		}
		h.Users[u.ID] = u

		c := *u
		created = &c
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("user registered",
		"user", created.ID,
		"hospital", created.HospitalID,
		"role", string(created.Role),
		"status", string(created.Status),
	)
	return created, nil
}

// Authenticate verifies credentials and mints an access token. Pending and
// rejected accounts authenticate but are refused with ErrNotApproved so the
// caller can distinguish "wrong password" from "not approved yet".
func (s *careService) Authenticate(ctx context.Context, req AuthenticateRequest) (*Auth, error) {
	var (
		hash   string
		sess   *reqctx.Session
		status model.Status
	)
	s.docs.View(ctx, func(doc *model.Document) {
		u, h := doc.FindUser(strings.TrimSpace(req.UserID))
		if u == nil {
			return
		}
		hash = u.PasswordHash
		status = u.Status
		sess = &reqctx.Session{UserID: u.ID, HospitalID: h.ID, Role: u.Role}
	})
	if sess == nil {
		// Burn comparable time so missing users are not distinguishable by
		// response latency.
		_ = password.CheckStrength(req.Password)
		return nil, ErrInvalidCredentials
	}

	if err := password.Verify(hash, req.Password); err != nil {
		if errors.Is(err, password.ErrMismatch) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("verify password: %w", err)
	}
	if status != model.StatusApproved {
		return nil, ErrNotApproved
	}

	token, err := s.tokens.Issue(sess)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}

	s.logger.Info("user authenticated", "user", sess.UserID, "hospital", sess.HospitalID)
	return &Auth{
		Session:     sess,
		AccessToken: token,
		ExpiresIn:   s.tokens.AccessTTL(),
	}, nil
}

// VerifyToken reconstructs the session from an access token and checks the
// account still exists and is still approved.
func (s *careService) VerifyToken(ctx context.Context, token string) (*reqctx.Session, error) {
	sess, err := s.tokens.Verify(token)
	if err != nil {
		return nil, err
	}

	var ok bool
	s.docs.View(ctx, func(doc *model.Document) {
		u, h := doc.FindUser(sess.UserID)
		ok = u != nil && h.ID == sess.HospitalID && u.Status == model.StatusApproved
	})
	if !ok {
		return nil, ErrNotApproved
	}
	return sess, nil
}

func (s *careService) GetUser(ctx context.Context, sess *reqctx.Session, userID string) (*model.User, error) {
	if err := s.authz.MustEnforce(ctx, sess.Role, authorize.Domain(sess.HospitalID), authorize.ResourceUser, authorize.ActionRead); err != nil {
		return nil, err
	}

	var out *model.User
	var viewErr error
	s.docs.View(ctx, func(doc *model.Document) {
		u, h := doc.FindUser(userID)
		if u == nil {
			viewErr = ErrUserNotFound
			return
		}
		if err := authorize.MustSameTenant(sess.HospitalID, h.ID); err != nil {
			viewErr = err
			return
		}
		c := *u
		c.PasswordHash = ""
		out = &c
	})
	if viewErr != nil {
		return nil, viewErr
	}
	return out, nil
}

// UpdateProfile edits display fields. Users edit themselves; admins may edit
// any account in their hospital.
func (s *careService) UpdateProfile(ctx context.Context, sess *reqctx.Session, userID string, req UpdateProfileRequest) (*model.User, error) {
	if err := s.authz.MustEnforce(ctx, sess.Role, authorize.Domain(sess.HospitalID), authorize.ResourceUser, authorize.ActionUpdate); err != nil {
		return nil, err
	}
	if userID != sess.UserID && sess.Role != model.RoleAdmin {
		return nil, authorize.ErrForbidden
	}

	var out *model.User
	err := s.docs.Update(ctx, func(doc *model.Document) error {
		h, err := hospitalOf(doc, sess)
		if err != nil {
			return err
		}
		u, ok := h.Users[userID]
		if !ok {
			return ErrUserNotFound
		}

		if req.FullName != nil {
			u.FullName = *req.FullName
		}
		if req.DOB != nil {
			u.DOB = *req.DOB
		}
		if req.Sex != nil {
			u.Sex = *req.Sex
		}
		if req.Pronouns != nil {
			u.Pronouns = *req.Pronouns
		}
		if req.Bio != nil {
			u.Bio = *req.Bio
		}

		c := *u
		c.PasswordHash = ""
		out = &c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *careService) ChangePassword(ctx context.Context, sess *reqctx.Session, oldPassword, newPassword string) error {
	if err := password.CheckStrength(newPassword); err != nil {
		return err
	}

	var currentHash string
	var viewErr error
	s.docs.View(ctx, func(doc *model.Document) {
		u, _ := doc.FindUser(sess.UserID)
		if u == nil {
			viewErr = ErrUserNotFound
			return
		}
		currentHash = u.PasswordHash
	})
	if viewErr != nil {
		return viewErr
	}
	if err := password.Verify(currentHash, oldPassword); err != nil {
		if errors.Is(err, password.ErrMismatch) {
			return ErrInvalidCredentials
		}
		return fmt.Errorf("verify password: %w", err)
	}

	newHash, err := password.Hash(newPassword, s.opts.PasswordParams)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	return s.docs.Update(ctx, func(doc *model.Document) error {
		u, _ := doc.FindUser(sess.UserID)
		if u == nil {
			return ErrUserNotFound
		}
		u.PasswordHash = newHash
		return nil
	})
}

// DeleteUser removes an account and everything that only makes sense with it
// present: its assignments, its notes and, for patients, alerts and feedback
// about them. Chat messages are kept so channel sequence numbers stay
// gapless. Admins cannot delete themselves.
func (s *careService) DeleteUser(ctx context.Context, sess *reqctx.Session, userID string) error {
	if err := s.authz.MustEnforce(ctx, sess.Role, authorize.Domain(sess.HospitalID), authorize.ResourceUser, authorize.ActionDelete); err != nil {
		return err
	}
	if userID == sess.UserID {
		return ErrSelfDelete
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

		delete(h.Users, userID)

		kept := h.Assignments[:0]
		for _, a := range h.Assignments {
			if a.ClinicianID != userID && a.PatientID != userID {
				kept = append(kept, a)
			}
		}
		h.Assignments = kept

		notes := h.Notes[:0]
		for _, n := range h.Notes {
			if n.AuthorID == userID {
				continue
			}
			if u.Role == model.RolePatient && n.PatientID == userID {
				continue
			}
			notes = append(notes, n)
		}
		h.Notes = notes

		if u.Role == model.RolePatient {
			alerts := h.Alerts[:0]
			for _, a := range h.Alerts {
				if a.PatientID != userID {
					alerts = append(alerts, a)
				}
			}
			h.Alerts = alerts

			fb := h.Feedback[:0]
			for _, f := range h.Feedback {
				if f.PatientID != userID {
					fb = append(fb, f)
				}
			}
			h.Feedback = fb
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("user deleted", "user", userID, "hospital", sess.HospitalID, "by", sess.UserID)
	return nil
}

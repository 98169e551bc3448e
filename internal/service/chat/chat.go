// Package chat implements per-hospital messaging: direct channels between
// two users and one broadcast care-team channel per hospital. A channel has
// one canonical identity, messages get a strictly increasing gapless
// per-channel sequence number, and ordering is defined by that sequence
// alone.
package chat

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

// ---------------------------------------------------------------------------
// DTOs
// ---------------------------------------------------------------------------

// ChannelRef names a channel from the caller's point of view. Direct
// channels are addressed by peer, the broadcast channel by kind alone; the
// service derives the canonical channel id so (a,b) and (b,a) always land in
// the same channel.
type ChannelRef struct {
	Kind   model.ChannelKind
	PeerID string
}

type ChannelSummary struct {
	ID           string
	Kind         model.ChannelKind
	PeerID       string
	LastSeq      uint64
	LastActivity time.Time
}

// ---------------------------------------------------------------------------
// Service interface
// ---------------------------------------------------------------------------

type Service interface {
	Send(ctx context.Context, sess *reqctx.Session, ref ChannelRef, body string) (*model.Message, error)
	// FetchSince returns messages with sequence numbers strictly greater
	// than sinceSeq, in sequence order. sinceSeq 0 fetches everything.
	FetchSince(ctx context.Context, sess *reqctx.Session, ref ChannelRef, sinceSeq uint64) ([]model.Message, error)
	ListChannels(ctx context.Context, sess *reqctx.Session) ([]ChannelSummary, error)
}

// ---------------------------------------------------------------------------
// Implementation
// ---------------------------------------------------------------------------

type chatService struct {
	docs   *store.DocStore
	authz  authorize.IAuthorization
	logger *slog.Logger
}

func New(docs *store.DocStore, authz authorize.IAuthorization, logger *slog.Logger) Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &chatService{docs: docs, authz: authz, logger: logger}
}

func (s *chatService) Send(ctx context.Context, sess *reqctx.Session, ref ChannelRef, body string) (*model.Message, error) {
	if err := s.authz.MustEnforce(ctx, sess.Role, authorize.Domain(sess.HospitalID), authorize.ResourceChannel, authorize.ActionSend); err != nil {
		return nil, err
	}
	if strings.TrimSpace(body) == "" {
		return nil, ErrEmptyBody
	}

	var out *model.Message
	err := s.docs.Update(ctx, func(doc *model.Document) error {
		h := doc.Hospital(sess.HospitalID)
		if h == nil {
			return authorize.ErrForbidden
		}
		ch, err := resolveChannel(h, sess, ref, true)
		if err != nil {
			return err
		}

		// Sequence numbers advance only here, under the writer lock, so
		// they are strictly increasing and gapless per channel.
		seq := ch.NextSeq + 1
		ch.NextSeq = seq

		now := time.Now().UTC()
		m := &model.Message{
			ID:        uuid.NewString(),
			ChannelID: ch.ID,
			SenderID:  sess.UserID,
			Body:      body,
			Seq:       seq,
			CreatedAt: now,
		}
		ch.Messages = append(ch.Messages, m)
		ch.LastActivity = now

		c := *m
		out = &c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *chatService) FetchSince(ctx context.Context, sess *reqctx.Session, ref ChannelRef, sinceSeq uint64) ([]model.Message, error) {
	if err := s.authz.MustEnforce(ctx, sess.Role, authorize.Domain(sess.HospitalID), authorize.ResourceChannel, authorize.ActionRead); err != nil {
		return nil, err
	}

	var out []model.Message
	var viewErr error
	s.docs.View(ctx, func(doc *model.Document) {
		h := doc.Hospital(sess.HospitalID)
		if h == nil {
			viewErr = authorize.ErrForbidden
			return
		}
		ch, err := resolveChannel(h, sess, ref, false)
		if err != nil {
			viewErr = err
			return
		}
		if ch == nil {
			// No channel yet means no messages yet.
			return
		}
		for _, m := range ch.Messages {
			if m.Seq > sinceSeq {
				out = append(out, *m)
			}
		}
	})
	if viewErr != nil {
		return nil, viewErr
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Seq < out[j].Seq })
	return out, nil
}

// ListChannels returns the caller's channels, most recently active first.
func (s *chatService) ListChannels(ctx context.Context, sess *reqctx.Session) ([]ChannelSummary, error) {
	if err := s.authz.MustEnforce(ctx, sess.Role, authorize.Domain(sess.HospitalID), authorize.ResourceChannel, authorize.ActionRead); err != nil {
		return nil, err
	}

	var out []ChannelSummary
	var viewErr error
	s.docs.View(ctx, func(doc *model.Document) {
		h := doc.Hospital(sess.HospitalID)
		if h == nil {
			viewErr = authorize.ErrForbidden
			return
		}
		for _, ch := range h.Channels {
			switch ch.Kind {
			case model.ChannelDirect:
				if !ch.HasParticipant(sess.UserID) {
					continue
				}
			case model.ChannelBroadcast:
				if sess.Role == model.RolePatient {
					continue
				}
			}
			sum := ChannelSummary{
				ID:           ch.ID,
				Kind:         ch.Kind,
				LastSeq:      ch.NextSeq,
				LastActivity: ch.LastActivity,
			}
			for _, p := range ch.Participants {
				if p != sess.UserID {
					sum.PeerID = p
				}
			}
			out = append(out, sum)
		}
	})
	if viewErr != nil {
		return nil, viewErr
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LastActivity.After(out[j].LastActivity) })
	return out, nil
}

// resolveChannel maps a ChannelRef to its canonical channel and checks the
// session may use it. With create set, a missing channel is created; without
// it, nil is returned for a channel that does not exist yet.
func resolveChannel(h *model.Hospital, sess *reqctx.Session, ref ChannelRef, create bool) (*model.Channel, error) {
	switch ref.Kind {
	case model.ChannelBroadcast:
		// The care-team channel is for clinicians and admins.
		if sess.Role == model.RolePatient {
			return nil, authorize.ErrForbidden
		}
		id := model.BroadcastChannelID(h.ID)
		ch := h.Channels[id]
		if ch == nil && create {
			ch = &model.Channel{
				ID:         id,
				HospitalID: h.ID,
				Kind:       model.ChannelBroadcast,
			}
			h.Channels[id] = ch
		}
		return ch, nil

	case model.ChannelDirect:
		if ref.PeerID == sess.UserID {
			return nil, ErrSelfMessage
		}
		peer, ok := h.Users[ref.PeerID]
		if !ok {
			return nil, ErrPeerNotFound
		}
		if peer.Status != model.StatusApproved {
			return nil, ErrPeerNotFound
		}
		if err := directAllowed(h, sess, peer); err != nil {
			return nil, err
		}

		id := model.DirectChannelID(sess.UserID, ref.PeerID)
		ch := h.Channels[id]
		if ch == nil && create {
			ch = &model.Channel{
				ID:           id,
				HospitalID:   h.ID,
				Kind:         model.ChannelDirect,
				Participants: []string{sess.UserID, ref.PeerID},
			}
			h.Channels[id] = ch
		}
		return ch, nil
	}
	return nil, ErrChannelNotFound
}

// directAllowed applies the relationship rules for direct channels: no
// patient-to-patient messaging, and a patient-clinician pair must be
// assigned when the hospital requires assignments. Admins may message
// anyone in their hospital.
func directAllowed(h *model.Hospital, sess *reqctx.Session, peer *model.User) error {
	if sess.Role == model.RoleAdmin || peer.Role == model.RoleAdmin {
		return nil
	}
	if sess.Role == model.RolePatient && peer.Role == model.RolePatient {
		return authorize.ErrForbidden
	}
	if !h.Policy.RequireAssignment {
		return nil
	}
	switch {
	case sess.Role == model.RolePatient && peer.Role == model.RoleClinician:
		if !h.Assigned(peer.ID, sess.UserID) {
			return authorize.ErrForbidden
		}
	case sess.Role == model.RoleClinician && peer.Role == model.RolePatient:
		if !h.Assigned(sess.UserID, peer.ID) {
			return authorize.ErrForbidden
		}
	}
	return nil
}

package chat

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/carelog/carelog_backend/internal/model"
	"github.com/carelog/carelog_backend/internal/store"
	"github.com/carelog/carelog_backend/pkg/authorize"
	"github.com/carelog/carelog_backend/pkg/cipher"
	"github.com/carelog/carelog_backend/pkg/reqctx"
)

type fixture struct {
	svc       Service
	docs      *store.DocStore
	admin     *reqctx.Session
	clinician *reqctx.Session
	patient   *reqctx.Session
	// stranger is a patient with no assignment to the clinician.
	stranger *reqctx.Session
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	key := make([]byte, cipher.KeySize)
	for i := range key {
		key[i] = 0x11
	}
	cs, err := store.NewCipherStore(filepath.Join(t.TempDir(), "records.enc"), key)
	if err != nil {
		t.Fatal(err)
	}
	docs, err := store.NewDocStore(cs, time.Second)
	if err != nil {
		t.Fatal(err)
	}
	authz, err := authorize.NewAuthorization()
	if err != nil {
		t.Fatal(err)
	}

	err = docs.Update(context.Background(), func(doc *model.Document) error {
		h := model.NewHospital("mercy", model.HospitalPolicy{RequireAssignment: true}, time.Now())
		for id, role := range map[string]model.Role{
			"root":   model.RoleAdmin,
			"drbell": model.RoleClinician,
			"amira":  model.RolePatient,
			"tariq":  model.RolePatient,
		} {
			h.Users[id] = &model.User{ID: id, HospitalID: "mercy", Role: role, Status: model.StatusApproved}
		}
		h.Assignments = append(h.Assignments, &model.Assignment{ClinicianID: "drbell", PatientID: "amira"})
		doc.Hospitals["mercy"] = h
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return &fixture{
		svc:       New(docs, authz, logger),
		docs:      docs,
		admin:     &reqctx.Session{UserID: "root", HospitalID: "mercy", Role: model.RoleAdmin},
		clinician: &reqctx.Session{UserID: "drbell", HospitalID: "mercy", Role: model.RoleClinician},
		patient:   &reqctx.Session{UserID: "amira", HospitalID: "mercy", Role: model.RolePatient},
		stranger:  &reqctx.Session{UserID: "tariq", HospitalID: "mercy", Role: model.RolePatient},
	}
}

func TestDirectChannelCanonicalIdentity(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// Both directions land in the same channel regardless of who opens it.
	if _, err := f.svc.Send(ctx, f.patient, ChannelRef{Kind: model.ChannelDirect, PeerID: "drbell"}, "hello doctor"); err != nil {
		t.Fatalf("patient send failed: %v", err)
	}
	if _, err := f.svc.Send(ctx, f.clinician, ChannelRef{Kind: model.ChannelDirect, PeerID: "amira"}, "hello amira"); err != nil {
		t.Fatalf("clinician send failed: %v", err)
	}

	msgs, err := f.svc.FetchSince(ctx, f.patient, ChannelRef{Kind: model.ChannelDirect, PeerID: "drbell"}, 0)
	if err != nil {
		t.Fatalf("FetchSince failed: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("got %d messages, want 2 in one canonical channel", len(msgs))
	}

	var count int
	f.docs.View(ctx, func(doc *model.Document) {
		count = len(doc.Hospitals["mercy"].Channels)
	})
	if count != 1 {
		t.Errorf("got %d channels, want 1", count)
	}
}

func TestSequenceNumbersGapless(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ref := ChannelRef{Kind: model.ChannelDirect, PeerID: "drbell"}

	for i := 0; i < 5; i++ {
		if _, err := f.svc.Send(ctx, f.patient, ref, "msg"); err != nil {
			t.Fatal(err)
		}
	}

	msgs, err := f.svc.FetchSince(ctx, f.patient, ref, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 5 {
		t.Fatalf("got %d messages, want 5", len(msgs))
	}
	for i, m := range msgs {
		if m.Seq != uint64(i+1) {
			t.Errorf("message %d has seq %d, want %d", i, m.Seq, i+1)
		}
	}
}

func TestFetchSince(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ref := ChannelRef{Kind: model.ChannelDirect, PeerID: "drbell"}

	for i := 0; i < 4; i++ {
		if _, err := f.svc.Send(ctx, f.patient, ref, "msg"); err != nil {
			t.Fatal(err)
		}
	}

	msgs, err := f.svc.FetchSince(ctx, f.patient, ref, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 2 {
		t.Fatalf("got %d messages since seq 2, want 2", len(msgs))
	}
	if msgs[0].Seq != 3 || msgs[1].Seq != 4 {
		t.Errorf("got seqs %d,%d, want 3,4", msgs[0].Seq, msgs[1].Seq)
	}

	// Fetching a channel that does not exist yet is empty, not an error.
	none, err := f.svc.FetchSince(ctx, f.clinician, ChannelRef{Kind: model.ChannelBroadcast}, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(none) != 0 {
		t.Errorf("got %d messages from unopened channel, want 0", len(none))
	}
}

func TestBroadcastChannel(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ref := ChannelRef{Kind: model.ChannelBroadcast}

	if _, err := f.svc.Send(ctx, f.clinician, ref, "team huddle at 9"); err != nil {
		t.Fatalf("clinician broadcast failed: %v", err)
	}
	if _, err := f.svc.Send(ctx, f.admin, ref, "noted"); err != nil {
		t.Fatalf("admin broadcast failed: %v", err)
	}

	// Patients have no access to the care-team channel.
	if _, err := f.svc.Send(ctx, f.patient, ref, "hi"); !errors.Is(err, authorize.ErrForbidden) {
		t.Errorf("patient broadcast error = %v, want ErrForbidden", err)
	}
	if _, err := f.svc.FetchSince(ctx, f.patient, ref, 0); !errors.Is(err, authorize.ErrForbidden) {
		t.Errorf("patient broadcast fetch error = %v, want ErrForbidden", err)
	}

	msgs, err := f.svc.FetchSince(ctx, f.admin, ref, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 2 {
		t.Errorf("got %d broadcast messages, want 2", len(msgs))
	}
}

func TestDirectAccessRules(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		sess    *reqctx.Session
		peer    string
		wantErr error
	}{
		{"self message", f.patient, "amira", ErrSelfMessage},
		{"unknown peer", f.patient, "ghost", ErrPeerNotFound},
		{"patient to patient", f.patient, "tariq", authorize.ErrForbidden},
		{"unassigned patient to clinician", f.stranger, "drbell", authorize.ErrForbidden},
		{"clinician to unassigned patient", f.clinician, "tariq", authorize.ErrForbidden},
		{"patient to admin allowed", f.patient, "root", nil},
		{"assigned pair allowed", f.clinician, "amira", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Send(ctx, tt.sess, ChannelRef{Kind: model.ChannelDirect, PeerID: tt.peer}, "hello")
			if tt.wantErr == nil && err != nil {
				t.Errorf("Send() error = %v, want nil", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("Send() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestEmptyBodyRejected(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Send(context.Background(), f.patient, ChannelRef{Kind: model.ChannelDirect, PeerID: "drbell"}, "   ")
	if !errors.Is(err, ErrEmptyBody) {
		t.Errorf("Send() error = %v, want ErrEmptyBody", err)
	}
}

func TestListChannels(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.svc.Send(ctx, f.patient, ChannelRef{Kind: model.ChannelDirect, PeerID: "drbell"}, "first"); err != nil {
		t.Fatal(err)
	}
	time.Sleep(2 * time.Millisecond)
	if _, err := f.svc.Send(ctx, f.clinician, ChannelRef{Kind: model.ChannelBroadcast}, "huddle"); err != nil {
		t.Fatal(err)
	}

	// The patient only sees their direct channel.
	got, err := f.svc.ListChannels(ctx, f.patient)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Kind != model.ChannelDirect || got[0].PeerID != "drbell" {
		t.Errorf("unexpected patient channels: %+v", got)
	}

	// The clinician sees both, broadcast most recent first.
	got, err = f.svc.ListChannels(ctx, f.clinician)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d clinician channels, want 2", len(got))
	}
	if got[0].Kind != model.ChannelBroadcast {
		t.Errorf("most recent channel = %s, want broadcast", got[0].Kind)
	}
}

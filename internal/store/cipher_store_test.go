package store

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/carelog/carelog_backend/internal/model"
	"github.com/carelog/carelog_backend/pkg/cipher"
)

func newTestStore(t *testing.T) *CipherStore {
	t.Helper()
	return newTestStoreWithKey(t, filepath.Join(t.TempDir(), "records.enc"), 0x11)
}

func newTestStoreWithKey(t *testing.T, path string, keyByte byte) *CipherStore {
	t.Helper()
	key := make([]byte, cipher.KeySize)
	for i := range key {
		key[i] = keyByte
	}
	cs, err := NewCipherStore(path, key)
	if err != nil {
		t.Fatalf("NewCipherStore failed: %v", err)
	}
	return cs
}

func TestLoadBootstrapsMissingFile(t *testing.T) {
	cs := newTestStore(t)

	doc, err := cs.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if doc.Version != 0 {
		t.Errorf("bootstrap version = %d, want 0", doc.Version)
	}
	if doc.Hospitals == nil || len(doc.Hospitals) != 0 {
		t.Errorf("bootstrap document should have an empty hospitals map")
	}
}

func TestLoadBootstrapsEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "records.enc")
	if err := os.WriteFile(path, nil, 0o600); err != nil {
		t.Fatal(err)
	}
	cs := newTestStoreWithKey(t, path, 0x11)

	doc, err := cs.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(doc.Hospitals) != 0 {
		t.Error("empty file should bootstrap a fresh document")
	}
}

func TestSaveLoadRoundtrip(t *testing.T) {
	cs := newTestStore(t)

	doc, err := cs.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	h := model.NewHospital("mercy-west", model.HospitalPolicy{RequireAssignment: true}, time.Now().UTC())
	h.Users["amira"] = &model.User{ID: "amira", HospitalID: h.ID, Role: model.RolePatient, Status: model.StatusApproved}
	doc.Hospitals[h.ID] = h

	if err := cs.Save(doc); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if doc.Version != 1 {
		t.Errorf("version after save = %d, want 1", doc.Version)
	}

	got, err := cs.Load()
	if err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if got.Version != 1 {
		t.Errorf("reloaded version = %d, want 1", got.Version)
	}
	u, hosp := got.FindUser("amira")
	if u == nil || hosp.ID != "mercy-west" {
		t.Fatal("saved user not found after reload")
	}
	if !hosp.Policy.RequireAssignment {
		t.Error("hospital policy not persisted")
	}
}

func TestStoreFileIsEncrypted(t *testing.T) {
	path := filepath.Join(t.TempDir(), "records.enc")
	cs := newTestStoreWithKey(t, path, 0x11)

	doc, _ := cs.Load()
	doc.Hospitals["mercy-west"] = model.NewHospital("mercy-west", model.HospitalPolicy{}, time.Now())
	if err := cs.Save(doc); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(raw), "mercy-west") {
		t.Error("store file contains plaintext data")
	}
}

func TestLoadWrongKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "records.enc")
	cs := newTestStoreWithKey(t, path, 0x11)

	doc, _ := cs.Load()
	doc.Hospitals["h1"] = model.NewHospital("h1", model.HospitalPolicy{}, time.Now())
	if err := cs.Save(doc); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	other := newTestStoreWithKey(t, path, 0x22)
	if _, err := other.Load(); !errors.Is(err, ErrDecrypt) {
		t.Errorf("Expected ErrDecrypt with wrong key, got %v", err)
	}
}

func TestLoadCorruptedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "records.enc")
	if err := os.WriteFile(path, []byte("this is not a sealed blob at all"), 0o600); err != nil {
		t.Fatal(err)
	}
	cs := newTestStoreWithKey(t, path, 0x11)

	if _, err := cs.Load(); !errors.Is(err, ErrDecrypt) {
		t.Errorf("Expected ErrDecrypt for corrupted file, got %v", err)
	}
}

func TestSaveConflict(t *testing.T) {
	cs := newTestStore(t)

	// Two callers load the same version.
	docA, _ := cs.Load()
	docB, _ := cs.Load()

	docA.Hospitals["a"] = model.NewHospital("a", model.HospitalPolicy{}, time.Now())
	if err := cs.Save(docA); err != nil {
		t.Fatalf("first save failed: %v", err)
	}

	docB.Hospitals["b"] = model.NewHospital("b", model.HospitalPolicy{}, time.Now())
	if err := cs.Save(docB); !errors.Is(err, ErrConflict) {
		t.Errorf("Expected ErrConflict for stale save, got %v", err)
	}

	// The first write must not have been clobbered.
	got, _ := cs.Load()
	if got.Hospitals["a"] == nil {
		t.Error("winning write lost after conflicting save")
	}
	if got.Hospitals["b"] != nil {
		t.Error("conflicting save was persisted")
	}
}

func TestSaveLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	cs := newTestStoreWithKey(t, filepath.Join(dir, "records.enc"), 0x11)

	doc, _ := cs.Load()
	if err := cs.Save(doc); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if strings.Contains(e.Name(), ".tmp-") {
			t.Errorf("temp file left behind: %s", e.Name())
		}
	}
}

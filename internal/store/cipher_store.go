// Package store owns persistence of the Document: one AES-256-GCM encrypted
// blob on disk, written atomically, plus the single-writer transaction
// engine every mutation goes through.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/carelog/carelog_backend/internal/model"
	"github.com/carelog/carelog_backend/pkg/cipher"
)

// CipherStore loads and saves the entire Document as one encrypted file.
type CipherStore struct {
	path string
	key  []byte
}

func NewCipherStore(path string, key []byte) (*CipherStore, error) {
	if len(key) != cipher.KeySize {
		return nil, cipher.ErrInvalidKey
	}
	if path == "" {
		return nil, errors.New("store path is empty")
	}
	return &CipherStore{path: path, key: key}, nil
}

// Load decrypts and parses the store file. A missing or empty file is the
// bootstrap case and yields a fresh schema-initialized Document; anything
// unreadable yields ErrDecrypt.
func (s *CipherStore) Load() (*model.Document, error) {
	blob, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return model.NewDocument(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read store file: %w", err)
	}
	if len(blob) == 0 {
		return model.NewDocument(), nil
	}

	plaintext, err := cipher.Open(s.key, blob)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecrypt, err)
	}

	var doc model.Document
	if err := json.Unmarshal(plaintext, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecrypt, err)
	}
	if doc.Hospitals == nil {
		doc.Hospitals = make(map[string]*model.Hospital)
	}
	return &doc, nil
}

// Save serializes doc deterministically, encrypts it, and writes it with
// temp-then-rename semantics so a crash mid-write never leaves a partial
// store. Before writing it re-reads the stored version: if the file no
// longer holds the version the caller loaded, another writer intervened and
// Save fails with ErrConflict. On success the stored version is
// doc.Version+1 (doc is updated in place).
func (s *CipherStore) Save(doc *model.Document) error {
	stored, err := s.Load()
	if err != nil {
		return err
	}
	if stored.Version != doc.Version {
		return fmt.Errorf("%w: loaded v%d, stored v%d", ErrConflict, doc.Version, stored.Version)
	}

	doc.Version++
	plaintext, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		doc.Version--
		return fmt.Errorf("serialize document: %w", err)
	}
	blob, err := cipher.Seal(s.key, plaintext)
	if err != nil {
		doc.Version--
		return fmt.Errorf("encrypt document: %w", err)
	}

	if err := s.writeAtomic(blob); err != nil {
		doc.Version--
		return err
	}
	return nil
}

func (s *CipherStore) writeAtomic(blob []byte) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create store dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp store file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(blob); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp store file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("sync temp store file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp store file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename store file: %w", err)
	}
	return nil
}

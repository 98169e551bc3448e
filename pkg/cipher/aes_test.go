package cipher

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func testKey(t *testing.T, b byte) []byte {
	t.Helper()
	key := make([]byte, KeySize)
	for i := range key {
		key[i] = b
	}
	return key
}

func TestSealOpenRoundtrip(t *testing.T) {
	key := testKey(t, 0x42)
	plaintext := []byte(`{"hospitals":{}}`)

	blob, err := Seal(key, plaintext)
	if err != nil {
		t.Fatalf("Seal failed: %v", err)
	}
	if bytes.Contains(blob, plaintext) {
		t.Error("ciphertext contains plaintext")
	}

	got, err := Open(key, blob)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if !bytes.Equal(got, plaintext) {
		t.Errorf("roundtrip mismatch: got %q, want %q", got, plaintext)
	}
}

func TestOpenWrongKey(t *testing.T) {
	blob, err := Seal(testKey(t, 0x01), []byte("secret"))
	if err != nil {
		t.Fatalf("Seal failed: %v", err)
	}
	if _, err := Open(testKey(t, 0x02), blob); err == nil {
		t.Error("Expected error opening with wrong key")
	}
}

func TestOpenTampered(t *testing.T) {
	key := testKey(t, 0x07)
	blob, err := Seal(key, []byte("secret"))
	if err != nil {
		t.Fatalf("Seal failed: %v", err)
	}
	blob[len(blob)-1] ^= 0xff
	if _, err := Open(key, blob); err == nil {
		t.Error("Expected error opening tampered blob")
	}
}

func TestOpenTooShort(t *testing.T) {
	if _, err := Open(testKey(t, 0x01), []byte{1, 2, 3}); !errors.Is(err, ErrCiphertextTooShort) {
		t.Errorf("Expected ErrCiphertextTooShort, got %v", err)
	}
}

func TestKeyFromHex(t *testing.T) {
	tests := []struct {
		name    string
		hex     string
		wantErr bool
	}{
		{"valid", "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f", false},
		{"trailing newline", "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f\n", false},
		{"too short", "0001", true},
		{"not hex", "zz0102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := KeyFromHex(tt.hex)
			if tt.wantErr && err == nil {
				t.Error("Expected error but got nil")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("Expected no error but got: %v", err)
			}
		})
	}
}

func TestLoadOrCreateKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keys", "secret.key")

	key1, err := LoadOrCreateKey(path)
	if err != nil {
		t.Fatalf("LoadOrCreateKey (create) failed: %v", err)
	}
	if len(key1) != KeySize {
		t.Fatalf("generated key has %d bytes, want %d", len(key1), KeySize)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("key file not written: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("key file permissions = %o, want 600", perm)
	}

	key2, err := LoadOrCreateKey(path)
	if err != nil {
		t.Fatalf("LoadOrCreateKey (load) failed: %v", err)
	}
	if !bytes.Equal(key1, key2) {
		t.Error("second load returned a different key")
	}
}

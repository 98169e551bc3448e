package password

import (
	"strings"
	"testing"
)

func TestHashFormat(t *testing.T) {
	hash, err := Hash("Sunny-day4", FastParams())
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}
	if !strings.HasPrefix(hash, "$argon2id$v=") {
		t.Errorf("Hash() format invalid, got %s", hash)
	}
	if parts := strings.Split(hash, "$"); len(parts) != 6 {
		t.Errorf("Hash() expected 6 parts, got %d", len(parts))
	}
}

func TestVerify(t *testing.T) {
	hash, err := Hash("Ward-7-rounds", FastParams())
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}

	tests := []struct {
		name     string
		hash     string
		password string
		wantErr  error
	}{
		{"correct password", hash, "Ward-7-rounds", nil},
		{"wrong password", hash, "Ward-8-rounds", ErrMismatch},
		{"invalid hash format", "notahash", "Ward-7-rounds", ErrInvalidHash},
		{"empty password", hash, "", ErrMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := Verify(tt.hash, tt.password); err != tt.wantErr {
				t.Errorf("Verify() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestHashUniqueSalts(t *testing.T) {
	h1, _ := Hash("Same-pass1!", FastParams())
	h2, _ := Hash("Same-pass1!", FastParams())
	if h1 == h2 {
		t.Error("Hash() should embed a fresh salt per call")
	}
	if err := Verify(h1, "Same-pass1!"); err != nil {
		t.Errorf("first hash verification failed: %v", err)
	}
	if err := Verify(h2, "Same-pass1!"); err != nil {
		t.Errorf("second hash verification failed: %v", err)
	}
}

func TestCheckStrength(t *testing.T) {
	tests := []struct {
		name     string
		password string
		wantErr  error
	}{
		{"strong", "Recovery#2024", nil},
		{"too short", "Ab1!", ErrWeakPassword},
		{"no upper", "recovery#2024", ErrWeakPassword},
		{"no lower", "RECOVERY#2024", ErrWeakPassword},
		{"no digit", "Recovery#care", ErrWeakPassword},
		{"no special", "Recovery2024", ErrWeakPassword},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := CheckStrength(tt.password); err != tt.wantErr {
				t.Errorf("CheckStrength(%q) = %v, want %v", tt.password, err, tt.wantErr)
			}
		})
	}
}

func TestVerifyInvalidHash(t *testing.T) {
	tests := []struct {
		name string
		hash string
	}{
		{"empty string", ""},
		{"random string", "randomgarbage"},
		{"wrong algorithm", "$argon2i$v=19$m=65536,t=3,p=2$c29tZXNhbHQ$c29tZWhhc2g"},
		{"malformed params", "$argon2id$v=19$invalid$c29tZXNhbHQ$c29tZWhhc2g"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := Verify(tt.hash, "anypassword"); err != ErrInvalidHash {
				t.Errorf("Verify() error = %v, want %v", err, ErrInvalidHash)
			}
		})
	}
}

package model

import "time"

type Role string

const (
	RolePatient   Role = "patient"
	RoleClinician Role = "clinician"
	RoleAdmin     Role = "admin"
)

func (r Role) Valid() bool {
	switch r {
	case RolePatient, RoleClinician, RoleAdmin:
		return true
	}
	return false
}

type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// User is a member of exactly one hospital. IDs are unique across the whole
// Document so that authentication does not need a hospital qualifier.
type User struct {
	ID         string    `json:"id"`
	HospitalID string    `json:"hospital_id"`
	Role       Role      `json:"role"`
	Status     Status    `json:"status"`
	// PasswordHash is an Argon2id PHC string; the per-user salt is embedded
	// in the encoding.
	PasswordHash string    `json:"password_hash"`
	FullName     string    `json:"full_name"`
	DOB          string    `json:"dob"`
	Sex          string    `json:"sex"`
	Pronouns     string    `json:"pronouns"`
	Bio          string    `json:"bio"`
	CreatedAt    time.Time `json:"created_at"`
}

// Assignment links a clinician to a patient within one hospital.
type Assignment struct {
	ClinicianID string    `json:"clinician_id"`
	PatientID   string    `json:"patient_id"`
	CreatedAt   time.Time `json:"created_at"`
}

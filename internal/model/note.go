package model

import "time"

type NoteKind string

const (
	NoteKindJournal  NoteKind = "patient-journal"
	NoteKindClinical NoteKind = "clinical"
)

type Visibility string

const (
	VisibleToPatient Visibility = "visible-to-patient"
	ClinicianOnly    Visibility = "clinician-only"
)

// MaxScore bounds the self-reported mood/pain/appetite scales.
const MaxScore = 10

// PainAlertThreshold is the pain score that raises an Alert.
const PainAlertThreshold = 10

func ValidScore(n int) bool { return n >= 0 && n <= MaxScore }

// Note is a patient journal entry or a clinical note. Immutable once
// created, except for the Visibility/Private toggles.
type Note struct {
	ID         string   `json:"id"`
	HospitalID string   `json:"hospital_id"`
	AuthorID   string   `json:"author_id"`
	PatientID  string   `json:"patient_id"`
	Kind       NoteKind `json:"kind"`

	Mood      int    `json:"mood"`
	Pain      int    `json:"pain"`
	Appetite  int    `json:"appetite"`
	Narrative string `json:"narrative"`
	// Diagnosis is only set on clinical notes.
	Diagnosis string `json:"diagnosis,omitempty"`

	// Visibility applies to clinical notes only.
	Visibility Visibility `json:"visibility,omitempty"`
	// Private applies to patient journal notes only and hides the note
	// from clinicians.
	Private bool `json:"private,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

type AlertStatus string

const (
	AlertOpen         AlertStatus = "open"
	AlertAcknowledged AlertStatus = "acknowledged"
)

// Alert is derived from a Note whose pain score hit the threshold.
type Alert struct {
	ID             string      `json:"id"`
	HospitalID     string      `json:"hospital_id"`
	PatientID      string      `json:"patient_id"`
	SourceNoteID   string      `json:"source_note_id"`
	Status         AlertStatus `json:"status"`
	AcknowledgedBy string      `json:"acknowledged_by,omitempty"`
	AcknowledgedAt *time.Time  `json:"acknowledged_at,omitempty"`
	CreatedAt      time.Time   `json:"created_at"`
}

package model

import "time"

type FeedbackStatus string

const (
	FeedbackDrafted   FeedbackStatus = "drafted"
	FeedbackApproved  FeedbackStatus = "approved"
	FeedbackRejected  FeedbackStatus = "rejected"
	FeedbackDelivered FeedbackStatus = "delivered"
)

// FeedbackRequest tracks clinician-gated release of AI-authored feedback on
// a patient note. Legal transitions: drafted -> approved -> delivered, or
// drafted -> rejected. Rejected and delivered are terminal.
type FeedbackRequest struct {
	ID         string         `json:"id"`
	HospitalID string         `json:"hospital_id"`
	NoteID     string         `json:"note_id"`
	PatientID  string         `json:"patient_id"`
	Status     FeedbackStatus `json:"status"`
	DraftText  string         `json:"draft_text,omitempty"`
	ReviewerID string         `json:"reviewer_id,omitempty"`
	FinalText  string         `json:"final_text,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
	ReviewedAt *time.Time     `json:"reviewed_at,omitempty"`
}

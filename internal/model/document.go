// Package model defines the in-memory representation of the persisted
// Document: hospitals and everything partitioned under them. It is pure
// data; all mutation goes through the care service.
package model

import "time"

// HospitalPolicy is the tenant-wide configuration of a hospital. The
// assignment restriction is always explicit: it is set when the hospital is
// created and can only be changed by an admin.
type HospitalPolicy struct {
	// RequireAssignment gates clinician access to patients behind an
	// active Assignment.
	RequireAssignment bool `json:"require_assignment"`
}

// Hospital is the tenant isolation boundary. Every entity under it carries
// the hospital id redundantly so access checks never have to walk upward.
type Hospital struct {
	ID          string             `json:"id"`
	Policy      HospitalPolicy     `json:"policy"`
	Users       map[string]*User   `json:"users"`
	Assignments []*Assignment      `json:"assignments"`
	Notes       []*Note            `json:"notes"`
	Alerts      []*Alert           `json:"alerts"`
	Channels    map[string]*Channel `json:"channels"`
	Feedback    []*FeedbackRequest `json:"feedback"`
	CreatedAt   time.Time          `json:"created_at"`
}

func NewHospital(id string, policy HospitalPolicy, now time.Time) *Hospital {
	return &Hospital{
		ID:        id,
		Policy:    policy,
		Users:     make(map[string]*User),
		Channels:  make(map[string]*Channel),
		CreatedAt: now,
	}
}

// Assigned reports whether the clinician has an active assignment to the
// patient.
func (h *Hospital) Assigned(clinicianID, patientID string) bool {
	for _, a := range h.Assignments {
		if a.ClinicianID == clinicianID && a.PatientID == patientID {
			return true
		}
	}
	return false
}

func (h *Hospital) NoteByID(id string) *Note {
	for _, n := range h.Notes {
		if n.ID == id {
			return n
		}
	}
	return nil
}

func (h *Hospital) AlertByID(id string) *Alert {
	for _, a := range h.Alerts {
		if a.ID == id {
			return a
		}
	}
	return nil
}

func (h *Hospital) FeedbackByID(id string) *FeedbackRequest {
	for _, f := range h.Feedback {
		if f.ID == id {
			return f
		}
	}
	return nil
}

// Document is the entire persisted state, plus the version counter used for
// changed-since-load detection. It is serialized deterministically (maps
// sort by key under encoding/json) and stored as one encrypted blob.
type Document struct {
	Version   uint64               `json:"version"`
	Hospitals map[string]*Hospital `json:"hospitals"`
}

func NewDocument() *Document {
	return &Document{Hospitals: make(map[string]*Hospital)}
}

func (d *Document) Hospital(id string) *Hospital {
	return d.Hospitals[id]
}

// FindUser looks a user up by globally unique id.
func (d *Document) FindUser(userID string) (*User, *Hospital) {
	for _, h := range d.Hospitals {
		if u, ok := h.Users[userID]; ok {
			return u, h
		}
	}
	return nil, nil
}

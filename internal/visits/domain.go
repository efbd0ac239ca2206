// Package visits keeps the clinical record of completed patient visits.
package visits

import (
	"errors"
	"time"
)

// Visit record statuses. A record is filed completed unless the dentist
// flags that the patient must come back.
const (
	StatusCompleted = "completed"
	StatusFollowUp  = "follow-up"
)

// Visit is a single clinical encounter.
type Visit struct {
	ID          string       `json:"id"`
	PatientID   string       `json:"patient_id"`
	PatientName string       `json:"patient_name"`
	DentistName string       `json:"dentist_name"`
	Date        time.Time    `json:"date"`
	Treatment   string       `json:"treatment"`
	Diagnosis   string       `json:"diagnosis,omitempty"`
	Medications string       `json:"medications,omitempty"`
	Notes       string       `json:"notes,omitempty"`
	Cost        float64      `json:"cost"`
	Status      string       `json:"status"`
	Attachments []Attachment `json:"files"`
	CreatedAt   time.Time    `json:"created_at"`
}

// Attachment is a file linked to a visit, stored externally and referenced
// by name and URL.
type Attachment struct {
	Name string `json:"name"`
	URL  string `json:"url"`
	Size int64  `json:"size,omitempty"`
}

// ErrVisitNotFound indicates a missing visit record.
var ErrVisitNotFound = errors.New("visits: visit not found")

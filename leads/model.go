// Package leads implements the campaign lead repository: registration with
// duplicate protection, follow-up tracking, dashboard statistics, and the
// CSV export artifact.
package leads

import "errors"

// Lead is a campaign registrant. The five contact fields are validated by
// the form layer before they reach this package; CreatedAt is assigned
// once at registration and never changes. The tracking fields are nil
// until admin staff record a call or visit.
type Lead struct {
	ID            int64   `json:"id"`
	FullName      string  `json:"fullName"`
	PhoneNumber   string  `json:"phoneNumber"`
	Email         string  `json:"email"`
	Institution   string  `json:"institution"`
	Occupation    string  `json:"occupation"`
	CreatedAt     string  `json:"createdAt"`
	CallDatetime  *string `json:"callDatetime,omitempty"`
	CallNotes     *string `json:"callNotes,omitempty"`
	VisitDatetime *string `json:"visitDatetime,omitempty"`
	VisitNotes    *string `json:"visitNotes,omitempty"`
}

// NewLead carries the five registrant-supplied fields.
type NewLead struct {
	FullName    string `json:"fullName"`
	PhoneNumber string `json:"phoneNumber"`
	Email       string `json:"email"`
	Institution string `json:"institution"`
	Occupation  string `json:"occupation"`
}

// Tracking is the full set of follow-up fields. UpdateTracking replaces
// all four in one statement; a nil field clears the stored value rather
// than leaving it unchanged.
type Tracking struct {
	CallDatetime  *string `json:"callDatetime"`
	CallNotes     *string `json:"callNotes"`
	VisitDatetime *string `json:"visitDatetime"`
	VisitNotes    *string `json:"visitNotes"`
}

// DuplicateCheck is the advisory pre-check result shown inline on the
// form. Field is "email" or "phone"; email wins when both match.
type DuplicateCheck struct {
	IsDuplicate bool   `json:"isDuplicate"`
	Field       string `json:"field,omitempty"`
}

var (
	// ErrDuplicateEmail rejects a registration whose email is taken.
	ErrDuplicateEmail = errors.New("email already registered")
	// ErrDuplicatePhone rejects a registration whose phone number is taken.
	ErrDuplicatePhone = errors.New("phone number already registered")
)

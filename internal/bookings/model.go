package bookings

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of a booking. confirmed and cancelled are
// terminal. in_progress is written by the session runner, never by this
// package, but it still blocks the slot.
type Status string

const (
	StatusPending    Status = "pending"
	StatusConfirmed  Status = "confirmed"
	StatusInProgress Status = "in_progress"
	StatusCancelled  Status = "cancelled"
)

// activeStatuses are the states that occupy an expert's calendar slot.
var activeStatuses = []string{
	string(StatusPending),
	string(StatusConfirmed),
	string(StatusInProgress),
}

// Booking is a reserved consultation slot between a client and an expert.
type Booking struct {
	ID                 uuid.UUID       `json:"id"`
	ExpertID           uuid.UUID       `json:"expert_id"`
	ClientID           uuid.UUID       `json:"client_id"`
	StartTime          time.Time       `json:"start_time"`
	EndTime            time.Time       `json:"end_time"`
	DurationMinutes    int             `json:"duration_minutes"`
	PriceCents         int64           `json:"price_cents"`
	Currency           string          `json:"currency"`
	Status             Status          `json:"status"`
	IntakeData         json.RawMessage `json:"intake_data,omitempty"`
	ContactEmail       string          `json:"contact_email"`
	ContactName        string          `json:"contact_name"`
	MeetingLink        string          `json:"meeting_link,omitempty"`
	CancelledBy        string          `json:"cancelled_by,omitempty"`
	CancellationReason string          `json:"cancellation_reason,omitempty"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
}

// ReserveRequest carries everything needed to hold a slot.
type ReserveRequest struct {
	ExpertID        uuid.UUID       `json:"expert_id"`
	ClientID        uuid.UUID       `json:"-"`
	StartTime       time.Time       `json:"start_time"`
	DurationMinutes int             `json:"duration_minutes"`
	PriceCents      int64           `json:"price_cents"`
	Currency        string          `json:"currency"`
	ContactEmail    string          `json:"contact_email"`
	ContactName     string          `json:"contact_name"`
	IntakeData      json.RawMessage `json:"intake_data,omitempty"`
}

// Validate checks required fields before any external call is made.
func (r *ReserveRequest) Validate() error {
	if r.ExpertID == uuid.Nil {
		return ErrMissingExpert
	}
	if r.ClientID == uuid.Nil {
		return ErrMissingClient
	}
	if r.StartTime.IsZero() {
		return ErrMissingStartTime
	}
	if r.DurationMinutes <= 0 {
		return ErrInvalidDuration
	}
	if r.PriceCents < 0 {
		return ErrInvalidPrice
	}
	if email := strings.TrimSpace(r.ContactEmail); email == "" || !strings.Contains(email, "@") {
		return ErrInvalidContactEmail
	}
	if strings.TrimSpace(r.ContactName) == "" {
		return ErrMissingContactName
	}
	return nil
}

// EndTime derives the half-open slot end from start + duration.
func (r *ReserveRequest) EndTime() time.Time {
	return r.StartTime.Add(time.Duration(r.DurationMinutes) * time.Minute)
}

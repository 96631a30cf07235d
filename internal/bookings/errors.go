package bookings

import "errors"

var (
	// ErrSlotConflict is returned when the requested interval overlaps an
	// active booking for the same expert.
	ErrSlotConflict = errors.New("time slot no longer available")

	// ErrBookingNotFound is returned when no booking matches the id.
	ErrBookingNotFound = errors.New("booking not found")

	// ErrAlreadyConfirmed is returned when confirming a booking that has
	// already left the pending state.
	ErrAlreadyConfirmed = errors.New("booking already confirmed")

	// ErrAlreadyCancelled is returned when acting on a cancelled booking.
	ErrAlreadyCancelled = errors.New("booking already cancelled")

	ErrMissingExpert       = errors.New("expert_id is required")
	ErrMissingClient       = errors.New("client_id is required")
	ErrMissingStartTime    = errors.New("start_time is required")
	ErrInvalidDuration     = errors.New("duration_minutes must be positive")
	ErrInvalidPrice        = errors.New("price must not be negative")
	ErrInvalidContactEmail = errors.New("a valid contact email is required")
	ErrMissingContactName  = errors.New("contact name is required")
)

// IsValidationError reports whether err is one of the input-validation
// sentinels, i.e. recoverable by the caller resubmitting corrected input.
func IsValidationError(err error) bool {
	for _, sentinel := range []error{
		ErrMissingExpert, ErrMissingClient, ErrMissingStartTime,
		ErrInvalidDuration, ErrInvalidPrice, ErrInvalidContactEmail,
		ErrMissingContactName,
	} {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}

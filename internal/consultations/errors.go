package consultations

import (
	"fmt"

	"github.com/google/uuid"
)

// CriticalInconsistencyError reports the one failure mode that needs an
// operator: a charge settled but the booking could not be marked confirmed.
// Money has moved while the ledger disagrees. It carries both identifiers so
// the mismatch can be reconciled by hand; the charge is never rolled back
// automatically.
type CriticalInconsistencyError struct {
	BookingID       uuid.UUID
	PaymentIntentID string
	Err             error
}

func (e *CriticalInconsistencyError) Error() string {
	return fmt.Sprintf(
		"critical inconsistency: charge %s captured but booking %s not confirmed: %v",
		e.PaymentIntentID, e.BookingID, e.Err,
	)
}

func (e *CriticalInconsistencyError) Unwrap() error {
	return e.Err
}

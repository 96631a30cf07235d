package payments

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/mentoji/platform/internal/bookings"
	"github.com/mentoji/platform/pkg/logging"
)

var (
	// ErrChargeNotSucceeded is returned when the processor reports the
	// intent in any state other than succeeded.
	ErrChargeNotSucceeded = errors.New("charge has not succeeded")

	// ErrIntentBookingMismatch is returned when the intent's metadata points
	// at a different booking than the caller supplied.
	ErrIntentBookingMismatch = errors.New("payment intent does not belong to booking")
)

// ProcessorClient is the external payment processor surface the gateway
// needs. StripeClient implements it.
type ProcessorClient interface {
	CreateIntent(ctx context.Context, params CreateIntentParams) (*Intent, error)
	RetrieveIntent(ctx context.Context, intentID string) (*Intent, error)
	CreateRefund(ctx context.Context, intentID string, amountCents int64) (string, error)
}

type recordStore interface {
	Create(ctx context.Context, rec *Record) error
	GetByBookingID(ctx context.Context, bookingID uuid.UUID) (*Record, error)
	MarkRefunded(ctx context.Context, id uuid.UUID, refundCents int64) error
}

// Service is the payment gateway adapter: it creates charge intents and
// reconciles settled charges into local payment records.
type Service struct {
	client ProcessorClient
	repo   recordStore
	fees   FeeSchedule
	logger *logging.Logger
}

// NewService constructs the gateway.
func NewService(client ProcessorClient, repo *Repository, fees FeeSchedule, logger *logging.Logger) *Service {
	if client == nil {
		panic("payments: processor client required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{client: client, repo: repo, fees: fees, logger: logger}
}

// newServiceWithStore allows injecting a stub record store in tests.
func newServiceWithStore(client ProcessorClient, repo recordStore, fees FeeSchedule, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{client: client, repo: repo, fees: fees, logger: logger}
}

// CreateChargeIntent asks the processor for a new intent covering the
// booking's price. No local state is written; the processor is the source of
// truth until the charge settles.
func (s *Service) CreateChargeIntent(ctx context.Context, b *bookings.Booking) (*Intent, error) {
	intent, err := s.client.CreateIntent(ctx, CreateIntentParams{
		BookingID:     b.ID,
		AmountCents:   b.PriceCents,
		Currency:      b.Currency,
		CustomerEmail: b.ContactEmail,
		CustomerName:  b.ContactName,
		Description:   fmt.Sprintf("MentoJi consultation (%d min)", b.DurationMinutes),
	})
	if err != nil {
		return nil, fmt.Errorf("payments: create intent: %w", err)
	}
	s.logger.Info("charge intent created", "booking_id", b.ID, "intent_id", intent.ID, "amount_cents", b.PriceCents)
	return intent, nil
}

// ConfirmCharge verifies with the processor that the intent settled, computes
// the fee breakdown, and persists the payment record for the booking.
func (s *Service) ConfirmCharge(ctx context.Context, intentID string, b *bookings.Booking) (*Record, error) {
	intent, err := s.client.RetrieveIntent(ctx, intentID)
	if err != nil {
		return nil, fmt.Errorf("payments: retrieve intent %s: %w", intentID, err)
	}
	if intent.Status != "succeeded" {
		return nil, fmt.Errorf("payments: intent %s status %q: %w", intentID, intent.Status, ErrChargeNotSucceeded)
	}
	if metaBooking := intent.Metadata["booking_id"]; metaBooking != "" && metaBooking != b.ID.String() {
		return nil, ErrIntentBookingMismatch
	}

	split := s.fees.Split(b.PriceCents)
	rec := &Record{
		ID:                 uuid.New(),
		BookingID:          b.ID,
		ExternalChargeID:   intent.ID,
		AmountCents:        split.AmountCents,
		Currency:           b.Currency,
		ProcessingFeeCents: split.ProcessingFeeCents,
		PlatformFeeCents:   split.PlatformFeeCents,
		PayeePayoutCents:   split.PayeePayoutCents,
		CustomerEmail:      b.ContactEmail,
		CustomerName:       b.ContactName,
		Status:             intent.Status,
	}
	if err := s.repo.Create(ctx, rec); err != nil {
		if errors.Is(err, ErrDuplicatePayment) {
			return nil, err
		}
		return nil, fmt.Errorf("payments: persist record: %w", err)
	}

	s.logger.Info("charge confirmed",
		"booking_id", b.ID,
		"charge_id", intent.ID,
		"amount_cents", split.AmountCents,
		"payout_cents", split.PayeePayoutCents,
	)
	return rec, nil
}

// Refund refunds a booking's settled charge. amountCents of zero refunds the
// full charge. The refund is recorded on the payment record.
func (s *Service) Refund(ctx context.Context, bookingID uuid.UUID, amountCents int64) (string, error) {
	rec, err := s.repo.GetByBookingID(ctx, bookingID)
	if err != nil {
		return "", err
	}
	if amountCents <= 0 {
		amountCents = rec.AmountCents
	}
	refundID, err := s.client.CreateRefund(ctx, rec.ExternalChargeID, amountCents)
	if err != nil {
		return "", fmt.Errorf("payments: refund charge %s: %w", rec.ExternalChargeID, err)
	}
	if err := s.repo.MarkRefunded(ctx, rec.ID, amountCents); err != nil {
		// The processor refunded but our record didn't update. Log loudly;
		// the refund id gives operators the reconciliation handle.
		s.logger.Error("refund issued but record update failed",
			"error", err, "refund_id", refundID, "booking_id", bookingID)
	}
	s.logger.Info("refund issued", "booking_id", bookingID, "refund_id", refundID, "amount_cents", amountCents)
	return refundID, nil
}

// RecordForBooking exposes the stored payment record.
func (s *Service) RecordForBooking(ctx context.Context, bookingID uuid.UUID) (*Record, error) {
	return s.repo.GetByBookingID(ctx, bookingID)
}

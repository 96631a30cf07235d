package consultations

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/mentoji/platform/internal/bookings"
	"github.com/mentoji/platform/internal/experts"
	"github.com/mentoji/platform/internal/observability/metrics"
	"github.com/mentoji/platform/internal/payments"
	"github.com/mentoji/platform/pkg/logging"
)

var orchestratorTracer = otel.Tracer("mentoji.internal.consultations")

// Ledger is the booking lifecycle surface the orchestrator drives.
// bookings.Service implements it.
type Ledger interface {
	Reserve(ctx context.Context, req *bookings.ReserveRequest) (*bookings.Booking, error)
	Confirm(ctx context.Context, id uuid.UUID) (*bookings.Booking, error)
	Cancel(ctx context.Context, id uuid.UUID, cancelledBy, reason string) (*bookings.Booking, error)
	Get(ctx context.Context, id uuid.UUID) (*bookings.Booking, error)
	SetMeetingLink(ctx context.Context, id uuid.UUID, link string) error
}

// Gateway is the payment surface. payments.Service implements it.
type Gateway interface {
	CreateChargeIntent(ctx context.Context, b *bookings.Booking) (*payments.Intent, error)
	ConfirmCharge(ctx context.Context, intentID string, b *bookings.Booking) (*payments.Record, error)
	Refund(ctx context.Context, bookingID uuid.UUID, amountCents int64) (string, error)
}

// MeetingProvisioner never fails; it either provisions a room or hands back
// the fallback link. meetings.Provisioner implements it.
type MeetingProvisioner interface {
	Provision(ctx context.Context, b *bookings.Booking) (string, bool)
	FallbackLink(b *bookings.Booking) string
}

// ConfirmationMailer sends best-effort confirmations. notify.Mailer
// implements it.
type ConfirmationMailer interface {
	SendClientConfirmation(ctx context.Context, b *bookings.Booking, e *experts.Expert, meetingLink string) bool
	SendExpertConfirmation(ctx context.Context, b *bookings.Booking, e *experts.Expert, meetingLink string) bool
}

// ExpertDirectory looks up expert profiles. experts.Repository implements it.
type ExpertDirectory interface {
	GetByID(ctx context.Context, id uuid.UUID) (*experts.Expert, error)
}

// StepStatus tells the caller exactly how far automation got, so a degraded
// best-effort step is visible without failing the overall flow.
type StepStatus struct {
	PaymentConfirmed      bool `json:"paymentConfirmed"`
	ConsultationConfirmed bool `json:"consultationConfirmed"`
	MeetingRoomCreated    bool `json:"meetingRoomCreated"`
	ClientEmailSent       bool `json:"clientEmailSent"`
	ExpertEmailSent       bool `json:"expertEmailSent"`
}

// FinalizeRequest identifies the booking and the settled payment intent.
type FinalizeRequest struct {
	BookingID       uuid.UUID
	PaymentIntentID string
}

// FinalizeResult is the outcome of a successful finalize flow.
type FinalizeResult struct {
	Booking    *bookings.Booking
	Payment    *payments.Record
	MeetingURL string
	Status     StepStatus
}

// CancelRequest cancels a consultation, optionally refunding the charge.
type CancelRequest struct {
	BookingID   uuid.UUID
	CancelledBy string
	Reason      string
	Refund      bool
}

// CancelResult reports the cancel outcome, including the best-effort refund.
type CancelResult struct {
	Booking      *bookings.Booking
	RefundID     string
	RefundFailed bool
}

// Orchestrator sequences the booking workflow: reserve, then confirm payment
// and finalize, with compensation rules for partial failure. It is the only
// writer of booking status transitions.
type Orchestrator struct {
	ledger      Ledger
	gateway     Gateway
	provisioner MeetingProvisioner
	mailer      ConfirmationMailer
	experts     ExpertDirectory
	metrics     *metrics.BookingMetrics
	logger      *logging.Logger
}

// NewOrchestrator wires the workflow controller.
func NewOrchestrator(
	ledger Ledger,
	gateway Gateway,
	provisioner MeetingProvisioner,
	mailer ConfirmationMailer,
	expertDir ExpertDirectory,
	m *metrics.BookingMetrics,
	logger *logging.Logger,
) *Orchestrator {
	if ledger == nil {
		panic("consultations: ledger required")
	}
	if gateway == nil {
		panic("consultations: payment gateway required")
	}
	if provisioner == nil {
		panic("consultations: meeting provisioner required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Orchestrator{
		ledger:      ledger,
		gateway:     gateway,
		provisioner: provisioner,
		mailer:      mailer,
		experts:     expertDir,
		metrics:     m,
		logger:      logger,
	}
}

// Reserve validates and holds a slot. Terminal on validation or conflict
// failure; no payment side effects.
func (o *Orchestrator) Reserve(ctx context.Context, req *bookings.ReserveRequest) (*bookings.Booking, error) {
	ctx, span := orchestratorTracer.Start(ctx, "consultations.reserve")
	defer span.End()

	booking, err := o.ledger.Reserve(ctx, req)
	if err != nil {
		switch {
		case errors.Is(err, bookings.ErrSlotConflict):
			o.metrics.ObserveReservation("conflict")
		case bookings.IsValidationError(err):
			o.metrics.ObserveReservation("invalid")
		default:
			o.metrics.ObserveReservation("error")
		}
		return nil, err
	}
	o.metrics.ObserveReservation("created")
	return booking, nil
}

// CreateIntent asks the processor for a charge intent covering a pending
// booking.
func (o *Orchestrator) CreateIntent(ctx context.Context, bookingID uuid.UUID) (*payments.Intent, *bookings.Booking, error) {
	booking, err := o.ledger.Get(ctx, bookingID)
	if err != nil {
		return nil, nil, err
	}
	if booking.Status != bookings.StatusPending {
		return nil, nil, bookings.ErrAlreadyConfirmed
	}
	intent, err := o.gateway.CreateChargeIntent(ctx, booking)
	if err != nil {
		return nil, nil, err
	}
	return intent, booking, nil
}

// Finalize confirms the charge and walks the booking to its fully-provisioned
// state. Steps after booking confirmation are best-effort: each failure is
// folded into the step status instead of aborting the flow.
func (o *Orchestrator) Finalize(ctx context.Context, req FinalizeRequest) (*FinalizeResult, error) {
	ctx, span := orchestratorTracer.Start(ctx, "consultations.finalize")
	defer span.End()
	span.SetAttributes(
		attribute.String("mentoji.booking_id", req.BookingID.String()),
		attribute.String("mentoji.intent_id", req.PaymentIntentID),
	)
	started := time.Now()
	defer func() { o.metrics.ObserveFinalizeDuration(time.Since(started).Seconds()) }()

	booking, err := o.ledger.Get(ctx, req.BookingID)
	if err != nil {
		o.metrics.ObserveFinalization("not_found")
		return nil, err
	}
	// A second finalize on a confirmed booking is rejected before the
	// processor is touched, so nothing is re-charged or re-provisioned.
	switch booking.Status {
	case bookings.StatusConfirmed, bookings.StatusInProgress:
		o.metrics.ObserveFinalization("already_confirmed")
		return nil, bookings.ErrAlreadyConfirmed
	case bookings.StatusCancelled:
		o.metrics.ObserveFinalization("cancelled")
		return nil, bookings.ErrAlreadyCancelled
	}

	// Step 1: confirm the charge. Failure aborts with no booking mutation.
	record, err := o.gateway.ConfirmCharge(ctx, req.PaymentIntentID, booking)
	if err != nil {
		span.RecordError(err)
		o.metrics.ObserveFinalization("charge_failed")
		return nil, err
	}
	status := StepStatus{PaymentConfirmed: true}

	// Step 2: confirm the booking. Failure here after a captured charge is
	// the critical inconsistency; surface both ids, never refund
	// automatically.
	confirmed, err := o.ledger.Confirm(ctx, booking.ID)
	if err != nil {
		span.RecordError(err)
		o.metrics.ObserveFinalization("critical_inconsistency")
		o.logger.Error("charge captured but booking confirmation failed",
			"booking_id", booking.ID,
			"intent_id", req.PaymentIntentID,
			"error", err,
		)
		return nil, &CriticalInconsistencyError{
			BookingID:       booking.ID,
			PaymentIntentID: req.PaymentIntentID,
			Err:             err,
		}
	}
	status.ConsultationConfirmed = true

	// Step 3: expert details, best-effort. Downstream steps tolerate nil.
	var expert *experts.Expert
	if o.experts != nil {
		if expert, err = o.experts.GetByID(ctx, confirmed.ExpertID); err != nil {
			o.metrics.ObserveStepFailure("expert_lookup")
			o.logger.Warn("expert lookup failed, continuing with partial data",
				"booking_id", confirmed.ID, "error", err)
			expert = nil
		}
	}

	// Steps 4-5: meeting room, best-effort with deterministic fallback.
	meetingURL, provisioned := o.provisioner.Provision(ctx, confirmed)
	status.MeetingRoomCreated = provisioned
	if !provisioned {
		o.metrics.ObserveStepFailure("meeting")
	}
	if err := o.ledger.SetMeetingLink(ctx, confirmed.ID, meetingURL); err != nil {
		o.metrics.ObserveStepFailure("meeting_link_persist")
		o.logger.Error("failed to persist meeting link",
			"booking_id", confirmed.ID, "error", err)
	} else {
		confirmed.MeetingLink = meetingURL
	}

	// Steps 6-7: notifications, independently best-effort.
	if o.mailer != nil {
		status.ClientEmailSent = o.mailer.SendClientConfirmation(ctx, confirmed, expert, meetingURL)
		if !status.ClientEmailSent {
			o.metrics.ObserveStepFailure("client_email")
		}
		status.ExpertEmailSent = o.mailer.SendExpertConfirmation(ctx, confirmed, expert, meetingURL)
		if !status.ExpertEmailSent {
			o.metrics.ObserveStepFailure("expert_email")
		}
	}

	o.metrics.ObserveFinalization("ok")
	o.logger.Info("consultation finalized",
		"booking_id", confirmed.ID,
		"charge_id", record.ExternalChargeID,
		"meeting_provisioned", provisioned,
		"client_email_sent", status.ClientEmailSent,
		"expert_email_sent", status.ExpertEmailSent,
	)
	return &FinalizeResult{
		Booking:    confirmed,
		Payment:    record,
		MeetingURL: meetingURL,
		Status:     status,
	}, nil
}

// Cancel terminally cancels a booking and, when asked, refunds the charge.
// The refund is best-effort: its failure is reported but never un-cancels.
func (o *Orchestrator) Cancel(ctx context.Context, req CancelRequest) (*CancelResult, error) {
	ctx, span := orchestratorTracer.Start(ctx, "consultations.cancel")
	defer span.End()

	booking, err := o.ledger.Cancel(ctx, req.BookingID, req.CancelledBy, req.Reason)
	if err != nil {
		return nil, err
	}

	result := &CancelResult{Booking: booking}
	if req.Refund {
		refundID, err := o.gateway.Refund(ctx, booking.ID, 0)
		switch {
		case err == nil:
			result.RefundID = refundID
		case errors.Is(err, payments.ErrRecordNotFound):
			// Nothing was ever charged; cancelling a pending booking.
		default:
			span.RecordError(err)
			result.RefundFailed = true
			o.logger.Error("refund failed after cancellation",
				"booking_id", booking.ID, "error", err)
		}
	}

	o.logger.Info("consultation cancelled",
		"booking_id", booking.ID,
		"cancelled_by", req.CancelledBy,
		"refund_id", result.RefundID,
	)
	return result, nil
}

package bookings

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/mentoji/platform/pkg/logging"
)

var bookingsTracer = otel.Tracer("mentoji.internal.bookings")

// Service owns slot reservation and booking lifecycle transitions.
type Service struct {
	repo   *Repository
	logger *logging.Logger
}

// NewService constructs a bookings service.
func NewService(repo *Repository, logger *logging.Logger) *Service {
	if repo == nil {
		panic("bookings: repository required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{repo: repo, logger: logger}
}

// Reserve validates the request, checks the expert's calendar for overlap,
// and inserts a pending booking. No payment side effects happen here.
func (s *Service) Reserve(ctx context.Context, req *ReserveRequest) (*Booking, error) {
	ctx, span := bookingsTracer.Start(ctx, "bookings.reserve")
	defer span.End()

	if err := req.Validate(); err != nil {
		return nil, err
	}

	start := req.StartTime.UTC().Truncate(time.Minute)
	end := start.Add(time.Duration(req.DurationMinutes) * time.Minute)
	span.SetAttributes(
		attribute.String("mentoji.expert_id", req.ExpertID.String()),
		attribute.String("mentoji.slot_start", start.Format(time.RFC3339)),
	)

	conflict, err := s.repo.HasConflict(ctx, req.ExpertID, start, end)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if conflict {
		return nil, ErrSlotConflict
	}

	currency := strings.ToLower(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = "usd"
	}

	booking := &Booking{
		ID:              uuid.New(),
		ExpertID:        req.ExpertID,
		ClientID:        req.ClientID,
		StartTime:       start,
		EndTime:         end,
		DurationMinutes: req.DurationMinutes,
		PriceCents:      req.PriceCents,
		Currency:        currency,
		Status:          StatusPending,
		IntakeData:      req.IntakeData,
		ContactEmail:    strings.TrimSpace(req.ContactEmail),
		ContactName:     strings.TrimSpace(req.ContactName),
	}
	if err := s.repo.Create(ctx, booking); err != nil {
		span.RecordError(err)
		return nil, err
	}

	s.logger.Info("slot reserved",
		"booking_id", booking.ID,
		"expert_id", booking.ExpertID,
		"start", booking.StartTime,
		"duration_min", booking.DurationMinutes,
	)
	return booking, nil
}

// Confirm moves a pending booking to confirmed.
func (s *Service) Confirm(ctx context.Context, id uuid.UUID) (*Booking, error) {
	ctx, span := bookingsTracer.Start(ctx, "bookings.confirm")
	defer span.End()
	span.SetAttributes(attribute.String("mentoji.booking_id", id.String()))

	booking, err := s.repo.Confirm(ctx, id)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	s.logger.Info("booking confirmed", "booking_id", id)
	return booking, nil
}

// Cancel terminally cancels a booking with an audit trail.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID, cancelledBy, reason string) (*Booking, error) {
	ctx, span := bookingsTracer.Start(ctx, "bookings.cancel")
	defer span.End()
	span.SetAttributes(attribute.String("mentoji.booking_id", id.String()))

	booking, err := s.repo.Cancel(ctx, id, cancelledBy, reason)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	s.logger.Info("booking cancelled", "booking_id", id, "cancelled_by", cancelledBy)
	return booking, nil
}

// Get fetches a booking by id.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Booking, error) {
	return s.repo.GetByID(ctx, id)
}

// SetMeetingLink persists the meeting URL on the booking.
func (s *Service) SetMeetingLink(ctx context.Context, id uuid.UUID, link string) error {
	return s.repo.SetMeetingLink(ctx, id, link)
}

// HasConflict exposes the read-only conflict check.
func (s *Service) HasConflict(ctx context.Context, expertID uuid.UUID, start, end time.Time) (bool, error) {
	return s.repo.HasConflict(ctx, expertID, start.UTC(), end.UTC())
}

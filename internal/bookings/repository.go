package bookings

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
)

// DB is the subset of pgxpool.Pool the repository needs. pgxmock satisfies
// it for tests.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository is the booking ledger: the durable record of a booking's
// lifecycle. Status transitions only ever happen here.
type Repository struct {
	db DB
}

// NewRepository creates a repository backed by a pgx pool.
func NewRepository(db DB) *Repository {
	if db == nil {
		panic("bookings: db required")
	}
	return &Repository{db: db}
}

const bookingColumns = `id, expert_id, client_id, start_time, end_time,
	duration_minutes, price_cents, currency, status, intake_data,
	contact_email, contact_name, meeting_link, cancelled_by,
	cancellation_reason, created_at, updated_at`

// HasConflict reports whether an active booking for the expert overlaps
// [start, end). Half-open ranges: a booking ending exactly at start does not
// conflict, so back-to-back sessions stay bookable.
func (r *Repository) HasConflict(ctx context.Context, expertID uuid.UUID, start, end time.Time) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM bookings
			WHERE expert_id = $1
			  AND status = ANY($2)
			  AND tstzrange(start_time, end_time, '[)') && tstzrange($3, $4, '[)')
		)
	`
	var exists bool
	if err := r.db.QueryRow(ctx, query, toPGUUID(expertID), activeStatuses, start, end).Scan(&exists); err != nil {
		return false, fmt.Errorf("bookings: conflict check: %w", err)
	}
	return exists, nil
}

// Create inserts a pending booking. The exclusion constraint on
// (expert_id, time range) closes the check-then-insert race: a violation
// surfaces as the same ErrSlotConflict the conflict check produces.
func (r *Repository) Create(ctx context.Context, b *Booking) error {
	query := `
		INSERT INTO bookings (id, expert_id, client_id, start_time, end_time,
			duration_minutes, price_cents, currency, status, intake_data,
			contact_email, contact_name)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING created_at, updated_at
	`
	err := r.db.QueryRow(ctx, query,
		toPGUUID(b.ID),
		toPGUUID(b.ExpertID),
		toPGUUID(b.ClientID),
		b.StartTime,
		b.EndTime,
		b.DurationMinutes,
		b.PriceCents,
		b.Currency,
		string(b.Status),
		b.IntakeData,
		b.ContactEmail,
		b.ContactName,
	).Scan(&b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23P01" {
			return ErrSlotConflict
		}
		return fmt.Errorf("bookings: insert: %w", err)
	}
	return nil
}

// GetByID fetches a booking.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1`
	b, err := scanBooking(r.db.QueryRow(ctx, query, toPGUUID(id)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrBookingNotFound
		}
		return nil, fmt.Errorf("bookings: select: %w", err)
	}
	return b, nil
}

// Confirm transitions a pending booking to confirmed and stamps updated_at.
// The status guard in the WHERE clause rejects a second confirm instead of
// silently re-running it.
func (r *Repository) Confirm(ctx context.Context, id uuid.UUID) (*Booking, error) {
	query := `
		UPDATE bookings
		SET status = 'confirmed', updated_at = now()
		WHERE id = $1 AND status = 'pending'
		RETURNING ` + bookingColumns
	b, err := scanBooking(r.db.QueryRow(ctx, query, toPGUUID(id)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, r.explainBlockedTransition(ctx, id, StatusConfirmed)
		}
		return nil, fmt.Errorf("bookings: confirm: %w", err)
	}
	return b, nil
}

// Cancel terminally cancels a booking from pending or confirmed, keeping the
// row for audit.
func (r *Repository) Cancel(ctx context.Context, id uuid.UUID, cancelledBy, reason string) (*Booking, error) {
	query := `
		UPDATE bookings
		SET status = 'cancelled', cancelled_by = $2, cancellation_reason = $3, updated_at = now()
		WHERE id = $1 AND status IN ('pending', 'confirmed')
		RETURNING ` + bookingColumns
	b, err := scanBooking(r.db.QueryRow(ctx, query, toPGUUID(id), cancelledBy, reason))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, r.explainBlockedTransition(ctx, id, StatusCancelled)
		}
		return nil, fmt.Errorf("bookings: cancel: %w", err)
	}
	return b, nil
}

// SetMeetingLink stores the provisioned (or fallback) meeting URL.
func (r *Repository) SetMeetingLink(ctx context.Context, id uuid.UUID, link string) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE bookings SET meeting_link = $2, updated_at = now() WHERE id = $1`,
		toPGUUID(id), link)
	if err != nil {
		return fmt.Errorf("bookings: set meeting link: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrBookingNotFound
	}
	return nil
}

// explainBlockedTransition re-reads the row to turn a zero-row UPDATE into a
// precise error for the caller.
func (r *Repository) explainBlockedTransition(ctx context.Context, id uuid.UUID, target Status) error {
	existing, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}
	switch existing.Status {
	case StatusCancelled:
		return ErrAlreadyCancelled
	case StatusConfirmed:
		if target == StatusConfirmed {
			return ErrAlreadyConfirmed
		}
	}
	return fmt.Errorf("bookings: cannot transition %s booking %s to %s", existing.Status, id, target)
}

func scanBooking(row pgx.Row) (*Booking, error) {
	var (
		b                           Booking
		id, expertID, clientID      pgtype.UUID
		status                      string
		meetingLink, cancelledBy    pgtype.Text
		cancellationReason          pgtype.Text
	)
	err := row.Scan(
		&id,
		&expertID,
		&clientID,
		&b.StartTime,
		&b.EndTime,
		&b.DurationMinutes,
		&b.PriceCents,
		&b.Currency,
		&status,
		&b.IntakeData,
		&b.ContactEmail,
		&b.ContactName,
		&meetingLink,
		&cancelledBy,
		&cancellationReason,
		&b.CreatedAt,
		&b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	b.ID = uuid.UUID(id.Bytes)
	b.ExpertID = uuid.UUID(expertID.Bytes)
	b.ClientID = uuid.UUID(clientID.Bytes)
	b.Status = Status(status)
	b.MeetingLink = meetingLink.String
	b.CancelledBy = cancelledBy.String
	b.CancellationReason = cancellationReason.String
	return &b, nil
}

func toPGUUID(id uuid.UUID) pgtype.UUID {
	if id == uuid.Nil {
		return pgtype.UUID{}
	}
	return pgtype.UUID{
		Bytes: [16]byte(id),
		Valid: true,
	}
}

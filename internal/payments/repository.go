package payments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/mentoji/platform/internal/bookings"
)

var (
	// ErrRecordNotFound is returned when no payment record matches.
	ErrRecordNotFound = errors.New("payment record not found")

	// ErrDuplicatePayment is returned when a booking already has a payment
	// record. One successful charge per booking.
	ErrDuplicatePayment = errors.New("payment already recorded for booking")
)

// Record is the durable trace of a settled charge, one per booking.
type Record struct {
	ID                 uuid.UUID `json:"id"`
	BookingID          uuid.UUID `json:"booking_id"`
	ExternalChargeID   string    `json:"external_charge_id"`
	AmountCents        int64     `json:"amount_cents"`
	Currency           string    `json:"currency"`
	ProcessingFeeCents int64     `json:"processing_fee_cents"`
	PlatformFeeCents   int64     `json:"platform_fee_cents"`
	PayeePayoutCents   int64     `json:"payee_payout_cents"`
	CustomerEmail      string    `json:"customer_email"`
	CustomerName       string    `json:"customer_name"`
	Status             string    `json:"status"`
	RefundCents        *int64    `json:"refund_cents,omitempty"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// Repository persists payment records.
type Repository struct {
	db bookings.DB
}

// NewRepository creates a repository backed by a pgx pool.
func NewRepository(db bookings.DB) *Repository {
	if db == nil {
		panic("payments: db required")
	}
	return &Repository{db: db}
}

// Create inserts a payment record for a settled charge.
func (r *Repository) Create(ctx context.Context, rec *Record) error {
	query := `
		INSERT INTO payment_records (id, booking_id, external_charge_id,
			amount_cents, currency, processing_fee_cents, platform_fee_cents,
			payee_payout_cents, customer_email, customer_name, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING created_at, updated_at
	`
	err := r.db.QueryRow(ctx, query,
		toPGUUID(rec.ID),
		toPGUUID(rec.BookingID),
		rec.ExternalChargeID,
		rec.AmountCents,
		rec.Currency,
		rec.ProcessingFeeCents,
		rec.PlatformFeeCents,
		rec.PayeePayoutCents,
		rec.CustomerEmail,
		rec.CustomerName,
		rec.Status,
	).Scan(&rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicatePayment
		}
		return fmt.Errorf("payments: insert record: %w", err)
	}
	return nil
}

const recordColumns = `id, booking_id, external_charge_id, amount_cents,
	currency, processing_fee_cents, platform_fee_cents, payee_payout_cents,
	customer_email, customer_name, status, refund_cents, created_at, updated_at`

// GetByBookingID fetches the payment record for a booking.
func (r *Repository) GetByBookingID(ctx context.Context, bookingID uuid.UUID) (*Record, error) {
	query := `SELECT ` + recordColumns + ` FROM payment_records WHERE booking_id = $1`
	return r.scanOne(r.db.QueryRow(ctx, query, toPGUUID(bookingID)))
}

// GetByChargeID fetches the payment record by processor reference.
func (r *Repository) GetByChargeID(ctx context.Context, chargeID string) (*Record, error) {
	query := `SELECT ` + recordColumns + ` FROM payment_records WHERE external_charge_id = $1`
	return r.scanOne(r.db.QueryRow(ctx, query, chargeID))
}

// MarkRefunded records a refund amount against the payment.
func (r *Repository) MarkRefunded(ctx context.Context, id uuid.UUID, refundCents int64) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE payment_records SET refund_cents = $2, status = 'refunded', updated_at = now() WHERE id = $1`,
		toPGUUID(id), refundCents)
	if err != nil {
		return fmt.Errorf("payments: mark refunded: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrRecordNotFound
	}
	return nil
}

func (r *Repository) scanOne(row pgx.Row) (*Record, error) {
	var (
		rec           Record
		id, bookingID pgtype.UUID
		refund        pgtype.Int8
	)
	err := row.Scan(
		&id,
		&bookingID,
		&rec.ExternalChargeID,
		&rec.AmountCents,
		&rec.Currency,
		&rec.ProcessingFeeCents,
		&rec.PlatformFeeCents,
		&rec.PayeePayoutCents,
		&rec.CustomerEmail,
		&rec.CustomerName,
		&rec.Status,
		&refund,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("payments: select record: %w", err)
	}
	rec.ID = uuid.UUID(id.Bytes)
	rec.BookingID = uuid.UUID(bookingID.Bytes)
	if refund.Valid {
		v := refund.Int64
		rec.RefundCents = &v
	}
	return &rec, nil
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

package payments

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/pashagolub/pgxmock/v4"
)

func newMockRepo(t *testing.T) (*Repository, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	t.Cleanup(mock.Close)
	return NewRepository(mock), mock
}

func anyArgs(n int) []any {
	args := make([]any, n)
	for i := range args {
		args[i] = pgxmock.AnyArg()
	}
	return args
}

func recordRow(id, bookingID uuid.UUID) *pgxmock.Rows {
	now := time.Now().UTC()
	return pgxmock.NewRows([]string{
		"id", "booking_id", "external_charge_id", "amount_cents", "currency",
		"processing_fee_cents", "platform_fee_cents", "payee_payout_cents",
		"customer_email", "customer_name", "status", "refund_cents",
		"created_at", "updated_at",
	}).AddRow(
		toPGUUID(id), toPGUUID(bookingID), "pi_1", int64(10000), "usd",
		int64(320), int64(1000), int64(9680),
		"client@example.com", "Avery Client", "succeeded", pgtype.Int8{},
		now, now,
	)
}

func TestCreateReturnsTimestamps(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Now().UTC()

	mock.ExpectQuery(`INSERT INTO payment_records`).
		WithArgs(anyArgs(11)...).
		WillReturnRows(pgxmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))

	rec := &Record{
		ID:               uuid.New(),
		BookingID:        uuid.New(),
		ExternalChargeID: "pi_1",
		AmountCents:      10000,
		Currency:         "usd",
		Status:           "succeeded",
	}
	if err := repo.Create(context.Background(), rec); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if rec.CreatedAt.IsZero() {
		t.Fatal("expected created_at populated")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestCreateMapsUniqueViolationToDuplicate(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(`INSERT INTO payment_records`).
		WithArgs(anyArgs(11)...).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "payment_records_booking_id_key"})

	err := repo.Create(context.Background(), &Record{ID: uuid.New(), BookingID: uuid.New()})
	if !errors.Is(err, ErrDuplicatePayment) {
		t.Fatalf("expected ErrDuplicatePayment, got %v", err)
	}
}

func TestGetByBookingID(t *testing.T) {
	repo, mock := newMockRepo(t)
	id := uuid.New()
	bookingID := uuid.New()

	mock.ExpectQuery(`SELECT .+ FROM payment_records WHERE booking_id`).
		WithArgs(toPGUUID(bookingID)).
		WillReturnRows(recordRow(id, bookingID))

	rec, err := repo.GetByBookingID(context.Background(), bookingID)
	if err != nil {
		t.Fatalf("GetByBookingID: %v", err)
	}
	if rec.ID != id || rec.BookingID != bookingID {
		t.Fatalf("id mismatch: %+v", rec)
	}
	if rec.RefundCents != nil {
		t.Fatal("expected no refund recorded")
	}
}

func TestGetByBookingIDNotFound(t *testing.T) {
	repo, mock := newMockRepo(t)
	bookingID := uuid.New()

	mock.ExpectQuery(`SELECT .+ FROM payment_records WHERE booking_id`).
		WithArgs(toPGUUID(bookingID)).
		WillReturnError(pgx.ErrNoRows)

	_, err := repo.GetByBookingID(context.Background(), bookingID)
	if !errors.Is(err, ErrRecordNotFound) {
		t.Fatalf("expected ErrRecordNotFound, got %v", err)
	}
}

func TestMarkRefunded(t *testing.T) {
	repo, mock := newMockRepo(t)
	id := uuid.New()

	mock.ExpectExec(`UPDATE payment_records SET refund_cents`).
		WithArgs(toPGUUID(id), int64(10000)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	if err := repo.MarkRefunded(context.Background(), id, 10000); err != nil {
		t.Fatalf("MarkRefunded: %v", err)
	}
}

func TestMarkRefundedMissingRecord(t *testing.T) {
	repo, mock := newMockRepo(t)
	id := uuid.New()

	mock.ExpectExec(`UPDATE payment_records SET refund_cents`).
		WithArgs(toPGUUID(id), int64(500)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := repo.MarkRefunded(context.Background(), id, 500)
	if !errors.Is(err, ErrRecordNotFound) {
		t.Fatalf("expected ErrRecordNotFound, got %v", err)
	}
}

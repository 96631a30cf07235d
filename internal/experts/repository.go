package experts

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/mentoji/platform/internal/bookings"
)

// ErrExpertNotFound is returned when no expert matches the id.
var ErrExpertNotFound = errors.New("expert not found")

// Expert is the subset of an expert profile the booking flow needs.
type Expert struct {
	ID          uuid.UUID `json:"id"`
	DisplayName string    `json:"display_name"`
	Email       string    `json:"email"`
	Headline    string    `json:"headline"`
	CreatedAt   time.Time `json:"created_at"`
}

// Repository reads expert profiles.
type Repository struct {
	db bookings.DB
}

// NewRepository creates a repository backed by a pgx pool.
func NewRepository(db bookings.DB) *Repository {
	if db == nil {
		panic("experts: db required")
	}
	return &Repository{db: db}
}

// GetByID fetches an expert profile.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*Expert, error) {
	query := `SELECT id, display_name, email, headline, created_at FROM experts WHERE id = $1`
	var (
		e     Expert
		pgID  pgtype.UUID
	)
	err := r.db.QueryRow(ctx, query, pgtype.UUID{Bytes: [16]byte(id), Valid: true}).
		Scan(&pgID, &e.DisplayName, &e.Email, &e.Headline, &e.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrExpertNotFound
		}
		return nil, fmt.Errorf("experts: select: %w", err)
	}
	e.ID = uuid.UUID(pgID.Bytes)
	return &e, nil
}

package meetings

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mentoji/platform/internal/bookings"
	"github.com/mentoji/platform/pkg/logging"
)

// RoomCreator is the provider surface the provisioner depends on.
// DailyClient implements it.
type RoomCreator interface {
	CreateRoom(ctx context.Context, cfg RoomConfig) (*Room, error)
}

// Provisioner creates a video room for a confirmed booking. It never fails
// the caller: any provider problem degrades to a deterministic same-site
// fallback link derived from the booking id.
type Provisioner struct {
	client        RoomCreator
	publicBaseURL string
	roomTTL       time.Duration
	logger        *logging.Logger
}

// NewProvisioner constructs a provisioner. client may be nil when no room
// provider is configured; every booking then gets the fallback link.
func NewProvisioner(client RoomCreator, publicBaseURL string, roomTTL time.Duration, logger *logging.Logger) *Provisioner {
	if logger == nil {
		logger = logging.Default()
	}
	if roomTTL <= 0 {
		roomTTL = 24 * time.Hour
	}
	return &Provisioner{
		client:        client,
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
		roomTTL:       roomTTL,
		logger:        logger,
	}
}

// Provision returns the meeting link for the booking and whether a real room
// was created. A false second return means the fallback link is in use.
func (p *Provisioner) Provision(ctx context.Context, booking *bookings.Booking) (string, bool) {
	fallback := p.FallbackLink(booking)
	if p.client == nil {
		p.logger.Debug("meetings: no room provider configured, using fallback", "booking_id", booking.ID)
		return fallback, false
	}

	room, err := p.client.CreateRoom(ctx, RoomConfig{
		Name:      "mentoji-" + booking.ID.String(),
		ExpiresAt: booking.EndTime.Add(p.roomTTL),
	})
	if err != nil {
		p.logger.Error("meetings: room provisioning failed, using fallback",
			"error", err, "booking_id", booking.ID)
		return fallback, false
	}

	p.logger.Info("meeting room provisioned", "booking_id", booking.ID, "room", room.Name)
	return room.URL, true
}

// FallbackLink is the deterministic same-site meeting page for a booking.
func (p *Provisioner) FallbackLink(booking *bookings.Booking) string {
	return fmt.Sprintf("%s/meeting/%s", p.publicBaseURL, booking.ID)
}

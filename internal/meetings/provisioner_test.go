package meetings

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/mentoji/platform/internal/bookings"
)

type stubRoomCreator struct {
	room *Room
	err  error
}

func (s *stubRoomCreator) CreateRoom(ctx context.Context, cfg RoomConfig) (*Room, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.room, nil
}

func testBooking() *bookings.Booking {
	return &bookings.Booking{
		ID:      uuid.New(),
		EndTime: time.Now().Add(time.Hour),
	}
}

func TestProvisionReturnsProviderURL(t *testing.T) {
	creator := &stubRoomCreator{room: &Room{Name: "mentoji-x", URL: "https://mentoji.daily.co/x"}}
	p := NewProvisioner(creator, "https://mentoji.com", time.Hour, nil)

	link, provisioned := p.Provision(context.Background(), testBooking())
	if !provisioned {
		t.Fatal("expected provisioned=true")
	}
	if link != "https://mentoji.daily.co/x" {
		t.Fatalf("unexpected link %q", link)
	}
}

func TestProvisionFallsBackOnProviderError(t *testing.T) {
	creator := &stubRoomCreator{err: errors.New("provider down")}
	p := NewProvisioner(creator, "https://mentoji.com/", time.Hour, nil)
	b := testBooking()

	link, provisioned := p.Provision(context.Background(), b)
	if provisioned {
		t.Fatal("expected provisioned=false")
	}
	want := "https://mentoji.com/meeting/" + b.ID.String()
	if link != want {
		t.Fatalf("fallback link: got %q want %q", link, want)
	}
}

func TestProvisionFallsBackWithoutClient(t *testing.T) {
	p := NewProvisioner(nil, "https://mentoji.com", time.Hour, nil)
	b := testBooking()

	link, provisioned := p.Provision(context.Background(), b)
	if provisioned {
		t.Fatal("expected provisioned=false")
	}
	if link != p.FallbackLink(b) {
		t.Fatalf("expected deterministic fallback, got %q", link)
	}
}

func TestDailyClientCreateRoom(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/rooms" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer daily_key" {
			t.Errorf("unexpected auth header %q", got)
		}
		var payload map[string]any
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Fatalf("decode payload: %v", err)
		}
		if payload["privacy"] != "private" {
			t.Errorf("expected private room, got %v", payload["privacy"])
		}
		json.NewEncoder(w).Encode(Room{Name: payload["name"].(string), URL: "https://mentoji.daily.co/room"})
	}))
	defer srv.Close()

	client := NewDailyClient("daily_key", srv.URL, nil)
	room, err := client.CreateRoom(context.Background(), RoomConfig{
		Name:      "mentoji-test",
		ExpiresAt: time.Now().Add(2 * time.Hour),
	})
	if err != nil {
		t.Fatalf("CreateRoom: %v", err)
	}
	if room.URL != "https://mentoji.daily.co/room" {
		t.Fatalf("unexpected room url %q", room.URL)
	}
}

func TestNewDailyClientRequiresKey(t *testing.T) {
	if NewDailyClient("  ", "", nil) != nil {
		t.Fatal("expected nil client without api key")
	}
}

package notify

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/mentoji/platform/internal/bookings"
	"github.com/mentoji/platform/internal/experts"
)

type captureSender struct {
	sent []EmailMessage
	err  error
}

func (c *captureSender) Send(ctx context.Context, msg EmailMessage) error {
	if c.err != nil {
		return c.err
	}
	c.sent = append(c.sent, msg)
	return nil
}

func confirmationFixtures() (*bookings.Booking, *experts.Expert) {
	b := &bookings.Booking{
		ID:              uuid.New(),
		StartTime:       time.Date(2025, 6, 24, 10, 0, 0, 0, time.UTC),
		DurationMinutes: 30,
		ContactEmail:    "avery@example.com",
		ContactName:     "Avery Client",
	}
	e := &experts.Expert{
		ID:          uuid.New(),
		DisplayName: "Dana Expert",
		Email:       "dana@example.com",
	}
	return b, e
}

func TestSendClientConfirmation(t *testing.T) {
	sender := &captureSender{}
	mailer := NewMailer(sender, nil)
	b, e := confirmationFixtures()

	ok := mailer.SendClientConfirmation(context.Background(), b, e, "https://mentoji.daily.co/x")
	if !ok {
		t.Fatal("expected send to succeed")
	}
	if len(sender.sent) != 1 {
		t.Fatalf("expected 1 email, got %d", len(sender.sent))
	}
	msg := sender.sent[0]
	if msg.To != "avery@example.com" {
		t.Errorf("unexpected recipient %q", msg.To)
	}
	if !strings.Contains(msg.Body, "Dana Expert") {
		t.Error("body should name the expert")
	}
	if !strings.Contains(msg.Body, "https://mentoji.daily.co/x") {
		t.Error("body should include the meeting link")
	}
}

func TestSendClientConfirmationWithoutExpertDetails(t *testing.T) {
	sender := &captureSender{}
	mailer := NewMailer(sender, nil)
	b, _ := confirmationFixtures()

	// Expert lookup is best-effort upstream; the mail still goes out.
	if ok := mailer.SendClientConfirmation(context.Background(), b, nil, "link"); !ok {
		t.Fatal("expected send to succeed without expert details")
	}
	if !strings.Contains(sender.sent[0].Body, "your expert") {
		t.Error("body should degrade to a generic expert name")
	}
}

func TestSendClientConfirmationDeliveryFailure(t *testing.T) {
	sender := &captureSender{err: errors.New("smtp down")}
	mailer := NewMailer(sender, nil)
	b, e := confirmationFixtures()

	if ok := mailer.SendClientConfirmation(context.Background(), b, e, "link"); ok {
		t.Fatal("expected false on delivery failure")
	}
}

func TestSendExpertConfirmationSkipsMissingAddress(t *testing.T) {
	sender := &captureSender{}
	mailer := NewMailer(sender, nil)
	b, e := confirmationFixtures()
	e.Email = ""

	if ok := mailer.SendExpertConfirmation(context.Background(), b, e, "link"); ok {
		t.Fatal("expected skip for missing expert email")
	}
	if ok := mailer.SendExpertConfirmation(context.Background(), b, nil, "link"); ok {
		t.Fatal("expected skip for nil expert")
	}
	if len(sender.sent) != 0 {
		t.Fatal("no email should have been sent")
	}
}

func TestSendExpertConfirmation(t *testing.T) {
	sender := &captureSender{}
	mailer := NewMailer(sender, nil)
	b, e := confirmationFixtures()

	if ok := mailer.SendExpertConfirmation(context.Background(), b, e, "link"); !ok {
		t.Fatal("expected send to succeed")
	}
	msg := sender.sent[0]
	if msg.To != "dana@example.com" {
		t.Errorf("unexpected recipient %q", msg.To)
	}
	if !strings.Contains(msg.Body, "Avery Client") {
		t.Error("body should name the client")
	}
}

func TestStubEmailSender(t *testing.T) {
	stub := NewStubEmailSender(nil)
	if err := stub.Send(context.Background(), EmailMessage{To: "x@example.com"}); err != nil {
		t.Fatalf("stub send: %v", err)
	}
}

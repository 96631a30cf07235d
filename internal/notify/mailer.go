package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/mentoji/platform/internal/bookings"
	"github.com/mentoji/platform/internal/experts"
	"github.com/mentoji/platform/pkg/logging"
)

const sessionTimeLayout = "Monday, January 2 2006 at 15:04 MST"

// Mailer sends booking confirmation emails to both sides of a consultation.
// Every send is best-effort: a delivery failure is logged and reported as a
// false return, never as an error that could abort the booking flow.
type Mailer struct {
	email    EmailSender
	fromName string
	logger   *logging.Logger
}

// NewMailer creates a confirmation mailer.
func NewMailer(email EmailSender, logger *logging.Logger) *Mailer {
	if logger == nil {
		logger = logging.Default()
	}
	return &Mailer{email: email, fromName: "MentoJi", logger: logger}
}

// SendClientConfirmation emails the booking's contact address. Returns
// whether the email was handed to the provider.
func (m *Mailer) SendClientConfirmation(ctx context.Context, b *bookings.Booking, expert *experts.Expert, meetingLink string) bool {
	if m.email == nil {
		m.logger.Debug("notify: email sender not configured, skipping client confirmation")
		return false
	}
	if strings.TrimSpace(b.ContactEmail) == "" {
		m.logger.Debug("notify: booking has no contact email, skipping", "booking_id", b.ID)
		return false
	}

	expertName := "your expert"
	if expert != nil && expert.DisplayName != "" {
		expertName = expert.DisplayName
	}
	when := b.StartTime.UTC().Format(sessionTimeLayout)

	body := fmt.Sprintf(`Hi %s,

Your consultation with %s is confirmed.

When: %s (%d minutes)
Join: %s

You can join the session from the link above a few minutes before the start
time. If you need to reschedule, cancel from your dashboard.

— The MentoJi team`, b.ContactName, expertName, when, b.DurationMinutes, meetingLink)

	html := fmt.Sprintf(`<div style="font-family: sans-serif; max-width: 600px;">
<h2>Your consultation is confirmed</h2>
<p>Hi %s, your session with <strong>%s</strong> is booked.</p>
<p><strong>When:</strong> %s (%d minutes)<br>
<strong>Join:</strong> <a href="%s">%s</a></p>
<p style="color: #6b7280; font-size: 12px;">— The MentoJi team</p>
</div>`, b.ContactName, expertName, when, b.DurationMinutes, meetingLink, meetingLink)

	msg := EmailMessage{
		To:      b.ContactEmail,
		ToName:  b.ContactName,
		Subject: fmt.Sprintf("Consultation confirmed — %s", when),
		Body:    body,
		HTML:    html,
	}
	if err := m.email.Send(ctx, msg); err != nil {
		m.logger.Error("notify: client confirmation failed", "error", err, "booking_id", b.ID)
		return false
	}
	return true
}

// SendExpertConfirmation emails the expert about the new booking. A missing
// expert address is a skip, not an error.
func (m *Mailer) SendExpertConfirmation(ctx context.Context, b *bookings.Booking, expert *experts.Expert, meetingLink string) bool {
	if m.email == nil {
		return false
	}
	if expert == nil || strings.TrimSpace(expert.Email) == "" {
		m.logger.Debug("notify: expert email unavailable, skipping", "booking_id", b.ID)
		return false
	}

	when := b.StartTime.UTC().Format(sessionTimeLayout)
	body := fmt.Sprintf(`Hi %s,

You have a new paid consultation.

Client: %s (%s)
When: %s (%d minutes)
Join: %s

The client's intake answers are available on your dashboard.

— The MentoJi team`, expert.DisplayName, b.ContactName, b.ContactEmail, when, b.DurationMinutes, meetingLink)

	msg := EmailMessage{
		To:      expert.Email,
		ToName:  expert.DisplayName,
		Subject: fmt.Sprintf("New booking — %s", when),
		Body:    body,
	}
	if err := m.email.Send(ctx, msg); err != nil {
		m.logger.Error("notify: expert confirmation failed", "error", err, "booking_id", b.ID)
		return false
	}
	return true
}

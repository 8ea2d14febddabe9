// Package notify emails the site owner about new bookings.
package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"

	"github.com/wolfman30/ghl-booking-gateway/pkg/logging"
)

const inviteProductID = "-//ghl-booking-gateway//booking//EN"

// Booking describes a confirmed appointment.
type Booking struct {
	AppointmentID string
	CalendarID    string
	ContactID     string
	Title         string
	StartTime     string // ISO-8601 with offset
	EndTime       string
}

// BookingNotifier sends a summary email with a calendar invite to one owner
// address.
type BookingNotifier struct {
	email  EmailSender
	to     string
	logger *logging.Logger
	now    func() time.Time
}

// NewBookingNotifier returns nil when no recipient or sender is configured,
// which callers treat as "notifications off".
func NewBookingNotifier(email EmailSender, to string, logger *logging.Logger) *BookingNotifier {
	to = strings.TrimSpace(to)
	if email == nil || to == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &BookingNotifier{email: email, to: to, logger: logger, now: time.Now}
}

// NotifyBooking emails the owner. An invite that cannot be built is left off
// rather than failing the notification.
func (n *BookingNotifier) NotifyBooking(ctx context.Context, b Booking) error {
	if n == nil {
		return nil
	}

	msg := EmailMessage{
		To:      n.to,
		Subject: bookingSubject(b),
		Body:    bookingBody(b),
	}

	invite, err := BuildInvite(b, n.to, n.now())
	if err != nil {
		n.logger.Warn("notify: booking invite not attached", "error", err, "appointment_id", b.AppointmentID)
	} else {
		msg.Attachments = append(msg.Attachments, Attachment{
			Filename:    "appointment.ics",
			ContentType: "text/calendar; method=REQUEST",
			Content:     []byte(invite),
		})
	}

	if err := n.email.Send(ctx, msg); err != nil {
		return fmt.Errorf("notify: send booking email: %w", err)
	}
	return nil
}

// BuildInvite renders a single-event iCalendar REQUEST for the booking.
func BuildInvite(b Booking, organizer string, now time.Time) (string, error) {
	start, err := time.Parse(time.RFC3339, b.StartTime)
	if err != nil {
		return "", fmt.Errorf("notify: invite start time: %w", err)
	}
	end, err := time.Parse(time.RFC3339, b.EndTime)
	if err != nil {
		return "", fmt.Errorf("notify: invite end time: %w", err)
	}

	uid := b.AppointmentID
	if uid == "" {
		uid = fmt.Sprintf("%s-%d", b.ContactID, start.Unix())
	}

	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodRequest)
	cal.SetProductId(inviteProductID)

	event := cal.AddEvent(uid + "@ghl-booking-gateway")
	event.SetCreatedTime(now)
	event.SetDtStampTime(now)
	event.SetStartAt(start)
	event.SetEndAt(end)
	event.SetSummary(bookingSubject(b))
	event.SetDescription(bookingBody(b))
	if organizer != "" {
		event.SetOrganizer("mailto:" + organizer)
	}

	return cal.Serialize(), nil
}

func bookingSubject(b Booking) string {
	if b.Title != "" {
		return "New booking: " + b.Title
	}
	return "New booking"
}

func bookingBody(b Booking) string {
	var sb strings.Builder
	sb.WriteString("A new appointment was booked from the website.\n\n")
	fmt.Fprintf(&sb, "Start: %s\n", b.StartTime)
	fmt.Fprintf(&sb, "End: %s\n", b.EndTime)
	if b.ContactID != "" {
		fmt.Fprintf(&sb, "Contact: %s\n", b.ContactID)
	}
	if b.CalendarID != "" {
		fmt.Fprintf(&sb, "Calendar: %s\n", b.CalendarID)
	}
	if b.AppointmentID != "" {
		fmt.Fprintf(&sb, "Appointment: %s\n", b.AppointmentID)
	}
	return sb.String()
}

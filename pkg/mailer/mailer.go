// Package mailer sends transactional email: verification codes and reservation receipts.
package mailer

import (
	"context"
	"fmt"
	"strings"
)

// Message is a plain-text email to one recipient
type Message struct {
	To      string
	Subject string
	Body    string
}

// Mailer defines the interface for sending email
type Mailer interface {
	// Send delivers the message or returns an error
	Send(ctx context.Context, msg Message) error

	// GetName returns the name of the mailer implementation
	GetName() string
}

// VerificationCodeMessage renders the email carrying a registration code
func VerificationCodeMessage(to, name, code string, validMinutes int) Message {
	greeting := "Hello"
	if strings.TrimSpace(name) != "" {
		greeting = "Hello " + strings.TrimSpace(name)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s,\n\n", greeting)
	fmt.Fprintf(&b, "Your SmartTransit verification code is: %s\n\n", code)
	fmt.Fprintf(&b, "The code is valid for %d minutes. If you did not request it, ignore this email.\n", validMinutes)

	return Message{
		To:      to,
		Subject: "Your SmartTransit verification code",
		Body:    b.String(),
	}
}

// ReservationReceipt holds what the confirmation email shows
type ReservationReceipt struct {
	ReservationID int64
	Origin        string
	Destination   string
	TravelDate    string
	Departure     string
	SeatNumber    int
	Price         float64
	OrderID       string
}

// ReservationConfirmedMessage renders the receipt sent after payment
func ReservationConfirmedMessage(to string, r ReservationReceipt) Message {
	var b strings.Builder
	fmt.Fprintf(&b, "Your reservation #%d is confirmed.\n\n", r.ReservationID)
	fmt.Fprintf(&b, "Route:      %s -> %s\n", r.Origin, r.Destination)
	fmt.Fprintf(&b, "Date:       %s\n", r.TravelDate)
	if r.Departure != "" {
		fmt.Fprintf(&b, "Departure:  %s\n", r.Departure)
	}
	fmt.Fprintf(&b, "Seat:       %d\n", r.SeatNumber)
	fmt.Fprintf(&b, "Price:      %.2f\n", r.Price)
	if r.OrderID != "" {
		fmt.Fprintf(&b, "Payment:    %s\n", r.OrderID)
	}
	b.WriteString("\nHave a good trip.\n")

	return Message{
		To:      to,
		Subject: fmt.Sprintf("Reservation #%d confirmed", r.ReservationID),
		Body:    b.String(),
	}
}

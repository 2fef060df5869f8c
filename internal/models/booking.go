// internal/models/booking.go
package models

import (
	"fmt"
	"strings"
	"time"
)

type BookingStatus string

const (
	BookingPending   BookingStatus = "pending"
	BookingConfirmed BookingStatus = "confirmed"
	BookingCompleted BookingStatus = "completed"
	BookingCancelled BookingStatus = "cancelled"
)

var bookingStatuses = []BookingStatus{BookingPending, BookingConfirmed, BookingCompleted, BookingCancelled}

func BookingStatuses() []BookingStatus {
	out := make([]BookingStatus, len(bookingStatuses))
	copy(out, bookingStatuses)
	return out
}

func ParseBookingStatus(raw string) (BookingStatus, error) {
	status := BookingStatus(strings.ToLower(strings.TrimSpace(raw)))
	for _, known := range bookingStatuses {
		if status == known {
			return status, nil
		}
	}
	return "", fmt.Errorf("booking_status %q is not recognized", raw)
}

// IsTerminal reports whether no further transitions are allowed.
func (s BookingStatus) IsTerminal() bool {
	return s == BookingCancelled || s == BookingCompleted
}

type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentPaid     PaymentStatus = "paid"
	PaymentRefunded PaymentStatus = "refunded"
	PaymentFailed   PaymentStatus = "failed"
)

var paymentStatuses = []PaymentStatus{PaymentPending, PaymentPaid, PaymentRefunded, PaymentFailed}

func PaymentStatuses() []PaymentStatus {
	out := make([]PaymentStatus, len(paymentStatuses))
	copy(out, paymentStatuses)
	return out
}

func ParsePaymentStatus(raw string) (PaymentStatus, error) {
	status := PaymentStatus(strings.ToLower(strings.TrimSpace(raw)))
	for _, known := range paymentStatuses {
		if status == known {
			return status, nil
		}
	}
	return "", fmt.Errorf("payment_status %q is not recognized", raw)
}

// Slot is a half-open reservation window [StartAt, EndAt).
type Slot struct {
	StartAt time.Time `json:"start_at"`
	EndAt   time.Time `json:"end_at"`
}

func (s Slot) Duration() time.Duration {
	return s.EndAt.Sub(s.StartAt)
}

type Booking struct {
	ID              int64         `json:"id"`
	Reference       string        `json:"reference"`
	UserID          int64         `json:"user_id"`
	VenueID         int64         `json:"venue_id"`
	SportType       string        `json:"sport_type"`
	Slot            Slot          `json:"slot"`
	CourtNames      []string      `json:"court_names"`
	TotalPrice      Money         `json:"total_price"`
	BookingStatus   BookingStatus `json:"booking_status"`
	PaymentStatus   PaymentStatus `json:"payment_status"`
	Notes           string        `json:"notes,omitempty"`
	CancelledAt     *time.Time    `json:"cancelled_at,omitempty"`
	StatusUpdatedAt *time.Time    `json:"status_updated_at,omitempty"`
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
}

// OccupiesCourts reports whether the booking still holds its courts.
func (b Booking) OccupiesCourts() bool {
	return b.BookingStatus != BookingCancelled
}

type User struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	RoleID int64  `json:"role_id"`
}

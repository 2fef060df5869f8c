// internal/models/venue.go
package models

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/nyaruka/phonenumbers"
)

const defaultPhoneRegion = "US"

type ApprovalStatus string

const (
	ApprovalPending  ApprovalStatus = "pending"
	ApprovalApproved ApprovalStatus = "approved"
	ApprovalRejected ApprovalStatus = "rejected"
)

func ParseApprovalStatus(raw string) (ApprovalStatus, error) {
	switch status := ApprovalStatus(strings.ToLower(strings.TrimSpace(raw))); status {
	case ApprovalApproved, ApprovalRejected:
		return status, nil
	case ApprovalPending:
		return "", fmt.Errorf("status cannot be reset to pending")
	default:
		return "", fmt.Errorf("status must be approved or rejected")
	}
}

type Venue struct {
	ID             int64          `json:"id"`
	OwnerID        int64          `json:"owner_id"`
	Name           string         `json:"name"`
	Address        string         `json:"address"`
	ContactPhone   string         `json:"contact_phone,omitempty"`
	Timezone       string         `json:"timezone"`
	Sports         []string       `json:"sports"`
	Amenities      []string       `json:"amenities"`
	ApprovalStatus ApprovalStatus `json:"approval_status"`
	IsActive       bool           `json:"is_active"`
	Lifecycle      Lifecycle      `json:"lifecycle"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	DeletedAt      *time.Time     `json:"deleted_at,omitempty"`
}

// Location returns the venue's time zone, falling back to UTC when the stored
// name cannot be loaded.
func (v Venue) Location() *time.Location {
	if v.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(v.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// NormalizeContactPhone formats a phone number as E.164. Numbers without a
// country prefix are parsed for defaultPhoneRegion.
func NormalizeContactPhone(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", nil
	}
	parsed, err := phonenumbers.Parse(raw, defaultPhoneRegion)
	if err != nil {
		return "", fmt.Errorf("contact_phone is not a phone number")
	}
	if !phonenumbers.IsValidNumber(parsed) {
		return "", fmt.Errorf("contact_phone is not a valid phone number")
	}
	return phonenumbers.Format(parsed, phonenumbers.E164), nil
}

// NormalizeSportType lowercases and trims a sport identifier.
func NormalizeSportType(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

// NormalizeSet trims, lowercases, de-duplicates and sorts a denormalized
// set such as a venue's sports or amenities.
func NormalizeSet(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	normalized := make([]string, 0, len(values))
	for _, value := range values {
		value = strings.ToLower(strings.TrimSpace(value))
		if value == "" {
			continue
		}
		if _, ok := seen[value]; ok {
			continue
		}
		seen[value] = struct{}{}
		normalized = append(normalized, value)
	}
	sort.Strings(normalized)
	return normalized
}

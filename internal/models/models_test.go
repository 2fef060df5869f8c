package models

import (
	"encoding/json"
	"testing"
)

func TestParseClock(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		want    int
		wantErr bool
	}{
		{name: "midnight", value: "00:00", want: 0},
		{name: "morning", value: "09:30", want: 570},
		{name: "single_digit_hour", value: "9:05", want: 545},
		{name: "end_of_day", value: "24:00", want: 1440},
		{name: "past_end_of_day", value: "24:30", wantErr: true},
		{name: "bad_minutes", value: "10:60", wantErr: true},
		{name: "missing_colon", value: "1000", wantErr: true},
		{name: "words", value: "7am", wantErr: true},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got, err := ParseClock(test.value)
			if test.wantErr {
				if err == nil {
					t.Fatalf("ParseClock(%q) expected error", test.value)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseClock(%q) error: %v", test.value, err)
			}
			if got != test.want {
				t.Fatalf("ParseClock(%q) = %d, want %d", test.value, got, test.want)
			}
		})
	}
}

func TestNormalizeAvailabilitySortsAndCanonicalizes(t *testing.T) {
	days, err := NormalizeAvailability([]DayAvailability{
		{DayOfWeek: "Wednesday", TimeSlots: []TimeSlot{
			{StartTime: "11:00", EndTime: "12:00", Price: 2000},
			{StartTime: "9:00", EndTime: "10:00", Price: 1500},
		}},
		{DayOfWeek: "monday", TimeSlots: []TimeSlot{{StartTime: "08:00", EndTime: "09:00"}}},
	})
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if len(days) != 2 {
		t.Fatalf("expected 2 days, got %d", len(days))
	}
	if days[0].DayOfWeek != "monday" || days[1].DayOfWeek != "wednesday" {
		t.Fatalf("day order: %s, %s", days[0].DayOfWeek, days[1].DayOfWeek)
	}
	if days[1].TimeSlots[0].StartTime != "09:00" {
		t.Fatalf("slots not sorted: %+v", days[1].TimeSlots)
	}
}

func TestNormalizeAvailabilityRejectsInvalidTemplates(t *testing.T) {
	tests := []struct {
		name string
		days []DayAvailability
	}{
		{name: "overlap", days: []DayAvailability{{DayOfWeek: "friday", TimeSlots: []TimeSlot{
			{StartTime: "10:00", EndTime: "11:00"},
			{StartTime: "10:30", EndTime: "11:30"},
		}}}},
		{name: "reversed", days: []DayAvailability{{DayOfWeek: "friday", TimeSlots: []TimeSlot{
			{StartTime: "11:00", EndTime: "10:00"},
		}}}},
		{name: "duplicate_day", days: []DayAvailability{
			{DayOfWeek: "friday"},
			{DayOfWeek: "Friday"},
		}},
		{name: "unknown_day", days: []DayAvailability{{DayOfWeek: "funday"}}},
		{name: "negative_price", days: []DayAvailability{{DayOfWeek: "friday", TimeSlots: []TimeSlot{
			{StartTime: "10:00", EndTime: "11:00", Price: -1},
		}}}},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if _, err := NormalizeAvailability(test.days); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

func TestBackToBackTemplateSlotsAllowed(t *testing.T) {
	_, err := NormalizeAvailability([]DayAvailability{{DayOfWeek: "sunday", TimeSlots: []TimeSlot{
		{StartTime: "10:00", EndTime: "11:00"},
		{StartTime: "11:00", EndTime: "12:00"},
	}}})
	if err != nil {
		t.Fatalf("expected adjacent slots to be valid, got %v", err)
	}
}

func TestNormalizeContactPhone(t *testing.T) {
	got, err := NormalizeContactPhone("(650) 253-0000")
	if err != nil {
		t.Fatalf("normalize phone: %v", err)
	}
	if got != "+16502530000" {
		t.Fatalf("got %q", got)
	}

	if _, err := NormalizeContactPhone("not a phone"); err == nil {
		t.Fatalf("expected error for garbage input")
	}

	empty, err := NormalizeContactPhone("  ")
	if err != nil || empty != "" {
		t.Fatalf("blank phone should be allowed, got %q, %v", empty, err)
	}
}

func TestMoneyJSON(t *testing.T) {
	var price Money
	if err := json.Unmarshal([]byte("25.5"), &price); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if price != 2550 {
		t.Fatalf("price cents: %d", price)
	}
	encoded, err := json.Marshal(price)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(encoded) != "25.50" {
		t.Fatalf("encoded: %s", encoded)
	}
}

func TestNormalizeCourtNames(t *testing.T) {
	got := NormalizeCourtNames([]string{" Court1", "Court2", "", "Court1 "})
	if len(got) != 2 || got[0] != "Court1" || got[1] != "Court2" {
		t.Fatalf("got %v", got)
	}
}

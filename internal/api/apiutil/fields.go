package apiutil

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

var localTimeLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
}

func ParseNonNegativeInt64Field(raw string, field string) (int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, FieldError{Field: field, Reason: "is required"}
	}
	value, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || value < 0 {
		return 0, FieldError{Field: field, Reason: "must be 0 or greater"}
	}
	return value, nil
}

func ParsePositiveInt64Field(raw string, field string) (int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, FieldError{Field: field, Reason: "is required"}
	}
	value, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || value <= 0 {
		return 0, FieldError{Field: field, Reason: "must be a positive integer"}
	}
	return value, nil
}

// PathID parses the positive integer path parameter name.
func PathID(r *http.Request, name string) (int64, error) {
	return ParsePositiveInt64Field(r.PathValue(name), name)
}

// OptionalQueryInt64 returns 0 when key is absent.
func OptionalQueryInt64(r *http.Request, key string) (int64, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return 0, nil
	}
	return ParsePositiveInt64Field(raw, key)
}

// OptionalQueryInt returns fallback when key is absent.
func OptionalQueryInt(r *http.Request, key string, fallback int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 0 {
		return 0, FieldError{Field: key, Reason: "must be 0 or greater"}
	}
	return value, nil
}

// ParseTimeField accepts RFC3339 timestamps, or local date-times which are
// read in loc.
func ParseTimeField(raw, field string, loc *time.Location) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, FieldError{Field: field, Reason: "is required"}
	}
	if parsed, err := time.Parse(time.RFC3339, raw); err == nil {
		return parsed.UTC(), nil
	}
	if loc == nil {
		loc = time.UTC
	}
	for _, layout := range localTimeLayouts {
		if parsed, err := time.ParseInLocation(layout, raw, loc); err == nil {
			return parsed.UTC(), nil
		}
	}
	return time.Time{}, FieldError{Field: field, Reason: "must be an RFC3339 timestamp or YYYY-MM-DDTHH:MM"}
}

// OptionalTimeQuery parses key as a timestamp or a YYYY-MM-DD date.
func OptionalTimeQuery(r *http.Request, key string) (*time.Time, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return nil, nil
	}
	if day, err := time.ParseInLocation("2006-01-02", raw, time.UTC); err == nil {
		return &day, nil
	}
	parsed, err := ParseTimeField(raw, key, time.UTC)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}

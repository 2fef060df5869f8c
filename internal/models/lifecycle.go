package models

import "time"

// Lifecycle is the soft-delete state of a venue, court, block or booking.
// Store reads filter soft-deleted rows; the value is kept on the model so
// callers never inspect deleted_at directly.
type Lifecycle string

const (
	LifecycleActive      Lifecycle = "active"
	LifecycleSoftDeleted Lifecycle = "soft_deleted"
)

func LifecycleOf(deletedAt *time.Time) Lifecycle {
	if deletedAt != nil {
		return LifecycleSoftDeleted
	}
	return LifecycleActive
}

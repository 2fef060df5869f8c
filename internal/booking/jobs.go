package booking

import (
	"context"
)

// CompleteFinished marks every confirmed booking whose slot has ended as
// completed.
func (s *Service) CompleteFinished(ctx context.Context) (int64, error) {
	return s.db.Queries.CompleteFinishedBookings(ctx, s.now())
}

// ExpireStalePending cancels unpaid pending bookings older than the pending
// hold. It does nothing when the hold is disabled.
func (s *Service) ExpireStalePending(ctx context.Context) (int64, error) {
	if s.pendingHold <= 0 {
		return 0, nil
	}
	now := s.now()
	return s.db.Queries.CancelStalePendingBookings(ctx, now.Add(-s.pendingHold), now)
}

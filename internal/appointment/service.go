package appointment

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/clinicore/agenda/internal/schedule"
)

// NoShowService marks overdue bookings as no-shows. It is driven
// periodically by the noshow-worker binary.
type NoShowService struct {
	repo  Repository
	grace time.Duration
	log   zerolog.Logger
}

// NewNoShowService builds the sweeper. grace is how long after an
// appointment's end the patient may still arrive before it counts as a
// no-show.
func NewNoShowService(repo Repository, grace time.Duration, log zerolog.Logger) *NoShowService {
	return &NoShowService{
		repo:  repo,
		grace: grace,
		log:   log,
	}
}

// SweepNoShows flips every overdue SCHEDULED/CONFIRMED booking to NO_SHOW.
// Individual failures are logged and skipped so one bad row does not stall
// the sweep.
func (s *NoShowService) SweepNoShows(ctx context.Context, now time.Time) (int, error) {
	overdue, err := s.repo.FindOverdue(ctx, now.Add(-s.grace))
	if err != nil {
		return 0, fmt.Errorf("find overdue appointments: %w", err)
	}

	swept := 0
	for _, appt := range overdue {
		if err := s.repo.UpdateStatus(ctx, appt.ID, string(schedule.StatusNoShow)); err != nil {
			s.log.Error().Err(err).Str("appointment_id", appt.ID.String()).Msg("mark no-show failed")
			continue
		}
		swept++
	}

	if swept > 0 {
		s.log.Info().Int("count", swept).Msg("no-shows swept")
	}
	return swept, nil
}

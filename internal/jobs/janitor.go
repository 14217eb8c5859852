package jobs

import (
	"time"

	"github.com/go-co-op/gocron"
	"github.com/rs/zerolog/log"
)

// StartJanitor schedules periodic eviction of expired reports. The caller
// stops the returned scheduler on shutdown.
func StartJanitor(m *Manager, intervalMinutes int) *gocron.Scheduler {
	s := gocron.NewScheduler(time.UTC)
	s.SingletonModeAll()

	if intervalMinutes <= 0 || m.opts.ResultTTL <= 0 {
		log.Info().Msg("Result expiry is disabled, reports are kept until restart")
		return s
	}

	_, err := s.Every(intervalMinutes).Minutes().Do(func() {
		if n := m.Evict(time.Now()); n > 0 {
			log.Info().Int("removed", n).Msg("Expired reports evicted")
		}
	})
	if err != nil {
		log.Error().Err(err).Msg("Error scheduling result expiry")
		return s
	}

	log.Info().Int("interval_minutes", intervalMinutes).Dur("ttl", m.opts.ResultTTL).Msg("Starting result expiry scheduler")
	s.StartAsync()
	return s
}

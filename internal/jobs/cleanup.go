package jobs

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/liftlog/arkkies-bridge/internal/config"
	"github.com/liftlog/arkkies-bridge/internal/repository"
)

// CleanupJob clears long-expired session cookies off credential rows so dead
// session material does not linger in the database. Credentials themselves
// are never touched.
type CleanupJob struct {
	credRepo repository.ArkkiesCredentialRepository
	interval time.Duration
	done     chan struct{}
}

func NewCleanupJob(credRepo repository.ArkkiesCredentialRepository, interval time.Duration) *CleanupJob {
	return &CleanupJob{
		credRepo: credRepo,
		interval: interval,
		done:     make(chan struct{}),
	}
}

func (j *CleanupJob) Start() {
	go j.run()
	log.Info().Dur("interval", j.interval).Msg("session cleanup job started")
}

func (j *CleanupJob) Stop() {
	close(j.done)
	log.Info().Msg("session cleanup job stopped")
}

func (j *CleanupJob) run() {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	j.cleanup()

	for {
		select {
		case <-ticker.C:
			j.cleanup()
		case <-j.done:
			return
		}
	}
}

func (j *CleanupJob) cleanup() {
	ctx, cancel := context.WithTimeout(context.Background(), config.DBPingTimeout)
	defer cancel()

	cutoff := time.Now().Add(-config.SessionCleanupGrace)
	cleared, err := j.credRepo.ClearExpiredSessions(ctx, cutoff)
	if err != nil {
		log.Error().Err(err).Msg("session cleanup failed")
		return
	}
	if cleared > 0 {
		log.Info().Int64("cleared", cleared).Msg("expired arkkies sessions cleared")
	}
}

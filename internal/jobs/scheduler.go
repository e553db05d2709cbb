package jobs

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/go-co-op/gocron/v2"

	"skillchat/internal/services"
)

const (
	// refreshInterval is how often stored credentials are scanned for
	// approaching expiry.
	refreshInterval = 10 * time.Minute

	// refreshWindow is how far ahead of expiry a credential is refreshed.
	// Kept wider than refreshInterval so no credential expires between scans.
	refreshWindow = 15 * time.Minute
)

// Scheduler runs the background maintenance jobs: proactive token refresh
// and transcript retention.
type Scheduler struct {
	scheduler   gocron.Scheduler
	calendar    *services.CalendarService
	credentials *services.CredentialService
	transcripts *services.TranscriptService

	retentionDays int
}

// NewScheduler creates the job scheduler. retentionDays <= 0 disables the
// retention job.
func NewScheduler(calendar *services.CalendarService, credentials *services.CredentialService,
	transcripts *services.TranscriptService, retentionDays int) (*Scheduler, error) {

	scheduler, err := gocron.NewScheduler(
		gocron.WithLocation(time.UTC),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}

	return &Scheduler{
		scheduler:     scheduler,
		calendar:      calendar,
		credentials:   credentials,
		transcripts:   transcripts,
		retentionDays: retentionDays,
	}, nil
}

// Start registers the jobs and starts the scheduler.
func (s *Scheduler) Start() error {
	log.Println("⏰ Starting background jobs...")

	_, err := s.scheduler.NewJob(
		gocron.DurationJob(refreshInterval),
		gocron.NewTask(func() {
			s.refreshExpiringTokens(context.Background())
		}),
		gocron.WithName("token-refresh"),
	)
	if err != nil {
		return fmt.Errorf("failed to register token refresh job: %w", err)
	}

	if s.retentionDays > 0 {
		_, err = s.scheduler.NewJob(
			gocron.DailyJob(1, gocron.NewAtTimes(gocron.NewAtTime(3, 0, 0))),
			gocron.NewTask(func() {
				s.pruneTranscripts(context.Background())
			}),
			gocron.WithName("transcript-retention"),
		)
		if err != nil {
			return fmt.Errorf("failed to register retention job: %w", err)
		}
	}

	s.scheduler.Start()
	log.Println("✅ Background jobs started")
	return nil
}

// Stop shuts the scheduler down, waiting for running jobs.
func (s *Scheduler) Stop() error {
	log.Println("⏹️ Stopping background jobs...")
	return s.scheduler.Shutdown()
}

// refreshExpiringTokens refreshes every credential expiring inside the
// window. Failures are logged per user and never abort the sweep; an
// unreachable provider for one user must not starve the rest.
func (s *Scheduler) refreshExpiringTokens(ctx context.Context) {
	userIDs, err := s.credentials.ExpiringBefore(ctx, time.Now().Add(refreshWindow))
	if err != nil {
		log.Printf("⚠️ [JOBS] Failed to scan expiring credentials: %v", err)
		return
	}
	if len(userIDs) == 0 {
		return
	}

	refreshed := 0
	for _, userID := range userIDs {
		if err := s.calendar.RefreshIfExpiringWithin(ctx, userID, refreshWindow); err != nil {
			log.Printf("⚠️ [JOBS] Token refresh failed for user %s: %v", userID, err)
			continue
		}
		refreshed++
	}
	log.Printf("🔄 [JOBS] Refreshed %d/%d expiring calendar credentials", refreshed, len(userIDs))
}

func (s *Scheduler) pruneTranscripts(ctx context.Context) {
	cutoff := time.Now().UTC().AddDate(0, 0, -s.retentionDays)
	deleted, err := s.transcripts.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		log.Printf("⚠️ [JOBS] Transcript retention failed: %v", err)
		return
	}
	if deleted > 0 {
		log.Printf("🧹 [JOBS] Deleted %d chat messages older than %d days", deleted, s.retentionDays)
	}
}

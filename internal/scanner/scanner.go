// Package scanner announces matches whose scheduled minute has arrived to
// every account enrolled in them.
package scanner

import (
	"context"
	"fmt"
	"sync"
	"time"

	"arena/internal/models"
	"arena/internal/store"
	"arena/internal/timekey"

	"github.com/go-co-op/gocron/v2"
	"go.uber.org/zap"
)

type MatchSource interface {
	FindStartingAt(ctx context.Context, timeKey string) ([]store.Match, error)
	ListEnrollees(ctx context.Context, matchIDs []int64) ([]store.Enrollee, error)
}

type Publisher interface {
	Publish(ctx context.Context, event models.MatchStarting) error
}

type NotificationRecorder interface {
	ObserveNotification(result string)
}

const (
	resultPublished = "published"
	resultFailed    = "failed"
)

type Scanner struct {
	matches   MatchSource
	publisher Publisher
	recorder  NotificationRecorder
	location  *time.Location
	logger    *zap.Logger

	mu      sync.Mutex
	lastKey string
}

func New(matches MatchSource, publisher Publisher, recorder NotificationRecorder, location *time.Location, logger *zap.Logger) *Scanner {
	return &Scanner{
		matches:   matches,
		publisher: publisher,
		recorder:  recorder,
		location:  location,
		logger:    logger,
	}
}

// RunOnce publishes one event per (match, enrolled account) for matches keyed
// at now's minute and returns how many were published. A minute is scanned
// at most once; a failed read leaves it eligible for the next run.
func (s *Scanner) RunOnce(ctx context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := timekey.Format(now, s.location)
	if key == s.lastKey {
		return 0, nil
	}
	matches, err := s.matches.FindStartingAt(ctx, key)
	if err != nil {
		return 0, fmt.Errorf("find matches at %s: %w", key, err)
	}
	byID := make(map[int64]store.Match, len(matches))
	ids := make([]int64, 0, len(matches))
	for _, m := range matches {
		byID[m.ID] = m
		ids = append(ids, m.ID)
	}
	enrollees, err := s.matches.ListEnrollees(ctx, ids)
	if err != nil {
		return 0, fmt.Errorf("list enrollees at %s: %w", key, err)
	}
	s.lastKey = key

	published := 0
	for _, e := range enrollees {
		match := byID[e.MatchID]
		event := models.MatchStarting{
			MatchID:     match.ID,
			GameName:    match.GameName,
			MatchName:   match.MatchName,
			TimeKey:     match.TimeKey,
			AccountID:   e.AccountID,
			Email:       e.Email,
			PublishedAt: now.UTC(),
		}
		if e.SessionID != nil {
			event.SessionID = *e.SessionID
		}
		if err := s.publisher.Publish(ctx, event); err != nil {
			s.recorder.ObserveNotification(resultFailed)
			s.logger.Warn("match starting publish failed",
				zap.Int64("match_id", match.ID),
				zap.String("account_id", e.AccountID),
				zap.Error(err),
			)
			continue
		}
		s.recorder.ObserveNotification(resultPublished)
		published++
	}
	if len(matches) > 0 {
		s.logger.Info("match starting scan",
			zap.String("time_key", key),
			zap.Int("matches", len(matches)),
			zap.Int("published", published),
		)
	}
	return published, nil
}

// Start schedules RunOnce every minute. The caller shuts the scheduler down.
func (s *Scanner) Start(ctx context.Context) (gocron.Scheduler, error) {
	sched, err := gocron.NewScheduler(gocron.WithLocation(s.location))
	if err != nil {
		return nil, err
	}
	_, err = sched.NewJob(
		gocron.DurationJob(time.Minute),
		gocron.NewTask(func() {
			if _, err := s.RunOnce(ctx, time.Now()); err != nil {
				s.logger.Error("match starting scan failed", zap.Error(err))
			}
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	)
	if err != nil {
		_ = sched.Shutdown()
		return nil, err
	}
	sched.Start()
	return sched, nil
}

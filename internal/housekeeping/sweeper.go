// Package housekeeping runs background maintenance of the relay server.
package housekeeping

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// sweepTimeout bounds one pass over the upload directory.
const sweepTimeout = 5 * time.Minute

// Sweepable deletes stored uploads older than a given age.
type Sweepable interface {
	SweepOlderThan(ctx context.Context, maxAge time.Duration) (int, error)
}

// UploadSweeper periodically removes abandoned uploads. Requests delete their
// own files; this catches the ones left behind by crashes or retention.
type UploadSweeper struct {
	store    Sweepable
	interval time.Duration
	maxAge   time.Duration
	logger   *zap.Logger
	stopChan chan struct{}
	done     chan struct{}
}

// NewUploadSweeper creates a sweeper. It does nothing until Start.
func NewUploadSweeper(store Sweepable, interval, maxAge time.Duration, logger *zap.Logger) *UploadSweeper {
	return &UploadSweeper{
		store:    store,
		interval: interval,
		maxAge:   maxAge,
		logger:   logger,
		stopChan: make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start begins the background sweep loop. A non-positive interval disables it.
func (s *UploadSweeper) Start() {
	if s.interval <= 0 {
		close(s.done)
		s.logger.Info("Upload sweeper disabled")
		return
	}
	go s.sweepLoop()
	s.logger.Info("Upload sweeper started",
		zap.Duration("interval", s.interval),
		zap.Duration("maxAge", s.maxAge))
}

// Stop stops the loop and waits for a running pass to finish.
func (s *UploadSweeper) Stop() {
	select {
	case <-s.stopChan:
	default:
		close(s.stopChan)
	}
	<-s.done
	s.logger.Info("Upload sweeper stopped")
}

func (s *UploadSweeper) sweepLoop() {
	defer close(s.done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.RunOnce()
		}
	}
}

// RunOnce performs one sweep. Failures are logged only.
func (s *UploadSweeper) RunOnce() int {
	ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
	defer cancel()

	deleted, err := s.store.SweepOlderThan(ctx, s.maxAge)
	if err != nil {
		s.logger.Error("Failed to sweep uploads", zap.Error(err))
		return deleted
	}

	if deleted > 0 {
		s.logger.Info("Swept stale uploads", zap.Int("deleted", deleted))
	}
	return deleted
}

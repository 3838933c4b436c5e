package sse

import (
	"context"
	"time"

	"followup-tracker/internal/logger"
	"followup-tracker/internal/service"
)

// RefreshJob re-fetches the mailbox periodically while someone is listening
type RefreshJob struct {
	tracker    service.TrackerService
	sseManager *SSEManager
	logger     *logger.Logger
	interval   time.Duration

	ctx    context.Context
	cancel context.CancelFunc
}

func NewRefreshJob(
	tracker service.TrackerService,
	sseManager *SSEManager,
	interval time.Duration,
	logger *logger.Logger,
) *RefreshJob {
	ctx, cancel := context.WithCancel(context.Background())

	return &RefreshJob{
		tracker:    tracker,
		sseManager: sseManager,
		logger:     logger,
		interval:   interval,
		ctx:        ctx,
		cancel:     cancel,
	}
}

// RunOnce performs one refresh cycle; exported for testing. Failures are
// terminal for the cycle and reported to listeners.
func (j *RefreshJob) RunOnce() {
	if !j.sseManager.HasConnections() {
		j.logger.Debug("Skipping refresh, no active SSE connections")
		return
	}

	ctx, cancel := context.WithTimeout(j.ctx, j.interval)
	defer cancel()

	result, err := j.tracker.Refresh(ctx)
	if err != nil {
		j.logger.Error("Periodic refresh failed:", err)
		j.sseManager.Broadcast(EventRefreshFailed, map[string]string{
			"message": "Unable to reach the mailbox. Try refreshing again later.",
		})
		return
	}

	j.logger.Info("Periodic refresh fetched", result.Fetched, "messages,", result.Added, "new")
}

// Start blocks, refreshing on every tick until Stop is called
func (j *RefreshJob) Start() {
	j.logger.Info("Starting refresh job with interval:", j.interval.String())

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			j.RunOnce()
		case <-j.ctx.Done():
			j.logger.Info("Refresh job stopped")
			return
		}
	}
}

// Stop stops the periodic job
func (j *RefreshJob) Stop() {
	j.cancel()
}

func (j *RefreshJob) Interval() time.Duration {
	return j.interval
}

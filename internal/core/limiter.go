package core

// limiter.go bounds how many ingests run at once.
// Parsing a workbook holds the whole file and its decoded rows in memory,
// so the server admits a fixed number and makes the rest queue for a slot.

import (
	"context"
	"time"
)

const (
	defaultMaxIngests = 5
	defaultIngestWait = 30 * time.Second
	drainPollInterval = 50 * time.Millisecond
)

// IngestLimiter is a counting semaphore with a bounded wait.
type IngestLimiter struct {
	slots   chan struct{}
	maxWait time.Duration
}

// LimiterStatus is a point-in-time view of an IngestLimiter.
type LimiterStatus struct {
	Active        int `json:"active"`
	Available     int `json:"available"`
	MaxConcurrent int `json:"maxConcurrent"`
}

// NewIngestLimiter admits at most maxConcurrent holders. Callers that cannot
// get a slot within maxWait receive ErrTooManyIngests.
func NewIngestLimiter(maxConcurrent int, maxWait time.Duration) *IngestLimiter {
	if maxConcurrent <= 0 {
		maxConcurrent = defaultMaxIngests
	}
	if maxWait <= 0 {
		maxWait = defaultIngestWait
	}
	return &IngestLimiter{
		slots:   make(chan struct{}, maxConcurrent),
		maxWait: maxWait,
	}
}

// Acquire takes a slot. The caller must Release it when done.
func (l *IngestLimiter) Acquire(ctx context.Context) error {
	select {
	case l.slots <- struct{}{}:
		return nil
	default:
	}

	timer := time.NewTimer(l.maxWait)
	defer timer.Stop()

	select {
	case l.slots <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return ErrTooManyIngests
	}
}

// Release returns a slot taken by Acquire.
func (l *IngestLimiter) Release() {
	<-l.slots
}

// Active reports how many slots are held.
func (l *IngestLimiter) Active() int {
	return len(l.slots)
}

// WaitForDrain blocks until no slot is held or ctx ends. Used on shutdown.
func (l *IngestLimiter) WaitForDrain(ctx context.Context) error {
	ticker := time.NewTicker(drainPollInterval)
	defer ticker.Stop()

	for l.Active() > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return nil
}

// Status reports the limiter state for the health endpoint.
func (l *IngestLimiter) Status() LimiterStatus {
	active := len(l.slots)
	return LimiterStatus{
		Active:        active,
		Available:     cap(l.slots) - active,
		MaxConcurrent: cap(l.slots),
	}
}

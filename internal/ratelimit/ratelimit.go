package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter decides whether a request from a given source may proceed.
type Limiter interface {
	Allow(ctx context.Context, key string) bool
}

// SourceLimiter keeps one token bucket per source key (event producer
// IP). Suitable for a single-instance deployment.
type SourceLimiter struct {
	rate  rate.Limit
	burst int

	buckets    sync.Map // map[string]*rate.Limiter
	lastAccess sync.Map // map[string]time.Time

	cleanupInterval time.Duration
	maxAge          time.Duration
	stopCleanup     chan struct{}
}

// NewSourceLimiter creates a limiter allowing rps requests per second
// with the given burst per source, and starts the idle-bucket sweeper.
func NewSourceLimiter(rps float64, burst int) *SourceLimiter {
	l := &SourceLimiter{
		rate:            rate.Limit(rps),
		burst:           burst,
		cleanupInterval: 5 * time.Minute,
		maxAge:          10 * time.Minute,
		stopCleanup:     make(chan struct{}),
	}

	go l.cleanupLoop()

	return l
}

// Allow reports whether one request from the source may proceed now.
func (l *SourceLimiter) Allow(_ context.Context, key string) bool {
	bucket := l.bucket(key)
	l.lastAccess.Store(key, time.Now().UTC())
	return bucket.Allow()
}

func (l *SourceLimiter) bucket(key string) *rate.Limiter {
	if bucket, ok := l.buckets.Load(key); ok {
		return bucket.(*rate.Limiter)
	}

	bucket := rate.NewLimiter(l.rate, l.burst)
	if actual, loaded := l.buckets.LoadOrStore(key, bucket); loaded {
		return actual.(*rate.Limiter)
	}
	return bucket
}

func (l *SourceLimiter) cleanupLoop() {
	ticker := time.NewTicker(l.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			l.dropIdleBuckets()
		case <-l.stopCleanup:
			return
		}
	}
}

// dropIdleBuckets removes buckets not used within maxAge so one-shot
// sources do not accumulate forever.
func (l *SourceLimiter) dropIdleBuckets() {
	cutoff := time.Now().UTC().Add(-l.maxAge)

	var stale []string
	l.lastAccess.Range(func(key, value any) bool {
		if value.(time.Time).Before(cutoff) {
			stale = append(stale, key.(string))
		}
		return true
	})

	for _, key := range stale {
		l.buckets.Delete(key)
		l.lastAccess.Delete(key)
	}
}

// Stop terminates the sweeper goroutine.
func (l *SourceLimiter) Stop() {
	close(l.stopCleanup)
}

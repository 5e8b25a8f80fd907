package notify

import (
	"context"
	"sync"
	"time"

	"tramite-portal/internal/common/logger"
	"tramite-portal/internal/common/metrics"
)

// CountSource is the backend notification-count call.
type CountSource interface {
	NotificationCount(ctx context.Context, token string) (int, error)
}

// Poller refreshes unread notification counts for active sessions on a fixed
// interval, replacing per-page polling with a single shared loop. Counts are
// served from the last successful poll; a failed poll keeps the stale value.
type Poller struct {
	source   CountSource
	interval time.Duration
	logger   logger.Logger

	mu     sync.RWMutex
	tokens map[string]string // scope -> token
	counts map[string]int
}

func NewPoller(source CountSource, interval time.Duration, log logger.Logger) *Poller {
	return &Poller{
		source:   source,
		interval: interval,
		logger:   log.WithFields(map[string]interface{}{"component": "poller"}),
		tokens:   make(map[string]string),
		counts:   make(map[string]int),
	}
}

// Track registers a scope for polling, refreshing its token on every call.
func (p *Poller) Track(scope, token string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.tokens[scope] = token
}

// Forget drops a scope from the poll set.
func (p *Poller) Forget(scope string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.tokens, scope)
	delete(p.counts, scope)
}

// Count returns the last polled unread count for a scope.
func (p *Poller) Count(scope string) int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.counts[scope]
}

// Run polls until the context is cancelled.
func (p *Poller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("notification poller stopped", nil)
			return
		case <-ticker.C:
			p.pollAll(ctx)
		}
	}
}

func (p *Poller) pollAll(ctx context.Context) {
	p.mu.RLock()
	snapshot := make(map[string]string, len(p.tokens))
	for scope, token := range p.tokens {
		snapshot[scope] = token
	}
	p.mu.RUnlock()

	for scope, token := range snapshot {
		count, err := p.source.NotificationCount(ctx, token)
		if err != nil {
			metrics.NotificationPollsTotal.WithLabelValues("error").Inc()
			p.logger.WithError(err).Warn("notification poll failed", map[string]interface{}{
				"scope": scope,
			})
			continue
		}

		metrics.NotificationPollsTotal.WithLabelValues("ok").Inc()
		p.mu.Lock()
		p.counts[scope] = count
		p.mu.Unlock()
	}
}

package notify

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"tramite-portal/internal/common/logger"
)

type fakeCountSource struct {
	mu     sync.Mutex
	counts map[string]int
	err    error
	calls  int
}

func (f *fakeCountSource) NotificationCount(ctx context.Context, token string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return 0, f.err
	}
	return f.counts[token], nil
}

func TestPollerRefreshesTrackedScopes(t *testing.T) {
	source := &fakeCountSource{counts: map[string]int{"tok-a": 3, "tok-b": 1}}
	poller := NewPoller(source, 5*time.Millisecond, logger.NewTestLogger(t))
	poller.Track("u1", "tok-a")
	poller.Track("u2", "tok-b")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		poller.Run(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool {
		return poller.Count("u1") == 3 && poller.Count("u2") == 1
	}, time.Second, 5*time.Millisecond)

	cancel()
	<-done
}

func TestPollerKeepsStaleCountOnFailure(t *testing.T) {
	source := &fakeCountSource{counts: map[string]int{"tok-a": 3}}
	poller := NewPoller(source, 5*time.Millisecond, logger.NewTestLogger(t))
	poller.Track("u1", "tok-a")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go poller.Run(ctx)

	assert.Eventually(t, func() bool {
		return poller.Count("u1") == 3
	}, time.Second, 5*time.Millisecond)

	source.mu.Lock()
	source.err = errors.New("backend down")
	calls := source.calls
	source.mu.Unlock()

	assert.Eventually(t, func() bool {
		source.mu.Lock()
		defer source.mu.Unlock()
		return source.calls > calls
	}, time.Second, 5*time.Millisecond)

	assert.Equal(t, 3, poller.Count("u1"))
}

func TestForgetDropsScope(t *testing.T) {
	source := &fakeCountSource{counts: map[string]int{"tok-a": 3}}
	poller := NewPoller(source, time.Hour, logger.NewTestLogger(t))
	poller.Track("u1", "tok-a")
	poller.pollAll(context.Background())
	assert.Equal(t, 3, poller.Count("u1"))

	poller.Forget("u1")
	assert.Zero(t, poller.Count("u1"))
}

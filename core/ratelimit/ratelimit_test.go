package ratelimit

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YingqiDuan/trading-telegram-bot/config"
)

func newTestLimiter(global Limit, categories map[string]Limit) (*MemoryLimiter, *time.Time) {
	l := NewMemoryLimiter(global, categories)
	current := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return current }
	return l, &current
}

func TestCategoryLimitDenies(t *testing.T) {
	l, _ := newTestLimiter(Limit{MaxCalls: 10, Window: time.Minute}, map[string]Limit{
		"balance": {MaxCalls: 2, Window: time.Minute},
	})

	require.NoError(t, l.Check("u1", "balance"))
	require.NoError(t, l.Check("u1", "balance"))

	err := l.Check("u1", "balance")
	require.Error(t, err)

	denied, ok := err.(*DeniedError)
	require.True(t, ok)
	assert.Equal(t, "balance", denied.Category)
	assert.Equal(t, time.Minute, denied.RetryAfter)
}

func TestRetryAfterTracksOldestRequest(t *testing.T) {
	l, current := newTestLimiter(Limit{MaxCalls: 10, Window: time.Minute}, map[string]Limit{
		"balance": {MaxCalls: 2, Window: time.Minute},
	})

	require.NoError(t, l.Check("u1", "balance"))
	*current = current.Add(30 * time.Second)
	require.NoError(t, l.Check("u1", "balance"))

	*current = current.Add(10 * time.Second)
	err := l.Check("u1", "balance")
	denied, ok := err.(*DeniedError)
	require.True(t, ok)
	assert.Equal(t, 20*time.Second, denied.RetryAfter)
}

func TestWindowSlides(t *testing.T) {
	l, current := newTestLimiter(Limit{MaxCalls: 10, Window: time.Minute}, map[string]Limit{
		"balance": {MaxCalls: 1, Window: time.Minute},
	})

	require.NoError(t, l.Check("u1", "balance"))
	require.Error(t, l.Check("u1", "balance"))

	*current = current.Add(61 * time.Second)
	require.NoError(t, l.Check("u1", "balance"))
}

func TestLongWindowCategorySurvivesOtherTraffic(t *testing.T) {
	l, current := newTestLimiter(Limit{MaxCalls: 100, Window: time.Minute}, map[string]Limit{
		"validators": {MaxCalls: 2, Window: 10 * time.Minute},
	})

	require.NoError(t, l.Check("u1", "validators"))
	require.NoError(t, l.Check("u1", "validators"))

	// unrelated traffic after the short global window has passed
	*current = current.Add(90 * time.Second)
	require.NoError(t, l.Check("u1", ""))

	// the validators history is still inside its own 10 minute window
	err := l.Check("u1", "validators")
	denied, ok := err.(*DeniedError)
	require.True(t, ok)
	assert.Equal(t, "validators", denied.Category)
	assert.Equal(t, 510*time.Second, denied.RetryAfter)
}

func TestGlobalWindowCountsAllCategories(t *testing.T) {
	l, _ := newTestLimiter(Limit{MaxCalls: 2, Window: time.Minute}, map[string]Limit{
		"balance": {MaxCalls: 10, Window: time.Minute},
	})

	require.NoError(t, l.Check("u1", "balance"))
	require.NoError(t, l.Check("u1", ""))

	err := l.Check("u1", "balance")
	denied, ok := err.(*DeniedError)
	require.True(t, ok)
	assert.Equal(t, CategoryGlobal, denied.Category)
}

func TestDeniedRequestsNotRecorded(t *testing.T) {
	l, current := newTestLimiter(Limit{MaxCalls: 1, Window: time.Minute}, nil)

	require.NoError(t, l.Check("u1", ""))
	for i := 0; i < 20; i++ {
		require.Error(t, l.Check("u1", ""))
	}

	// only the admitted request occupies the window
	*current = current.Add(61 * time.Second)
	require.NoError(t, l.Check("u1", ""))
}

func TestUsersIsolated(t *testing.T) {
	l, _ := newTestLimiter(Limit{MaxCalls: 1, Window: time.Minute}, nil)

	require.NoError(t, l.Check("u1", ""))
	require.Error(t, l.Check("u1", ""))
	require.NoError(t, l.Check("u2", ""))
}

func TestConcurrentChecksNeverOveradmit(t *testing.T) {
	l := NewMemoryLimiter(Limit{MaxCalls: 10, Window: time.Minute}, nil)

	var wg sync.WaitGroup
	var mu sync.Mutex
	admitted := 0

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := l.Check("u1", ""); err == nil {
				mu.Lock()
				admitted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 10, admitted)
}

func TestNoopLimiterWhenDisabled(t *testing.T) {
	l := FromConfig(config.RateLimitConfig{Enabled: false})
	for i := 0; i < 100; i++ {
		require.NoError(t, l.Check("u1", "balance"))
	}
}

package quota

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"seo-article-api/internal/domain/entity"
)

type recordingReporter struct {
	mu     sync.Mutex
	events []entity.ProviderUsage
	err    error
}

func (r *recordingReporter) Report(_ context.Context, usage entity.ProviderUsage, _ time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.events = append(r.events, usage)
	return nil
}

func newTestTracker(t *testing.T, limits map[string]Limits, reporter Reporter) *Tracker {
	t.Helper()
	tracker, err := NewTracker(limits, "UTC", reporter)
	require.NoError(t, err)
	return tracker
}

func TestTrackerDailyQuotaExhaustion(t *testing.T) {
	tracker := newTestTracker(t, map[string]Limits{
		"gemini": {Daily: 2, Monthly: 100},
	}, nil)

	ctx := context.Background()
	require.True(t, tracker.IsWithinQuota("gemini"))

	tracker.Record(ctx, entity.ProviderUsage{Provider: "gemini"})
	require.True(t, tracker.IsWithinQuota("gemini"))

	tracker.Record(ctx, entity.ProviderUsage{Provider: "gemini"})
	assert.False(t, tracker.IsWithinQuota("gemini"))
}

func TestTrackerMonthlyQuotaExhaustion(t *testing.T) {
	tracker := newTestTracker(t, map[string]Limits{
		"openai": {Daily: 0, Monthly: 3},
	}, nil)

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		require.True(t, tracker.IsWithinQuota("openai"))
		tracker.Record(ctx, entity.ProviderUsage{Provider: "openai"})
	}
	assert.False(t, tracker.IsWithinQuota("openai"))
}

func TestTrackerZeroLimitMeansUnlimited(t *testing.T) {
	tracker := newTestTracker(t, map[string]Limits{
		"mock": {Daily: 0, Monthly: 0},
	}, nil)

	ctx := context.Background()
	for i := 0; i < 500; i++ {
		tracker.Record(ctx, entity.ProviderUsage{Provider: "mock"})
	}
	assert.True(t, tracker.IsWithinQuota("mock"))
}

func TestTrackerUnknownProviderIsUnlimited(t *testing.T) {
	tracker := newTestTracker(t, map[string]Limits{}, nil)
	assert.True(t, tracker.IsWithinQuota("never-configured"))
}

func TestTrackerDailyWindowRollover(t *testing.T) {
	tracker := newTestTracker(t, map[string]Limits{
		"gemini": {Daily: 1, Monthly: 100},
	}, nil)

	now := time.Date(2026, 3, 15, 23, 50, 0, 0, time.UTC)
	tracker.now = func() time.Time { return now }

	ctx := context.Background()
	tracker.Record(ctx, entity.ProviderUsage{Provider: "gemini"})
	require.False(t, tracker.IsWithinQuota("gemini"))

	// 跨过午夜，日窗口清零，月窗口保留
	now = time.Date(2026, 3, 16, 0, 10, 0, 0, time.UTC)
	assert.True(t, tracker.IsWithinQuota("gemini"))

	stats := tracker.Stats()
	require.Len(t, stats, 1)
	assert.Equal(t, int64(0), stats[0].DailyUsed)
	assert.Equal(t, int64(1), stats[0].MonthlyUsed)
}

func TestTrackerMonthlyWindowRollover(t *testing.T) {
	tracker := newTestTracker(t, map[string]Limits{
		"anthropic": {Daily: 0, Monthly: 1},
	}, nil)

	now := time.Date(2026, 3, 31, 12, 0, 0, 0, time.UTC)
	tracker.now = func() time.Time { return now }

	ctx := context.Background()
	tracker.Record(ctx, entity.ProviderUsage{Provider: "anthropic"})
	require.False(t, tracker.IsWithinQuota("anthropic"))

	now = time.Date(2026, 4, 1, 0, 0, 1, 0, time.UTC)
	assert.True(t, tracker.IsWithinQuota("anthropic"))
}

func TestTrackerTimezoneWindows(t *testing.T) {
	tracker, err := NewTracker(map[string]Limits{
		"gemini": {Daily: 1},
	}, "Asia/Shanghai", nil)
	require.NoError(t, err)

	// UTC 17:00 在东八区已是次日 01:00
	now := time.Date(2026, 3, 15, 17, 0, 0, 0, time.UTC)
	tracker.now = func() time.Time { return now }

	ctx := context.Background()
	tracker.Record(ctx, entity.ProviderUsage{Provider: "gemini"})
	require.False(t, tracker.IsWithinQuota("gemini"))

	// UTC 次日 15:00 仍是东八区同一天 23:00，计数不清零
	now = time.Date(2026, 3, 16, 15, 0, 0, 0, time.UTC)
	assert.False(t, tracker.IsWithinQuota("gemini"))

	// 东八区跨天后恢复
	now = time.Date(2026, 3, 16, 16, 30, 0, 0, time.UTC)
	assert.True(t, tracker.IsWithinQuota("gemini"))
}

func TestTrackerInvalidTimezone(t *testing.T) {
	_, err := NewTracker(nil, "Not/AZone", nil)
	assert.Error(t, err)
}

func TestTrackerReportsUsage(t *testing.T) {
	reporter := &recordingReporter{}
	tracker := newTestTracker(t, map[string]Limits{
		"gemini": {Daily: 10},
	}, reporter)

	usage := entity.ProviderUsage{
		Provider:   "gemini",
		Model:      "gemini-1.5-pro",
		SessionID:  "sess-1",
		TokensUsed: 128,
		Cost:       0.002,
	}
	tracker.Record(context.Background(), usage)

	require.Len(t, reporter.events, 1)
	assert.Equal(t, usage, reporter.events[0])
}

func TestTrackerReporterFailureDoesNotBlockCounting(t *testing.T) {
	reporter := &recordingReporter{err: errors.New("stream unavailable")}
	tracker := newTestTracker(t, map[string]Limits{
		"gemini": {Daily: 1},
	}, reporter)

	tracker.Record(context.Background(), entity.ProviderUsage{Provider: "gemini"})
	assert.False(t, tracker.IsWithinQuota("gemini"))
}

func TestTrackerConcurrentRecord(t *testing.T) {
	tracker := newTestTracker(t, map[string]Limits{
		"gemini": {Daily: 0, Monthly: 0},
	}, nil)

	ctx := context.Background()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				tracker.Record(ctx, entity.ProviderUsage{Provider: "gemini"})
			}
		}()
	}
	wg.Wait()

	stats := tracker.Stats()
	require.Len(t, stats, 1)
	assert.Equal(t, int64(1000), stats[0].DailyUsed)
	assert.Equal(t, int64(1000), stats[0].MonthlyUsed)
}

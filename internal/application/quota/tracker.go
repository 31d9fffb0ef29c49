// Package quota 提供提供商配额跟踪能力
package quota

import (
	"context"
	"fmt"
	"sync"
	"time"

	"seo-article-api/internal/domain/entity"
	"seo-article-api/pkg/logger"
)

// Limits 提供商的日/月请求配额，0 表示不限
type Limits struct {
	Daily          int64
	Monthly        int64
	CostPerRequest float64
}

// Reporter 异步上报用量事件，用于持久化归档
type Reporter interface {
	Report(ctx context.Context, usage entity.ProviderUsage, at time.Time) error
}

// ProviderStats 单个提供商的用量统计
type ProviderStats struct {
	Provider      string  `json:"provider"`
	DailyUsed     int64   `json:"daily_used"`
	DailyLimit    int64   `json:"daily_limit"`
	MonthlyUsed   int64   `json:"monthly_used"`
	MonthlyLimit  int64   `json:"monthly_limit"`
	EstimatedCost float64 `json:"estimated_cost"`
}

// counter 单个提供商的滚动窗口计数
// dayKey/monthKey 标识计数所属的日历窗口，窗口切换时清零
type counter struct {
	mu       sync.Mutex
	dayKey   string
	day      int64
	monthKey string
	month    int64
}

// Tracker 按日历日/月跟踪各提供商的请求用量
// 所有窗口均以配置的时区计算
type Tracker struct {
	loc      *time.Location
	limits   map[string]Limits
	counters map[string]*counter
	reporter Reporter
	now      func() time.Time
}

// NewTracker 创建配额跟踪器
func NewTracker(limits map[string]Limits, timezone string, reporter Reporter) (*Tracker, error) {
	if timezone == "" {
		timezone = "UTC"
	}
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid quota timezone %q: %w", timezone, err)
	}

	counters := make(map[string]*counter, len(limits))
	for name := range limits {
		counters[name] = &counter{}
	}
	return &Tracker{
		loc:      loc,
		limits:   limits,
		counters: counters,
		reporter: reporter,
		now:      time.Now,
	}, nil
}

// IsWithinQuota 检查提供商是否仍有日/月配额
// 未配置限额的提供商视为不限
func (t *Tracker) IsWithinQuota(provider string) bool {
	limits, ok := t.limits[provider]
	if !ok {
		return true
	}
	c, ok := t.counters[provider]
	if !ok {
		return true
	}

	dayKey, monthKey := t.windowKeys()

	c.mu.Lock()
	defer c.mu.Unlock()
	c.roll(dayKey, monthKey)

	if limits.Daily > 0 && c.day >= limits.Daily {
		return false
	}
	if limits.Monthly > 0 && c.month >= limits.Monthly {
		return false
	}
	return true
}

// Record 记录一次成功调用
// 计数立即生效；归档上报失败只记日志，不影响调用方
func (t *Tracker) Record(ctx context.Context, usage entity.ProviderUsage) {
	at := t.now()
	if c, ok := t.counters[usage.Provider]; ok {
		dayKey, monthKey := t.windowKeys()
		c.mu.Lock()
		c.roll(dayKey, monthKey)
		c.day++
		c.month++
		c.mu.Unlock()
	}

	if t.reporter != nil {
		if err := t.reporter.Report(ctx, usage, at); err != nil {
			logger.Warn(ctx, "usage report failed", "provider", usage.Provider, "error", err.Error())
		}
	}
}

// Stats 返回各提供商当前窗口的用量统计
func (t *Tracker) Stats() []ProviderStats {
	dayKey, monthKey := t.windowKeys()

	stats := make([]ProviderStats, 0, len(t.counters))
	for name, c := range t.counters {
		limits := t.limits[name]
		c.mu.Lock()
		c.roll(dayKey, monthKey)
		stats = append(stats, ProviderStats{
			Provider:      name,
			DailyUsed:     c.day,
			DailyLimit:    limits.Daily,
			MonthlyUsed:   c.month,
			MonthlyLimit:  limits.Monthly,
			EstimatedCost: float64(c.month) * limits.CostPerRequest,
		})
		c.mu.Unlock()
	}
	return stats
}

// windowKeys 计算当前日历窗口标识
func (t *Tracker) windowKeys() (dayKey, monthKey string) {
	now := t.now().In(t.loc)
	return now.Format("2006-01-02"), now.Format("2006-01")
}

// roll 窗口切换时清零计数，调用方须持有锁
func (c *counter) roll(dayKey, monthKey string) {
	if c.dayKey != dayKey {
		c.dayKey = dayKey
		c.day = 0
	}
	if c.monthKey != monthKey {
		c.monthKey = monthKey
		c.month = 0
	}
}

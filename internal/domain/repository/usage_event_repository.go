// Package repository 定义数据访问层接口
package repository

import (
	"context"

	"seo-article-api/internal/domain/entity"
)

// UsageEventRepository 用量事件归档仓储
type UsageEventRepository interface {
	Create(ctx context.Context, event *entity.UsageEvent) error
}

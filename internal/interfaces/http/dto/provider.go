// Package dto 提供 HTTP 层数据传输对象
package dto

import (
	"seo-article-api/internal/application/quota"
)

// ProviderStatsResponse 提供商用量统计响应
type ProviderStatsResponse struct {
	Providers []quota.ProviderStats `json:"providers"`
}

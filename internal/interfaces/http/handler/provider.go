// Package handler 提供 HTTP 请求处理器
package handler

import (
	"sort"

	"github.com/gin-gonic/gin"

	"seo-article-api/internal/application/quota"
	"seo-article-api/internal/interfaces/http/dto"
)

// ProviderHandler 提供商统计处理器
type ProviderHandler struct {
	tracker *quota.Tracker
}

// NewProviderHandler 创建提供商统计处理器
func NewProviderHandler(tracker *quota.Tracker) *ProviderHandler {
	return &ProviderHandler{tracker: tracker}
}

// Stats 查询各提供商的配额用量
// @Summary 提供商用量统计
// @Tags Provider
// @Produce json
// @Success 200 {object} dto.ProviderStatsResponse
// @Router /v1/providers/stats [get]
func (h *ProviderHandler) Stats(c *gin.Context) {
	stats := h.tracker.Stats()
	sort.Slice(stats, func(i, j int) bool {
		return stats[i].Provider < stats[j].Provider
	})
	dto.Success(c, dto.ProviderStatsResponse{Providers: stats})
}

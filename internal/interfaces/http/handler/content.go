// Package handler 提供 HTTP 请求处理器
package handler

import (
	"github.com/gin-gonic/gin"

	"seo-article-api/internal/application/orchestrator"
	"seo-article-api/internal/interfaces/http/dto"
	apperrors "seo-article-api/pkg/errors"
)

// ContentHandler 单次内容生成处理器
type ContentHandler struct {
	orch *orchestrator.Orchestrator
}

// NewContentHandler 创建内容生成处理器
func NewContentHandler(orch *orchestrator.Orchestrator) *ContentHandler {
	return &ContentHandler{orch: orch}
}

// Generate 单次内容生成
// @Summary 通过编排器执行一次生成
// @Tags Content
// @Accept json
// @Produce json
// @Success 200 {object} dto.GenerateContentResponse
// @Router /v1/content/generate [post]
func (h *ContentHandler) Generate(c *gin.Context) {
	var req dto.GenerateContentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	result, err := h.orch.Generate(c.Request.Context(), orchestrator.Request{
		Prompt:            req.Prompt,
		PreferredProvider: req.Provider,
		MaxTokens:         req.MaxTokens,
		Temperature:       req.Temperature,
		ClientID:          c.GetString("client_id"),
	})
	if err != nil {
		dto.FromAppError(c, err)
		return
	}

	if !result.Success {
		appErr := apperrors.ErrAllProvidersExhausted
		dto.ErrorWithDetail(c, appErr.HTTPStatus, appErr.Message, &dto.ErrorDetail{
			ErrorCode: string(appErr.Code),
			Details:   attemptsSummary(result),
		})
		return
	}

	dto.Success(c, dto.GenerateContentResponse{
		Content:      result.Content,
		Provider:     result.Provider,
		Model:        result.Model,
		TokensUsed:   result.TokensUsed,
		CostEstimate: result.CostEstimate,
		DurationMs:   result.DurationMs,
		Attempts:     result.Attempts,
	})
}

// attemptsSummary 汇总尝试日志为可读字符串
func attemptsSummary(result *orchestrator.Result) string {
	s := ""
	for i, a := range result.Attempts {
		if i > 0 {
			s += "; "
		}
		s += a.Provider + ": " + a.Reason
	}
	return s
}

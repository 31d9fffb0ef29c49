// Package handler 提供 HTTP 请求处理器
package handler

import (
	"github.com/gin-gonic/gin"

	"seo-article-api/internal/application/workflow"
	"seo-article-api/internal/interfaces/http/dto"
	"seo-article-api/pkg/logger"
)

// WorkflowHandler 内容生成工作流处理器
type WorkflowHandler struct {
	engine *workflow.Engine
}

// NewWorkflowHandler 创建工作流处理器
func NewWorkflowHandler(engine *workflow.Engine) *WorkflowHandler {
	return &WorkflowHandler{engine: engine}
}

// Start 启动工作流会话
// @Summary 启动内容生成工作流
// @Tags Workflow
// @Accept json
// @Produce json
// @Success 202 {object} dto.StartWorkflowResponse
// @Router /v1/workflows [post]
func (h *WorkflowHandler) Start(c *gin.Context) {
	var req dto.StartWorkflowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	sess, err := h.engine.StartSession(c.Request.Context(), req.Topic, c.GetString("client_id"))
	if err != nil {
		dto.FromAppError(c, err)
		return
	}

	dto.Accepted(c, dto.StartWorkflowResponse{
		SessionID: sess.ID,
		Status:    string(sess.Status),
		Topic:     sess.Topic,
		CreatedAt: sess.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	})
}

// Status 查询会话状态
// @Summary 查询工作流会话状态
// @Tags Workflow
// @Produce json
// @Success 200 {object} dto.WorkflowStatusResponse
// @Router /v1/workflows/{sid}/status [get]
func (h *WorkflowHandler) Status(c *gin.Context) {
	sess, err := h.engine.GetStatus(c.Request.Context(), c.Param("sid"))
	if err != nil {
		dto.FromAppError(c, err)
		return
	}
	dto.Success(c, dto.NewWorkflowStatusResponse(sess))
}

// Results 获取已完成会话的全部结果
// @Summary 获取工作流结果
// @Tags Workflow
// @Produce json
// @Success 200 {object} dto.WorkflowResultsResponse
// @Router /v1/workflows/{sid}/results [get]
func (h *WorkflowHandler) Results(c *gin.Context) {
	sess, err := h.engine.GetResults(c.Request.Context(), c.Param("sid"))
	if err != nil {
		dto.FromAppError(c, err)
		return
	}
	dto.Success(c, dto.NewWorkflowResultsResponse(sess))
}

// Cancel 请求取消会话
// @Summary 取消工作流会话
// @Tags Workflow
// @Produce json
// @Router /v1/workflows/{sid}/cancel [post]
func (h *WorkflowHandler) Cancel(c *gin.Context) {
	sid := c.Param("sid")
	if err := h.engine.Cancel(c.Request.Context(), sid); err != nil {
		dto.FromAppError(c, err)
		return
	}

	logger.Info(c.Request.Context(), "session cancel requested", "session_id", sid)
	dto.Success(c, gin.H{"session_id": sid, "cancel_requested": true})
}

// Delete 删除会话
// @Summary 删除工作流会话
// @Tags Workflow
// @Router /v1/workflows/{sid} [delete]
func (h *WorkflowHandler) Delete(c *gin.Context) {
	if err := h.engine.DeleteSession(c.Request.Context(), c.Param("sid")); err != nil {
		dto.FromAppError(c, err)
		return
	}
	dto.NoContent(c)
}

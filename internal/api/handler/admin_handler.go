package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/fanout-engine/pkg/response"
)

// FanOutStats 各状态任务数 + 死信数（max_attempts > 0 时）
// @Summary fan-out 状态统计
// @Tags 运维
// @Security Bearer
// @Success 200 {object} response.Response{data=map[string]interface{}}
// @Router /api/v1/admin/fanouts/stats [get]
func (h *Handler) FanOutStats(c *gin.Context) {
	ctx := c.Request.Context()
	counts, err := h.fanouts.CountByState(ctx)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	dead, err := h.fanouts.CountDead(ctx, h.maxAttempts)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.Success(c, gin.H{"by_state": counts, "dead": dead})
}

// RetryFanOut 人工重试：清掉认领痕迹，下一轮立即可领
// @Summary 重试一条 fan-out
// @Tags 运维
// @Security Bearer
// @Param id path string true "任务ID"
// @Success 200 {object} response.Response
// @Router /api/v1/admin/fanouts/{id}/retry [post]
func (h *Handler) RetryFanOut(c *gin.Context) {
	if err := h.fanouts.Reschedule(c.Request.Context(), c.Param("id")); err != nil {
		response.InternalError(c, err)
		return
	}
	response.Success(c, nil)
}

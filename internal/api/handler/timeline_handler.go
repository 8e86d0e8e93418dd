package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/fanout-engine/pkg/response"
)

// Timeline 读取某身份的时间线
// @Summary 时间线
// @Tags 时间线
// @Param identity_id path string true "身份ID"
// @Param page query int false "页码" default(1)
// @Param page_size query int false "每页数量" default(20)
// @Success 200 {object} response.Response{data=map[string]interface{}}
// @Router /api/v1/timeline/{identity_id} [get]
func (h *Handler) Timeline(c *gin.Context) {
	identityID := c.Param("identity_id")
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	events, err := h.timeline.ListForIdentity(c.Request.Context(), identityID, (page-1)*pageSize, pageSize)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.Success(c, gin.H{"page": page, "page_size": pageSize, "list": events})
}

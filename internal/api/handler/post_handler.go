package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/fanout-engine/internal/model"
	"github.com/d60-Lab/fanout-engine/pkg/response"
)

type publishRequest struct {
	AuthorID  string   `json:"author_id" binding:"required"`
	Content   string   `json:"content" binding:"required"`
	InReplyTo *string  `json:"in_reply_to"`
	Mentions  []string `json:"mentions"`
}

// PublishPost 发帖并生成 fan-out
// @Summary 发帖
// @Tags 帖子
// @Accept json
// @Produce json
// @Param request body publishRequest true "帖子内容"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Router /api/v1/posts [post]
func (h *Handler) PublishPost(c *gin.Context) {
	var req publishRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	post, err := h.planner.PublishPost(c.Request.Context(), req.AuthorID, req.Content, req.InReplyTo, req.Mentions)
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	response.Success(c, gin.H{"post_id": post.ID, "object_uri": post.ObjectURI})
}

type editRequest struct {
	Content string `json:"content" binding:"required"`
}

// EditPost 编辑帖子并生成 post_edited fan-out
// @Summary 编辑帖子
// @Tags 帖子
// @Accept json
// @Produce json
// @Param id path string true "帖子ID"
// @Param request body editRequest true "新内容"
// @Success 200 {object} response.Response
// @Router /api/v1/posts/{id} [put]
func (h *Handler) EditPost(c *gin.Context) {
	var req editRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	post, err := h.planner.EditPost(c.Request.Context(), c.Param("id"), req.Content)
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	response.Success(c, gin.H{"post_id": post.ID})
}

// DeletePost 删帖并生成 post_deleted fan-out
// @Summary 删帖
// @Tags 帖子
// @Param id path string true "帖子ID"
// @Success 200 {object} response.Response
// @Router /api/v1/posts/{id} [delete]
func (h *Handler) DeletePost(c *gin.Context) {
	if err := h.planner.DeletePost(c.Request.Context(), c.Param("id")); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	response.Success(c, nil)
}

type interactionRequest struct {
	ActorID string `json:"actor_id" binding:"required"`
	PostID  string `json:"post_id" binding:"required"`
	Kind    string `json:"kind" binding:"required,oneof=like boost"`
}

// AddInteraction 点赞/转发
// @Summary 互动
// @Tags 互动
// @Accept json
// @Produce json
// @Param request body interactionRequest true "互动"
// @Success 200 {object} response.Response
// @Router /api/v1/interactions [post]
func (h *Handler) AddInteraction(c *gin.Context) {
	var req interactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	inter, err := h.planner.AddInteraction(c.Request.Context(), req.ActorID, req.PostID, model.InteractionKind(req.Kind))
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	response.Success(c, gin.H{"interaction_id": inter.ID})
}

// UndoInteraction 撤销互动
// @Summary 撤销互动
// @Tags 互动
// @Param id path string true "互动ID"
// @Success 200 {object} response.Response
// @Router /api/v1/interactions/{id} [delete]
func (h *Handler) UndoInteraction(c *gin.Context) {
	if err := h.planner.UndoInteraction(c.Request.Context(), c.Param("id")); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	response.Success(c, nil)
}

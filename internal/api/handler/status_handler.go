package handler

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/timeline-engine/internal/model"
	"github.com/d60-Lab/timeline-engine/internal/retention"
	"github.com/d60-Lab/timeline-engine/pkg/response"
)

type publishRequest struct {
	ID         int64    `json:"id" binding:"required"`
	AccountID  int64    `json:"account_id" binding:"required"`
	Visibility string   `json:"visibility" binding:"required,oneof=public unlisted private direct group"`
	GroupID    int64    `json:"group_id"`
	InReplyTo  int64    `json:"in_reply_to_id"`
	ReblogOf   int64    `json:"reblog_of_id"`
	Language   string   `json:"language"`
	HasMedia   bool     `json:"has_media"`
	HasPoll    bool     `json:"has_poll"`
	Tags       []string `json:"tags"`
}

// PublishStatus 发布状态并登记扇出
// @Summary 发布状态
// @Tags 状态
// @Accept json
// @Produce json
// @Param request body publishRequest true "状态内容"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Router /api/v1/statuses [post]
func (h *Handler) PublishStatus(c *gin.Context) {
	var req publishRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	status := &model.Status{
		ID:            req.ID,
		AccountID:     req.AccountID,
		Visibility:    model.Visibility(req.Visibility),
		GroupID:       req.GroupID,
		InReplyToID:   req.InReplyTo,
		ReblogOfID:    req.ReblogOf,
		Language:      req.Language,
		HasMedia:      req.HasMedia,
		HasPoll:       req.HasPoll,
		ApprovalState: model.ApprovalApproved,
	}
	if req.GroupID != 0 {
		status.ApprovalState = model.ApprovalPending
	}
	if err := h.publisher.Publish(c.Request.Context(), status, req.Tags); err != nil {
		response.InternalError(c, err)
		return
	}
	// 公开状态的标签参与 trending 统计
	if status.Visibility == model.VisibilityPublic {
		for _, name := range req.Tags {
			h.recorder.Use(name, status.AccountID, time.Now())
		}
	}
	response.Success(c, gin.H{"id": status.ID})
}

// DeleteStatus 删除状态并清理时间线残留
// @Summary 删除状态
// @Tags 状态
// @Param id path int true "状态ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /api/v1/statuses/{id} [delete]
func (h *Handler) DeleteStatus(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.BadRequest(c, "invalid status id")
		return
	}
	rows, err := h.statuses.GetByIDs(c.Request.Context(), []int64{id})
	if err != nil {
		response.InternalError(c, err)
		return
	}
	if len(rows) == 0 {
		response.NotFound(c, "status not found")
		return
	}
	if err := h.fanout.RemoveFromTimelines(c.Request.Context(), rows[0]); err != nil {
		response.InternalError(c, err)
		return
	}
	if err := h.statuses.Delete(c.Request.Context(), []int64{id}); err != nil {
		response.InternalError(c, err)
		return
	}
	response.Success(c, nil)
}

type statusActionRequest struct {
	Action string `json:"action" binding:"required,oneof=unfav unbookmark unpin"`
}

// StatusAction 记录会影响清理豁免的用户动作
// @Summary 取消收藏/书签/置顶
// @Tags 状态
// @Accept json
// @Param id path int true "状态ID"
// @Param request body statusActionRequest true "动作"
// @Success 200 {object} response.Response
// @Router /api/v1/statuses/{id}/action [post]
func (h *Handler) StatusAction(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.BadRequest(c, "invalid status id")
		return
	}
	var req statusActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	rows, err := h.statuses.GetByIDs(c.Request.Context(), []int64{id})
	if err != nil {
		response.InternalError(c, err)
		return
	}
	if len(rows) == 0 {
		response.NotFound(c, "status not found")
		return
	}
	if err := h.retention.InvalidateLastInspected(c.Request.Context(), rows[0], retention.Action(req.Action)); err != nil {
		response.InternalError(c, err)
		return
	}
	response.Success(c, nil)
}

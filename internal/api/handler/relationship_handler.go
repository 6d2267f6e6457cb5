package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/timeline-engine/pkg/response"
)

type relationRequest struct {
	AccountID int64 `json:"account_id" binding:"required"`
	TargetID  int64 `json:"target_id" binding:"required"`
}

// Follow 建立关注
// @Summary 关注账号
// @Tags 关系链
// @Accept json
// @Produce json
// @Param request body relationRequest true "关注信息"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Router /api/v1/relations/follow [post]
func (h *Handler) Follow(c *gin.Context) {
	var req relationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	if err := h.rels.Follow(c.Request.Context(), req.AccountID, req.TargetID); err != nil {
		response.InternalError(c, err)
		return
	}
	response.Success(c, nil)
}

// Block 拉黑账号
// @Summary 拉黑账号
// @Tags 关系链
// @Accept json
// @Param request body relationRequest true "拉黑信息"
// @Success 200 {object} response.Response
// @Router /api/v1/relations/block [post]
func (h *Handler) Block(c *gin.Context) {
	var req relationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	if err := h.rels.Block(c.Request.Context(), req.AccountID, req.TargetID); err != nil {
		response.InternalError(c, err)
		return
	}
	response.Success(c, nil)
}

// Mute 静音账号
// @Summary 静音账号
// @Tags 关系链
// @Accept json
// @Param request body relationRequest true "静音信息"
// @Success 200 {object} response.Response
// @Router /api/v1/relations/mute [post]
func (h *Handler) Mute(c *gin.Context) {
	var req relationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	if err := h.rels.Mute(c.Request.Context(), req.AccountID, req.TargetID); err != nil {
		response.InternalError(c, err)
		return
	}
	response.Success(c, nil)
}

type domainBlockRequest struct {
	AccountID int64  `json:"account_id" binding:"required"`
	Domain    string `json:"domain" binding:"required,fqdn"`
}

// BlockDomain 屏蔽整个域名
// @Summary 屏蔽域名
// @Tags 关系链
// @Accept json
// @Param request body domainBlockRequest true "域名屏蔽信息"
// @Success 200 {object} response.Response
// @Router /api/v1/relations/block-domain [post]
func (h *Handler) BlockDomain(c *gin.Context) {
	var req domainBlockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	if err := h.rels.BlockDomain(c.Request.Context(), req.AccountID, req.Domain); err != nil {
		response.InternalError(c, err)
		return
	}
	response.Success(c, nil)
}

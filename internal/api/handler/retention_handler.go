package handler

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/timeline-engine/internal/model"
	"github.com/d60-Lab/timeline-engine/pkg/response"
)

type retentionRequest struct {
	MinStatusAgeDays int  `json:"min_status_age_days" binding:"required,min=1"`
	KeepDirect       bool `json:"keep_direct"`
	KeepPinned       bool `json:"keep_pinned"`
	KeepPolls        bool `json:"keep_polls"`
	KeepMedia        bool `json:"keep_media"`
	KeepSelfFav      bool `json:"keep_self_fav"`
	KeepSelfBookmark bool `json:"keep_self_bookmark"`
	MinFavs          int  `json:"min_favs" binding:"min=0"`
	MinReblogs       int  `json:"min_reblogs" binding:"min=0"`
}

// PutRetentionPolicy 设置账号的清理策略；放宽策略会触发全量重扫
// @Summary 设置清理策略
// @Tags 清理
// @Accept json
// @Param account_id path int true "账号ID"
// @Param request body retentionRequest true "策略"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Router /api/v1/retention/{account_id} [put]
func (h *Handler) PutRetentionPolicy(c *gin.Context) {
	accountID, err := strconv.ParseInt(c.Param("account_id"), 10, 64)
	if err != nil || accountID <= 0 {
		response.BadRequest(c, "invalid account_id")
		return
	}
	var req retentionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	policy := &model.RetentionPolicy{
		AccountID:        accountID,
		MinStatusAge:     time.Duration(req.MinStatusAgeDays) * 24 * time.Hour,
		KeepDirect:       req.KeepDirect,
		KeepPinned:       req.KeepPinned,
		KeepPolls:        req.KeepPolls,
		KeepMedia:        req.KeepMedia,
		KeepSelfFav:      req.KeepSelfFav,
		KeepSelfBookmark: req.KeepSelfBookmark,
		MinFavs:          int64(req.MinFavs),
		MinReblogs:       int64(req.MinReblogs),
	}
	if err := h.retention.ApplyPolicyChange(c.Request.Context(), policy); err != nil {
		response.InternalError(c, err)
		return
	}
	response.Success(c, nil)
}

// GetRetentionPolicy 查询账号的清理策略
// @Summary 查询清理策略
// @Tags 清理
// @Param account_id path int true "账号ID"
// @Success 200 {object} response.Response{data=model.RetentionPolicy}
// @Failure 404 {object} response.Response
// @Router /api/v1/retention/{account_id} [get]
func (h *Handler) GetRetentionPolicy(c *gin.Context) {
	accountID, err := strconv.ParseInt(c.Param("account_id"), 10, 64)
	if err != nil || accountID <= 0 {
		response.BadRequest(c, "invalid account_id")
		return
	}
	policy, err := h.retention.Policy(c.Request.Context(), accountID)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	if policy == nil {
		response.NotFound(c, "no retention policy")
		return
	}
	response.Success(c, policy)
}

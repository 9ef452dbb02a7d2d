package controller

import (
	"quiz_bank_backend/internal/service"
	"quiz_bank_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type PreferenceController struct {
	Service *service.PreferenceService
}

func NewPreferenceController(s *service.PreferenceService) *PreferenceController {
	return &PreferenceController{Service: s}
}

// @Summary 偏好设置
// @Tags 偏好设置
// @Produce json
// @Security BearerAuth
// @Success 200 {object} util.Response{data=service.Preferences}
// @Router /api/preferences [get]
func (c *PreferenceController) Get(ctx *gin.Context) {
	util.Success(ctx, c.Service.Get())
}

// @Summary 修改偏好设置
// @Description 只修改请求中出现的键，未知键或类型不符返回 400
// @Tags 偏好设置
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body map[string]interface{} true "要修改的键值"
// @Success 200 {object} util.Response{data=service.Preferences}
// @Router /api/preferences [patch]
func (c *PreferenceController) Update(ctx *gin.Context) {
	var patch map[string]interface{}
	if err := ctx.ShouldBindJSON(&patch); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	prefs, err := c.Service.Update(ctx.Request.Context(), patch)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, prefs)
}

package controller

import (
	"quiz_bank_backend/internal/service"
	"quiz_bank_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type AuthController struct {
	AuthService *service.AuthService
}

func NewAuthController(authService *service.AuthService) *AuthController {
	return &AuthController{AuthService: authService}
}

type TokenRequest struct {
	DeviceID  string `json:"deviceId"`
	DeviceKey string `json:"deviceKey" binding:"required"`
}

// @Summary 设备密钥换取令牌
// @Tags 认证
// @Accept json
// @Produce json
// @Param body body TokenRequest true "设备密钥"
// @Success 200 {object} util.Response
// @Failure 401 {object} util.Response
// @Router /api/auth/token [post]
func (c *AuthController) IssueToken(ctx *gin.Context) {
	var req TokenRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	token, err := c.AuthService.IssueToken(req.DeviceID, req.DeviceKey)
	if err != nil {
		respondError(ctx, err)
		return
	}

	util.Success(ctx, gin.H{"token": token})
}

package controller

import (
	"quiz_bank_backend/internal/service"
	"quiz_bank_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type ExplanationController struct {
	Service *service.ExplanationService
}

func NewExplanationController(s *service.ExplanationService) *ExplanationController {
	return &ExplanationController{Service: s}
}

type AskRequest struct {
	Provider string `json:"provider" binding:"required"`
	Prompt   string `json:"prompt" binding:"required"`
}

// @Summary 可用的 AI 服务商
// @Tags AI 解析
// @Produce json
// @Security BearerAuth
// @Success 200 {object} util.Response{data=[]string}
// @Router /api/ai/providers [get]
func (c *ExplanationController) Providers(ctx *gin.Context) {
	util.Success(ctx, c.Service.Providers())
}

// @Summary 获取题目 AI 解析
// @Description 依次查缓存、数据库、服务商；网络失败时返回占位文本，failed 为 true
// @Tags AI 解析
// @Produce json
// @Security BearerAuth
// @Param questionId path int true "题目ID"
// @Param provider query string true "deepseek、spark 或 baidu"
// @Param force query bool false "忽略缓存重新生成"
// @Success 200 {object} util.Response{data=service.ExplanationResult}
// @Router /api/questions/{questionId}/explanation [get]
func (c *ExplanationController) Explain(ctx *gin.Context) {
	qid, ok := questionIDParam(ctx)
	if !ok {
		return
	}
	force := false
	if v := util.QueryBool(ctx, "force"); v != nil {
		force = *v
	}
	res, err := c.Service.Explain(ctx.Request.Context(), qid, ctx.Query("provider"), force)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, res)
}

// @Summary 追问 AI
// @Tags AI 解析
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param questionId path int true "题目ID"
// @Param request body AskRequest true "追问内容"
// @Success 200 {object} util.Response{data=service.ExplanationResult}
// @Router /api/questions/{questionId}/ask [post]
func (c *ExplanationController) Ask(ctx *gin.Context) {
	qid, ok := questionIDParam(ctx)
	if !ok {
		return
	}
	var req AskRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	res, err := c.Service.Ask(ctx.Request.Context(), qid, req.Provider, req.Prompt)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, res)
}

// @Summary 已保存的解析
// @Tags AI 解析
// @Produce json
// @Security BearerAuth
// @Param questionId path int true "题目ID"
// @Success 200 {object} util.Response{data=[]model.QuestionAnalysis}
// @Router /api/questions/{questionId}/analyses [get]
func (c *ExplanationController) List(ctx *gin.Context) {
	qid, ok := questionIDParam(ctx)
	if !ok {
		return
	}
	list, err := c.Service.List(ctx.Request.Context(), qid)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, list)
}

package controller

import (
	"quiz_bank_backend/internal/model"
	"quiz_bank_backend/internal/service"
	"quiz_bank_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type QuestionController struct {
	Service *service.QuestionService
}

func NewQuestionController(svc *service.QuestionService) *QuestionController {
	return &QuestionController{Service: svc}
}

// @Summary 题目列表
// @Tags 题目
// @Produce json
// @Security BearerAuth
// @Param fileName query string false "来源文件"
// @Param type query string false "题型 single/multiple/judge"
// @Param favorite query bool false "只看收藏"
// @Param wrong query bool false "只看错题"
// @Param keyword query string false "关键字"
// @Param page query int false "页码"
// @Param limit query int false "每页数量"
// @Success 200 {object} util.Response{data=util.PageResponse}
// @Router /api/questions [get]
func (c *QuestionController) List(ctx *gin.Context) {
	page, limit := util.Pagination(ctx)
	filter := model.QuestionFilter{
		FileName: ctx.Query("fileName"),
		Type:     model.QuestionType(ctx.Query("type")),
		Favorite: util.QueryBool(ctx, "favorite"),
		Wrong:    util.QueryBool(ctx, "wrong"),
		Keyword:  ctx.Query("keyword"),
	}

	questions, total, err := c.Service.List(ctx.Request.Context(), filter, page, limit)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, util.NewPage(questions, total, page, limit))
}

// @Summary 题目详情
// @Tags 题目
// @Produce json
// @Security BearerAuth
// @Param questionId path int true "题目ID"
// @Success 200 {object} util.Response{data=model.Question}
// @Router /api/questions/{questionId} [get]
func (c *QuestionController) Get(ctx *gin.Context) {
	id, ok := util.ParamUint(ctx, "questionId")
	if !ok {
		util.BadRequest(ctx, "invalid id")
		return
	}
	q, err := c.Service.Get(ctx.Request.Context(), id)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, q)
}

// @Summary 编辑题目
// @Tags 题目
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param questionId path int true "题目ID"
// @Param body body service.QuestionUpdate true "需要修改的字段"
// @Success 200 {object} util.Response{data=model.Question}
// @Router /api/questions/{questionId} [put]
func (c *QuestionController) Update(ctx *gin.Context) {
	id, ok := util.ParamUint(ctx, "questionId")
	if !ok {
		util.BadRequest(ctx, "invalid id")
		return
	}
	var req service.QuestionUpdate
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	q, err := c.Service.Update(ctx.Request.Context(), id, req)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, q)
}

// @Summary 删除题目
// @Tags 题目
// @Security BearerAuth
// @Param questionId path int true "题目ID"
// @Success 200 {object} util.Response
// @Router /api/questions/{questionId} [delete]
func (c *QuestionController) Delete(ctx *gin.Context) {
	id, ok := util.ParamUint(ctx, "questionId")
	if !ok {
		util.BadRequest(ctx, "invalid id")
		return
	}
	if err := c.Service.Delete(ctx.Request.Context(), id); err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}

// @Summary 题库文件列表
// @Tags 题库
// @Produce json
// @Security BearerAuth
// @Success 200 {object} util.Response{data=[]model.SourceFile}
// @Router /api/sources [get]
func (c *QuestionController) ListSources(ctx *gin.Context) {
	sources, err := c.Service.ListSources(ctx.Request.Context())
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, sources)
}

// @Summary 删除题库文件
// @Description 删除该文件的全部题目以及错题、收藏、笔记、解析和进度
// @Tags 题库
// @Security BearerAuth
// @Param fileName path string true "来源文件名"
// @Success 200 {object} util.Response
// @Router /api/sources/{fileName} [delete]
func (c *QuestionController) DeleteSource(ctx *gin.Context) {
	n, err := c.Service.DeleteSource(ctx.Request.Context(), ctx.Param("fileName"))
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"deleted": n})
}

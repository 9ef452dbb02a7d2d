package controller

import (
	"quiz_bank_backend/internal/model"
	"quiz_bank_backend/internal/service"
	"quiz_bank_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type SessionController struct {
	Sessions *service.SessionService
	Progress *service.ProgressService
}

func NewSessionController(sessions *service.SessionService, progress *service.ProgressService) *SessionController {
	return &SessionController{Sessions: sessions, Progress: progress}
}

type AnswerRequest struct {
	QuestionID uint  `json:"questionId" binding:"required"`
	Selected   []int `json:"selected"`
}

type MoveRequest struct {
	Index *int `json:"index" binding:"required"`
}

type NoteRequest struct {
	Note string `json:"note"`
}

type AnalysisRequest struct {
	Analysis string `json:"analysis"`
}

// @Summary 开始练习或考试
// @Description 未提交的同名会话直接恢复；restart=true 时重新出题
// @Tags 练习与考试
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body service.StartRequest true "会话参数"
// @Success 200 {object} util.Response{data=service.SessionView}
// @Router /api/sessions [post]
func (c *SessionController) Start(ctx *gin.Context) {
	var req service.StartRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	view, err := c.Sessions.Start(ctx.Request.Context(), req)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, view)
}

// @Summary 会话题目
// @Description 考试未提交时不返回答案和解析
// @Tags 练习与考试
// @Produce json
// @Security BearerAuth
// @Param key path string true "会话键"
// @Success 200 {object} util.Response{data=[]service.SessionQuestion}
// @Router /api/sessions/{key}/questions [get]
func (c *SessionController) Questions(ctx *gin.Context) {
	list, err := c.Sessions.Questions(ctx.Request.Context(), ctx.Param("key"))
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, list)
}

// @Summary 作答
// @Tags 练习与考试
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param key path string true "会话键"
// @Param request body AnswerRequest true "所选选项下标"
// @Success 200 {object} util.Response{data=service.AnswerResult}
// @Router /api/sessions/{key}/answers [post]
func (c *SessionController) Answer(ctx *gin.Context) {
	var req AnswerRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	res, err := c.Sessions.Answer(ctx.Request.Context(), ctx.Param("key"), req.QuestionID, req.Selected)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, res)
}

// @Summary 交卷
// @Description 计分、写入历史、更新错题本
// @Tags 练习与考试
// @Produce json
// @Security BearerAuth
// @Param key path string true "会话键"
// @Success 200 {object} util.Response{data=service.SubmitResult}
// @Router /api/sessions/{key}/submit [post]
func (c *SessionController) Submit(ctx *gin.Context) {
	res, err := c.Sessions.Submit(ctx.Request.Context(), ctx.Param("key"))
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, res)
}

// @Summary 进度列表
// @Tags 进度
// @Produce json
// @Security BearerAuth
// @Success 200 {object} util.Response{data=[]model.Progress}
// @Router /api/progress [get]
func (c *SessionController) ListProgress(ctx *gin.Context) {
	list, err := c.Progress.List(ctx.Request.Context())
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, list)
}

// @Summary 读取进度
// @Tags 进度
// @Produce json
// @Security BearerAuth
// @Param key path string true "会话键"
// @Success 200 {object} util.Response{data=model.Progress}
// @Router /api/progress/{key} [get]
func (c *SessionController) GetProgress(ctx *gin.Context) {
	p, err := c.Progress.Get(ctx.Request.Context(), ctx.Param("key"))
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, p)
}

// @Summary 保存进度
// @Description 与已保存内容相同时 saved 为 false，且不通知观察者
// @Tags 进度
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param key path string true "会话键"
// @Param request body model.Progress true "进度快照"
// @Success 200 {object} util.Response
// @Router /api/progress/{key} [put]
func (c *SessionController) SaveProgress(ctx *gin.Context) {
	var p model.Progress
	if err := ctx.ShouldBindJSON(&p); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	p.SessionKey = ctx.Param("key")
	if p.Mode == "" {
		p.Mode = model.ModePractice
	}
	saved, err := c.Progress.Save(ctx.Request.Context(), &p)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"saved": saved, "progress": p})
}

// @Summary 清除进度
// @Tags 进度
// @Security BearerAuth
// @Param key path string true "会话键"
// @Success 200 {object} util.Response
// @Router /api/progress/{key} [delete]
func (c *SessionController) ClearProgress(ctx *gin.Context) {
	if err := c.Progress.Clear(ctx.Request.Context(), ctx.Param("key")); err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}

// @Summary 跳转题目
// @Tags 进度
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param key path string true "会话键"
// @Param request body MoveRequest true "题目下标"
// @Success 200 {object} util.Response{data=model.Progress}
// @Router /api/progress/{key}/position [put]
func (c *SessionController) Move(ctx *gin.Context) {
	var req MoveRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	p, err := c.Progress.MoveTo(ctx.Request.Context(), ctx.Param("key"), *req.Index)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, p)
}

// @Summary 保存会话内的题目笔记
// @Tags 进度
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param key path string true "会话键"
// @Param questionId path int true "题目ID"
// @Param request body NoteRequest true "笔记"
// @Success 200 {object} util.Response{data=model.Progress}
// @Router /api/progress/{key}/questions/{questionId}/note [put]
func (c *SessionController) SetNote(ctx *gin.Context) {
	qid, ok := util.ParamUint(ctx, "questionId")
	if !ok {
		util.BadRequest(ctx, "invalid question id")
		return
	}
	var req NoteRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	p, err := c.Progress.SetNote(ctx.Request.Context(), ctx.Param("key"), qid, req.Note)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, p)
}

// @Summary 保存会话内的题目解析
// @Tags 进度
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param key path string true "会话键"
// @Param questionId path int true "题目ID"
// @Param request body AnalysisRequest true "解析"
// @Success 200 {object} util.Response{data=model.Progress}
// @Router /api/progress/{key}/questions/{questionId}/analysis [put]
func (c *SessionController) SetAnalysis(ctx *gin.Context) {
	qid, ok := util.ParamUint(ctx, "questionId")
	if !ok {
		util.BadRequest(ctx, "invalid question id")
		return
	}
	var req AnalysisRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	p, err := c.Progress.SetAnalysis(ctx.Request.Context(), ctx.Param("key"), qid, req.Analysis)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, p)
}

// @Summary 订阅进度变化 (WebSocket)
// @Description 连接后先推送当前进度，之后每次保存推送最新值
// @Tags 进度
// @Security BearerAuth
// @Param key path string true "会话键"
// @Param token query string false "JWT，浏览器无法设置请求头时使用"
// @Router /api/progress/{key}/watch [get]
func (c *SessionController) Watch(ctx *gin.Context) {
	service.ServeProgressWs(ctx.Request.Context(), c.Progress, ctx.Writer, ctx.Request, ctx.Param("key"))
}

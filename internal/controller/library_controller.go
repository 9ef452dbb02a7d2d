package controller

import (
	"quiz_bank_backend/internal/service"
	"quiz_bank_backend/internal/util"

	"github.com/gin-gonic/gin"
)

// LibraryController 错题本、收藏、历史、笔记与文件夹
type LibraryController struct {
	Service *service.LibraryService
}

func NewLibraryController(s *service.LibraryService) *LibraryController {
	return &LibraryController{Service: s}
}

type NoteContentRequest struct {
	Content string `json:"content"`
}

type FolderRequest struct {
	Name string `json:"name" binding:"required"`
}

type AssignRequest struct {
	FileName string `json:"fileName" binding:"required"`
}

func questionIDParam(ctx *gin.Context) (uint, bool) {
	id, ok := util.ParamUint(ctx, "questionId")
	if !ok {
		util.BadRequest(ctx, "invalid question id")
	}
	return id, ok
}

// @Summary 错题本
// @Tags 错题本
// @Produce json
// @Security BearerAuth
// @Param fileName query string false "按文件过滤"
// @Success 200 {object} util.Response{data=[]model.WrongAnswer}
// @Router /api/wrong-answers [get]
func (c *LibraryController) ListWrong(ctx *gin.Context) {
	list, err := c.Service.ListWrong(ctx.Request.Context(), ctx.Query("fileName"))
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, list)
}

// @Summary 移出错题本
// @Tags 错题本
// @Security BearerAuth
// @Param questionId path int true "题目ID"
// @Success 200 {object} util.Response
// @Router /api/wrong-answers/{questionId} [delete]
func (c *LibraryController) RemoveWrong(ctx *gin.Context) {
	qid, ok := questionIDParam(ctx)
	if !ok {
		return
	}
	if err := c.Service.RemoveWrong(ctx.Request.Context(), qid); err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}

// @Summary 清空错题本
// @Tags 错题本
// @Security BearerAuth
// @Param fileName query string false "只清空某个文件的错题"
// @Success 200 {object} util.Response
// @Router /api/wrong-answers [delete]
func (c *LibraryController) ClearWrong(ctx *gin.Context) {
	n, err := c.Service.ClearWrong(ctx.Request.Context(), ctx.Query("fileName"))
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"deleted": n})
}

// @Summary 收藏列表
// @Tags 收藏
// @Produce json
// @Security BearerAuth
// @Param fileName query string false "按文件过滤"
// @Success 200 {object} util.Response{data=[]model.Favorite}
// @Router /api/favorites [get]
func (c *LibraryController) ListFavorites(ctx *gin.Context) {
	list, err := c.Service.ListFavorites(ctx.Request.Context(), ctx.Query("fileName"))
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, list)
}

// @Summary 收藏题目
// @Tags 收藏
// @Security BearerAuth
// @Param questionId path int true "题目ID"
// @Success 201 {object} util.Response
// @Router /api/favorites/{questionId} [put]
func (c *LibraryController) AddFavorite(ctx *gin.Context) {
	qid, ok := questionIDParam(ctx)
	if !ok {
		return
	}
	if err := c.Service.AddFavorite(ctx.Request.Context(), qid); err != nil {
		respondError(ctx, err)
		return
	}
	util.Created(ctx, gin.H{"favorited": true})
}

// @Summary 取消收藏
// @Tags 收藏
// @Security BearerAuth
// @Param questionId path int true "题目ID"
// @Success 200 {object} util.Response
// @Router /api/favorites/{questionId} [delete]
func (c *LibraryController) RemoveFavorite(ctx *gin.Context) {
	qid, ok := questionIDParam(ctx)
	if !ok {
		return
	}
	if err := c.Service.RemoveFavorite(ctx.Request.Context(), qid); err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"favorited": false})
}

// @Summary 切换收藏状态
// @Tags 收藏
// @Security BearerAuth
// @Param questionId path int true "题目ID"
// @Success 200 {object} util.Response
// @Router /api/favorites/{questionId}/toggle [post]
func (c *LibraryController) ToggleFavorite(ctx *gin.Context) {
	qid, ok := questionIDParam(ctx)
	if !ok {
		return
	}
	fav, err := c.Service.ToggleFavorite(ctx.Request.Context(), qid)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"favorited": fav})
}

func historyKind(ctx *gin.Context) (exam bool, ok bool) {
	switch ctx.Param("kind") {
	case "practice":
		return false, true
	case "exam":
		return true, true
	}
	util.BadRequest(ctx, "history kind must be practice or exam")
	return false, false
}

// @Summary 历史记录
// @Tags 历史记录
// @Produce json
// @Security BearerAuth
// @Param kind path string true "practice 或 exam"
// @Param fileName query string false "按文件过滤"
// @Param page query int false "页码"
// @Param limit query int false "每页数量"
// @Success 200 {object} util.Response{data=util.PageResponse}
// @Router /api/history/{kind} [get]
func (c *LibraryController) ListHistory(ctx *gin.Context) {
	exam, ok := historyKind(ctx)
	if !ok {
		return
	}
	page, limit := util.Pagination(ctx)
	fileName := ctx.Query("fileName")

	var (
		list  interface{}
		total int64
		err   error
	)
	if exam {
		list, total, err = c.Service.ListExamHistory(ctx.Request.Context(), fileName, page, limit)
	} else {
		list, total, err = c.Service.ListPracticeHistory(ctx.Request.Context(), fileName, page, limit)
	}
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, util.NewPage(list, total, page, limit))
}

// @Summary 删除一条历史记录
// @Tags 历史记录
// @Security BearerAuth
// @Param kind path string true "practice 或 exam"
// @Param id path int true "记录ID"
// @Success 200 {object} util.Response
// @Router /api/history/{kind}/{id} [delete]
func (c *LibraryController) DeleteHistory(ctx *gin.Context) {
	exam, ok := historyKind(ctx)
	if !ok {
		return
	}
	id, ok := util.ParamUint(ctx, "id")
	if !ok {
		util.BadRequest(ctx, "invalid id")
		return
	}
	if err := c.Service.DeleteHistory(ctx.Request.Context(), exam, id); err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}

// @Summary 清空历史记录
// @Tags 历史记录
// @Security BearerAuth
// @Param kind path string true "practice 或 exam"
// @Success 200 {object} util.Response
// @Router /api/history/{kind} [delete]
func (c *LibraryController) ClearHistory(ctx *gin.Context) {
	exam, ok := historyKind(ctx)
	if !ok {
		return
	}
	if err := c.Service.ClearHistory(ctx.Request.Context(), exam); err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}

// @Summary 读取题目笔记
// @Tags 笔记
// @Produce json
// @Security BearerAuth
// @Param questionId path int true "题目ID"
// @Success 200 {object} util.Response{data=model.QuestionNote}
// @Router /api/questions/{questionId}/note [get]
func (c *LibraryController) GetNote(ctx *gin.Context) {
	qid, ok := questionIDParam(ctx)
	if !ok {
		return
	}
	note, err := c.Service.GetNote(ctx.Request.Context(), qid)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, note)
}

// @Summary 保存题目笔记
// @Description 内容为空时删除笔记
// @Tags 笔记
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param questionId path int true "题目ID"
// @Param request body NoteContentRequest true "笔记内容"
// @Success 200 {object} util.Response{data=model.QuestionNote}
// @Router /api/questions/{questionId}/note [put]
func (c *LibraryController) SaveNote(ctx *gin.Context) {
	qid, ok := questionIDParam(ctx)
	if !ok {
		return
	}
	var req NoteContentRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	note, err := c.Service.SaveNote(ctx.Request.Context(), qid, req.Content)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, note)
}

// @Summary 删除题目笔记
// @Tags 笔记
// @Security BearerAuth
// @Param questionId path int true "题目ID"
// @Success 200 {object} util.Response
// @Router /api/questions/{questionId}/note [delete]
func (c *LibraryController) DeleteNote(ctx *gin.Context) {
	qid, ok := questionIDParam(ctx)
	if !ok {
		return
	}
	if err := c.Service.DeleteNote(ctx.Request.Context(), qid); err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}

// @Summary 文件夹列表
// @Tags 文件夹
// @Produce json
// @Security BearerAuth
// @Success 200 {object} util.Response{data=[]model.Folder}
// @Router /api/folders [get]
func (c *LibraryController) ListFolders(ctx *gin.Context) {
	list, err := c.Service.ListFolders(ctx.Request.Context())
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, list)
}

// @Summary 新建文件夹
// @Tags 文件夹
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body FolderRequest true "文件夹名"
// @Success 201 {object} util.Response{data=model.Folder}
// @Router /api/folders [post]
func (c *LibraryController) CreateFolder(ctx *gin.Context) {
	var req FolderRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	folder, err := c.Service.CreateFolder(ctx.Request.Context(), req.Name)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Created(ctx, folder)
}

// @Summary 重命名文件夹
// @Tags 文件夹
// @Accept json
// @Security BearerAuth
// @Param id path int true "文件夹ID"
// @Param request body FolderRequest true "新名称"
// @Success 200 {object} util.Response
// @Router /api/folders/{id} [put]
func (c *LibraryController) RenameFolder(ctx *gin.Context) {
	id, ok := util.ParamUint(ctx, "id")
	if !ok {
		util.BadRequest(ctx, "invalid folder id")
		return
	}
	var req FolderRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	if err := c.Service.RenameFolder(ctx.Request.Context(), id, req.Name); err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}

// @Summary 删除文件夹
// @Description 文件夹内的文件回到未分类，题目不受影响
// @Tags 文件夹
// @Security BearerAuth
// @Param id path int true "文件夹ID"
// @Success 200 {object} util.Response
// @Router /api/folders/{id} [delete]
func (c *LibraryController) DeleteFolder(ctx *gin.Context) {
	id, ok := util.ParamUint(ctx, "id")
	if !ok {
		util.BadRequest(ctx, "invalid folder id")
		return
	}
	if err := c.Service.DeleteFolder(ctx.Request.Context(), id); err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}

// @Summary 把题库文件放入文件夹
// @Tags 文件夹
// @Accept json
// @Security BearerAuth
// @Param id path int true "文件夹ID"
// @Param request body AssignRequest true "文件名"
// @Success 200 {object} util.Response
// @Router /api/folders/{id}/files [post]
func (c *LibraryController) AssignFile(ctx *gin.Context) {
	id, ok := util.ParamUint(ctx, "id")
	if !ok {
		util.BadRequest(ctx, "invalid folder id")
		return
	}
	var req AssignRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	if err := c.Service.AssignFile(ctx.Request.Context(), req.FileName, id); err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}

// @Summary 把题库文件移出文件夹
// @Tags 文件夹
// @Security BearerAuth
// @Param fileName path string true "文件名"
// @Success 200 {object} util.Response
// @Router /api/folders/files/{fileName} [delete]
func (c *LibraryController) UnassignFile(ctx *gin.Context) {
	if err := c.Service.UnassignFile(ctx.Request.Context(), ctx.Param("fileName")); err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}

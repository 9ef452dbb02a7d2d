package controller

import (
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"quiz_bank_backend/internal/config"
	"quiz_bank_backend/internal/service"
	"quiz_bank_backend/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cast"
)

type ImportController struct {
	Imports *service.ImportService
	Exports *service.ExportService
	Cfg     *config.ImportConfig
}

func NewImportController(imports *service.ImportService, exports *service.ExportService, cfg *config.ImportConfig) *ImportController {
	return &ImportController{Imports: imports, Exports: exports, Cfg: cfg}
}

func (c *ImportController) maxBytes() int64 {
	return int64(c.Cfg.MaxFileSizeMB) << 20
}

// readUploads 读取 multipart 中的 files 字段并校验
func (c *ImportController) readUploads(ctx *gin.Context) ([]service.ImportFile, service.ImportOptions, error) {
	var opts service.ImportOptions
	form, err := ctx.MultipartForm()
	if err != nil {
		return nil, opts, err
	}
	headers := form.File["files"]
	if len(headers) == 0 {
		return nil, opts, fmt.Errorf("no files uploaded")
	}
	if raw := ctx.PostForm("folderId"); raw != "" {
		id, err := cast.ToUintE(raw)
		if err != nil || id == 0 {
			return nil, opts, fmt.Errorf("invalid folderId %q", raw)
		}
		opts.FolderID = &id
	}

	files := make([]service.ImportFile, 0, len(headers))
	for _, fh := range headers {
		data, err := c.readUpload(fh)
		if err == nil {
			err = util.ValidateImportFile(fh.Filename, data, c.Cfg.AllowedExts, c.maxBytes())
		}
		if err != nil {
			// 单个文件不合格不影响同批其他文件
			files = append(files, service.ImportFile{Name: fh.Filename, Rejected: err})
			continue
		}
		files = append(files, service.ImportFile{Name: fh.Filename, Data: data})
	}
	return files, opts, nil
}

func (c *ImportController) readUpload(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(io.LimitReader(f, c.maxBytes()+1))
}

// @Summary 导入题库文件
// @Description 支持 Excel、Word(docx)、文本；同名文件跳过并以 409 返回，解析失败的文件以 422 汇总返回
// @Tags 导入导出
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param files formData file true "题库文件，可多个"
// @Param folderId formData int false "导入到文件夹"
// @Success 201 {object} util.Response{data=service.ImportResult}
// @Failure 409 {object} util.Response
// @Failure 422 {object} util.Response
// @Router /api/imports [post]
func (c *ImportController) Import(ctx *gin.Context) {
	files, opts, err := c.readUploads(ctx)
	if err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	result, err := c.Imports.Import(ctx.Request.Context(), files, opts)
	if err != nil {
		respondImportError(ctx, result, err)
		return
	}
	util.Created(ctx, result)
}

// respondImportError 部分成功时仍返回结果
func respondImportError(ctx *gin.Context, result *service.ImportResult, err error) {
	switch err.(type) {
	case *service.DuplicateFilesError:
		util.Conflict(ctx, err.Error(), result)
	case *service.ImportFailuresError:
		util.UnprocessableEntity(ctx, err.Error(), result)
	default:
		respondError(ctx, err)
	}
}

// @Summary 后台导入
// @Tags 导入导出
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param files formData file true "题库文件，可多个"
// @Param folderId formData int false "导入到文件夹"
// @Success 202 {object} util.Response
// @Router /api/imports/jobs [post]
func (c *ImportController) StartJob(ctx *gin.Context) {
	files, opts, err := c.readUploads(ctx)
	if err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	id := c.Imports.StartJob(files, opts)
	util.Accepted(ctx, gin.H{"jobId": id})
}

// @Summary 查询导入任务
// @Tags 导入导出
// @Produce json
// @Security BearerAuth
// @Param id path string true "任务ID"
// @Success 200 {object} util.Response{data=service.ImportJob}
// @Router /api/imports/jobs/{id} [get]
func (c *ImportController) GetJob(ctx *gin.Context) {
	job, err := c.Imports.Job(ctx.Param("id"))
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, job)
}

// @Summary 取消导入任务
// @Description 已经导入的文件保留，剩余文件不再处理
// @Tags 导入导出
// @Security BearerAuth
// @Param id path string true "任务ID"
// @Success 200 {object} util.Response
// @Router /api/imports/jobs/{id} [delete]
func (c *ImportController) CancelJob(ctx *gin.Context) {
	if err := c.Imports.CancelJob(ctx.Param("id")); err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}

// @Summary 从备份恢复
// @Description 接受导出的 JSON（请求体或 multipart 的 file 字段）
// @Tags 导入导出
// @Accept json
// @Produce json
// @Security BearerAuth
// @Success 201 {object} util.Response{data=service.ImportResult}
// @Router /api/backups/import [post]
func (c *ImportController) ImportBackup(ctx *gin.Context) {
	var (
		data []byte
		err  error
	)
	if strings.HasPrefix(ctx.ContentType(), "multipart/") {
		fh, ferr := ctx.FormFile("file")
		if ferr != nil {
			util.BadRequest(ctx, ferr.Error())
			return
		}
		f, ferr := fh.Open()
		if ferr != nil {
			util.BadRequest(ctx, ferr.Error())
			return
		}
		defer f.Close()
		data, err = io.ReadAll(io.LimitReader(f, c.maxBytes()+1))
	} else {
		data, err = io.ReadAll(io.LimitReader(ctx.Request.Body, c.maxBytes()+1))
	}
	if err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	if int64(len(data)) > c.maxBytes() {
		util.BadRequest(ctx, "backup file too large")
		return
	}

	env, err := service.DecodeEnvelope(data)
	if err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	result, err := c.Imports.ImportEnvelope(ctx.Request.Context(), env)
	if err != nil {
		respondImportError(ctx, result, err)
		return
	}
	util.Created(ctx, result)
}

// @Summary 导出错题本或收藏夹
// @Tags 导入导出
// @Produce json
// @Security BearerAuth
// @Param type path string true "wrong_book 或 favorite"
// @Param download query bool false "以附件形式下载"
// @Success 200 {object} util.Response{data=service.ExportResult}
// @Router /api/exports/{type} [get]
func (c *ImportController) Export(ctx *gin.Context) {
	result, err := c.Exports.Export(ctx.Request.Context(), ctx.Param("type"))
	if err != nil {
		respondError(ctx, err)
		return
	}

	if download := util.QueryBool(ctx, "download"); download != nil && *download {
		data, err := json.MarshalIndent(result.Envelope, "", "  ")
		if err != nil {
			util.LogInternalError(ctx, err)
			return
		}
		filename := fmt.Sprintf("%s_%d.json", result.Envelope.ExportType, result.Envelope.ExportTime)
		ctx.Header("Content-Disposition", "attachment; filename="+filename)
		ctx.Data(http.StatusOK, util.MimeJSON, data)
		return
	}
	util.Success(ctx, result)
}

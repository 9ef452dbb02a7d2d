package controller

import (
	"errors"
	"net/http"

	"quiz_bank_backend/internal/service"
	"quiz_bank_backend/internal/util"

	"github.com/gin-gonic/gin"
)

// respondError 把服务层错误映射为统一响应
func respondError(ctx *gin.Context, err error) {
	var (
		dupErr  *service.DuplicateFilesError
		failErr *service.ImportFailuresError
	)
	switch {
	case errors.Is(err, util.ErrQuestionNotFound),
		errors.Is(err, util.ErrProgressNotFound),
		errors.Is(err, util.ErrFolderNotFound),
		errors.Is(err, util.ErrSourceNotFound),
		errors.Is(err, util.ErrImportJobNotFound),
		errors.Is(err, util.ErrWrongAnswerNotFound),
		errors.Is(err, util.ErrHistoryNotFound),
		errors.Is(err, util.ErrNoteNotFound):
		util.NotFoundWithMessage(ctx, err.Error())
	case errors.Is(err, util.ErrFolderExists),
		errors.Is(err, util.ErrSessionFinished):
		util.Conflict(ctx, err.Error(), nil)
	case errors.As(err, &dupErr):
		util.Conflict(ctx, err.Error(), gin.H{"duplicates": dupErr.Files})
	case errors.As(err, &failErr):
		util.UnprocessableEntity(ctx, err.Error(), gin.H{"failures": failErr.Failures})
	case errors.Is(err, util.ErrUnknownProvider),
		errors.Is(err, util.ErrUnsupportedExportType),
		errors.Is(err, util.ErrInvalidAnswer),
		errors.Is(err, util.ErrEmptySession),
		errors.Is(err, service.ErrUnknownPreference),
		errors.Is(err, service.ErrInvalidPreference):
		util.BadRequest(ctx, err.Error())
	case errors.Is(err, util.ErrInvalidDeviceKey):
		util.Unauthorized(ctx)
	case errors.Is(err, util.ErrAuthDisabled):
		util.Error(ctx, http.StatusNotFound, err.Error())
	default:
		util.LogInternalError(ctx, err)
	}
}

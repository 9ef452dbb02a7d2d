package util

import (
	"github.com/gin-gonic/gin"
	"github.com/spf13/cast"
)

// ParamUint 读取路径参数中的 ID
func ParamUint(c *gin.Context, name string) (uint, bool) {
	id, err := cast.ToUintE(c.Param(name))
	if err != nil || id == 0 {
		return 0, false
	}
	return id, true
}

// Pagination 读取 page/limit 查询参数，limit 上限 200
func Pagination(c *gin.Context) (page, limit int) {
	page = cast.ToInt(c.DefaultQuery("page", "1"))
	limit = cast.ToInt(c.DefaultQuery("limit", "20"))
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}
	if limit > 200 {
		limit = 200
	}
	return page, limit
}

// QueryBool 可选布尔查询参数，缺省返回 nil
func QueryBool(c *gin.Context, name string) *bool {
	raw, ok := c.GetQuery(name)
	if !ok || raw == "" {
		return nil
	}
	v, err := cast.ToBoolE(raw)
	if err != nil {
		return nil
	}
	return &v
}

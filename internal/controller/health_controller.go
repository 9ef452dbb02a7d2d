package controller

import (
	"context"
	"time"

	"quiz_bank_backend/internal/util"
	"quiz_bank_backend/pkg/database"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

type HealthController struct {
	DB    *gorm.DB
	Redis *redis.Client // 未配置 Redis 时为 nil
}

func NewHealthController(db *gorm.DB, rdb *redis.Client) *HealthController {
	return &HealthController{DB: db, Redis: rdb}
}

// @Summary 健康检查
// @Description 检查数据库、Redis 状态和当前 schema 版本
// @Tags 系统
// @Produce json
// @Success 200 {object} util.Response
// @Failure 503 {object} util.Response
// @Router /api/health [get]
func (c *HealthController) HealthCheck(ctx *gin.Context) {
	pingCtx, cancel := context.WithTimeout(ctx.Request.Context(), 2*time.Second)
	defer cancel()

	components := gin.H{"database": "up", "redis": "disabled"}

	sqlDB, err := c.DB.DB()
	if err == nil {
		err = sqlDB.PingContext(pingCtx)
	}
	if err != nil {
		components["database"] = "down"
		util.ServiceUnavailable(ctx, "Database unavailable", gin.H{"components": components})
		return
	}

	// Redis 只承载解析缓存，不可用时降级而不是报错
	if c.Redis != nil {
		components["redis"] = "up"
		if err := c.Redis.Ping(pingCtx).Err(); err != nil {
			components["redis"] = "down"
		}
	}

	version, _ := database.CurrentSchemaVersion(c.DB)
	util.Success(ctx, gin.H{
		"status":        "ok",
		"components":    components,
		"schemaVersion": version,
	})
}

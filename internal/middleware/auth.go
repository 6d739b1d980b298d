package middleware

import (
	"crypto/subtle"
	"strings"
	"studyplan_backend/internal/config"
	"studyplan_backend/internal/util"
	"studyplan_backend/pkg/logger"
	"sync"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// IngestKeyHeader 学习记录写入方携带密钥的请求头
const IngestKeyHeader = "X-Ingest-Key"

func AuthMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := ""
		authHeader := c.GetHeader("Authorization")
		if authHeader != "" {
			tokenString = strings.TrimPrefix(authHeader, "Bearer ")
		}

		if tokenString == "" {
			tokenString = c.Query("token")
		}

		if tokenString == "" {
			util.Unauthorized(c)
			c.Abort()
			return
		}

		claims, err := util.ParseJWT(tokenString, cfg.JWT.Secret)
		if err != nil {
			logger.Log.Debug("JWT解析错误", zap.Error(err))
			util.Unauthorized(c)
			c.Abort()
			return
		}

		c.Set("user", claims)
		c.Next()
	}
}

func RoleMiddleware(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := util.GetUserFromContext(c)
		if user == nil {
			util.Unauthorized(c)
			c.Abort()
			return
		}

		hasRole := false
		for _, role := range roles {
			// 管理员拥有所有权限
			if user.Role == util.RoleAdmin || user.Role == role {
				hasRole = true
				break
			}
		}

		if !hasRole {
			util.Forbidden(c)
			c.Abort()
			return
		}
		c.Next()
	}
}

// IngestKeyMiddleware 校验写入方密钥。密钥以 bcrypt 哈希形式配置，
// 校验通过的明文缓存在内存中，避免每个请求都做一次 bcrypt 计算
func IngestKeyMiddleware(cfg *config.IngestConfig) gin.HandlerFunc {
	var (
		mu       sync.RWMutex
		verified []byte
	)

	return func(c *gin.Context) {
		key := c.GetHeader(IngestKeyHeader)
		if key == "" || cfg.KeyHash == "" {
			util.Unauthorized(c)
			c.Abort()
			return
		}

		mu.RLock()
		ok := verified != nil && subtle.ConstantTimeCompare(verified, []byte(key)) == 1
		mu.RUnlock()

		if !ok {
			if err := bcrypt.CompareHashAndPassword([]byte(cfg.KeyHash), []byte(key)); err != nil {
				logger.Log.Warn("ingest key rejected", zap.String("ip", c.ClientIP()))
				util.Unauthorized(c)
				c.Abort()
				return
			}
			mu.Lock()
			verified = []byte(key)
			mu.Unlock()
		}

		c.Next()
	}
}

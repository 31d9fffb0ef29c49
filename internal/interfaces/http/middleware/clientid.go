// Package middleware 提供 HTTP 中间件
package middleware

import (
	"github.com/gin-gonic/gin"

	"seo-article-api/pkg/logger"
)

const (
	// ClientIDHeader 调用方标识头
	ClientIDHeader = "X-Client-ID"
)

// ClientID 调用方标识注入中间件
// 未携带标识头的请求以来源 IP 作为调用方标识
func ClientID() gin.HandlerFunc {
	return func(c *gin.Context) {
		clientID := c.GetHeader(ClientIDHeader)
		if clientID == "" {
			clientID = c.ClientIP()
		}

		c.Set("client_id", clientID)

		ctx := logger.WithContext(c.Request.Context(), logger.ClientIDKey, clientID)
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

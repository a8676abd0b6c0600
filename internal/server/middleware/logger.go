// Package middleware содержит промежуточные обработчики gin: логирование,
// восстановление после паники, rate-limiting, аутентификацию и маппинг ошибок.
package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

const requestIDKey = "request_id"

// RequestLogger логирует каждый запрос: метод, путь, статус, длительность.
// Заодно выдаёт X-Request-ID, если клиент его не прислал.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		reqID := c.GetHeader("X-Request-ID")
		if reqID == "" {
			reqID = uuid.NewString()
		}
		c.Set(requestIDKey, reqID)
		c.Header("X-Request-ID", reqID)

		c.Next()

		fields := log.Fields{
			"request_id": reqID,
			"method":     c.Request.Method,
			"path":       c.FullPath(),
			"status":     c.Writer.Status(),
			"took":       time.Since(start).String(),
			"ip":         c.ClientIP(),
		}
		if claims := CurrentClaims(c); claims != nil {
			fields["user_id"] = claims.UserID
		}
		entry := log.WithFields(fields)
		switch {
		case c.Writer.Status() >= 500:
			entry.Error("Запрос завершился ошибкой")
		case c.Writer.Status() >= 400:
			entry.Info("Запрос отклонён")
		default:
			entry.Debug("Запрос обработан")
		}
	}
}

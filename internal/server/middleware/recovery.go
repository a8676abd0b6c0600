package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// Recovery перехватывает панику в обработчике, логирует стек и отвечает 500.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				log.WithFields(log.Fields{
					"component": "panic_recovery",
					"path":      c.Request.URL.Path,
					"panic":     fmt.Sprintf("%v", r),
					"stack":     string(debug.Stack()),
				}).Error("ПАНИКА в обработчике, восстановлено")
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"success": false, "error": "внутренняя ошибка"})
			}
		}()
		c.Next()
	}
}

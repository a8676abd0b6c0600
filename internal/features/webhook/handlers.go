package webhook

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/loyalty-backend/internal/common"
	"serotonyl.ru/loyalty-backend/internal/server/middleware"
)

// maxBodyBytes: предел тела вебхука.
const maxBodyBytes = 1 << 20

// Handler: POST /api/webhooks/orders.
type Handler struct {
	service    *Service
	secret     string
	skipVerify bool
}

// NewHandler создаёт обработчик. skipVerify отключает проверку подписи
// (только для локальной разработки).
func NewHandler(service *Service, secret string, skipVerify bool) *Handler {
	if skipVerify {
		log.Warn("Проверка подписи вебхука отключена")
	}
	return &Handler{service: service, secret: secret, skipVerify: skipVerify}
}

// Orders принимает заказ. Подпись проверяется по сырому телу до разбора JSON.
func (h *Handler) Orders(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxBodyBytes))
	if err != nil {
		middleware.WriteError(c, middleware.ErrBadRequest)
		return
	}

	if !h.skipVerify {
		if err := Verify(h.secret, body, c.GetHeader(SignatureHeader)); err != nil {
			log.WithField("ip", c.ClientIP()).Warn("Вебхук с неверной подписью отклонён")
			middleware.WriteError(c, err)
			return
		}
	}

	var order Order
	if err := json.Unmarshal(body, &order); err != nil {
		middleware.WriteError(c, common.ErrInvalidPayload)
		return
	}

	res, err := h.service.Process(c.Request.Context(), &order)
	if err != nil {
		middleware.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "result": res})
}

package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/loyalty-backend/internal/common"
)

// ErrBadRequest: тело запроса не разобрать.
var ErrBadRequest = errors.New("некорректный запрос")

// statusFor сопоставляет доменную ошибку с HTTP-статусом.
func statusFor(err error) int {
	switch {
	case errors.Is(err, common.ErrCooldown):
		return http.StatusTooManyRequests
	case common.IsNotFound(err):
		return http.StatusNotFound
	case errors.Is(err, common.ErrUnauthorized),
		errors.Is(err, common.ErrWrongPassword),
		errors.Is(err, common.ErrInvalidSignature):
		return http.StatusUnauthorized
	case errors.Is(err, common.ErrBanned),
		errors.Is(err, common.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, common.ErrEmailTaken):
		return http.StatusConflict
	case errors.Is(err, common.ErrTooManyAttempts):
		return http.StatusTooManyRequests
	case errors.Is(err, common.ErrNoInventory),
		errors.Is(err, common.ErrOutOfStock),
		errors.Is(err, common.ErrInsufficientBalance),
		errors.Is(err, common.ErrUnavailable),
		errors.Is(err, common.ErrInsufficientMaterials),
		errors.Is(err, common.ErrInvalidTier),
		errors.Is(err, common.ErrInvalidMode),
		errors.Is(err, common.ErrInvalidAmount),
		errors.Is(err, common.ErrInvalidPayload),
		errors.Is(err, common.ErrConfig),
		errors.Is(err, common.ErrMissingCredentials),
		errors.Is(err, ErrBadRequest):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// publicMessage: текст для клиента. Внутренние ошибки не раскрываются.
func publicMessage(err error, status int) string {
	if status == http.StatusInternalServerError {
		return "внутренняя ошибка сервера"
	}
	for _, known := range []error{
		common.ErrUserNotFound, common.ErrCardNotFound, common.ErrRewardNotFound, common.ErrNotFound,
		common.ErrNoInventory, common.ErrOutOfStock, common.ErrInsufficientBalance, common.ErrUnavailable,
		common.ErrInsufficientMaterials, common.ErrInvalidTier, common.ErrInvalidMode, common.ErrInvalidAmount,
		common.ErrEmailTaken, common.ErrWrongPassword, common.ErrTooManyAttempts, common.ErrUnauthorized,
		common.ErrForbidden, common.ErrBanned, common.ErrInvalidSignature, common.ErrInvalidPayload,
		common.ErrConfig, common.ErrMissingCredentials,
	} {
		if errors.Is(err, known) {
			return known.Error()
		}
	}
	return err.Error()
}

// WriteError отвечает клиенту структурированной ошибкой.
// Кулдаун дополнительно отдаёт remainingMinutes.
func WriteError(c *gin.Context, err error) {
	status := statusFor(err)
	body := gin.H{"success": false, "error": publicMessage(err, status)}

	var cd *common.CooldownError
	if errors.As(err, &cd) {
		body["error"] = cd.Error()
		body["remainingMinutes"] = cd.RemainingMinutes
	}

	if status == http.StatusInternalServerError {
		log.WithError(err).WithField("path", c.Request.URL.Path).Error("Ошибка обработки запроса")
	}
	c.JSON(status, body)
}

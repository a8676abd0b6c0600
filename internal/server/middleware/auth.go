package middleware

import (
	"context"
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/loyalty-backend/internal/common"
	"serotonyl.ru/loyalty-backend/internal/security"
)

const claimsKey = "auth_claims"

// BanChecker сообщает, заблокирован ли пользователь.
type BanChecker func(ctx context.Context, userID int64) (bool, error)

// RequireAuth пропускает запрос только с валидным Bearer-токеном.
// Если передан banned, заблокированные пользователи получают 403.
func RequireAuth(issuer *security.Issuer, banned BanChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, err := parseBearer(c, issuer)
		if err != nil {
			WriteError(c, err)
			c.Abort()
			return
		}

		if banned != nil {
			isBanned, err := banned(c.Request.Context(), claims.UserID)
			if err != nil {
				if common.IsNotFound(err) {
					WriteError(c, common.ErrUnauthorized)
				} else {
					WriteError(c, err)
				}
				c.Abort()
				return
			}
			if isBanned {
				log.WithField("user_id", claims.UserID).Info("Запрос заблокированного пользователя отклонён")
				WriteError(c, common.ErrBanned)
				c.Abort()
				return
			}
		}

		SetClaims(c, claims)
		c.Next()
	}
}

// AdminChecker сообщает, остаётся ли пользователь действующим админом
// (роль admin в хранилище и нет бана).
type AdminChecker func(ctx context.Context, userID int64) (bool, error)

// RequireAdmin проверяет токен, подписанный админским секретом, и роль admin.
// Если передан active, роль перепроверяется по хранилищу на каждом запросе,
// так что разжалованный или забаненный админ теряет доступ сразу.
func RequireAdmin(issuer *security.Issuer, active AdminChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, err := parseBearer(c, issuer)
		if err != nil {
			WriteError(c, err)
			c.Abort()
			return
		}
		if claims.Role != "admin" {
			WriteError(c, common.ErrForbidden)
			c.Abort()
			return
		}

		if active != nil {
			ok, err := active(c.Request.Context(), claims.UserID)
			if err != nil {
				if common.IsNotFound(err) {
					WriteError(c, common.ErrUnauthorized)
				} else {
					WriteError(c, err)
				}
				c.Abort()
				return
			}
			if !ok {
				log.WithField("admin_id", claims.UserID).Warn("Админский токен без действующей роли отклонён")
				WriteError(c, common.ErrForbidden)
				c.Abort()
				return
			}
		}

		SetClaims(c, claims)
		c.Next()
	}
}

func parseBearer(c *gin.Context, issuer *security.Issuer) (*security.Claims, error) {
	header := c.GetHeader("Authorization")
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || strings.TrimSpace(token) == "" {
		return nil, common.ErrUnauthorized
	}
	claims, err := issuer.Parse(strings.TrimSpace(token))
	if err != nil {
		if errors.Is(err, security.ErrExpiredToken) {
			return nil, errors.Join(common.ErrUnauthorized, err)
		}
		return nil, common.ErrUnauthorized
	}
	return claims, nil
}

// SetClaims сохраняет claims в контексте запроса.
func SetClaims(c *gin.Context, claims *security.Claims) {
	c.Set(claimsKey, claims)
}

// CurrentClaims возвращает claims, сохранённые RequireAuth/RequireAdmin, или nil.
func CurrentClaims(c *gin.Context) *security.Claims {
	v, ok := c.Get(claimsKey)
	if !ok {
		return nil
	}
	claims, _ := v.(*security.Claims)
	return claims
}

// CurrentUserID: id пользователя из токена (0, если не аутентифицирован).
func CurrentUserID(c *gin.Context) int64 {
	if claims := CurrentClaims(c); claims != nil {
		return claims.UserID
	}
	return 0
}

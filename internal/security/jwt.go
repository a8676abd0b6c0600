// Package security: выпуск и проверка JWT, хеширование паролей Argon2id.
package security

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Ошибки валидации токена.
var (
	// ErrInvalidToken: токен битый или не прошёл проверку
	ErrInvalidToken = errors.New("недействительный токен")
	// ErrExpiredToken: срок действия истёк
	ErrExpiredToken = errors.New("срок действия токена истёк")
)

// Claims: полезная нагрузка токена пользователя и админа.
type Claims struct {
	UserID int64  `json:"uid"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// Issuer выпускает и проверяет токены одним секретом.
// Пользовательские и админские токены подписываются разными Issuer.
type Issuer struct {
	secret []byte
	ttl    time.Duration
}

// NewIssuer создаёт Issuer. Пустой секрет недопустим (проверяется в config.Validate).
func NewIssuer(secret string, ttl time.Duration) *Issuer {
	return &Issuer{secret: []byte(secret), ttl: ttl}
}

// Issue подписывает токен HS256.
func (i *Issuer) Issue(userID int64, email, role string) (string, error) {
	now := time.Now().UTC()
	claims := Claims{
		UserID: userID,
		Email:  email,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(i.secret)
}

// Parse проверяет подпись и срок, возвращает claims.
func (i *Issuer) Parse(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return i.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

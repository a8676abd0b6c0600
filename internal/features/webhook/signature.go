package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"strings"

	"serotonyl.ru/loyalty-backend/internal/common"
)

// SignatureHeader: заголовок с подписью WooCommerce.
const SignatureHeader = "X-WC-Webhook-Signature"

// Sign считает base64(HMAC-SHA256(body)) так же, как магазин.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// Verify сравнивает подпись за постоянное время.
func Verify(secret string, body []byte, signature string) error {
	signature = strings.TrimSpace(signature)
	if secret == "" || signature == "" {
		return fmt.Errorf("подпись отсутствует: %w", common.ErrInvalidSignature)
	}
	got, err := base64.StdEncoding.DecodeString(signature)
	if err != nil {
		return fmt.Errorf("подпись не в base64: %w", common.ErrInvalidSignature)
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	if !hmac.Equal(got, mac.Sum(nil)) {
		return common.ErrInvalidSignature
	}
	return nil
}

package services

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/miladpirayegar-hash/scholar/internal/config"
)

// ShareService produces HMAC-signed, expiring download links for exported
// study sheets.
type ShareService struct {
	secret  string
	baseURL string
	ttl     time.Duration
}

func NewShareService(cfg config.Config) *ShareService {
	return &ShareService{
		secret:  cfg.ShareSecret,
		baseURL: cfg.BaseURL,
		ttl:     cfg.ShareTTL,
	}
}

func (s *ShareService) Generate(sessionID string) (string, time.Time) {
	expiresAt := time.Now().Add(s.ttl)
	path := fmt.Sprintf("/sheets/%s", sessionID)
	signature := computeSignature(path, expiresAt.Unix(), s.secret)

	return fmt.Sprintf("%s%s?exp=%d&sig=%s", s.baseURL, path, expiresAt.Unix(), signature), expiresAt
}

func (s *ShareService) Validate(path string, expiresAt int64, signature string) bool {
	expected := computeSignature(path, expiresAt, s.secret)
	return hmac.Equal([]byte(signature), []byte(expected))
}

func computeSignature(path string, expiresAt int64, secret string) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write([]byte(fmt.Sprintf("%s:%d", path, expiresAt)))
	return base64.URLEncoding.WithPadding(base64.NoPadding).EncodeToString(h.Sum(nil))
}

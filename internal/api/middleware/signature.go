package middleware

import (
	"bytes"
	"io"
	"net/http"

	"pubhook/internal/engine/webhooks"
	"pubhook/internal/pkg/errors"
)

const (
	SignatureHeader = "X-Pubhook-Signature"
	maxHookBody     = 64 << 10
)

// SignatureMiddleware authenticates inbound hook requests with an HMAC of the
// raw body. The verified body is handed on as a fresh r.Body.
type SignatureMiddleware struct {
	secret string
}

func NewSignatureMiddleware(secret string) *SignatureMiddleware {
	return &SignatureMiddleware{secret: secret}
}

func (m *SignatureMiddleware) Handle(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(io.LimitReader(r.Body, maxHookBody+1))
		if err != nil {
			errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeInvalidInput, "Failed to read request body", nil)
			return
		}
		if len(body) > maxHookBody {
			errors.WriteError(w, http.StatusRequestEntityTooLarge, errors.ErrCodeInvalidInput, "Request body too large", nil)
			return
		}

		if m.secret != "" && !webhooks.Verify(m.secret, body, r.Header.Get(SignatureHeader)) {
			errors.WriteError(w, http.StatusUnauthorized, errors.ErrCodeInvalidSignature, "Invalid request signature", nil)
			return
		}

		r.Body = io.NopCloser(bytes.NewReader(body))
		next(w, r)
	}
}

package httpx

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Abdullraaa/mai-inji/internal/logging"
)

const rawBodyKey = "raw_body"

// VerifyPaystackSignature authenticates a webhook delivery: the
// x-paystack-signature header must equal HMAC-SHA512(raw body, secret).
// The reconciler must never see a body that failed this check.
func VerifyPaystackSignature(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		signature := c.GetHeader("x-paystack-signature")
		if signature == "" || secret == "" {
			Fail(c, http.StatusUnauthorized, "missing webhook signature")
			c.Abort()
			return
		}

		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			Fail(c, http.StatusBadRequest, "invalid request body")
			c.Abort()
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(body))

		mac := hmac.New(sha512.New, []byte(secret))
		mac.Write(body)
		expected := hex.EncodeToString(mac.Sum(nil))
		if !hmac.Equal([]byte(expected), []byte(signature)) {
			logging.FromGin(c).Error("webhook signature mismatch")
			Fail(c, http.StatusUnauthorized, "invalid webhook signature")
			c.Abort()
			return
		}

		c.Set(rawBodyKey, body)
		c.Next()
	}
}

// RawBody returns the signature-verified body stored by
// VerifyPaystackSignature.
func RawBody(c *gin.Context) []byte {
	if v, ok := c.Get(rawBodyKey); ok {
		if b, ok := v.([]byte); ok {
			return b
		}
	}
	return nil
}

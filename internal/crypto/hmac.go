// Package crypto provides message authentication for the opportunity feed.
// Feed payloads are signed with HMAC-SHA256 so the engine only executes
// opportunities from the configured source.
package crypto

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
)

// SignHMAC computes the base64-encoded HMAC-SHA256 of message under secret.
func SignHMAC(secret, message []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write(message)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// VerifyHMAC reports whether signature is the valid HMAC-SHA256 of message
// under secret. Comparison is constant-time.
func VerifyHMAC(secret, message []byte, signature string) bool {
	want, err := base64.StdEncoding.DecodeString(signature)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, secret)
	mac.Write(message)
	return hmac.Equal(mac.Sum(nil), want)
}

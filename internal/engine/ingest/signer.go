package ingest

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// Sign produces the hex HMAC-SHA256 signature sent alongside forwarded
// payloads so downstream endpoints can verify origin.
func Sign(secret string, payload []byte) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write(payload)
	return hex.EncodeToString(h.Sum(nil))
}

// SecretsEqual compares the inbound webhook secret in constant time.
func SecretsEqual(provided, stored string) bool {
	return hmac.Equal([]byte(provided), []byte(stored))
}

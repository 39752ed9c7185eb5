package httpapi

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/google/uuid"
)

// issueCSRFToken mints an HMAC-signed, timestamped token for the
// double-submit-cookie pattern: nonce.timestamp.signature.
func issueCSRFToken(secret string) string {
	nonce := uuid.NewString()
	ts := time.Now().UTC().Format(time.RFC3339)
	payload := nonce + "." + ts
	return payload + "." + signCSRF(secret, payload)
}

func signCSRF(secret, payload string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}

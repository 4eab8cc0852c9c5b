package slack

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"strings"
	"time"
)

const stateMaxAge = 10 * time.Minute

// MakeState mints an opaque HMAC-signed state token for the install redirect.
// The payload carries only a timestamp and a nonce; no other claims.
func MakeState(secret string) (string, error) {
	nonce := make([]byte, 16)
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}
	payload, err := json.Marshal(map[string]any{
		"ts":    time.Now().Unix(),
		"nonce": hex.EncodeToString(nonce),
	})
	if err != nil {
		return "", err
	}
	payloadB64 := base64.RawURLEncoding.EncodeToString(payload)

	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write([]byte(payloadB64))
	sig := hex.EncodeToString(mac.Sum(nil))
	return payloadB64 + "." + sig, nil
}

// VerifyState checks the signature and the 10-minute expiry of a state token
// minted by MakeState.
func VerifyState(secret, state string) error {
	parts := strings.Split(state, ".")
	if len(parts) != 2 {
		return errors.New("invalid state format")
	}
	payloadB64, sig := parts[0], parts[1]

	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write([]byte(payloadB64))
	expected := hex.EncodeToString(mac.Sum(nil))
	if subtle.ConstantTimeCompare([]byte(expected), []byte(sig)) != 1 {
		return errors.New("state signature mismatch")
	}

	raw, err := base64.RawURLEncoding.DecodeString(payloadB64)
	if err != nil {
		return errors.New("invalid state payload")
	}
	var decoded struct {
		TS int64 `json:"ts"`
	}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return errors.New("invalid state json")
	}
	if time.Since(time.Unix(decoded.TS, 0)) > stateMaxAge {
		return errors.New("state expired")
	}
	return nil
}

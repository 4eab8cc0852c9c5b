package slack

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"
)

const (
	timestampHeader = "X-Slack-Request-Timestamp"
	signatureHeader = "X-Slack-Signature"

	signatureVersion = "v0"
	maxRequestAge    = 5 * time.Minute
)

// Request authentication failures. All of them are client-facing rejections,
// never server faults.
var (
	ErrMissingHeader      = errors.New("missing slack signature headers")
	ErrMalformedTimestamp = errors.New("malformed slack request timestamp")
	ErrStaleRequest       = errors.New("slack request is older than 5 minutes")
	ErrSignatureMismatch  = errors.New("invalid slack message signature")
)

// VerifySignature authenticates an inbound events request against the app's
// signing secret. now is injectable so the freshness window is testable.
func VerifySignature(signingSecret string, headers http.Header, body []byte, now time.Time) error {
	ts := headers.Get(timestampHeader)
	sig := headers.Get(signatureHeader)
	if ts == "" || sig == "" {
		return ErrMissingHeader
	}

	parsedTS, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return fmt.Errorf("%w: %q", ErrMalformedTimestamp, ts)
	}
	if now.IsZero() {
		now = time.Now()
	}
	if now.Sub(time.Unix(parsedTS, 0)) > maxRequestAge {
		return ErrStaleRequest
	}

	mac := hmac.New(sha256.New, []byte(signingSecret))
	fmt.Fprintf(mac, "%s:%s:%s", signatureVersion, ts, body)
	expected := signatureVersion + "=" + hex.EncodeToString(mac.Sum(nil))

	if subtle.ConstantTimeCompare([]byte(expected), []byte(sig)) != 1 {
		return ErrSignatureMismatch
	}
	return nil
}

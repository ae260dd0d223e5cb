package billing

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DefaultSignatureTolerance bounds how old a webhook timestamp may be before
// the signature is rejected, limiting replay of captured deliveries.
const DefaultSignatureTolerance = 5 * time.Minute

// VerifyStripeWebhookSignature checks a Stripe-Signature header against the
// raw payload. The header carries a unix timestamp and one or more v1 HMAC
// candidates: "t=<unix>,v1=<hex>". The signed message is "<t>.<payload>" with
// HMAC-SHA256 over the shared webhook secret. Fails closed on anything
// missing or malformed.
func VerifyStripeWebhookSignature(payload []byte, signatureHeader, webhookSecret string, tolerance time.Duration, now time.Time) bool {
	header := strings.TrimSpace(signatureHeader)
	secret := strings.TrimSpace(webhookSecret)
	if header == "" || secret == "" {
		return false
	}

	var timestamp int64 = -1
	var candidates [][]byte
	for _, part := range strings.Split(header, ",") {
		key, value, found := strings.Cut(strings.TrimSpace(part), "=")
		if !found {
			continue
		}
		switch key {
		case "t":
			ts, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return false
			}
			timestamp = ts
		case "v1":
			sig, err := hex.DecodeString(strings.ToLower(value))
			if err != nil {
				continue
			}
			candidates = append(candidates, sig)
		}
	}
	if timestamp < 0 || len(candidates) == 0 {
		return false
	}

	if tolerance > 0 {
		age := now.Sub(time.Unix(timestamp, 0))
		if age > tolerance || age < -tolerance {
			return false
		}
	}

	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.", timestamp)
	mac.Write(payload)
	expected := mac.Sum(nil)

	for _, candidate := range candidates {
		if hmac.Equal(candidate, expected) {
			return true
		}
	}
	return false
}

// SignWebhookPayload produces a Stripe-Signature header value for payload.
// Used by tests.
func SignWebhookPayload(payload []byte, webhookSecret string, at time.Time) string {
	mac := hmac.New(sha256.New, []byte(webhookSecret))
	fmt.Fprintf(mac, "%d.", at.Unix())
	mac.Write(payload)
	return fmt.Sprintf("t=%d,v1=%s", at.Unix(), hex.EncodeToString(mac.Sum(nil)))
}

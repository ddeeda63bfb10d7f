package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// SignPayload returns the hex HMAC-SHA256 of "orderID|paymentID" keyed by
// the processor secret. This is the signature scheme the processor uses
// for client-driven checkout callbacks.
func SignPayload(secret, orderID, paymentID string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature recomputes the callback signature and compares it in
// constant time. The callback originates from the user's browser, so a
// plain string compare would leak match length to a tampering client.
func VerifySignature(secret, orderID, paymentID, signature string) error {
	expected := SignPayload(secret, orderID, paymentID)
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return ErrSignatureMismatch
	}
	return nil
}

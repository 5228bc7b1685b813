package payu

import (
	"crypto/md5"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"errors"
	"hash"
	"strings"
)

// SignatureHeader carries the webhook signature.
const SignatureHeader = "OpenPayu-Signature"

// ErrBadSignature is returned when a notification cannot be authenticated.
var ErrBadSignature = errors.New("invalid notification signature")

// VerifySignature checks header (signature=...;algorithm=MD5|SHA256|SHA-256)
// against the hash of body concatenated with secondKey.  An empty key
// rejects everything.
func VerifySignature(header string, body []byte, secondKey string) error {
	if secondKey == "" || header == "" {
		return ErrBadSignature
	}
	var sig, algo string
	for _, part := range strings.Split(header, ";") {
		k, v, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		switch strings.ToLower(k) {
		case "signature":
			sig = strings.ToLower(strings.TrimSpace(v))
		case "algorithm":
			algo = strings.ToUpper(strings.TrimSpace(v))
		}
	}
	if sig == "" {
		return ErrBadSignature
	}

	var h hash.Hash
	switch algo {
	case "", "MD5":
		h = md5.New()
	case "SHA256", "SHA-256":
		h = sha256.New()
	default:
		return ErrBadSignature
	}
	h.Write(body)
	h.Write([]byte(secondKey))
	expected := hex.EncodeToString(h.Sum(nil))
	if subtle.ConstantTimeCompare([]byte(expected), []byte(sig)) != 1 {
		return ErrBadSignature
	}
	return nil
}

// Notification is the part of a webhook payload the service acts on.
type Notification struct {
	OrderID    string
	ExtOrderID string
	Status     string
}

type notificationBody struct {
	Order struct {
		OrderID    string `json:"orderId"`
		ExtOrderID string `json:"extOrderId"`
		Status     string `json:"status"`
	} `json:"order"`
}

// ParseNotification decodes a webhook body.
func ParseNotification(body []byte) (Notification, error) {
	var nb notificationBody
	if err := json.Unmarshal(body, &nb); err != nil {
		return Notification{}, err
	}
	if nb.Order.OrderID == "" || nb.Order.Status == "" {
		return Notification{}, errors.New("notification without order id or status")
	}
	return Notification{OrderID: nb.Order.OrderID, ExtOrderID: nb.Order.ExtOrderID, Status: nb.Order.Status}, nil
}

// Sign computes the header value for body; used by tests and local tools
// that replay notifications.
func Sign(body []byte, secondKey string) string {
	sum := md5.Sum(append(append([]byte{}, body...), secondKey...))
	return "sender=checkout;signature=" + hex.EncodeToString(sum[:]) + ";algorithm=MD5;content=DOCUMENT"
}

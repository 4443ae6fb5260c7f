// Package codegen produces ticket codes, QR payloads and QR images.
package codegen

import (
	"encoding/base64"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/google/uuid"
	qrcode "github.com/skip2/go-qrcode"
)

// NewTicketCode returns a random 128-bit identifier in canonical UUID form.
// The code is persisted on the ticket and reused as the key of every
// artifact derived from it.
func NewTicketCode() string {
	return uuid.NewString()
}

// PayloadFields is everything a gate scanner needs to match a ticket.
type PayloadFields struct {
	EventID  string
	Code     string
	Email    string
	TierName string
	Quantity int
}

const (
	keyEvent  = "EVT"
	keyTicket = "TCK"
	keyEmail  = "EMAIL"
	keyTier   = "TIER"
	keyQty    = "QTY"
)

// QRPayload encodes f deterministically. Values are query-escaped so
// separators inside them survive the round trip. The payload is not signed;
// a gate must look the code up before admitting anyone.
func QRPayload(f PayloadFields) string {
	raw := strings.Join([]string{
		keyEvent + ":" + url.QueryEscape(f.EventID),
		keyTicket + ":" + url.QueryEscape(f.Code),
		keyEmail + ":" + url.QueryEscape(f.Email),
		keyTier + ":" + url.QueryEscape(f.TierName),
		keyQty + ":" + strconv.Itoa(f.Quantity),
	}, "|")
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

// ParseQRPayload is the inverse of QRPayload.
func ParseQRPayload(payload string) (PayloadFields, error) {
	raw, err := base64.RawURLEncoding.DecodeString(strings.TrimSpace(payload))
	if err != nil {
		return PayloadFields{}, fmt.Errorf("decode payload: %w", err)
	}

	parts := strings.Split(string(raw), "|")
	if len(parts) != 5 {
		return PayloadFields{}, fmt.Errorf("payload has %d fields, want 5", len(parts))
	}

	values := make(map[string]string, len(parts))
	for _, part := range parts {
		key, value, ok := strings.Cut(part, ":")
		if !ok {
			return PayloadFields{}, fmt.Errorf("malformed payload field %q", part)
		}
		if values[key], err = url.QueryUnescape(value); err != nil {
			return PayloadFields{}, fmt.Errorf("payload field %s: %w", key, err)
		}
	}

	qty, err := strconv.Atoi(values[keyQty])
	if err != nil {
		return PayloadFields{}, fmt.Errorf("payload quantity: %w", err)
	}
	f := PayloadFields{
		EventID:  values[keyEvent],
		Code:     values[keyTicket],
		Email:    values[keyEmail],
		TierName: values[keyTier],
		Quantity: qty,
	}
	if f.Code == "" {
		return PayloadFields{}, fmt.Errorf("payload has no ticket code")
	}
	return f, nil
}

// PNGEncoder rasterises payloads as QR code PNG images.
type PNGEncoder struct {
	Size  int
	Level qrcode.RecoveryLevel
}

// NewPNGEncoder returns an encoder with a 256px image and medium recovery.
func NewPNGEncoder() PNGEncoder {
	return PNGEncoder{Size: 256, Level: qrcode.Medium}
}

// Encode renders payload to PNG bytes.
func (e PNGEncoder) Encode(payload string) ([]byte, error) {
	png, err := qrcode.Encode(payload, e.Level, e.Size)
	if err != nil {
		return nil, fmt.Errorf("encode qr: %w", err)
	}
	return png, nil
}

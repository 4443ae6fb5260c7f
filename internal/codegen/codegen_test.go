package codegen

import (
	"bytes"
	"encoding/base64"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTicketCode_Unique(t *testing.T) {
	seen := make(map[string]struct{}, 10000)
	for i := 0; i < 10000; i++ {
		code := NewTicketCode()
		_, err := uuid.Parse(code)
		require.NoError(t, err)

		_, dup := seen[code]
		require.False(t, dup, "duplicate code %s", code)
		seen[code] = struct{}{}
	}
}

func TestQRPayload_DeterministicAndOpaque(t *testing.T) {
	f := PayloadFields{
		EventID:  "evt-1",
		Code:     "3f0c2a8e-1111-4222-8333-444455556666",
		Email:    "ada@example.com",
		TierName: "VIP",
		Quantity: 2,
	}

	p1 := QRPayload(f)
	p2 := QRPayload(f)

	assert.Equal(t, p1, p2)
	assert.NotContains(t, p1, "ada@example.com")
	assert.NotContains(t, p1, "|")
}

func TestParseQRPayload_RoundTrip(t *testing.T) {
	f := PayloadFields{EventID: "evt-1", Code: "code-1", Email: "a@b.co", TierName: "General Admission", Quantity: 4}

	got, err := ParseQRPayload(QRPayload(f))

	require.NoError(t, err)
	assert.Equal(t, f, got)
}

func TestParseQRPayload_RoundTripSeparators(t *testing.T) {
	f := PayloadFields{
		EventID:  "evt:2026|main",
		Code:     "code-1",
		Email:    "a|b:c+d@example.com",
		TierName: "VIP | Backstage: 50% off",
		Quantity: 2,
	}

	got, err := ParseQRPayload(QRPayload(f))

	require.NoError(t, err)
	assert.Equal(t, f, got)
}

func TestParseQRPayload_Rejects(t *testing.T) {
	tests := map[string]string{
		"not base64":     "!!!",
		"too few fields": rawPayload("EVT:1|TCK:2"),
		"bad quantity":   rawPayload("EVT:1|TCK:2|EMAIL:a@b.co|TIER:x|QTY:two"),
		"missing code":   rawPayload("EVT:1|TCK:|EMAIL:a@b.co|TIER:x|QTY:1"),
		"no separator":   rawPayload("EVT:1|TCK:2|EMAIL|TIER:x|QTY:1"),
		"bad escape":     rawPayload("EVT:1|TCK:2|EMAIL:a@b.co|TIER:%zz|QTY:1"),
	}

	for name, payload := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ParseQRPayload(payload)
			assert.Error(t, err)
		})
	}
}

func TestPNGEncoder_Encode(t *testing.T) {
	png, err := NewPNGEncoder().Encode(QRPayload(PayloadFields{EventID: "e", Code: "c", Email: "x@y.z", TierName: "t", Quantity: 1}))

	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(png, []byte("\x89PNG\r\n\x1a\n")))
}

func TestPNGEncoder_TooLarge(t *testing.T) {
	_, err := NewPNGEncoder().Encode(strings.Repeat("x", 8000))
	assert.Error(t, err)
}

func rawPayload(raw string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

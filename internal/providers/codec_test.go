package providers

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCodec(t *testing.T) *SensitiveDataCodec {
	t.Helper()
	codec, err := NewSensitiveDataCodec(bytes.Repeat([]byte{0x42}, 32))
	require.NoError(t, err)
	return codec
}

func TestCodec_RoundTrip(t *testing.T) {
	codec := testCodec(t)
	in := &CreditData{CreditScore: 712, ScoreVerified: true, PaymentHistory: "good"}

	sealed, err := codec.Seal(in)
	require.NoError(t, err)
	assert.NotContains(t, string(sealed), "712", "ciphertext must not leak plaintext")

	var out CreditData
	require.NoError(t, codec.Open(sealed, &out))
	assert.Equal(t, *in, out)
}

func TestCodec_PlaintextNeverInSealedJSON(t *testing.T) {
	codec := testCodec(t)
	sealed, err := codec.Seal(&CreditData{CreditScore: 645})
	require.NoError(t, err)

	raw, err := json.Marshal(sealed)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "creditScore")
}

func TestCodec_TamperDetected(t *testing.T) {
	codec := testCodec(t)
	sealed, err := codec.Seal(&CreditData{CreditScore: 700})
	require.NoError(t, err)

	sealed[len(sealed)-1] ^= 0xff
	var out CreditData
	assert.Error(t, codec.Open(sealed, &out))
}

func TestCodec_BadKeyLength(t *testing.T) {
	_, err := NewSensitiveDataCodec([]byte("short"))
	assert.Error(t, err)
}

func TestCodec_TruncatedPayload(t *testing.T) {
	codec := testCodec(t)
	var out CreditData
	assert.Error(t, codec.Open([]byte{0x01, 0x02}, &out))
}

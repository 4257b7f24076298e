package tokencodec

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewNonceInRange(t *testing.T) {
	for i := 0; i < 20; i++ {
		n, err := NewNonce()
		require.NoError(t, err)
		assert.GreaterOrEqual(t, n, int32(nonceFloor))
		assert.LessOrEqual(t, n, int32(nonceCeil))
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	tok, err := Encode(42, 1234567890, "secret", time.Hour)
	require.NoError(t, err)

	userID, nonce, err := Decode(tok, "secret")
	require.NoError(t, err)
	assert.Equal(t, int32(42), userID)
	assert.Equal(t, int32(1234567890), nonce)
}

func TestDecodeWrongSecret(t *testing.T) {
	tok, err := Encode(1, 1000000000, "secret", time.Hour)
	require.NoError(t, err)

	_, _, err = Decode(tok, "other-secret")
	assert.Error(t, err)
}

func TestDecodeExpiredToken(t *testing.T) {
	tok, err := Encode(1, 1000000000, "secret", -time.Minute)
	require.NoError(t, err)

	_, _, err = Decode(tok, "secret")
	assert.Error(t, err)
}

func TestDecodeGarbage(t *testing.T) {
	_, _, err := Decode("not-a-jwt", "secret")
	assert.Error(t, err)
}

func TestEncodeRejectsEmptySecret(t *testing.T) {
	_, err := Encode(1, 1000000000, "", time.Hour)
	assert.Error(t, err)
}

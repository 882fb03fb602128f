package nicepay

import (
	"crypto/aes"
	"encoding/hex"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignData(t *testing.T) {
	// sha256("test")
	assert.Equal(t,
		"9f86d081884c7d659a2feaa0c55ad015a3bf4f1b2b0b822cd15d6c15b0f00a08",
		SignData("test"))

	// Parameters are concatenated in order before hashing.
	assert.Equal(t, SignData("ab", "c"), SignData("a", "bc"))
	assert.NotEqual(t, SignData("a", "b"), SignData("b", "a"))
}

func TestEdiDate(t *testing.T) {
	ts := time.Date(2026, 2, 15, 9, 30, 45, 0, time.UTC)
	assert.Equal(t, "20260215093045", EdiDate(ts))
}

func TestNewOrderID(t *testing.T) {
	a := NewOrderID()
	b := NewOrderID()
	assert.True(t, len(a) > 3 && a[:3] == "BK-")
	assert.NotEqual(t, a, b)
}

func TestRecurringOrderID(t *testing.T) {
	id := uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")
	got := RecurringOrderID(id, time.Date(2026, 2, 15, 0, 0, 0, 0, time.UTC))
	assert.Equal(t, "SUB-6ba7b810-9dad-11d1-80b4-00c04fd430c8-202602", got)
}

func TestEncryptCardData(t *testing.T) {
	key := "0123456789abcdef0123456789abcdef"
	plain := "CardNo=1234567890123456&ExpYear=28&ExpMonth=06&IDNo=&CardPw="

	enc, err := encryptCardData(plain, key)
	require.NoError(t, err)

	raw, err := hex.DecodeString(enc)
	require.NoError(t, err)
	require.Zero(t, len(raw)%aes.BlockSize)

	// Decrypting with the first 16 key bytes recovers the padded input.
	block, err := aes.NewCipher([]byte(key[:16]))
	require.NoError(t, err)
	dec := make([]byte, len(raw))
	for i := 0; i < len(raw); i += aes.BlockSize {
		block.Decrypt(dec[i:i+aes.BlockSize], raw[i:i+aes.BlockSize])
	}
	padding := int(dec[len(dec)-1])
	require.True(t, padding > 0 && padding <= aes.BlockSize)
	assert.Equal(t, plain, string(dec[:len(dec)-padding]))

	// Same input, same key: same ciphertext (ECB is deterministic).
	enc2, err := encryptCardData(plain, key)
	require.NoError(t, err)
	assert.Equal(t, enc, enc2)
}

func TestEncryptCardDataShortKey(t *testing.T) {
	_, err := encryptCardData("data", "short")
	require.Error(t, err)
}

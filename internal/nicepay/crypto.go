package nicepay

import (
	"crypto/aes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const ediDateLayout = "20060102150405"

// SignData concatenates the parameters in order and returns the SHA-256
// hash as a lowercase hex string, as the gateway's tamper check requires.
func SignData(params ...string) string {
	h := sha256.New()
	for _, p := range params {
		h.Write([]byte(p))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// EdiDate formats a timestamp the way the gateway expects (yyyyMMddHHmmss).
func EdiDate(t time.Time) string {
	return t.Format(ediDateLayout)
}

// NewOrderID generates a unique merchant order id for a billing-key
// registration attempt.
func NewOrderID() string {
	return "BK-" + uuid.NewString()
}

// RecurringOrderID generates the merchant order id for one recurring
// billing cycle. It is stamped with the cycle's period so a repeated run
// for the same cycle produces the same id.
func RecurringOrderID(subscriptionID uuid.UUID, periodStart time.Time) string {
	return fmt.Sprintf("SUB-%s-%s", subscriptionID, periodStart.Format("200601"))
}

// NewTID generates a fresh gateway transaction id for a charge call.
func NewTID(mid string, now time.Time) string {
	suffix := uuid.NewString()
	return mid + "01" + "16" + now.Format("0102150405") + suffix[:4]
}

// encryptCardData encrypts plaintext card data with AES-128-ECB using the
// first 16 bytes of the merchant key, hex encoded, as the direct
// registration endpoint requires. ECB is the gateway's scheme, not ours.
func encryptCardData(plain, merchantKey string) (string, error) {
	key := []byte(merchantKey)
	if len(key) < 16 {
		return "", fmt.Errorf("merchant key too short for card encryption")
	}
	block, err := aes.NewCipher(key[:16])
	if err != nil {
		return "", err
	}

	padded := pkcs5Pad([]byte(plain), block.BlockSize())
	out := make([]byte, len(padded))
	for i := 0; i < len(padded); i += block.BlockSize() {
		block.Encrypt(out[i:i+block.BlockSize()], padded[i:i+block.BlockSize()])
	}
	return hex.EncodeToString(out), nil
}

func pkcs5Pad(data []byte, blockSize int) []byte {
	padding := blockSize - len(data)%blockSize
	for i := 0; i < padding; i++ {
		data = append(data, byte(padding))
	}
	return data
}

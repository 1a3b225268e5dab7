package utils

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// GenerateCode returns 2n uppercase hex characters from crypto/rand.
func GenerateCode(n int) (string, error) {
	byt := make([]byte, n)
	if _, err := rand.Read(byt); err != nil {
		return "", err
	}
	return strings.ToUpper(hex.EncodeToString(byt)), nil
}

// TicketCode returns a human-verifiable credential code, "TKT-3FA9C2D1".
func TicketCode() string {
	u := uuid.New()
	return "TKT-" + strings.ToUpper(hex.EncodeToString(u[:4]))
}

// PaymentRef returns a gateway reference with the given prefix,
// "PSK-9f2c61a84d0e73bb".
func PaymentRef(prefix string) string {
	u := uuid.New()
	return fmt.Sprintf("%s-%s", prefix, hex.EncodeToString(u[:8]))
}

// RandomSuffix returns n random characters from an uppercase
// alphanumeric charset.
func RandomSuffix(n int) (string, error) {
	const charset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

	code := make([]byte, n)
	if _, err := rand.Read(code); err != nil {
		return "", err
	}
	for i := 0; i < n; i++ {
		code[i] = charset[int(code[i])%len(charset)]
	}
	return string(code), nil
}

package utils

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"

	"golang.org/x/crypto/bcrypt"
)

// Hmac512 returns the hex-encoded HMAC-SHA512 of body under key.
func Hmac512(body, key []byte) string {
	hash := hmac.New(sha512.New, key)
	hash.Write(body)
	return hex.EncodeToString(hash.Sum(nil))
}

// HmacEqual compares two MACs in constant time.
func HmacEqual(a, b string) bool {
	return hmac.Equal([]byte(a), []byte(b))
}

// GenerateHash bcrypt-hashes a shared secret for storage.
func GenerateHash(secret string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CompareHash checks a plain secret against a bcrypt hash.
func CompareHash(hash, secret string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(secret)) == nil
}

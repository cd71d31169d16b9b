// Package internal holds small helpers private to authcore.
package internal

import (
	"crypto/rand"
	"encoding/base64"
)

const codeRawSize = 32

// NewCode returns a crypto-random url-safe opaque code. The encoded form is
// 43 characters and carries 256 bits of entropy, enough that codes are
// unguessable without rate limiting.
func NewCode() (string, error) {
	var raw [codeRawSize]byte
	if _, err := rand.Read(raw[:]); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(raw[:]), nil
}

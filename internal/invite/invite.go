// Package invite generates the six-character codes used to join challenges,
// body-doubling sessions and shared rooms.
package invite

import (
	"crypto/rand"
	"fmt"
)

// Alphabet excludes visually ambiguous characters (0/O, 1/I), leaving a
// 32-symbol set: 32^6 ≈ 1.07e9 possible codes.
const Alphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

const CodeLength = 6

// GenerateCode returns a random six-character invite code.
func GenerateCode() (string, error) {
	buf := make([]byte, CodeLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	for i, b := range buf {
		buf[i] = Alphabet[int(b)%len(Alphabet)]
	}
	return string(buf), nil
}

// Valid reports whether code has the right shape to be looked up at all.
// Invalid codes are rejected before any store query.
func Valid(code string) bool {
	if len(code) != CodeLength {
		return false
	}
	for i := 0; i < len(code); i++ {
		found := false
		for j := 0; j < len(Alphabet); j++ {
			if code[i] == Alphabet[j] {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

package utils

import (
	"fmt"
	"log"
	"os"
)

// ValidAPIKeyFormat checks the shape of an AI provider key before any network
// call is made with it: 30 to 50 characters, alphanumeric plus dash and
// underscore.
func ValidAPIKeyFormat(key string) bool {
	if len(key) < 30 || len(key) > 50 {
		return false
	}
	for _, c := range key {
		switch {
		case c >= 'a' && c <= 'z':
		case c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9':
		case c == '-' || c == '_':
		default:
			return false
		}
	}
	return true
}

// LoadAPIKey reads the named env var and validates its format. A missing or
// malformed key is not fatal: the feature it powers runs degraded, so the
// caller gets an empty string and a log line instead of an error.
func LoadAPIKey(envVar string) string {
	key := os.Getenv(envVar)
	if key == "" {
		log.Printf("%s not set, AI analysis disabled", envVar)
		return ""
	}
	if !ValidAPIKeyFormat(key) {
		log.Printf("%s has an invalid format, AI analysis disabled", envVar)
		return ""
	}
	return key
}

// MaskKey renders a key safe for logs.
func MaskKey(key string) string {
	if len(key) < 8 {
		return "****"
	}
	return fmt.Sprintf("%s****%s", key[:4], key[len(key)-2:])
}

package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidAPIKeyFormat(t *testing.T) {
	assert.True(t, ValidAPIKeyFormat(strings.Repeat("a", 30)))
	assert.True(t, ValidAPIKeyFormat("AIzaSy-0123456789_abcdefghijklmnopqr"))
	assert.True(t, ValidAPIKeyFormat(strings.Repeat("Z", 50)))

	assert.False(t, ValidAPIKeyFormat(""))
	assert.False(t, ValidAPIKeyFormat(strings.Repeat("a", 29)), "too short")
	assert.False(t, ValidAPIKeyFormat(strings.Repeat("a", 51)), "too long")
	assert.False(t, ValidAPIKeyFormat(strings.Repeat("a", 29)+"!"), "bad character")
	assert.False(t, ValidAPIKeyFormat(strings.Repeat("a", 29)+" "), "whitespace")
}

func TestLoadAPIKey(t *testing.T) {
	t.Setenv("TEST_ANALYSIS_KEY", "")
	assert.Empty(t, LoadAPIKey("TEST_ANALYSIS_KEY"))

	t.Setenv("TEST_ANALYSIS_KEY", "not a key")
	assert.Empty(t, LoadAPIKey("TEST_ANALYSIS_KEY"))

	valid := strings.Repeat("k", 35)
	t.Setenv("TEST_ANALYSIS_KEY", valid)
	assert.Equal(t, valid, LoadAPIKey("TEST_ANALYSIS_KEY"))
}

func TestMaskKey(t *testing.T) {
	assert.Equal(t, "****", MaskKey("short"))
	masked := MaskKey("AIzaSy0123456789abcdef")
	assert.True(t, strings.HasPrefix(masked, "AIza"))
	assert.NotContains(t, masked, "0123456789")
}

package stringutil

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestShortHash(t *testing.T) {
	hash := strings.Repeat("ab", 32)
	assert.Equal(t, "abababab...abababab", ShortenLog(hash))
	assert.Equal(t, "ab...ab", ShortHash(hash, 2))
	assert.Equal(t, "short", ShortenLog("short"))
	assert.Equal(t, hash, ShortHash(hash, 0))
	assert.Equal(t, "0123456789abcdefghi", ShortenLog("0123456789abcdefghi"))
}

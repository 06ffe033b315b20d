package common

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/mr-tron/base58"
)

// DigestToBase58 renders a hex SHA-256 digest in base58
func DigestToBase58(hexDigest string) (string, error) {
	hexDigest = strings.TrimPrefix(hexDigest, "0x")

	bytes, err := hex.DecodeString(hexDigest)
	if err != nil {
		return "", fmt.Errorf("failed to decode hex digest: %w", err)
	}
	if len(bytes) != sha256.Size {
		return "", fmt.Errorf("digest must be %d bytes, got %d", sha256.Size, len(bytes))
	}

	return base58.Encode(bytes), nil
}

// DigestFromBase58 converts a base58 digest back to lowercase hex
func DigestFromBase58(base58Str string) (string, error) {
	bytes, err := base58.Decode(base58Str)
	if err != nil {
		return "", fmt.Errorf("failed to decode base58 digest: %w", err)
	}
	if len(bytes) != sha256.Size {
		return "", fmt.Errorf("digest must be %d bytes, got %d", sha256.Size, len(bytes))
	}

	return hex.EncodeToString(bytes), nil
}

// NormalizeDigest accepts a digest in hex or base58 and returns lowercase hex
func NormalizeDigest(digest string) (string, error) {
	trimmed := strings.TrimPrefix(strings.TrimSpace(digest), "0x")
	if len(trimmed) == 2*sha256.Size {
		if _, err := hex.DecodeString(trimmed); err == nil {
			return strings.ToLower(trimmed), nil
		}
	}
	return DigestFromBase58(trimmed)
}

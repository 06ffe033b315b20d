package main

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	ledgererr "github.com/mezonai/vessel/errors"
)

func TestExitCode(t *testing.T) {
	assert.Equal(t, 0, exitCode(nil))
	assert.Equal(t, 1, exitCode(errors.New("no such file")))

	broken := ledgererr.NewChainInvalidError(3, "hash_mismatch", "aa", "bb")
	assert.Equal(t, 2, exitCode(broken))
	assert.Equal(t, 2, exitCode(fmt.Errorf("verify: %w", broken)))
}

package logx

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

type bufferCloser struct {
	bytes.Buffer
	closed bool
}

func (b *bufferCloser) Close() error {
	b.closed = true
	return nil
}

func TestCategoryLines(t *testing.T) {
	first := &bufferCloser{}
	SetOutput(first)
	Info("STORE", "Saved ", 3, " blocks")
	Warn("STEGO", "cover too small")

	out := first.String()
	assert.Contains(t, out, ColorGreen+"[INFO][STORE]"+ColorReset+": Saved 3 blocks")
	assert.Contains(t, out, "[WARN][STEGO]"+ColorReset+": cover too small")

	second := &bufferCloser{}
	SetOutput(second)
	assert.True(t, first.closed)
	Error("API", "boom")
	assert.Contains(t, second.String(), ColorRed+"[ERROR][API]")
	assert.NotContains(t, first.String(), "boom")
}

func TestEnvInt(t *testing.T) {
	t.Setenv("VESSEL_TEST_INT", "")
	assert.Equal(t, 7, envInt("VESSEL_TEST_INT", 7))
	t.Setenv("VESSEL_TEST_INT", "12")
	assert.Equal(t, 12, envInt("VESSEL_TEST_INT", 7))
	t.Setenv("VESSEL_TEST_INT", "-3")
	assert.Equal(t, 7, envInt("VESSEL_TEST_INT", 7))
	t.Setenv("VESSEL_TEST_INT", "lots")
	assert.Equal(t, 7, envInt("VESSEL_TEST_INT", 7))
}

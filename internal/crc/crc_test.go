package crc

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComputeDeterministic(t *testing.T) {
	msg := []byte{0x45, 0x00, 0x00, 0x3c, 0x1c, 0x46, 0x40, 0x00}
	for _, w := range []Width{Width2, Width3, Width6, Width7, Width8} {
		a := Compute(w, msg)
		b := Compute(w, msg)
		assert.Equal(t, a, b, "width %d must be deterministic", w)
		assert.LessOrEqual(t, a, uint8(1<<uint(w)-1), "width %d result must fit in width bits", w)
	}
}

func TestComputeDiffersOnChange(t *testing.T) {
	a := []byte{0x01, 0x02, 0x03}
	b := []byte{0x01, 0x02, 0x04}
	for _, w := range []Width{Width3, Width7, Width8} {
		assert.NotEqual(t, Compute(w, a), Compute(w, b))
	}
}

func TestFCS32KnownVector(t *testing.T) {
	// "123456789" is the standard CRC-32/IEEE check vector.
	got := FCS32([]byte("123456789"))
	assert.Equal(t, uint32(0xCBF43926), got)
}

func TestFCS32EmptyInput(t *testing.T) {
	assert.Equal(t, uint32(0), FCS32(nil))
}

func TestFCS32Deterministic(t *testing.T) {
	data := []byte{0xde, 0xad, 0xbe, 0xef}
	assert.Equal(t, FCS32(data), FCS32(data))
}

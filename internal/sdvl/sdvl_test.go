package sdvl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundTrip(t *testing.T) {
	values := []uint32{0, 1, 0x7f, 0x80, 0x3fff, 0x4000, 0x1fffff, 0x200000, MaxValue}
	for _, v := range values {
		buf, err := Encode(nil, v)
		require.NoError(t, err)
		got, n, err := Decode(buf)
		require.NoError(t, err)
		assert.Equal(t, len(buf), n)
		assert.Equal(t, v, got)
	}
}

func TestShortestForm(t *testing.T) {
	cases := []struct {
		v      uint32
		wantSz int
	}{
		{0, 1},
		{127, 1},
		{128, 2},
		{16383, 2},
		{16384, 3},
		{2097151, 3},
		{2097152, 4},
		{MaxValue, 4},
	}
	for _, c := range cases {
		buf, err := Encode(nil, c.v)
		require.NoError(t, err)
		assert.Equal(t, c.wantSz, len(buf), "value %d", c.v)
	}
}

func TestEncodeRejectsOverflow(t *testing.T) {
	_, err := Encode(nil, MaxValue+1)
	assert.Error(t, err)
}

func TestDecodeRejectsTruncated(t *testing.T) {
	_, _, err := Decode([]byte{0x80})
	assert.Error(t, err)
	_, _, err = Decode([]byte{0xc0, 0x01})
	assert.Error(t, err)
	_, _, err = Decode([]byte{0xe0, 0x01, 0x02})
	assert.Error(t, err)
	_, _, err = Decode(nil)
	assert.Error(t, err)
}

func TestEncodeAppendsToExistingSlice(t *testing.T) {
	dst := []byte{0xAA, 0xBB}
	out, err := Encode(dst, 42)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xAA, 0xBB, 42}, out)
}

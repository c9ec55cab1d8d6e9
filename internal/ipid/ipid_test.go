package ipid

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOffsetWrapsModulo16Bit(t *testing.T) {
	assert.Equal(t, uint16(1), Offset(11, 10))
	assert.Equal(t, uint16(0xFFFF), Offset(0, 1))
}

func TestEligibleRequiresBothCounters(t *testing.T) {
	assert.True(t, Eligible(3, 0, 3))
	assert.False(t, Eligible(2, 0, 3), "NBO not yet stable")
	assert.False(t, Eligible(3, 1, 3), "RND counter must be zero")
}

func TestIsRandomSmallSequentialDeltaIsNotRandom(t *testing.T) {
	assert.False(t, IsRandom(100, 101))
	assert.False(t, IsRandom(100, 105))
}

func TestIsRandomLargeJumpIsRandom(t *testing.T) {
	assert.True(t, IsRandom(100, 40000))
}

func TestIsRandomWrapsAroundSixteenBits(t *testing.T) {
	assert.False(t, IsRandom(0xFFFE, 0x0001))
}

func TestIsNetworkByteOrderPrefersSmallerDelta(t *testing.T) {
	// Sequential big-endian IDs: 0x0001 -> 0x0002.
	assert.True(t, IsNetworkByteOrder(0x0001, 0x0002))
}

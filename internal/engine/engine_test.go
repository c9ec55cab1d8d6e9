package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewContextStartsInIRU(t *testing.T) {
	c, err := NewContext(4)
	require.NoError(t, err)
	assert.Equal(t, StateIR, c.State)
	assert.Equal(t, ModeU, c.Mode)
}

func TestRecordSentPromotesIRToFO(t *testing.T) {
	c, err := NewContext(4)
	require.NoError(t, err)
	for i := 0; i < MaxIRCount; i++ {
		c.RecordSent(StateIR)
	}
	assert.Equal(t, StateFO, c.State)
}

func TestRecordSentPromotesFOToSO(t *testing.T) {
	c, err := NewContext(4)
	require.NoError(t, err)
	c.State = StateFO
	for i := 0; i < MaxFOCount; i++ {
		c.RecordSent(StateFO)
	}
	assert.Equal(t, StateSO, c.State)
}

func TestDemoteFromSOGoesToFO(t *testing.T) {
	c, err := NewContext(4)
	require.NoError(t, err)
	c.State = StateSO
	c.Demote()
	assert.Equal(t, StateFO, c.State)
	assert.Equal(t, 0, c.FOCount)
}

func TestPeriodicRefreshForcesIR(t *testing.T) {
	c, err := NewContext(4)
	require.NoError(t, err)
	c.State = StateSO
	c.SinceIR = DefaultIRTimeout
	c.CheckPeriodicRefresh(DefaultIRTimeout, DefaultFOTimeout)
	assert.Equal(t, StateIR, c.State)
}

func TestChooseFOPrefersIRDynWhenSIDUnstable(t *testing.T) {
	d := Decision{OuterIPv4: true, OuterSIDStable: false, SNBits: 5}
	assert.Equal(t, PacketIRDyn, ChooseFO(d))
}

func TestChooseFOPrefersIRDynWhenInnerSIDUnstable(t *testing.T) {
	d := Decision{OuterIPv4: true, OuterSIDStable: true, TwoIPHeaders: true, InnerIPv4: true, InnerSIDStable: false, SendStatic: true, SNBits: 5}
	assert.Equal(t, PacketIRDyn, ChooseFO(d))
}

func TestChooseFODoesNotForceIRDynOnStableNonIPv4Inner(t *testing.T) {
	d := Decision{OuterIPv4: true, OuterSIDStable: true, TwoIPHeaders: true, InnerIPv4: false, InnerSIDStable: false, SendStatic: true, SNBits: 5}
	assert.Equal(t, PacketUOR2, ChooseFO(d))
}

func TestChooseFOPicksIRDynWhenManyDynamicFieldsChangedSingleHeader(t *testing.T) {
	d := Decision{OuterIPv4: true, OuterSIDStable: true, SendDynamic: 3, SNBits: 5}
	assert.Equal(t, PacketIRDyn, ChooseFO(d))
}

func TestChooseFOPicksUOR2WhenStaticChangedAndSNFits(t *testing.T) {
	d := Decision{OuterSIDStable: true, SendStatic: true, SNBits: 10}
	assert.Equal(t, PacketUOR2, ChooseFO(d))
}

func TestChooseSOPicksUO0WhenSmallAndNoIPID(t *testing.T) {
	d := Decision{SNBits: 3, OuterIPIDBits: 0, InnerIPIDBits: 0}
	assert.Equal(t, PacketUO0, ChooseSO(d))
}

func TestChooseSOPicksUO1WhenIPIDNeedsFewBits(t *testing.T) {
	d := Decision{SNBits: 5, OuterIPIDBits: 5, OuterIPv4: true}
	assert.Equal(t, PacketUO1, ChooseSO(d))
}

func TestChooseSOPicksUO1IDForRTP(t *testing.T) {
	d := Decision{SNBits: 5, OuterIPIDBits: 5, OuterIPv4: true, IsRTP: true}
	assert.Equal(t, PacketUO1ID, ChooseSO(d))
}

func TestChooseSOFallsBackToIRDynWhenSNTooLarge(t *testing.T) {
	d := Decision{SNBits: 14}
	assert.Equal(t, PacketIRDyn, ChooseSO(d))
}

func TestRTPAwareUOR2PrefersTSWhenStable(t *testing.T) {
	d := Decision{IsRTP: true, TSStable: true, TSChanging: false, SNBits: 10}
	assert.Equal(t, PacketUOR2TS, ChooseFO(Decision{OuterSIDStable: true, SendStatic: true, SNBits: 10, IsRTP: true, TSStable: true}))
	_ = d
}

package pktbuf_test

import (
	"testing"

	"github.com/pktgraph/pktgraph/core/testenv"
	"github.com/pktgraph/pktgraph/pktbuf"
)

var makeAR = testenv.MakeAR

func TestPool(t *testing.T) {
	assert, require := makeAR(t)

	p := pktbuf.NewPool(pktbuf.PoolConfig{Capacity: 4, Dataroom: 128})

	_, e := p.Alloc(200)
	assert.ErrorIs(e, pktbuf.ErrDataroom)

	vec := make(pktbuf.Vector, 3)
	require.NoError(p.AllocBulk(vec, 60))
	assert.Equal(180, vec.Len())
	assert.Equal(3, p.Counters().InUse)

	vec2 := make(pktbuf.Vector, 2)
	assert.ErrorIs(p.AllocBulk(vec2, 60), pktbuf.ErrNoMem)
	assert.Equal(3, p.Counters().InUse)

	copy(vec[0].Bytes(), []byte{0xA0, 0xA1})
	clone, e := vec[0].Clone()
	require.NoError(e)
	assert.Equal(vec[0].Bytes(), clone.Bytes())
	assert.Equal(4, p.Counters().InUse)

	_, e = p.Alloc(1)
	assert.ErrorIs(e, pktbuf.ErrNoMem)

	clone.Close()
	vec.Close()
	assert.Nil(vec[0])
	cnt := p.Counters()
	assert.Equal(0, cnt.InUse)
	assert.EqualValues(4, cnt.Alloc)
	assert.EqualValues(4, cnt.Free)

	pkt, e := p.Alloc(128)
	require.NoError(e)
	assert.Equal(128, pkt.Len())
	pkt.Close()
}

func TestStandalone(t *testing.T) {
	assert, require := makeAR(t)

	pkt := pktbuf.New([]byte{0x01, 0x02, 0x03})
	assert.Equal(3, pkt.Len())
	clone, e := pkt.Clone()
	require.NoError(e)
	clone.Bytes()[0] = 0xFF
	assert.Equal(byte(0x01), pkt.Bytes()[0])
	assert.NoError(pkt.Close())
	assert.Equal(0, pkt.Len())
}

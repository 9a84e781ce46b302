package espnow

import (
	"testing"

	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/temoto/envnode/helpers"
)

func TestPacketEncode(t *testing.T) {
	t.Parallel()
	p := Packet{
		Header: Header{
			NodeID:     0x07,
			Seq:        0x0102,
			Total:      2,
			Index:      1,
			PayloadLen: 3,
			CRC:        0xbeef,
		},
		Payload: []byte{0x01, 0x02, 0x03},
	}
	expect := []byte{0x07, 0x02, 0x01, 0x02, 0x01, 0x03, 0x00, 0xef, 0xbe, 0x01, 0x02, 0x03}
	assert.Equal(t, expect, p.Encode(nil))
}

func TestPacketDecode(t *testing.T) {
	t.Parallel()
	frame := []byte{0x07, 0x02, 0x01, 0x02, 0x01, 0x03, 0x00, 0xef, 0xbe, 0x01, 0x02, 0x03}
	p, err := DecodePacket(frame)
	require.NoError(t, err)
	assert.Equal(t, uint8(0x07), p.NodeID)
	assert.Equal(t, uint16(0x0102), p.Seq)
	assert.Equal(t, uint8(2), p.Total)
	assert.Equal(t, uint8(1), p.Index)
	assert.Equal(t, uint16(3), p.PayloadLen)
	assert.Equal(t, uint16(0xbeef), p.CRC)
	assert.Equal(t, []byte{0x01, 0x02, 0x03}, p.Payload)

	// trailing bytes beyond the declared payload are ignored
	p2, err := DecodePacket(append(frame, 0xff, 0xff))
	require.NoError(t, err)
	assert.Equal(t, p.Payload, p2.Payload)
}

func TestPacketDecodeErrors(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name  string
		frame []byte
	}{
		{"empty", nil},
		{"short-header", []byte{0x07, 0x01, 0x00, 0x01}},
		{"payload-over-limit", []byte{0x07, 0x01, 0x00, 0x01, 0x00, 0xc9, 0x00, 0x00, 0x00}},
		{"truncated-payload", []byte{0x07, 0x01, 0x00, 0x01, 0x00, 0x05, 0x00, 0x00, 0x00, 0x01, 0x02}},
	}
	for _, c := range cases {
		c := c
		t.Run(c.name, func(t *testing.T) {
			_, err := DecodePacket(c.frame)
			assert.True(t, errors.IsNotValid(err), "frame=%x err=%v", c.frame, err)
		})
	}
}

func TestPacketCRC(t *testing.T) {
	t.Parallel()
	p := Packet{
		Header:  Header{NodeID: 1, Seq: 1, Total: 1, Index: 0, PayloadLen: 4, CRC: 0xe6ea},
		Payload: []byte{0xde, 0xad, 0xbe, 0xef},
	}
	assert.True(t, p.CheckCRC())
	p.Payload = []byte{0xde, 0xad, 0xbe, 0xee}
	assert.False(t, p.CheckCRC())
}

func TestFragment(t *testing.T) {
	t.Parallel()
	rand := helpers.RandUnix()
	data := make([]byte, 450)
	_, _ = rand.Read(data)

	a := &sendArena{}
	require.NoError(t, a.fragment(9, 33, data))
	require.Equal(t, 3, a.count)
	lengths := []int{MaxPayload, MaxPayload, 50}
	for i := 0; i < a.count; i++ {
		p, err := DecodePacket(a.frames[i])
		require.NoError(t, err, "chunk=%d", i)
		assert.Equal(t, uint8(9), p.NodeID)
		assert.Equal(t, uint16(33), p.Seq)
		assert.Equal(t, uint8(3), p.Total)
		assert.Equal(t, uint8(i), p.Index)
		assert.Equal(t, lengths[i], int(p.PayloadLen))
		assert.Equal(t, data[i*MaxPayload:i*MaxPayload+lengths[i]], p.Payload)
		assert.True(t, p.CheckCRC(), "chunk=%d", i)
	}
}

func TestFragmentLimit(t *testing.T) {
	t.Parallel()
	a := &sendArena{}
	require.NoError(t, a.fragment(1, 1, make([]byte, MaxMessage)))
	assert.Equal(t, MaxFragments, a.count)

	err := a.fragment(1, 2, make([]byte, MaxMessage+1))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "over 32 limit")
}

func TestParseMAC(t *testing.T) {
	t.Parallel()
	m, err := ParseMAC("24:6f:28:ae:01:c4")
	require.NoError(t, err)
	assert.Equal(t, MAC{0x24, 0x6f, 0x28, 0xae, 0x01, 0xc4}, m)
	assert.Equal(t, "24:6f:28:ae:01:c4", m.String())

	_, err = ParseMAC("not-a-mac")
	assert.True(t, errors.IsNotValid(err))
	_, err = ParseMAC("02:00:5e:10:00:00:00:01") // 8 byte EUI-64
	assert.True(t, errors.IsNotValid(err))

	assert.Equal(t, "ff:ff:ff:ff:ff:ff", Broadcast.String())
}

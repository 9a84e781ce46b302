package espnow

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/temoto/envnode/log2"
)

var testPeer = MAC{0x24, 0x6f, 0x28, 0xae, 0x01, 0xc4}

func testDriver(t testing.TB, config Config) (*Driver, *MockRadio) {
	if config.SendTimeout == 0 {
		config.SendTimeout = 5 * time.Millisecond
	}
	radio := &MockRadio{}
	d := NewDriver(config, radio, log2.NewTest(t, log2.LDebug))
	require.NoError(t, d.Init())
	return d, radio
}

func TestInitDouble(t *testing.T) {
	t.Parallel()
	d, _ := testDriver(t, Config{NodeID: 1})
	err := d.Init()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already initialized")
}

func TestInitEncrypt(t *testing.T) {
	t.Parallel()
	radio := &MockRadio{}
	pmk := []byte("0123456789abcdef")
	d := NewDriver(Config{NodeID: 1, Encrypt: true, PMK: pmk}, radio, log2.NewTest(t, log2.LDebug))
	require.NoError(t, d.Init())
	assert.Equal(t, pmk, radio.PMK)
}

func TestInitPMKInvalid(t *testing.T) {
	t.Parallel()
	d := NewDriver(Config{NodeID: 1, Encrypt: true, PMK: []byte("short")}, &MockRadio{}, log2.NewTest(t, log2.LDebug))
	err := d.Init()
	assert.True(t, errors.IsNotValid(err), "err=%v", err)
}

func TestInitPMKRejected(t *testing.T) {
	t.Parallel()
	radio := &MockRadio{PMKErr: errors.New("mock pmk")}
	d := NewDriver(Config{NodeID: 1, Encrypt: true, PMK: []byte("0123456789abcdef")}, radio, log2.NewTest(t, log2.LDebug))
	err := d.Init()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "espnow set pmk")
}

func TestInitChannelErrorTolerated(t *testing.T) {
	t.Parallel()
	radio := &MockRadio{ChannelErr: errors.New("mock channel")}
	d := NewDriver(Config{NodeID: 1, Channel: 6}, radio, log2.NewTest(t, log2.LDebug))
	require.NoError(t, d.Init())
	require.NoError(t, d.Send(testPeer, []byte("x")))
}

func TestSendSingleFrame(t *testing.T) {
	t.Parallel()
	d, radio := testDriver(t, Config{NodeID: 7})
	require.NoError(t, d.Send(testPeer, []byte{0xde, 0xad, 0xbe, 0xef}))

	sent := radio.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, testPeer, sent[0].Dest)
	p, err := DecodePacket(sent[0].Frame)
	require.NoError(t, err)
	assert.Equal(t, uint8(7), p.NodeID)
	assert.Equal(t, uint16(1), p.Seq)
	assert.Equal(t, uint8(1), p.Total)
	assert.Equal(t, uint8(0), p.Index)
	assert.Equal(t, []byte{0xde, 0xad, 0xbe, 0xef}, p.Payload)
	assert.True(t, p.CheckCRC())

	stat := d.Stat()
	assert.Equal(t, uint32(1), stat.TxFrames)
	assert.Equal(t, uint32(1), stat.TxMessages)
	assert.Equal(t, uint32(0), stat.TxRetries)
	assert.Equal(t, SendStateIdle, d.SendState())
}

func TestSendFragments(t *testing.T) {
	t.Parallel()
	d, radio := testDriver(t, Config{NodeID: 3})
	data := make([]byte, MaxPayload+50)
	for i := range data {
		data[i] = byte(i)
	}
	require.NoError(t, d.Send(testPeer, data))

	sent := radio.Sent()
	require.Len(t, sent, 2)
	for i, lens := range []int{MaxPayload, 50} {
		p, err := DecodePacket(sent[i].Frame)
		require.NoError(t, err)
		assert.Equal(t, uint16(1), p.Seq)
		assert.Equal(t, uint8(2), p.Total)
		assert.Equal(t, uint8(i), p.Index)
		assert.Equal(t, lens, int(p.PayloadLen))
	}
}

func TestSendSequence(t *testing.T) {
	t.Parallel()
	d, radio := testDriver(t, Config{NodeID: 1})
	require.NoError(t, d.Send(testPeer, []byte("one")))
	require.NoError(t, d.Send(testPeer, []byte("two")))
	sent := radio.Sent()
	require.Len(t, sent, 2)
	p1, _ := DecodePacket(sent[0].Frame)
	p2, _ := DecodePacket(sent[1].Frame)
	assert.Equal(t, uint16(1), p1.Seq)
	assert.Equal(t, uint16(2), p2.Seq)
}

func TestSendRetryOnNack(t *testing.T) {
	t.Parallel()
	d, radio := testDriver(t, Config{NodeID: 1, MaxRetries: 3})
	radio.Script(MockAck(false), MockAck(true))
	require.NoError(t, d.Send(testPeer, []byte("retry me")))
	stat := d.Stat()
	assert.Equal(t, uint32(2), stat.TxFrames)
	assert.Equal(t, uint32(1), stat.TxRetries)
	assert.Equal(t, uint32(1), stat.TxMessages)
}

func TestSendRetryOnRadioError(t *testing.T) {
	t.Parallel()
	d, radio := testDriver(t, Config{NodeID: 1, MaxRetries: 3})
	radio.Script(MockOutcome{Err: errors.New("mock busy")}, MockAck(true))
	require.NoError(t, d.Send(testPeer, []byte("x")))
	assert.Equal(t, uint32(1), d.Stat().TxRetries)
}

func TestSendTimeoutExhaustsRetries(t *testing.T) {
	t.Parallel()
	d, radio := testDriver(t, Config{NodeID: 1, MaxRetries: 1, SendTimeout: 2 * time.Millisecond})
	// no ack ever arrives
	radio.Script(MockOutcome{}, MockOutcome{})
	err := d.Send(testPeer, []byte("lost"))
	assert.True(t, errors.IsTimeout(err), "err=%v", err)
	assert.Contains(t, err.Error(), "chunk=1/1")
	assert.Equal(t, uint32(2), d.Stat().TxFrames)
	assert.Equal(t, SendStateFailed, d.SendState())
}

func TestSendFragmentAborts(t *testing.T) {
	t.Parallel()
	d, radio := testDriver(t, Config{NodeID: 1, MaxRetries: 0, SendTimeout: 2 * time.Millisecond})
	// first chunk delivered, second one lost
	radio.Script(MockAck(true), MockOutcome{})
	err := d.Send(testPeer, make([]byte, MaxPayload+1))
	assert.True(t, errors.IsTimeout(err), "err=%v", err)
	assert.Contains(t, err.Error(), "chunk=2/2")
	// no third frame after abort
	assert.Len(t, radio.Sent(), 2)
}

func TestSendErrors(t *testing.T) {
	t.Parallel()
	d, _ := testDriver(t, Config{NodeID: 1})

	err := d.Send(testPeer, nil)
	assert.True(t, errors.IsNotValid(err), "err=%v", err)

	err = d.Send(testPeer, make([]byte, MaxMessage+1))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "over 32 limit")

	require.NoError(t, d.Deinit())
	err = d.Send(testPeer, []byte("x"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not initialized")
}

func TestSendConcurrent(t *testing.T) {
	t.Parallel()
	d, radio := testDriver(t, Config{NodeID: 1})
	wg := sync.WaitGroup{}
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, d.Send(testPeer, []byte(fmt.Sprintf("msg-%d", i))))
		}(i)
	}
	wg.Wait()
	assert.Len(t, radio.Sent(), 4)
	assert.Equal(t, uint32(4), d.Stat().TxMessages)
}

func TestSendDoneCallback(t *testing.T) {
	t.Parallel()
	d, radio := testDriver(t, Config{NodeID: 1, MaxRetries: 0, SendTimeout: 2 * time.Millisecond})
	type done struct {
		dest MAC
		ok   bool
	}
	dones := make([]done, 0, 2)
	d.RegisterSendDone(func(dest MAC, ok bool) { dones = append(dones, done{dest, ok}) })

	require.NoError(t, d.Send(testPeer, []byte("x")))
	radio.Script(MockOutcome{})
	require.Error(t, d.Send(testPeer, []byte("y")))

	require.Len(t, dones, 2)
	assert.Equal(t, done{testPeer, true}, dones[0])
	assert.Equal(t, done{testPeer, false}, dones[1])
}

func TestBroadcast(t *testing.T) {
	t.Parallel()
	d, radio := testDriver(t, Config{NodeID: 1})
	require.NoError(t, d.Broadcast([]byte("hello all")))
	sent := radio.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, Broadcast, sent[0].Dest)
}

func TestReceive(t *testing.T) {
	t.Parallel()
	d, radio := testDriver(t, Config{NodeID: 1})
	type recv struct {
		src     MAC
		p       Packet
		payload []byte
		rssi    int8
	}
	got := make([]recv, 0, 1)
	d.RegisterReceive(func(src MAC, p Packet, rssi int8) {
		got = append(got, recv{src, p, append([]byte(nil), p.Payload...), rssi})
	})

	a := &sendArena{}
	require.NoError(t, a.fragment(5, 42, []byte{0xde, 0xad, 0xbe, 0xef}))
	radio.Inject(testPeer, a.frames[0], -61)

	require.Len(t, got, 1)
	assert.Equal(t, testPeer, got[0].src)
	assert.Equal(t, []byte{0xde, 0xad, 0xbe, 0xef}, got[0].payload)
	assert.Equal(t, uint8(5), got[0].p.NodeID)
	assert.Equal(t, uint16(42), got[0].p.Seq)
	assert.Equal(t, uint8(1), got[0].p.Total)
	assert.Equal(t, uint8(0), got[0].p.Index)
	assert.Equal(t, int8(-61), got[0].rssi)
	assert.Equal(t, int8(-61), d.LastRSSI())
	assert.Equal(t, uint32(1), d.Stat().RxFrames)
}

func TestReceiveDropShort(t *testing.T) {
	t.Parallel()
	d, radio := testDriver(t, Config{NodeID: 1})
	called := false
	d.RegisterReceive(func(MAC, Packet, int8) { called = true })
	radio.Inject(testPeer, []byte{0x01, 0x02, 0x03}, -70)
	assert.False(t, called)
	assert.Equal(t, uint32(1), d.Stat().RxDropShort)
	// rssi is recorded even for dropped frames
	assert.Equal(t, int8(-70), d.LastRSSI())
}

func TestReceiveDropCRC(t *testing.T) {
	t.Parallel()
	d, radio := testDriver(t, Config{NodeID: 1})
	called := false
	d.RegisterReceive(func(MAC, Packet, int8) { called = true })

	a := &sendArena{}
	require.NoError(t, a.fragment(5, 43, []byte("payload")))
	frame := append([]byte(nil), a.frames[0]...)
	frame[len(frame)-1] ^= 0xff
	radio.Inject(testPeer, frame, -55)

	assert.False(t, called)
	assert.Equal(t, uint32(1), d.Stat().RxDropCRC)
	assert.Equal(t, uint32(0), d.Stat().RxFrames)
}

func TestPeers(t *testing.T) {
	t.Parallel()
	d, _ := testDriver(t, Config{NodeID: 1})

	require.NoError(t, d.AddPeer(Peer{MAC: testPeer, Channel: 1}))
	// duplicate add is fine
	require.NoError(t, d.AddPeer(Peer{MAC: testPeer, Channel: 1}))
	require.Len(t, d.Peers(), 1)

	for i := 1; i < MaxPeers; i++ {
		m := MAC{0x02, 0, 0, 0, 0, byte(i)}
		require.NoError(t, d.AddPeer(Peer{MAC: m, Channel: 1}))
	}
	err := d.AddPeer(Peer{MAC: MAC{0x02, 0, 0, 0, 1, 0}, Channel: 1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "peer table full")

	require.NoError(t, d.RemovePeer(testPeer))
	require.Len(t, d.Peers(), MaxPeers-1)
	require.Error(t, d.RemovePeer(testPeer))
}

func TestPeerLMKInvalid(t *testing.T) {
	t.Parallel()
	d, _ := testDriver(t, Config{NodeID: 1})
	err := d.AddPeer(Peer{MAC: testPeer, Encrypt: true, LMK: []byte("short")})
	assert.True(t, errors.IsNotValid(err), "err=%v", err)
}

func TestWaitSendDone(t *testing.T) {
	t.Parallel()
	d, radio := testDriver(t, Config{NodeID: 1, MaxRetries: 0, SendTimeout: 50 * time.Millisecond})
	require.NoError(t, d.Send(testPeer, []byte("x")))
	require.NoError(t, d.WaitSendDone(time.Millisecond))

	radio.Script(MockOutcome{})
	go func() { _ = d.Send(testPeer, []byte("slow")) }()
	time.Sleep(10 * time.Millisecond)
	err := d.WaitSendDone(5 * time.Millisecond)
	assert.True(t, errors.IsTimeout(err), "err=%v", err)

	err = d.WaitSendDone(200 * time.Millisecond)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "last send failed")
}

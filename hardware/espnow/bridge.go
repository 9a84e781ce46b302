package espnow

import (
	"net"
	"sync"

	"github.com/juju/errors"
	"github.com/temoto/alive/v2"
	"github.com/temoto/envnode/log2"
)

// Bridge datagram types. The radio itself lives on a separate ESP32 bridge
// board, this end talks to it over UDP with 1-byte-typed datagrams.
const (
	bridgeDataOut    = 0x01 // node->bridge [dest6][frame]
	bridgeDataIn     = 0x02 // bridge->node [src6][rssi1][frame]
	bridgeAddPeer    = 0x03 // node->bridge [mac6][channel1][encrypt1][lmk16]
	bridgeDelPeer    = 0x04 // node->bridge [mac6]
	bridgeSetChannel = 0x05 // node->bridge [channel1]
	bridgeSetPMK     = 0x06 // node->bridge [pmk16]
	bridgeSendResult = 0x07 // bridge->node [dest6][ok1]
)

const bridgeReadBuffer = 1500

// BridgeRadio is the production Radio implementation. Frame delivery and
// send results arrive on the reader goroutine, callbacks must be quick.
type BridgeRadio struct {
	log   *log2.Log
	addr  string
	alive *alive.Alive
	conn  *net.UDPConn

	cbMu         sync.Mutex
	onSendResult func(dest MAC, ok bool)
	onReceive    func(src MAC, frame []byte, rssi int8)
}

var _ Radio = &BridgeRadio{}

func NewBridgeRadio(addr string, log *log2.Log) *BridgeRadio {
	return &BridgeRadio{log: log, addr: addr}
}

func (b *BridgeRadio) Init() error {
	if b.conn != nil {
		return errors.Errorf("bridge: already initialized")
	}
	udpAddr, err := net.ResolveUDPAddr("udp", b.addr)
	if err != nil {
		return errors.Annotatef(err, "bridge addr=%s", b.addr)
	}
	conn, err := net.DialUDP("udp", nil, udpAddr)
	if err != nil {
		return errors.Annotatef(err, "bridge dial addr=%s", b.addr)
	}
	b.conn = conn
	b.alive = alive.NewAlive()
	b.alive.Add(1)
	go b.reader()
	b.log.Debugf("bridge: connected addr=%s local=%s", b.addr, conn.LocalAddr())
	return nil
}

func (b *BridgeRadio) Deinit() error {
	if b.conn == nil {
		return errors.Errorf("bridge: not initialized")
	}
	b.alive.Stop()
	err := b.conn.Close()
	b.alive.Wait()
	b.conn = nil
	return errors.Annotate(err, "bridge close")
}

func (b *BridgeRadio) SetChannel(channel uint8) error {
	return b.write([]byte{bridgeSetChannel, channel})
}

func (b *BridgeRadio) SetPMK(pmk []byte) error {
	if len(pmk) != 16 {
		return errors.NotValidf("bridge pmk length=%d", len(pmk))
	}
	return b.write(append([]byte{bridgeSetPMK}, pmk...))
}

func (b *BridgeRadio) AddPeer(p Peer) error {
	buf := make([]byte, 0, 1+6+1+1+16)
	buf = append(buf, bridgeAddPeer)
	buf = append(buf, p.MAC[:]...)
	buf = append(buf, p.Channel)
	if p.Encrypt {
		if len(p.LMK) != 16 {
			return errors.NotValidf("bridge peer=%s lmk length=%d", p.MAC, len(p.LMK))
		}
		buf = append(buf, 1)
		buf = append(buf, p.LMK...)
	} else {
		buf = append(buf, 0)
		buf = append(buf, make([]byte, 16)...)
	}
	return b.write(buf)
}

func (b *BridgeRadio) DelPeer(mac MAC) error {
	return b.write(append([]byte{bridgeDelPeer}, mac[:]...))
}

func (b *BridgeRadio) Send(dest MAC, frame []byte) error {
	buf := make([]byte, 0, 1+6+len(frame))
	buf = append(buf, bridgeDataOut)
	buf = append(buf, dest[:]...)
	buf = append(buf, frame...)
	return b.write(buf)
}

func (b *BridgeRadio) OnSendResult(fun func(dest MAC, ok bool)) {
	b.cbMu.Lock()
	b.onSendResult = fun
	b.cbMu.Unlock()
}

func (b *BridgeRadio) OnReceive(fun func(src MAC, frame []byte, rssi int8)) {
	b.cbMu.Lock()
	b.onReceive = fun
	b.cbMu.Unlock()
}

func (b *BridgeRadio) write(buf []byte) error {
	if b.conn == nil {
		return errors.Errorf("bridge: not initialized")
	}
	_, err := b.conn.Write(buf)
	return errors.Annotatef(err, "bridge write type=%02x", buf[0])
}

func (b *BridgeRadio) reader() {
	defer b.alive.Done()

	buf := make([]byte, bridgeReadBuffer)
	for b.alive.IsRunning() {
		n, err := b.conn.Read(buf)
		if err != nil {
			if b.alive.IsRunning() {
				b.log.Errorf("bridge: read: %s", err)
				b.alive.Stop()
			}
			return
		}
		b.dispatch(buf[:n])
	}
}

func (b *BridgeRadio) dispatch(dgram []byte) {
	if len(dgram) < 1 {
		return
	}
	switch dgram[0] {
	case bridgeDataIn:
		if len(dgram) < 1+6+1 {
			b.log.Errorf("bridge: short data-in len=%d", len(dgram))
			return
		}
		var src MAC
		copy(src[:], dgram[1:7])
		rssi := int8(dgram[7])
		b.cbMu.Lock()
		fun := b.onReceive
		b.cbMu.Unlock()
		if fun != nil {
			fun(src, dgram[8:], rssi)
		}

	case bridgeSendResult:
		if len(dgram) < 1+6+1 {
			b.log.Errorf("bridge: short send-result len=%d", len(dgram))
			return
		}
		var dest MAC
		copy(dest[:], dgram[1:7])
		b.cbMu.Lock()
		fun := b.onSendResult
		b.cbMu.Unlock()
		if fun != nil {
			fun(dest, dgram[7] == 1)
		}

	default:
		b.log.Errorf("bridge: unknown datagram type=%02x len=%d", dgram[0], len(dgram))
	}
}

package espnow

import "github.com/juju/errors"

// ErrPeerExists is returned by Radio.AddPeer for an already registered
// address. Driver treats it as success.
var ErrPeerExists = errors.New("espnow: peer exists")

// Peer is one known radio neighbor.
type Peer struct {
	MAC     MAC
	Channel uint8
	Encrypt bool
	// LMK is the 16 byte pairwise key, required when Encrypt is set.
	LMK []byte
}

// RecvFunc receives one CRC-validated frame with its header, so the
// consumer can reassemble fragmented messages. Payload memory is only
// valid during the call.
type RecvFunc func(src MAC, p Packet, rssi int8)

// SendDoneFunc reports the outcome of one whole Send or Broadcast.
type SendDoneFunc func(dest MAC, ok bool)

// Radio is the low level frame port. Implementations deliver frames to
// the OnReceive callback and ack transmit outcomes through OnSendResult,
// both possibly from their own goroutines.
type Radio interface {
	Init() error
	Deinit() error
	SetChannel(channel uint8) error
	SetPMK(pmk []byte) error
	AddPeer(p Peer) error
	DelPeer(mac MAC) error
	// Send queues one frame to dest. The delivery outcome arrives
	// asynchronously via OnSendResult.
	Send(dest MAC, frame []byte) error
	OnSendResult(fun func(dest MAC, ok bool))
	OnReceive(fun func(src MAC, frame []byte, rssi int8))
}

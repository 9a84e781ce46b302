package espnow

import (
	"sync"

	"github.com/juju/errors"
)

// MockOutcome scripts one MockRadio.Send call.
type MockOutcome struct {
	// Err is returned from Send itself, no callback follows.
	Err error
	// Ack is reported through the send result callback. nil means the
	// callback never fires and the sender times out.
	Ack *bool
}

func MockAck(ok bool) MockOutcome { return MockOutcome{Ack: &ok} }

// MockRadio records frames and plays scripted outcomes. Zero value is
// ready to use, without a script every Send acks success.
type MockRadio struct {
	mu     sync.Mutex
	script []MockOutcome
	sent   []MockSent
	peers  map[MAC]Peer

	InitErr    error
	ChannelErr error
	PMKErr     error

	Channel uint8
	PMK     []byte

	onSendResult func(dest MAC, ok bool)
	onReceive    func(src MAC, frame []byte, rssi int8)
}

type MockSent struct {
	Dest  MAC
	Frame []byte
}

func (m *MockRadio) Init() error   { return m.InitErr }
func (m *MockRadio) Deinit() error { return nil }

func (m *MockRadio) SetChannel(channel uint8) error {
	if m.ChannelErr != nil {
		return m.ChannelErr
	}
	m.Channel = channel
	return nil
}

func (m *MockRadio) SetPMK(pmk []byte) error {
	if m.PMKErr != nil {
		return m.PMKErr
	}
	m.PMK = append([]byte(nil), pmk...)
	return nil
}

func (m *MockRadio) AddPeer(p Peer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.peers == nil {
		m.peers = make(map[MAC]Peer)
	}
	if _, ok := m.peers[p.MAC]; ok {
		return ErrPeerExists
	}
	m.peers[p.MAC] = p
	return nil
}

func (m *MockRadio) DelPeer(mac MAC) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.peers[mac]; !ok {
		return errors.Errorf("mock: peer=%s not found", mac)
	}
	delete(m.peers, mac)
	return nil
}

func (m *MockRadio) OnSendResult(fun func(dest MAC, ok bool)) { m.onSendResult = fun }

func (m *MockRadio) OnReceive(fun func(src MAC, frame []byte, rssi int8)) { m.onReceive = fun }

// Script queues outcomes for following Send calls.
func (m *MockRadio) Script(outcomes ...MockOutcome) {
	m.mu.Lock()
	m.script = append(m.script, outcomes...)
	m.mu.Unlock()
}

func (m *MockRadio) Send(dest MAC, frame []byte) error {
	m.mu.Lock()
	out := MockAck(true)
	if len(m.script) > 0 {
		out = m.script[0]
		m.script = m.script[1:]
	}
	m.sent = append(m.sent, MockSent{Dest: dest, Frame: append([]byte(nil), frame...)})
	cb := m.onSendResult
	m.mu.Unlock()
	if out.Err != nil {
		return out.Err
	}
	if out.Ack != nil && cb != nil {
		cb(dest, *out.Ack)
	}
	return nil
}

// Sent returns a copy of all recorded frames.
func (m *MockRadio) Sent() []MockSent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]MockSent(nil), m.sent...)
}

// Inject delivers a frame as if received over the air.
func (m *MockRadio) Inject(src MAC, frame []byte, rssi int8) {
	if m.onReceive != nil {
		m.onReceive(src, frame, rssi)
	}
}

// Package espnow implements reliable fragmented messaging over a
// connectionless peer-to-peer radio link. Messages are split into
// checksummed frames of at most MaxPayload bytes, each frame is
// retransmitted with exponential backoff until the radio acks delivery
// or retries run out. Reassembly is left to the consumer, frames carry
// enough header to do it.
package espnow

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/juju/errors"
	"github.com/temoto/envnode/helpers/cacheval"
	"github.com/temoto/envnode/log2"
)

const (
	// MaxPeers bounds the driver peer table.
	MaxPeers = 10

	DefaultChannel     = 1
	DefaultSendTimeout = 100 * time.Millisecond
	DefaultMaxRetries  = 3

	// gateTimeout bounds waiting for a concurrent Send to finish.
	gateTimeout = 5 * time.Second

	// interFrameDelay paces fragments of one message so slow receivers
	// keep up.
	interFrameDelay = 10 * time.Millisecond

	// rssiValid bounds the age of the signal level reported by LastRSSI.
	rssiValid = 5 * time.Minute
)

type SendState int32

const (
	SendStateIdle SendState = iota
	SendStateSending
	SendStateSuccess
	SendStateFailed
)

func (s SendState) String() string {
	switch s {
	case SendStateIdle:
		return "idle"
	case SendStateSending:
		return "sending"
	case SendStateSuccess:
		return "success"
	case SendStateFailed:
		return "failed"
	}
	return "unknown"
}

type Config struct {
	NodeID  uint8
	Channel uint8
	Encrypt bool
	// PMK is the 16 byte network master key, required when Encrypt is set.
	PMK []byte
	// SendTimeout is the per-frame ack wait. Default 100ms.
	SendTimeout time.Duration
	// MaxRetries is the number of retransmits per frame after the first
	// attempt. Default 3, total 4 attempts.
	MaxRetries int
}

type Stat struct {
	TxFrames    uint32
	TxRetries   uint32
	TxMessages  uint32
	RxFrames    uint32
	RxDropShort uint32
	RxDropCRC   uint32
}

// Driver serializes sends through the arena gate and dispatches received
// frames to the registered callback. Init/Deinit and callback
// registration must be done from a single goroutine, everything else is
// safe for concurrent use.
type Driver struct {
	Log *log2.Log

	config Config
	radio  Radio

	// gate holds the single send arena. Receiving the arena is the
	// exclusive right to transmit, sending it back releases that right.
	gate  chan *sendArena
	ackCh chan bool
	seq   uint16

	state    int32
	sending  int32
	lastRSSI cacheval.Int32
	stat     Stat

	peersMu sync.Mutex
	peers   map[MAC]Peer

	recvCb     RecvFunc
	sendDoneCb SendDoneFunc

	initialized bool
}

func NewDriver(config Config, radio Radio, log *log2.Log) *Driver {
	if config.Channel == 0 {
		config.Channel = DefaultChannel
	}
	if config.SendTimeout == 0 {
		config.SendTimeout = DefaultSendTimeout
	}
	if config.MaxRetries < 0 {
		config.MaxRetries = 0
	}
	d := &Driver{
		Log:    log,
		config: config,
		radio:  radio,
		gate:   make(chan *sendArena, 1),
		ackCh:  make(chan bool, 1),
		peers:  make(map[MAC]Peer, MaxPeers),
	}
	d.lastRSSI.Init(rssiValid)
	d.gate <- &sendArena{}
	return d
}

func (d *Driver) Config() Config { return d.config }

// RegisterReceive sets the payload callback. It is invoked from the
// radio receive context, keep it short.
func (d *Driver) RegisterReceive(fun RecvFunc) { d.recvCb = fun }

// RegisterSendDone sets the per-message outcome callback.
func (d *Driver) RegisterSendDone(fun SendDoneFunc) { d.sendDoneCb = fun }

func (d *Driver) Init() error {
	if d.initialized {
		return errors.Errorf("espnow: already initialized")
	}
	if d.config.Encrypt && len(d.config.PMK) != 16 {
		return errors.NotValidf("espnow pmk length=%d", len(d.config.PMK))
	}
	if err := d.radio.Init(); err != nil {
		return errors.Annotate(err, "espnow radio init")
	}
	if err := d.radio.SetChannel(d.config.Channel); err != nil {
		// Radio may be pinned to another channel by a concurrent role,
		// sending still works on whatever channel is active.
		d.Log.Errorf("espnow: set channel=%d: %s", d.config.Channel, err)
	}
	if d.config.Encrypt {
		if err := d.radio.SetPMK(d.config.PMK); err != nil {
			_ = d.radio.Deinit()
			return errors.Annotate(err, "espnow set pmk")
		}
	}
	d.radio.OnSendResult(d.onSendResult)
	d.radio.OnReceive(d.onReceive)
	d.setState(SendStateIdle)
	d.initialized = true
	d.Log.Debugf("espnow: init node=%d channel=%d encrypt=%t", d.config.NodeID, d.config.Channel, d.config.Encrypt)
	return nil
}

func (d *Driver) Deinit() error {
	if !d.initialized {
		return errors.Errorf("espnow: not initialized")
	}
	err := d.radio.Deinit()
	d.radio.OnSendResult(nil)
	d.radio.OnReceive(nil)
	d.initialized = false
	return errors.Annotate(err, "espnow radio deinit")
}

func (d *Driver) AddPeer(p Peer) error {
	if !d.initialized {
		return errors.Errorf("espnow: not initialized")
	}
	if p.Encrypt && len(p.LMK) != 16 {
		return errors.NotValidf("espnow peer=%s lmk length=%d", p.MAC, len(p.LMK))
	}
	d.peersMu.Lock()
	defer d.peersMu.Unlock()
	if _, ok := d.peers[p.MAC]; !ok && len(d.peers) >= MaxPeers {
		return errors.Errorf("espnow: peer table full max=%d", MaxPeers)
	}
	if err := d.radio.AddPeer(p); err != nil {
		if errors.Cause(err) == ErrPeerExists {
			d.Log.Debugf("espnow: peer=%s already registered", p.MAC)
		} else {
			return errors.Annotatef(err, "espnow add peer=%s", p.MAC)
		}
	}
	d.peers[p.MAC] = p
	d.Log.Infof("espnow: peer=%s channel=%d encrypt=%t", p.MAC, p.Channel, p.Encrypt)
	return nil
}

func (d *Driver) RemovePeer(mac MAC) error {
	if !d.initialized {
		return errors.Errorf("espnow: not initialized")
	}
	d.peersMu.Lock()
	defer d.peersMu.Unlock()
	if err := d.radio.DelPeer(mac); err != nil {
		return errors.Annotatef(err, "espnow remove peer=%s", mac)
	}
	delete(d.peers, mac)
	return nil
}

// Peers returns the registered peers sorted by address.
func (d *Driver) Peers() []Peer {
	d.peersMu.Lock()
	ps := make([]Peer, 0, len(d.peers))
	for _, p := range d.peers {
		ps = append(ps, p)
	}
	d.peersMu.Unlock()
	sort.Slice(ps, func(i, j int) bool {
		for k := 0; k < len(MAC{}); k++ {
			if ps[i].MAC[k] != ps[j].MAC[k] {
				return ps[i].MAC[k] < ps[j].MAC[k]
			}
		}
		return false
	})
	return ps
}

// Send fragments data and transmits each frame reliably, in order, to
// dest. Blocks until the whole message is delivered or fails. Concurrent
// calls wait for the gate up to gateTimeout.
func (d *Driver) Send(dest MAC, data []byte) error {
	if !d.initialized {
		return errors.Errorf("espnow: not initialized")
	}
	if len(data) == 0 {
		return errors.NotValidf("espnow send: empty message")
	}

	var arena *sendArena
	tmr := time.NewTimer(gateTimeout)
	select {
	case arena = <-d.gate:
		tmr.Stop()
	case <-tmr.C:
		return errors.Timeoutf("espnow send to=%s: another send in progress", dest)
	}
	defer func() { d.gate <- arena }()

	d.seq++
	if err := arena.fragment(d.config.NodeID, d.seq, data); err != nil {
		return errors.Trace(err)
	}
	d.Log.Debugf("espnow: send to=%s length=%d chunks=%d seq=%d", dest, len(data), arena.count, d.seq)

	atomic.StoreInt32(&d.sending, 1)
	var result error
	for i := 0; i < arena.count; i++ {
		if err := d.sendFrame(dest, arena.frames[i]); err != nil {
			result = errors.Annotatef(err, "espnow send to=%s seq=%d chunk=%d/%d", dest, d.seq, i+1, arena.count)
			break
		}
		if i != arena.count-1 {
			time.Sleep(interFrameDelay)
		}
	}
	if result == nil {
		atomic.AddUint32(&d.stat.TxMessages, 1)
		d.setState(SendStateIdle)
	} else {
		d.setState(SendStateFailed)
	}
	atomic.StoreInt32(&d.sending, 0)
	if d.sendDoneCb != nil {
		d.sendDoneCb(dest, result == nil)
	}
	return result
}

// Broadcast sends to every peer on the channel. Without a unicast
// destination the radio cannot ack, delivery is best effort.
func (d *Driver) Broadcast(data []byte) error {
	return d.Send(Broadcast, data)
}

// sendFrame transmits one frame with retries. Attempt n (from 1) that
// fails or times out sleeps 10ms<<n before the next try.
func (d *Driver) sendFrame(dest MAC, frame []byte) error {
	retry := 0
	for retry <= d.config.MaxRetries {
		select { // drop stale ack from a timed out attempt
		case <-d.ackCh:
		default:
		}
		d.setState(SendStateSending)
		atomic.AddUint32(&d.stat.TxFrames, 1)
		if err := d.radio.Send(dest, frame); err != nil {
			d.Log.Errorf("espnow: radio send to=%s: %s", dest, err)
			retry++
			atomic.AddUint32(&d.stat.TxRetries, 1)
			time.Sleep(backoffDelay(retry))
			continue
		}
		tmr := time.NewTimer(d.config.SendTimeout)
		select {
		case ok := <-d.ackCh:
			tmr.Stop()
			if ok {
				return nil
			}
			d.Log.Debugf("espnow: radio nack to=%s retry=%d", dest, retry)
		case <-tmr.C:
			d.Log.Debugf("espnow: ack timeout to=%s retry=%d", dest, retry)
		}
		retry++
		atomic.AddUint32(&d.stat.TxRetries, 1)
		time.Sleep(backoffDelay(retry))
	}
	return errors.Timeoutf("frame not delivered after %d attempts", d.config.MaxRetries+1)
}

func backoffDelay(retry int) time.Duration {
	return 10 * time.Millisecond << uint(retry)
}

func (d *Driver) onSendResult(dest MAC, ok bool) {
	if ok {
		d.setState(SendStateSuccess)
	} else {
		d.setState(SendStateFailed)
	}
	select {
	case d.ackCh <- ok:
	default:
	}
}

func (d *Driver) onReceive(src MAC, frame []byte, rssi int8) {
	d.lastRSSI.Set(int32(rssi))
	p, err := DecodePacket(frame)
	if err != nil {
		atomic.AddUint32(&d.stat.RxDropShort, 1)
		d.Log.Errorf("espnow: recv from=%s length=%d: %s", src, len(frame), err)
		return
	}
	if !p.CheckCRC() {
		atomic.AddUint32(&d.stat.RxDropCRC, 1)
		d.Log.Errorf("espnow: recv from=%s crc mismatch %s", src, p.Format())
		return
	}
	atomic.AddUint32(&d.stat.RxFrames, 1)
	d.Log.Debugf("espnow: recv from=%s rssi=%d %s", src, rssi, p.Format())
	if d.recvCb != nil {
		d.recvCb(src, p, rssi)
	}
}

// WaitSendDone blocks until no send is in flight, then reports whether
// the last send succeeded. Useful before radio shutdown.
func (d *Driver) WaitSendDone(timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for atomic.LoadInt32(&d.sending) != 0 {
		if time.Now().After(deadline) {
			return errors.Timeoutf("espnow send still in flight after %s", timeout)
		}
		time.Sleep(10 * time.Millisecond)
	}
	if st := d.SendState(); st == SendStateFailed {
		return errors.Errorf("espnow: last send failed")
	}
	return nil
}

func (d *Driver) SendState() SendState {
	return SendState(atomic.LoadInt32(&d.state))
}

func (d *Driver) setState(s SendState) {
	atomic.StoreInt32(&d.state, int32(s))
}

// LastRSSI returns the signal strength of the most recent received
// frame, 0 when nothing was heard for rssiValid.
func (d *Driver) LastRSSI() int8 {
	if v, fresh := d.lastRSSI.GetFresh(); fresh {
		return int8(v)
	}
	return 0
}

// Stat returns a copy of the transfer counters.
func (d *Driver) Stat() Stat {
	return Stat{
		TxFrames:    atomic.LoadUint32(&d.stat.TxFrames),
		TxRetries:   atomic.LoadUint32(&d.stat.TxRetries),
		TxMessages:  atomic.LoadUint32(&d.stat.TxMessages),
		RxFrames:    atomic.LoadUint32(&d.stat.RxFrames),
		RxDropShort: atomic.LoadUint32(&d.stat.RxDropShort),
		RxDropCRC:   atomic.LoadUint32(&d.stat.RxDropCRC),
	}
}

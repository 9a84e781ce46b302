package gateway

import (
	"math/bits"
	"sync"
	"time"

	"github.com/temoto/envnode/hardware/espnow"
	"github.com/temoto/envnode/helpers/atomic_clock"
	"github.com/temoto/envnode/log2"
)

const (
	DefaultReassemblyTimeout = 60 * time.Second

	// maxPending bounds concurrent partial messages. A battery node
	// sends one message per wake so even a large fleet stays far below.
	maxPending = 16
)

type ReassemblyStat struct {
	Completed   uint32
	Duplicate   uint32
	DropInvalid uint32
	DropStale   uint32
}

type reassKey struct {
	node uint8
	seq  uint16
}

type reassEntry struct {
	total   uint8
	mask    uint32
	size    int
	parts   [][]byte
	touched *atomic_clock.Clock
}

// Reassembler collects message fragments per (node, seq) and releases
// the joined payload once every index arrived. Sequences that stall
// longer than the timeout are abandoned, frames of a finished or
// abandoned sequence start a fresh collection.
type Reassembler struct {
	log     *log2.Log
	timeout time.Duration

	mu      sync.Mutex
	entries map[reassKey]*reassEntry
	stat    ReassemblyStat
}

func NewReassembler(timeout time.Duration, log *log2.Log) *Reassembler {
	if timeout <= 0 {
		timeout = DefaultReassemblyTimeout
	}
	return &Reassembler{
		log:     log,
		timeout: timeout,
		entries: make(map[reassKey]*reassEntry, maxPending),
	}
}

// Ingest consumes one CRC-valid frame. Returns the whole message when
// this frame completes it, nil otherwise. Frame payload memory is
// copied, the returned slice is owned by the caller.
func (r *Reassembler) Ingest(p espnow.Packet) []byte {
	if p.Total == 0 || int(p.Total) > espnow.MaxFragments || p.Index >= p.Total {
		r.mu.Lock()
		r.stat.DropInvalid++
		r.mu.Unlock()
		r.log.Errorf("gateway: reassembly drop %s", p.Format())
		return nil
	}
	if p.Total == 1 {
		r.mu.Lock()
		r.stat.Completed++
		r.mu.Unlock()
		return append([]byte(nil), p.Payload...)
	}

	k := reassKey{node: p.NodeID, seq: p.Seq}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gc()

	e := r.entries[k]
	if e != nil && e.total != p.Total {
		// Node rebooted and reused the sequence number, old fragments
		// would join into garbage.
		r.log.Errorf("gateway: reassembly node=%d seq=%d total changed %d->%d restart", p.NodeID, p.Seq, e.total, p.Total)
		e = nil
	}
	if e == nil {
		if len(r.entries) >= maxPending {
			r.evictStalest()
		}
		e = &reassEntry{
			total:   p.Total,
			parts:   make([][]byte, p.Total),
			touched: atomic_clock.Now(),
		}
		r.entries[k] = e
	}

	bit := uint32(1) << uint(p.Index)
	if e.mask&bit != 0 {
		// Retransmit whose ack was lost, first copy stands.
		r.stat.Duplicate++
		e.touched.SetNow()
		return nil
	}
	e.mask |= bit
	e.parts[p.Index] = append([]byte(nil), p.Payload...)
	e.size += len(p.Payload)
	e.touched.SetNow()

	if e.mask != uint32(1)<<uint(e.total)-1 {
		return nil
	}
	delete(r.entries, k)
	buf := make([]byte, 0, e.size)
	for _, part := range e.parts {
		buf = append(buf, part...)
	}
	r.stat.Completed++
	r.log.Debugf("gateway: reassembly node=%d seq=%d complete length=%d chunks=%d", p.NodeID, p.Seq, len(buf), e.total)
	return buf
}

// Pending returns the number of incomplete sequences.
func (r *Reassembler) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

func (r *Reassembler) Stat() ReassemblyStat {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stat
}

// gc drops sequences idle longer than the timeout. Caller holds mu.
func (r *Reassembler) gc() {
	for k, e := range r.entries {
		if atomic_clock.Since(e.touched) > r.timeout {
			r.log.Errorf("gateway: reassembly node=%d seq=%d abandoned %d/%d fragments", k.node, k.seq, bits.OnesCount32(e.mask), e.total)
			delete(r.entries, k)
			r.stat.DropStale++
		}
	}
}

// evictStalest frees one slot for a new sequence. Caller holds mu.
func (r *Reassembler) evictStalest() {
	var victim reassKey
	oldest := int64(0)
	for k, e := range r.entries {
		if t := e.touched.UnixNano(); oldest == 0 || t < oldest {
			oldest = t
			victim = k
		}
	}
	if oldest != 0 {
		r.log.Errorf("gateway: reassembly node=%d seq=%d evicted, table full", victim.node, victim.seq)
		delete(r.entries, victim)
		r.stat.DropStale++
	}
}

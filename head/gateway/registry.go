package gateway

import (
	"sort"
	"sync"

	"github.com/golang/protobuf/proto"
	"github.com/juju/errors"
	"github.com/temoto/envnode/state/persist"
)

//go:generate protoc --go_out=./ state.proto

// Registry tracks every node heard on the radio. Persisted so
// last-seen survives gateway restarts.
type Registry struct {
	persist.Persist
	mu    sync.Mutex
	nodes map[uint32]*State_Node
}

func NewRegistry() *Registry {
	return &Registry{nodes: make(map[uint32]*State_Node, 16)}
}

// Update records one delivered message from a node.
func (reg *Registry) Update(nodeID uint32, rssi int32, seenUnix int64) {
	reg.mu.Lock()
	n := reg.nodes[nodeID]
	if n == nil {
		n = &State_Node{NodeId: nodeID}
		reg.nodes[nodeID] = n
	}
	n.LastSeenUnix = seenUnix
	n.LastRssi = rssi
	n.Messages++
	reg.mu.Unlock()
}

func (reg *Registry) Get(nodeID uint32) (State_Node, bool) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	if n := reg.nodes[nodeID]; n != nil {
		return *n, true
	}
	return State_Node{}, false
}

// Nodes returns a copy of all records sorted by node id.
func (reg *Registry) Nodes() []State_Node {
	reg.mu.Lock()
	ns := make([]State_Node, 0, len(reg.nodes))
	for _, n := range reg.nodes {
		ns = append(ns, *n)
	}
	reg.mu.Unlock()
	sort.Slice(ns, func(i, j int) bool { return ns[i].NodeId < ns[j].NodeId })
	return ns
}

func (reg *Registry) UnmarshalBinary(b []byte) error {
	var state State
	if err := proto.Unmarshal(b, &state); err != nil {
		return errors.Trace(err)
	}
	reg.mu.Lock()
	defer reg.mu.Unlock()
	for _, n := range state.Nodes {
		reg.nodes[n.NodeId] = &State_Node{
			NodeId:       n.NodeId,
			LastSeenUnix: n.LastSeenUnix,
			LastRssi:     n.LastRssi,
			Messages:     n.Messages,
		}
	}
	return nil
}

func (reg *Registry) MarshalBinary() ([]byte, error) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	state := State{Nodes: make([]*State_Node, 0, len(reg.nodes))}
	for _, n := range reg.nodes {
		state.Nodes = append(state.Nodes, &State_Node{
			NodeId:       n.NodeId,
			LastSeenUnix: n.LastSeenUnix,
			LastRssi:     n.LastRssi,
			Messages:     n.Messages,
		})
	}
	sort.Slice(state.Nodes, func(i, j int) bool { return state.Nodes[i].NodeId < state.Nodes[j].NodeId })
	return proto.Marshal(&state)
}

var _ persist.Stater = &Registry{}

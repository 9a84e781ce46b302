// Package gateway bridges the sensor radio network to an MQTT broker.
// Frames from battery nodes are reassembled into telemetry messages,
// recorded in a persistent node registry and republished under the same
// topics WiFi-attached nodes use, so broker consumers do not care how a
// reading traveled.
package gateway

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/256dpi/gomqtt/packet"
	"github.com/golang/protobuf/proto"
	"github.com/juju/errors"
	"github.com/temoto/alive/v2"
	"github.com/temoto/envnode/hardware/espnow"
	tele_api "github.com/temoto/envnode/head/tele/api"
	"github.com/temoto/envnode/log2"
	"github.com/temoto/envnode/state"
	"github.com/temoto/envnode/tele/mqtt"
)

const (
	DefaultTopicPrefix = "envnode"

	publishTimeout = 30 * time.Second

	// bridgeQueueDepth buffers completed messages between the radio
	// receive context and the publish worker.
	bridgeQueueDepth = 16
)

type BridgeStat struct {
	Published  uint32
	DropQueue  uint32
	DropDecode uint32
}

// Uplink is the broker side of the bridge. Implemented by mqtt.Client,
// tests substitute a recorder.
type Uplink interface {
	WaitReady(ctx context.Context) error
	Publish(ctx context.Context, msg *packet.Message) error
	Close() error
}

var _ Uplink = &mqtt.Client{}

type rxMsg struct {
	node    uint8
	rssi    int8
	payload []byte
}

type System struct {
	Log *log2.Log

	// Uplink may be preset before Start, otherwise an mqtt client is
	// built from config.
	Uplink Uplink

	g      *state.Global
	driver *espnow.Driver
	reass  *Reassembler
	reg    *Registry
	prefix string

	alive    *alive.Alive
	queue    chan rxMsg
	inflight int32
	stat     BridgeStat
}

func (sys *System) Start(ctx context.Context) error {
	g := state.GetGlobal(ctx)
	sys.g = g
	sys.Log = g.Log
	gwConfig := &g.Config.Gateway

	driver, err := g.Espnow()
	if err != nil {
		return errors.Annotate(err, "gateway espnow")
	}
	sys.driver = driver

	sys.reass = NewReassembler(time.Duration(gwConfig.ReassemblyTimeoutSec)*time.Second, g.Log)
	sys.reg = NewRegistry()
	if err := sys.reg.Persist.Init("gateway", sys.reg, g.Config.Persist.Root, true, g.Log); err != nil {
		return errors.Annotate(err, "gateway persist")
	}
	if err := sys.reg.Persist.Load(); err != nil {
		// Corrupt registry is not worth refusing to bridge.
		g.Error(errors.Annotate(err, "gateway registry load"))
	}

	sys.prefix = gwConfig.Mqtt.TopicPrefix
	if sys.prefix == "" {
		sys.prefix = DefaultTopicPrefix
	}
	if sys.Uplink == nil {
		if gwConfig.Mqtt.URL == "" {
			return errors.NotValidf("config: gateway.mqtt.url=empty")
		}
		clientID := gwConfig.Mqtt.ClientId
		if clientID == "" {
			clientID = fmt.Sprintf("envnode-gw-%d", g.Config.Node.Id)
		}
		client, err := mqtt.NewClient(mqtt.ClientOptions{
			BrokerURL: gwConfig.Mqtt.URL,
			ClientID:  clientID,
			Password:  gwConfig.Mqtt.Password,
			OnMessage: sys.onBroker,
			Log:       g.Log,
		})
		if err != nil {
			return errors.Annotate(err, "gateway mqtt")
		}
		sys.Uplink = client
	}

	sys.alive = alive.NewAlive()
	sys.queue = make(chan rxMsg, bridgeQueueDepth)
	sys.alive.Add(1)
	go sys.worker()
	sys.driver.RegisterReceive(sys.onFrame)
	sys.Log.Infof("gateway: bridging radio to mqtt prefix=%s", sys.prefix)
	return nil
}

// Registry returns the node table for status commands.
func (sys *System) Registry() *Registry { return sys.reg }

func (sys *System) Stat() BridgeStat {
	return BridgeStat{
		Published:  atomic.LoadUint32(&sys.stat.Published),
		DropQueue:  atomic.LoadUint32(&sys.stat.DropQueue),
		DropDecode: atomic.LoadUint32(&sys.stat.DropDecode),
	}
}

// WaitIdle blocks until every queued message is bridged.
func (sys *System) WaitIdle(timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for atomic.LoadInt32(&sys.inflight) > 0 {
		if time.Now().After(deadline) {
			return false
		}
		time.Sleep(10 * time.Millisecond)
	}
	return true
}

func (sys *System) Stop() {
	if sys.driver != nil {
		sys.driver.RegisterReceive(nil)
	}
	if sys.alive != nil {
		sys.alive.Stop()
		sys.alive.Wait()
	}
	if sys.Uplink != nil {
		if err := sys.Uplink.Close(); err != nil {
			sys.Log.Errorf("gateway: uplink close err=%v", err)
		}
	}
}

// onFrame runs in the radio receive context, only queue handoff here.
func (sys *System) onFrame(src espnow.MAC, p espnow.Packet, rssi int8) {
	whole := sys.reass.Ingest(p)
	if whole == nil {
		return
	}
	atomic.AddInt32(&sys.inflight, 1)
	select {
	case sys.queue <- rxMsg{node: p.NodeID, rssi: rssi, payload: whole}:
	default:
		atomic.AddInt32(&sys.inflight, -1)
		atomic.AddUint32(&sys.stat.DropQueue, 1)
		sys.Log.Errorf("gateway: queue full, message from=%s node=%d dropped", src, p.NodeID)
	}
}

// No subscriptions are requested, anything arriving here is a broker
// misconfiguration.
func (sys *System) onBroker(msg *packet.Message) error {
	sys.Log.Errorf("gateway: unexpected broker message topic=%s", msg.Topic)
	return nil
}

func (sys *System) worker() {
	defer sys.alive.Done()
	stopCh := sys.alive.StopChan()
	for {
		select {
		case m := <-sys.queue:
			sys.bridge(m)
			atomic.AddInt32(&sys.inflight, -1)

		case <-stopCh:
			return
		}
	}
}

func (sys *System) bridge(m rxMsg) {
	tm := tele_api.Telemetry{}
	if err := proto.Unmarshal(m.payload, &tm); err != nil {
		atomic.AddUint32(&sys.stat.DropDecode, 1)
		sys.g.Error(errors.Annotatef(err, "gateway: node=%d telemetry decode length=%d", m.node, len(m.payload)))
		return
	}
	nodeID := tm.NodeId
	if nodeID == 0 {
		nodeID = int32(m.node)
	} else if nodeID != int32(m.node) {
		sys.Log.Errorf("gateway: radio node=%d sent telemetry node_id=%d", m.node, nodeID)
	}

	sys.reg.Update(uint32(nodeID), int32(m.rssi), time.Now().Unix())
	if err := sys.reg.Persist.Store(); err != nil {
		sys.g.Error(errors.Annotate(err, "gateway registry store"))
	}

	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	if err := sys.Uplink.WaitReady(ctx); err != nil {
		sys.g.Error(errors.Annotatef(err, "gateway: broker not ready, node=%d message lost", nodeID))
		return
	}
	topic := fmt.Sprintf("%s/%d/w/1t", sys.prefix, nodeID)
	err := sys.Uplink.Publish(ctx, &packet.Message{
		Topic:   topic,
		Payload: m.payload,
		QOS:     packet.QOSAtLeastOnce,
		Retain:  true,
	})
	if err != nil {
		sys.g.Error(errors.Annotatef(err, "gateway: publish topic=%s", topic))
		return
	}
	atomic.AddUint32(&sys.stat.Published, 1)
	sys.Log.Debugf("gateway: node=%d rssi=%d published topic=%s length=%d", m.node, m.rssi, topic, len(m.payload))
}

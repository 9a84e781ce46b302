package mqtt

import (
	"context"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/256dpi/gomqtt/packet"
	"github.com/256dpi/gomqtt/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/temoto/alive/v2"
	"github.com/temoto/envnode/log2"
)

func TestClient(t *testing.T) {
	t.Parallel()
	const timeout = 5 * time.Second

	type tenv struct {
		addr  string
		alive *alive.Alive
		opts  ClientOptions
	}
	cases := []struct {
		name   string
		client func(t testing.TB, env *tenv)
		server func(t testing.TB, env *tenv, b *transport.NetConn)
	}{
		{"connect", func(t testing.TB, env *tenv) {
			mc, err := NewClient(env.opts)
			require.NoError(t, err)
			defer func() { _ = mc.Close() }()
			ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(timeout))
			defer cancel()
			require.NoError(t, mc.WaitReady(ctx))
		}, func(t testing.TB, env *tenv, b *transport.NetConn) {
			defer env.alive.Done()
			pkt, err := b.Receive()
			require.NoError(t, err)
			assert.Equal(t, `<Connect ClientID="" KeepAlive=0 Username="" Password="" CleanSession=true Will=nil Version=4>`, pkt.String())
			connack := packet.NewConnack()
			connack.ReturnCode = packet.ConnectionAccepted
			require.NoError(t, b.Send(connack, false))
		}},

		{"publish-qos1", func(t testing.TB, env *tenv) {
			mc, err := NewClient(env.opts)
			require.NoError(t, err)
			defer func() { _ = mc.Close() }()
			ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(timeout))
			defer cancel()
			require.NoError(t, mc.WaitReady(ctx))
			msg := &packet.Message{Topic: "envnode/7/w/1t", QOS: packet.QOSAtLeastOnce, Payload: []byte{0xca, 0xfe}}
			require.NoError(t, mc.Publish(ctx, msg))
		}, func(t testing.TB, env *tenv, b *transport.NetConn) {
			defer env.alive.Done()
			pkt, err := b.Receive()
			require.NoError(t, err)
			require.Equal(t, packet.CONNECT, pkt.Type())
			connack := packet.NewConnack()
			connack.ReturnCode = packet.ConnectionAccepted
			require.NoError(t, b.Send(connack, false))

			pkt, err = b.Receive()
			require.NoError(t, err)
			pub, ok := pkt.(*packet.Publish)
			require.True(t, ok, "expected PUBLISH got %s", PacketString(pkt))
			assert.Equal(t, "envnode/7/w/1t", pub.Message.Topic)
			assert.Equal(t, []byte{0xca, 0xfe}, pub.Message.Payload)
			puback := packet.NewPuback()
			puback.ID = pub.ID
			require.NoError(t, b.Send(puback, false))
		}},
	}
	for _, c := range cases {
		c := c
		t.Run(c.name, func(t *testing.T) {
			env := &tenv{
				alive: alive.NewAlive(),
			}
			ln, err := net.Listen("tcp", "127.0.0.1:")
			require.NoError(t, err)
			env.addr = ln.Addr().String()
			env.opts.BrokerURL = fmt.Sprintf("tcp://%s", env.addr)
			env.opts.OnMessage = func(m *packet.Message) error {
				t.Log(m.String())
				return nil
			}
			env.opts.Log = log2.NewTest(t, log2.LDebug)
			env.opts.NetworkTimeout = timeout
			env.alive.Add(1)
			go func() {
				defer env.alive.Done()
				for {
					conn, err := ln.Accept()
					if !env.alive.Add(1) {
						t.Log("env.alive stopped")
						return
					}
					require.NoError(t, err)
					require.NoError(t, conn.SetDeadline(time.Now().Add(timeout)))
					c.server(t, env, transport.NewNetConn(conn))
				}
			}()
			c.client(t, env)
			env.alive.Stop()
			_ = ln.Close()
			env.alive.Wait()
		})
	}
}

package main

import (
	"encoding/hex"
	"flag"
	"os"
	"strconv"
	"strings"
	"time"

	prompt "github.com/c-bata/go-prompt"
	"github.com/juju/errors"
	"github.com/temoto/envnode/hardware/espnow"
	"github.com/temoto/envnode/head/gateway"
	"github.com/temoto/envnode/helpers/cli"
	"github.com/temoto/envnode/log2"
)

const usage = `syntax: commands separated by whitespace
(radio)
- init             driver bring-up, start printing received messages
- peer=MAC         add peer aa:bb:cc:dd:ee:ff
- unpeer=MAC       remove peer
- peers            list peers
- send=MAC,XX...   message from hex to peer, fragmented+acked
- bcast=XX...      broadcast message from hex, best effort
- stat             transfer counters
- rssi             signal strength of last received frame
- sN               pause N milliseconds

(meta)
- log=yes|no       debug logging
`

var log = log2.NewStderr(log2.LDebug)

func main() {
	cmdline := flag.NewFlagSet(os.Args[0], flag.ExitOnError)
	dry := cmdline.Bool("dry", false, "mock radio, no hardware")
	bridge := cmdline.String("bridge", "", "UDP address of radio bridge board")
	nodeId := cmdline.Uint("node", 1, "this node id 1..255")
	channel := cmdline.Uint("channel", 1, "WiFi channel")
	timeoutMs := cmdline.Uint("timeout", 100, "per frame ack timeout, ms")
	retries := cmdline.Int("retries", 3, "per frame retransmit limit")
	cmdline.Parse(os.Args[1:])

	log.SetFlags(log2.LInteractiveFlags)

	var radio espnow.Radio
	if *dry {
		radio = &espnow.MockRadio{}
	} else if *bridge == "" {
		log.Fatalf("either -bridge address or -dry is required")
	} else {
		radio = espnow.NewBridgeRadio(*bridge, log)
	}

	drv := espnow.NewDriver(espnow.Config{
		NodeID:      uint8(*nodeId),
		Channel:     uint8(*channel),
		SendTimeout: time.Duration(*timeoutMs) * time.Millisecond,
		MaxRetries:  *retries,
	}, radio, log)

	// Incoming fragments join into whole messages like the gateway does.
	reass := gateway.NewReassembler(0, log)
	drv.RegisterReceive(func(src espnow.MAC, p espnow.Packet, rssi int8) {
		log.Infof("frame from=%s rssi=%d %s", src, rssi, p.Format())
		if msg := reass.Ingest(p); msg != nil {
			log.Infof("message node=%d length=%d payload=%x", p.NodeID, len(msg), msg)
		}
	})

	cli.MainLoop("envnode-espnow-cli", newExecutor(drv), newCompleter())
}

func newExecutor(drv *espnow.Driver) func(string) {
	return func(line string) {
		for _, word := range strings.Split(line, " ") {
			word = strings.TrimSpace(word)
			if word == "" {
				continue
			}
			if err := execWord(drv, word); err != nil {
				log.Errorf("word=%s err=%v", word, err)
				return
			}
		}
	}
}

func execWord(drv *espnow.Driver, word string) error {
	switch {
	case word == "help":
		log.Infof(usage)
	case word == "init":
		return drv.Init()
	case word == "peers":
		for _, p := range drv.Peers() {
			log.Infof("peer mac=%s channel=%d encrypt=%t", p.MAC, p.Channel, p.Encrypt)
		}
	case word == "stat":
		st := drv.Stat()
		log.Infof("tx: messages=%d frames=%d retries=%d", st.TxMessages, st.TxFrames, st.TxRetries)
		log.Infof("rx: frames=%d drop_short=%d drop_crc=%d", st.RxFrames, st.RxDropShort, st.RxDropCRC)
	case word == "rssi":
		log.Infof("rssi=%d", drv.LastRSSI())
	case word == "log=yes":
		log.SetLevel(log2.LDebug)
	case word == "log=no":
		log.SetLevel(log2.LInfo)
	case strings.HasPrefix(word, "peer="):
		mac, err := espnow.ParseMAC(word[5:])
		if err != nil {
			return err
		}
		return drv.AddPeer(espnow.Peer{MAC: mac})
	case strings.HasPrefix(word, "unpeer="):
		mac, err := espnow.ParseMAC(word[7:])
		if err != nil {
			return err
		}
		return drv.RemovePeer(mac)
	case strings.HasPrefix(word, "send="):
		parts := strings.SplitN(word[5:], ",", 2)
		if len(parts) != 2 {
			return errors.Errorf("syntax: send=MAC,XX...")
		}
		mac, err := espnow.ParseMAC(parts[0])
		if err != nil {
			return err
		}
		data, err := hex.DecodeString(parts[1])
		if err != nil {
			return errors.Annotatef(err, "hex=%s", parts[1])
		}
		return drv.Send(mac, data)
	case strings.HasPrefix(word, "bcast="):
		data, err := hex.DecodeString(word[6:])
		if err != nil {
			return errors.Annotatef(err, "hex=%s", word[6:])
		}
		return drv.Broadcast(data)
	case word[0] == 's':
		i, err := strconv.ParseUint(word[1:], 10, 32)
		if err != nil {
			return errors.Annotatef(err, "word=%s", word)
		}
		time.Sleep(time.Duration(i) * time.Millisecond)
	default:
		return errors.Errorf("unknown command, try help")
	}
	return nil
}

func newCompleter() func(d prompt.Document) []prompt.Suggest {
	suggests := []prompt.Suggest{
		prompt.Suggest{Text: "init", Description: "driver bring-up"},
		prompt.Suggest{Text: "peer=", Description: "peer=MAC add peer"},
		prompt.Suggest{Text: "unpeer=", Description: "unpeer=MAC remove peer"},
		prompt.Suggest{Text: "peers", Description: "list peers"},
		prompt.Suggest{Text: "send=", Description: "send=MAC,XX... unicast from hex"},
		prompt.Suggest{Text: "bcast=", Description: "bcast=XX... broadcast from hex"},
		prompt.Suggest{Text: "stat", Description: "transfer counters"},
		prompt.Suggest{Text: "rssi", Description: "last received signal strength"},
		prompt.Suggest{Text: "sN", Description: "pause for N ms"},
	}
	return func(d prompt.Document) []prompt.Suggest {
		return prompt.FilterFuzzy(suggests, d.GetWordBeforeCursor(), true)
	}
}

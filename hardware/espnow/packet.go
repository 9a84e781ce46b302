package espnow

import (
	"encoding/binary"
	"fmt"
	"net"

	"github.com/juju/errors"
	"github.com/temoto/envnode/crc"
)

const (
	// MaxPayload is the largest payload carried by a single radio frame.
	// The radio frame limit is 250 bytes, header overhead leaves 200 to
	// keep round numbers for fragment math.
	MaxPayload = 200

	// MaxFragments bounds the send arena. Larger messages are rejected.
	MaxFragments = 32

	// MaxMessage is the largest message Send accepts.
	MaxMessage = MaxFragments * MaxPayload

	headerSize = 9
	crcInit    = uint16(0xffff)
)

// MAC is a radio peer address.
type MAC [6]byte

// Broadcast is delivered to every peer on the channel without ack.
var Broadcast = MAC{0xff, 0xff, 0xff, 0xff, 0xff, 0xff}

func (m MAC) String() string {
	return fmt.Sprintf("%02x:%02x:%02x:%02x:%02x:%02x", m[0], m[1], m[2], m[3], m[4], m[5])
}

func ParseMAC(s string) (MAC, error) {
	m := MAC{}
	hw, err := net.ParseMAC(s)
	if err != nil {
		return m, errors.NotValidf("mac=%s", s)
	}
	if len(hw) != 6 {
		return m, errors.NotValidf("mac=%s length=%d", s, len(hw))
	}
	copy(m[:], hw)
	return m, nil
}

// Header is the packed little-endian frame prefix.
type Header struct {
	NodeID     uint8
	Seq        uint16
	Total      uint8
	Index      uint8
	PayloadLen uint16
	CRC        uint16
}

// Packet is one radio frame: header plus up to MaxPayload bytes.
// CRC covers the payload only, with crcInit seed.
type Packet struct {
	Header
	Payload []byte
}

// Encode appends the wire form of p to buf and returns the result.
func (p *Packet) Encode(buf []byte) []byte {
	buf = append(buf, p.NodeID)
	buf = append(buf, byte(p.Seq), byte(p.Seq>>8))
	buf = append(buf, p.Total, p.Index)
	buf = append(buf, byte(p.PayloadLen), byte(p.PayloadLen>>8))
	buf = append(buf, byte(p.CRC), byte(p.CRC>>8))
	buf = append(buf, p.Payload...)
	return buf
}

// DecodePacket parses a received frame. Payload references frame memory.
func DecodePacket(frame []byte) (Packet, error) {
	p := Packet{}
	if len(frame) < headerSize {
		return p, errors.NotValidf("espnow frame length=%d shorter than header", len(frame))
	}
	p.NodeID = frame[0]
	p.Seq = binary.LittleEndian.Uint16(frame[1:3])
	p.Total = frame[3]
	p.Index = frame[4]
	p.PayloadLen = binary.LittleEndian.Uint16(frame[5:7])
	p.CRC = binary.LittleEndian.Uint16(frame[7:9])
	if int(p.PayloadLen) > MaxPayload {
		return p, errors.NotValidf("espnow frame payload=%d over %d limit", p.PayloadLen, MaxPayload)
	}
	if len(frame) < headerSize+int(p.PayloadLen) {
		return p, errors.NotValidf("espnow frame length=%d payload=%d truncated", len(frame), p.PayloadLen)
	}
	p.Payload = frame[headerSize : headerSize+int(p.PayloadLen)]
	return p, nil
}

// CheckCRC recomputes the payload checksum against the header field.
func (p *Packet) CheckCRC() bool {
	return crc.CRC16(crcInit, p.Payload) == p.CRC
}

func (p *Packet) Format() string {
	return fmt.Sprintf("node=%d seq=%d chunk=%d/%d len=%d crc=%04x",
		p.NodeID, p.Seq, p.Index+1, p.Total, p.PayloadLen, p.CRC)
}

// sendArena holds encoded fragments for one message. Exactly one arena
// exists per Driver and possession of it (via the gate channel) is the
// exclusive right to transmit.
type sendArena struct {
	count  int
	frames [MaxFragments][]byte
	bufs   [MaxFragments][headerSize + MaxPayload]byte
}

// fragment splits data into checksummed frames inside the arena.
func (a *sendArena) fragment(nodeID uint8, seq uint16, data []byte) error {
	total := (len(data) + MaxPayload - 1) / MaxPayload
	if total > MaxFragments {
		return errors.Errorf("espnow message length=%d needs %d fragments over %d limit", len(data), total, MaxFragments)
	}
	a.count = total
	for i := 0; i < total; i++ {
		chunk := data[i*MaxPayload:]
		if len(chunk) > MaxPayload {
			chunk = chunk[:MaxPayload]
		}
		p := Packet{
			Header: Header{
				NodeID:     nodeID,
				Seq:        seq,
				Total:      uint8(total),
				Index:      uint8(i),
				PayloadLen: uint16(len(chunk)),
				CRC:        crc.CRC16(crcInit, chunk),
			},
			Payload: chunk,
		}
		a.frames[i] = p.Encode(a.bufs[i][:0])
	}
	return nil
}

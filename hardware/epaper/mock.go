package epaper

import (
	"fmt"
	"strings"
	"time"
)

// MockTransport records the panel command stream for tests and the
// epaper-cli dry mode. Scripted errors fire on matching commands.
type MockTransport struct {
	Ops []MockOp

	CommandErr map[byte]error
	DataErr    error
	BusyErr    error
	ResetErr   error
	PowerErr   error
}

type MockOp struct {
	Kind MockOpKind
	Cmd  byte
	Data []byte
	On   bool // for power ops
}

type MockOpKind uint8

const (
	MockCommand MockOpKind = iota
	MockData
	MockReset
	MockBusyWait
	MockPower
)

func NewMockTransport() *MockTransport { return &MockTransport{} }

func (m *MockTransport) Command(cmd byte, data ...byte) error {
	d := make([]byte, len(data))
	copy(d, data)
	m.Ops = append(m.Ops, MockOp{Kind: MockCommand, Cmd: cmd, Data: d})
	if err, ok := m.CommandErr[cmd]; ok {
		return err
	}
	return nil
}

func (m *MockTransport) Data(b []byte) error {
	d := make([]byte, len(b))
	copy(d, b)
	m.Ops = append(m.Ops, MockOp{Kind: MockData, Data: d})
	return m.DataErr
}

func (m *MockTransport) Reset() error {
	m.Ops = append(m.Ops, MockOp{Kind: MockReset})
	return m.ResetErr
}

func (m *MockTransport) BusyWait(timeout time.Duration) error {
	m.Ops = append(m.Ops, MockOp{Kind: MockBusyWait})
	return m.BusyErr
}

func (m *MockTransport) Power(on bool) error {
	m.Ops = append(m.Ops, MockOp{Kind: MockPower, On: on})
	return m.PowerErr
}

func (m *MockTransport) Close() error { return nil }

// Script returns the recorded stream in compact form for asserts:
// "reset,busy,cmd12,busy,cmd01:270100,...". Data longer than 8 bytes is
// folded to its length.
func (m *MockTransport) Script() string {
	parts := make([]string, 0, len(m.Ops))
	for _, op := range m.Ops {
		switch op.Kind {
		case MockCommand:
			s := fmt.Sprintf("cmd%02x", op.Cmd)
			if len(op.Data) > 0 {
				s += ":" + fmt.Sprintf("%x", op.Data)
			}
			parts = append(parts, s)
		case MockData:
			if len(op.Data) > 8 {
				parts = append(parts, fmt.Sprintf("data(%dB)", len(op.Data)))
			} else {
				parts = append(parts, fmt.Sprintf("data:%x", op.Data))
			}
		case MockReset:
			parts = append(parts, "reset")
		case MockBusyWait:
			parts = append(parts, "busy")
		case MockPower:
			parts = append(parts, fmt.Sprintf("power=%t", op.On))
		}
	}
	return strings.Join(parts, ",")
}

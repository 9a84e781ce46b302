package i2c

import "sync"

// MockTx records one Tx call against the mock bus. R holds the bytes
// served into the read buffer, if any.
type MockTx struct {
	Addr byte
	W    []byte
	R    []byte
}

// MockResponse scripts one Tx call outcome.
type MockResponse struct {
	R   []byte
	Err error
}

// MockBus plays scripted responses and records traffic. Zero value is
// usable, unscripted reads return zero bytes.
type MockBus struct {
	mu     sync.Mutex
	script []MockResponse
	txs    []MockTx
}

var _ I2CBus = &MockBus{}

func (m *MockBus) Init() error  { return nil }
func (m *MockBus) Close() error { return nil }

// Script queues responses for following Tx calls.
func (m *MockBus) Script(rs ...MockResponse) {
	m.mu.Lock()
	m.script = append(m.script, rs...)
	m.mu.Unlock()
}

func (m *MockBus) Tx(addr byte, bw []byte, br []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	resp := MockResponse{}
	if len(m.script) > 0 {
		resp = m.script[0]
		m.script = m.script[1:]
	}
	if resp.Err != nil {
		return resp.Err
	}
	tx := MockTx{Addr: addr, W: append([]byte(nil), bw...)}
	if br != nil {
		n := copy(br, resp.R)
		for i := n; i < len(br); i++ {
			br[i] = 0
		}
		tx.R = append([]byte(nil), br...)
	}
	m.txs = append(m.txs, tx)
	return nil
}

// Txs returns a copy of recorded traffic.
func (m *MockBus) Txs() []MockTx {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]MockTx(nil), m.txs...)
}

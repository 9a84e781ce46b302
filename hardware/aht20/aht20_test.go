package aht20

import (
	"testing"

	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/temoto/envnode/hardware/i2c"
	"github.com/temoto/envnode/log2"
)

func testSensor(t testing.TB) (*Sensor, *i2c.MockBus) {
	bus := &i2c.MockBus{}
	return NewSensor(bus, log2.NewTest(t, log2.LDebug)), bus
}

func TestInitCommands(t *testing.T) {
	t.Parallel()
	s, bus := testSensor(t)
	require.NoError(t, s.Init())
	txs := bus.Txs()
	require.Len(t, txs, 2)
	assert.Equal(t, Addr, txs[0].Addr)
	assert.Equal(t, []byte{0xba}, txs[0].W)
	assert.Equal(t, []byte{0xbe, 0x08, 0x00}, txs[1].W)
}

func TestMeasure(t *testing.T) {
	t.Parallel()
	s, bus := testSensor(t)
	require.NoError(t, s.Init())

	// humidity raw 0x80000 = 50%, temperature raw 0x60000 = 25C
	bus.Script(
		i2c.MockResponse{}, // trigger write
		i2c.MockResponse{R: []byte{0x18, 0x80, 0x00, 0x06, 0x00, 0x00}},
	)
	m, err := s.Measure()
	require.NoError(t, err)
	assert.InDelta(t, 25.0, m.Temperature, 0.01)
	assert.InDelta(t, 50.0, m.Humidity, 0.01)
	assert.Equal(t, "temp=25.0C rh=50.0%", m.String())

	txs := bus.Txs()
	require.Len(t, txs, 4)
	assert.Equal(t, []byte{0xac, 0x33, 0x00}, txs[2].W)
	assert.Len(t, txs[3].R, 6)
}

func TestMeasureBusyRetry(t *testing.T) {
	t.Parallel()
	s, bus := testSensor(t)
	require.NoError(t, s.Init())

	bus.Script(
		i2c.MockResponse{}, // trigger
		i2c.MockResponse{R: []byte{0x98, 0x00, 0x00, 0x00, 0x00, 0x00}}, // busy
		i2c.MockResponse{R: []byte{0x18, 0x80, 0x00, 0x06, 0x00, 0x00}},
	)
	m, err := s.Measure()
	require.NoError(t, err)
	assert.InDelta(t, 25.0, m.Temperature, 0.01)
	require.Len(t, bus.Txs(), 5)
}

func TestMeasureBusyTimeout(t *testing.T) {
	t.Parallel()
	s, bus := testSensor(t)
	require.NoError(t, s.Init())

	busy := i2c.MockResponse{R: []byte{0x98, 0x00, 0x00, 0x00, 0x00, 0x00}}
	bus.Script(i2c.MockResponse{}, busy, busy)
	_, err := s.Measure()
	assert.True(t, errors.IsTimeout(err), "err=%v", err)
}

func TestMeasureNotInitialized(t *testing.T) {
	t.Parallel()
	s, _ := testSensor(t)
	_, err := s.Measure()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not initialized")
}

func TestInitBusError(t *testing.T) {
	t.Parallel()
	s, bus := testSensor(t)
	bus.Script(i2c.MockResponse{Err: errors.New("mock nack")})
	err := s.Init()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "aht20 soft reset")
	_, err = s.Measure()
	require.Error(t, err)
}

func TestMeasureCached(t *testing.T) {
	t.Parallel()
	s, bus := testSensor(t)
	require.NoError(t, s.Init())

	bus.Script(
		i2c.MockResponse{},
		i2c.MockResponse{R: []byte{0x18, 0x80, 0x00, 0x06, 0x00, 0x00}},
	)
	m1, err := s.Measure()
	require.NoError(t, err)
	// second read within MinInterval must not touch the sensor
	m2, err := s.Measure()
	require.NoError(t, err)
	assert.Equal(t, m1.Temperature, m2.Temperature)
	assert.Equal(t, m1.Humidity, m2.Humidity)
	require.Len(t, bus.Txs(), 4)
}

func TestMeasureRange(t *testing.T) {
	t.Parallel()
	s, bus := testSensor(t)
	s.CacheValid = -1 // every Measure converts
	require.NoError(t, s.Init())

	// all-ones raw values are the sensor ceiling: 100% and 150C
	bus.Script(
		i2c.MockResponse{},
		i2c.MockResponse{R: []byte{0x18, 0xff, 0xff, 0xff, 0xff, 0xff}},
	)
	m, err := s.Measure()
	require.NoError(t, err)
	assert.InDelta(t, 100.0, m.Humidity, 0.01)
	assert.InDelta(t, 150.0, m.Temperature, 0.01)

	// all-zero raw is 0% and -50C
	bus.Script(
		i2c.MockResponse{},
		i2c.MockResponse{R: []byte{0x18, 0x00, 0x00, 0x00, 0x00, 0x00}},
	)
	m, err = s.Measure()
	require.NoError(t, err)
	assert.InDelta(t, 0.0, m.Humidity, 0.01)
	assert.InDelta(t, -50.0, m.Temperature, 0.01)
}

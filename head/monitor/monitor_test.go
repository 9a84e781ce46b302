package monitor

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/temoto/envnode/hardware/i2c"
	tele_api "github.com/temoto/envnode/head/tele/api"
	state_new "github.com/temoto/envnode/state/new"
)

func TestMeasureAllSensors(t *testing.T) {
	t.Parallel()
	ctx, g := state_new.NewTestContext(t, `
monitor {
  env { enable = true }
  battery { enable = true adc_channel = 0 }
  soil { enable = true adc_channel = 1 }
}`)
	bus := &i2c.MockBus{}
	bus.Script(
		i2c.MockResponse{}, // reset
		i2c.MockResponse{}, // calibrate
		i2c.MockResponse{}, // trigger
		i2c.MockResponse{R: []byte{0x18, 0x80, 0x00, 0x06, 0x00, 0x00}}, // 25C 50%
	)
	g.SetI2CBus(bus)

	adc := &MockADC{}
	adc.Set(0, 1.95) // times divider 2.0 = 3.9V pack
	adc.Set(1, 2.0)  // halfway dry=3.0 wet=1.0
	sys := &System{ADC: adc, Rssi: func() int32 { return -55 }}
	require.NoError(t, sys.Start(ctx))
	defer sys.Stop()

	r := sys.Measure()
	assert.InDelta(t, 25.0, r.TemperatureC, 0.01)
	assert.InDelta(t, 50.0, r.HumidityPct, 0.01)
	assert.InDelta(t, 3.9, r.BatteryVolt, 0.001)
	assert.InDelta(t, 75.0, r.BatteryPct, 0.01)
	assert.InDelta(t, 50.0, r.SoilPct, 0.01)
	assert.Equal(t, int32(-55), r.Rssi)
	assert.False(t, r.LowBattery)
}

func TestCycleDelivers(t *testing.T) {
	t.Parallel()
	ctx, _ := state_new.NewTestContext(t, `
node { measure_count = 2 }
monitor {
  interval_sec = 1
  battery { enable = true adc_channel = 0 }
}`)
	adc := &MockADC{}
	adc.Set(0, 2.1) // 4.2V = full
	sys := &System{ADC: adc}
	require.NoError(t, sys.Start(ctx))
	defer sys.Stop()

	mu := sync.Mutex{}
	got := make([]*tele_api.Telemetry_Reading, 0, 4)
	sys.Subscribe("test", func(r *tele_api.Telemetry_Reading) {
		mu.Lock()
		got = append(got, r)
		mu.Unlock()
	})

	sys.Cycle()
	require.True(t, sys.WaitForCompletion(5*time.Second))
	mu.Lock()
	assert.Len(t, got, 2)
	mu.Unlock()
	last := sys.Latest()
	require.NotNil(t, last)
	assert.InDelta(t, 100.0, last.BatteryPct, 0.01)
}

func TestCycleStop(t *testing.T) {
	t.Parallel()
	ctx, _ := state_new.NewTestContext(t, `
node { measure_count = 100 }
monitor {
  interval_sec = 60
  battery { enable = true adc_channel = 0 }
}`)
	adc := &MockADC{}
	adc.Set(0, 1.8)
	sys := &System{ADC: adc}
	require.NoError(t, sys.Start(ctx))

	readingCh := make(chan *tele_api.Telemetry_Reading, 1)
	sys.Subscribe("test", func(r *tele_api.Telemetry_Reading) {
		select {
		case readingCh <- r:
		default:
		}
	})
	sys.Cycle()
	select {
	case <-readingCh:
	case <-time.After(5 * time.Second):
		t.Fatal("no reading")
	}
	sys.Stop()
	assert.True(t, sys.WaitForCompletion(time.Second))
}

func TestBatteryLow(t *testing.T) {
	t.Parallel()
	ctx, _ := state_new.NewTestContext(t, `
monitor { battery { enable = true adc_channel = 0 } }`)
	adc := &MockADC{}
	adc.Set(0, 1.55) // 3.1V is under the default 3.2 threshold
	sys := &System{ADC: adc}
	require.NoError(t, sys.Start(ctx))
	defer sys.Stop()

	r := sys.Measure()
	assert.True(t, r.LowBattery)
	assert.InDelta(t, 3.1, r.BatteryVolt, 0.001)
	assert.InDelta(t, 8.33, r.BatteryPct, 0.01)
}

func TestSensorErrorDegrades(t *testing.T) {
	t.Parallel()
	ctx, _ := state_new.NewTestContext(t, `
monitor {
  battery { enable = true adc_channel = 0 }
  soil { enable = true adc_channel = 1 }
}`)
	adc := &MockADC{}
	adc.Set(0, 2.0) // soil channel left unset, read errors
	sys := &System{ADC: adc}
	require.NoError(t, sys.Start(ctx))
	defer sys.Stop()

	r := sys.Measure()
	assert.InDelta(t, 4.0, r.BatteryVolt, 0.001)
	assert.Zero(t, r.SoilPct)
}

func TestSoilPowerChipMissing(t *testing.T) {
	t.Parallel()
	ctx, _ := state_new.NewTestContext(t, `
monitor {
  battery { enable = true adc_channel = 0 }
  soil {
    enable = true
    adc_channel = 1
    power_pin_chip = "/dev/envnode-test-nonexistent"
    power_pin = "7"
  }
}`)
	adc := &MockADC{}
	adc.Set(0, 1.9)
	adc.Set(1, 1.5)
	sys := &System{ADC: adc}
	// soil bring-up fails, node continues with remaining sensors
	require.NoError(t, sys.Start(ctx))
	defer sys.Stop()

	r := sys.Measure()
	assert.InDelta(t, 3.8, r.BatteryVolt, 0.001)
	assert.Zero(t, r.SoilPct)
}

func TestAdcRequired(t *testing.T) {
	t.Parallel()
	ctx, _ := state_new.NewTestContext(t, `
monitor { battery { enable = true } }`)
	sys := &System{}
	err := sys.Start(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "monitor.adc.device")
}

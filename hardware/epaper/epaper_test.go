package epaper

import (
	"testing"

	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/temoto/envnode/log2"
)

func testDriver(t testing.TB, model Model) (*Driver, *MockTransport) {
	cfg, err := DefaultConfig(model)
	require.NoError(t, err)
	mock := NewMockTransport()
	return NewDriver(cfg, mock, log2.NewTest(t, log2.LDebug)), mock
}

func TestDefaultConfig(t *testing.T) {
	t.Parallel()
	cases := []struct {
		model Model
		w, h  uint16
	}{
		{Model154, 200, 200},
		{Model213, 122, 250},
		{Model290, 128, 296},
		{Model420, 400, 300},
	}
	for _, c := range cases {
		cfg, err := DefaultConfig(c.model)
		require.NoError(t, err)
		assert.Equal(t, c.w, cfg.Width)
		assert.Equal(t, c.h, cfg.Height)
		assert.True(t, cfg.Partial)
		assert.Equal(t, uint32(10), cfg.FullInterval)
	}
	_, err := DefaultConfig(Model(99))
	assert.True(t, errors.IsNotSupported(err), "got %v", err)
}

func TestParseModel(t *testing.T) {
	t.Parallel()
	m, err := ParseModel("213")
	require.NoError(t, err)
	assert.Equal(t, Model213, m)
	_, err = ParseModel("3.14")
	assert.True(t, errors.IsNotSupported(err))
}

func TestInitScript213(t *testing.T) {
	t.Parallel()
	d, mock := testDriver(t, Model213)
	require.NoError(t, d.Init())
	assert.Equal(t,
		"power=true,reset,busy,cmd12,busy,cmd01:270100,cmd11:03,cmd44:000f,cmd45:00002701,cmd3c:05,cmd21:0080,cmd18:80,busy",
		mock.Script())
}

func TestInitScript154(t *testing.T) {
	t.Parallel()
	d, mock := testDriver(t, Model154)
	require.NoError(t, d.Init())
	assert.Equal(t,
		"power=true,reset,busy,cmd12,busy,cmd01:c70000,cmd11:03,cmd44:0018,cmd45:0000c700,cmd3c:01,cmd18:80,cmd22:b1,cmd20,busy",
		mock.Script())
}

func TestInitUnsupportedModel(t *testing.T) {
	t.Parallel()
	d, _ := testDriver(t, Model290)
	err := d.Init()
	assert.True(t, errors.IsNotSupported(err), "got %v", err)
	assert.Nil(t, d.FB())
}

func TestInitBusyTimeout(t *testing.T) {
	t.Parallel()
	d, mock := testDriver(t, Model213)
	mock.BusyErr = errors.Timeoutf("epaper busy")
	err := d.Init()
	require.Error(t, err)
	assert.True(t, errors.IsTimeout(err), "got %v", err)
	assert.Nil(t, d.FB(), "failed init must release the framebuffer")
	assert.Error(t, d.Update(false))
}

func TestUpdateScript213(t *testing.T) {
	t.Parallel()
	d, mock := testDriver(t, Model213)
	require.NoError(t, d.Init())
	mock.Ops = nil
	require.NoError(t, d.Update(false))
	assert.Equal(t,
		"cmd4e:00,cmd4f:0000,cmd26,data(4000B),cmd4e:00,cmd4f:0000,cmd24,data(4000B),cmd22:ff,cmd20,busy",
		mock.Script())

	mock.Ops = nil
	require.NoError(t, d.Update(true))
	assert.Equal(t,
		"cmd4e:00,cmd4f:0000,cmd26,data(4000B),cmd4e:00,cmd4f:0000,cmd24,data(4000B),cmd22:f7,cmd20,busy",
		mock.Script())
}

func TestUpdateScript154(t *testing.T) {
	t.Parallel()
	d, mock := testDriver(t, Model154)
	require.NoError(t, d.Init())

	mock.Ops = nil
	require.NoError(t, d.Update(false))
	assert.Equal(t,
		"cmd4e:00,cmd4f:0000,cmd24,data(5000B),cmd22:ff,cmd20,busy",
		mock.Script())

	mock.Ops = nil
	require.NoError(t, d.Update(true))
	assert.Equal(t,
		"cmd4e:00,cmd4f:0000,cmd24,data(5000B),cmd26,data(5000B),cmd22:f7,cmd20,busy",
		mock.Script())
}

func TestUpdateSendsFramebufferBytes(t *testing.T) {
	t.Parallel()
	d, mock := testDriver(t, Model213)
	require.NoError(t, d.Init())
	require.NoError(t, d.SetPixel(0, 0, ColorBlack))
	mock.Ops = nil
	require.NoError(t, d.Update(false))
	var datas [][]byte
	for _, op := range mock.Ops {
		if op.Kind == MockData {
			datas = append(datas, op.Data)
		}
	}
	require.Len(t, datas, 2)
	assert.Equal(t, byte(0x7f), datas[0][0])
	assert.Equal(t, byte(0x7f), datas[1][0])
}

func TestUpdateCounter(t *testing.T) {
	t.Parallel()
	cfg, err := DefaultConfig(Model213)
	require.NoError(t, err)
	cfg.FullInterval = 2
	mock := NewMockTransport()
	d := NewDriver(cfg, mock, log2.NewTest(t, log2.LDebug))
	require.NoError(t, d.Init())
	mock.Ops = nil

	for i := 0; i < 5; i++ {
		require.NoError(t, d.Update(false))
	}
	var modes []byte
	for _, op := range mock.Ops {
		if op.Kind == MockCommand && op.Cmd == cmdUpdateControl2 {
			modes = append(modes, op.Data[0])
		}
	}
	// counter resets on the full refresh and starts over
	assert.Equal(t, []byte{0xff, 0xff, 0xf7, 0xff, 0xff}, modes)
}

func TestUpdatePartialDisabled(t *testing.T) {
	t.Parallel()
	cfg, err := DefaultConfig(Model213)
	require.NoError(t, err)
	cfg.Partial = false
	mock := NewMockTransport()
	d := NewDriver(cfg, mock, log2.NewTest(t, log2.LDebug))
	require.NoError(t, d.Init())
	mock.Ops = nil

	for i := 0; i < 3; i++ {
		require.NoError(t, d.Update(false))
	}
	var modes []byte
	for _, op := range mock.Ops {
		if op.Kind == MockCommand && op.Cmd == cmdUpdateControl2 {
			modes = append(modes, op.Data[0])
		}
	}
	assert.Equal(t, []byte{0xf7, 0xf7, 0xf7}, modes)
}

func TestUpdateNotInitialized(t *testing.T) {
	t.Parallel()
	d, _ := testDriver(t, Model213)
	err := d.Update(false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not initialized")
}

func TestPowerCycle(t *testing.T) {
	t.Parallel()
	d, mock := testDriver(t, Model213)
	require.NoError(t, d.Init())

	// bring-up leaves the panel running
	mock.Ops = nil
	require.NoError(t, d.PowerOn())
	assert.Empty(t, mock.Ops)

	require.NoError(t, d.PowerOff())
	assert.Equal(t,
		"cmd10:01,power=false",
		mock.Script(), "deep sleep command must precede rail drop")

	// idempotent
	mock.Ops = nil
	require.NoError(t, d.PowerOff())
	assert.Empty(t, mock.Ops)

	mock.Ops = nil
	require.NoError(t, d.PowerOn())
	require.True(t, len(mock.Ops) > 1)
	assert.Equal(t, MockOp{Kind: MockPower, On: true}, mock.Ops[0])
	assert.Equal(t, MockReset, mock.Ops[1].Kind, "power-on must re-run bring-up")
}

func TestPowerOnNotInitialized(t *testing.T) {
	t.Parallel()
	d, _ := testDriver(t, Model213)
	assert.Error(t, d.PowerOn())
}

func TestDeinit(t *testing.T) {
	t.Parallel()
	d, _ := testDriver(t, Model213)
	require.NoError(t, d.Deinit(), "deinit before init must be a no-op")
	require.NoError(t, d.Init())
	require.NoError(t, d.Deinit())
	assert.Nil(t, d.FB())
	require.NoError(t, d.Deinit())
}

func TestDrawNotInitialized(t *testing.T) {
	t.Parallel()
	d, _ := testDriver(t, Model213)
	assert.Error(t, d.Clear())
	assert.Error(t, d.Fill(ColorBlack))
	assert.Error(t, d.SetPixel(0, 0, ColorBlack))
	assert.Error(t, d.Line(0, 0, 1, 1, ColorBlack))
	assert.Error(t, d.Rect(0, 0, 1, 1, ColorBlack, true))
	assert.Error(t, d.Text(0, 0, "x", 1, AlignLeft))
}

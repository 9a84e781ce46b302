package monitor

import (
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/juju/errors"
)

// ADC is the analog sampling path for battery and soil probes.
// ReadVoltage returns calibrated volts at the pin, before any external
// divider is applied.
type ADC interface {
	ReadVoltage(channel int) (float64, error)
}

const iioRoot = "/sys/bus/iio/devices"

// iioADC reads the kernel industrial I/O sysfs interface:
// in_voltage<N>_raw times in_voltage_scale, scale in mV per unit.
type iioADC struct {
	root string
}

func NewIioADC(device string) (ADC, error) {
	root := filepath.Join(iioRoot, device)
	if _, err := os.Stat(root); err != nil {
		return nil, errors.Annotatef(err, "adc device=%s", device)
	}
	return &iioADC{root: root}, nil
}

func (a *iioADC) ReadVoltage(channel int) (float64, error) {
	raw, err := a.readNumber(fmt.Sprintf("in_voltage%d_raw", channel))
	if err != nil {
		return 0, errors.Annotatef(err, "adc channel=%d", channel)
	}
	scale, err := a.readNumber("in_voltage_scale")
	if err != nil {
		return 0, errors.Annotatef(err, "adc channel=%d", channel)
	}
	return raw * scale / 1000, nil
}

func (a *iioADC) readNumber(name string) (float64, error) {
	path := filepath.Join(a.root, name)
	bs, err := ioutil.ReadFile(path)
	if err != nil {
		return 0, errors.Trace(err)
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(string(bs)), 64)
	if err != nil {
		return 0, errors.NotValidf("adc file=%s content=%s", path, string(bs))
	}
	return f, nil
}

// MockADC serves preset voltages, for tests and -dry runs. Zero value is
// usable, unset channels return an error like missing hardware would.
type MockADC struct {
	mu   sync.Mutex
	volt map[int]float64
	Err  error
}

var _ ADC = &MockADC{}

func (m *MockADC) Set(channel int, volt float64) {
	m.mu.Lock()
	if m.volt == nil {
		m.volt = make(map[int]float64)
	}
	m.volt[channel] = volt
	m.mu.Unlock()
}

func (m *MockADC) ReadVoltage(channel int) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return 0, m.Err
	}
	v, ok := m.volt[channel]
	if !ok {
		return 0, errors.NotFoundf("mock adc channel=%d", channel)
	}
	return v, nil
}

package state

import (
	"path/filepath"
	"sync"

	"github.com/hashicorp/hcl"
	"github.com/juju/errors"
	tele_config "github.com/temoto/envnode/head/tele/config"
	"github.com/temoto/envnode/helpers"
	"github.com/temoto/envnode/log2"
)

type Config struct {
	// includeSeen contains absolute paths to prevent include loops
	includeSeen map[string]struct{}
	// only used for Unmarshal, do not access
	XXX_Include []ConfigSource `hcl:"include"`

	Node struct {
		Id int `hcl:"id"`
		// SleepMode selects what happens after a completed cycle:
		// "loop" sleeps in-process, "oneshot" exits for a systemd timer.
		SleepMode    string `hcl:"sleep_mode"`
		SleepSec     int    `hcl:"sleep_sec"`
		MeasureCount int    `hcl:"measure_count"`
	}

	Hardware struct {
		Epaper struct { //nolint:maligned
			Enable       bool   `hcl:"enable"`
			LogDebug     bool   `hcl:"log_debug"`
			Model        string `hcl:"model"`
			Spi          string `hcl:"spi"`
			PinChip      string `hcl:"pin_chip"`
			PinDC        string `hcl:"pin_dc"`
			PinReset     string `hcl:"pin_reset"`
			PinBusy      string `hcl:"pin_busy"`
			PinPower     string `hcl:"pin_power"`
			Rotation     int    `hcl:"rotation"`
			Partial      bool   `hcl:"partial"`
			FullInterval int    `hcl:"full_interval"`
		}
		Espnow struct { //nolint:maligned
			Enable   bool `hcl:"enable"`
			LogDebug bool `hcl:"log_debug"`
			// Bridge is the UDP address of the radio bridge board.
			Bridge        string `hcl:"bridge"`
			NodeId        int    `hcl:"node_id"`
			Channel       int    `hcl:"channel"`
			Encrypt       bool   `hcl:"encrypt"`
			PMK           string `hcl:"pmk"` // secret
			SendTimeoutMs int    `hcl:"send_timeout_ms"`
			MaxRetries    int    `hcl:"max_retries"`
			// Gateway names the peer that receives telemetry uplink.
			Gateway string       `hcl:"gateway"`
			Peers   []PeerConfig `hcl:"peer"`
		}
		I2C struct {
			Bus int `hcl:"bus"`
		} `hcl:"i2c"`
		Input struct {
			DevInputEvent struct {
				Enable bool   `hcl:"enable"`
				Device string `hcl:"device"`
			} `hcl:"dev_input_event"`
		}
	}

	Monitor struct {
		IntervalSec int `hcl:"interval_sec"`
		Adc         struct {
			// Device is the iio sysfs name, `iio:device0`.
			Device string `hcl:"device"`
		} `hcl:"adc"`
		Env struct {
			Enable bool `hcl:"enable"`
		} `hcl:"env"`
		Battery struct {
			Enable     bool    `hcl:"enable"`
			AdcChannel int     `hcl:"adc_channel"`
			Divider    float64 `hcl:"divider"`
			LowVolt    float64 `hcl:"low_volt"`
		} `hcl:"battery"`
		Soil struct { //nolint:maligned
			Enable        bool    `hcl:"enable"`
			AdcChannel    int     `hcl:"adc_channel"`
			DryVolt       float64 `hcl:"dry_volt"`
			WetVolt       float64 `hcl:"wet_volt"`
			PowerPinChip  string  `hcl:"power_pin_chip"`
			PowerPin      string  `hcl:"power_pin"`
			PowerSettleMs int     `hcl:"power_settle_ms"`
		} `hcl:"soil"`
	}

	Gateway struct {
		ReassemblyTimeoutSec int `hcl:"reassembly_timeout_sec"`
		Mqtt                 struct {
			URL         string `hcl:"url"`
			ClientId    string `hcl:"client_id"`
			Password    string `hcl:"password"` // secret
			TopicPrefix string `hcl:"topic_prefix"`
		} `hcl:"mqtt"`
	}

	Persist struct {
		Root string `hcl:"root"`
	}
	Tele tele_config.Config

	_copy_guard sync.Mutex //nolint:unused
}

type ConfigSource struct {
	Name     string `hcl:"name,key"`
	Optional bool   `hcl:"optional"`
}

// PeerConfig is one espnow neighbor, `peer "gw" { mac = "..." }`.
type PeerConfig struct {
	Name    string `hcl:"name,key"`
	MAC     string `hcl:"mac"`
	Channel int    `hcl:"channel"`
	Encrypt bool   `hcl:"encrypt"`
	LMK     string `hcl:"lmk"` // secret
}

func (c *Config) read(log *log2.Log, fs FullReader, source ConfigSource, errs *[]error) {
	norm := fs.Normalize(source.Name)
	if _, ok := c.includeSeen[norm]; ok {
		log.Fatalf("config duplicate source=%s", source.Name)
	} else {
		log.Debugf("config reading source='%s' path=%s", source.Name, norm)
	}
	c.includeSeen[source.Name] = struct{}{}
	c.includeSeen[norm] = struct{}{}

	bs, err := fs.ReadAll(norm)
	if bs == nil && err == nil {
		if !source.Optional {
			err = errors.NotFoundf("config required name=%s path=%s", source.Name, norm)
			*errs = append(*errs, err)
			return
		}
	}
	if err != nil {
		*errs = append(*errs, errors.Annotatef(err, "config source=%s", source.Name))
		return
	}

	err = hcl.Unmarshal(bs, c)
	if err != nil {
		err = errors.Annotatef(err, "config unmarshal source=%s content='%s'", source.Name, string(bs))
		*errs = append(*errs, err)
		return
	}

	var includes []ConfigSource
	includes, c.XXX_Include = c.XXX_Include, nil
	for _, include := range includes {
		includeNorm := fs.Normalize(include.Name)
		if _, ok := c.includeSeen[includeNorm]; ok {
			err = errors.Errorf("config include loop: from=%s include=%s", source.Name, include.Name)
			*errs = append(*errs, err)
			continue
		}
		c.read(log, fs, include, errs)
	}
}

func ReadConfig(log *log2.Log, fs FullReader, names ...string) (*Config, error) {
	if len(names) == 0 {
		log.Fatal("code error [Must]ReadConfig() without names")
	}

	if osfs, ok := fs.(*OsFullReader); ok {
		dir, name := filepath.Split(names[0])
		osfs.SetBase(dir)
		names[0] = name
	}
	c := &Config{
		includeSeen: make(map[string]struct{}),
	}
	errs := make([]error, 0, 8)
	for _, name := range names {
		c.read(log, fs, ConfigSource{Name: name}, &errs)
	}
	return c, helpers.FoldErrors(errs)
}

func MustReadConfig(log *log2.Log, fs FullReader, names ...string) *Config {
	c, err := ReadConfig(log, fs, names...)
	if err != nil {
		log.Fatal(errors.ErrorStack(err))
	}
	return c
}

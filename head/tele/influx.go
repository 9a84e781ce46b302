package tele

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"github.com/juju/errors"
	"github.com/temoto/alive/v2"
	tele_api "github.com/temoto/envnode/head/tele/api"
	tele_config "github.com/temoto/envnode/head/tele/config"
	"github.com/temoto/envnode/helpers"
	"github.com/temoto/envnode/log2"
)

const defaultInfluxTimeout = 10 * time.Second

const (
	influxSendTries    = 3
	influxRetryDelay   = 1 * time.Second
	influxRetryCeiling = 8 * time.Second
)

type influxPoint struct {
	reading *tele_api.Telemetry_Reading
	at      time.Time
}

// Direct line protocol uplink for nodes with IP connectivity.
// Readings also travel the regular telemetry queue, this is an extra
// sink for dashboards without a gateway in between. Writes retry a few
// times with backoff, then the point is dropped, the durable copy
// lives in the telemetry queue.
type influxSender struct {
	log      *log2.Log
	config   tele_config.Influx
	device   string
	url      string
	client   *http.Client
	queue    chan influxPoint
	alive    *alive.Alive
	inflight int32
}

func newInfluxSender(log *log2.Log, conf tele_config.Influx, nodeId int32) (*influxSender, error) {
	if conf.URL == "" {
		return nil, errors.NotValidf("config: tele.influx.url=empty")
	}
	device := conf.Device
	if device == "" {
		device = fmt.Sprintf("envnode-%d", nodeId)
	}
	self := &influxSender{
		log:    log,
		config: conf,
		device: device,
		url: fmt.Sprintf("%s/api/v2/write?org=%s&bucket=%s&precision=ns",
			strings.TrimRight(conf.URL, "/"), url.QueryEscape(conf.Org), url.QueryEscape(conf.Bucket)),
		client: &http.Client{Timeout: helpers.IntSecondDefault(conf.TimeoutSec, defaultInfluxTimeout)},
		queue:  make(chan influxPoint, 16),
		alive:  alive.NewAlive(),
	}
	self.alive.Add(1)
	go self.worker()
	return self, nil
}

func (self *influxSender) Close() {
	self.alive.Stop()
	self.alive.Wait()
}

// Push doesn't block, full queue drops the point.
func (self *influxSender) Push(r *tele_api.Telemetry_Reading, at time.Time) {
	atomic.AddInt32(&self.inflight, 1)
	select {
	case self.queue <- influxPoint{reading: r, at: at}:
	default:
		atomic.AddInt32(&self.inflight, -1)
		self.log.Errorf("influx queue full, dropped reading")
	}
}

func (self *influxSender) Empty() bool {
	return atomic.LoadInt32(&self.inflight) == 0
}

func (self *influxSender) worker() {
	defer self.alive.Done()
	stopCh := self.alive.StopChan()
	for {
		select {
		case p := <-self.queue:
			self.send(p)
			atomic.AddInt32(&self.inflight, -1)

		case <-stopCh:
			return
		}
	}
}

func (self *influxSender) send(p influxPoint) {
	retry := helpers.Backoff{Min: influxRetryDelay, Max: influxRetryCeiling, K: 2}
	for try := 1; ; try++ {
		err := self.write(p)
		if err == nil {
			return
		}
		self.log.Errorf("influx write try=%d err=%v", try, err)
		if try >= influxSendTries {
			self.log.Errorf("influx dropped reading after %d tries", influxSendTries)
			return
		}
		retry.Failure()
		if !self.sleep(retry.DelayBefore()) {
			return
		}
	}
}

func (self *influxSender) sleep(d time.Duration) bool {
	tmr := time.NewTimer(d)
	defer tmr.Stop()
	select {
	case <-tmr.C:
		return true
	case <-self.alive.StopChan():
		return false
	}
}

func (self *influxSender) write(p influxPoint) error {
	line := self.line(p)
	req, err := http.NewRequest(http.MethodPost, self.url, strings.NewReader(line))
	if err != nil {
		return errors.Annotate(err, "influx request")
	}
	req.Header.Set("Authorization", "Token "+self.config.Token)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	resp, err := self.client.Do(req)
	if err != nil {
		return errors.Annotate(err, "influx post")
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return errors.Errorf("influx http=%d line=%s", resp.StatusCode, line)
	}
	self.log.Debugf("influx ok http=%d line=%s", resp.StatusCode, line)
	return nil
}

func (self *influxSender) line(p influxPoint) string {
	r := p.reading
	return fmt.Sprintf("env_monitor,device=%s temperature_c=%.2f,humidity_pct=%.2f,soil_pct=%.2f,battery_volt=%.3f,battery_pct=%.1f,rssi=%di %d",
		self.device, r.TemperatureC, r.HumidityPct, r.SoilPct, r.BatteryVolt, r.BatteryPct, r.Rssi, p.at.UnixNano())
}

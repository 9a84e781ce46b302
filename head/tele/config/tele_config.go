// Separate package is workaround to import cycles.
package tele_config

type Config struct { //nolint:maligned
	Enabled           bool   `hcl:"enable"`
	LogDebug          bool   `hcl:"log_debug"`
	KeepaliveSec      int    `hcl:"keepalive_sec"`
	MqttBroker        string `hcl:"mqtt_broker"`
	MqttLogDebug      bool   `hcl:"mqtt_log_debug"`
	MqttPassword      string `hcl:"mqtt_password"` // secret
	NetworkTimeoutSec int    `hcl:"network_timeout_sec"`
	StateIntervalSec  int    `hcl:"state_interval_sec"`
	TlsCaFile         string `hcl:"tls_ca_file"`
	TlsPsk            string `hcl:"tls_psk"` // secret

	Influx Influx `hcl:"influx"`

	// NodeId is filled from node.id, not a tele option.
	NodeId       int    `hcl:"-"`
	PersistPath  string `hcl:"-"`
	BuildVersion string `hcl:"-"`
}

type Influx struct {
	Enable     bool   `hcl:"enable"`
	URL        string `hcl:"url"`
	Org        string `hcl:"org"`
	Bucket     string `hcl:"bucket"`
	Token      string `hcl:"token"` // secret
	Device     string `hcl:"device"`
	TimeoutSec int    `hcl:"timeout_sec"`
}

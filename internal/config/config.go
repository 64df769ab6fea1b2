// Package config loads the HCL configuration document that drives scoring
// weights, the replication transport, and the control-loop periods.
package config

import (
	"fmt"
	"os"

	"dario.cat/mergo"
	"github.com/hashicorp/hcl/v2/hclsimple"
)

// Metric holds the scoring weights and thresholds of spec section 6.
type Metric struct {
	HTSupport    int `hcl:"ht_support,optional" json:"ht_support"`
	VHTSupport   int `hcl:"vht_support,optional" json:"vht_support"`
	NoHTSupport  int `hcl:"no_ht_support,optional" json:"no_ht_support"`
	NoVHTSupport int `hcl:"no_vht_support,optional" json:"no_vht_support"`
	RSSI         int `hcl:"rssi,optional" json:"rssi"`
	LowRSSI      int `hcl:"low_rssi,optional" json:"low_rssi"`
	Freq         int `hcl:"freq,optional" json:"freq"`
	ChanUtil     int `hcl:"chan_util,optional" json:"chan_util"`
	MaxChanUtil  int `hcl:"max_chan_util,optional" json:"max_chan_util"`

	MinRSSI           int `hcl:"min_rssi,optional" json:"min_rssi"`
	RSSIThresholdHigh int `hcl:"rssi_threshold_high,optional" json:"rssi_threshold_high"`
	RSSIThresholdLow  int `hcl:"rssi_threshold_low,optional" json:"rssi_threshold_low"`
	ChanUtilLow       int `hcl:"chan_util_low,optional" json:"chan_util_low"`
	ChanUtilHigh      int `hcl:"chan_util_high,optional" json:"chan_util_high"`

	MinProbeCount       int `hcl:"min_probe_count,optional" json:"min_probe_count"`
	ChanUtilAvgPeriod   int `hcl:"chan_util_avg_period,optional" json:"chan_util_avg_period"`
	MinKickCount        int `hcl:"min_kick_count,optional" json:"min_kick_count"`
	AgeingTime          int `hcl:"ageing_time,optional" json:"ageing_time"`
	BandwidthThreshold  int `hcl:"bandwidth_threshold,optional" json:"bandwidth_threshold"`

	EvalProbeReq   bool `hcl:"eval_probe_req,optional" json:"eval_probe_req"`
	EvalAuthReq    bool `hcl:"eval_auth_req,optional" json:"eval_auth_req"`
	EvalAssocReq   bool `hcl:"eval_assoc_req,optional" json:"eval_assoc_req"`
	Kicking        bool `hcl:"kicking,optional" json:"kicking"`
	UseDriverRecog bool `hcl:"use_driver_recog,optional" json:"use_driver_recog"`

	DenyAuthReason  uint16 `hcl:"deny_auth_reason,optional" json:"deny_auth_reason"`
	DenyAssocReason uint16 `hcl:"deny_assoc_reason,optional" json:"deny_assoc_reason"`
}

// Network configures the replication transport.
type Network struct {
	Option          int    `hcl:"option,optional" json:"option"`
	IP              string `hcl:"ip,optional" json:"ip"`
	Port            int    `hcl:"port,optional" json:"port"`
	TCPPort         int    `hcl:"tcp_port,optional" json:"tcp_port"`
	UseSymmEnc      bool   `hcl:"use_symm_enc,optional" json:"use_symm_enc"`
	SharedKey       string `hcl:"shared_key,optional" json:"shared_key"`
	CollisionDomain int    `hcl:"collision_domain,optional" json:"collision_domain"`
	Bandwidth       int    `hcl:"bandwidth,optional" json:"bandwidth"`
}

// Times configures the control-loop periods, in seconds.
type Times struct {
	UpdateClient   int `hcl:"update_client,optional" json:"update_client"`
	UpdateChanUtil int `hcl:"update_chan_util,optional" json:"update_chan_util"`
	UpdateHostapd  int `hcl:"update_hostapd,optional" json:"update_hostapd"`
	UpdateTCPCon   int `hcl:"update_tcp_con,optional" json:"update_tcp_con"`
}

// Config is the full process configuration.
type Config struct {
	Metric  Metric  `hcl:"metric,block" json:"metric"`
	Network Network `hcl:"network,block" json:"network"`
	Times   Times   `hcl:"times,block" json:"times"`

	HostapdDir string `hcl:"hostapd_dir,optional" json:"hostapd_dir"`
	MacListPath string `hcl:"mac_list_path,optional" json:"mac_list_path"`
	RPCAddr     string `hcl:"rpc_addr,optional" json:"rpc_addr"`
}

// ErrFatal marks a configuration error that must abort startup (spec exit
// code 1), as opposed to a value that can simply keep its default.
type ErrFatal struct {
	Reason string
}

func (e *ErrFatal) Error() string { return "config: " + e.Reason }

// Default returns the documented default configuration.
func Default() *Config {
	return &Config{
		Metric: Metric{
			HTSupport:           5,
			VHTSupport:          5,
			NoHTSupport:         3,
			NoVHTSupport:        3,
			RSSI:                10,
			LowRSSI:             -15,
			Freq:                15,
			ChanUtil:            5,
			MaxChanUtil:         -10,
			MinRSSI:             -99,
			RSSIThresholdHigh:   -60,
			RSSIThresholdLow:    -80,
			ChanUtilLow:         140,
			ChanUtilHigh:        170,
			MinProbeCount:       3,
			ChanUtilAvgPeriod:   5,
			MinKickCount:        5,
			AgeingTime:          60,
			BandwidthThreshold:  6,
			EvalProbeReq:        true,
			EvalAuthReq:         true,
			EvalAssocReq:        true,
			Kicking:             false,
			UseDriverRecog:      false,
			DenyAuthReason:      17,
			DenyAssocReason:     17,
		},
		Network: Network{
			Option:          0,
			IP:              "239.10.10.2",
			Port:            10000,
			TCPPort:         10001,
			UseSymmEnc:      false,
			CollisionDomain: -1,
			Bandwidth:       -1,
		},
		Times: Times{
			UpdateClient:   5,
			UpdateChanUtil: 5,
			UpdateHostapd:  10,
			UpdateTCPCon:   10,
		},
		HostapdDir:  "/var/run/hostapd",
		MacListPath: "/etc/dawn/mac_list",
		RPCAddr:     "127.0.0.1:9090",
	}
}

// Load reads and parses an HCL config file, filling in any field the file
// omits from Default().
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(path, data)
}

// Parse decodes HCL bytes (named filename for diagnostics) against the
// default configuration. gohcl only assigns fields present in the document,
// so pre-seeding cfg with Default() before decoding is what makes omitted
// optional keys keep their documented default instead of zeroing out.
func Parse(filename string, data []byte) (*Config, error) {
	cfg := Default()
	if err := hclsimple.Decode(filename, data, nil, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", filename, err)
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// MergeDefaults fills any zero-valued field of cfg from Default() using
// dario.cat/mergo, for a Config built programmatically rather than parsed
// from HCL.
func MergeDefaults(cfg *Config) error {
	if err := mergo.Merge(cfg, Default()); err != nil {
		return fmt.Errorf("config: merge defaults: %w", err)
	}
	return nil
}

// Validate checks the fatal-at-startup preconditions of spec section 7.
func Validate(cfg *Config) error {
	if cfg.Network.UseSymmEnc && cfg.Network.SharedKey == "" {
		return &ErrFatal{Reason: "network.use_symm_enc is set but network.shared_key is empty"}
	}
	if cfg.Network.Option < 0 || cfg.Network.Option > 2 {
		return &ErrFatal{Reason: fmt.Sprintf("network.option %d is not one of 0, 1, 2", cfg.Network.Option)}
	}
	return nil
}

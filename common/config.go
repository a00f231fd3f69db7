package common

import (
	"errors"
	"time"

	log "github.com/sirupsen/logrus"

	"dev.hon.one/routewatch/util"
)

// Config - The config.
type Config struct {
	HTTPEndpoint          string  `json:"http_endpoint" yaml:"http_endpoint"`
	CredentialsPath       string  `json:"credentials_path" yaml:"credentials_path"`
	DevicesPath           string  `json:"devices_path" yaml:"devices_path"`
	ScrapeIntervalSeconds float64 `json:"scrape_interval" yaml:"scrape_interval"`
	ProbeTimeoutSeconds   float64 `json:"probe_timeout" yaml:"probe_timeout"`
	SSHTimeoutSeconds     float64 `json:"ssh_timeout" yaml:"ssh_timeout"`
	Workers               int     `json:"workers" yaml:"workers"`
	ICMPPrivileged        bool    `json:"icmp_privileged" yaml:"icmp_privileged"`
	InfluxDBURL           string  `json:"influxdb_url" yaml:"influxdb_url"`
	InfluxDBToken         string  `json:"influxdb_token" yaml:"influxdb_token"`
	InfluxDBOrg           string  `json:"influxdb_org" yaml:"influxdb_org"`
	InfluxDBBucket        string  `json:"influxdb_bucket" yaml:"influxdb_bucket"`
}

// DefaultConfig - Config with all defaults set.
func DefaultConfig() Config {
	return Config{
		HTTPEndpoint:          ":8080",
		CredentialsPath:       "credentials.json",
		DevicesPath:           "devices.json",
		ScrapeIntervalSeconds: 30.0,
		ProbeTimeoutSeconds:   5.0,
		SSHTimeoutSeconds:     10.0,
		Workers:               1,
		InfluxDBURL:           "http://localhost:8086",
		InfluxDBOrg:           "routewatch",
		InfluxDBBucket:        "routewatch",
	}
}

// LoadConfig - Load configuration file on top of the defaults. An empty path gives the defaults.
func LoadConfig(path string) (Config, error) {
	config := DefaultConfig()
	if path == "" {
		// Allow no config
		return config, nil
	}

	log.WithFields(log.Fields{
		"config_path": path,
	}).Info("Loading config")

	if err := util.ParseConfigFile(&config, path); err != nil {
		return config, err
	}
	if err := config.Validate(); err != nil {
		return config, err
	}
	return config, nil
}

// Validate - Check for values which can't be used.
func (config Config) Validate() error {
	if config.ScrapeIntervalSeconds <= 0 {
		return errors.New("non-positive scrape interval not allowed")
	}
	if config.ProbeTimeoutSeconds <= 0 {
		return errors.New("non-positive probe timeout not allowed")
	}
	if config.SSHTimeoutSeconds <= 0 {
		return errors.New("non-positive SSH timeout not allowed")
	}
	if config.Workers < 1 {
		return errors.New("at least one worker required")
	}
	return nil
}

// ScrapeInterval - Interval between collection cycles.
func (config Config) ScrapeInterval() time.Duration {
	return secondsToDuration(config.ScrapeIntervalSeconds)
}

// ProbeTimeout - Timeout for a single reachability probe.
func (config Config) ProbeTimeout() time.Duration {
	return secondsToDuration(config.ProbeTimeoutSeconds)
}

// SSHTimeout - Timeout for establishing SSH connections.
func (config Config) SSHTimeout() time.Duration {
	return secondsToDuration(config.SSHTimeoutSeconds)
}

func secondsToDuration(seconds float64) time.Duration {
	return time.Duration(seconds * float64(time.Second))
}

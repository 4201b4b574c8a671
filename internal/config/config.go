// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ajanata/hym8563/hym8563"
)

type Config struct {
	// Bus is a periph I2C bus name such as "/dev/i2c-1" or "1". Empty picks the first bus.
	Bus        string `yaml:"bus"`
	Address    uint16 `yaml:"address"`
	BusSpeedHz int64  `yaml:"bus_speed_hz"`

	// FallbackTime is RFC 3339. It is written when the chip holds an implausible time.
	FallbackTime string `yaml:"fallback_time"`

	Wake WakeConfig `yaml:"wake"`
	MQTT MQTTConfig `yaml:"mqtt"`
}

// ---- WAKE ----

type WakeConfig struct {
	// PollIntervalMs is how often the daemon checks Control2 for latched flags.
	PollIntervalMs int `yaml:"poll_interval_ms"`
}

// ---- MQTT ----

// MQTTConfig is optional; an empty Broker disables the bridge.
type MQTTConfig struct {
	Broker      string `yaml:"broker"`
	ClientID    string `yaml:"client_id"`
	TopicPrefix string `yaml:"topic_prefix"`
	QoS         byte   `yaml:"qos"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Address:    hym8563.Address,
		BusSpeedHz: 200000,
		Wake:       WakeConfig{PollIntervalMs: 1000},
		MQTT: MQTTConfig{
			ClientID:    "hym8563ctl",
			TopicPrefix: "hym8563",
		},
	}
}

// Load reads a YAML file on top of Default.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := Default()
	if err := yaml.Unmarshal(b, cfg); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Fallback returns the parsed fallback time, or the zero WallClock when unset
// so the driver default applies.
func (c *Config) Fallback() (hym8563.WallClock, error) {
	if c.FallbackTime == "" {
		return hym8563.WallClock{}, nil
	}
	t, err := time.Parse(time.RFC3339, c.FallbackTime)
	if err != nil {
		return hym8563.WallClock{}, fmt.Errorf("fallback_time %q: %w", c.FallbackTime, hym8563.ErrInvalidEncoding)
	}
	return hym8563.FromTime(t), nil
}

// PollInterval returns the wake poll interval.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Wake.PollIntervalMs) * time.Millisecond
}

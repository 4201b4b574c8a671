// internal/config/validate.go
package config

import (
	"fmt"
	"strings"

	"github.com/ajanata/hym8563/hym8563"
)

// Validate checks configuration correctness.
// It does not mutate the configuration.
func Validate(cfg *Config) error {
	// 7-bit addresses only, outside the reserved ranges
	if cfg.Address < 0x08 || cfg.Address > 0x77 {
		return fmt.Errorf("address 0x%02X: not a usable 7-bit I2C address: %w", cfg.Address, hym8563.ErrInvalidEncoding)
	}

	if cfg.BusSpeedHz < 0 {
		return fmt.Errorf("bus_speed_hz must not be negative (got %d)", cfg.BusSpeedHz)
	}

	fallback, err := cfg.Fallback()
	if err != nil {
		return err
	}
	if cfg.FallbackTime != "" && (fallback.Year < 2000 || fallback.Year > 2037) {
		return fmt.Errorf("fallback_time %q: year must be within 2000..2037", cfg.FallbackTime)
	}

	if cfg.Wake.PollIntervalMs <= 0 {
		return fmt.Errorf("wake.poll_interval_ms must be positive (got %d)", cfg.Wake.PollIntervalMs)
	}

	// ---- MQTT (opt-in) ----

	if cfg.MQTT.Broker == "" {
		return nil
	}
	if cfg.MQTT.QoS > 2 {
		return fmt.Errorf("mqtt.qos must be 0, 1 or 2 (got %d)", cfg.MQTT.QoS)
	}
	if cfg.MQTT.TopicPrefix == "" {
		return fmt.Errorf("mqtt.topic_prefix is required when mqtt.broker is set")
	}
	if strings.ContainsAny(cfg.MQTT.TopicPrefix, "#+") {
		return fmt.Errorf("mqtt.topic_prefix %q must not contain wildcards", cfg.MQTT.TopicPrefix)
	}
	if strings.HasSuffix(cfg.MQTT.TopicPrefix, "/") {
		return fmt.Errorf("mqtt.topic_prefix %q must not end with '/'", cfg.MQTT.TopicPrefix)
	}
	return nil
}

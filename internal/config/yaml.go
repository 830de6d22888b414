// SPDX-License-Identifier: MIT
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	applog "spectro/internal/log"
)

// Duration wraps time.Duration so YAML values can be written as strings
// like "33ms". yaml.v3 has no native duration handling.
type Duration time.Duration

// UnmarshalYAML parses a duration string in time.ParseDuration syntax.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return fmt.Errorf("line %d: duration must be a string like \"33ms\"", value.Line)
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) String() string { return time.Duration(d).String() }

// Load assembles the configuration in three layers: built-in defaults,
// the YAML file at path, then SPECTRO_* environment overrides. Validate
// runs on the final result.
//
// An empty path searches the default locations; a missing file is only
// an error when the path was given explicitly.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		for _, candidate := range []string{"spectro.yaml", "config.yaml"} {
			if _, err := os.Stat(candidate); err == nil {
				path = candidate
				break
			}
		}
	}

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
			applog.Debugf("configuration: loaded %s", path)
		case explicit || !os.IsNotExist(err):
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// applyEnvOverrides lets deployments adjust a file-based configuration
// without editing it. Unparseable values are ignored with a warning.
func (c *Config) applyEnvOverrides() {
	envBool("SPECTRO_DEBUG", &c.Debug)
	envString("SPECTRO_LOG_LEVEL", &c.LogLevel)
	envInt("SPECTRO_INPUT_DEVICE", &c.Audio.InputDevice)
	envFloat("SPECTRO_SAMPLE_RATE", &c.Audio.SampleRate)
	envInt("SPECTRO_BLOCK_SIZE", &c.Audio.BlockSize)
	envBool("SPECTRO_RECORDING_ENABLED", &c.Recording.Enabled)
	envString("SPECTRO_RECORDING_DIR", &c.Recording.OutputDir)
	envBool("SPECTRO_UDP_ENABLED", &c.Transport.UDPEnabled)
	envString("SPECTRO_UDP_TARGET_ADDRESS", &c.Transport.UDPTargetAddress)
	envDuration("SPECTRO_UDP_SEND_INTERVAL", &c.Transport.UDPSendInterval)
	envBool("SPECTRO_WS_ENABLED", &c.Transport.WSEnabled)
	envString("SPECTRO_WS_LISTEN_ADDRESS", &c.Transport.WSListenAddress)
}

func envString(name string, dst *string) {
	if val, ok := os.LookupEnv(name); ok {
		*dst = val
		applog.Debugf("configuration: override %s=%s", name, val)
	}
}

func envBool(name string, dst *bool) {
	val, ok := os.LookupEnv(name)
	if !ok {
		return
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		applog.Warnf("configuration: ignoring %s=%q: %v", name, val, err)
		return
	}
	*dst = b
	applog.Debugf("configuration: override %s=%v", name, b)
}

func envInt(name string, dst *int) {
	val, ok := os.LookupEnv(name)
	if !ok {
		return
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		applog.Warnf("configuration: ignoring %s=%q: %v", name, val, err)
		return
	}
	*dst = n
	applog.Debugf("configuration: override %s=%d", name, n)
}

func envFloat(name string, dst *float64) {
	val, ok := os.LookupEnv(name)
	if !ok {
		return
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		applog.Warnf("configuration: ignoring %s=%q: %v", name, val, err)
		return
	}
	*dst = f
	applog.Debugf("configuration: override %s=%g", name, f)
}

func envDuration(name string, dst *Duration) {
	val, ok := os.LookupEnv(name)
	if !ok {
		return
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		applog.Warnf("configuration: ignoring %s=%q: %v", name, val, err)
		return
	}
	*dst = Duration(d)
	applog.Debugf("configuration: override %s=%s", name, d)
}

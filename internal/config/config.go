// SPDX-License-Identifier: MIT
//
// Package config holds the runtime configuration for the engine and the
// offline analyzer. A Config is assembled in three layers: built-in
// defaults, an optional YAML file, then SPECTRO_* environment overrides.
// Validate runs after all three.
package config

import (
	"fmt"
	"strings"
	"time"

	applog "spectro/internal/log"
	"spectro/pkg/bitint"
)

// Boundaries and defaults for the audio processing engine.
const (
	DefaultSampleRate      = 44100 // CD-quality audio
	DefaultBlockSize       = 1024  // Balanced latency/resolution
	DefaultInputChannels   = 1     // Mono capture
	DefaultUDPTarget       = "127.0.0.1:9090"
	DefaultUDPSendInterval = 33 * time.Millisecond // ~30 frames/s
	DefaultWSListenAddress = ":8080"
	DefaultRecordingDir    = "./recordings"
	DefaultBitDepth        = 16
	DefaultBands           = 8

	MinDeviceID   = -1     // -1 selects the system default device
	MinSampleRate = 8000   // Minimum usable sample rate (Hz)
	MaxSampleRate = 192000 // Maximum supported sample rate (Hz)
	MaxBlockSize  = 8192   // Maximum samples per processing block
)

// Config is the root of the application configuration, loaded from YAML.
type Config struct {
	Debug     bool            `yaml:"debug"`     // Verbose internals, implies log_level=debug.
	LogLevel  string          `yaml:"log_level"` // One of debug, info, warn, error.
	Audio     AudioConfig     `yaml:"audio"`     // Capture and block processing settings.
	Recording RecordingConfig `yaml:"recording"` // WAV recording settings.
	Transport TransportConfig `yaml:"transport"` // Spectrum delivery settings.
	Analysis  AnalysisConfig  `yaml:"analysis"`  // Derived-feature settings.
}

// AudioConfig holds capture and block processing settings.
type AudioConfig struct {
	InputDevice   int     `yaml:"input_device"`   // PortAudio device index, -1 for default.
	SampleRate    float64 `yaml:"sample_rate"`    // Capture rate in Hz.
	BlockSize     int     `yaml:"block_size"`     // Samples per spectrum block; powers of two run fastest.
	LowLatency    bool    `yaml:"low_latency"`    // Request the device's low latency profile.
	InputChannels int     `yaml:"input_channels"` // Captured channels; analysis always runs on channel 0.
}

// RecordingConfig holds WAV recording settings.
type RecordingConfig struct {
	Enabled     bool   `yaml:"enabled"`              // Record the raw input stream while the engine runs.
	OutputDir   string `yaml:"output_dir"`           // Directory for recorded files.
	BitDepth    int    `yaml:"bit_depth"`            // 16, 24 or 32.
	MaxDuration int    `yaml:"max_duration_seconds"` // Per-file cap in seconds, 0 for unlimited.
}

// TransportConfig holds spectrum delivery settings.
type TransportConfig struct {
	UDPEnabled       bool     `yaml:"udp_enabled"`        // Send binary spectrum packets over UDP.
	UDPTargetAddress string   `yaml:"udp_target_address"` // host:port for UDP packets.
	UDPSendInterval  Duration `yaml:"udp_send_interval"`  // Pace between UDP packets, e.g. "33ms".
	WSEnabled        bool     `yaml:"ws_enabled"`         // Serve spectra to WebSocket clients.
	WSListenAddress  string   `yaml:"ws_listen_address"`  // Listen address for /ws and /metrics.
}

// AnalysisConfig holds derived-feature settings.
type AnalysisConfig struct {
	Bands         int  `yaml:"bands"`          // Number of aggregated frequency bands, 0 disables banding.
	BeatDetection bool `yaml:"beat_detection"` // Emit beat events from block energy onsets.
}

// Default returns the built-in configuration used when no file exists.
func Default() *Config {
	return &Config{
		Debug:    false,
		LogLevel: "info",
		Audio: AudioConfig{
			InputDevice:   MinDeviceID,
			SampleRate:    DefaultSampleRate,
			BlockSize:     DefaultBlockSize,
			LowLatency:    false,
			InputChannels: DefaultInputChannels,
		},
		Recording: RecordingConfig{
			Enabled:     false,
			OutputDir:   DefaultRecordingDir,
			BitDepth:    DefaultBitDepth,
			MaxDuration: 0,
		},
		Transport: TransportConfig{
			UDPEnabled:       false,
			UDPTargetAddress: DefaultUDPTarget,
			UDPSendInterval:  Duration(DefaultUDPSendInterval),
			WSEnabled:        false,
			WSListenAddress:  DefaultWSListenAddress,
		},
		Analysis: AnalysisConfig{
			Bands:         DefaultBands,
			BeatDetection: false,
		},
	}
}

// Validate checks the assembled configuration. It returns the first
// problem found; harmless but suboptimal settings only log a warning.
func (c *Config) Validate() error {
	if _, ok := applog.ParseLevel(c.LogLevel); !ok {
		return fmt.Errorf("log_level %q is not one of debug, info, warn, error", c.LogLevel)
	}

	if c.Audio.InputDevice < MinDeviceID {
		return fmt.Errorf("audio.input_device %d is invalid, use %d for the default device", c.Audio.InputDevice, MinDeviceID)
	}
	if c.Audio.SampleRate < MinSampleRate || c.Audio.SampleRate > MaxSampleRate {
		return fmt.Errorf("audio.sample_rate %g outside supported range [%d, %d]", c.Audio.SampleRate, MinSampleRate, MaxSampleRate)
	}
	if c.Audio.BlockSize <= 0 || c.Audio.BlockSize > MaxBlockSize {
		return fmt.Errorf("audio.block_size %d outside supported range [1, %d]", c.Audio.BlockSize, MaxBlockSize)
	}
	if !bitint.IsPowerOfTwo(c.Audio.BlockSize) {
		applog.Warnf("configuration: block_size %d is not a power of two, spectra fall back to the slower generic transform", c.Audio.BlockSize)
	}
	if c.Audio.InputChannels < 1 || c.Audio.InputChannels > 2 {
		return fmt.Errorf("audio.input_channels %d is invalid, expected 1 or 2", c.Audio.InputChannels)
	}

	if c.Recording.Enabled {
		if c.Recording.OutputDir == "" {
			return fmt.Errorf("recording.output_dir must be set when recording is enabled")
		}
		switch c.Recording.BitDepth {
		case 16, 24, 32:
		default:
			return fmt.Errorf("recording.bit_depth %d is invalid, expected 16, 24 or 32", c.Recording.BitDepth)
		}
		if c.Recording.MaxDuration < 0 {
			return fmt.Errorf("recording.max_duration_seconds must not be negative")
		}
	}

	if c.Transport.UDPEnabled {
		if !strings.Contains(c.Transport.UDPTargetAddress, ":") {
			return fmt.Errorf("transport.udp_target_address %q appears invalid (missing port?)", c.Transport.UDPTargetAddress)
		}
		if c.Transport.UDPSendInterval <= 0 {
			return fmt.Errorf("transport.udp_send_interval must be positive when UDP is enabled")
		}
	}
	if c.Transport.WSEnabled && c.Transport.WSListenAddress == "" {
		return fmt.Errorf("transport.ws_listen_address must be set when the WebSocket server is enabled")
	}

	if c.Analysis.Bands < 0 || c.Analysis.Bands > c.Audio.BlockSize/2 {
		return fmt.Errorf("analysis.bands %d outside supported range [0, %d]", c.Analysis.Bands, c.Audio.BlockSize/2)
	}

	return nil
}

// EffectiveLogLevel resolves the configured level, with debug taking
// precedence over log_level.
func (c *Config) EffectiveLogLevel() applog.LogLevel {
	if c.Debug {
		return applog.LevelDebug
	}
	level, _ := applog.ParseLevel(c.LogLevel)
	return level
}

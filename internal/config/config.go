package config

import (
	"os"
	"strconv"
)

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

// Config holds all runtime configuration, loaded from environment variables.
type Config struct {
	// Capture
	Device       string // substring of the input device name, empty for default
	AnalysisRate int    // analysis cycles per second

	// Metronome
	BPM         int
	ClickRate   int     // output sample rate for the click
	ClickVolume float64 // 0..1
	MIDIOut     string  // MIDI output port, empty to disable
	Progression string

	// Logging
	LogLevel string
	LogFile  string

	// Remote
	Listen string
}

// Load reads configuration from environment variables with sane defaults.
func Load() Config {
	return Config{
		Device:       envStr("BARD_DEVICE", ""),
		AnalysisRate: envInt("BARD_ANALYSIS_HZ", 60),

		BPM:         envInt("BARD_BPM", 120),
		ClickRate:   envInt("BARD_CLICK_RATE", 48000),
		ClickVolume: envFloat("BARD_CLICK_VOLUME", 1.0),
		MIDIOut:     envStr("BARD_MIDI_OUT", ""),
		Progression: envStr("BARD_PROGRESSION", "I-IV-V-I"),

		LogLevel: envStr("BARD_LOG_LEVEL", "info"),
		LogFile:  envStr("BARD_LOG_FILE", "bard.log"),

		Listen: envStr("BARD_LISTEN", ":8080"),
	}
}

// Vars exposes the loaded values as CLI flag defaults.
func (c Config) Vars() map[string]string {
	return map[string]string{
		"device":        c.Device,
		"analysis_rate": strconv.Itoa(c.AnalysisRate),
		"bpm":           strconv.Itoa(c.BPM),
		"click_rate":    strconv.Itoa(c.ClickRate),
		"click_volume":  strconv.FormatFloat(c.ClickVolume, 'f', -1, 64),
		"midi_out":      c.MIDIOut,
		"progression":   c.Progression,
		"log_level":     c.LogLevel,
		"log_file":      c.LogFile,
		"listen":        c.Listen,
	}
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

package main

import (
	"testing"

	"github.com/alecthomas/kong"
	"github.com/metalblueberry/bard/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parse(t *testing.T, cfg config.Config, args ...string) (*CLI, *kong.Context, error) {
	t.Helper()
	cli := &CLI{}
	parser, err := kong.New(cli, kong.Name("bard"), vars(cfg), kong.Exit(func(int) {}))
	require.NoError(t, err)
	ctx, err := parser.Parse(args)
	return cli, ctx, err
}

func defaults() config.Config {
	return config.Config{
		AnalysisRate: 60,
		BPM:          120,
		ClickRate:    48000,
		ClickVolume:  1,
		Progression:  "I-IV-V-I",
		LogLevel:     "info",
		LogFile:      "bard.log",
		Listen:       ":8080",
	}
}

func TestDefaultsComeFromConfig(t *testing.T) {
	cfg := defaults()
	cfg.BPM = 96
	cfg.Device = "USB"

	cli, ctx, err := parse(t, cfg, "serve")
	require.NoError(t, err)
	assert.Equal(t, "serve", ctx.Command())
	assert.Equal(t, 96, cli.Serve.Click.BPM)
	assert.Equal(t, "USB", cli.Serve.Capture.Device)
	assert.Equal(t, 60, cli.Serve.Capture.Rate)
	assert.Equal(t, ":8080", cli.Serve.Listen)
	assert.Equal(t, 1.0, cli.Serve.Click.Volume)
	assert.Equal(t, "info", cli.LogLevel)
}

func TestFlagsOverrideConfig(t *testing.T) {
	cli, _, err := parse(t, defaults(), "metronome", "--bpm", "72", "--progression", "12-bar blues", "--mute", "--midi-out", "IAC")
	require.NoError(t, err)
	assert.Equal(t, 72, cli.Metronome.Click.BPM)
	assert.Equal(t, "12-bar blues", cli.Metronome.Click.Progression)
	assert.True(t, cli.Metronome.Click.Mute)
	assert.Equal(t, "IAC", cli.Metronome.Click.MIDIOut)
}

func TestUnknownProgressionIsRejected(t *testing.T) {
	_, _, err := parse(t, defaults(), "metronome", "--progression", "giant steps")
	assert.ErrorContains(t, err, "unknown progression")
}

func TestInteractiveCommandsLogToFile(t *testing.T) {
	cli := &CLI{}
	assert.True(t, cli.interactive("tune"))
	assert.True(t, cli.interactive("metronome"))
	assert.False(t, cli.interactive("serve"))
	assert.False(t, cli.interactive("devices"))
}

func TestLogLevelEnum(t *testing.T) {
	_, _, err := parse(t, defaults(), "--log-level", "chatty", "devices")
	assert.Error(t, err)
}

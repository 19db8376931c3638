package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/metalblueberry/bard/internal/httpapi"
	"github.com/metalblueberry/bard/internal/ui"
	"github.com/metalblueberry/bard/pkg/capture"
	"github.com/metalblueberry/bard/pkg/click"
	"github.com/metalblueberry/bard/pkg/metronome"
	"github.com/metalblueberry/bard/pkg/progression"
	"github.com/metalblueberry/bard/pkg/tuner"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// app is bound to every command's Run method
type app struct {
	logger *zap.Logger
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// CaptureFlags select and pace the input device
type CaptureFlags struct {
	Device string `default:"${device}" help:"Substring of the input device name (default input if empty)"`
	Rate   int    `default:"${analysis_rate}" help:"Analysis cycles per second"`
}

func (f CaptureFlags) session(logger *zap.Logger, publish func(tuner.Snapshot)) *capture.Session {
	return capture.NewSession(
		capture.PortAudio{DeviceName: f.Device, Logger: logger},
		capture.WithAnalysisRate(f.Rate),
		capture.WithSessionLogger(logger),
		capture.WithPublisher(publish),
	)
}

// ClickFlags choose where the metronome sounds
type ClickFlags struct {
	BPM         int     `default:"${bpm}" help:"Starting tempo"`
	Progression string  `default:"${progression}" help:"Chord progression to follow"`
	MIDIOut     string  `name:"midi-out" default:"${midi_out}" help:"Also send clicks to this MIDI output port"`
	ClickRate   int     `default:"${click_rate}" help:"Click output sample rate"`
	Volume      float64 `default:"${click_volume}" help:"Click volume between 0 and 1"`
	Mute        bool    `help:"Do not play the audio click"`
}

func (f ClickFlags) Validate() error {
	if _, err := progression.Lookup(f.Progression); err != nil {
		return fmt.Errorf("%w (choose one of %q)", err, progression.Names())
	}
	return nil
}

// sounder opens the configured outputs; closeAll releases them
func (f ClickFlags) sounder(logger *zap.Logger) (click.Multi, func(), error) {
	var sounders click.Multi
	var closers []func() error

	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i](); err != nil {
				logger.Warn("closing click output", zap.Error(err))
			}
		}
	}

	if !f.Mute {
		out, err := click.NewOtoOutput(f.ClickRate)
		if err != nil {
			return nil, closeAll, err
		}
		synth := click.NewSynth(out, f.ClickRate, logger, click.WithVolume(f.Volume))
		sounders = append(sounders, synth)
		closers = append(closers, synth.Close)
	}

	if f.MIDIOut != "" {
		m, err := click.OpenMIDI(f.MIDIOut)
		if err != nil {
			closeAll()
			return nil, func() {}, err
		}
		sounders = append(sounders, m)
		closers = append(closers, m.Close)
	}

	return sounders, closeAll, nil
}

func (f ClickFlags) follower() *progression.Follower {
	p, err := progression.Lookup(f.Progression)
	if err != nil {
		return nil
	}
	return progression.NewFollower(p)
}

// TuneCmd runs the terminal tuner
type TuneCmd struct {
	Capture CaptureFlags `embed:""`
}

func (c *TuneCmd) Run(rt *app) error {
	ctx, stop := signalContext()
	defer stop()

	updates := make(chan tea.Msg, 1)
	session := c.Capture.session(rt.logger, func(s tuner.Snapshot) {
		select {
		case updates <- ui.SnapshotMsg{Snapshot: s}:
		default:
		}
	})

	g, gctx := errgroup.WithContext(ctx)
	p := tea.NewProgram(ui.NewTunerModel(updates), tea.WithAltScreen(), tea.WithContext(gctx))

	var captureErr error
	g.Go(func() error {
		if err := session.Run(gctx); err != nil {
			captureErr = err
			p.Send(ui.CaptureErrMsg{Err: err})
		}
		return nil
	})

	_, err := p.Run()
	stop()
	if werr := g.Wait(); werr != nil {
		return werr
	}
	if captureErr != nil {
		return captureErr
	}
	if err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("terminal ui: %w", err)
	}
	return nil
}

// MetronomeCmd runs the terminal metronome
type MetronomeCmd struct {
	Click ClickFlags `embed:""`
}

func (c *MetronomeCmd) Validate() error {
	return c.Click.Validate()
}

func (c *MetronomeCmd) Run(rt *app) error {
	ctx, stop := signalContext()
	defer stop()

	sounder, closeSounder, err := c.Click.sounder(rt.logger)
	if err != nil {
		return err
	}
	defer closeSounder()

	clock := metronome.NewClock(metronome.WithSounder(sounder), metronome.WithLogger(rt.logger))
	defer clock.Stop()

	beats, unsubscribe := clock.Subscribe(8)
	defer unsubscribe()

	model := ui.NewMetronomeModel(clock, beats, c.Click.follower(), c.Click.BPM)
	_, err = tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	if err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("terminal ui: %w", err)
	}
	return nil
}

// ServeCmd runs the tuner and metronome headless behind the HTTP remote
type ServeCmd struct {
	Capture CaptureFlags `embed:""`
	Click   ClickFlags   `embed:""`

	Listen  string `default:"${listen}" help:"HTTP listen address"`
	NoTuner bool   `help:"Do not open the microphone"`
	Start   bool   `help:"Start the metronome immediately"`
}

func (c *ServeCmd) Validate() error {
	return c.Click.Validate()
}

func (c *ServeCmd) Run(rt *app) error {
	ctx, stop := signalContext()
	defer stop()

	sounder, closeSounder, err := c.Click.sounder(rt.logger)
	if err != nil {
		return err
	}
	defer closeSounder()

	clock := metronome.NewClock(metronome.WithSounder(sounder), metronome.WithLogger(rt.logger))
	defer clock.Stop()
	clock.SetTempo(c.Click.BPM)
	if c.Start {
		clock.Start(c.Click.BPM)
	}

	opts := []httpapi.Option{httpapi.WithLogger(rt.logger)}
	if f := c.Click.follower(); f != nil {
		opts = append(opts, httpapi.WithProgression(f.Progression()))
	}

	g, gctx := errgroup.WithContext(ctx)

	if !c.NoTuner {
		session := c.Capture.session(rt.logger, nil)
		opts = append(opts, httpapi.WithTuner(session))
		g.Go(func() error {
			return session.Run(gctx)
		})
	}

	server := httpapi.New(clock, opts...)
	g.Go(func() error {
		return server.ListenAndServe(gctx, c.Listen)
	})

	return g.Wait()
}

// DevicesCmd lists audio inputs
type DevicesCmd struct{}

func (c *DevicesCmd) Run(rt *app) error {
	devices, err := capture.ListDevices()
	if err != nil {
		return err
	}

	if len(devices) == 0 {
		fmt.Println(ui.KeyStyle.Render("No input devices found"))
		return nil
	}

	for _, d := range devices {
		marker := " "
		if d.Default {
			marker = "*"
		}
		fmt.Printf("%s %s %s\n", marker, ui.ValueStyle.Render(d.Name),
			ui.KeyStyle.Render(fmt.Sprintf("(%s, %d ch, %.0f Hz)", d.HostAPI, d.Channels, d.SampleRate)))
	}
	return nil
}

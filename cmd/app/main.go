// Copyright 2016 Hajime Hoshi
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"errors"
	"image"
	"image/color"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/vector"
	"github.com/metalblueberry/bard/internal/config"
	"github.com/metalblueberry/bard/internal/logging"
	"github.com/metalblueberry/bard/internal/ui"
	"github.com/metalblueberry/bard/pkg/capture"
	"github.com/metalblueberry/bard/pkg/tuner"
	"go.uber.org/zap"
)

const (
	screenWidth  = 640
	screenHeight = 480
)

var (
	inTune  = color.RGBA{0x00, 0xaa, 0x00, 0xff}
	outTune = color.RGBA{0xa4, 0x00, 0x00, 0xff}
	grid    = color.RGBA{0x55, 0x55, 0x55, 0xff}
)

type Game struct {
	ctx     context.Context
	session *capture.Session

	errMu sync.Mutex
	err   error

	buff []float32

	vertices []ebiten.Vertex
	indices  []uint16
}

func (g *Game) fail(err error) {
	g.errMu.Lock()
	g.err = err
	g.errMu.Unlock()
}

func (g *Game) Update() error {
	g.errMu.Lock()
	defer g.errMu.Unlock()
	if g.err != nil {
		return g.err
	}
	if g.ctx.Err() != nil {
		return ebiten.Termination
	}
	return nil
}

func (g *Game) Draw(screen *ebiten.Image) {
	snap := g.session.Snapshot()
	g.buff = g.session.Waveform(g.buff[:0])

	w, h := screen.Bounds().Dx(), screen.Bounds().Dy()
	up := screen.SubImage(image.Rect(0, 0, w, h/2)).(*ebiten.Image)
	down := screen.SubImage(image.Rect(0, h/2, w, h)).(*ebiten.Image)

	g.drawWave(up, g.buff, 1)
	g.drawNeedle(down, snap)
	ebitenutil.DebugPrint(screen, statusText(snap))
}

var (
	whiteImage = ebiten.NewImage(3, 3)

	// whiteSubImage is an internal sub image of whiteImage.
	// Use whiteSubImage at DrawTriangles instead of whiteImage in order to avoid bleeding edges.
	whiteSubImage = whiteImage.SubImage(image.Rect(1, 1, 2, 2)).(*ebiten.Image)
)

func init() {
	whiteImage.Fill(color.White)
}

func (g *Game) drawWave(screen *ebiten.Image, data []float32, size float64) {
	if len(data) == 0 {
		return
	}

	var path vector.Path
	top := screen.Bounds().Min.Y
	mid := screen.Bounds().Dy() / 2
	width := screen.Bounds().Dx()

	path.MoveTo(0, float32(top+mid))

	scale := float64(mid) / size
	for i := range data {
		y := float32(float64(data[i])*scale) + float32(top+mid)
		path.LineTo(float32(i*width)/float32(len(data)), y)
	}

	op := &vector.StrokeOptions{}
	op.Width = float32(1)
	vs, is := path.AppendVerticesAndIndicesForStroke(g.vertices[:0], g.indices[:0], op)
	for i := range vs {
		vs[i].SrcX = 1
		vs[i].SrcY = 1
		vs[i].ColorR = 1
		vs[i].ColorG = 1
		vs[i].ColorB = 1
		vs[i].ColorA = 1
	}
	screen.DrawTriangles(vs, is, whiteSubImage, &ebiten.DrawTrianglesOptions{
		AntiAlias: false,
	})
	g.vertices, g.indices = vs, is
}

// drawNeedle shows the cents offset of the current reading around a center mark.
func (g *Game) drawNeedle(screen *ebiten.Image, snap tuner.Snapshot) {
	b := screen.Bounds()
	width := float32(b.Dx())
	top, bottom := float32(b.Min.Y), float32(b.Max.Y)
	center := float32(b.Min.X) + width/2

	vector.StrokeLine(screen, float32(b.Min.X), (top+bottom)/2, float32(b.Max.X), (top+bottom)/2, 1, grid, false)
	vector.StrokeLine(screen, center, top+10, center, bottom-10, 1, grid, false)

	if !snap.HasReading {
		return
	}

	clr := outTune
	if snap.Reading.Locked || abs(snap.Reading.Cents) <= tuner.LockCents {
		clr = inTune
	}
	x := float32(b.Min.X) + needleX(snap.Reading.Cents, width)
	vector.StrokeLine(screen, x, top+20, x, bottom-20, 4, clr, true)
}

func (g *Game) Layout(outsideWidth, outsideHeight int) (int, int) {
	return outsideWidth, outsideHeight
}

func main() {
	cfg := config.Load()

	logger, err := logging.New(logging.WithLevel(cfg.LogLevel), logging.WithConsole())
	if err != nil {
		ui.PrintError(err.Error())
		os.Exit(1)
	}
	defer logger.Sync()

	ctx, done := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer done()

	session := capture.NewSession(
		capture.PortAudio{DeviceName: cfg.Device, Logger: logger},
		capture.WithAnalysisRate(cfg.AnalysisRate),
		capture.WithSessionLogger(logger),
	)

	game := &Game{
		ctx:     ctx,
		session: session,
	}

	finished := make(chan struct{})
	go func() {
		defer close(finished)
		if err := session.Run(ctx); err != nil {
			game.fail(err)
		}
	}()

	ebiten.SetWindowSize(screenWidth, screenHeight)
	ebiten.SetWindowTitle("Bard")
	err = ebiten.RunGame(game)
	done()
	<-finished

	if err != nil && !errors.Is(err, ebiten.Termination) {
		logger.Error("tuner window closed", zap.Error(err))
		ui.PrintError(capture.Message(err))
		logger.Sync()
		os.Exit(1)
	}
}

package main

import (
	"os"

	"github.com/alecthomas/kong"
	"github.com/metalblueberry/bard/internal/config"
	"github.com/metalblueberry/bard/internal/logging"
	"github.com/metalblueberry/bard/internal/ui"
	"github.com/metalblueberry/bard/pkg/capture"
	"go.uber.org/zap"
)

var (
	version = "0.1.0"
)

// versionFlag prints styled version information and exits
type versionFlag bool

func (v versionFlag) BeforeReset(app *kong.Kong, vars kong.Vars) error {
	ui.PrintVersion(vars["version"])
	app.Exit(0)
	return nil
}

// CLI defines the command-line interface
type CLI struct {
	Version  versionFlag `short:"v" help:"Show version information"`
	LogLevel string      `default:"${log_level}" enum:"debug,info,warn,error" help:"Minimum log level"`
	LogFile  string      `default:"${log_file}" type:"path" help:"Log file used while a terminal view is open"`

	Tune      TuneCmd      `cmd:"" help:"Tune a guitar in the terminal"`
	Metronome MetronomeCmd `cmd:"" help:"Run the metronome in the terminal"`
	Serve     ServeCmd     `cmd:"" help:"Run tuner and metronome with an HTTP remote"`
	Devices   DevicesCmd   `cmd:"" help:"List audio input devices"`
}

// interactive commands own the terminal, so they log to a file
func (c *CLI) interactive(command string) bool {
	return command == "tune" || command == "metronome"
}

func vars(cfg config.Config) kong.Vars {
	v := kong.Vars(cfg.Vars())
	v["version"] = version
	return v
}

func newLogger(cli *CLI, command string) (*zap.Logger, error) {
	if cli.interactive(command) {
		return logging.New(logging.WithLevel(cli.LogLevel), logging.WithFile(cli.LogFile))
	}
	return logging.New(logging.WithLevel(cli.LogLevel), logging.WithConsole())
}

func main() {
	cfg := config.Load()

	cliArgs := &CLI{}
	ctx := kong.Parse(cliArgs,
		kong.Name("bard"),
		kong.Description("Guitar tuner and metronome"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{Compact: true}),
		vars(cfg),
	)

	logger, err := newLogger(cliArgs, ctx.Command())
	if err != nil {
		ui.PrintError(err.Error())
		os.Exit(1)
	}
	defer logger.Sync()

	if err := ctx.Run(&app{logger: logger}); err != nil {
		logger.Error("command failed", zap.String("command", ctx.Command()), zap.Error(err))
		ui.PrintError(capture.Message(err))
		logger.Sync()
		os.Exit(1)
	}
}

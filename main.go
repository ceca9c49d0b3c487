package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli"
	"go.uber.org/zap/zapcore"

	atfcheck "github.com/atf-go/atfrun/cmd/atf-check"
	atfrun "github.com/atf-go/atfrun/cmd/atf-run"
	"github.com/atf-go/atfrun/internal/logging"
)

func main() {
	app := cli.NewApp()
	app.Name = "atf"
	app.Usage = "run ATF test suites and check command output against a verdict"
	app.Commands = []cli.Command{
		atfrun.Command,
		atfcheck.Command,
	}
	app.Flags = []cli.Flag{
		cli.BoolFlag{Name: "v", Usage: "verbose (debug-level) logging"},
	}
	app.HideVersion = true
	app.Before = func(c *cli.Context) error {
		configureLogging(c)
		return nil
	}

	err := app.Run(os.Args)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		// cli.NewExitError (used by both subcommands for usage errors,
		// spec §6) carries its own exit status; anything else is an
		// unrecoverable framework error.
		if coder, ok := err.(cli.ExitCoder); ok {
			os.Exit(coder.ExitCode())
		}
		os.Exit(1)
	}
}

func configureLogging(c *cli.Context) {
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		var l zapcore.Level
		if err := l.UnmarshalText([]byte(level)); err != nil {
			panic(err)
		}
		logging.SetLevel(l)
		return
	}
	if c.Bool("v") {
		logging.SetLevel(zapcore.DebugLevel)
	}
}

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"
)

// Build-time variables (set via ldflags)
var version = "dev"

const (
	flagConfig    = "config"
	flagLogLevel  = "log-level"
	flagLogFormat = "log-format"
	flagMethod    = "method"
	flagHeader    = "header"
	flagData      = "data"
	flagLabel     = "label"
	flagEnvelope  = "envelope"
	flagInterval  = "interval"
	flagStatus    = "status-addr"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp().RunContext(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:    "thirdeye",
		Usage:   "call the ThirdEye backend with the dashboard's retry policy",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    flagConfig,
				Aliases: []string{"c"},
				Usage:   "configuration file (yaml, toml or json)",
				EnvVars: []string{"THIRDEYE_CONFIG"},
			},
			&cli.StringFlag{
				Name:  flagLogLevel,
				Usage: "override log level (debug, info, warn, error)",
			},
			&cli.StringFlag{
				Name:  flagLogFormat,
				Usage: "override log format (text, json)",
			},
		},
		Commands: []*cli.Command{
			policyCommand(),
			callCommand(),
			watchCommand(),
		},
	}
}

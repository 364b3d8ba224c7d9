// Command pktgraph runs a packet processing graph.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/pktgraph/pktgraph/core/logging"
	"github.com/pktgraph/pktgraph/core/version"
	"github.com/pktgraph/pktgraph/core/yamlflag"
	"github.com/pktgraph/pktgraph/pipeline"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"golang.org/x/sys/unix"
)

var logger = logging.New("main")

var (
	cfg            pipeline.Config
	duration       time.Duration
	reportInterval time.Duration
	listen         string
)

var configFlag = &cli.GenericFlag{
	Name:     "config",
	Usage:    "pipeline `YAML` document, or @FILE to read from a file",
	Value:    yamlflag.New(&cfg),
	Required: true,
}

func validateConfig(*cli.Context) error {
	if e := cfg.Validate(); e != nil {
		return cli.Exit(e, 1)
	}
	return nil
}

var app = &cli.App{
	Version: version.V.String(),
	Usage:   "Run a packet processing graph.",
	Commands: []*cli.Command{
		{
			Name:  "run",
			Usage: "Run the pipeline until interrupted",
			Flags: []cli.Flag{
				configFlag,
				&cli.DurationFlag{
					Name:        "duration",
					Usage:       "stop after `DURATION` (zero means until interrupted)",
					Destination: &duration,
				},
				&cli.DurationFlag{
					Name:        "report-interval",
					Usage:       "log a report every `INTERVAL` (zero disables)",
					Destination: &reportInterval,
				},
				&cli.StringFlag{
					Name:        "listen",
					Usage:       "serve GraphQL and Prometheus metrics on `ADDR`",
					Destination: &listen,
				},
			},
			Before: validateConfig,
			Action: func(c *cli.Context) error {
				return runPipeline(c.Context, true)
			},
		},
		{
			Name:   "report",
			Usage:  "Run the pipeline for a duration and print the report",
			Before: validateConfig,
			Flags: []cli.Flag{
				configFlag,
				&cli.DurationFlag{
					Name:        "duration",
					Usage:       "run for `DURATION`",
					Value:       time.Second,
					Destination: &duration,
				},
			},
			Action: func(c *cli.Context) error {
				return runPipeline(c.Context, false)
			},
		},
		{
			Name:   "dot",
			Usage:  "Print the pipeline graph in Graphviz format",
			Before: validateConfig,
			Flags:  []cli.Flag{configFlag},
			Action: func(c *cli.Context) error {
				p, e := newPipeline()
				if e != nil {
					return cli.Exit(e, 1)
				}
				defer p.Close()
				return p.g.WriteDot(os.Stdout)
			},
		},
		statusCommand,
		{
			Name:  "version",
			Usage: "Print version information",
			Action: func(c *cli.Context) error {
				j, _ := json.MarshalIndent(version.V, "", "  ")
				fmt.Println(string(j))
				return nil
			},
		},
	},
}

func main() {
	var uname unix.Utsname
	unix.Uname(&uname)
	logger.Info("pktgraph starting",
		zap.Any("version", version.V),
		zap.Int("uid", os.Getuid()),
		zap.ByteString("linux", bytes.TrimRight(uname.Release[:], "\x00")),
	)
	if e := app.Run(os.Args); e != nil {
		logger.Fatal("exit", zap.Error(e))
	}
}

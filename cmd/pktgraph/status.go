package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/kballard/go-shellquote"
	"github.com/pktgraph/pktgraph/core/gqlclient"
	"github.com/urfave/cli/v2"
)

const statusQuery = `
	query {
		breathStats {
			breaths
			passesMean
			emptyBreaths
			validBreaths
		}
		links {
			id
			capacity
			nReadable
			txPackets
			rxPackets
			txDrop
		}
	}
`

var (
	gqlserverURI string
	cmdout       bool
)

func queryStatus(ctx context.Context, uri string) (reply map[string]any, e error) {
	client, e := gqlclient.New(gqlclient.Config{HTTPUri: uri})
	if e != nil {
		return nil, e
	}
	e = client.Do(ctx, statusQuery, nil, "", &reply)
	return reply, e
}

func printCurl(uri, query string) error {
	body, e := json.Marshal(map[string]any{"query": query})
	if e != nil {
		return e
	}
	fmt.Println(shellquote.Join("curl", "-s", "-X", "POST",
		"-H", "Content-Type: application/json", "--data-binary", string(body), uri))
	return nil
}

var statusCommand = &cli.Command{
	Name:  "status",
	Usage: "Query breath statistics and link counters from a running pipeline",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:        "gqlserver",
			Usage:       "GraphQL endpoint `URI` of a pipeline started with --listen",
			Value:       "http://127.0.0.1:3030/",
			Destination: &gqlserverURI,
		},
		&cli.BoolFlag{
			Name:        "cmdout",
			Usage:       "print the equivalent curl command instead of executing it",
			Destination: &cmdout,
		},
	},
	Action: func(c *cli.Context) error {
		if cmdout {
			return printCurl(gqlserverURI, statusQuery)
		}
		reply, e := queryStatus(c.Context, gqlserverURI)
		if e != nil {
			return cli.Exit(e, 1)
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(reply)
	},
}

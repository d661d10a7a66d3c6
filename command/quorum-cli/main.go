// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/urfave/cli"
)

type metadata struct {
	connect string
	timeout time.Duration
	verbose bool
	e       io.Writer
	w       io.Writer
}

// set by the linker: go build -ldflags "-X main.version=M.N" ./...
var version = "zero" // do not change this value

func main() {

	app := cli.NewApp()
	app.Name = "quorum-cli"
	app.Usage = "query a quorum node over its peer port"
	app.Version = version
	app.HideVersion = true

	app.Writer = os.Stdout
	app.ErrWriter = os.Stderr

	app.Flags = []cli.Flag{
		cli.BoolFlag{
			Name:  "verbose, v",
			Usage: " verbose result",
		},
		cli.StringFlag{
			Name:  "connect, c",
			Value: "127.0.0.1:21841",
			Usage: " node peer port `HOST:PORT`",
		},
		cli.IntFlag{
			Name:  "timeout, t",
			Value: 5,
			Usage: " seconds to wait for a response `SECONDS`",
		},
	}
	app.Commands = []cli.Command{
		{
			Name:      "tick-info",
			Usage:     "display the epoch, tick and vote counts of the node",
			ArgsUsage: "\n   (* = required)",
			Flags:     []cli.Flag{},
			Action:    runTickInfo,
		},
		{
			Name:      "entity",
			Usage:     "display the balance record of a public key",
			ArgsUsage: "\n   (* = required)",
			Flags: []cli.Flag{
				cli.StringFlag{
					Name:  "public-key, k",
					Value: "",
					Usage: "*public key `HEX`",
				},
				cli.StringFlag{
					Name:  "seed, s",
					Value: "",
					Usage: " derive the public key from a 55 letter `SEED`",
				},
			},
			Action: runEntity,
		},
		{
			Name:      "ipo",
			Usage:     "display the retained bids of a contract IPO",
			ArgsUsage: "\n   (* = required)",
			Flags: []cli.Flag{
				cli.IntFlag{
					Name:  "contract, i",
					Value: 0,
					Usage: "*contract `INDEX`",
				},
			},
			Action: runIPO,
		},
		{
			Name:      "proposal",
			Usage:     "get or set a computor proposal with the operator seed",
			ArgsUsage: "\n   (* = required)",
			Flags: []cli.Flag{
				cli.StringFlag{
					Name:  "operator, o",
					Value: "",
					Usage: "*operator `SEED`",
				},
				cli.IntFlag{
					Name:  "computor, n",
					Value: 0,
					Usage: "*computor `INDEX`",
				},
				cli.StringFlag{
					Name:  "uri, u",
					Value: "",
					Usage: " set the proposal to `URI`",
				},
				cli.IntFlag{
					Name:  "ballot, b",
					Value: 0,
					Usage: " ballot `NUMBER` sent with the uri",
				},
				cli.Uint64Flag{
					Name:  "nonce",
					Value: 0,
					Usage: " command `NONCE` [default: current time]",
				},
			},
			Action: runProposal,
		},
		{
			Name:      "watch",
			Usage:     "print tick and epoch events from a node's publisher",
			ArgsUsage: "\n   (* = required)",
			Flags: []cli.Flag{
				cli.StringFlag{
					Name:  "publisher, p",
					Value: "",
					Usage: "*publisher `HOST:PORT`",
				},
				cli.StringFlag{
					Name:  "server-key, k",
					Value: "",
					Usage: "*publisher public key `FILE`",
				},
				cli.IntFlag{
					Name:  "count",
					Value: 0,
					Usage: " stop after `COUNT` events [default: never]",
				},
			},
			Action: runWatch,
		},
		{
			Name:  "version",
			Usage: "display quorum-cli version",
			Action: func(c *cli.Context) error {
				fmt.Fprintf(c.App.Writer, "%s\n", version)
				return nil
			},
		},
	}

	app.Before = func(c *cli.Context) error {

		timeout := c.GlobalInt("timeout")
		if timeout < 0 {
			return fmt.Errorf("timeout: %d cannot be negative", timeout)
		}

		c.App.Metadata["config"] = &metadata{
			connect: c.GlobalString("connect"),
			timeout: time.Duration(timeout) * time.Second,
			verbose: c.GlobalBool("verbose"),
			e:       c.App.ErrWriter,
			w:       c.App.Writer,
		}
		return nil
	}

	err := app.Run(os.Args)
	if nil != err {
		fmt.Fprintf(app.ErrWriter, "terminated with error: %s\n", err)
		os.Exit(1)
	}
}

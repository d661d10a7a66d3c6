// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"fmt"

	zmq "github.com/pebbe/zmq4"
	"github.com/urfave/cli"

	"github.com/bitmark-inc/quorumd/fault"
	"github.com/bitmark-inc/quorumd/protocol"
	"github.com/bitmark-inc/quorumd/publish"
	"github.com/bitmark-inc/quorumd/zmqutil"
)

type tickEvent struct {
	Topic                string `json:"topic"`
	Epoch                uint16 `json:"epoch"`
	Tick                 uint32 `json:"tick"`
	Time                 string `json:"time,omitempty"`
	SaltedSpectrumDigest string `json:"saltedSpectrumDigest,omitempty"`
}

func runWatch(c *cli.Context) error {

	m := c.App.Metadata["config"].(*metadata)

	publisher := c.String("publisher")
	keyFile := c.String("server-key")
	if "" == publisher || "" == keyFile {
		return ErrMissingServerKey
	}
	serverPublicKey, err := zmqutil.ReadPublicKeyFile(keyFile)
	if nil != err {
		return err
	}

	// a throw away client identity
	z85Public, z85Private, err := zmq.NewCurveKeypair()
	if nil != err {
		return err
	}
	client, err := zmqutil.NewClient(zmq.SUB, []byte(zmq.Z85decode(z85Private)), []byte(zmq.Z85decode(z85Public)), 0)
	if nil != err {
		return err
	}
	err = client.Connect(publisher, serverPublicKey)
	if nil != err {
		return err
	}
	defer client.Close()

	if m.verbose {
		fmt.Fprintf(m.e, "subscribed to: %s\n", client)
	}

	for n, count := 0, c.Int("count"); 0 == count || n < count; n += 1 {
		parts, err := client.Receive(0)
		if nil != err {
			return err
		}
		if 2 != len(parts) {
			return fault.ErrInvalidMessageSize
		}

		switch topic := string(parts[0]); topic {
		case publish.TickTopic:
			t, err := protocol.UnpackTick(parts[1])
			if nil != err {
				return err
			}
			printJson(m.w, tickEvent{
				Topic:                topic,
				Epoch:                t.Epoch,
				Tick:                 t.Tick,
				Time:                 t.Time.String(),
				SaltedSpectrumDigest: t.SaltedSpectrumDigest.String(),
			})

		case publish.EpochTopic:
			epoch, initialTick, err := publish.DecodeEpoch(parts[1])
			if nil != err {
				return err
			}
			printJson(m.w, tickEvent{
				Topic: topic,
				Epoch: epoch,
				Tick:  initialTick,
			})

		default:
			if m.verbose {
				fmt.Fprintf(m.e, "skip topic: %q\n", topic)
			}
		}
	}
	return nil
}

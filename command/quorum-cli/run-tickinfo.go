// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"github.com/urfave/cli"

	"github.com/bitmark-inc/quorumd/protocol"
)

type tickInfo struct {
	TickDuration            uint16 `json:"tickDuration"`
	Epoch                   uint16 `json:"epoch"`
	Tick                    uint32 `json:"tick"`
	InitialTick             uint32 `json:"initialTick"`
	NumberOfAlignedVotes    uint16 `json:"numberOfAlignedVotes"`
	NumberOfMisalignedVotes uint16 `json:"numberOfMisalignedVotes"`
}

func runTickInfo(c *cli.Context) error {

	m := c.App.Metadata["config"].(*metadata)

	conn, err := connect(m)
	if nil != err {
		return err
	}
	defer conn.close()

	err = conn.send(&protocol.RequestCurrentTickInfo{})
	if nil != err {
		return err
	}
	message, err := conn.receiveMessage(protocol.RespondCurrentTickInfoType)
	if nil != err {
		return err
	}
	info, ok := message.(*protocol.CurrentTickInfo)
	if !ok {
		return ErrUnexpectedResponse
	}

	printJson(m.w, tickInfo{
		TickDuration:            info.TickDuration,
		Epoch:                   info.Epoch,
		Tick:                    info.Tick,
		InitialTick:             info.InitialTick,
		NumberOfAlignedVotes:    info.NumberOfAlignedVotes,
		NumberOfMisalignedVotes: info.NumberOfMisalignedVotes,
	})
	return nil
}

// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"bytes"
	"time"

	"github.com/urfave/cli"

	"github.com/bitmark-inc/quorumd/cryptography"
	"github.com/bitmark-inc/quorumd/protocol"
)

type proposalResult struct {
	Nonce         uint64 `json:"nonce"`
	ComputorIndex uint16 `json:"computorIndex"`
	URI           string `json:"uri"`
	Ballot        uint8  `json:"ballot"`
}

func runProposal(c *cli.Context) error {

	m := c.App.Metadata["config"].(*metadata)

	seed := c.String("operator")
	if "" == seed {
		return ErrNoOperatorSeed
	}
	crypto := cryptography.New()
	subseed, _, operator, err := crypto.DeriveKeys(seed)
	if nil != err {
		return err
	}

	index := c.Int("computor")
	if index < 0 || index > 0xffff {
		return cli.NewExitError("computor index out of range", 1)
	}

	// the node only accepts increasing nonces
	nonce := c.Uint64("nonce")
	if 0 == nonce {
		nonce = uint64(time.Now().UnixNano())
	}

	var command *protocol.SpecialCommand
	uri := c.String("uri")
	if "" == uri {
		command = protocol.NewSpecialCommand(protocol.GetProposalAndBallotCommand, nonce, protocol.GetProposalBody(uint16(index)))
	} else {
		if len(uri) > protocol.ProposalURISize {
			return cli.NewExitError("uri is too long", 1)
		}
		p := protocol.ProposalBody{
			ComputorIndex: uint16(index),
			Ballot:        uint8(c.Int("ballot")),
		}
		copy(p.URI[:], uri)
		command = protocol.NewSpecialCommand(protocol.SetProposalAndBallotCommand, nonce, p.Pack())
	}
	command.Sign(crypto, subseed, operator)

	conn, err := connect(m)
	if nil != err {
		return err
	}
	defer conn.close()

	err = conn.send(command)
	if nil != err {
		return err
	}

	// the response echoes the nonce in front of a proposal body
	r, err := conn.receive(protocol.ProcessSpecialCommandType)
	if nil != err {
		return err
	}
	echoed, body, err := protocol.ParseSpecialResponse(r.payload)
	if nil != err {
		return err
	}
	if echoed != command.NonceAndType {
		return ErrUnexpectedResponse
	}
	p, err := protocol.UnpackProposalBody(body)
	if nil != err {
		return err
	}

	printJson(m.w, proposalResult{
		Nonce:         command.Nonce(),
		ComputorIndex: p.ComputorIndex,
		URI:           string(bytes.TrimRight(p.URI[:], "\x00")),
		Ballot:        p.Ballot,
	})
	return nil
}

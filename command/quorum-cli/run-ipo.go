// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"github.com/urfave/cli"

	"github.com/bitmark-inc/quorumd/cryptography"
	"github.com/bitmark-inc/quorumd/protocol"
)

type bid struct {
	PublicKey cryptography.PublicKey `json:"publicKey"`
	Price     int64                  `json:"price,string"`
}

type ipoResult struct {
	ContractIndex uint32 `json:"contractIndex"`
	Tick          uint32 `json:"tick"`
	Bids          []bid  `json:"bids"`
}

func runIPO(c *cli.Context) error {

	m := c.App.Metadata["config"].(*metadata)

	index := c.Int("contract")
	if index <= 0 {
		return cli.NewExitError("contract index must be positive", 1)
	}

	conn, err := connect(m)
	if nil != err {
		return err
	}
	defer conn.close()

	err = conn.send(&protocol.RequestContractIPO{ContractIndex: uint32(index)})
	if nil != err {
		return err
	}
	message, err := conn.receiveMessage(protocol.RespondContractIPOType, protocol.EndResponseType)
	if nil != err {
		return err
	}

	switch r := message.(type) {
	case *protocol.EndResponse:
		return ErrContractNotInIPO

	case *protocol.RespondContractIPO:
		result := ipoResult{
			ContractIndex: r.ContractIndex,
			Tick:          r.Tick,
		}
		for i, publicKey := range r.PublicKeys {
			if publicKey.IsZero() {
				continue
			}
			result.Bids = append(result.Bids, bid{PublicKey: publicKey, Price: r.Prices[i]})
		}
		printJson(m.w, result)
		return nil

	default:
		return ErrUnexpectedResponse
	}
}

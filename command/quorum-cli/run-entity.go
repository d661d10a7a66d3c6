// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"github.com/urfave/cli"

	"github.com/bitmark-inc/quorumd/cryptography"
	"github.com/bitmark-inc/quorumd/protocol"
	"github.com/bitmark-inc/quorumd/spectrum"
)

type entityResult struct {
	spectrum.Entity
	Balance       int64    `json:"balance,string"`
	Tick          uint32   `json:"tick"`
	SpectrumIndex int32    `json:"spectrumIndex"`
	Siblings      []string `json:"siblings,omitempty"`
}

func runEntity(c *cli.Context) error {

	m := c.App.Metadata["config"].(*metadata)

	publicKey, err := publicKeyArgument(c.String("public-key"), c.String("seed"))
	if nil != err {
		return err
	}

	conn, err := connect(m)
	if nil != err {
		return err
	}
	defer conn.close()

	err = conn.send(&protocol.RequestEntity{PublicKey: publicKey})
	if nil != err {
		return err
	}
	message, err := conn.receiveMessage(protocol.RespondEntityType)
	if nil != err {
		return err
	}
	r, ok := message.(*protocol.RespondEntity)
	if !ok {
		return ErrUnexpectedResponse
	}

	result := entityResult{
		Entity:        r.Entity,
		Balance:       r.Entity.Balance(),
		Tick:          r.Tick,
		SpectrumIndex: r.SpectrumIndex,
	}
	if r.SpectrumIndex >= 0 && m.verbose {
		for _, s := range r.Siblings {
			result.Siblings = append(result.Siblings, s.String())
		}
	}
	printJson(m.w, result)
	return nil
}

// key from hex, or derived from a seed
func publicKeyArgument(hex string, seed string) (cryptography.PublicKey, error) {
	switch {
	case "" != hex:
		return cryptography.PublicKeyFromHex(hex)
	case "" != seed:
		_, _, publicKey, err := cryptography.New().DeriveKeys(seed)
		return publicKey, err
	default:
		return cryptography.PublicKey{}, ErrMissingPublicKey
	}
}

// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package contract

import (
	"encoding/binary"

	"github.com/bitmark-inc/quorumd/cryptography"
	"github.com/bitmark-inc/quorumd/fault"
)

// QUTIL procedure and sizes
const (
	SendToManyInputType  = 1
	SendToManyRecipients = 25
	SendToManyFee        = 10
	SendToManyInputSize  = SendToManyRecipients * (cryptography.PublicKeySize + 8)

	qutilStateSize = 24
)

// QUTIL - utility contract paying many recipients from one transaction
//
// state: total amount sent int64 | number of calls uint64 | fees
// collected this epoch int64
type QUTIL struct {
	constructionEpoch uint16
}

// NewQUTIL - utility contract constructed at an epoch
func NewQUTIL(constructionEpoch uint16) *QUTIL {
	return &QUTIL{
		constructionEpoch: constructionEpoch,
	}
}

// Description - registration data
func (q *QUTIL) Description() Description {
	return Description{
		Name:              "QUTIL",
		AssetName:         "QUTIL",
		ConstructionEpoch: q.constructionEpoch,
		DestructionEpoch:  0xffff,
		StateSize:         qutilStateSize,
	}
}

// Initialize - state starts zeroed
func (q *QUTIL) Initialize(ctx *Context) {
	for i := range ctx.State {
		ctx.State[i] = 0
	}
}

// BeginEpoch - reset the per epoch fee total
func (q *QUTIL) BeginEpoch(ctx *Context) {
	binary.LittleEndian.PutUint64(ctx.State[16:24], 0)
}

// BeginTick - nothing
func (q *QUTIL) BeginTick(ctx *Context) {}

// EndTick - nothing
func (q *QUTIL) EndTick(ctx *Context) {}

// EndEpoch - burn the collected fees
func (q *QUTIL) EndEpoch(ctx *Context) {
	fees := int64(binary.LittleEndian.Uint64(ctx.State[16:24]))
	if fees > 0 && nil == ctx.Burn(fees) {
		binary.LittleEndian.PutUint64(ctx.State[16:24], 0)
	}
}

// PackSendToMany - encode the send to many input
func PackSendToMany(recipients []cryptography.PublicKey, amounts []int64) []byte {
	input := make([]byte, SendToManyInputSize)
	for i := 0; i < SendToManyRecipients && i < len(recipients) && i < len(amounts); i += 1 {
		copy(input[i*cryptography.PublicKeySize:], recipients[i][:])
		binary.LittleEndian.PutUint64(input[SendToManyRecipients*cryptography.PublicKeySize+i*8:], uint64(amounts[i]))
	}
	return input
}

// Procedure - only send to many is supported
//
// the reward must cover the amounts plus the fee; the remainder is
// returned to the invocator, and nothing is sent if it does not cover
func (q *QUTIL) Procedure(ctx *Context, inputType uint16, input []byte) error {
	if SendToManyInputType != inputType {
		return fault.ErrUnknownMessageType
	}
	if SendToManyInputSize != len(input) {
		return fault.ErrInvalidInputSize
	}

	recipients := make([]cryptography.PublicKey, SendToManyRecipients)
	amounts := make([]int64, SendToManyRecipients)
	total := int64(SendToManyFee)
	for i := 0; i < SendToManyRecipients; i += 1 {
		copy(recipients[i][:], input[i*cryptography.PublicKeySize:])
		amounts[i] = int64(binary.LittleEndian.Uint64(input[SendToManyRecipients*cryptography.PublicKeySize+i*8:]))
		if amounts[i] < 0 {
			return fault.ErrInvalidAmount
		}
		if !recipients[i].IsZero() {
			total += amounts[i]
		}
	}

	if ctx.InvocationReward < total {
		if ctx.InvocationReward > 0 {
			_ = ctx.Transfer(ctx.Invocator, ctx.InvocationReward)
		}
		return fault.ErrInsufficientBalance
	}

	sent := int64(0)
	for i, recipient := range recipients {
		if recipient.IsZero() || 0 == amounts[i] {
			continue
		}
		if err := ctx.Transfer(recipient, amounts[i]); nil != err {
			return err
		}
		sent += amounts[i]
	}
	if change := ctx.InvocationReward - total; change > 0 {
		if err := ctx.Transfer(ctx.Invocator, change); nil != err {
			return err
		}
	}

	binary.LittleEndian.PutUint64(ctx.State[0:8], binary.LittleEndian.Uint64(ctx.State[0:8])+uint64(sent))
	binary.LittleEndian.PutUint64(ctx.State[8:16], binary.LittleEndian.Uint64(ctx.State[8:16])+1)
	binary.LittleEndian.PutUint64(ctx.State[16:24], binary.LittleEndian.Uint64(ctx.State[16:24])+SendToManyFee)
	return nil
}

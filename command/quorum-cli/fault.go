// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"github.com/bitmark-inc/quorumd/fault"
)

// common errors - keep in alphabetic order
const (
	ErrContractNotInIPO   = fault.NotFoundError("contract is not in its IPO")
	ErrMissingPublicKey   = fault.InvalidError("one of public key or seed is required")
	ErrMissingServerKey   = fault.InvalidError("publisher and server key are required")
	ErrNoOperatorSeed     = fault.InvalidError("operator seed is required")
	ErrUnexpectedResponse = fault.ProcessError("unexpected response")
)

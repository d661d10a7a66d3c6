// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package request

import (
	"github.com/bitmark-inc/quorumd/counter"
)

// Statistics - message counts since start
type Statistics struct {
	Received         counter.Counter
	Discarded        counter.Counter // malformed or undersized
	Duplicate        counter.Counter
	Processed        counter.Counter
	InvalidSignature counter.Counter
	Responses        counter.Counter
	Broadcasts       counter.Counter
}

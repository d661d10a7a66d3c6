// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package tick

// range of ticks held for one epoch
type window struct {
	initialTick uint32
	length      uint32
}

func (w window) contains(tick uint32) bool {
	return tick >= w.initialTick && tick-w.initialTick < w.length
}

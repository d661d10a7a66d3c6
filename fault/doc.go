// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package fault - error instances and the fail-stop halt
//
// every error is a single typed instance so callers compare with ==
// and classify with the IsErrX functions.  Halt is for exhausted
// stores and queues: it logs once and never returns
package fault

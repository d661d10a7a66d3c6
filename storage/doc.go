// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package storage - persistence of the named state blobs
//
// each blob (system state, spectrum and universe snapshots, contract
// states) is written as a size record plus fixed size chunks in a
// single leveldb batch so a reader never sees a partial blob
package storage

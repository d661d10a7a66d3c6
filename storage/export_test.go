// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package storage

// SetChunkSize - for tests of blobs spanning several chunks
func (d *Database) SetChunkSize(size int) {
	d.chunkSize = size
}

// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package storage

import (
	"encoding/binary"

	"github.com/syndtr/goleveldb/leveldb"
	ldb_util "github.com/syndtr/goleveldb/leveldb/util"

	"github.com/bitmark-inc/quorumd/fault"
)

// Persister - load and save of named blobs
type Persister interface {
	Size(name string) (int, error)
	Load(name string, buffer []byte) (int, error)
	Save(name string, buffer []byte) (int, error)
}

const defaultChunkSize = 1 << 20

// key prefixes
const (
	sizePrefix  = 'S'
	chunkPrefix = 'C'
)

func sizeKey(name string) []byte {
	return append([]byte{sizePrefix}, name...)
}

// chunk keys sort in chunk order below a name
func chunkRange(name string) *ldb_util.Range {
	start := append([]byte{chunkPrefix}, name...)
	start = append(start, 0x00)
	limit := append([]byte{chunkPrefix}, name...)
	limit = append(limit, 0x01)
	return &ldb_util.Range{Start: start, Limit: limit}
}

func chunkKey(name string, n int) []byte {
	key := append([]byte{chunkPrefix}, name...)
	key = append(key, 0x00, 0, 0, 0, 0)
	binary.BigEndian.PutUint32(key[len(key)-4:], uint32(n))
	return key
}

// Size - bytes in a saved blob
func (d *Database) Size(name string) (int, error) {
	d.RLock()
	defer d.RUnlock()

	if nil == d.db {
		return 0, fault.ErrNotInitialised
	}
	return d.size(name)
}

func (d *Database) size(name string) (int, error) {
	value, err := d.db.Get(sizeKey(name), nil)
	if leveldb.ErrNotFound == err {
		return 0, fault.ErrNotFound
	} else if nil != err {
		return 0, err
	}
	if 8 != len(value) {
		return 0, fault.ErrRecordTruncated
	}
	return int(binary.BigEndian.Uint64(value)), nil
}

// Load - fill buffer from a saved blob
//
// returns the number of bytes transferred, the smaller of the blob
// and the buffer
func (d *Database) Load(name string, buffer []byte) (int, error) {
	d.RLock()
	defer d.RUnlock()

	if nil == d.db {
		return 0, fault.ErrNotInitialised
	}

	size, err := d.size(name)
	if nil != err {
		return 0, err
	}
	if size > len(buffer) {
		size = len(buffer)
	}

	snapshot, err := d.db.GetSnapshot()
	if nil != err {
		return 0, err
	}
	defer snapshot.Release()

	iter := snapshot.NewIterator(chunkRange(name), nil)
	defer iter.Release()

	n := 0
	for n < size && iter.Next() {
		n += copy(buffer[n:size], iter.Value())
	}
	if err := iter.Error(); nil != err {
		return n, err
	}
	if n < size {
		d.log.Errorf("load: %s  expected: %d bytes  found: %d", name, size, n)
		return n, fault.ErrRecordTruncated
	}
	d.log.Debugf("load: %s  %d bytes", name, n)
	return n, nil
}

// Save - replace a blob
func (d *Database) Save(name string, buffer []byte) (int, error) {
	d.Lock()
	defer d.Unlock()

	if nil == d.db {
		return 0, fault.ErrNotInitialised
	}

	batch := new(leveldb.Batch)

	iter := d.db.NewIterator(chunkRange(name), nil)
	for iter.Next() {
		batch.Delete(append([]byte{}, iter.Key()...))
	}
	iter.Release()
	if err := iter.Error(); nil != err {
		return 0, err
	}

	for i, n := 0, 0; n < len(buffer); i += 1 {
		end := n + d.chunkSize
		if end > len(buffer) {
			end = len(buffer)
		}
		batch.Put(chunkKey(name, i), buffer[n:end])
		n = end
	}

	size := make([]byte, 8)
	binary.BigEndian.PutUint64(size, uint64(len(buffer)))
	batch.Put(sizeKey(name), size)

	err := d.db.Write(batch, nil)
	if nil != err {
		d.log.Errorf("save: %s  error: %s", name, err)
		return 0, err
	}
	d.log.Infof("save: %s  %d bytes", name, len(buffer))
	return len(buffer), nil
}

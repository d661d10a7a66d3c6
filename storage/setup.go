// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package storage

import (
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/bitmark-inc/logger"
	"github.com/syndtr/goleveldb/leveldb"
	ldb_opt "github.com/syndtr/goleveldb/leveldb/opt"
)

// for database version
var versionKey = []byte{0x00, 'V', 'E', 'R', 'S', 'I', 'O', 'N'}

const currentDBVersion = 0x100

// access modes
const (
	ReadOnly  = true
	ReadWrite = false
)

// Database - an open state database
type Database struct {
	sync.RWMutex

	log       *logger.L
	db        *leveldb.DB
	chunkSize int
}

// Open - open or create the database
func Open(database string, readOnly bool) (*Database, error) {
	log := logger.New("storage")

	db, version, err := getDB(database, readOnly)
	if nil != err {
		return nil, err
	}

	// ensure no database downgrade
	if version > currentDBVersion {
		db.Close()
		log.Criticalf("database version: %d > current version: %d", version, currentDBVersion)
		return nil, fmt.Errorf("database version: %d > current version: %d", version, currentDBVersion)
	}

	if 0 == version && !readOnly {
		err = putVersion(db, currentDBVersion)
		if nil != err {
			db.Close()
			return nil, err
		}
	}

	log.Infof("opened: %s  version: 0x%x", database, version)

	return &Database{
		log:       log,
		db:        db,
		chunkSize: defaultChunkSize,
	}, nil
}

// Close - close the database connection
func (d *Database) Close() {
	d.Lock()
	defer d.Unlock()
	if nil != d.db {
		d.db.Close()
		d.db = nil
	}
}

// return:
//   database handle
//   version number
func getDB(name string, readOnly bool) (*leveldb.DB, int, error) {
	opt := &ldb_opt.Options{
		ErrorIfExist:   false,
		ErrorIfMissing: readOnly,
		ReadOnly:       readOnly,
	}

	db, err := leveldb.OpenFile(name, opt)
	if nil != err {
		return nil, 0, err
	}

	versionValue, err := db.Get(versionKey, nil)
	if leveldb.ErrNotFound == err {
		return db, 0, nil
	} else if nil != err {
		db.Close()
		return nil, 0, err
	}

	if 4 != len(versionValue) {
		db.Close()
		return nil, 0, fmt.Errorf("incompatible database version length: expected: %d  actual: %d", 4, len(versionValue))
	}

	version := int(binary.BigEndian.Uint32(versionValue))
	return db, version, nil
}

func putVersion(db *leveldb.DB, version int) error {
	currentVersion := make([]byte, 4)
	binary.BigEndian.PutUint32(currentVersion, uint32(version))

	return db.Put(versionKey, currentVersion, nil)
}

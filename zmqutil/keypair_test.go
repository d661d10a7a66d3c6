// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package zmqutil_test

import (
	"bytes"
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/bitmark-inc/quorumd/fault"
	"github.com/bitmark-inc/quorumd/zmqutil"
)

func TestParseKey(t *testing.T) {
	key := bytes.Repeat([]byte{0x5a}, 32)

	public, private, err := zmqutil.ParseKey(zmqutil.EncodePublicKey(key))
	assert.Nil(t, err, "public")
	assert.False(t, private, "public is not private")
	assert.Equal(t, key, public, "public bytes")

	secret, private, err := zmqutil.ParseKey("  " + zmqutil.EncodePrivateKey(key))
	assert.Nil(t, err, "private")
	assert.True(t, private, "private")
	assert.Equal(t, key, secret, "private bytes")

	_, _, err = zmqutil.ParseKey("PUBLIC:5a5a")
	assert.Equal(t, fault.ErrInvalidPublicKeyFile, err, "short public")

	_, _, err = zmqutil.ParseKey("PRIVATE:5a5a")
	assert.Equal(t, fault.ErrInvalidPrivateKeyFile, err, "short private")

	_, _, err = zmqutil.ParseKey("SECRET:5a5a")
	assert.Equal(t, fault.ErrInvalidPublicKeyFile, err, "untagged")
}

func TestReadKeyWrongKind(t *testing.T) {
	key := bytes.Repeat([]byte{0x01}, 32)

	_, err := zmqutil.ReadPublicKey(zmqutil.EncodePrivateKey(key))
	assert.Equal(t, fault.ErrInvalidPublicKeyFile, err, "private as public")

	_, err = zmqutil.ReadPrivateKey(zmqutil.EncodePublicKey(key))
	assert.Equal(t, fault.ErrInvalidPrivateKeyFile, err, "public as private")
}

func TestReadKeyFiles(t *testing.T) {
	dir, err := ioutil.TempDir("", "zmqutil")
	assert.Nil(t, err, "temp dir")
	defer os.RemoveAll(dir)

	key := bytes.Repeat([]byte{0x42}, 32)
	publicFile := filepath.Join(dir, "publish.public")
	privateFile := filepath.Join(dir, "publish.private")
	assert.Nil(t, ioutil.WriteFile(publicFile, []byte(zmqutil.EncodePublicKey(key)), 0600), "write public")
	assert.Nil(t, ioutil.WriteFile(privateFile, []byte(zmqutil.EncodePrivateKey(key)), 0600), "write private")

	public, err := zmqutil.ReadPublicKeyFile(publicFile)
	assert.Nil(t, err, "read public")
	assert.Equal(t, key, public, "public")

	private, err := zmqutil.ReadPrivateKeyFile(privateFile)
	assert.Nil(t, err, "read private")
	assert.Equal(t, key, private, "private")

	err = zmqutil.MakeKeyPair(publicFile, privateFile)
	assert.Equal(t, fault.ErrKeyFileAlreadyExists, err, "existing files are kept")
}

func TestNewClientKeySizes(t *testing.T) {
	_, err := zmqutil.NewClient(0, []byte{1, 2}, bytes.Repeat([]byte{1}, 32), 0)
	assert.Equal(t, fault.ErrInvalidZMQKey, err, "short private key")
}

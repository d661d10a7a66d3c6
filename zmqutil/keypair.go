// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package zmqutil

import (
	"encoding/hex"
	"io/ioutil"
	"os"
	"strings"

	zmq "github.com/pebbe/zmq4"

	"github.com/bitmark-inc/quorumd/fault"
	"github.com/bitmark-inc/quorumd/util"
)

const (
	taggedPublic  = "PUBLIC:"
	taggedPrivate = "PRIVATE:"
	publicLength  = 32
	privateLength = 32
)

// MakeKeyPair - create a new CURVE keypair and write them to separate
// files
func MakeKeyPair(publicKeyFileName string, privateKeyFileName string) error {
	if util.FileExists(publicKeyFileName) {
		return fault.ErrKeyFileAlreadyExists
	}

	if util.FileExists(privateKeyFileName) {
		return fault.ErrKeyFileAlreadyExists
	}

	// keys are encoded in in Z85 (ZeroMQ Base-85 Encoding) see: http://rfc.zeromq.org/spec:32
	publicKey, privateKey, err := zmq.NewCurveKeypair()
	if nil != err {
		return err
	}

	publicKey = EncodePublicKey([]byte(zmq.Z85decode(publicKey)))
	privateKey = EncodePrivateKey([]byte(zmq.Z85decode(privateKey)))

	if err = ioutil.WriteFile(publicKeyFileName, []byte(publicKey), 0666); err != nil {
		return err
	}

	if err = ioutil.WriteFile(privateKeyFileName, []byte(privateKey), 0600); err != nil {
		os.Remove(publicKeyFileName)
		return err
	}

	return nil
}

// EncodePublicKey - tagged text form of a public key
func EncodePublicKey(key []byte) string {
	return taggedPublic + hex.EncodeToString(key) + "\n"
}

// EncodePrivateKey - tagged text form of a private key
func EncodePrivateKey(key []byte) string {
	return taggedPrivate + hex.EncodeToString(key) + "\n"
}

// ReadPublicKeyFile - read a public key file returning the 32 key bytes
func ReadPublicKeyFile(fileName string) ([]byte, error) {
	data, err := ioutil.ReadFile(fileName)
	if nil != err {
		return nil, err
	}
	return ReadPublicKey(string(data))
}

// ReadPrivateKeyFile - read a private key file returning the 32 key bytes
func ReadPrivateKeyFile(fileName string) ([]byte, error) {
	data, err := ioutil.ReadFile(fileName)
	if nil != err {
		return nil, err
	}
	return ReadPrivateKey(string(data))
}

// ReadPublicKey - read a public key from a string returning it as a 32 byte string
func ReadPublicKey(key string) ([]byte, error) {
	data, private, err := ParseKey(key)
	if err != nil {
		return []byte{}, err
	}
	if private {
		return []byte{}, fault.ErrInvalidPublicKeyFile
	}
	return data, err
}

// ReadPrivateKey - read a private key from a string returning it as a 32 byte string
func ReadPrivateKey(key string) ([]byte, error) {
	data, private, err := ParseKey(key)
	if err != nil {
		return []byte{}, err
	}
	if !private {
		return []byte{}, fault.ErrInvalidPrivateKeyFile
	}
	return data, err
}

// ParseKey - decode a tagged key, true if it is private
func ParseKey(data string) ([]byte, bool, error) {
	s := strings.TrimSpace(data)
	if strings.HasPrefix(s, taggedPrivate) {
		h, err := hex.DecodeString(s[len(taggedPrivate):])
		if err != nil {
			return []byte{}, false, err
		}
		if len(h) != privateLength {
			return []byte{}, false, fault.ErrInvalidPrivateKeyFile
		}
		return h, true, nil
	} else if strings.HasPrefix(s, taggedPublic) {
		h, err := hex.DecodeString(s[len(taggedPublic):])
		if err != nil {
			return []byte{}, false, err
		}
		if len(h) != publicLength {
			return []byte{}, false, fault.ErrInvalidPublicKeyFile
		}
		return h, false, nil
	}

	return []byte{}, false, fault.ErrInvalidPublicKeyFile
}

// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package merkle

import (
	"encoding/hex"

	"github.com/bitmark-inc/quorumd/fault"
)

// DigestLength - number of bytes in the digest
const DigestLength = 32

// Digest - type for a digest
// to convert to bytes just use d[:]
type Digest [DigestLength]byte

// IsZero - true for the all-zero digest, used for empty leaves and empty ticks
func (digest Digest) IsZero() bool {
	return Digest{} == digest
}

// String - convert a binary digest to hex string for use by the fmt package (for %s)
func (digest Digest) String() string {
	return hex.EncodeToString(digest[:])
}

// GoString - for %#v
func (digest Digest) GoString() string {
	return "<digest:" + hex.EncodeToString(digest[:]) + ">"
}

// MarshalText - convert digest to hex text
func (digest Digest) MarshalText() ([]byte, error) {
	buffer := make([]byte, hex.EncodedLen(len(digest)))
	hex.Encode(buffer, digest[:])
	return buffer, nil
}

// UnmarshalText - convert hex text into a digest
func (digest *Digest) UnmarshalText(s []byte) error {
	if DigestLength != hex.DecodedLen(len(s)) {
		return fault.ErrRecordTruncated
	}
	buffer := make([]byte, DigestLength)
	if _, err := hex.Decode(buffer, s); nil != err {
		return err
	}
	copy(digest[:], buffer)
	return nil
}

// DigestFromBytes - convert and validate a byte slice to a digest
func DigestFromBytes(digest *Digest, buffer []byte) error {
	if DigestLength != len(buffer) {
		return fault.ErrRecordTruncated
	}
	copy(digest[:], buffer)
	return nil
}

// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package request

import (
	"github.com/bitmark-inc/quorumd/protocol"
)

// Framer - splits the byte stream of one connection into messages
type Framer struct {
	buffer []byte
}

// Write - append received bytes and return every complete message
//
// an impossible header size is an error and the connection should be
// dropped since the stream can no longer be re-synchronised
func (f *Framer) Write(data []byte) ([][]byte, error) {
	f.buffer = append(f.buffer, data...)

	messages := [][]byte(nil)
	for len(f.buffer) >= protocol.HeaderSize {
		header, err := protocol.UnpackHeader(f.buffer)
		if nil != err {
			f.buffer = nil
			return messages, err
		}
		size := int(header.Size)
		if len(f.buffer) < size {
			break
		}
		messages = append(messages, append([]byte{}, f.buffer[:size]...))
		f.buffer = f.buffer[size:]
	}

	if 0 == len(f.buffer) {
		f.buffer = nil
	}
	return messages, nil
}

// Pending - bytes of an incomplete message
func (f *Framer) Pending() int {
	return len(f.buffer)
}

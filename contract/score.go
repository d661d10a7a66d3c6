// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package contract

import (
	"math/bits"

	"github.com/bitmark-inc/quorumd/cryptography"
	"github.com/bitmark-inc/quorumd/merkle"
)

// ScoreOracle - opaque evaluation of a mining solution
type ScoreOracle interface {
	Score(computor cryptography.PublicKey, nonce merkle.Digest) uint32
}

type digestScore struct {
	hasher merkle.Hasher
}

// NewDigestScore - score is the number of leading zero bits of the
// digest of the computor key and nonce
func NewDigestScore(hasher merkle.Hasher) ScoreOracle {
	return digestScore{hasher: hasher}
}

func (d digestScore) Score(computor cryptography.PublicKey, nonce merkle.Digest) uint32 {
	var buffer [2 * merkle.DigestLength]byte
	copy(buffer[:merkle.DigestLength], computor[:])
	copy(buffer[merkle.DigestLength:], nonce[:])
	digest := d.hasher.Hash64to32(&buffer)

	score := uint32(0)
	for _, b := range digest {
		if 0 == b {
			score += 8
			continue
		}
		score += uint32(bits.LeadingZeros8(b))
		break
	}
	return score
}

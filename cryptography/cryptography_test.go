// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package cryptography_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/bitmark-inc/quorumd/cryptography"
	"github.com/bitmark-inc/quorumd/fault"
	"github.com/bitmark-inc/quorumd/merkle"
)

func TestDeriveKeysDeterministic(t *testing.T) {
	c := cryptography.New()
	seed := strings.Repeat("a", cryptography.SeedLength)

	subseed1, private1, public1, err := c.DeriveKeys(seed)
	assert.Nil(t, err, "derive")
	subseed2, private2, public2, err := c.DeriveKeys(seed)
	assert.Nil(t, err, "derive again")

	assert.Equal(t, subseed1, subseed2, "subseed")
	assert.Equal(t, private1, private2, "private key")
	assert.Equal(t, public1, public2, "public key")
	assert.Equal(t, cryptography.Subseed(c.Hash32([]byte(seed))), subseed1, "subseed is hash of seed")
	assert.False(t, public1.IsZero(), "zero public key")
}

func TestDeriveKeysInvalid(t *testing.T) {
	c := cryptography.New()

	tests := []string{
		"",
		strings.Repeat("a", cryptography.SeedLength-1),
		strings.Repeat("a", cryptography.SeedLength+1),
		strings.Repeat("A", cryptography.SeedLength),
		strings.Repeat("a", cryptography.SeedLength-1) + "1",
	}
	for i, seed := range tests {
		_, _, _, err := c.DeriveKeys(seed)
		assert.Equal(t, fault.ErrInvalidSeed, err, "%d: seed: %q", i, seed)
	}
}

func TestSignVerify(t *testing.T) {
	c := cryptography.New()
	subseed, _, publicKey, err := c.DeriveKeys(strings.Repeat("q", cryptography.SeedLength))
	assert.Nil(t, err, "derive")

	digest := c.Hash32([]byte("tick 1234"))
	signature := c.Sign(subseed, publicKey, digest)
	assert.True(t, c.Verify(publicKey, digest, signature), "valid signature")

	other := digest
	other[0] ^= 1
	assert.False(t, c.Verify(publicKey, other, signature), "wrong digest")

	signature[5] ^= 0x80
	assert.False(t, c.Verify(publicKey, digest, signature), "damaged signature")
}

func TestHash64to32(t *testing.T) {
	c := cryptography.New()

	buffer := [2 * merkle.DigestLength]byte{}
	for i := range buffer {
		buffer[i] = byte(i)
	}
	assert.Equal(t, c.Hash32(buffer[:]), c.Hash64to32(&buffer), "same as hash of 64 bytes")
}

func TestContractPublicKey(t *testing.T) {
	publicKey := cryptography.ContractPublicKey(1)
	expected := cryptography.PublicKey{1}
	assert.Equal(t, expected, publicKey, "contract 1")

	index, ok := cryptography.ContractIndex(publicKey, 1024)
	assert.True(t, ok, "is contract")
	assert.Equal(t, uint(1), index, "index")

	_, ok = cryptography.ContractIndex(cryptography.PublicKey{}, 1024)
	assert.False(t, ok, "zero key is not a contract")

	_, ok = cryptography.ContractIndex(cryptography.ContractPublicKey(2000), 1024)
	assert.False(t, ok, "out of range")

	notContract := cryptography.PublicKey{1}
	notContract[31] = 7
	_, ok = cryptography.ContractIndex(notContract, 1024)
	assert.False(t, ok, "high bytes set")
}

func TestPublicKeyText(t *testing.T) {
	publicKey := cryptography.PublicKey{0x01, 0x02, 0xfe}
	s := publicKey.String()

	parsed, err := cryptography.PublicKeyFromHex(s)
	assert.Nil(t, err, "parse")
	assert.Equal(t, publicKey, parsed, "round trip")

	_, err = cryptography.PublicKeyFromHex("0102")
	assert.Equal(t, fault.ErrInvalidPublicKey, err, "short")

	_, err = cryptography.PublicKeyFromHex(strings.Repeat("zz", 32))
	assert.Equal(t, fault.ErrInvalidPublicKey, err, "not hex")
}

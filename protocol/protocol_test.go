// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package protocol_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bitmark-inc/quorumd/civil"
	"github.com/bitmark-inc/quorumd/cryptography"
	"github.com/bitmark-inc/quorumd/fault"
	"github.com/bitmark-inc/quorumd/merkle"
	"github.com/bitmark-inc/quorumd/protocol"
	"github.com/bitmark-inc/quorumd/spectrum"
	"github.com/bitmark-inc/quorumd/util"
)

func keys(t *testing.T, c cryptography.Crypto, letter string) (cryptography.Subseed, cryptography.PublicKey) {
	subseed, _, publicKey, err := c.DeriveKeys(strings.Repeat(letter, cryptography.SeedLength))
	require.Nil(t, err, "derive keys")
	return subseed, publicKey
}

func TestSizes(t *testing.T) {
	assert.Equal(t, 336, protocol.TickSize, "tick")
	assert.Equal(t, 16+32+1024*32+1024*8+64, protocol.TickDataSize, "tick data")
	assert.Equal(t, 144, protocol.MinTransactionSize, "transaction")
	assert.Equal(t, 2+676*32+64, protocol.ComputorsSize, "computors")
	assert.Equal(t, 64+8+24*32, protocol.RespondEntitySize, "entity response")
	assert.Equal(t, 8+676*40, protocol.RespondContractIPOSize, "ipo response")
}

func TestHeader(t *testing.T) {
	buffer, err := protocol.Frame(protocol.BroadcastTickType, 0x01020304, []byte{9, 8, 7})
	require.Nil(t, err, "frame")
	assert.Equal(t, []byte{11, 0, 0, 3, 4, 3, 2, 1, 9, 8, 7}, buffer, "bytes")

	h, err := protocol.UnpackHeader(buffer)
	require.Nil(t, err, "unpack")
	assert.Equal(t, protocol.Header{Size: 11, Type: 3, Dejavu: 0x01020304}, h, "header")

	_, err = protocol.UnpackHeader(buffer[:7])
	assert.Equal(t, fault.ErrMessageTooShort, err, "short")

	_, err = protocol.UnpackHeader([]byte{7, 0, 0, 1, 0, 0, 0, 0})
	assert.Equal(t, fault.ErrInvalidMessageSize, err, "size below header")

	big := protocol.Header{Size: protocol.MaxMessageSize, Type: 1}
	b := make([]byte, protocol.HeaderSize)
	big.PackInto(b)
	h, err = protocol.UnpackHeader(b)
	require.Nil(t, err, "largest")
	assert.Equal(t, uint32(protocol.MaxMessageSize), h.Size, "24 bit size")

	_, err = protocol.Frame(1, 0, make([]byte, protocol.MaxMessageSize))
	assert.Equal(t, fault.ErrInvalidMessageSize, err, "too large")
}

func sampleTick() *protocol.Tick {
	return &protocol.Tick{
		ComputorIndex:                     17,
		Epoch:                             3,
		Tick:                              12345,
		Time:                              civil.Time{Millisecond: 5, Second: 6, Minute: 7, Hour: 8, Day: 9, Month: 10, Year: 22},
		PrevSpectrumDigest:                merkle.Digest{1},
		PrevUniverseDigest:                merkle.Digest{2},
		PrevComputerDigest:                merkle.Digest{3},
		SaltedSpectrumDigest:              merkle.Digest{4},
		SaltedUniverseDigest:              merkle.Digest{5},
		SaltedComputerDigest:              merkle.Digest{6},
		TransactionDigest:                 merkle.Digest{7},
		ExpectedNextTickTransactionDigest: merkle.Digest{8},
	}
}

func TestTick(t *testing.T) {
	c := cryptography.New()
	subseed, publicKey := keys(t, c, "a")

	tick := sampleTick()
	tick.Sign(c, subseed, publicKey)
	assert.True(t, tick.Verify(c, publicKey), "verify")

	m, err := protocol.Decode(protocol.BroadcastTickType, tick.Pack())
	require.Nil(t, err, "decode")
	decoded, ok := m.(*protocol.Tick)
	require.True(t, ok, "type")
	assert.Equal(t, tick, decoded, "round trip")
	assert.True(t, decoded.Verify(c, publicKey), "verify decoded")

	decoded.Tick += 1
	assert.False(t, decoded.Verify(c, publicKey), "changed field")

	_, err = protocol.UnpackTick(tick.Pack()[1:])
	assert.Equal(t, fault.ErrInvalidMessageSize, err, "size")
}

func TestTickSigningDigestMixesType(t *testing.T) {
	c := cryptography.New()
	tick := sampleTick()
	raw := tick.Pack()
	assert.NotEqual(t, c.Hash32(raw[:protocol.TickSize-64]), tick.SigningDigest(c), "computor index is mixed")

	raw[0] ^= protocol.BroadcastTickType
	assert.Equal(t, c.Hash32(raw[:protocol.TickSize-64]), tick.SigningDigest(c), "XOR with message type")
}

func TestEssence(t *testing.T) {
	c := cryptography.New()
	a := sampleTick()
	b := sampleTick()

	b.ComputorIndex = 400
	b.SaltedSpectrumDigest = merkle.Digest{0xaa}
	b.ExpectedNextTickTransactionDigest = merkle.Digest{0xbb}
	assert.Equal(t, a.Essence(c), b.Essence(c), "salted and per computor fields ignored")

	b.PrevUniverseDigest = merkle.Digest{0xcc}
	assert.NotEqual(t, a.Essence(c), b.Essence(c), "previous digest counts")

	b = sampleTick()
	b.Time.Millisecond += 1
	assert.NotEqual(t, a.Essence(c), b.Essence(c), "time counts")
}

func TestTickData(t *testing.T) {
	c := cryptography.New()
	subseed, publicKey := keys(t, c, "b")

	data := &protocol.TickData{
		ComputorIndex: 5,
		Epoch:         3,
		Tick:          681,
		Time:          civil.Time{Day: 1, Month: 1, Year: 22},
	}
	data.TransactionDigests[0] = merkle.Digest{1}
	data.TransactionDigests[1023] = merkle.Digest{2}
	data.ContractFees[1] = 99
	data.Sign(c, subseed, publicKey)

	m, err := protocol.Decode(protocol.BroadcastFutureTickDataType, data.Pack())
	require.Nil(t, err, "decode")
	decoded := m.(*protocol.TickData)
	assert.Equal(t, data, decoded, "round trip")
	assert.True(t, decoded.Verify(c, publicKey), "verify")
	assert.Equal(t, 2, decoded.NumberOfTransactions(), "count")
	assert.Equal(t, c.Hash32(data.Pack()), data.Digest(c), "digest of whole record")
}

func TestTransaction(t *testing.T) {
	c := cryptography.New()
	subseed, publicKey := keys(t, c, "c")

	tx := &protocol.Transaction{
		SourcePublicKey:      publicKey,
		DestinationPublicKey: cryptography.PublicKey{9},
		Amount:               1000,
		Tick:                 77,
		InputType:            2,
		Input:                []byte{1, 2, 3},
	}
	tx.Sign(c, subseed)
	assert.True(t, tx.Verify(c), "verify")
	assert.Nil(t, tx.Valid(), "valid")

	packed := tx.Pack()
	assert.Equal(t, protocol.MinTransactionSize+3, len(packed), "size")
	assert.Equal(t, c.Hash32(packed), tx.Digest(c), "digest covers signature")

	decoded, err := protocol.UnpackTransaction(packed)
	require.Nil(t, err, "unpack")
	assert.Equal(t, tx, decoded, "round trip")

	_, err = protocol.UnpackTransaction(packed[:len(packed)-1])
	assert.Equal(t, fault.ErrInvalidMessageSize, err, "input size disagrees")
	_, err = protocol.UnpackTransaction(packed[:10])
	assert.Equal(t, fault.ErrInvalidMessageSize, err, "short")

	tx.Amount = -1
	assert.Equal(t, fault.ErrInvalidAmount, tx.Valid(), "negative")
	tx.Amount = 1
	tx.DestinationPublicKey = cryptography.PublicKey{}
	assert.Equal(t, fault.ErrZeroPublicKey, tx.Valid(), "zero destination")
}

func TestComputors(t *testing.T) {
	c := cryptography.New()
	subseed, arbitrator := keys(t, c, "d")

	m := &protocol.Computors{Epoch: 4}
	m.PublicKeys[0] = cryptography.PublicKey{1}
	m.PublicKeys[675] = cryptography.PublicKey{2}
	m.Sign(c, subseed, arbitrator)

	decoded, err := protocol.UnpackComputors(m.Pack())
	require.Nil(t, err, "unpack")
	assert.Equal(t, m, decoded, "round trip")
	assert.True(t, decoded.Verify(c, arbitrator), "verify")
	assert.False(t, decoded.Verify(c, cryptography.PublicKey{3}), "other key")
}

func TestBroadcastMessage(t *testing.T) {
	c := cryptography.New()
	subseed, publicKey := keys(t, c, "e")

	m := &protocol.BroadcastMessage{
		SourcePublicKey:      publicKey,
		DestinationPublicKey: cryptography.PublicKey{7},
		Payload:              protocol.MiningSolutionPayloadBytes(merkle.Digest{0x42}),
	}
	m.Sign(c, subseed)

	decoded, err := protocol.UnpackBroadcastMessage(m.Pack())
	require.Nil(t, err, "unpack")
	assert.Equal(t, m, decoded, "round trip")
	assert.True(t, decoded.Verify(c), "verify")

	nonce, ok := decoded.MiningSolution()
	assert.True(t, ok, "solution")
	assert.Equal(t, merkle.Digest{0x42}, nonce, "nonce")

	decoded.Payload = []byte{1, 2}
	_, ok = decoded.MiningSolution()
	assert.False(t, ok, "not a solution")
}

func TestRequests(t *testing.T) {
	peers := &protocol.ExchangePublicPeers{}
	peers.Peers[1] = util.IPv4{1, 2, 3, 4}
	m, err := protocol.Decode(protocol.ExchangePublicPeersType, peers.Pack())
	require.Nil(t, err, "peers")
	assert.Equal(t, peers, m, "peers round trip")

	quorum := &protocol.RequestQuorumTick{Tick: 10}
	quorum.VoteFlags[1] = 0x04 // computor 10
	m, err = protocol.Decode(protocol.RequestQuorumTickType, quorum.Pack())
	require.Nil(t, err, "quorum tick")
	assert.True(t, m.(*protocol.RequestQuorumTick).Has(10), "flag")
	assert.False(t, m.(*protocol.RequestQuorumTick).Has(11), "no flag")

	txs := &protocol.RequestTickTransactions{Tick: 11}
	txs.TransactionFlags[127] = 0x80
	m, err = protocol.Decode(protocol.RequestTickTransactionsType, txs.Pack())
	require.Nil(t, err, "tick transactions")
	assert.True(t, m.(*protocol.RequestTickTransactions).Has(1023), "last slot")

	info := &protocol.CurrentTickInfo{TickDuration: 1000, Epoch: 3, Tick: 99, NumberOfAlignedVotes: 451, NumberOfMisalignedVotes: 3, InitialTick: 50}
	m, err = protocol.Decode(protocol.RespondCurrentTickInfoType, info.Pack())
	require.Nil(t, err, "tick info")
	assert.Equal(t, info, m, "tick info round trip")

	for _, messageType := range []uint8{protocol.RequestComputorsType, protocol.RequestCurrentTickInfoType, protocol.EndResponseType} {
		m, err = protocol.Decode(messageType, nil)
		require.Nil(t, err, "empty: %d", messageType)
		assert.Equal(t, messageType, m.Type(), "type")
		_, err = protocol.Decode(messageType, []byte{0})
		assert.Equal(t, fault.ErrInvalidMessageSize, err, "empty with payload: %d", messageType)
	}

	_, err = protocol.Decode(200, nil)
	assert.Equal(t, fault.ErrUnknownMessageType, err, "unknown")
	_, err = protocol.Decode(protocol.RequestTickDataType, []byte{1})
	assert.Equal(t, fault.ErrInvalidMessageSize, err, "short tick data request")
}

func TestRespondEntity(t *testing.T) {
	r := &protocol.RespondEntity{
		Entity: spectrum.Entity{
			PublicKey:      cryptography.PublicKey{5},
			IncomingAmount: 100,
			OutgoingAmount: 40,
		},
		Tick:          8,
		SpectrumIndex: -1,
	}
	r.Siblings[23] = merkle.Digest{9}

	m, err := protocol.Decode(protocol.RespondEntityType, r.Pack())
	require.Nil(t, err, "decode")
	assert.Equal(t, r, m, "round trip")
}

func TestRespondContractIPO(t *testing.T) {
	r := &protocol.RespondContractIPO{ContractIndex: 1, Tick: 5}
	r.PublicKeys[0] = cryptography.PublicKey{1}
	r.Prices[0] = 1000
	m, err := protocol.Decode(protocol.RespondContractIPOType, r.Pack())
	require.Nil(t, err, "decode")
	assert.Equal(t, r, m, "round trip")
}

func TestSpecialCommand(t *testing.T) {
	c := cryptography.New()
	subseed, operator := keys(t, c, "f")

	body := &protocol.ProposalBody{ComputorIndex: 12, Ballot: 3}
	copy(body.URI[:], "https://example.com")
	command := protocol.NewSpecialCommand(protocol.SetProposalAndBallotCommand, 77, body.Pack())
	command.Sign(c, subseed, operator)

	m, err := protocol.Decode(protocol.ProcessSpecialCommandType, command.Pack())
	require.Nil(t, err, "decode")
	decoded := m.(*protocol.SpecialCommand)
	assert.True(t, decoded.Verify(c, operator), "verify")
	assert.Equal(t, uint8(protocol.SetProposalAndBallotCommand), decoded.Command(), "command")
	assert.Equal(t, uint64(77), decoded.Nonce(), "nonce")

	p, err := protocol.UnpackProposalBody(decoded.Body)
	require.Nil(t, err, "body")
	assert.Equal(t, body, p, "body round trip")

	response, err := decoded.Response(p.Pack())
	require.Nil(t, err, "response")
	h, err := protocol.UnpackHeader(response)
	require.Nil(t, err, "header")
	assert.Equal(t, uint8(protocol.ProcessSpecialCommandType), h.Type, "type")
	nonceAndType, echoed, err := protocol.ParseSpecialResponse(response[protocol.HeaderSize:])
	require.Nil(t, err, "parse")
	assert.Equal(t, decoded.NonceAndType, nonceAndType, "echo")
	assert.Equal(t, p.Pack(), echoed, "echo body")

	index, err := protocol.UnpackGetProposalBody(protocol.GetProposalBody(300))
	assert.Nil(t, err, "get body")
	assert.Equal(t, uint16(300), index, "index")
}

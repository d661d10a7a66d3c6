// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package fault

// GenericError - error base
type GenericError string

// to allow for different classes of errors
type ExistsError GenericError
type InvalidError GenericError
type LengthError GenericError
type NotFoundError GenericError
type ProcessError GenericError
type RecordError GenericError

// common errors - keep in alphabetic order
var (
	ErrAlreadyInitialised       = ExistsError("already initialised")
	ErrAssetExists              = ExistsError("asset already issued")
	ErrAssetNotFound            = NotFoundError("asset not found")
	ErrAssetTypeMismatch        = RecordError("asset type mismatch")
	ErrAssetsFull               = ProcessError("asset table is full")
	ErrCapacityNotPowerOfTwo    = InvalidError("capacity is not a power of two")
	ErrConflictingRecord        = ExistsError("conflicting record already stored")
	ErrContractAborted          = ProcessError("contract execution aborted")
	ErrContractNotActive        = InvalidError("contract is not active in this epoch")
	ErrContractNotFound         = NotFoundError("contract not found")
	ErrDuplicateMessage         = ExistsError("duplicate message")
	ErrEntityNotFound           = NotFoundError("entity not found")
	ErrEpochMismatch            = InvalidError("epoch mismatch")
	ErrInconsistentAssetLink    = RecordError("inconsistent ownership/possession link")
	ErrInsufficientBalance      = ProcessError("insufficient balance")
	ErrInsufficientUnits        = ProcessError("insufficient units")
	ErrInvalidAmount            = InvalidError("invalid amount")
	ErrInvalidAssetName         = InvalidError("invalid asset name")
	ErrInvalidChain             = InvalidError("invalid chain")
	ErrInvalidComputorIndex     = InvalidError("invalid computor index")
	ErrInvalidComputorSeed      = InvalidError("invalid computor seed")
	ErrInvalidConnection        = InvalidError("invalid connection")
	ErrInvalidContractIndex     = InvalidError("invalid contract index")
	ErrInvalidDirectory         = InvalidError("invalid directory")
	ErrInvalidFileName          = InvalidError("file name is not a plain name")
	ErrInvalidIPAddress         = InvalidError("invalid IP address")
	ErrInvalidInputSize         = LengthError("invalid input size")
	ErrInvalidLoggerChannel     = InvalidError("invalid logger channel")
	ErrInvalidMessageSize       = LengthError("invalid message size")
	ErrInvalidNonce             = InvalidError("invalid nonce")
	ErrInvalidPortNumber        = InvalidError("invalid port number")
	ErrInvalidPrivateKeyFile    = InvalidError("invalid private key file")
	ErrInvalidPublicKey         = InvalidError("invalid public key")
	ErrInvalidPublicKeyFile     = InvalidError("invalid public key file")
	ErrInvalidSeed              = InvalidError("invalid seed")
	ErrInvalidSignature         = InvalidError("invalid signature")
	ErrInvalidSpecialCommand    = InvalidError("invalid special command")
	ErrInvalidStructPointer     = InvalidError("invalid struct pointer")
	ErrInvalidTick              = InvalidError("invalid tick")
	ErrInvalidTickLeader        = InvalidError("tick data not from tick leader")
	ErrInvalidTimeFields        = InvalidError("invalid time fields")
	ErrInvalidUnits             = InvalidError("invalid number of units")
	ErrInvalidZMQKey            = InvalidError("invalid ZMQ key")
	ErrIssuanceNotFound         = NotFoundError("issuance not found")
	ErrKeyFileAlreadyExists     = ExistsError("key file already exists")
	ErrMessageTooShort          = LengthError("message too short")
	ErrNoResponse               = ProcessError("no response from node")
	ErrNotConnected             = ProcessError("not connected")
	ErrNotFound                 = NotFoundError("not found")
	ErrNotInitialised           = NotFoundError("not initialised")
	ErrOwnershipNotFound        = NotFoundError("ownership not found")
	ErrPhaseInProgress          = ProcessError("contract phase already in progress")
	ErrPossessionNotFound       = NotFoundError("possession not found")
	ErrQueueFull                = ProcessError("queue is full")
	ErrRecordTruncated          = LengthError("record is truncated")
	ErrSnapshotSizeMismatch     = LengthError("snapshot size mismatch")
	ErrSpectrumFull             = ProcessError("spectrum is full")
	ErrTickDataNotFound         = NotFoundError("tick data not found")
	ErrTickOutsideWindow        = InvalidError("tick outside storage window")
	ErrTooManyTransactions      = InvalidError("too many transactions")
	ErrTransactionNotFound      = NotFoundError("transaction not found")
	ErrUnknownMessageType       = InvalidError("unknown message type")
	ErrUnsupportedSystemVersion = RecordError("unsupported system state version")
	ErrZeroPublicKey            = InvalidError("public key is zero")
)

// the error interface base method
func (e GenericError) Error() string { return string(e) }

// the error interface methods
func (e ExistsError) Error() string   { return string(e) }
func (e InvalidError) Error() string  { return string(e) }
func (e LengthError) Error() string   { return string(e) }
func (e NotFoundError) Error() string { return string(e) }
func (e ProcessError) Error() string  { return string(e) }
func (e RecordError) Error() string   { return string(e) }

// determine the class of an error
func IsErrExists(e error) bool   { _, ok := e.(ExistsError); return ok }
func IsErrInvalid(e error) bool  { _, ok := e.(InvalidError); return ok }
func IsErrLength(e error) bool   { _, ok := e.(LengthError); return ok }
func IsErrNotFound(e error) bool { _, ok := e.(NotFoundError); return ok }
func IsErrProcess(e error) bool  { _, ok := e.(ProcessError); return ok }
func IsErrRecord(e error) bool   { _, ok := e.(RecordError); return ok }

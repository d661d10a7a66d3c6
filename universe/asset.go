// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package universe

import (
	"encoding/binary"

	"github.com/bitmark-inc/quorumd/cryptography"
	"github.com/bitmark-inc/quorumd/fault"
)

// Type - discriminator of the asset variants
type Type uint8

// the asset variants; Empty marks an unused slot
const (
	Empty Type = iota
	Issuance
	Ownership
	Possession
)

// String - for logging
func (t Type) String() string {
	switch t {
	case Empty:
		return "Empty"
	case Issuance:
		return "Issuance"
	case Ownership:
		return "Ownership"
	case Possession:
		return "Possession"
	default:
		return "*unknown*"
	}
}

// field sizes
const (
	NameSize = 7
	UnitSize = 7

	publicKeySize        = cryptography.PublicKeySize
	typeSize             = 1
	padSize              = 1
	managingContractSize = 2
	linkSize             = 4
	unitsSize            = 8
	decimalsSize         = 1
)

// offsets of the common fields
const (
	publicKeyOffset = 0
	typeOffset      = publicKeyOffset + publicKeySize
	variantOffset   = typeOffset + typeSize
)

// offsets within an issuance
const (
	nameOffset     = variantOffset
	decimalsOffset = nameOffset + NameSize
	unitOffset     = decimalsOffset + decimalsSize
	issuanceEnd    = unitOffset + UnitSize
)

// offsets within an ownership or a possession
const (
	managingContractOffset = variantOffset + padSize
	linkOffset             = managingContractOffset + managingContractSize
	unitsOffset            = linkOffset + linkSize
	holdingEnd             = unitsOffset + unitsSize
)

// AssetSize - bytes in a packed asset record
const AssetSize = holdingEnd

// PackedAsset - fixed record as stored in a snapshot and hashed
// into the universe digest
type PackedAsset [AssetSize]byte

// Asset - one record of the universe
//
// the fields used depend on Type:
//   Issuance:   Name, NumberOfDecimalPlaces, UnitOfMeasurement
//   Ownership:  ManagingContract, Link = issuance index, NumberOfUnits
//   Possession: ManagingContract, Link = ownership index, NumberOfUnits
type Asset struct {
	PublicKey             cryptography.PublicKey `json:"publicKey"`
	Type                  Type                   `json:"type"`
	Name                  [NameSize]byte         `json:"name"`
	NumberOfDecimalPlaces int8                   `json:"numberOfDecimalPlaces"`
	UnitOfMeasurement     [UnitSize]byte         `json:"unitOfMeasurement"`
	ManagingContract      uint16                 `json:"managingContract"`
	Link                  uint32                 `json:"link"`
	NumberOfUnits         int64                  `json:"numberOfUnits,string"`
}

// NameString - issuance name without trailing NULs
func (asset *Asset) NameString() string {
	n := 0
	for n < NameSize && 0 != asset.Name[n] {
		n += 1
	}
	return string(asset.Name[:n])
}

// PackInto - write the fixed record to the front of a buffer
func (asset *Asset) PackInto(buffer []byte) {
	for i := 0; i < AssetSize; i += 1 {
		buffer[i] = 0
	}
	copy(buffer[publicKeyOffset:], asset.PublicKey[:])
	buffer[typeOffset] = byte(asset.Type)

	switch asset.Type {
	case Issuance:
		copy(buffer[nameOffset:], asset.Name[:])
		buffer[decimalsOffset] = byte(asset.NumberOfDecimalPlaces)
		copy(buffer[unitOffset:], asset.UnitOfMeasurement[:])
	case Ownership, Possession:
		binary.LittleEndian.PutUint16(buffer[managingContractOffset:], asset.ManagingContract)
		binary.LittleEndian.PutUint32(buffer[linkOffset:], asset.Link)
		binary.LittleEndian.PutUint64(buffer[unitsOffset:], uint64(asset.NumberOfUnits))
	}
}

// Pack - convert to the fixed record
func (asset *Asset) Pack() PackedAsset {
	record := PackedAsset{}
	asset.PackInto(record[:])
	return record
}

// Unpack - turn a byte slice into an asset
func Unpack(buffer []byte) (*Asset, error) {
	if len(buffer) < AssetSize {
		return nil, fault.ErrRecordTruncated
	}

	asset := &Asset{
		Type: Type(buffer[typeOffset]),
	}
	copy(asset.PublicKey[:], buffer[publicKeyOffset:typeOffset])

	switch asset.Type {
	case Empty:
	case Issuance:
		copy(asset.Name[:], buffer[nameOffset:decimalsOffset])
		asset.NumberOfDecimalPlaces = int8(buffer[decimalsOffset])
		copy(asset.UnitOfMeasurement[:], buffer[unitOffset:issuanceEnd])
	case Ownership, Possession:
		asset.ManagingContract = binary.LittleEndian.Uint16(buffer[managingContractOffset:])
		asset.Link = binary.LittleEndian.Uint32(buffer[linkOffset:])
		asset.NumberOfUnits = int64(binary.LittleEndian.Uint64(buffer[unitsOffset:]))
		if asset.NumberOfUnits < 0 {
			return nil, fault.ErrInvalidUnits
		}
	default:
		return nil, fault.ErrAssetTypeMismatch
	}
	return asset, nil
}

// NameFromString - validate and pack an asset name
//
// one upper case letter followed by up to six upper case letters or digits
func NameFromString(s string) ([NameSize]byte, error) {
	name := [NameSize]byte{}
	if 0 == len(s) || len(s) > NameSize {
		return name, fault.ErrInvalidAssetName
	}
	for i := 0; i < len(s); i += 1 {
		c := s[i]
		switch {
		case c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9' && i > 0:
		default:
			return name, fault.ErrInvalidAssetName
		}
		name[i] = c
	}
	return name, nil
}

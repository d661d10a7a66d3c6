// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package node

import (
	"time"

	"github.com/bitmark-inc/quorumd/constants"
	"github.com/bitmark-inc/quorumd/cryptography"
	"github.com/bitmark-inc/quorumd/fault"
)

// defaults
const (
	DefaultWorkers           = 4
	DefaultRequestQueueSize  = 65536
	DefaultResponseQueueSize = 65536
	DefaultDejavuBits        = 24
	DefaultDejavuSwapLimit   = 1 << 20
	DefaultPoolSize          = 1 << 16
	DefaultInitialEpoch      = 1
	DefaultInitialTick       = 1
)

// GenesisEntity - an opening balance of a first start
type GenesisEntity struct {
	PublicKey string `gluamapper:"public_key" json:"public_key"`
	Amount    int64  `gluamapper:"amount" json:"amount"`
}

// Configuration - the node block of the daemon configuration
type Configuration struct {
	ComputorSeeds []string `gluamapper:"computor_seeds" json:"-"`
	Operator      string   `gluamapper:"operator" json:"operator"`
	Arbitrator    string   `gluamapper:"arbitrator" json:"arbitrator"`

	// committee and balances used only when no state was saved
	InitialEpoch uint16          `gluamapper:"initial_epoch" json:"initial_epoch"`
	InitialTick  uint32          `gluamapper:"initial_tick" json:"initial_tick"`
	Computors    []string        `gluamapper:"computors" json:"computors"`
	Genesis      []GenesisEntity `gluamapper:"genesis" json:"genesis"`

	Workers           int    `gluamapper:"workers" json:"workers"`
	RequestQueueSize  int    `gluamapper:"request_queue_size" json:"request_queue_size"`
	ResponseQueueSize int    `gluamapper:"response_queue_size" json:"response_queue_size"`
	DejavuBits        uint   `gluamapper:"dejavu_bits" json:"dejavu_bits"`
	DejavuSwapLimit   uint64 `gluamapper:"dejavu_swap_limit" json:"dejavu_swap_limit"`
	PoolSize          int    `gluamapper:"pool_size" json:"pool_size"`

	SpectrumCapacity uint   `gluamapper:"spectrum_capacity" json:"spectrum_capacity"`
	AssetsCapacity   uint   `gluamapper:"assets_capacity" json:"assets_capacity"`
	TicksPerEpoch    uint32 `gluamapper:"ticks_per_epoch" json:"ticks_per_epoch"`

	// milliseconds
	TickDuration    int `gluamapper:"tick_duration" json:"tick_duration"`
	ContractTimeout int `gluamapper:"contract_timeout" json:"contract_timeout"`

	// construction epoch of the built-in payout contract
	QUTILEpoch uint16 `gluamapper:"qutil_epoch" json:"qutil_epoch"`
}

// fill every unset value with its default
func (c *Configuration) defaults() {
	if 0 == c.InitialEpoch {
		c.InitialEpoch = DefaultInitialEpoch
	}
	if 0 == c.InitialTick {
		c.InitialTick = DefaultInitialTick
	}
	if c.Workers <= 0 {
		c.Workers = DefaultWorkers
	}
	if c.RequestQueueSize <= 0 {
		c.RequestQueueSize = DefaultRequestQueueSize
	}
	if c.ResponseQueueSize <= 0 {
		c.ResponseQueueSize = DefaultResponseQueueSize
	}
	if 0 == c.DejavuBits {
		c.DejavuBits = DefaultDejavuBits
	}
	if 0 == c.DejavuSwapLimit {
		c.DejavuSwapLimit = DefaultDejavuSwapLimit
	}
	if c.PoolSize <= 0 {
		c.PoolSize = DefaultPoolSize
	}
	if 0 == c.SpectrumCapacity {
		c.SpectrumCapacity = constants.SpectrumCapacity
	}
	if 0 == c.AssetsCapacity {
		c.AssetsCapacity = constants.AssetsCapacity
	}
	if 0 == c.TicksPerEpoch {
		c.TicksPerEpoch = constants.DefaultMaxNumberOfTicksPerEpoch
	}
	if 0 == c.QUTILEpoch {
		c.QUTILEpoch = c.InitialEpoch
	}
}

func (c *Configuration) tickDuration() time.Duration {
	if c.TickDuration <= 0 {
		return constants.DefaultTargetTickDuration
	}
	return time.Duration(c.TickDuration) * time.Millisecond
}

func (c *Configuration) contractTimeout() time.Duration {
	if c.ContractTimeout <= 0 {
		return constants.DefaultContractPhaseDuration
	}
	return time.Duration(c.ContractTimeout) * time.Millisecond
}

// an optional hex public key
func optionalKey(s string) (cryptography.PublicKey, error) {
	if "" == s {
		return cryptography.PublicKey{}, nil
	}
	return cryptography.PublicKeyFromHex(s)
}

// the configured opening committee
func (c *Configuration) committee() ([constants.NumberOfComputors]cryptography.PublicKey, error) {
	keys := [constants.NumberOfComputors]cryptography.PublicKey{}
	if len(c.Computors) > constants.NumberOfComputors {
		return keys, fault.ErrInvalidComputorIndex
	}
	for i, s := range c.Computors {
		publicKey, err := cryptography.PublicKeyFromHex(s)
		if nil != err {
			return keys, err
		}
		keys[i] = publicKey
	}
	return keys, nil
}

// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mode

import (
	"sync"

	"github.com/bitmark-inc/logger"
)

// Mode - type to hold the mode
type Mode int

// all possible modes
const (
	Stopped Mode = iota
	Synchronising
	Normal
	Halted
	maximum
)

// Holder - the current mode of one node
//
// Halted is terminal: once set no other mode can replace it
type Holder struct {
	sync.RWMutex
	log  *logger.L
	mode Mode
}

// New - create a mode holder starting in Synchronising
func New() *Holder {
	h := &Holder{
		log:  logger.New("mode"),
		mode: Synchronising,
	}
	return h
}

// Set - change mode
func (h *Holder) Set(mode Mode) {

	if mode < Stopped || mode >= maximum {
		h.log.Errorf("ignore invalid set: %d", mode)
		return
	}

	h.Lock()
	defer h.Unlock()

	if Halted == h.mode {
		return
	}
	if h.mode != mode {
		h.log.Infof("set: %s", mode)
	}
	h.mode = mode
}

// Is - detect mode
func (h *Holder) Is(mode Mode) bool {
	h.RLock()
	defer h.RUnlock()
	return mode == h.mode
}

// Get - current mode
func (h *Holder) Get() Mode {
	h.RLock()
	defer h.RUnlock()
	return h.mode
}

// String - current mode represented as a string
func (h *Holder) String() string {
	return h.Get().String()
}

// String - mode represented as a string
func (m Mode) String() string {
	switch m {
	case Stopped:
		return "Stopped"
	case Synchronising:
		return "Synchronising"
	case Normal:
		return "Normal"
	case Halted:
		return "Halted"
	default:
		return "*Unknown*"
	}
}

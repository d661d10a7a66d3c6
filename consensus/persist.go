// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package consensus

import (
	"fmt"

	"github.com/bitmark-inc/quorumd/fault"
	"github.com/bitmark-inc/quorumd/storage"
	"github.com/bitmark-inc/quorumd/system"
)

// names of the persisted blobs
const systemName = "system"

func spectrumName(epoch uint16) string {
	return fmt.Sprintf("spectrum.%03d", epoch)
}

func universeName(epoch uint16) string {
	return fmt.Sprintf("universe.%03d", epoch)
}

func contractName(index uint, epoch uint16) string {
	return fmt.Sprintf("contract%04d.%03d", index, epoch)
}

func ipoName(index uint, epoch uint16) string {
	return fmt.Sprintf("ipo%04d.%03d", index, epoch)
}

// LoadSystem - read the saved system state
//
// returns fault.ErrNotFound if nothing was saved
func LoadSystem(p storage.Persister) (*system.System, error) {
	buffer, err := load(p, systemName)
	if nil != err {
		return nil, err
	}
	return system.Unpack(buffer)
}

func load(p storage.Persister, name string) ([]byte, error) {
	size, err := p.Size(name)
	if nil != err {
		return nil, err
	}
	buffer := make([]byte, size)
	n, err := p.Load(name, buffer)
	if nil != err {
		return nil, err
	}
	if n != size {
		return nil, fault.ErrRecordTruncated
	}
	return buffer, nil
}

func save(p storage.Persister, name string, buffer []byte) error {
	n, err := p.Save(name, buffer)
	if nil != err {
		return err
	}
	if n != len(buffer) {
		return fault.ErrRecordTruncated
	}
	return nil
}

// Save - write the state of the current epoch
func (e *Engine) Save() error {
	if nil == e.Persister {
		return nil
	}
	epoch, _ := e.System.CurrentTick()

	err := save(e.Persister, systemName, e.System.Pack())
	if nil != err {
		return err
	}
	err = save(e.Persister, spectrumName(epoch), e.Spectrum.Snapshot())
	if nil != err {
		return err
	}
	err = save(e.Persister, universeName(epoch), e.Universe.Snapshot())
	if nil != err {
		return err
	}
	for _, index := range e.Contracts.Indices() {
		err = save(e.Persister, contractName(index, epoch), e.Contracts.State(index))
		if nil != err {
			return err
		}
		if ipo, ok := e.Contracts.IPO(index); ok && e.Contracts.InIPO(index, epoch) {
			err = save(e.Persister, ipoName(index, epoch), ipo.Pack())
			if nil != err {
				return err
			}
		}
	}
	e.log.Infof("saved: epoch: %d", epoch)
	return nil
}

// Load - restore the stores from the state saved for the current epoch
func (e *Engine) Load() error {
	epoch, _ := e.System.CurrentTick()

	buffer, err := load(e.Persister, spectrumName(epoch))
	if nil != err {
		return err
	}
	if err := e.Spectrum.Restore(buffer); nil != err {
		return err
	}

	buffer, err = load(e.Persister, universeName(epoch))
	if nil != err {
		return err
	}
	if err := e.Universe.Restore(buffer); nil != err {
		return err
	}

	for _, index := range e.Contracts.Indices() {
		buffer, err = load(e.Persister, contractName(index, epoch))
		if nil != err {
			return err
		}
		if err := e.Contracts.SetState(index, buffer); nil != err {
			return err
		}
		ipo, ok := e.Contracts.IPO(index)
		if !ok || !e.Contracts.InIPO(index, epoch) {
			continue
		}
		buffer, err = load(e.Persister, ipoName(index, epoch))
		if fault.ErrNotFound == err {
			continue
		}
		if nil != err {
			return err
		}
		if err := ipo.Unpack(buffer); nil != err {
			return err
		}
	}
	e.log.Infof("loaded: epoch: %d", epoch)
	return nil
}

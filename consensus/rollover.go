// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package consensus

import (
	"github.com/bitmark-inc/quorumd/constants"
	"github.com/bitmark-inc/quorumd/contract"
)

// close the epoch at the current tick and open the next one at the
// following tick
func (e *Engine) rollover() {
	log := e.log
	epoch, current := e.System.CurrentTick()

	log.Infof("end epoch: %d  tick: %d", epoch, current)
	e.Contracts.RunPhase(contract.EndEpoch, epoch, current)

	for _, index := range e.Contracts.Indices() {
		if !e.Contracts.InIPO(index, epoch) {
			continue
		}
		c, _ := e.Contracts.Contract(index)
		ipo, _ := e.Contracts.IPO(index)
		final, raised, err := ipo.Settle(e.Spectrum, e.Universe, c.Description().AssetName, current)
		if nil != err {
			log.Errorf("contract: %d  IPO settle error: %s", index, err)
			continue
		}
		e.System.AddFeeReserve(index, raised)
		log.Infof("contract: %d  IPO final price: %d  raised: %d", index, final, raised)
	}

	e.payRevenue(current)

	e.Spectrum.Compact()
	e.Universe.Compact()

	e.System.BeginEpoch(current+1, e.tickTime)
	e.Votes.Reset(current + 1)
	e.TickData.Reset(current + 1)
	e.Pool.Prune(current)
	e.lastTime = e.tickTime

	e.Lock()
	e.faulty.ClearAll()
	e.aligned = 0
	e.misaligned = 0
	e.tickNumberOfComputors = 0
	e.Unlock()

	epoch += 1
	e.Contracts.RunPhase(contract.Initialize, epoch, current+1)
	e.Contracts.RunPhase(contract.BeginEpoch, epoch, current+1)

	if err := e.Save(); nil != err {
		log.Errorf("epoch: %d  save error: %s", epoch, err)
	}

	e.Epochs.Increment()
	if nil != e.Publisher {
		e.Publisher.PublishEpoch(epoch, current+1)
	}
	log.Infof("begin epoch: %d  tick: %d", epoch, current+1)
}

// credit the computors and the arbitrator with the epoch issuance
func (e *Engine) payRevenue(current uint32) {
	e.System.RLock()
	points := e.System.RevenuePoints
	computors := e.System.Computors
	e.System.RUnlock()

	rewards, remainder := Revenues(points, constants.IssuanceRate)
	for i, publicKey := range computors {
		if publicKey.IsZero() || rewards[i] <= 0 {
			remainder += rewards[i]
			continue
		}
		if _, err := e.Spectrum.Credit(publicKey, rewards[i], current); nil != err {
			e.log.Errorf("computor: %d  revenue error: %s", i, err)
		}
	}

	if remainder > 0 && !e.arbitrator.IsZero() {
		if _, err := e.Spectrum.Credit(e.arbitrator, remainder, current); nil != err {
			e.log.Errorf("arbitrator revenue error: %s", err)
		}
	}
	e.log.Infof("revenue: arbitrator: %d", remainder)
}

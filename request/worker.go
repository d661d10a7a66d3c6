// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package request

import (
	"time"

	"github.com/bitmark-inc/quorumd/background"
	"github.com/bitmark-inc/quorumd/messagebus"
)

// idle poll in case a wake signal went to another worker
const idleInterval = 100 * time.Millisecond

type worker struct {
	id       int
	requests *messagebus.Queue
	handlers *Handlers
	stats    *Statistics
}

// Workers - a fixed pool of request processes
func Workers(n int, requests *messagebus.Queue, handlers *Handlers, stats *Statistics) background.Processes {
	processes := make(background.Processes, n)
	for i := range processes {
		processes[i] = &worker{
			id:       i,
			requests: requests,
			handlers: handlers,
			stats:    stats,
		}
	}
	return processes
}

// Run - drain the request queue until shutdown
func (w *worker) Run(args interface{}, shutdown <-chan struct{}) {
	log := w.handlers.log
	log.Infof("worker[%d]: starting…", w.id)

loop:
	for {
		if m, ok := w.requests.Receive(); ok {
			w.handlers.Dispatch(m)
			w.stats.Processed.Increment()
			continue loop
		}

		select {
		case <-shutdown:
			break loop
		case <-w.requests.Wait():
		case <-time.After(idleInterval):
		}
	}
	log.Infof("worker[%d]: stopped", w.id)
}

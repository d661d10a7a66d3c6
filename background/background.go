// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package background

import (
	"sync"
)

// Process - type signature for background process
type Process interface {
	Run(args interface{}, shutdown <-chan struct{})
}

// Processes - list of processes to start
type Processes []Process

// T - handle for a set of running processes
type T struct {
	sync.Mutex
	shutdown chan struct{}
	done     sync.WaitGroup
	stopped  bool
}

// Start - start up a set of background processes
// all receive the same args
func Start(processes Processes, args interface{}) *T {

	register := &T{
		shutdown: make(chan struct{}),
	}

	for _, p := range processes {
		register.done.Add(1)
		go func(p Process) {
			defer register.done.Done()
			p.Run(args, register.shutdown)
		}(p)
	}
	return register
}

// Stop - signal all processes to stop and wait for them to finish
//
// calling Stop more than once is safe
func (t *T) Stop() {
	if nil == t {
		return
	}

	t.Lock()
	if !t.stopped {
		t.stopped = true
		close(t.shutdown)
	}
	t.Unlock()

	t.done.Wait()
}

// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package fault

import (
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/bitmark-inc/logger"
)

// hold a logger channel
var log *logger.L

// ensure only one halt message is written
var haltOnce sync.Once

// Initialise - setup a log channel for last attempt to log something
func Initialise() error {
	if nil != log {
		return ErrAlreadyInitialised
	}
	log = logger.New("PANIC")
	if nil == log {
		return ErrInvalidLoggerChannel
	}
	return nil
}

// Finalise - flush any data
func Finalise() {
	if nil != log {
		log.Flush()
	}
}

// Criticalf - log a formatted string with arguments like fmt.Sprintf()
func Criticalf(format string, arguments ...interface{}) {
	if _, file, line, ok := runtime.Caller(1); ok {
		a := make([]interface{}, 2, 2+len(arguments))
		a[0] = file
		a[1] = line
		a = append(a, arguments...)
		internalCriticalf("(%q:%d) "+format, a...)
	} else {
		internalCriticalf(format, arguments...)
	}
}

// Halt - fail-stop: record the reason and never return
//
// the node cannot continue without risking a corrupt ledger so
// all further progress on the calling goroutine stops here and the
// process must be restarted externally
func Halt(err error) {
	haltOnce.Do(func() {
		if _, file, line, ok := runtime.Caller(1); ok {
			internalCriticalf("(%q:%d) HALT: %s", file, line, err)
		} else {
			internalCriticalf("HALT: %s", err)
		}
	})
	for {
		time.Sleep(time.Minute)
	}
}

// Panic - final panic
func Panic(message string) {
	internalCriticalf("%s", message)
	time.Sleep(100 * time.Millisecond) // to allow logging output
	panic(message)
}

// Panicf - panic with a formatted message
func Panicf(format string, arguments ...interface{}) {
	Panic(fmt.Sprintf(format, arguments...))
}

// PanicWithError - final panic
func PanicWithError(message string, err error) {
	Panic(fmt.Sprintf("%s failed with error: %v", message, err))
}

// PanicIfError - conditional panic
func PanicIfError(message string, err error) {
	if nil == err {
		return
	}
	PanicWithError(message, err)
}

// internal routines to handle uninitialised logger channel
func internalCriticalf(format string, arguments ...interface{}) {
	if nil == log {
		fmt.Printf("*** "+format+"\n", arguments...)
	} else {
		log.Criticalf(format, arguments...)
		log.Flush() // make sure log file is saved
	}
}

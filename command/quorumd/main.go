// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"

	"github.com/bitmark-inc/exitwithstatus"
	"github.com/bitmark-inc/getoptions"
	"github.com/bitmark-inc/logger"

	"github.com/bitmark-inc/quorumd/fault"
	"github.com/bitmark-inc/quorumd/node"
	"github.com/bitmark-inc/quorumd/peer"
	"github.com/bitmark-inc/quorumd/publish"
	"github.com/bitmark-inc/quorumd/storage"
	"github.com/bitmark-inc/quorumd/zmqutil"
)

// set by the linker: go build -ldflags "-X main.version=M.N" ./...
var version = "zero" // do not change this value

// main program
func main() {
	// ensure exit handler is first
	defer exitwithstatus.Handler()

	flags := []getoptions.Option{
		{Long: "help", HasArg: getoptions.NO_ARGUMENT, Short: 'h'},
		{Long: "verbose", HasArg: getoptions.NO_ARGUMENT, Short: 'v'},
		{Long: "quiet", HasArg: getoptions.NO_ARGUMENT, Short: 'q'},
		{Long: "version", HasArg: getoptions.NO_ARGUMENT, Short: 'V'},
		{Long: "config-file", HasArg: getoptions.REQUIRED_ARGUMENT, Short: 'c'},
		{Long: "memory-stats", HasArg: getoptions.NO_ARGUMENT, Short: 'm'},
	}

	program, options, arguments, err := getoptions.GetOS(flags)
	if nil != err {
		exitwithstatus.Message("%s: getoptions error: %s", program, err)
	}

	if len(options["version"]) > 0 {
		processSetupCommand(program, []string{"version"})
		return
	}

	if len(options["help"]) > 0 {
		processSetupCommand(program, []string{"help"})
		return
	}

	// these commands do not require the configuration and
	// process data needed for initial setup
	if len(arguments) > 0 && processSetupCommand(program, arguments) {
		return
	}

	if 1 != len(options["config-file"]) {
		exitwithstatus.Message("%s: only one config-file option is required, %d were detected", program, len(options["config-file"]))
	}

	// read options and parse the configuration file
	configurationFile := options["config-file"][0]
	theConfiguration, err := getConfiguration(configurationFile)
	if nil != err {
		exitwithstatus.Message("%s: failed to read configuration from: %q  error: %s", program, configurationFile, err)
	}

	// these commands require the configuration and
	// perform enquiries on the configuration
	if len(arguments) > 0 && processConfigCommand(arguments, theConfiguration) {
		return
	}

	// start logging
	if err = logger.Initialise(theConfiguration.Logging); nil != err {
		exitwithstatus.Message("%s: logger setup failed with error: %s", program, err)
	}
	defer logger.Finalise()

	// the fail-stop halt needs a logger
	if err = fault.Initialise(); nil != err {
		exitwithstatus.Message("%s: fault setup failed with error: %s", program, err)
	}
	defer fault.Finalise()

	// create a logger channel for the main program
	log := logger.New("main")
	defer log.Info("finished")
	log.Info("starting…")
	log.Infof("version: %s", version)
	log.Debugf("theConfiguration: %v", theConfiguration)

	// ------------------
	// start of real main
	// ------------------

	// optional PID file
	// use if not running under a supervisor program like daemon(8)
	if "" != theConfiguration.PidFile {
		lockFile, err := os.OpenFile(theConfiguration.PidFile, os.O_WRONLY|os.O_EXCL|os.O_CREATE, os.ModeExclusive|0600)
		if err != nil {
			if os.IsExist(err) {
				exitwithstatus.Message("%s: another instance is already running", program)
			}
			exitwithstatus.Message("%s: PID file: %q creation failed, error: %s", program, theConfiguration.PidFile, err)
		}
		fmt.Fprintf(lockFile, "%d\n", os.Getpid())
		lockFile.Close()
		defer os.Remove(theConfiguration.PidFile)
	}

	// start a profiling http server
	// this uses the default builtin HTTP handler
	if "" != theConfiguration.ProfileHTTP {
		go func() {
			log.Warnf("profile listener on: %s", theConfiguration.ProfileHTTP)
			err := http.ListenAndServe(theConfiguration.ProfileHTTP, nil)
			exitwithstatus.Message("profile error: %s", err)
		}()
	}

	// connection info
	log.Debugf("%s = %#v", "Peering", theConfiguration.Peering)
	log.Debugf("%s = %#v", "Publishing", theConfiguration.Publishing)

	// start the data storage
	log.Infof("database: %q", theConfiguration.Database.Name)
	database, err := storage.Open(theConfiguration.Database.Name, storage.ReadWrite)
	if nil != err {
		log.Criticalf("storage open error: %s", err)
		exitwithstatus.Message("storage open error: %s", err)
	}
	defer database.Close()

	// these commands are allowed to access the internal database
	if len(arguments) > 0 && processDataCommand(arguments, database) {
		return
	}

	// initialise encryption
	err = zmqutil.StartAuthentication()
	if nil != err {
		log.Criticalf("zmq.AuthStart: error: %s", err)
		exitwithstatus.Message("zmq.AuthStart: error: %s", err)
	}
	defer zmqutil.StopAuthentication()

	// events queue until the socket is bound so the
	// publisher must exist before the node
	publisher := publish.New()
	if 0 != len(theConfiguration.Publishing.Broadcast) {
		err = publisher.Bind(&theConfiguration.Publishing)
		if nil != err {
			log.Criticalf("publish bind error: %s", err)
			exitwithstatus.Message("publish bind error: %s", err)
		}
	}
	err = publisher.Start()
	if nil != err {
		log.Criticalf("publish start error: %s", err)
		exitwithstatus.Message("publish start error: %s", err)
	}
	defer publisher.Stop()

	theNode, err := node.New(theConfiguration.Node, database, publisher, nil)
	if nil != err {
		log.Criticalf("node initialise error: %s", err)
		exitwithstatus.Message("node initialise error: %s", err)
	}

	// start up the peering background processes
	thePeer, err := peer.New(&theConfiguration.Peering, theNode.Addresses, theNode.Pipeline, theNode.Responses)
	if nil != err {
		log.Criticalf("peer initialise error: %s", err)
		exitwithstatus.Message("peer initialise error: %s", err)
	}
	err = thePeer.Start()
	if nil != err {
		log.Criticalf("peer start error: %s", err)
		exitwithstatus.Message("peer start error: %s", err)
	}
	defer thePeer.Stop()

	err = theNode.Start()
	if nil != err {
		log.Criticalf("node start error: %s", err)
		exitwithstatus.Message("node start error: %s", err)
	}
	// deferred last so it runs before the peers stop
	defer theNode.Stop()

	shutdown := make(chan struct{})
	defer close(shutdown)
	go counters(theNode, thePeer, publisher, shutdown)

	// if memory logging enabled
	if len(options["memory-stats"]) > 0 {
		go memstats()
	}

	// wait for CTRL-C before shutting down to allow manual testing
	if 0 == len(options["quiet"]) {
		fmt.Printf("\n\nWaiting for CTRL-C (SIGINT) or 'kill <pid>' (SIGTERM)…")
	}

	// turn Signals into channel messages
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	sig := <-ch
	log.Infof("received signal: %v", sig)
	if 0 == len(options["quiet"]) {
		fmt.Printf("\nreceived signal: %v\n", sig)
		fmt.Printf("\nshutting down…\n")
	}

	log.Info("shutting down…")
}

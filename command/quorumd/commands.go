// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/bitmark-inc/exitwithstatus"

	"github.com/bitmark-inc/quorumd/consensus"
	"github.com/bitmark-inc/quorumd/cryptography"
	"github.com/bitmark-inc/quorumd/storage"
	"github.com/bitmark-inc/quorumd/zmqutil"
)

const (
	publishPublicKeyFilename  = "publish.public"
	publishPrivateKeyFilename = "publish.private"
)

// setup command handler
//
// commands that run to create key files these commands cannot access
// any internal database or states or the configuration file
func processSetupCommand(program string, arguments []string) bool {

	command := "help"
	if len(arguments) > 0 {
		command = arguments[0]
		arguments = arguments[1:]
	}

	switch command {
	case "gen-publish-identity", "publish":
		publicKeyFilename := getFilenameWithDirectory(arguments, publishPublicKeyFilename)
		privateKeyFilename := getFilenameWithDirectory(arguments, publishPrivateKeyFilename)
		err := zmqutil.MakeKeyPair(publicKeyFilename, privateKeyFilename)
		if nil != err {
			fmt.Printf("generate private key: %q and public key: %q error: %s\n", privateKeyFilename, publicKeyFilename, err)
			exitwithstatus.Exit(1)
		}
		fmt.Printf("generated private key: %q and public key: %q\n", privateKeyFilename, publicKeyFilename)

	case "computor-key", "key":
		if len(arguments) < 1 {
			exitwithstatus.Message("missing seed argument")
		}
		_, _, publicKey, err := cryptography.New().DeriveKeys(arguments[0])
		if nil != err {
			exitwithstatus.Message("derive keys error: %s", err)
		}
		fmt.Printf("%s\n", publicKey)

	case "start", "run":
		return false // continue processing

	case "saved-state", "state":
		return false // defer processing until database is opened

	case "config-test", "cfg":
		return false

	case "version", "v":
		fmt.Printf("%s\n", version)

	default:
		switch command {
		case "help", "h", "?":
		case "", " ":
			fmt.Printf("error: missing command\n")
		default:
			fmt.Printf("error: no such command: %q\n", command)
		}
		fmt.Printf("usage: %s [--help] [--verbose] [--quiet] --config-file=FILE [[command|help] arguments...]\n", program)

		fmt.Printf("supported commands:\n\n")
		fmt.Printf("  help                        (h)       - display this message\n\n")
		fmt.Printf("  version                     (v)       - display version sting\n\n")

		fmt.Printf("  gen-publish-identity [DIR]  (publish) - create private key in: %q\n", "DIR/"+publishPrivateKeyFilename)
		fmt.Printf("                                          and the public key in: %q\n", "DIR/"+publishPublicKeyFilename)
		fmt.Printf("\n")

		fmt.Printf("  computor-key SEED           (key)     - display the public key of a 55 letter seed\n")
		fmt.Printf("\n")

		fmt.Printf("  start                       (run)     - just run the program, same as no arguments\n")
		fmt.Printf("                                          for convienience when passing script arguments\n")
		fmt.Printf("\n")

		fmt.Printf("  config-test                 (cfg)     - just check the configuration file\n")
		fmt.Printf("\n")

		fmt.Printf("  saved-state                 (state)   - display the epoch and tick of the saved state\n")
		fmt.Printf("\n")

		exitwithstatus.Exit(1)
	}

	// indicate processing complete and perform normal exit from main
	return true
}

// configuration file enquiry commands
// have configuration file read and decoded, but nothing else
func processConfigCommand(arguments []string, options *Configuration) bool {

	command := "help"
	if len(arguments) > 0 {
		command = arguments[0]
	}

	switch command {
	case "config-test", "cfg":
		b, err := json.Marshal(options)
		if err != nil {
			exitwithstatus.Message("error: %s", err)
		}
		var out bytes.Buffer
		json.Indent(&out, b, "", "  ")
		out.WriteTo(os.Stdout)
		os.Stdout.WriteString("\n")

	default: // unknown commands fall through to data command
		return false
	}

	// indicate processing complete and perform normal exit from main
	return true
}

// data command handler
// the state database is open so these commands can inspect it
func processDataCommand(arguments []string, database *storage.Database) bool {

	command := "help"
	if len(arguments) > 0 {
		command = arguments[0]
	}

	switch command {

	case "start", "run":
		return false // continue processing

	case "saved-state", "state":
		s, err := consensus.LoadSystem(database)
		if nil != err {
			exitwithstatus.Message("load state error: %s", err)
		}
		s.RLock()
		fmt.Printf("epoch:          %d\n", s.Epoch)
		fmt.Printf("initial tick:   %d\n", s.InitialTick)
		fmt.Printf("tick:           %d\n", s.Tick)
		fmt.Printf("epoch start:    %s\n", s.EpochStart)
		fmt.Printf("operator nonce: %d\n", s.OperatorNonce)
		fmt.Printf("solutions:      %d\n", len(s.Solutions))
		s.RUnlock()

	default:
		exitwithstatus.Message("error: no such command: %s", command)

	}

	// indicate processing complete and perform normal exit from main
	return true
}

// get the working directory; if not set in the arguments
// it's set to the current directory
func getFilenameWithDirectory(arguments []string, name string) string {
	dir := "."
	if len(arguments) >= 1 {
		dir = arguments[0]
	}

	return filepath.Join(dir, name)
}

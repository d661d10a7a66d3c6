// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/bitmark-inc/logger"

	"github.com/bitmark-inc/quorumd/configuration"
	"github.com/bitmark-inc/quorumd/fault"
	"github.com/bitmark-inc/quorumd/node"
	"github.com/bitmark-inc/quorumd/peer"
	"github.com/bitmark-inc/quorumd/publish"
	"github.com/bitmark-inc/quorumd/util"
)

// basic defaults (directories and files are relative to the "DataDirectory" from Configuration file)
const (
	defaultDataDirectory = "" // this will error; use "." for the same directory as the config file

	defaultPublishPublicKeyFile  = "publish.public"
	defaultPublishPrivateKeyFile = "publish.private"
	defaultPeersFile             = "peers.txt"

	defaultLevelDBDirectory = "data"
	defaultDatabase         = "quorum.leveldb"

	defaultLogDirectory = "log"
	defaultLogFile      = "quorumd.log"
	defaultLogCount     = 10          //  number of log files retained
	defaultLogSize      = 1024 * 1024 // rotate when <logfile> exceeds this size
)

// to hold log levels
type LoglevelMap map[string]string

// path expanded or calculated defaults
var (
	defaultLogLevels = LoglevelMap{
		logger.DefaultTag: "critical",
	}
)

type DatabaseType struct {
	Directory string `gluamapper:"directory" json:"directory"`
	Name      string `gluamapper:"name" json:"name"`
}

type Configuration struct {
	DataDirectory string       `gluamapper:"data_directory" json:"data_directory"`
	PidFile       string       `gluamapper:"pidfile" json:"pidfile"`
	ProfileHTTP   string       `gluamapper:"profile_http" json:"profile_http"`
	Database      DatabaseType `gluamapper:"database" json:"database"`

	Node       node.Configuration    `gluamapper:"node" json:"node"`
	Peering    peer.Configuration    `gluamapper:"peering" json:"peering"`
	Publishing publish.Configuration `gluamapper:"publishing" json:"publishing"`
	Logging    logger.Configuration  `gluamapper:"logging" json:"logging"`
}

// will read decode and verify the configuration
func getConfiguration(configurationFileName string) (*Configuration, error) {

	configurationFileName, err := filepath.Abs(filepath.Clean(configurationFileName))
	if nil != err {
		return nil, err
	}

	// absolute path to the main directory
	dataDirectory, _ := filepath.Split(configurationFileName)

	options := &Configuration{

		DataDirectory: defaultDataDirectory,
		PidFile:       "", // no PidFile by default

		Database: DatabaseType{
			Directory: defaultLevelDBDirectory,
			Name:      defaultDatabase,
		},

		Peering: peer.Configuration{
			Port:      peer.DefaultPort,
			PeersFile: defaultPeersFile,
		},

		Publishing: publish.Configuration{
			PublicKey:  defaultPublishPublicKeyFile,
			PrivateKey: defaultPublishPrivateKeyFile,
		},

		Logging: logger.Configuration{
			Directory: defaultLogDirectory,
			File:      defaultLogFile,
			Size:      defaultLogSize,
			Count:     defaultLogCount,
			Levels:    defaultLogLevels,
		},
	}

	if err := configuration.ParseConfigurationFile(configurationFileName, options); err != nil {
		return nil, err
	}

	// ensure absolute data directory
	if "" == options.DataDirectory || "~" == options.DataDirectory {
		return nil, fmt.Errorf("path: %q  error: %s", options.DataDirectory, fault.ErrInvalidDirectory)
	} else if "." == options.DataDirectory {
		options.DataDirectory = dataDirectory // same directory as the configuration file
	}
	options.DataDirectory = filepath.Clean(options.DataDirectory)

	// this directory must exist - i.e. must be created prior to running
	if isDir, err := util.IsDirectory(options.DataDirectory); nil != err {
		return nil, err
	} else if !isDir {
		return nil, fmt.Errorf("path: %q  error: %s", options.DataDirectory, fault.ErrInvalidDirectory)
	}

	// force all relevant items to be absolute paths
	// if not, assign them to the data directory
	mustBeAbsolute := []*string{
		&options.Database.Directory,
		&options.Publishing.PublicKey,
		&options.Publishing.PrivateKey,
		&options.Logging.Directory,
	}
	for _, f := range mustBeAbsolute {
		*f = util.EnsureAbsolute(options.DataDirectory, *f)
	}

	// optional absolute paths i.e. blank or an absolute path
	optionalAbsolute := []*string{
		&options.PidFile,
		&options.Peering.PeersFile,
	}
	for _, f := range optionalAbsolute {
		if "" != *f {
			*f = util.EnsureAbsolute(options.DataDirectory, *f)
		}
	}

	// fail if any of these are not simple file names i.e. must
	// not contain path seperator, then add the correct directory
	// prefix, file item is first and corresponding directory is
	// second (or nil if no prefix can be added)
	mustNotBePaths := [][2]*string{
		{&options.Database.Name, &options.Database.Directory},
		{&options.Logging.File, nil},
	}
	for _, f := range mustNotBePaths {
		switch filepath.Dir(*f[0]) {
		case "", ".":
			if nil != f[1] {
				*f[0] = util.EnsureAbsolute(*f[1], *f[0])
			}
		default:
			return nil, fmt.Errorf("file: %q  error: %s", *f[0], fault.ErrInvalidFileName)
		}
	}

	// make absolute and create directories if they do not already exist
	for _, d := range []*string{
		&options.Database.Directory,
		&options.Logging.Directory,
	} {
		if err := os.MkdirAll(*d, 0700); nil != err {
			return nil, err
		}
	}

	// done
	return options, nil
}

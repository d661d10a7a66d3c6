// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package peer

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"

	"github.com/bitmark-inc/logger"

	"github.com/bitmark-inc/quorumd/util"
)

// ReadPeersFile - one IPv4 address per line, '#' starts a comment
func ReadPeersFile(name string) ([]util.IPv4, error) {
	f, err := os.Open(name)
	if nil != err {
		return nil, err
	}
	defer f.Close()

	addresses := []util.IPv4{}
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if n := strings.IndexByte(line, '#'); n >= 0 {
			line = line[:n]
		}
		line = strings.TrimSpace(line)
		if "" == line {
			continue
		}
		address, err := util.ParseIPv4(line)
		if nil != err {
			return nil, err
		}
		addresses = append(addresses, address)
	}
	return addresses, scanner.Err()
}

// pins the addresses of the peers file, again after each change
type watcher struct {
	log       *logger.L
	fileName  string
	addresses *AddressBook
	watcher   *fsnotify.Watcher
}

func newWatcher(fileName string, addresses *AddressBook) (*watcher, error) {
	log := logger.New("peers-file")

	filePath, err := filepath.Abs(filepath.Clean(fileName))
	if nil != err {
		return nil, err
	}

	w, err := fsnotify.NewWatcher()
	if nil != err {
		return nil, err
	}

	// the directory, so an editor's rename and replace is still seen
	err = w.Add(filepath.Dir(filePath))
	if nil != err {
		w.Close()
		return nil, err
	}

	pw := &watcher{
		log:       log,
		fileName:  filePath,
		addresses: addresses,
		watcher:   w,
	}
	pw.load()
	return pw, nil
}

func (w *watcher) load() {
	addresses, err := ReadPeersFile(w.fileName)
	if nil != err {
		w.log.Warnf("read: %q  error: %s", w.fileName, err)
		return
	}
	for _, address := range addresses {
		w.addresses.Pin(address)
	}
	w.log.Infof("read: %q  addresses: %d", w.fileName, len(addresses))
}

// Run - reload on change until shutdown
func (w *watcher) Run(args interface{}, shutdown <-chan struct{}) {
	log := w.log
	log.Info("starting…")

loop:
	for {
		select {
		case <-shutdown:
			break loop

		case event, ok := <-w.watcher.Events:
			if !ok {
				break loop
			}
			if filepath.Clean(event.Name) != w.fileName {
				continue loop
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				log.Debugf("file event: %s", event)
				w.load()
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				break loop
			}
			log.Errorf("watch error: %s", err)
		}
	}
	w.watcher.Close()
	log.Info("stopped")
}

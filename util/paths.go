// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package util

import (
	"os"
	"path/filepath"
)

// EnsureAbsolute - a relative path is taken as relative to directory
func EnsureAbsolute(directory string, filePath string) string {
	if !filepath.IsAbs(filePath) {
		filePath = filepath.Join(directory, filePath)
	}
	return filepath.Clean(filePath)
}

// FileExists - true for any existing file or directory
func FileExists(name string) bool {
	_, err := os.Stat(name)
	return nil == err
}

// IsDirectory - true only for an existing directory
func IsDirectory(name string) (bool, error) {
	info, err := os.Stat(name)
	if nil != err {
		return false, err
	}
	return info.IsDir(), nil
}

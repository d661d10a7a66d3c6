// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package configuration - run a Lua configuration file
//
// the file returns a table that is mapped onto a structure using the
// gluamapper tags of its fields.  arg[0] holds the file name so the
// file can locate seeds and key files relative to itself, and the
// standard Lua libraries allow values to come from os.getenv
package configuration

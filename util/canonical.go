// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package util

import (
	"net"
	"strconv"
	"strings"

	"github.com/bitmark-inc/quorumd/fault"
)

// CanonicalIPandPort - make the IP:Port canonical
//
// examples:
//   IPv4:  127.0.0.1:1234
//   IPv6:  [::1]:1234
//
// the prefix is prepended to the result, e.g. "tcp://"
func CanonicalIPandPort(prefix string, hostPort string) (string, error) {

	host, port, err := net.SplitHostPort(strings.TrimSpace(hostPort))
	if nil != err {
		return "", fault.ErrInvalidIPAddress
	}

	IP := net.ParseIP(strings.Trim(host, " "))
	if nil == IP {
		return "", fault.ErrInvalidIPAddress
	}

	numericPort, err := strconv.Atoi(strings.Trim(port, " "))
	if nil != err {
		return "", fault.ErrInvalidPortNumber
	}
	if numericPort < 1 || numericPort > 65535 {
		return "", fault.ErrInvalidPortNumber
	}

	if nil != IP.To4() {
		return prefix + IP.String() + ":" + strconv.Itoa(numericPort), nil
	}
	return prefix + "[" + IP.String() + "]:" + strconv.Itoa(numericPort), nil
}

// IPv4 - four byte form used by the peer exchange message
type IPv4 [4]byte

// String - dotted form
func (ip IPv4) String() string {
	return net.IP(ip[:]).String()
}

// IsZero - unused entry
func (ip IPv4) IsZero() bool {
	return IPv4{} == ip
}

// IsPublic - routable unicast address
func (ip IPv4) IsPublic() bool {
	a := net.IP(ip[:])
	if a.IsLoopback() || a.IsUnspecified() || a.IsMulticast() || a.IsLinkLocalUnicast() || a.IsInterfaceLocalMulticast() {
		return false
	}
	switch {
	case 10 == ip[0]:
		return false
	case 172 == ip[0] && ip[1] >= 16 && ip[1] < 32:
		return false
	case 192 == ip[0] && 168 == ip[1]:
		return false
	case 255 == ip[0]:
		return false
	}
	return true
}

// ParseIPv4 - accept only IPv4 text
func ParseIPv4(s string) (IPv4, error) {
	a := net.ParseIP(strings.TrimSpace(s))
	if nil == a {
		return IPv4{}, fault.ErrInvalidIPAddress
	}
	a4 := a.To4()
	if nil == a4 {
		return IPv4{}, fault.ErrInvalidIPAddress
	}
	ip := IPv4{}
	copy(ip[:], a4)
	return ip, nil
}

// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package peer

import (
	"net"
	"strings"
	"time"

	"github.com/miekg/dns"

	"github.com/bitmark-inc/logger"

	"github.com/bitmark-inc/quorumd/fault"
	"github.com/bitmark-inc/quorumd/util"
)

const (
	seedInterval = 1 * time.Hour // longest time between lookups
	resolvConf   = "/etc/resolv.conf"
)

// Lookup - TXT record strings of a domain and their TTL
type Lookup func(domain string) ([]string, time.Duration, error)

// ParseSeeds - addresses from TXT strings of the form: quorum=1.2.3.4,5.6.7.8
func ParseSeeds(txts []string) []util.IPv4 {
	addresses := []util.IPv4{}
	for _, txt := range txts {
		for _, field := range strings.Fields(txt) {
			if !strings.HasPrefix(field, "quorum=") {
				continue
			}
			for _, s := range strings.Split(strings.TrimPrefix(field, "quorum="), ",") {
				if address, err := util.ParseIPv4(s); nil == err {
					addresses = append(addresses, address)
				}
			}
		}
	}
	return addresses
}

// LookupTXT - query the resolvers of the system configuration
func LookupTXT(domain string) ([]string, time.Duration, error) {
	conf, err := dns.ClientConfigFromFile(resolvConf)
	if nil != err {
		return nil, 0, err
	}

	servers := conf.Servers
	if len(servers) > 3 {
		servers = servers[:3]
	}

	c := dns.Client{}
	msg := dns.Msg{}
	msg.SetQuestion(dns.Fqdn(domain), dns.TypeTXT)

	for _, server := range servers {
		r, _, err := c.Exchange(&msg, net.JoinHostPort(server, conf.Port))
		if nil != err || dns.RcodeSuccess != r.Rcode {
			continue
		}

		txts := []string{}
		ttl := seedInterval
		for _, rr := range r.Answer {
			txt, ok := rr.(*dns.TXT)
			if !ok {
				continue
			}
			txts = append(txts, strings.Join(txt.Txt, ""))
			if t := time.Duration(txt.Hdr.Ttl) * time.Second; t > 0 && t < ttl {
				ttl = t
			}
		}
		return txts, ttl, nil
	}
	return nil, 0, fault.ErrNotFound
}

// adds the addresses published under a DNS name
type seeder struct {
	log       *logger.L
	domain    string
	addresses *AddressBook
	lookup    Lookup
}

func newSeeder(domain string, addresses *AddressBook, lookup Lookup) *seeder {
	if nil == lookup {
		lookup = LookupTXT
	}
	return &seeder{
		log:       logger.New("seeder"),
		domain:    domain,
		addresses: addresses,
		lookup:    lookup,
	}
}

// returns the time to the next lookup
func (s *seeder) seed() time.Duration {
	txts, ttl, err := s.lookup(s.domain)
	if nil != err {
		s.log.Warnf("lookup: %s  error: %s", s.domain, err)
		return seedInterval
	}
	n := 0
	for _, address := range ParseSeeds(txts) {
		if s.addresses.Add(address) {
			n += 1
		}
	}
	s.log.Infof("lookup: %s  new addresses: %d", s.domain, n)
	if ttl <= 0 || ttl > seedInterval {
		return seedInterval
	}
	return ttl
}

// Run - repeat the lookup until shutdown
func (s *seeder) Run(args interface{}, shutdown <-chan struct{}) {
	log := s.log
	log.Info("starting…")

	timer := time.After(s.seed())
loop:
	for {
		select {
		case <-timer:
			timer = time.After(s.seed())
		case <-shutdown:
			break loop
		}
	}
	log.Info("stopped")
}

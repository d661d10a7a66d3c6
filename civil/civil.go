// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package civil

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/bitmark-inc/quorumd/constants"
	"github.com/bitmark-inc/quorumd/fault"
)

// Size - bytes in the packed form
const Size = 8

// years are stored relative to this
const baseYear = 2000

// Time - UTC wall clock fields carried by ticks
type Time struct {
	Millisecond uint16 `json:"millisecond"`
	Second      uint8  `json:"second"`
	Minute      uint8  `json:"minute"`
	Hour        uint8  `json:"hour"`
	Day         uint8  `json:"day"`
	Month       uint8  `json:"month"`
	Year        uint8  `json:"year"`
}

// FromTime - convert, truncating to milliseconds
func FromTime(t time.Time) Time {
	t = t.UTC()
	return Time{
		Millisecond: uint16(t.Nanosecond() / int(time.Millisecond)),
		Second:      uint8(t.Second()),
		Minute:      uint8(t.Minute()),
		Hour:        uint8(t.Hour()),
		Day:         uint8(t.Day()),
		Month:       uint8(t.Month()),
		Year:        uint8(t.Year() - baseYear),
	}
}

// Valid - all fields in range
func (c Time) Valid() bool {
	if c.Millisecond > 999 || c.Second > 59 || c.Minute > 59 || c.Hour > 23 {
		return false
	}
	if c.Month < 1 || c.Month > 12 || c.Day < 1 {
		return false
	}
	return int(c.Day) <= daysIn(time.Month(c.Month), baseYear+int(c.Year))
}

func daysIn(m time.Month, year int) int {
	return time.Date(year, m+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// Time - convert to a UTC time
func (c Time) Time() time.Time {
	return time.Date(baseYear+int(c.Year), time.Month(c.Month), int(c.Day), int(c.Hour), int(c.Minute), int(c.Second), int(c.Millisecond)*int(time.Millisecond), time.UTC)
}

// IsZero - unset
func (c Time) IsZero() bool {
	return Time{} == c
}

// String - ISO form
func (c Time) String() string {
	return fmt.Sprintf("%04d-%02d-%02dT%02d:%02d:%02d.%03dZ", baseYear+int(c.Year), c.Month, c.Day, c.Hour, c.Minute, c.Second, c.Millisecond)
}

// PackInto - write 8 bytes
func (c Time) PackInto(buffer []byte) {
	binary.LittleEndian.PutUint16(buffer[0:], c.Millisecond)
	buffer[2] = c.Second
	buffer[3] = c.Minute
	buffer[4] = c.Hour
	buffer[5] = c.Day
	buffer[6] = c.Month
	buffer[7] = c.Year
}

// Unpack - read 8 bytes
func Unpack(buffer []byte) (Time, error) {
	if len(buffer) < Size {
		return Time{}, fault.ErrRecordTruncated
	}
	return Time{
		Millisecond: binary.LittleEndian.Uint16(buffer[0:]),
		Second:      buffer[2],
		Minute:      buffer[3],
		Hour:        buffer[4],
		Day:         buffer[5],
		Month:       buffer[6],
		Year:        buffer[7],
	}, nil
}

// EpochEnded - true once a tick time reaches the end of the epoch
// that started at start
//
// the boundary is the calendar day one epoch after the start; any
// later day ends the epoch and on the boundary day itself the epoch
// ends from the boundary hour onward; a current time with out of range
// fields never ends an epoch
func EpochEnded(start Time, current Time) bool {
	if !current.Valid() {
		return false
	}
	s := start.Time()
	boundary := time.Date(s.Year(), s.Month(), s.Day(), 0, 0, 0, 0, time.UTC).Add(constants.EpochLength)

	c := current.Time()
	day := time.Date(c.Year(), c.Month(), c.Day(), 0, 0, 0, 0, time.UTC)

	switch {
	case day.After(boundary):
		return true
	case day.Equal(boundary):
		return c.Hour() >= constants.EpochBoundaryHour
	default:
		return false
	}
}

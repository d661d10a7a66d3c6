// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package civil_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/bitmark-inc/quorumd/civil"
	"github.com/bitmark-inc/quorumd/fault"
)

func TestConversion(t *testing.T) {
	when := time.Date(2022, 6, 15, 13, 14, 15, 678*int(time.Millisecond), time.UTC)
	c := civil.FromTime(when)

	assert.Equal(t, civil.Time{Millisecond: 678, Second: 15, Minute: 14, Hour: 13, Day: 15, Month: 6, Year: 22}, c, "fields")
	assert.True(t, c.Valid(), "valid")
	assert.Equal(t, when, c.Time(), "round trip")
	assert.Equal(t, "2022-06-15T13:14:15.678Z", c.String(), "string")

	buffer := make([]byte, civil.Size)
	c.PackInto(buffer)
	u, err := civil.Unpack(buffer)
	assert.Nil(t, err, "unpack")
	assert.Equal(t, c, u, "packed round trip")

	_, err = civil.Unpack(buffer[:3])
	assert.Equal(t, fault.ErrRecordTruncated, err, "short")
}

func TestValid(t *testing.T) {
	invalid := []civil.Time{
		{},
		{Day: 31, Month: 4, Year: 22},
		{Day: 29, Month: 2, Year: 23},
		{Day: 1, Month: 13, Year: 22},
		{Day: 1, Month: 1, Hour: 24},
		{Day: 1, Month: 1, Millisecond: 1000},
	}
	for i, c := range invalid {
		assert.False(t, c.Valid(), "%d: %v", i, c)
	}
	assert.True(t, civil.Time{Day: 29, Month: 2, Year: 24}.Valid(), "leap day")
}

func TestEpochEnded(t *testing.T) {
	// Wednesday 12:00 start
	start := civil.FromTime(time.Date(2022, 6, 15, 12, 0, 0, 0, time.UTC))

	tests := []struct {
		when  time.Time
		ended bool
	}{
		{time.Date(2022, 6, 15, 12, 0, 1, 0, time.UTC), false},
		{time.Date(2022, 6, 21, 23, 59, 59, 0, time.UTC), false},
		{time.Date(2022, 6, 22, 11, 59, 59, 999*int(time.Millisecond), time.UTC), false},
		{time.Date(2022, 6, 22, 12, 0, 0, 0, time.UTC), true},
		{time.Date(2022, 6, 22, 18, 30, 0, 0, time.UTC), true},
		{time.Date(2022, 6, 23, 1, 0, 0, 0, time.UTC), true},
	}
	for i, item := range tests {
		assert.Equal(t, item.ended, civil.EpochEnded(start, civil.FromTime(item.when)), "%d: %s", i, item.when)
	}
}

func TestEpochEndedOutOfRangeFields(t *testing.T) {
	start := civil.Time{Day: 1, Month: 1, Year: 22}
	bad := civil.Time{Millisecond: 5000, Second: 99, Minute: 99, Hour: 99, Day: 77, Month: 13, Year: 22}
	assert.False(t, civil.EpochEnded(start, bad), "rolled over fields")

	later := civil.Time{Hour: 12, Day: 8, Month: 1, Year: 22}
	assert.True(t, civil.EpochEnded(start, later), "valid boundary")
}

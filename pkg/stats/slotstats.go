//
//  Copyright 2023 PayPal Inc.
//
//  Licensed to the Apache Software Foundation (ASF) under one or more
//  contributor license agreements.  See the NOTICE file distributed with
//  this work for additional information regarding copyright ownership.
//  The ASF licenses this file to You under the Apache License, Version 2.0
//  (the "License"); you may not use this file except in compliance with
//  the License.  You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
//  Unless required by applicable law or agreed to in writing, software
//  distributed under the License is distributed on an "AS IS" BASIS,
//  WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
//  See the License for the specific language governing permissions and
//  limitations under the License.
//

// Package stats keeps the slot timing statistics of a node.
package stats

import (
	"bytes"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
)

type (
	// SlotStats is safe for concurrent use. The zero value is not usable;
	// call NewSlotStats.
	SlotStats struct {
		mtx           sync.Mutex
		skew          *hdrhistogram.Histogram
		totalSkew     time.Duration
		slots         int64
		transmissions int64
		resyncs       int64
		updates       int64
		rejected      int64
		ignored       int64
		tmStart       time.Time
	}

	SlotStatsData struct {
		Slots         int64
		Transmissions int64
		Resyncs       int64
		Updates       int64
		Rejected      int64
		Ignored       int64
		AvgSkew       time.Duration
		MinSkew       time.Duration
		MaxSkew       time.Duration
		P50Skew       time.Duration
		P95Skew       time.Duration
		P99Skew       time.Duration
	}
)

func NewSlotStats() *SlotStats {
	return &SlotStats{
		skew:    hdrhistogram.New(1, int64(3600*time.Second), 3),
		tmStart: time.Now(),
	}
}

// RecordSlotStart counts one started slot. skew is how late the slot began
// against its planned start.
func (s *SlotStats) RecordSlotStart(skew time.Duration, transmitted bool) {
	if skew < 0 {
		skew = -skew
	}
	s.mtx.Lock()
	s.skew.RecordValue(int64(skew))
	s.totalSkew += skew
	s.slots++
	if transmitted {
		s.transmissions++
	}
	s.mtx.Unlock()
}

func (s *SlotStats) RecordResync() {
	s.mtx.Lock()
	s.resyncs++
	s.mtx.Unlock()
}

// RecordUpdate counts a schedule update: applied, rejected by a failed
// precondition, or ignored as addressed to another node.
func (s *SlotStats) RecordUpdate(applied bool, ignored bool) {
	s.mtx.Lock()
	switch {
	case ignored:
		s.ignored++
	case applied:
		s.updates++
	default:
		s.rejected++
	}
	s.mtx.Unlock()
}

func (s *SlotStats) GetStats() (stat SlotStatsData) {
	s.mtx.Lock()
	stat.Slots = s.slots
	stat.Transmissions = s.transmissions
	stat.Resyncs = s.resyncs
	stat.Updates = s.updates
	stat.Rejected = s.rejected
	stat.Ignored = s.ignored
	if s.skew.TotalCount() != 0 {
		stat.AvgSkew = s.totalSkew / time.Duration(s.skew.TotalCount())
		stat.MinSkew = time.Duration(s.skew.Min())
		stat.MaxSkew = time.Duration(s.skew.Max())
		stat.P50Skew = time.Duration(s.skew.ValueAtQuantile(50.))
		stat.P95Skew = time.Duration(s.skew.ValueAtQuantile(95.))
		stat.P99Skew = time.Duration(s.skew.ValueAtQuantile(99.))
	}
	s.mtx.Unlock()
	return
}

func (s *SlotStats) Reset() {
	s.mtx.Lock()
	s.skew.Reset()
	s.totalSkew = 0
	s.slots, s.transmissions, s.resyncs = 0, 0, 0
	s.updates, s.rejected, s.ignored = 0, 0, 0
	s.tmStart = time.Now()
	s.mtx.Unlock()
}

// WriteTo prints a table of the counters and skew percentiles.
func (s *SlotStats) WriteTo(w io.Writer) (int64, error) {
	us := func(d time.Duration) time.Duration {
		return d.Round(time.Microsecond)
	}
	stat := s.GetStats()
	s.mtx.Lock()
	since := time.Since(s.tmStart).Round(time.Second)
	s.mtx.Unlock()

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "slot statistics over %s\n", since)
	fmt.Fprintln(&buf,
		`  slots    |  transmit  |  resyncs   |  updates   |  rejected  |  ignored   |                start skew
           |            |            |            |            |            | average    | min        | max        |        50% |      95%   |      99%
-----------+------------+------------+------------+------------+------------+------------+------------+------------+------------+------------+-----------`)
	fmt.Fprintf(&buf, "%10d %12d %12d %12d %12d %12d %12s %12s %12s %12s %12s %12s\n",
		stat.Slots, stat.Transmissions, stat.Resyncs, stat.Updates, stat.Rejected, stat.Ignored,
		us(stat.AvgSkew), us(stat.MinSkew), us(stat.MaxSkew), us(stat.P50Skew), us(stat.P95Skew), us(stat.P99Skew))
	return buf.WriteTo(w)
}

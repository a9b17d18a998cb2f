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

package mac

import (
	"errors"
	"testing"
	"time"

	acerrors "acomms/pkg/errors"
	"acomms/pkg/stats"
	"acomms/pkg/util"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time {
	return c.t
}

func (c *fakeClock) set(unix float64) {
	c.t = time.Unix(0, 0).Add(util.Seconds(unix))
}

type recorder struct {
	transmit []Slot
	start    []Slot
}

func newTestManager(cfg Config, now float64) (*Manager, *fakeClock, *recorder, *stats.SlotStats) {
	clock := &fakeClock{}
	clock.set(now)
	st := stats.NewSlotStats()
	m := NewManager(clock, st)
	rec := &recorder{}
	m.OnInitiateTransmission = func(s Slot) { rec.transmit = append(rec.transmit, s) }
	m.OnSlotStart = func(s Slot) { rec.start = append(rec.start, s) }
	return m, clock, rec, st
}

func fixedConfig(t ManagerType, slots ...Slot) Config {
	cfg := DefaultConfig
	cfg.ModemID = 1
	cfg.Type = t
	cfg.RefTimeType = RefFixed
	cfg.FixedRefTime = 1000
	cfg.StartCycleInMiddle = false
	cfg.Slot = slots
	return cfg
}

func threeSlots() []Slot {
	return []Slot{
		{Src: 1, Dest: 2, SlotSeconds: 10},
		{Src: 2, Dest: 1, SlotSeconds: 10},
		{Src: 3, SlotSeconds: 10, AlwaysInitiate: true},
	}
}

func TestManagerDecentralized(t *testing.T) {
	m, clock, rec, st := newTestManager(fixedConfig(MACFixedDecentralized, threeSlots()...), 1005)
	if err := m.Startup(fixedConfig(MACFixedDecentralized, threeSlots()...)); err != nil {
		t.Fatal(err)
	}
	if next, i, ok := m.NextSlot(); !ok || i != 0 || next.Unix() != 1030 {
		t.Fatalf("first slot %v %d %v", next, i, ok)
	}

	m.DoWork()
	if len(rec.start) != 0 {
		t.Fatal("slot started early")
	}
	for _, now := range []float64{1030, 1040, 1051} {
		clock.set(now)
		m.DoWork()
	}
	if len(rec.start) != 3 {
		t.Fatalf("started %d slots", len(rec.start))
	}
	for i, s := range rec.start {
		if s.SlotIndex != i || s.Time.Unix() != int64(1030+10*i) {
			t.Errorf("slot %d: index %d at %v", i, s.SlotIndex, s.Time)
		}
	}
	if len(rec.transmit) != 2 || rec.transmit[0].Src != 1 || rec.transmit[1].Src != 3 {
		t.Errorf("transmissions %v", rec.transmit)
	}

	// five seconds late is beyond the allowed skew
	clock.set(1065)
	m.DoWork()
	if len(rec.start) != 3 {
		t.Error("late slot was started")
	}
	if next, i, _ := m.NextSlot(); i != 0 || next.Unix() != 1090 {
		t.Errorf("after resync %v %d", next, i)
	}

	stat := st.GetStats()
	if stat.Slots != 3 || stat.Transmissions != 2 || stat.Resyncs != 1 || stat.MaxSkew < time.Second {
		t.Errorf("stats %+v", stat)
	}
}

func TestManagerPolled(t *testing.T) {
	slots := []Slot{{Src: 0, SlotSeconds: 5}, {Src: 4, Dest: 2, SlotSeconds: 5}}
	cfg := fixedConfig(MACPolled, slots...)
	m, clock, rec, _ := newTestManager(cfg, 1000)
	if err := m.Startup(cfg); err != nil {
		t.Fatal(err)
	}
	for _, now := range []float64{1010, 1015} {
		clock.set(now)
		m.DoWork()
	}
	if len(rec.start) != 2 || len(rec.transmit) != 1 || rec.transmit[0].Src != 4 {
		t.Errorf("polled slots %v, transmissions %v", rec.start, rec.transmit)
	}
}

func TestManagerStartInMiddle(t *testing.T) {
	cfg := fixedConfig(MACFixedDecentralized, threeSlots()...)
	cfg.StartCycleInMiddle = true
	m, _, _, _ := newTestManager(cfg, 1005)
	if err := m.Startup(cfg); err != nil {
		t.Fatal(err)
	}
	if next, i, ok := m.NextSlot(); !ok || i != 1 || next.Unix() != 1010 {
		t.Errorf("middle start %v %d %v", next, i, ok)
	}
}

func TestManagerStartOfDay(t *testing.T) {
	cfg := fixedConfig(MACFixedDecentralized, threeSlots()...)
	cfg.RefTimeType = RefStartOfDay
	m, _, _, _ := newTestManager(cfg, 1300000000.5)
	if err := m.Startup(cfg); err != nil {
		t.Fatal(err)
	}
	want := time.Date(2011, 3, 13, 7, 7, 0, 0, time.UTC)
	if next, _, _ := m.NextSlot(); !next.Equal(want) {
		t.Errorf("next cycle %v, want %v", next.UTC(), want)
	}
}

func TestManagerClockBack(t *testing.T) {
	cfg := fixedConfig(MACFixedDecentralized, threeSlots()...)
	m, clock, _, st := newTestManager(cfg, 1005)
	m.Startup(cfg)
	clock.set(900)
	m.DoWork()
	if next, _, _ := m.NextSlot(); next.Unix() != 910 {
		t.Errorf("next slot %v after clock moved back", next.Unix())
	}
	if st.GetStats().Resyncs != 1 {
		t.Error("resync not counted")
	}
}

func TestManagerStartup(t *testing.T) {
	cfg := fixedConfig(MACFixedDecentralized, threeSlots()...)
	cfg.ModemID = BroadcastID
	m, _, _, _ := newTestManager(cfg, 1000)
	if err := m.Startup(cfg); !errors.Is(err, acerrors.ErrConfig) {
		t.Errorf("broadcast modem id: %v", err)
	}
	if m.Running() {
		t.Error("running after failed startup")
	}

	cfg = fixedConfig(MACFixedDecentralized, Slot{Src: 1})
	if err := m.Startup(cfg); !errors.Is(err, acerrors.ErrConfig) {
		t.Errorf("zero length slot: %v", err)
	}

	cfg = fixedConfig(MACFixedDecentralized)
	if err := m.Startup(cfg); err != nil {
		t.Fatal(err)
	}
	if _, _, ok := m.NextSlot(); ok || !m.Running() {
		t.Error("empty schedule should run without a pending slot")
	}
}

func TestManagerHandleUpdate(t *testing.T) {
	cfg := fixedConfig(MACFixedDecentralized, threeSlots()...)
	m, clock, rec, st := newTestManager(cfg, 1005)
	if err := m.Startup(cfg); err != nil {
		t.Fatal(err)
	}

	if err := m.HandleUpdate(NewUpdate(9, UpdateClear)); err != nil || m.Schedule().Len() != 3 {
		t.Errorf("update for another node: %v, %d slots", err, m.Schedule().Len())
	}

	bad := NewUpdate(1, UpdateErase)
	bad.FirstOffset = 5
	if err := m.HandleUpdate(bad); !errors.Is(err, ErrBadOffset) || m.Schedule().Len() != 3 {
		t.Errorf("bad erase: %v", err)
	}

	if err := m.HandleUpdate(NewUpdate(1, UpdatePopFront)); err != nil {
		t.Fatal(err)
	}
	// cycle is now 20s long
	if next, i, _ := m.NextSlot(); i != 0 || next.Unix() != 1020 {
		t.Errorf("after pop front %v %d", next.Unix(), i)
	}
	clock.set(1020)
	m.DoWork()
	if len(rec.start) != 1 || rec.start[0].Src != 2 || len(rec.transmit) != 0 {
		t.Errorf("slots %v transmissions %v", rec.start, rec.transmit)
	}

	stop := NewUpdate(1, UpdateNoChange)
	stop.CycleState = CycleStopped
	if err := m.HandleUpdate(stop); err != nil || m.Running() {
		t.Errorf("stop: %v running=%v", err, m.Running())
	}
	clock.set(1030)
	m.DoWork()
	if len(rec.start) != 1 {
		t.Error("stopped manager started a slot")
	}

	start := NewUpdate(1, UpdatePushBack, Slot{Src: 1, SlotSeconds: 10})
	start.CycleState = CycleStarted
	if err := m.HandleUpdate(start); err != nil || !m.Running() {
		t.Errorf("start: %v running=%v", err, m.Running())
	}
	if next, i, ok := m.NextSlot(); !ok || i != 0 || next.Unix() != 1060 {
		t.Errorf("after restart %v %d %v", next.Unix(), i, ok)
	}

	stat := st.GetStats()
	if stat.Updates != 3 || stat.Rejected != 1 || stat.Ignored != 1 {
		t.Errorf("update stats %+v", stat)
	}
}

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
	"time"

	"github.com/golang/glog"

	"acomms/pkg/logging"
	"acomms/pkg/stats"
	"acomms/pkg/util"
)

type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time {
	return time.Now()
}

var SystemClock Clock = systemClock{}

// Manager walks the schedule and signals each slot as its start time
// passes. It is driven by calls to DoWork and is not safe for concurrent
// use.
type Manager struct {
	// OnInitiateTransmission is called for slots this node transmits in,
	// before OnSlotStart.
	OnInitiateTransmission func(Slot)
	OnSlotStart            func(Slot)

	cfg      Config
	clock    Clock
	stats    *stats.SlotStats
	schedule *Schedule
	current  int
	nextSlot time.Time
	running  bool
	armed    bool
}

// NewManager returns a stopped manager. st may be nil.
func NewManager(clock Clock, st *stats.SlotStats) *Manager {
	if clock == nil {
		clock = SystemClock
	}
	return &Manager{
		clock:    clock,
		stats:    st,
		schedule: NewSchedule(nil),
	}
}

// Startup replaces the schedule with the configured slots and starts the
// cycle.
func (m *Manager) Startup(cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	m.cfg = cfg
	m.cfg.Slot = append([]Slot(nil), cfg.Slot...)
	m.schedule = NewSchedule(cfg.Slot)
	m.running = false
	m.armed = false

	switch cfg.Type {
	case MACPolled:
		glog.V(logging.LevelDebug).Infof("using the centralized polling scheme")
	case MACFixedDecentralized:
		glog.V(logging.LevelDebug).Infof("using the decentralized fixed slot scheme")
	}
	m.Restart()
	return nil
}

func (m *Manager) Restart() {
	if m.running {
		glog.V(logging.LevelDebug).Infof("MAC is already started, not restarting")
		return
	}
	m.running = true
	m.update()
	if m.armed {
		glog.V(logging.LevelInfo).Infof("first MAC cycle begins at %s", m.nextSlot.UTC().Format(time.RFC3339Nano))
	}
}

func (m *Manager) Shutdown() {
	m.armed = false
	m.current = 0
	m.running = false
	glog.V(logging.LevelInfo).Infof("MAC cycle shut down until restarted")
}

func (m *Manager) Running() bool {
	return m.running
}

// Schedule exposes the live schedule for inspection. Edits go through
// HandleUpdate.
func (m *Manager) Schedule() *Schedule {
	return m.schedule
}

// NextSlot returns the planned start of the next slot and its index, or
// false while no slot is pending.
func (m *Manager) NextSlot() (time.Time, int, bool) {
	return m.nextSlot, m.current, m.armed
}

// HandleUpdate applies u when it is addressed to this node. An update for
// another node is ignored without error.
func (m *Manager) HandleUpdate(u Update) error {
	corrID := util.NewCorrelationID().String()
	if u.Dest != m.cfg.ModemID {
		if glog.V(logging.LevelDebug) {
			glog.Infof("%s", logging.NewKVBufferForLog().AddUpdateType(u.Type).AddDest(u.Dest).
				AddCorrelationId(corrID).AddDropReason("not_for_us"))
		}
		if m.stats != nil {
			m.stats.RecordUpdate(false, true)
		}
		return nil
	}
	if err := m.schedule.Apply(u); err != nil {
		glog.Warningf("%s: %s", logging.NewKVBufferForLog().AddUpdateType(u.Type).AddCorrelationId(corrID).
			AddStatus("rejected").AddLen(m.schedule.Len()), err)
		if m.stats != nil {
			m.stats.RecordUpdate(false, false)
		}
		return err
	}
	if m.stats != nil {
		m.stats.RecordUpdate(true, false)
	}
	glog.V(logging.LevelInfo).Infof("%s", logging.NewKVBufferForLog().AddUpdateType(u.Type).AddCorrelationId(corrID).
		AddStatus("applied").AddLen(m.schedule.Len()))

	m.update()
	switch u.CycleState {
	case CycleStarted:
		m.Restart()
	case CycleStopped:
		m.Shutdown()
	}
	return nil
}

// DoWork begins the pending slot once the clock reaches its start.
func (m *Manager) DoWork() {
	if !m.running || !m.armed {
		return
	}
	now := m.clock.Now()
	ahead := m.nextSlot.Sub(now)
	if ahead > 0 {
		// a clock stepped backwards leaves the slot further away than a cycle
		if ahead > m.schedule.CycleDuration()+m.cfg.AllowedSkew.Duration {
			m.resync("clock moved back")
		}
		return
	}
	skew := -ahead
	if skew > m.cfg.AllowedSkew.Duration {
		m.resync("clock skew " + skew.String())
		return
	}
	m.beginSlot(skew)
}

func (m *Manager) resync(reason string) {
	glog.Warningf("%s, updating MAC", reason)
	if m.stats != nil {
		m.stats.RecordResync()
	}
	m.update()
}

func (m *Manager) beginSlot(skew time.Duration) {
	s, _ := m.schedule.At(m.current)
	s.Time = m.nextSlot

	transmit := true
	switch m.cfg.Type {
	case MACFixedDecentralized:
		transmit = s.Src == m.cfg.ModemID || s.AlwaysInitiate
	case MACPolled:
		transmit = s.Src != BroadcastID
	}

	if glog.V(logging.LevelDebug) {
		glog.Infof("cycle order: %s", m.schedule.Describe(m.current))
	}
	if glog.V(logging.LevelVerbose) {
		glog.Infof("%s", logging.NewKVBufferForLog().AddSlotIndex(s.SlotIndex).AddSlotType(s.Type).
			AddSrc(s.Src).AddDest(s.Dest).AddRate(s.Rate).AddSkew(skew))
	}
	if m.stats != nil {
		m.stats.RecordSlotStart(skew, transmit)
	}

	if transmit && m.OnInitiateTransmission != nil {
		m.OnInitiateTransmission(s)
	}
	if m.OnSlotStart != nil {
		m.OnSlotStart(s)
	}
	m.incrementSlot()
}

func (m *Manager) incrementSlot() {
	s, _ := m.schedule.At(m.current)
	m.nextSlot = m.nextSlot.Add(util.Seconds(s.SlotSeconds))
	m.current++
	if m.current >= m.schedule.Len() {
		m.current = 0
	}
}

// update rewinds to the first slot of the next cycle, or to the next slot
// still in the future when cycles may start in the middle.
func (m *Manager) update() {
	if m.schedule.Len() == 0 {
		glog.V(logging.LevelDebug).Infof("MAC cycle is empty, stopping")
		m.armed = false
		return
	}
	cycle := m.schedule.CycleDuration()
	if cycle <= 0 {
		glog.Errorf("MAC cycle of %d slots has no duration, stopping", m.schedule.Len())
		m.armed = false
		return
	}

	m.current = 0
	m.nextSlot = m.nextCycleTime(cycle)

	if m.cfg.StartCycleInMiddle && m.schedule.Len() > 1 {
		m.nextSlot = m.nextSlot.Add(-cycle)
		now := m.clock.Now()
		for m.nextSlot.Before(now) {
			m.incrementSlot()
		}
	}
	m.armed = m.running
	if m.armed {
		glog.V(logging.LevelDebug).Infof("next MAC slot %d at %s", m.current, m.nextSlot.UTC().Format(time.RFC3339Nano))
	}
}

// nextCycleTime is the first cycle boundary after now on the grid
// anchored at the reference time.
func (m *Manager) nextCycleTime(cycle time.Duration) time.Time {
	now := m.clock.Now().UTC()
	var ref time.Time
	switch m.cfg.RefTimeType {
	case RefFixed:
		ref = time.Unix(0, 0).Add(util.Seconds(m.cfg.FixedRefTime)).UTC()
	default:
		ref = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	}
	elapsed := now.Sub(ref)
	n := elapsed / cycle
	if elapsed%cycle < 0 {
		n--
	}
	return ref.Add((n + 1) * cycle)
}

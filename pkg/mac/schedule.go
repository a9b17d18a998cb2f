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
	"fmt"
	"strings"
	"time"

	"acomms/pkg/errors"
	"acomms/pkg/util"
)

var (
	ErrEmptySchedule = errors.NewError("schedule is empty", errors.KErrPrecondition)
	ErrBadOffset     = errors.NewError("offset out of range", errors.KErrPrecondition)
)

// Schedule is the ordered slot cycle. Slots are addressed by position only.
type Schedule struct {
	slots []Slot
	cycle time.Duration
}

func NewSchedule(slots []Slot) *Schedule {
	s := &Schedule{slots: append([]Slot(nil), slots...)}
	s.recompute()
	return s
}

func (s *Schedule) Len() int {
	return len(s.slots)
}

// Slots returns a copy of the cycle.
func (s *Schedule) Slots() []Slot {
	return append([]Slot(nil), s.slots...)
}

func (s *Schedule) At(i int) (Slot, bool) {
	if i < 0 || i >= len(s.slots) {
		return Slot{}, false
	}
	return s.slots[i], true
}

// CycleDuration is the sum of all slot lengths.
func (s *Schedule) CycleDuration() time.Duration {
	return s.cycle
}

// Apply edits the schedule. Offsets are checked against the current length
// first; a rejected update leaves the schedule as it was.
func (s *Schedule) Apply(u Update) error {
	n := len(s.slots)
	var next []Slot

	switch u.Type {
	case UpdateNoChange:
		return nil
	case UpdateAssign:
		next = append([]Slot(nil), u.Slots...)
	case UpdatePushBack:
		next = make([]Slot, 0, n+len(u.Slots))
		next = append(next, s.slots...)
		next = append(next, u.Slots...)
	case UpdatePushFront:
		// each slot goes to the front in turn, so the supplied order reverses
		next = make([]Slot, 0, n+len(u.Slots))
		for i := len(u.Slots) - 1; i >= 0; i-- {
			next = append(next, u.Slots[i])
		}
		next = append(next, s.slots...)
	case UpdatePopBack:
		if n == 0 {
			return fmt.Errorf("%w: cannot pop back", ErrEmptySchedule)
		}
		next = append([]Slot(nil), s.slots[:n-1]...)
	case UpdatePopFront:
		if n == 0 {
			return fmt.Errorf("%w: cannot pop front", ErrEmptySchedule)
		}
		next = append([]Slot(nil), s.slots[1:]...)
	case UpdateInsert:
		if u.FirstOffset < 0 || u.FirstOffset > n {
			return fmt.Errorf("%w: insert before %d in a cycle of %d", ErrBadOffset, u.FirstOffset, n)
		}
		next = make([]Slot, 0, n+len(u.Slots))
		next = append(next, s.slots[:u.FirstOffset]...)
		next = append(next, u.Slots...)
		next = append(next, s.slots[u.FirstOffset:]...)
	case UpdateErase:
		first, second := u.FirstOffset, u.SecondOffset
		if second == -1 {
			if first < 0 || first >= n {
				return fmt.Errorf("%w: erase %d in a cycle of %d", ErrBadOffset, first, n)
			}
			second = first + 1
		} else if first < 0 || first >= second || second > n {
			return fmt.Errorf("%w: erase [%d, %d) in a cycle of %d", ErrBadOffset, first, second, n)
		}
		next = make([]Slot, 0, n-(second-first))
		next = append(next, s.slots[:first]...)
		next = append(next, s.slots[second:]...)
	case UpdateClear:
		next = nil
	default:
		return errors.Preconditionf("unknown update type %d", int(u.Type))
	}

	s.slots = next
	s.recompute()
	return nil
}

func (s *Schedule) recompute() {
	s.cycle = 0
	for i := range s.slots {
		s.slots[i].SlotIndex = i
		s.cycle += util.Seconds(s.slots[i].SlotSeconds)
	}
}

// Describe renders the cycle order, marking the slot at current with '*'.
func (s *Schedule) Describe(current int) string {
	var b strings.Builder
	b.WriteString("[")
	for i, sl := range s.slots {
		b.WriteString(" ")
		if i == current {
			b.WriteString("*")
		}
		b.WriteString(sl.String())
	}
	b.WriteString(" ]")
	return b.String()
}

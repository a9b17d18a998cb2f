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

// Package mac keeps the time division slot schedule of a node, applies
// remote edits to it and signals the start of every slot.
package mac

import (
	"fmt"
	"strings"
	"time"

	"acomms/pkg/errors"
	"acomms/pkg/field"
)

// BroadcastID is never the id of a node. A polled slot with this source
// stays quiet.
const BroadcastID = field.BroadcastID

type SlotType int

const (
	SlotData SlotType = iota
	SlotDriverSpecific
)

var slotTypeNames = []string{
	SlotData:           "DATA",
	SlotDriverSpecific: "DRIVER_SPECIFIC",
}

func (t SlotType) String() string {
	if t >= 0 && int(t) < len(slotTypeNames) {
		return slotTypeNames[t]
	}
	return fmt.Sprintf("SlotType(%d)", int(t))
}

func ParseSlotType(s string) (SlotType, error) {
	for i, n := range slotTypeNames {
		if strings.EqualFold(s, n) {
			return SlotType(i), nil
		}
	}
	return SlotData, errors.Configf("unknown slot type %q", s)
}

func (t *SlotType) UnmarshalText(text []byte) (err error) {
	*t, err = ParseSlotType(string(text))
	return
}

func (t SlotType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// short tag used in cycle order log lines
func (t SlotType) letter() string {
	if t == SlotDriverSpecific {
		return "s"
	}
	return "d"
}

// Slot is one transmission opportunity of the cycle.
type Slot struct {
	Src            uint32
	Dest           uint32
	Rate           int
	Type           SlotType
	SlotSeconds    float64
	AlwaysInitiate bool

	// SlotIndex is the position in the schedule, kept current after every
	// edit.
	SlotIndex int `toml:"-"`
	// Time is the planned start; set only on slots passed to the manager
	// callbacks.
	Time time.Time `toml:"-"`
}

func (s Slot) String() string {
	return fmt.Sprintf("%s%d/%d@%d", s.Type.letter(), s.Src, s.Dest, s.Rate)
}

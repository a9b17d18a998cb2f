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
)

type UpdateType int

const (
	UpdateNoChange UpdateType = iota
	UpdateAssign
	UpdatePushBack
	UpdatePushFront
	UpdatePopBack
	UpdatePopFront
	UpdateInsert
	UpdateErase
	UpdateClear
)

var updateTypeNames = []string{
	UpdateNoChange:  "NO_CHANGE",
	UpdateAssign:    "ASSIGN",
	UpdatePushBack:  "PUSH_BACK",
	UpdatePushFront: "PUSH_FRONT",
	UpdatePopBack:   "POP_BACK",
	UpdatePopFront:  "POP_FRONT",
	UpdateInsert:    "INSERT",
	UpdateErase:     "ERASE",
	UpdateClear:     "CLEAR",
}

func (t UpdateType) String() string {
	if t >= 0 && int(t) < len(updateTypeNames) {
		return updateTypeNames[t]
	}
	return fmt.Sprintf("UpdateType(%d)", int(t))
}

// CycleState optionally starts or stops the cycle once an update is
// applied.
type CycleState int

const (
	CycleUnchanged CycleState = iota
	CycleStarted
	CycleStopped
)

var cycleStateNames = []string{
	CycleUnchanged: "UNCHANGED",
	CycleStarted:   "STARTED",
	CycleStopped:   "STOPPED",
}

func (c CycleState) String() string {
	if c >= 0 && int(c) < len(cycleStateNames) {
		return cycleStateNames[c]
	}
	return fmt.Sprintf("CycleState(%d)", int(c))
}

// Update is a remote edit of the schedule of node Dest. SecondOffset is -1
// when absent. On the bus it travels as an acomms.mac.MACUpdate message.
type Update struct {
	Dest         uint32
	Type         UpdateType
	FirstOffset  int
	SecondOffset int
	Slots        []Slot
	CycleState   CycleState
}

func NewUpdate(dest uint32, t UpdateType, slots ...Slot) Update {
	return Update{Dest: dest, Type: t, SecondOffset: -1, Slots: slots}
}

func (u Update) String() string {
	return FormatUpdate(u)
}

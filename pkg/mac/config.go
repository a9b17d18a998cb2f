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

type ManagerType int

const (
	MACPolled ManagerType = iota + 1
	MACFixedDecentralized
)

func (t ManagerType) String() string {
	switch t {
	case MACPolled:
		return "polled"
	case MACFixedDecentralized:
		return "fixed_decentralized"
	}
	return fmt.Sprintf("ManagerType(%d)", int(t))
}

func (t *ManagerType) UnmarshalText(text []byte) error {
	s := strings.TrimPrefix(strings.ToLower(string(text)), "mac_")
	switch s {
	case "polled":
		*t = MACPolled
	case "fixed_decentralized", "fixed":
		*t = MACFixedDecentralized
	default:
		return errors.Configf("unknown MAC type %q", text)
	}
	return nil
}

func (t ManagerType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// RefTimeType anchors the cycle grid of every node to the same instant.
type RefTimeType int

const (
	RefStartOfDay RefTimeType = iota
	RefFixed
)

func (r RefTimeType) String() string {
	if r == RefFixed {
		return "fixed"
	}
	return "start_of_day"
}

func (r *RefTimeType) UnmarshalText(text []byte) error {
	switch strings.TrimPrefix(strings.ToLower(string(text)), "reference_") {
	case "start_of_day":
		*r = RefStartOfDay
	case "fixed":
		*r = RefFixed
	default:
		return errors.Configf("unknown reference time type %q", text)
	}
	return nil
}

func (r RefTimeType) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

type Config struct {
	ModemID     uint32
	Type        ManagerType
	RefTimeType RefTimeType
	// FixedRefTime is in UNIX seconds, used with RefFixed.
	FixedRefTime       float64
	StartCycleInMiddle bool
	// a slot starting later than this re-synchronizes the cycle
	AllowedSkew util.Duration
	Slot        []Slot
}

var DefaultConfig = Config{
	Type:               MACFixedDecentralized,
	RefTimeType:        RefStartOfDay,
	StartCycleInMiddle: true,
	AllowedSkew:        util.Duration{Duration: 2 * time.Second},
}

func (c *Config) Validate() error {
	if c.ModemID == BroadcastID {
		return errors.Configf("modem id %d is reserved for broadcast", BroadcastID)
	}
	switch c.Type {
	case MACPolled, MACFixedDecentralized:
	default:
		return errors.Configf("MAC type not set")
	}
	if c.AllowedSkew.Duration <= 0 {
		return errors.Configf("allowed skew must be positive, got %s", c.AllowedSkew.Duration)
	}
	for i, s := range c.Slot {
		if s.SlotSeconds <= 0 {
			return errors.Configf("slot %d: slot seconds must be positive", i)
		}
	}
	return nil
}

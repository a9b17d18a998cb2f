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

package field

import (
	"fmt"
	"math"
	"time"
)

// HeaderPart identifies one of the fixed header fields. The declaration
// order is the wire order.
type HeaderPart uint8

const (
	HeadNone HeaderPart = iota
	HeadCCLID
	HeadDCCLID
	HeadTime
	HeadSrcID
	HeadDestID
	HeadMultiMessageFlag
	HeadBroadcastFlag
	HeadUnused
)

const (
	NumHeaderParts = 8

	// CCLHeaderID is the protocol class id carried by every compact message.
	CCLHeaderID = 32
	// BroadcastID addresses all known peers and is never a node id.
	BroadcastID = 0
)

type headerInfo struct {
	name string
	bits int
}

var headerInfos = map[HeaderPart]headerInfo{
	HeadCCLID:            {"_ccl_id", 8},
	HeadDCCLID:           {"_id", 9},
	HeadTime:             {"_time", 17},
	HeadSrcID:            {"_src_id", 5},
	HeadDestID:           {"_dest_id", 5},
	HeadMultiMessageFlag: {"_multimessage_flag", 1},
	HeadBroadcastFlag:    {"_broadcast_flag", 1},
	HeadUnused:           {"_unused", 2},
}

// HeaderParts lists the header parts in wire order.
var HeaderParts = []HeaderPart{
	HeadCCLID,
	HeadDCCLID,
	HeadTime,
	HeadSrcID,
	HeadDestID,
	HeadMultiMessageFlag,
	HeadBroadcastFlag,
	HeadUnused,
}

func (h HeaderPart) DefaultName() string {
	return headerInfos[h].name
}

func (h HeaderPart) Bits() int {
	return headerInfos[h].bits
}

func (h HeaderPart) String() string {
	if h == HeadNone {
		return "body"
	}
	if info, ok := headerInfos[h]; ok {
		return info.name
	}
	return fmt.Sprintf("head(%d)", uint8(h))
}

// ParseHeaderPart accepts the default field name with or without the
// leading underscore.
func ParseHeaderPart(name string) (HeaderPart, bool) {
	for _, h := range HeaderParts {
		n := h.DefaultName()
		if name == n || name == n[1:] {
			return h, true
		}
	}
	return HeadNone, false
}

// NewHeaderField returns the header field for part h under its default name.
func NewHeaderField(h HeaderPart) *Field {
	f := &Field{
		Name:           h.DefaultName(),
		Type:           TypeInt,
		Head:           h,
		SequenceNumber: -1,
		ArrayLength:    1,
		Max:            math.Pow(2, float64(h.Bits())) - 1,
		Min:            0,
		HasMax:         true,
		HasMin:         true,
	}
	if h == HeadTime {
		f.Type = TypeFloat
	}
	return f
}

// NewHeader returns the eight header fields in wire order.
func NewHeader() []*Field {
	fields := make([]*Field, 0, NumHeaderParts)
	for _, h := range HeaderParts {
		fields = append(fields, NewHeaderField(h))
	}
	return fields
}

const isoTimeLayout = "2006-01-02T15:04:05.000000Z"

func UnixSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / 1e9
}

// FormatTime renders unix seconds as ISO-8601 UTC text.
func FormatTime(unix float64) string {
	sec, frac := math.Modf(unix)
	return time.Unix(int64(sec), int64(math.Round(frac*1e6))*1000).UTC().Format(isoTimeLayout)
}

func ParseTime(s string) (float64, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return math.NaN(), err
	}
	return UnixSeconds(t), nil
}

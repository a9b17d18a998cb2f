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

package logging

import (
	"testing"
	"time"
)

func TestLevelFromString(t *testing.T) {
	tests := map[string]int{
		"error":   int(LevelError),
		"WARN":    int(LevelWarning),
		"warning": int(LevelWarning),
		"info":    int(LevelInfo),
		"debug":   int(LevelDebug),
		"Verbose": int(LevelVerbose),
		"unknown": int(LevelInfo),
	}
	for name, want := range tests {
		if got := int(LevelFromString(name)); got != want {
			t.Errorf("%s: got %d, want %d", name, got, want)
		}
	}
}

func TestKeyValueBuffer(t *testing.T) {
	b := NewKVBufferForLog().AddMessage("Status").AddSrc(1).AddDest(0).
		AddSlotIndex(2).AddSkew(1500 * time.Millisecond).AddCorrelationId("").AddDropReason("late")
	if want := "msg=Status,src=1,dest=0,slot=2,skew=1.5s,drop=late"; b.String() != want {
		t.Errorf("got %q, want %q", b.String(), want)
	}
	q := NewKVBuffer().AddVar("DEPTH").AddLen(4)
	if want := "var=DEPTH&len=4"; q.String() != want {
		t.Errorf("got %q, want %q", q.String(), want)
	}
}

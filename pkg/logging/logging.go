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
	"bytes"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/golang/glog"
)

// glog verbosity levels used across the tree
const (
	LevelError   glog.Level = 1
	LevelWarning glog.Level = 2
	LevelInfo    glog.Level = 3
	LevelDebug   glog.Level = 4
	LevelVerbose glog.Level = 5
)

var appName string

// InitLogging maps a configured level name onto glog's verbosity and sends
// output to stderr.
func InitLogging(level string, name string) {
	setFlag("logtostderr", "true")
	appName = name
	setFlag("v", strconv.Itoa(int(LevelFromString(level))))
}

func LevelFromString(level string) glog.Level {
	switch strings.ToLower(level) {
	case "error":
		return LevelError
	case "warning", "warn":
		return LevelWarning
	case "debug":
		return LevelDebug
	case "verbose":
		return LevelVerbose
	}
	return LevelInfo
}

func AppName() string {
	return appName
}

func setFlag(name, value string) {
	if f := flag.Lookup(name); f != nil {
		f.Value.Set(value)
	}
}

type KeyValueBuffer struct {
	bytes.Buffer
	delimiter     byte
	pairDelimiter byte
}

func NewKVBufferForLog() *KeyValueBuffer {
	b := &KeyValueBuffer{
		delimiter:     '=',
		pairDelimiter: ',',
	}
	return b
}

func NewKVBuffer() *KeyValueBuffer {
	b := &KeyValueBuffer{
		pairDelimiter: '&',
		delimiter:     '=',
	}
	return b
}

var (
	logDataKeyMessage       []byte = []byte("msg")
	logDataKeyTechnique     []byte = []byte("tech")
	logDataKeyVar           []byte = []byte("var")
	logDataKeySrc           []byte = []byte("src")
	logDataKeyDest          []byte = []byte("dest")
	logDataKeyRate          []byte = []byte("rate")
	logDataKeySlot          []byte = []byte("slot")
	logDataKeySlotType      []byte = []byte("stype")
	logDataKeyUpdateType    []byte = []byte("op")
	logDataKeyCorrelationId []byte = []byte("corr_id_")
	logDataKeyStatus        []byte = []byte("st")
	logDataKeySkew          []byte = []byte("skew")
	logDataKeyLen           []byte = []byte("len")
	logDropReason           []byte = []byte("drop")
)

func (b *KeyValueBuffer) AddBytes(key []byte, value []byte) *KeyValueBuffer {
	if b.Len() > 0 {
		b.WriteByte(b.pairDelimiter)
	}
	b.Write(key)
	b.WriteByte(b.delimiter)
	b.Write(value)
	return b
}

func (b *KeyValueBuffer) Add(key []byte, value string) *KeyValueBuffer {
	if b.Len() > 0 {
		b.WriteByte(b.pairDelimiter)
	}
	b.Write(key)
	b.WriteByte(b.delimiter)
	b.WriteString(value)
	return b
}

func (b *KeyValueBuffer) AddInt(key []byte, value int) *KeyValueBuffer {
	return b.Add(key, strconv.Itoa(value))
}

func (b *KeyValueBuffer) AddUInt64(key []byte, value uint64) *KeyValueBuffer {
	return b.Add(key, strconv.FormatUint(value, 10))
}

func (b *KeyValueBuffer) AddMessage(name string) *KeyValueBuffer {
	return b.Add(logDataKeyMessage, name)
}

func (b *KeyValueBuffer) AddTechnique(t fmt.Stringer) *KeyValueBuffer {
	return b.Add(logDataKeyTechnique, t.String())
}

func (b *KeyValueBuffer) AddVar(name string) *KeyValueBuffer {
	return b.Add(logDataKeyVar, name)
}

func (b *KeyValueBuffer) AddSrc(id uint32) *KeyValueBuffer {
	return b.AddUInt64(logDataKeySrc, uint64(id))
}

func (b *KeyValueBuffer) AddDest(id uint32) *KeyValueBuffer {
	return b.AddUInt64(logDataKeyDest, uint64(id))
}

func (b *KeyValueBuffer) AddRate(rate int) *KeyValueBuffer {
	return b.AddInt(logDataKeyRate, rate)
}

func (b *KeyValueBuffer) AddSlotIndex(i int) *KeyValueBuffer {
	return b.AddInt(logDataKeySlot, i)
}

func (b *KeyValueBuffer) AddSlotType(t fmt.Stringer) *KeyValueBuffer {
	return b.Add(logDataKeySlotType, t.String())
}

func (b *KeyValueBuffer) AddUpdateType(t fmt.Stringer) *KeyValueBuffer {
	return b.Add(logDataKeyUpdateType, t.String())
}

func (b *KeyValueBuffer) AddCorrelationId(id string) *KeyValueBuffer {
	if len(id) != 0 {
		b.Add(logDataKeyCorrelationId, id)
	}
	return b
}

func (b *KeyValueBuffer) AddStatus(st string) *KeyValueBuffer {
	return b.Add(logDataKeyStatus, st)
}

func (b *KeyValueBuffer) AddSkew(d time.Duration) *KeyValueBuffer {
	return b.Add(logDataKeySkew, d.String())
}

func (b *KeyValueBuffer) AddLen(n int) *KeyValueBuffer {
	return b.AddInt(logDataKeyLen, n)
}

func (b *KeyValueBuffer) AddDropReason(reason string) *KeyValueBuffer {
	return b.Add(logDropReason, reason)
}

func LogNodeStart(modemID uint32) {
	pid := os.Getpid()
	glog.InfoDepth(1, fmt.Sprintf("%s node %d (pid: %d) started", appName, modemID, pid))
}

func LogNodeExit(modemID uint32) {
	pid := os.Getpid()
	glog.InfoDepth(1, fmt.Sprintf("%s node %d (pid: %d) stopped", appName, modemID, pid))
}

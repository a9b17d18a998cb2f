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

package algorithm

import (
	"bufio"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/golang/glog"

	"acomms/pkg/errors"
	"acomms/pkg/logging"
	"acomms/pkg/value"
)

type modemEntry struct {
	name     string
	kind     string
	location string
}

// ModemLookup maps modem ids to vehicle names and types.
type ModemLookup struct {
	entries map[int]modemEntry
}

// LoadModemLookup reads a lookup table of "id,name,type[,location]" lines.
func LoadModemLookup(path string) (*ModemLookup, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Configf("cannot open modem id lookup %s: %s", path, err)
	}
	defer f.Close()
	return ReadModemLookup(f)
}

func ReadModemLookup(r io.Reader) (*ModemLookup, error) {
	l := &ModemLookup{entries: make(map[int]modemEntry)}
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.ReplaceAll(scanner.Text(), " ", "")
		if i := strings.Index(line, "#"); i >= 0 {
			line = line[:i]
		}
		if i := strings.Index(line, "//"); i >= 0 {
			line = line[:i]
		}
		if line == "" {
			continue
		}
		parts := strings.Split(line, ",")
		if len(parts) < 3 {
			glog.Warningf("modem id lookup: invalid line: %s", line)
			continue
		}
		id, err := strconv.Atoi(parts[0])
		if err != nil {
			glog.Warningf("modem id lookup: invalid id in line: %s", line)
			continue
		}
		e := modemEntry{name: parts[1], kind: parts[2], location: parts[1]}
		if len(parts) > 3 {
			e.location = parts[3]
		}
		l.entries[id] = e
		glog.V(logging.LevelDebug).Infof("modem id [%d], name [%s], type [%s], location name [%s]", id, e.name, e.kind, e.location)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Configf("reading modem id lookup: %s", err)
	}
	return l, nil
}

// Name returns the vehicle name for id, or id itself when unknown.
func (l *ModemLookup) Name(id int) string {
	if e, ok := l.entries[id]; ok {
		return e.name
	}
	return strconv.Itoa(id)
}

func (l *ModemLookup) Type(id int) string {
	if e, ok := l.entries[id]; ok {
		return e.kind
	}
	return "unknown_type"
}

func (l *ModemLookup) Location(id int) string {
	if e, ok := l.entries[id]; ok {
		return e.location
	}
	return strconv.Itoa(id)
}

// ID finds a name case-insensitively. Unknown names are read as a number.
func (l *ModemLookup) ID(name string) int {
	ids := make([]int, 0, len(l.entries))
	for id := range l.entries {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	for _, id := range ids {
		if strings.EqualFold(l.entries[id].name, name) {
			return id
		}
	}
	return int(value.String(name).AsInt())
}

func (l *ModemLookup) Len() int {
	return len(l.entries)
}

func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

// RegisterModemLookup adds the id/name conversions backed by l.
func RegisterModemLookup(r *Registry, l *ModemLookup) {
	r.Register("modem_id2name", func(v value.Value) value.Value {
		s := v.AsString()
		if !isNumeric(s) {
			return v
		}
		id, _ := strconv.Atoi(s)
		return value.String(l.Name(id))
	})
	r.Register("modem_id2type", func(v value.Value) value.Value {
		s := v.AsString()
		if !isNumeric(s) {
			return v
		}
		id, _ := strconv.Atoi(s)
		return value.String(l.Type(id))
	})
	r.Register("name2modem_id", func(v value.Value) value.Value {
		return value.String(strconv.Itoa(l.ID(v.AsString())))
	})
}

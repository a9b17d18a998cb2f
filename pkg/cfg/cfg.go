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

// Package cfg holds TOML configuration as a tree addressed by dot
// delimited, case insensitive keys, so command line overrides can be
// merged over a file before it is decoded into a struct.
package cfg

import (
	"bytes"
	"fmt"
	"io"
	"reflect"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/golang/glog"
)

type (
	// Config is not safe for concurrent use.
	Config struct {
		kvMap map[string]keyValue
	}
	// key keeps the spelling it was first read with
	keyValue struct {
		key   string
		value interface{}
	}
)

// ReadFrom reads the properties of i, a struct or a map.
func (c *Config) ReadFrom(i interface{}) (err error) {
	var buf bytes.Buffer
	if i != nil {
		if err = toml.NewEncoder(&buf).Encode(i); err != nil {
			return
		}
	}
	return c.ReadFromToml(&buf)
}

func (c *Config) ReadFromToml(r io.Reader) (err error) {
	m := make(map[string]interface{})
	if _, err = toml.NewDecoder(r).Decode(&m); err == nil {
		c.setFrom(m)
	}
	return
}

func (c *Config) ReadFromTomlBytes(b []byte) error {
	return c.ReadFromToml(bytes.NewReader(b))
}

func (c *Config) ReadFromTomlFile(file string) (err error) {
	m := make(map[string]interface{})
	if _, err = toml.DecodeFile(file, &m); err == nil {
		c.setFrom(m)
	}
	return
}

func (c *Config) WriteToToml(w io.Writer) error {
	m := make(map[string]interface{})
	setMap(m, c.kvMap)
	return toml.NewEncoder(w).Encode(m)
}

// WriteTo decodes the properties into v, a pointer to a struct or a map.
func (c *Config) WriteTo(v interface{}) (err error) {
	var buf bytes.Buffer
	if err = c.WriteToToml(&buf); err != nil {
		return
	}
	_, err = toml.Decode(buf.String(), v)
	return
}

// Merge copies the properties of overrides over c. A key present in both
// with values of different types is an error.
func (c *Config) Merge(overrides *Config) error {
	if c.kvMap == nil {
		c.kvMap = make(map[string]keyValue)
	}
	return merge(c.kvMap, overrides.kvMap)
}

// WriteToKVList writes one key=value line per leaf, sorted by key.
func (c *Config) WriteToKVList(w io.Writer) {
	var lines []string
	for _, v := range c.kvMap {
		lines = appendKeyValue(lines, v.key, &v)
	}
	sort.Strings(lines)
	for _, l := range lines {
		fmt.Fprintln(w, l)
	}
}

func (c *Config) GetValue(dotDelimitedKey string) interface{} {
	return getValueFromMap(c.kvMap, strings.Split(dotDelimitedKey, "."))
}

func (c *Config) SetKeyValue(dotDelimitedKey string, v interface{}) error {
	keys := strings.Split(dotDelimitedKey, ".")
	for _, k := range keys {
		if k == "" {
			return fmt.Errorf("empty key in %q", dotDelimitedKey)
		}
	}
	tmap := make(map[string]keyValue)
	cm := tmap
	for len(keys) > 1 {
		nmap := make(map[string]keyValue)
		cm[strings.ToLower(keys[0])] = keyValue{keys[0], nmap}
		cm = nmap
		keys = keys[1:]
	}
	cm[strings.ToLower(keys[0])] = keyValue{keys[0], v}
	if c.kvMap == nil {
		c.kvMap = make(map[string]keyValue)
	}
	return merge(c.kvMap, tmap)
}

// Set applies an assignment such as MAC.ModemID=3. The value is read as a
// TOML literal and falls back to a plain string.
func (c *Config) Set(assignment string) error {
	i := strings.IndexByte(assignment, '=')
	if i <= 0 {
		return fmt.Errorf("expected key=value, got %q", assignment)
	}
	key := strings.TrimSpace(assignment[:i])
	raw := strings.TrimSpace(assignment[i+1:])

	var v interface{} = raw
	m := make(map[string]interface{})
	if _, err := toml.Decode("v = "+raw, &m); err == nil {
		v = m["v"]
	}
	return c.SetKeyValue(key, v)
}

func appendKeyValue(lines []string, k string, v *keyValue) []string {
	if vm, ok := v.value.(map[string]keyValue); ok {
		for _, sv := range vm {
			lines = appendKeyValue(lines, k+"."+sv.key, &sv)
		}
		return lines
	}
	return append(lines, fmt.Sprintf("%s=%v", k, v.value))
}

func (c *Config) setFrom(m map[string]interface{}) {
	c.kvMap = make(map[string]keyValue)
	setKvMap(c.kvMap, m)
}

func merge(to, from map[string]keyValue) error {
	for k, v := range from {
		vm, vIsMap := v.value.(map[string]keyValue)
		toV, found := to[k]
		if !found {
			if vIsMap {
				nmap := make(map[string]keyValue)
				to[k] = keyValue{v.key, nmap}
				if err := merge(nmap, vm); err != nil {
					return err
				}
			} else {
				to[k] = v
			}
			continue
		}
		toMap, toIsMap := toV.value.(map[string]keyValue)
		if toIsMap && vIsMap {
			if err := merge(toMap, vm); err != nil {
				return err
			}
			continue
		}
		tto, tfrom := reflect.TypeOf(toV.value), reflect.TypeOf(v.value)
		if tto != tfrom {
			return fmt.Errorf("type mismatch for %s. target: %v  source: %v", v.key, tto, tfrom)
		}
		to[k] = keyValue{toV.key, v.value}
	}
	return nil
}

func getValueFromMap(imap map[string]keyValue, keys []string) interface{} {
	if len(keys) == 0 {
		return nil
	}
	v, ok := imap[strings.ToLower(keys[0])]
	if !ok {
		return nil
	}
	vm, isMap := v.value.(map[string]keyValue)
	if len(keys) > 1 {
		if !isMap {
			return nil
		}
		return getValueFromMap(vm, keys[1:])
	}
	if isMap {
		nmap := make(map[string]interface{})
		setMap(nmap, vm)
		return nmap
	}
	return v.value
}

func setKvMap(to map[string]keyValue, from map[string]interface{}) {
	for k, v := range from {
		lkey := strings.ToLower(k)
		if _, found := to[lkey]; found {
			glog.Warningf("key: %s found, skip", k)
			continue
		}
		if vm, ok := v.(map[string]interface{}); ok {
			kvmap := make(map[string]keyValue)
			to[lkey] = keyValue{key: k, value: kvmap}
			setKvMap(kvmap, vm)
		} else {
			to[lkey] = keyValue{k, v}
		}
	}
}

func setMap(to map[string]interface{}, from map[string]keyValue) {
	for _, v := range from {
		if vm, ok := v.value.(map[string]keyValue); ok {
			nmap := make(map[string]interface{})
			to[v.key] = nmap
			setMap(nmap, vm)
		} else {
			to[v.key] = v.value
		}
	}
}

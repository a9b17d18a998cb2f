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

// Package translate turns schema messages into bus variables and back.
package translate

import (
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/golang/glog"
	"google.golang.org/protobuf/proto"

	"acomms/pkg/algorithm"
	"acomms/pkg/errors"
	"acomms/pkg/logging"
	"acomms/pkg/schema"
	"acomms/pkg/value"
)

// Variable is one named value on the bus. Value holds a string or a double.
type Variable struct {
	Name  string
	Value value.Value
}

// Options carries what a technique needs beyond the message itself.
type Options struct {
	Format            *Format
	RepeatedDelimiter string
	PublishAlgorithms []PublishAlgorithm
	CreateAlgorithms  []CreateAlgorithm
	Algorithms        *algorithm.Registry
	UseShortEnum      bool
	Compress          string
}

func (o Options) formatOptions() formatOptions {
	return formatOptions{
		delimiter:  delimiterOr(o.RepeatedDelimiter),
		shortEnum:  o.UseShortEnum,
		publish:    o.PublishAlgorithms,
		create:     o.CreateAlgorithms,
		algorithms: o.Algorithms,
	}
}

// Serialize renders msg with technique t.
func Serialize(t Technique, msg proto.Message, opts Options) (string, error) {
	switch t {
	case TechniqueNative:
		return serializeNative(msg, opts.Compress)
	case TechniqueSchemaText:
		return serializePrefixed(msg)
	case TechniquePlainSchemaText:
		return serializeText(msg)
	case TechniqueKeyValue:
		return serializeKeyValue(msg.ProtoReflect(), opts.PublishAlgorithms, opts.Algorithms, opts.UseShortEnum)
	case TechniqueFormat:
		if opts.Format == nil {
			return "", errors.Configf("format technique without a format")
		}
		return serializeFormat(msg.ProtoReflect(), opts.Format, opts.formatOptions())
	}
	return "", errors.Configf("unknown technique %d", t)
}

// Parse reads payload into msg with technique t. Native and schema text
// payloads replace the message contents; key=value and format payloads
// merge into it.
func Parse(t Technique, payload string, msg proto.Message, opts Options) error {
	switch t {
	case TechniqueNative:
		return parseNative(payload, msg, opts.Compress)
	case TechniqueSchemaText:
		return parsePrefixed(payload, msg)
	case TechniquePlainSchemaText:
		return parseText(payload, msg)
	case TechniqueKeyValue:
		return parseKeyValue(payload, msg.ProtoReflect(), opts.CreateAlgorithms, opts.Algorithms, opts.UseShortEnum)
	case TechniqueFormat:
		if opts.Format == nil {
			return errors.Configf("format technique without a format")
		}
		return parseFormat(payload, msg.ProtoReflect(), opts.Format, opts.formatOptions())
	}
	return errors.Configf("unknown technique %d", t)
}

type compiledEntry struct {
	entry       *Entry
	create      []*Format
	publish     []*Format
	publishVars []*Format
}

// Translator holds the entries for every translated message type.
type Translator struct {
	mu         sync.RWMutex
	entries    map[string]*compiledEntry
	schemas    *schema.Registry
	algorithms *algorithm.Registry
}

func New(schemas *schema.Registry, algorithms *algorithm.Registry) *Translator {
	return &Translator{
		entries:    make(map[string]*compiledEntry),
		schemas:    schemas,
		algorithms: algorithms,
	}
}

func (tr *Translator) Schemas() *schema.Registry {
	return tr.schemas
}

func (tr *Translator) Algorithms() *algorithm.Registry {
	return tr.algorithms
}

func compileIf(t Technique, format string) (*Format, error) {
	if t != TechniqueFormat {
		return nil, nil
	}
	return CompileFormat(format)
}

// AddEntry validates e and stores a copy. An entry for the same type
// replaces the earlier one.
func (tr *Translator) AddEntry(e *Entry) error {
	if _, err := tr.schemas.FindMessage(e.TypeName); err != nil {
		return errors.Configf("translator entry %s: %s", e.TypeName, err)
	}
	c := &compiledEntry{entry: e.Clone()}
	for _, p := range c.entry.Create {
		f, err := compileIf(p.Technique, p.Format)
		if err != nil {
			return errors.Configf("create parser for %s on %s: %s", e.TypeName, p.Var, err)
		}
		c.create = append(c.create, f)
	}
	for _, p := range c.entry.Publish {
		f, err := compileIf(p.Technique, p.Format)
		if err != nil {
			return errors.Configf("publish serializer for %s on %s: %s", e.TypeName, p.Var, err)
		}
		c.publish = append(c.publish, f)
		v, err := compileIf(p.Technique, p.Var)
		if err != nil {
			return errors.Configf("publish variable %s for %s: %s", p.Var, e.TypeName, err)
		}
		c.publishVars = append(c.publishVars, v)
		if p.Compress != "" && p.Compress != CompressSnappy {
			return errors.Configf("publish serializer for %s on %s: unknown compression %q", e.TypeName, p.Var, p.Compress)
		}
	}

	tr.mu.Lock()
	if _, found := tr.entries[e.TypeName]; found {
		glog.V(logging.LevelDebug).Infof("translator entry for %s replaced", e.TypeName)
	}
	tr.entries[e.TypeName] = c
	tr.mu.Unlock()
	glog.V(logging.LevelInfo).Infof("translator entry %s", c.entry)
	return nil
}

func (tr *Translator) lookup(name string) (*compiledEntry, error) {
	tr.mu.RLock()
	c, ok := tr.entries[name]
	tr.mu.RUnlock()
	if !ok {
		return nil, errors.Configf("no translator entry for message type %s", name)
	}
	return c, nil
}

// Entry returns a copy of the entry for name.
func (tr *Translator) Entry(name string) (*Entry, bool) {
	c, err := tr.lookup(name)
	if err != nil {
		return nil, false
	}
	return c.entry.Clone(), true
}

// Entries returns copies of every entry ordered by type name.
func (tr *Translator) Entries() []*Entry {
	tr.mu.RLock()
	names := make([]string, 0, len(tr.entries))
	for n := range tr.entries {
		names = append(names, n)
	}
	tr.mu.RUnlock()
	sort.Strings(names)
	out := make([]*Entry, 0, len(names))
	for _, n := range names {
		if e, ok := tr.Entry(n); ok {
			out = append(out, e)
		}
	}
	return out
}

// busValue publishes payloads that read as a number as doubles.
func busValue(payload string) value.Value {
	if d, err := strconv.ParseFloat(payload, 64); err == nil {
		return value.Double(d)
	}
	return value.String(payload)
}

// ToBus renders msg onto each publish variable of its entry.
func (tr *Translator) ToBus(msg proto.Message) ([]Variable, error) {
	name := string(msg.ProtoReflect().Descriptor().FullName())
	c, err := tr.lookup(name)
	if err != nil {
		return nil, err
	}
	vars := make([]Variable, 0, len(c.entry.Publish))
	for i, p := range c.entry.Publish {
		opts := Options{
			Format:            c.publish[i],
			RepeatedDelimiter: p.RepeatedDelimiter,
			PublishAlgorithms: p.Algorithms,
			Algorithms:        tr.algorithms,
			UseShortEnum:      c.entry.UseShortEnum,
			Compress:          p.Compress,
		}
		varName := p.Var
		if c.publishVars[i] != nil {
			if varName, err = serializeFormat(msg.ProtoReflect(), c.publishVars[i], opts.formatOptions()); err != nil {
				return nil, err
			}
		}
		payload, err := Serialize(p.Technique, msg, opts)
		if err != nil {
			return nil, err
		}
		vars = append(vars, Variable{Name: varName, Value: busValue(payload)})
		if glog.V(logging.LevelVerbose) {
			glog.Infof("%s", logging.NewKVBufferForLog().AddMessage(name).AddTechnique(p.Technique).AddVar(varName).AddLen(len(payload)))
		}
	}
	return vars, nil
}

// ToInverseBus renders msg onto the create variables of its entry, so that
// FromBus on the result rebuilds msg. A publish trigger variable not among
// them is added with an empty value.
func (tr *Translator) ToInverseBus(msg proto.Message) ([]Variable, error) {
	name := string(msg.ProtoReflect().Descriptor().FullName())
	c, err := tr.lookup(name)
	if err != nil {
		return nil, err
	}
	vars := make([]Variable, 0, len(c.entry.Create)+1)
	triggered := false
	for i, p := range c.entry.Create {
		payload, err := Serialize(p.Technique, msg, Options{
			Format:            c.create[i],
			RepeatedDelimiter: p.RepeatedDelimiter,
			UseShortEnum:      c.entry.UseShortEnum,
		})
		if err != nil {
			return nil, err
		}
		vars = append(vars, Variable{Name: p.Var, Value: busValue(payload)})
		triggered = triggered || p.Var == c.entry.Trigger.Var
	}
	if c.entry.Trigger.Type == TriggerPublish && !triggered && c.entry.Trigger.Var != "" {
		vars = append(vars, Variable{Name: c.entry.Trigger.Var, Value: value.String("")})
	}
	return vars, nil
}

// FromBus builds a message of type name from a snapshot of the bus. Double
// variables are read in their shortest exact form; missing ones as "".
func (tr *Translator) FromBus(snapshot map[string]value.Value, name string) (proto.Message, error) {
	c, err := tr.lookup(name)
	if err != nil {
		return nil, err
	}
	msg, err := tr.schemas.NewMessage(name)
	if err != nil {
		return nil, err
	}
	for i, p := range c.entry.Create {
		payload := ""
		if v, ok := snapshot[p.Var]; ok {
			payload = v.Text()
		}
		err := Parse(p.Technique, payload, msg, Options{
			Format:            c.create[i],
			RepeatedDelimiter: p.RepeatedDelimiter,
			CreateAlgorithms:  p.Algorithms,
			Algorithms:        tr.algorithms,
			UseShortEnum:      c.entry.UseShortEnum,
		})
		if err != nil {
			return nil, errors.Translatef("%s from %s: %s", name, p.Var, err)
		}
	}
	return msg, nil
}

func (tr *Translator) String() string {
	var b strings.Builder
	b.WriteString("= Begin Translator =\n")
	for i, e := range tr.Entries() {
		b.WriteString("== Entry " + strconv.Itoa(i) + " == " + e.String() + "\n")
	}
	b.WriteString("= End Translator =")
	return b.String()
}

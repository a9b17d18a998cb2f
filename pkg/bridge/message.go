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

package bridge

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"acomms/pkg/algorithm"
	"acomms/pkg/errors"
	"acomms/pkg/field"
	"acomms/pkg/translate"
	"acomms/pkg/value"
)

const (
	TriggerTime    = "time"
	TriggerPublish = "publish"
)

// Publish is a resolved PublishDef. Fields and Algorithms are parallel.
type Publish struct {
	Var        string
	Format     string
	Fields     []*field.Field
	Algorithms [][]string
}

// Message is a definition with its header and layout fields built and
// initialized.
type Message struct {
	Name             string
	ID               uint32
	Size             int
	Trigger          string
	TriggerVarName   string
	TriggerMandatory string
	TriggerTime      float64
	InVar            string
	OutVar           string
	Header           []*field.Field
	Layout           []*field.Field
	Publishes        []*Publish
}

func (m *Message) TriggerVar() string {
	return m.TriggerVarName
}

// Field finds a layout or header field by name.
func (m *Message) Field(name string) (*field.Field, bool) {
	for _, f := range m.Layout {
		if f.Name == name {
			return f, true
		}
	}
	for _, f := range m.Header {
		if f.Name == name {
			return f, true
		}
	}
	return nil, false
}

func (m *Message) HasField(name string) bool {
	_, ok := m.Field(name)
	return ok
}

// Fields returns the header fields followed by the layout, in wire order.
func (m *Message) Fields() []*field.Field {
	all := make([]*field.Field, 0, len(m.Header)+len(m.Layout))
	all = append(all, m.Header...)
	return append(all, m.Layout...)
}

// HeaderField returns the field carrying header part h.
func (m *Message) HeaderField(h field.HeaderPart) *field.Field {
	for _, f := range m.Header {
		if f.Head == h {
			return f
		}
	}
	return nil
}

func newLayoutField(d *FieldDef) (*field.Field, error) {
	if d.Name == "" {
		return nil, errors.Schemaf("layout field without a name")
	}
	t, err := field.ParseType(d.Type)
	if err != nil {
		return nil, errors.Schemaf("%s: %s", d.Name, err)
	}
	f := field.New(d.Name, t)
	f.SourceVar = d.SourceVar
	f.SourceKey = d.SourceKey
	f.Algorithms = append([]string(nil), d.Algorithms...)
	if d.ArrayLength != 0 {
		f.ArrayLength = d.ArrayLength
	}
	if d.Max != nil {
		f.Max, f.HasMax = *d.Max, true
	}
	if d.Min != nil {
		f.Min, f.HasMin = *d.Min, true
	}
	if d.MaxDelta != nil {
		f.MaxDelta, f.HasMaxDelta = *d.MaxDelta, true
	}
	f.Precision = d.Precision
	f.MaxLength = d.MaxLength
	f.NumBytes = d.NumBytes
	f.Enums = append([]string(nil), d.Values...)
	f.StaticValue = d.Value
	return f, nil
}

// NewMessage builds and initializes the fields of def. algorithms
// validates every algorithm reference; nil skips validation.
func NewMessage(def *Definition, algorithms *algorithm.Registry) (*Message, error) {
	if def.Name == "" {
		return nil, errors.Schemaf("message definition without a name")
	}
	m := &Message{
		Name:             def.Name,
		ID:               def.ID,
		Size:             def.Size,
		Trigger:          strings.ToLower(def.Trigger),
		TriggerVarName:   def.TriggerVar,
		TriggerMandatory: def.TriggerMandatory,
		TriggerTime:      def.TriggerTime,
		InVar:            def.InVar,
		OutVar:           def.OutVar,
		Header:           field.NewHeader(),
	}
	if m.Trigger == "" && m.TriggerVarName != "" {
		m.Trigger = TriggerPublish
	}
	switch m.Trigger {
	case TriggerPublish:
		if m.TriggerVarName == "" {
			return nil, errors.Schemaf("%s: publish trigger without trigger_var", m.Name)
		}
	case TriggerTime:
		if m.TriggerTime <= 0 {
			return nil, errors.Schemaf("%s: time trigger requires a positive trigger_time", m.Name)
		}
	default:
		return nil, errors.Schemaf("%s: unknown trigger %q", m.Name, def.Trigger)
	}

	for _, h := range def.Header {
		part, ok := field.ParseHeaderPart(h.Part)
		if !ok {
			return nil, errors.Schemaf("%s: unknown header part %q", m.Name, h.Part)
		}
		f := m.HeaderField(part)
		if h.Name != "" {
			f.Name = h.Name
		}
		if h.SourceVar != "" {
			f.SourceVar = h.SourceVar
		}
		f.SourceKey = h.SourceKey
		f.Algorithms = append([]string(nil), h.Algorithms...)
	}

	seen := make(map[string]bool)
	for _, f := range m.Header {
		seen[f.Name] = true
	}
	for i := range def.Layout {
		f, err := newLayoutField(&def.Layout[i])
		if err != nil {
			return nil, errors.Schemaf("%s: %s", m.Name, err)
		}
		if seen[f.Name] {
			return nil, errors.Schemaf("%s: field name %s used twice", m.Name, f.Name)
		}
		seen[f.Name] = true
		m.Layout = append(m.Layout, f)
	}

	if err := m.preprocess(def, algorithms); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Message) preprocess(def *Definition, algorithms *algorithm.Registry) error {
	var validate func(string) error
	if algorithms != nil {
		validate = algorithms.Validator(m)
	}
	for _, f := range m.Fields() {
		if err := f.Initialize(m, validate); err != nil {
			return errors.Schemaf("%s: %s", m.Name, err)
		}
	}
	for i := range def.Publish {
		p, err := m.newPublish(&def.Publish[i], validate)
		if err != nil {
			return errors.Schemaf("%s: %s", m.Name, err)
		}
		m.Publishes = append(m.Publishes, p)
	}

	upper := strings.ToUpper(m.Name)
	if m.InVar == "" {
		m.InVar = "IN_" + upper + "_HEX_" + strconv.Itoa(m.Size) + "B"
	}
	if m.OutVar == "" {
		m.OutVar = "OUT_" + upper + "_HEX_" + strconv.Itoa(m.Size) + "B"
	}
	return nil
}

func (m *Message) newPublish(d *PublishDef, validate func(string) error) (*Publish, error) {
	p := &Publish{Var: d.Var, Format: d.Format}
	if p.Var == "" {
		return nil, errors.Schemaf("publish without a var")
	}
	named := make(map[string]bool)
	for j, name := range d.Names {
		f, ok := m.Field(name)
		if !ok {
			return nil, errors.Schemaf("no such name %q found in layout or header", name)
		}
		var algs []string
		if j < len(d.Algorithms) {
			algs = append(algs, d.Algorithms[j]...)
		}
		if validate != nil {
			for _, a := range algs {
				if err := validate(a); err != nil {
					return nil, err
				}
			}
		}
		p.Fields = append(p.Fields, f)
		p.Algorithms = append(p.Algorithms, algs)
		named[name] = true
	}
	if d.All {
		for _, f := range m.Header {
			if !strings.HasPrefix(f.Name, "_") && !named[f.Name] {
				p.Fields = append(p.Fields, f)
				p.Algorithms = append(p.Algorithms, nil)
			}
		}
		for _, f := range m.Layout {
			if !named[f.Name] {
				p.Fields = append(p.Fields, f)
				p.Algorithms = append(p.Algorithms, nil)
			}
		}
	}
	if p.Format == "" {
		p.Format = p.defaultFormat()
	}
	return p, nil
}

// defaultFormat lists every published value as name=%k%, with arrays in
// braces. A field published twice is named after its algorithms.
func (p *Publish) defaultFormat() string {
	var b strings.Builder
	count := 0
	m := len(p.Fields)
	for j, f := range p.Fields {
		if m > 1 {
			if j > 0 {
				b.WriteString(",")
			}
			if algs := p.Algorithms[j]; len(algs) > 0 && p.uses(f) > 1 {
				b.WriteString(strings.Join(algs, "") + "(" + f.Name + ")=")
			} else {
				b.WriteString(f.Name + "=")
			}
		}
		n := f.ArrayLength
		for i := 0; i < n; i++ {
			count++
			if m > 1 && n > 1 && i == 0 {
				b.WriteString("{")
			}
			if i > 0 {
				b.WriteString(",")
			}
			fmt.Fprintf(&b, "%%%d%%", count)
			if m > 1 && n > 1 && i+1 == n {
				b.WriteString("}")
			}
		}
	}
	return b.String()
}

func (p *Publish) uses(f *field.Field) int {
	n := 0
	for _, g := range p.Fields {
		if g == f {
			n++
		}
	}
	return n
}

// ReadBusVars fills vals from a snapshot of bus variables. A string is
// searched for "<key>=" first, where key is the source key or the field
// name; array fields split their text on commas.
func (m *Message) ReadBusVars(vals field.Values, snapshot map[string][]value.Value) {
	for _, f := range m.Fields() {
		if f.SourceVar == "" {
			continue
		}
		in, ok := snapshot[f.SourceVar]
		if !ok {
			continue
		}
		key := f.SourceKey
		if key == "" {
			key = f.Name
		}
		var out []value.Value
		for _, v := range in {
			if v.Kind() == value.KindString {
				if piece, found := translate.KeyValue(v.AsString(), key); found {
					v = value.String(piece)
				}
			}
			if !f.Repeated() {
				out = []value.Value{v}
				continue
			}
			for _, s := range strings.Split(v.AsString(), ",") {
				out = append(out, value.String(s))
			}
		}
		vals[f.Name] = out
	}
}

func (m *Message) String() string {
	var buf bytes.Buffer
	buf.WriteString("///////////////////////////////////////////////////////////\n")
	fmt.Fprintf(&buf, "// %s (id = %d) //\n", m.Name, m.ID)
	fmt.Fprintf(&buf, "//\tmax size: %d bytes\n", m.Size)
	switch m.Trigger {
	case TriggerPublish:
		fmt.Fprintf(&buf, "//\ttrigger: on publish of %s", m.TriggerVarName)
		if m.TriggerMandatory != "" {
			fmt.Fprintf(&buf, " containing %q", m.TriggerMandatory)
		}
		buf.WriteString("\n")
	case TriggerTime:
		fmt.Fprintf(&buf, "//\ttrigger: every %vs\n", m.TriggerTime)
	}
	fmt.Fprintf(&buf, "//\tincoming: %s, outgoing: %s\n", m.InVar, m.OutVar)
	buf.WriteString("header:\n")
	for _, f := range m.Header {
		buf.WriteString(f.String())
	}
	buf.WriteString("layout:\n")
	for _, f := range m.Layout {
		buf.WriteString(f.String())
	}
	for i, p := range m.Publishes {
		fmt.Fprintf(&buf, "publish %d: %s = %q\n", i, p.Var, p.Format)
	}
	return buf.String()
}

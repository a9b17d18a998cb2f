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
	"math"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/golang/glog"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/descriptorpb"

	"acomms/pkg/algorithm"
	"acomms/pkg/errors"
	"acomms/pkg/field"
	"acomms/pkg/logging"
	"acomms/pkg/schema"
	"acomms/pkg/translate"
	"acomms/pkg/util"
	"acomms/pkg/value"
)

const schemaImports = "import \"dccl/protobuf/option_extensions.proto\";\n" +
	"import \"goby/common/protobuf/option_extensions.proto\";\n"

// Result is what one converted definition file produces.
type Result struct {
	SchemaText string
	File       *descriptorpb.FileDescriptorProto
	Entries    []*translate.Entry
	Messages   []*Message
}

// Codec holds the converted messages and marshals values through the
// schemas generated for them.
type Codec struct {
	mu         sync.RWMutex
	modemID    uint32
	algorithms *algorithm.Registry
	schemas    *schema.Registry
	byName     map[string]*Message
	byID       map[uint32]*Message
	now        func() time.Time
}

func NewCodec(modemID uint32, schemas *schema.Registry, algorithms *algorithm.Registry) *Codec {
	return &Codec{
		modemID:    modemID,
		algorithms: algorithms,
		schemas:    schemas,
		byName:     make(map[string]*Message),
		byID:       make(map[uint32]*Message),
		now:        time.Now,
	}
}

// SetClock replaces the time source used for the time header default.
func (c *Codec) SetClock(now func() time.Time) {
	c.now = now
}

func (c *Codec) Message(name string) (*Message, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	m, ok := c.byName[name]
	return m, ok
}

func (c *Codec) MessageByID(id uint32) (*Message, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	m, ok := c.byID[id]
	return m, ok
}

// Names lists the loaded messages in id order.
func (c *Codec) Names() []string {
	c.mu.RLock()
	ids := make([]int, 0, len(c.byID))
	for id := range c.byID {
		ids = append(ids, int(id))
	}
	c.mu.RUnlock()
	sort.Ints(ids)
	names := make([]string, 0, len(ids))
	for _, id := range ids {
		if m, ok := c.MessageByID(uint32(id)); ok {
			names = append(names, m.Name)
		}
	}
	return names
}

// ConvertFile loads and converts a definition file. The schema takes the
// file stem as its name.
func (c *Codec) ConvertFile(path string) (*Result, error) {
	f, err := LoadFile(path)
	if err != nil {
		return nil, err
	}
	base := filepath.Base(path)
	return c.Convert(strings.TrimSuffix(base, filepath.Ext(base))+".proto", f)
}

// Convert builds the messages of f, writes their schema text and the
// matching descriptors, registers them and derives a translator entry per
// message. Nothing is kept when any step fails.
func (c *Codec) Convert(protoPath string, f *File) (*Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	res := &Result{}
	names := make(map[string]*Message)
	ids := make(map[uint32]*Message)
	for i := range f.Messages {
		m, err := NewMessage(&f.Messages[i], c.algorithms)
		if err != nil {
			return nil, err
		}
		if prev, ok := ids[m.ID]; ok {
			return nil, errors.Schemaf("duplicate variable id %d specified for %s and %s", m.ID, m.Name, prev.Name)
		}
		if prev, ok := c.byID[m.ID]; ok {
			return nil, errors.Schemaf("duplicate variable id %d specified for %s and %s", m.ID, m.Name, prev.Name)
		}
		if _, ok := names[m.Name]; ok {
			return nil, errors.Schemaf("duplicate message name %s", m.Name)
		}
		if _, ok := c.byName[m.Name]; ok {
			return nil, errors.Schemaf("duplicate message name %s", m.Name)
		}
		names[m.Name] = m
		ids[m.ID] = m
		res.Messages = append(res.Messages, m)
	}

	var text bytes.Buffer
	text.WriteString(schemaImports)
	fb := schema.NewFileBuilder(protoPath, "")
	for _, m := range res.Messages {
		dp, err := m.writeSchema(&text)
		if err != nil {
			return nil, err
		}
		fb.AddDescriptor(dp)
	}
	res.SchemaText = text.String()
	res.File = fb.Build()
	for _, m := range res.Messages {
		e, err := m.entry()
		if err != nil {
			return nil, err
		}
		res.Entries = append(res.Entries, e)
	}
	if _, err := c.schemas.RegisterFile(res.File); err != nil {
		return nil, err
	}

	for _, m := range res.Messages {
		c.byName[m.Name] = m
		c.byID[m.ID] = m
		glog.V(logging.LevelInfo).Infof("converted %s (id %d) into %s", m.Name, m.ID, protoPath)
		if glog.V(logging.LevelVerbose) {
			glog.Info(m.String())
		}
	}
	return res, nil
}

// writeSchema numbers the fields and writes the message block, returning
// the descriptor that matches the text.
func (m *Message) writeSchema(w *bytes.Buffer) (*descriptorpb.DescriptorProto, error) {
	fmt.Fprintf(w, "message %s { \n", m.Name)
	fmt.Fprintf(w, "\toption (dccl.msg).id = %d;\n", m.ID)
	fmt.Fprintf(w, "\toption (dccl.msg).max_bytes = %d;\n", m.Size)
	dp := &descriptorpb.DescriptorProto{Name: proto.String(m.Name)}
	for i, f := range m.Fields() {
		if err := f.WriteSchema(w, i+1); err != nil {
			return nil, err
		}
		dp.Field = append(dp.Field, f.Descriptor(m.Name))
		if ed := f.EnumDescriptor(); ed != nil {
			dp.EnumType = append(dp.EnumType, ed)
		}
	}
	w.WriteString("} \n")
	return dp, nil
}

var placeholderRe = regexp.MustCompile(`%([0-9]+)`)

// entry derives the translator entry: one create parser per source
// variable and one format serializer per publish.
func (m *Message) entry() (*translate.Entry, error) {
	e := &translate.Entry{TypeName: m.Name, UseShortEnum: true}
	switch m.Trigger {
	case TriggerTime:
		e.Trigger = translate.Trigger{Type: translate.TriggerTime, Period: util.Duration{Duration: util.Seconds(m.TriggerTime)}}
	case TriggerPublish:
		e.Trigger = translate.Trigger{Type: translate.TriggerPublish, Var: m.TriggerVarName, MandatoryContent: m.TriggerMandatory}
	}

	parsers := make(map[string]int)
	seq := make(map[string]int)
	maxSeq := 0
	for _, f := range m.Fields() {
		seq[f.Name] = f.SequenceNumber
		if f.SequenceNumber > maxSeq {
			maxSeq = f.SequenceNumber
		}
		if err := fillCreate(e, parsers, f); err != nil {
			return nil, err
		}
	}
	maxSeq = ((maxSeq + 100) / 100) * 100

	for _, p := range m.Publishes {
		s := translate.PublishSerializer{Technique: translate.TechniqueFormat}
		renumber := make(map[string]string)
		k := 1
		for j, f := range p.Fields {
			for i := 0; i < f.ArrayLength; i++ {
				target := seq[f.Name]
				for _, alg := range p.Algorithms[j] {
					spec := algorithm.ParseSpec(alg)
					a := translate.PublishAlgorithm{
						Name:               spec.Name,
						PrimaryField:       int32(seq[f.Name]),
						OutputVirtualField: int32(maxSeq),
					}
					for _, ref := range spec.Refs {
						a.ReferenceFields = append(a.ReferenceFields, int32(seq[ref]))
					}
					s.Algorithms = append(s.Algorithms, a)
				}
				if len(p.Algorithms[j]) > 0 {
					target = maxSeq
					maxSeq++
				}
				idx := strconv.Itoa(target)
				if f.ArrayLength > 1 {
					idx += "." + strconv.Itoa(i)
				}
				renumber[strconv.Itoa(k)] = idx
				k++
			}
		}
		replace := func(text string) string {
			return placeholderRe.ReplaceAllStringFunc(text, func(ph string) string {
				if to, ok := renumber[ph[1:]]; ok {
					return "%" + to
				}
				return ph
			})
		}
		s.Var = replace(p.Var)
		s.Format = replace(p.Format)
		e.Publish = append(e.Publish, s)
	}
	return e, nil
}

// fillCreate binds f to the parser of its source variable. The first field
// on a variable gets a format parser; a second one turns that parser into
// key=value.
func fillCreate(e *translate.Entry, parsers map[string]int, f *field.Field) error {
	if idx, ok := parsers[f.SourceVar]; ok {
		e.Create[idx].Technique = translate.TechniqueKeyValue
		e.Create[idx].Format = ""
	} else if f.SourceVar != "" {
		parsers[f.SourceVar] = len(e.Create)
		e.Create = append(e.Create, translate.CreateParser{
			Var:       f.SourceVar,
			Technique: translate.TechniqueFormat,
			Format:    "%" + strconv.Itoa(f.SequenceNumber) + "%",
		})
	}
	for _, alg := range f.Algorithms {
		if f.SourceVar == "" {
			return errors.Schemaf("algorithm %s on %s has no source variable to run on", alg, f.Name)
		}
		if strings.Contains(alg, ":") {
			return errors.Schemaf("algorithms with reference fields cannot run on create: %s used in variable %s", alg, f.Name)
		}
		idx := parsers[f.SourceVar]
		e.Create[idx].Algorithms = append(e.Create[idx].Algorithms, translate.CreateAlgorithm{
			Name:         alg,
			PrimaryField: int32(f.SequenceNumber),
		})
	}
	return nil
}

func (c *Codec) lookup(name string) (*Message, error) {
	m, ok := c.Message(name)
	if !ok {
		return nil, errors.Configf("message %s is not loaded", name)
	}
	return m, nil
}

// Encode fills the generated message name from vals. Header defaults are
// applied first, then each element runs its algorithm chain and PreEncode.
// vals is not modified.
func (c *Codec) Encode(name string, vals field.Values) (proto.Message, error) {
	m, err := c.lookup(name)
	if err != nil {
		return nil, err
	}
	in := make(field.Values, len(vals))
	for k, vs := range vals {
		in[k] = append([]value.Value(nil), vs...)
	}
	now := c.now()
	for _, f := range m.Fields() {
		f.SetDefaults(in, c.modemID, m.ID, now)
	}

	out := make(field.Values, len(in))
	for _, f := range m.Fields() {
		vs := make([]value.Value, len(in[f.Name]))
		for i, v := range in[f.Name] {
			if c.algorithms != nil {
				for _, alg := range f.Algorithms {
					v = c.algorithms.Apply(v, i, alg, in)
				}
			}
			vs[i] = f.PreEncode(v)
		}
		out[f.Name] = vs
	}

	msg, err := c.schemas.NewMessage(name)
	if err != nil {
		return nil, err
	}
	r := msg.ProtoReflect()
	fields := r.Descriptor().Fields()
	for _, f := range m.Fields() {
		fd := fields.ByName(protoreflect.Name(f.Name))
		if fd == nil {
			return nil, errors.Schemaf("%s has no field %s", name, f.Name)
		}
		for _, v := range out[f.Name] {
			if v.Empty() {
				continue
			}
			pv, ok, err := toProto(f, fd, v)
			if err != nil {
				return nil, err
			}
			if !ok {
				continue
			}
			if fd.IsList() {
				r.Mutable(fd).List().Append(pv)
			} else {
				r.Set(fd, pv)
			}
		}
	}
	return msg, nil
}

func toProto(f *field.Field, fd protoreflect.FieldDescriptor, v value.Value) (protoreflect.Value, bool, error) {
	switch fd.Kind() {
	case protoreflect.Int32Kind:
		l, ok := v.GetInt()
		if !ok || l > math.MaxInt32 || l < math.MinInt32 {
			glog.Warningf("%s: cannot encode %s as int32, skipped", f.Name, v)
			return protoreflect.Value{}, false, nil
		}
		return protoreflect.ValueOfInt32(int32(l)), true, nil
	case protoreflect.DoubleKind:
		// PreEncode renders the time header as ISO text.
		if f.Head == field.HeadTime {
			v = f.PostDecode(v)
		}
		d, ok := v.GetDouble()
		if !ok {
			glog.Warningf("%s: cannot encode %s as double, skipped", f.Name, v)
			return protoreflect.Value{}, false, nil
		}
		return protoreflect.ValueOfFloat64(d), true, nil
	case protoreflect.BoolKind:
		b, ok := v.GetBool()
		if !ok {
			glog.Warningf("%s: cannot encode %s as bool, skipped", f.Name, v)
			return protoreflect.Value{}, false, nil
		}
		return protoreflect.ValueOfBool(b), true, nil
	case protoreflect.StringKind:
		return protoreflect.ValueOfString(v.AsString()), true, nil
	case protoreflect.BytesKind:
		b, err := util.HexDecode(v.AsString())
		if err != nil {
			return protoreflect.Value{}, false, errors.Translatef("%s: %q is not hex", f.Name, v.AsString())
		}
		return protoreflect.ValueOfBytes(b), true, nil
	case protoreflect.EnumKind:
		ev := fd.Enum().Values().ByName(protoreflect.Name(f.FullEnum(f.ShortEnum(v.AsString()))))
		if ev == nil {
			glog.Warningf("%s: invalid enum value %q, skipped", f.Name, v.AsString())
			return protoreflect.Value{}, false, nil
		}
		return protoreflect.ValueOfEnum(ev.Number()), true, nil
	}
	return protoreflect.Value{}, false, errors.Schemaf("%s: unsupported kind %s", f.Name, fd.Kind())
}

// Decode extracts the field values of a generated message. Unset scalar
// fields decode to one empty value.
func (c *Codec) Decode(msg proto.Message) (string, field.Values, error) {
	r := msg.ProtoReflect()
	name := string(r.Descriptor().FullName())
	m, err := c.lookup(name)
	if err != nil {
		return "", nil, err
	}
	vals := make(field.Values)
	fields := r.Descriptor().Fields()
	for _, f := range m.Fields() {
		fd := fields.ByName(protoreflect.Name(f.Name))
		if fd == nil {
			return "", nil, errors.Schemaf("%s has no field %s", name, f.Name)
		}
		if fd.IsList() {
			list := r.Get(fd).List()
			vs := make([]value.Value, list.Len())
			for i := range vs {
				vs[i] = f.PostDecode(fromProto(f, fd, list.Get(i)))
			}
			vals[f.Name] = vs
			continue
		}
		if !r.Has(fd) {
			vals[f.Name] = []value.Value{{}}
			continue
		}
		vals[f.Name] = []value.Value{f.PostDecode(fromProto(f, fd, r.Get(fd)))}
	}
	return name, vals, nil
}

func fromProto(f *field.Field, fd protoreflect.FieldDescriptor, v protoreflect.Value) value.Value {
	switch fd.Kind() {
	case protoreflect.Int32Kind:
		return value.Int(v.Int())
	case protoreflect.DoubleKind:
		if f.Type == field.TypeFloat && f.Head != field.HeadTime {
			return value.DoubleWithPrecision(v.Float(), f.Precision)
		}
		return value.Double(v.Float())
	case protoreflect.BoolKind:
		return value.Bool(v.Bool())
	case protoreflect.StringKind:
		return value.String(v.String())
	case protoreflect.BytesKind:
		return value.String(util.HexEncode(v.Bytes()))
	case protoreflect.EnumKind:
		if ev := fd.Enum().Values().ByNumber(v.Enum()); ev != nil {
			return value.String(string(ev.Name()))
		}
	}
	return value.Value{}
}

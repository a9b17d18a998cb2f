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

// Package field describes the typed, constrained fields of a compact
// message, including the fixed header fields every message carries.
package field

import (
	"bytes"
	"fmt"
	"math"
	"strings"
	"time"

	"acomms/pkg/errors"
	"acomms/pkg/value"
)

type Type uint8

const (
	TypeInt Type = iota + 1
	TypeFloat
	TypeBool
	TypeString
	TypeHex
	TypeEnum
	TypeStatic
)

var typeNames = map[Type]string{
	TypeInt:    "int",
	TypeFloat:  "float",
	TypeBool:   "bool",
	TypeString: "string",
	TypeHex:    "hex",
	TypeEnum:   "enum",
	TypeStatic: "static",
}

func (t Type) String() string {
	if s, ok := typeNames[t]; ok {
		return s
	}
	return fmt.Sprintf("type(%d)", uint8(t))
}

func ParseType(s string) (Type, error) {
	ls := strings.ToLower(strings.TrimSpace(s))
	for t, n := range typeNames {
		if n == ls {
			return t, nil
		}
	}
	return 0, errors.Schemaf("unknown field type %q", s)
}

// Values maps a field name to its elements. Scalars hold one element.
type Values map[string][]value.Value

// Owner is the message a field belongs to.
type Owner interface {
	TriggerVar() string
}

var ErrAlreadyInitialized = errors.NewError("field already initialized", errors.KErrSchema)

type Field struct {
	Name           string
	Type           Type
	Head           HeaderPart
	SequenceNumber int
	ArrayLength    int

	// bus binding
	SourceVar  string
	SourceKey  string
	Algorithms []string

	Max         float64
	Min         float64
	HasMax      bool
	HasMin      bool
	Precision   int
	MaxDelta    float64
	HasMaxDelta bool
	MaxLength   int
	NumBytes    int
	Enums       []string
	StaticValue string

	initialized bool
}

// New returns a body field of type t with an unassigned sequence number.
func New(name string, t Type) *Field {
	return &Field{
		Name:           name,
		Type:           t,
		SequenceNumber: -1,
		ArrayLength:    1,
	}
}

func (f *Field) IsHeader() bool {
	return f.Head != HeadNone
}

func (f *Field) Repeated() bool {
	return f.ArrayLength != 1
}

func (f *Field) Initialized() bool {
	return f.initialized
}

// Initialize resolves the source variable, validates the algorithm chain
// and normalizes constraints. It may run once per field.
func (f *Field) Initialize(owner Owner, validate func(alg string) error) error {
	if f.initialized {
		return fmt.Errorf("%s: %w", f.Name, ErrAlreadyInitialized)
	}
	if f.ArrayLength < 1 {
		return errors.Schemaf("%s: array length must be at least 1", f.Name)
	}
	if f.SourceVar == "" && owner != nil {
		f.SourceVar = owner.TriggerVar()
	}
	if f.IsHeader() && f.Name == f.Head.DefaultName() {
		f.SourceVar = ""
	}
	if validate != nil {
		for _, alg := range f.Algorithms {
			if err := validate(alg); err != nil {
				return err
			}
		}
	}

	switch f.Type {
	case TypeInt, TypeFloat:
		if f.HasMax && f.HasMin && f.Max < f.Min {
			f.Max, f.Min = f.Min, f.Max
		}
		if f.Type == TypeInt {
			f.Precision = 0
		}
		if f.HasMaxDelta {
			f.MaxDelta = math.Abs(f.MaxDelta)
		} else if f.HasMax && f.HasMin {
			f.MaxDelta = (f.Max - f.Min) / 10
		}
	case TypeEnum:
		if len(f.Enums) == 0 {
			return errors.Schemaf("%s: enum requires at least one value", f.Name)
		}
	case TypeString:
		if f.MaxLength <= 0 {
			return errors.Schemaf("%s: string requires a positive max_length", f.Name)
		}
	case TypeHex:
		if f.NumBytes <= 0 {
			return errors.Schemaf("%s: hex requires a positive num_bytes", f.Name)
		}
	}
	f.initialized = true
	return nil
}

// SetDefaults sizes vals[f.Name] to the array length and fills in the
// defaults for elements that need one.
func (f *Field) SetDefaults(vals Values, modemID uint32, messageID uint32, now time.Time) {
	vs := vals[f.Name]
	if len(vs) > f.ArrayLength {
		vs = vs[:f.ArrayLength]
	}
	for len(vs) < f.ArrayLength {
		vs = append(vs, value.Value{})
	}
	for i := range vs {
		vs[i] = f.defaultFor(vs[i], modemID, messageID, now)
	}
	vals[f.Name] = vs
}

func (f *Field) defaultFor(v value.Value, modemID uint32, messageID uint32, now time.Time) value.Value {
	switch f.Head {
	case HeadCCLID:
		return value.Int(CCLHeaderID)
	case HeadDCCLID:
		if v.Empty() {
			return value.Int(int64(messageID))
		}
	case HeadTime:
		if _, ok := v.GetDouble(); v.Empty() || !ok {
			return value.Double(UnixSeconds(now))
		}
	case HeadSrcID:
		if v.Empty() {
			return value.Int(int64(modemID))
		}
	case HeadDestID:
		if v.Empty() {
			return value.Int(BroadcastID)
		}
	case HeadMultiMessageFlag, HeadBroadcastFlag, HeadUnused:
		if v.Empty() {
			return value.Int(0)
		}
	case HeadNone:
		if f.Type == TypeStatic {
			return value.String(f.StaticValue)
		}
	}
	return v
}

// PreEncode transforms a value before it is assigned to the schema message.
func (f *Field) PreEncode(v value.Value) value.Value {
	if v.Empty() {
		return v
	}
	if f.Head == HeadTime {
		if d, ok := v.GetDouble(); ok {
			return value.String(FormatTime(d))
		}
		return v
	}
	switch f.Type {
	case TypeFloat:
		if d, ok := v.GetDouble(); ok {
			return value.DoubleWithPrecision(value.Round(d, f.Precision), f.Precision)
		}
	case TypeInt:
		if d, ok := v.GetDouble(); ok {
			return value.Int(int64(value.Round(d, 0)))
		}
	}
	return v
}

// PostDecode is the inverse of PreEncode, applied after extraction.
func (f *Field) PostDecode(v value.Value) value.Value {
	if v.Empty() {
		return v
	}
	if f.Head == HeadTime {
		if s, ok := v.GetString(); ok && v.Kind() == value.KindString {
			if d, err := ParseTime(s); err == nil {
				return value.Double(d)
			}
		}
		return v
	}
	if f.Type == TypeEnum {
		return value.String(f.ShortEnum(v.AsString()))
	}
	return v
}

// EnumPrefix is prepended to every enum symbol in the schema.
func (f *Field) EnumPrefix() string {
	return strings.ToUpper(f.Name) + "_"
}

func (f *Field) FullEnum(sym string) string {
	return f.EnumPrefix() + sym
}

func (f *Field) ShortEnum(full string) string {
	return strings.TrimPrefix(full, f.EnumPrefix())
}

// ValidEnum reports whether sym, short or prefixed, is a declared symbol.
func (f *Field) ValidEnum(sym string) bool {
	short := f.ShortEnum(sym)
	for _, e := range f.Enums {
		if e == short {
			return true
		}
	}
	return false
}

func (f *Field) String() string {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "\t%s (%s):\n", f.Name, f.Type)
	if len(f.Algorithms) > 0 {
		fmt.Fprintf(&buf, "\t\talgorithm(s): %s\n", strings.Join(f.Algorithms, ","))
	}
	if f.SourceVar != "" && f.Type != TypeStatic {
		fmt.Fprintf(&buf, "\t\tsource: {%s", f.SourceVar)
		if f.SourceKey != "" {
			fmt.Fprintf(&buf, ": %s", f.SourceKey)
		}
		buf.WriteString("}\n")
	}
	if f.ArrayLength > 1 {
		fmt.Fprintf(&buf, "\t\tarray length: %d\n", f.ArrayLength)
	}
	switch f.Type {
	case TypeInt, TypeFloat:
		fmt.Fprintf(&buf, "\t\t[min, max] = [%v,%v]\n", f.Min, f.Max)
		if f.Type == TypeFloat {
			fmt.Fprintf(&buf, "\t\tprecision: {%d}\n", f.Precision)
		}
		if f.HasMaxDelta {
			fmt.Fprintf(&buf, "\t\tmax_delta: {%v}\n", f.MaxDelta)
		}
	case TypeString:
		fmt.Fprintf(&buf, "\t\tmax_length: {%d}\n", f.MaxLength)
	case TypeHex:
		fmt.Fprintf(&buf, "\t\tnum_bytes: {%d}\n", f.NumBytes)
	case TypeEnum:
		fmt.Fprintf(&buf, "\t\tvalues: {%s}\n", strings.Join(f.Enums, ","))
	case TypeStatic:
		fmt.Fprintf(&buf, "\t\tvalue: \"%s\"\n", f.StaticValue)
	}
	if f.Head != HeadNone {
		fmt.Fprintf(&buf, "\t\tsize [bits]: [%d]\n", f.Head.Bits())
	}
	return buf.String()
}

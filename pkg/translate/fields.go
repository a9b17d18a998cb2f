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

package translate

import (
	"math"
	"strconv"
	"strings"

	"github.com/golang/glog"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protoreflect"

	"acomms/pkg/errors"
	"acomms/pkg/logging"
	"acomms/pkg/util"
	"acomms/pkg/value"
)

// Precision for doubles and floats rendered as text.
const (
	doubleDigits = 15
	floatDigits  = 6
)

func formatFloat(f float64, kind protoreflect.Kind) string {
	if kind == protoreflect.FloatKind {
		return strconv.FormatFloat(f, 'g', floatDigits, 32)
	}
	return strconv.FormatFloat(f, 'g', doubleDigits, 64)
}

func stripEnumName(sym string, fieldName string) string {
	prefix := fieldName + "_"
	if len(sym) >= len(prefix) && strings.EqualFold(sym[:len(prefix)], prefix) {
		return sym[len(prefix):]
	}
	return sym
}

func addEnumName(sym string, fieldName string) string {
	return strings.ToUpper(fieldName) + "_" + sym
}

// formatScalar renders one value of fd. Embedded messages are written as
// the hex of their encoding.
func formatScalar(fd protoreflect.FieldDescriptor, v protoreflect.Value, shortEnum bool) string {
	switch fd.Kind() {
	case protoreflect.MessageKind, protoreflect.GroupKind:
		b, err := proto.MarshalOptions{Deterministic: true}.Marshal(v.Message().Interface())
		if err != nil {
			glog.Warningf("cannot encode embedded %s: %s", fd.FullName(), err)
			return ""
		}
		return util.HexEncode(b)
	case protoreflect.BoolKind:
		return strconv.FormatBool(v.Bool())
	case protoreflect.Int32Kind, protoreflect.Sint32Kind, protoreflect.Sfixed32Kind,
		protoreflect.Int64Kind, protoreflect.Sint64Kind, protoreflect.Sfixed64Kind:
		return strconv.FormatInt(v.Int(), 10)
	case protoreflect.Uint32Kind, protoreflect.Fixed32Kind,
		protoreflect.Uint64Kind, protoreflect.Fixed64Kind:
		return strconv.FormatUint(v.Uint(), 10)
	case protoreflect.FloatKind, protoreflect.DoubleKind:
		return formatFloat(v.Float(), fd.Kind())
	case protoreflect.StringKind:
		return v.String()
	case protoreflect.BytesKind:
		return util.HexEncode(v.Bytes())
	case protoreflect.EnumKind:
		ev := fd.Enum().Values().ByNumber(v.Enum())
		if ev == nil {
			return strconv.Itoa(int(v.Enum()))
		}
		if shortEnum {
			return stripEnumName(string(ev.Name()), string(fd.Name()))
		}
		return string(ev.Name())
	}
	return ""
}

// fieldString renders a singular field, or a repeated one joined by delim.
func fieldString(m protoreflect.Message, fd protoreflect.FieldDescriptor, delim string, shortEnum bool) string {
	if !fd.IsList() {
		return formatScalar(fd, m.Get(fd), shortEnum)
	}
	list := m.Get(fd).List()
	parts := make([]string, list.Len())
	for i := range parts {
		parts[i] = formatScalar(fd, list.Get(i), shortEnum)
	}
	return strings.Join(parts, delim)
}

func has(m protoreflect.Message, fd protoreflect.FieldDescriptor) bool {
	if fd.IsList() {
		return m.Get(fd).List().Len() > 0
	}
	return m.Has(fd)
}

// parseScalar converts s to a value of fd. ok is false when s names an enum
// value fd does not have; such values are skipped, like unknown symbols on
// the wire.
func parseScalar(m protoreflect.Message, fd protoreflect.FieldDescriptor, s string, shortEnum bool) (v protoreflect.Value, ok bool, err error) {
	bad := func() (protoreflect.Value, bool, error) {
		return protoreflect.Value{}, false, errors.Translatef("cannot read %q as %s for field %s", s, fd.Kind(), fd.FullName())
	}
	switch fd.Kind() {
	case protoreflect.MessageKind, protoreflect.GroupKind:
		b, err := util.HexDecode(s)
		if err != nil {
			return bad()
		}
		var sub protoreflect.Message
		if fd.IsList() {
			sub = m.Mutable(fd).List().NewElement().Message()
		} else {
			sub = m.NewField(fd).Message()
		}
		if err = proto.Unmarshal(b, sub.Interface()); err != nil {
			return bad()
		}
		return protoreflect.ValueOfMessage(sub), true, nil
	case protoreflect.BoolKind:
		b, ok := value.String(s).GetBool()
		if !ok {
			return bad()
		}
		return protoreflect.ValueOfBool(b), true, nil
	case protoreflect.Int32Kind, protoreflect.Sint32Kind, protoreflect.Sfixed32Kind:
		l, ok := parseInt(s)
		if !ok || l > math.MaxInt32 || l < math.MinInt32 {
			return bad()
		}
		return protoreflect.ValueOfInt32(int32(l)), true, nil
	case protoreflect.Int64Kind, protoreflect.Sint64Kind, protoreflect.Sfixed64Kind:
		l, ok := parseInt(s)
		if !ok {
			return bad()
		}
		return protoreflect.ValueOfInt64(l), true, nil
	case protoreflect.Uint32Kind, protoreflect.Fixed32Kind:
		l, ok := parseInt(s)
		if !ok || l < 0 || l > math.MaxUint32 {
			return bad()
		}
		return protoreflect.ValueOfUint32(uint32(l)), true, nil
	case protoreflect.Uint64Kind, protoreflect.Fixed64Kind:
		u, err := strconv.ParseUint(strings.TrimSpace(s), 10, 64)
		if err != nil {
			l, ok := value.String(s).GetInt()
			if !ok || l < 0 {
				return bad()
			}
			u = uint64(l)
		}
		return protoreflect.ValueOfUint64(u), true, nil
	case protoreflect.FloatKind:
		d, ok := value.String(s).GetDouble()
		if !ok {
			return bad()
		}
		return protoreflect.ValueOfFloat32(float32(d)), true, nil
	case protoreflect.DoubleKind:
		d, ok := value.String(s).GetDouble()
		if !ok {
			return bad()
		}
		return protoreflect.ValueOfFloat64(d), true, nil
	case protoreflect.StringKind:
		return protoreflect.ValueOfString(s), true, nil
	case protoreflect.BytesKind:
		b, err := util.HexDecode(s)
		if err != nil {
			return bad()
		}
		return protoreflect.ValueOfBytes(b), true, nil
	case protoreflect.EnumKind:
		sym := s
		if shortEnum {
			sym = addEnumName(s, string(fd.Name()))
		}
		values := fd.Enum().Values()
		for _, cand := range []string{sym, strings.ToUpper(sym), strings.ToLower(sym)} {
			if ev := values.ByName(protoreflect.Name(cand)); ev != nil {
				return protoreflect.ValueOfEnum(ev.Number()), true, nil
			}
		}
		glog.V(logging.LevelWarning).Infof("%s is not a value of %s, skipped", sym, fd.Enum().FullName())
		return protoreflect.Value{}, false, nil
	}
	return bad()
}

// parseInt reads decimal integers exactly and falls back to the value
// coercion rules for text like "3.0" or "true".
func parseInt(s string) (int64, bool) {
	if l, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64); err == nil {
		return l, true
	}
	return value.String(s).GetInt()
}

// setField stores s in fd. Repeated fields get s appended. Empty text
// leaves the field untouched.
func setField(m protoreflect.Message, fd protoreflect.FieldDescriptor, s string, shortEnum bool) error {
	if s == "" {
		return nil
	}
	v, ok, err := parseScalar(m, fd, s, shortEnum)
	if err != nil || !ok {
		return err
	}
	if fd.IsList() {
		m.Mutable(fd).List().Append(v)
	} else {
		m.Set(fd, v)
	}
	return nil
}

// setIndexed stores s as element index of repeated fd, padding the list
// with default values.
func setIndexed(m protoreflect.Message, fd protoreflect.FieldDescriptor, index int, s string, shortEnum bool) error {
	list := m.Mutable(fd).List()
	for list.Len() <= index {
		list.Append(zeroElement(list, fd))
	}
	if s == "" {
		return nil
	}
	v, ok, err := parseScalar(m, fd, s, shortEnum)
	if err != nil || !ok {
		return err
	}
	list.Set(index, v)
	return nil
}

func zeroElement(list protoreflect.List, fd protoreflect.FieldDescriptor) protoreflect.Value {
	switch fd.Kind() {
	case protoreflect.MessageKind, protoreflect.GroupKind:
		return list.NewElement()
	case protoreflect.BoolKind:
		return protoreflect.ValueOfBool(false)
	case protoreflect.Int32Kind, protoreflect.Sint32Kind, protoreflect.Sfixed32Kind:
		return protoreflect.ValueOfInt32(0)
	case protoreflect.Int64Kind, protoreflect.Sint64Kind, protoreflect.Sfixed64Kind:
		return protoreflect.ValueOfInt64(0)
	case protoreflect.Uint32Kind, protoreflect.Fixed32Kind:
		return protoreflect.ValueOfUint32(0)
	case protoreflect.Uint64Kind, protoreflect.Fixed64Kind:
		return protoreflect.ValueOfUint64(0)
	case protoreflect.FloatKind:
		return protoreflect.ValueOfFloat32(0)
	case protoreflect.DoubleKind:
		return protoreflect.ValueOfFloat64(0)
	case protoreflect.StringKind:
		return protoreflect.ValueOfString("")
	case protoreflect.BytesKind:
		return protoreflect.ValueOfBytes(nil)
	case protoreflect.EnumKind:
		return protoreflect.ValueOfEnum(fd.Enum().Values().Get(0).Number())
	}
	return list.NewElement()
}

// textValue is how the algorithm chain sees a field: strings unquoted,
// enums by full symbol name.
func textValue(m protoreflect.Message, fd protoreflect.FieldDescriptor) value.Value {
	v := m.Get(fd)
	switch fd.Kind() {
	case protoreflect.DoubleKind, protoreflect.FloatKind:
		return value.Double(v.Float())
	case protoreflect.BoolKind:
		return value.Bool(v.Bool())
	}
	return value.String(formatScalar(fd, v, false))
}

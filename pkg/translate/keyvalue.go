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
	"sort"
	"strings"

	"google.golang.org/protobuf/reflect/protoreflect"

	"acomms/pkg/algorithm"
	"acomms/pkg/errors"
	"acomms/pkg/value"
)

// KeyValue extracts the value of key from text such as
// "foo=1,bar={2,3},pig=3". A braced value is returned without its braces.
// key matches only at the start of the text or right after a comma.
func KeyValue(text string, key string) (string, bool) {
	needle := key + "="
	start := -1
	for from := 0; from <= len(text); {
		i := strings.Index(text[from:], needle)
		if i < 0 {
			break
		}
		i += from
		if i == 0 || text[i-1] == ',' {
			start = i
			break
		}
		from = i + 1
	}
	if start < 0 {
		return "", false
	}
	rest := text[start+len(needle):]
	if strings.HasPrefix(rest, "{") {
		if end := strings.IndexByte(rest, '}'); end >= 0 {
			return rest[1:end], true
		}
		return rest[1:], true
	}
	if end := strings.IndexByte(rest, ','); end >= 0 {
		return rest[:end], true
	}
	return rest, true
}

func serializeKeyValue(m protoreflect.Message, algs []PublishAlgorithm, reg *algorithm.Registry, shortEnum bool) (string, error) {
	var parts []string
	fields := m.Descriptor().Fields()
	for i := 0; i < fields.Len(); i++ {
		fd := fields.Get(i)
		if fd.IsMap() || !has(m, fd) {
			continue
		}
		name := string(fd.Name())
		if fd.Message() == nil {
			if fd.IsList() {
				parts = append(parts, name+"={"+fieldString(m, fd, ",", shortEnum)+"}")
			} else {
				parts = append(parts, name+"="+fieldString(m, fd, ",", shortEnum))
			}
			continue
		}

		subFields := fd.Message().Fields()
		for k := 0; k < subFields.Len(); k++ {
			sub := subFields.Get(k)
			key := name + "_" + string(sub.Name())
			if !fd.IsList() {
				parts = append(parts, key+"="+fieldString(m.Get(fd).Message(), sub, ",", shortEnum))
				continue
			}
			list := m.Get(fd).List()
			vals := make([]string, list.Len())
			for j := range vals {
				vals[j] = fieldString(list.Get(j).Message(), sub, ",", shortEnum)
			}
			parts = append(parts, key+"={"+strings.Join(vals, ",")+"}")
		}
	}

	derived, err := runPublishAlgorithms(m, algs, reg)
	if err != nil {
		return "", err
	}
	for _, out := range sortedOutputs(derived) {
		var names []string
		var primary int32
		for _, a := range algs {
			if a.OutputVirtualField == out {
				names = append(names, a.Name)
				primary = a.PrimaryField
			}
		}
		key := strings.Join(names, "+")
		if fd := fields.ByNumber(protoreflect.FieldNumber(primary)); fd != nil {
			key += "(" + string(fd.Name()) + ")"
		}
		parts = append(parts, key+"="+derived[out])
	}
	return strings.Join(parts, ","), nil
}

func parseKeyValue(payload string, m protoreflect.Message, algs []CreateAlgorithm, reg *algorithm.Registry, shortEnum bool) error {
	fields := m.Descriptor().Fields()
	for i := 0; i < fields.Len(); i++ {
		fd := fields.Get(i)
		if fd.IsMap() {
			continue
		}
		name := string(fd.Name())
		if fd.Message() == nil {
			text, ok := KeyValue(payload, name)
			if !ok {
				continue
			}
			text = runCreateAlgorithms(text, int32(fd.Number()), algs, reg)
			if err := setValues(m, fd, strings.Split(text, ","), shortEnum); err != nil {
				return err
			}
			continue
		}

		subFields := fd.Message().Fields()
		for k := 0; k < subFields.Len(); k++ {
			sub := subFields.Get(k)
			text, ok := KeyValue(payload, name+"_"+string(sub.Name()))
			if !ok {
				continue
			}
			vals := strings.Split(text, ",")
			if !fd.IsList() {
				if err := setValues(m.Mutable(fd).Message(), sub, vals, shortEnum); err != nil {
					return err
				}
				continue
			}
			list := m.Mutable(fd).List()
			for j, v := range vals {
				for list.Len() <= j {
					list.Append(list.NewElement())
				}
				if err := setField(list.Get(j).Message(), sub, v, shortEnum); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// setValues stores the first of vals in a singular field, or all of them in
// a repeated one.
func setValues(m protoreflect.Message, fd protoreflect.FieldDescriptor, vals []string, shortEnum bool) error {
	if len(vals) == 0 {
		return nil
	}
	if !fd.IsList() {
		return setField(m, fd, vals[0], shortEnum)
	}
	for _, v := range vals {
		if err := setField(m, fd, v, shortEnum); err != nil {
			return err
		}
	}
	return nil
}

// runCreateAlgorithms passes text through every algorithm whose primary
// field is number, in declaration order.
func runCreateAlgorithms(text string, number int32, algs []CreateAlgorithm, reg *algorithm.Registry) string {
	if reg == nil {
		return text
	}
	for _, a := range algs {
		if a.PrimaryField == number {
			text = reg.Run(a.Name, value.String(text), nil).AsString()
		}
	}
	return text
}

// runPublishAlgorithms computes the virtual field values. Algorithms with
// the same output field chain: each one starts from the previous result.
func runPublishAlgorithms(m protoreflect.Message, algs []PublishAlgorithm, reg *algorithm.Registry) (map[int32]string, error) {
	derived := make(map[int32]string)
	if len(algs) == 0 {
		return derived, nil
	}
	fields := m.Descriptor().Fields()
	for _, a := range algs {
		primary := fields.ByNumber(protoreflect.FieldNumber(a.PrimaryField))
		if primary == nil || primary.IsList() {
			continue
		}
		var in value.Value
		if prev, ok := derived[a.OutputVirtualField]; ok {
			in = value.String(prev)
		} else {
			in = textValue(m, primary)
		}
		refs := make([]value.Value, 0, len(a.ReferenceFields))
		for _, num := range a.ReferenceFields {
			fd := fields.ByNumber(protoreflect.FieldNumber(num))
			if fd == nil || fd.IsList() {
				return nil, errors.Translatef("reference field given is invalid or repeated (must be optional or required): %d", num)
			}
			refs = append(refs, textValue(m, fd))
		}
		out := in
		if reg != nil {
			out = reg.Run(a.Name, in, refs)
		}
		derived[a.OutputVirtualField] = out.AsString()
	}
	return derived, nil
}

func sortedOutputs(derived map[int32]string) []int32 {
	outs := make([]int32, 0, len(derived))
	for out := range derived {
		outs = append(outs, out)
	}
	sort.Slice(outs, func(i, j int) bool { return outs[i] < outs[j] })
	return outs
}

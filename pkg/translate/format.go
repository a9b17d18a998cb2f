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

	"google.golang.org/protobuf/reflect/protoreflect"

	"acomms/pkg/algorithm"
	"acomms/pkg/errors"
)

// Step addresses one field of a placeholder path. Index is the element of
// a repeated field, or -1.
type Step struct {
	Field int32
	Index int
}

// Token is either literal text or a placeholder such as %3%, %10.2% or
// %5:1%.
type Token struct {
	Literal string
	Spec    string
	Path    []Step
}

func (t Token) IsPlaceholder() bool {
	return len(t.Path) > 0
}

// Format is a compiled positional format string.
type Format struct {
	text   string
	tokens []Token
}

func (f *Format) String() string {
	return f.text
}

func (f *Format) Tokens() []Token {
	return f.tokens
}

type formatParser struct {
	s   string
	pos int
}

// CompileFormat splits a format string into literals and placeholders.
//
//	format      = { literal | placeholder }
//	placeholder = "%" step { ":" step } "%"
//	step        = number [ "." number ]
func CompileFormat(s string) (*Format, error) {
	p := &formatParser{s: s}
	tokens, err := p.parseFormat()
	if err != nil {
		return nil, err
	}
	return &Format{text: s, tokens: tokens}, nil
}

func (p *formatParser) parseFormat() ([]Token, error) {
	var tokens []Token
	for p.pos < len(p.s) {
		if p.s[p.pos] == '%' {
			t, err := p.parsePlaceholder()
			if err != nil {
				return nil, err
			}
			tokens = append(tokens, t)
			continue
		}
		tokens = append(tokens, p.parseLiteral())
	}
	return tokens, nil
}

func (p *formatParser) parseLiteral() Token {
	start := p.pos
	for p.pos < len(p.s) && p.s[p.pos] != '%' {
		p.pos++
	}
	return Token{Literal: p.s[start:p.pos]}
}

func (p *formatParser) parsePlaceholder() (Token, error) {
	p.pos++
	end := strings.IndexByte(p.s[p.pos:], '%')
	if end < 0 {
		return Token{}, errors.Configf("unterminated placeholder at offset %d of format %q", p.pos-1, p.s)
	}
	spec := p.s[p.pos : p.pos+end]
	path, err := p.parsePath(spec)
	if err != nil {
		return Token{}, err
	}
	p.pos += end + 1
	return Token{Spec: spec, Path: path}, nil
}

func (p *formatParser) parsePath(spec string) ([]Step, error) {
	if spec == "" {
		return nil, errors.Configf("empty placeholder in format %q", p.s)
	}
	var path []Step
	for _, part := range strings.Split(spec, ":") {
		st, err := p.parseStep(spec, part)
		if err != nil {
			return nil, err
		}
		path = append(path, st)
	}
	return path, nil
}

func (p *formatParser) parseStep(spec string, part string) (Step, error) {
	fieldText, indexText, indexed := strings.Cut(part, ".")
	num, err := p.parseNumber(spec, fieldText)
	if err != nil {
		return Step{}, err
	}
	st := Step{Field: int32(num), Index: -1}
	if indexed {
		if st.Index, err = p.parseNumber(spec, indexText); err != nil {
			return Step{}, err
		}
	}
	return st, nil
}

func (p *formatParser) parseNumber(spec string, s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 || n > math.MaxInt32 {
		return 0, errors.Configf("bad specifier: %s, must be an integer, in format %q", spec, p.s)
	}
	return n, nil
}

type formatOptions struct {
	delimiter  string
	shortEnum  bool
	publish    []PublishAlgorithm
	create     []CreateAlgorithm
	algorithms *algorithm.Registry
}

func serializeFormat(m protoreflect.Message, f *Format, opts formatOptions) (string, error) {
	derived, err := runPublishAlgorithms(m, opts.publish, opts.algorithms)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	for _, t := range f.tokens {
		if !t.IsPlaceholder() {
			b.WriteString(t.Literal)
			continue
		}
		sub := m
		for _, st := range t.Path[:len(t.Path)-1] {
			if sub, err = descend(sub, st, t.Spec); err != nil {
				return "", err
			}
		}
		virtual := derived
		if len(t.Path) > 1 {
			virtual = nil
		}
		b.WriteString(renderStep(sub, t.Path[len(t.Path)-1], virtual, opts))
	}
	return b.String(), nil
}

func embeddedStep(m protoreflect.Message, st Step, spec string) (protoreflect.FieldDescriptor, error) {
	fd := m.Descriptor().Fields().ByNumber(protoreflect.FieldNumber(st.Field))
	if fd == nil || fd.Message() == nil || fd.IsMap() {
		return nil, errors.Translatef("invalid ':' syntax given for format: %s. All field indices except the last must be embedded messages", spec)
	}
	if fd.IsList() && st.Index < 0 {
		return nil, errors.Translatef("invalid '.' syntax given for format: %s. Repeated message, but no valid index given. E.g., use '3.4' for index 4 of field 3", spec)
	}
	return fd, nil
}

func descend(m protoreflect.Message, st Step, spec string) (protoreflect.Message, error) {
	fd, err := embeddedStep(m, st, spec)
	if err != nil {
		return nil, err
	}
	if !fd.IsList() {
		return m.Get(fd).Message(), nil
	}
	list := m.Get(fd).List()
	if st.Index >= list.Len() {
		return nil, errors.Translatef("format %s: index %d beyond the %d elements of %s", spec, st.Index, list.Len(), fd.Name())
	}
	return list.Get(st.Index).Message(), nil
}

func renderStep(m protoreflect.Message, st Step, derived map[int32]string, opts formatOptions) string {
	fd := m.Descriptor().Fields().ByNumber(protoreflect.FieldNumber(st.Field))
	if fd == nil {
		if v, ok := derived[st.Field]; ok {
			return v
		}
		return "unknown"
	}
	if !fd.IsList() {
		if !m.Has(fd) {
			return ""
		}
		return formatScalar(fd, m.Get(fd), opts.shortEnum)
	}
	if st.Index < 0 {
		return fieldString(m, fd, opts.delimiter, opts.shortEnum)
	}
	list := m.Get(fd).List()
	if st.Index < list.Len() {
		return formatScalar(fd, list.Get(st.Index), opts.shortEnum)
	}
	return missingElement(fd, opts.shortEnum)
}

// missingElement renders an element beyond the end of a repeated field.
func missingElement(fd protoreflect.FieldDescriptor, shortEnum bool) string {
	switch fd.Kind() {
	case protoreflect.Int32Kind, protoreflect.Sint32Kind, protoreflect.Sfixed32Kind:
		return strconv.Itoa(math.MaxInt32)
	case protoreflect.Int64Kind, protoreflect.Sint64Kind, protoreflect.Sfixed64Kind:
		return strconv.FormatInt(math.MaxInt64, 10)
	case protoreflect.Uint32Kind, protoreflect.Fixed32Kind:
		return strconv.FormatUint(math.MaxUint32, 10)
	case protoreflect.Uint64Kind, protoreflect.Fixed64Kind:
		return strconv.FormatUint(math.MaxUint64, 10)
	case protoreflect.FloatKind, protoreflect.DoubleKind:
		return "nan"
	case protoreflect.BoolKind:
		return "false"
	case protoreflect.EnumKind:
		return formatScalar(fd, protoreflect.ValueOfEnum(fd.Enum().Values().Get(0).Number()), shortEnum)
	}
	return ""
}

func asciiLower(s string) string {
	b := []byte(s)
	for i, c := range b {
		if 'A' <= c && c <= 'Z' {
			b[i] = c + 'a' - 'A'
		}
	}
	return string(b)
}

// parseFormat reads in against f. Each literal character consumes the input
// through its next case-insensitive occurrence; a placeholder takes the text
// up to the next literal character, or the rest of the input.
func parseFormat(in string, m protoreflect.Message, f *Format, opts formatOptions) error {
	str := in
	lower := asciiLower(in)
	for i, t := range f.tokens {
		if !t.IsPlaceholder() {
			for _, c := range []byte(asciiLower(t.Literal)) {
				if pos := strings.IndexByte(lower, c); pos >= 0 {
					lower = lower[pos+1:]
					str = str[pos+1:]
				}
			}
			continue
		}

		extract := str
		if i+1 < len(f.tokens) && !f.tokens[i+1].IsPlaceholder() {
			sep := asciiLower(f.tokens[i+1].Literal)[0]
			if pos := strings.IndexByte(lower, sep); pos >= 0 {
				extract = str[:pos]
			}
		}

		sub := m
		for _, st := range t.Path[:len(t.Path)-1] {
			fd, err := embeddedStep(sub, st, t.Spec)
			if err != nil {
				return err
			}
			if !fd.IsList() {
				sub = sub.Mutable(fd).Message()
				continue
			}
			list := sub.Mutable(fd).List()
			for list.Len() <= st.Index {
				list.Append(list.NewElement())
			}
			sub = list.Get(st.Index).Message()
		}
		if err := parseStep(extract, sub, t.Path[len(t.Path)-1], t.Spec, opts); err != nil {
			return err
		}
	}
	return nil
}

func parseStep(extract string, m protoreflect.Message, st Step, spec string, opts formatOptions) error {
	fd := m.Descriptor().Fields().ByNumber(protoreflect.FieldNumber(st.Field))
	if fd == nil {
		return errors.Translatef("bad field: %s not in message %s", spec, m.Descriptor().FullName())
	}
	extract = runCreateAlgorithms(extract, st.Field, opts.create, opts.algorithms)

	indexed := st.Index >= 0 && fd.IsList()
	if indexed {
		return setIndexed(m, fd, st.Index, extract, opts.shortEnum)
	}
	if !fd.IsList() {
		return setField(m, fd, extract, opts.shortEnum)
	}
	return setValues(m, fd, strings.Split(extract, opts.delimiter), opts.shortEnum)
}

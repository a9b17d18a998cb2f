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

// Package value implements the tagged scalar carried between bus
// variables, message fields and algorithms.
package value

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

type Kind uint8

const (
	KindEmpty Kind = iota
	KindString
	KindDouble
	KindInt
	KindBool
)

var kindNames = map[Kind]string{
	KindEmpty:  "empty",
	KindString: "string",
	KindDouble: "double",
	KindInt:    "long",
	KindBool:   "bool",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// MaxDoublePrecision is the number of significant decimal digits a float64
// can hold without loss.
const MaxDoublePrecision = 15

// Value holds one of string, double, long or bool, or nothing. The zero
// Value is empty. Values are immutable.
type Value struct {
	kind      Kind
	s         string
	d         float64
	l         int64
	b         bool
	precision int
}

func String(s string) Value {
	return Value{kind: KindString, s: s, precision: MaxDoublePrecision}
}

func Double(d float64) Value {
	return DoubleWithPrecision(d, MaxDoublePrecision)
}

func DoubleWithPrecision(d float64, precision int) Value {
	return Value{kind: KindDouble, d: d, precision: precision}
}

func Int(l int64) Value {
	return Value{kind: KindInt, l: l, precision: MaxDoublePrecision}
}

func Bool(b bool) Value {
	return Value{kind: KindBool, b: b, precision: MaxDoublePrecision}
}

func (v Value) Empty() bool {
	return v.kind == KindEmpty
}

func (v Value) Kind() Kind {
	return v.kind
}

func (v Value) Precision() int {
	return v.precision
}

// WithPrecision returns a copy of v with the display precision changed.
func (v Value) WithPrecision(p int) Value {
	v.precision = p
	return v
}

func (v Value) GetString() (string, bool) {
	switch v.kind {
	case KindString:
		return v.s, true
	case KindBool:
		return strconv.FormatBool(v.b), true
	case KindInt:
		return strconv.FormatInt(v.l, 10), true
	case KindDouble:
		return formatDouble(v.d, v.precision), true
	}
	return "", false
}

func (v Value) GetDouble() (float64, bool) {
	switch v.kind {
	case KindString:
		if d, ok := parseDecimal(v.s); ok {
			return d, true
		}
		if b, ok := parseTrueFalse(v.s); ok {
			return boolToFloat(b), true
		}
		return math.NaN(), false
	case KindBool:
		return boolToFloat(v.b), true
	case KindInt:
		return float64(v.l), true
	case KindDouble:
		return v.d, true
	}
	return math.NaN(), false
}

func (v Value) GetInt() (int64, bool) {
	switch v.kind {
	case KindString:
		if d, ok := parseDecimal(v.s); ok {
			return roundToInt(d)
		}
		if b, ok := parseTrueFalse(v.s); ok {
			if b {
				return 1, true
			}
			return 0, true
		}
		return 0, false
	case KindBool:
		if v.b {
			return 1, true
		}
		return 0, true
	case KindInt:
		return v.l, true
	case KindDouble:
		return roundToInt(v.d)
	}
	return 0, false
}

func (v Value) GetBool() (bool, bool) {
	switch v.kind {
	case KindString:
		switch strings.ToLower(v.s) {
		case "true", "1":
			return true, true
		case "false", "0":
			return false, true
		}
		return false, false
	case KindBool:
		return v.b, true
	case KindInt:
		return numberToBool(float64(v.l))
	case KindDouble:
		return numberToBool(v.d)
	}
	return false, false
}

// Text is the string form without precision loss: doubles use the
// shortest representation that parses back to the same value.
func (v Value) Text() string {
	if v.kind == KindDouble {
		return strconv.FormatFloat(v.d, 'g', -1, 64)
	}
	return v.AsString()
}

// AsString and the other As accessors return the conversion fallback when
// extraction fails: "", NaN, 0 and false.
func (v Value) AsString() string {
	s, _ := v.GetString()
	return s
}

func (v Value) AsDouble() float64 {
	d, ok := v.GetDouble()
	if !ok {
		return math.NaN()
	}
	return d
}

func (v Value) AsInt() int64 {
	l, _ := v.GetInt()
	return l
}

func (v Value) AsBool() bool {
	b, _ := v.GetBool()
	return b
}

// Equal coerces v to the kind held by other and compares.
func (v Value) Equal(other Value) bool {
	switch other.kind {
	case KindString:
		s, ok := v.GetString()
		return ok && s == other.s
	case KindDouble:
		d, ok := v.GetDouble()
		return ok && d == other.d
	case KindInt:
		l, ok := v.GetInt()
		return ok && l == other.l
	case KindBool:
		b, ok := v.GetBool()
		return ok && b == other.b
	}
	return v.kind == KindEmpty
}

func (v Value) String() string {
	if v.kind == KindEmpty {
		return "{empty}"
	}
	switch v.kind {
	case KindString:
		return "string: " + v.s
	case KindDouble:
		return fmt.Sprintf("double: %s", formatDouble(v.d, v.precision))
	}
	return v.kind.String() + ": " + v.AsString()
}

// Round rounds r to dec decimal places, sending exact halves to the even
// neighbor.
func Round(r float64, dec int) float64 {
	ex := math.Pow(10, float64(dec))
	final := math.Floor(r * ex)
	s := r*ex - final
	if s < 0.5 || (s == 0.5 && math.Mod(final, 2) == 0) {
		return final / ex
	}
	return (final + 1) / ex
}

func formatDouble(d float64, precision int) string {
	if precision < 0 {
		precision = 0
	}
	if !math.IsNaN(d) && !math.IsInf(d, 0) {
		if d == 0 || math.Log10(math.Abs(d))+float64(precision) <= MaxDoublePrecision {
			return strconv.FormatFloat(d, 'f', precision, 64)
		}
	}
	p := precision
	if p == 0 {
		p = 1
	}
	return strconv.FormatFloat(d, 'g', p, 64)
}

func roundToInt(d float64) (int64, bool) {
	if math.IsNaN(d) || math.IsInf(d, 0) {
		return 0, false
	}
	r := Round(d, 0)
	if r > math.MaxInt64 || r < math.MinInt64 {
		return 0, false
	}
	return int64(r), true
}

// parseDecimal accepts only plain decimal or exponent notation, with no
// surrounding space. nan, inf and hex floats are rejected.
func parseDecimal(s string) (float64, bool) {
	if s == "" {
		return 0, false
	}
	for i := 0; i < len(s); i++ {
		switch c := s[i]; {
		case c >= '0' && c <= '9':
		case c == '+', c == '-', c == '.', c == 'e', c == 'E':
		default:
			return 0, false
		}
	}
	d, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return d, true
}

// numberToBool converts only 0 and 1.
func numberToBool(d float64) (bool, bool) {
	switch d {
	case 0:
		return false, true
	case 1:
		return true, true
	}
	return false, false
}

func parseTrueFalse(s string) (bool, bool) {
	switch strings.ToLower(s) {
	case "true":
		return true, true
	case "false":
		return false, true
	}
	return false, false
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

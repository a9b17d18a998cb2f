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

package app

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"acomms/pkg/translate"
	"acomms/pkg/value"
)

func TestParseLine(t *testing.T) {
	tests := []struct {
		line    string
		name    string
		payload string
	}{
		{"DEPTH 12.5", "DEPTH", "12.5"},
		{"NAV\tmode=run,label=x y", "NAV", "mode=run,label=x y"},
		{"STATUS_NOW", "STATUS_NOW", ""},
		{"IN_X_HEX   0012", "IN_X_HEX", "0012"},
	}
	for _, test := range tests {
		v, err := ParseLine(test.line)
		if err != nil {
			t.Errorf("%q: %s", test.line, err)
			continue
		}
		if v.Name != test.name || v.Value.Kind() != value.KindString || v.Value.AsString() != test.payload {
			t.Errorf("%q: got %s %v", test.line, v.Name, v.Value)
		}
	}
}

func TestFormatLine(t *testing.T) {
	tests := []struct {
		v    translate.Variable
		want string
	}{
		{translate.Variable{Name: "DEPTH", Value: value.Double(12.3)}, "DEPTH 12.3"},
		{translate.Variable{Name: "COUNT", Value: value.Double(4)}, "COUNT 4"},
		{translate.Variable{Name: "NAV", Value: value.String("mode=run")}, "NAV mode=run"},
	}
	for _, test := range tests {
		if got := FormatLine(test.v); got != test.want {
			t.Errorf("got %q, want %q", got, test.want)
		}
	}
}

func TestLineBus(t *testing.T) {
	in := strings.NewReader("# comment\nDEPTH 10\n\n  NAV mode=run\n")
	var out bytes.Buffer
	bus := NewLineBus(context.Background(), in, &out)

	var got []string
	for v := range bus.Variables() {
		got = append(got, v.Name+"="+v.Value.AsString())
	}
	if strings.Join(got, ";") != "DEPTH=10;NAV=mode=run" {
		t.Errorf("read %v", got)
	}

	bus.Publish(translate.Variable{Name: "A", Value: value.Double(1.5)})
	bus.Publish(translate.Variable{Name: "B", Value: value.String("x")})
	if out.String() != "A 1.5\nB x\n" {
		t.Errorf("wrote %q", out.String())
	}
}

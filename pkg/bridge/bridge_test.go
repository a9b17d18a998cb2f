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
	"strings"
	"testing"
	"time"

	"acomms/pkg/algorithm"
	acerrors "acomms/pkg/errors"
	"acomms/pkg/field"
	"acomms/pkg/schema"
	"acomms/pkg/translate"
	"acomms/pkg/value"
)

const simpleTOML = `
[[message]]
name = "Simple"
id = 5
size = 32
trigger = "publish"
trigger_var = "SIMPLE_OUT"
trigger_mandatory = "go"

[[message.layout]]
name = "depth"
type = "float"
max = 100.0
min = 0.0
precision = 1
src_var = "DEPTH"

[[message.layout]]
name = "count"
type = "int"
max = -10.0
min = 10.0
src_var = "COUNT"

[[message.layout]]
name = "mode"
type = "enum"
values = ["idle", "run"]
src_var = "NAV"
src_key = "m"

[[message.layout]]
name = "label"
type = "string"
max_length = 8
src_var = "NAV"
algorithms = ["to_lower"]

[[message.layout]]
name = "blob"
type = "hex"
num_bytes = 2

[[message.layout]]
name = "arr"
type = "int"
array_length = 2
max = 5.0
min = 0.0

[[message.layout]]
name = "tag"
type = "static"
value = "v1"

[[message.publish]]
var = "SIMPLE_IN"
format = "depth=%1%,up=%2%"
names = ["depth", "label"]
algorithms = [[], ["to_upper"]]

[[message.publish]]
var = "SIMPLE_ALL_%1%"
names = ["depth", "arr"]
`

const simpleYAML = `
message:
  - name: Simple
    id: 5
    size: 32
    trigger: publish
    trigger_var: SIMPLE_OUT
    trigger_mandatory: go
    layout:
      - {name: depth, type: float, max: 100, min: 0, precision: 1, src_var: DEPTH}
      - {name: count, type: int, max: -10, min: 10, src_var: COUNT}
      - {name: mode, type: enum, values: [idle, run], src_var: NAV, src_key: m}
      - {name: label, type: string, max_length: 8, src_var: NAV, algorithms: [to_lower]}
      - {name: blob, type: hex, num_bytes: 2}
      - {name: arr, type: int, array_length: 2, max: 5, min: 0}
      - {name: tag, type: static, value: v1}
    publish:
      - var: SIMPLE_IN
        format: "depth=%1%,up=%2%"
        names: [depth, label]
        algorithms: [[], [to_upper]]
      - var: SIMPLE_ALL_%1%
        names: [depth, arr]
`

func testAlgorithms() *algorithm.Registry {
	a := algorithm.New()
	algorithm.RegisterDefaults(a)
	return a
}

func newTestCodec(t *testing.T, text string, format string) (*Codec, *Result) {
	t.Helper()
	f, err := Parse(strings.NewReader(text), format)
	if err != nil {
		t.Fatal(err)
	}
	c := NewCodec(3, schema.New(), testAlgorithms())
	c.SetClock(func() time.Time { return time.Unix(1300000000, 500000000) })
	res, err := c.Convert("simple.proto", f)
	if err != nil {
		t.Fatal(err)
	}
	return c, res
}

func TestConvertSchemaText(t *testing.T) {
	_, res := newTestCodec(t, simpleTOML, FormatTOML)
	want := []string{
		"message Simple { \n\toption (dccl.msg).id = 5;\n\toption (dccl.msg).max_bytes = 32;\n",
		"\toptional int32 _ccl_id = 1 [(dccl.field).max=255, (dccl.field).min=0];\n",
		"\toptional int32 _id = 2 [(dccl.field).max=511, (dccl.field).min=0];\n",
		"\toptional double _time = 3 [(goby.field).dccl.codec=\"_time\", (goby.field).dccl.in_head=true, (goby.field).queue.is_time=true];\n",
		"\toptional int32 _src_id = 4 [(dccl.field).max=31, (dccl.field).min=0, (goby.field).dccl.in_head=true, (goby.field).queue.is_src=true];\n",
		"\toptional int32 _dest_id = 5 [(dccl.field).max=31, (dccl.field).min=0, (goby.field).dccl.in_head=true, (goby.field).queue.is_dest=true];\n",
		"\toptional int32 _unused = 8 [(dccl.field).max=3, (dccl.field).min=0];\n",
		"\toptional double depth = 9 [(dccl.field).max=100.0, (dccl.field).min=0.0, (dccl.field).precision=1];\n",
		"\toptional int32 count = 10 [(dccl.field).max=10, (dccl.field).min=-10];\n",
		"\toptional ModeEnum mode = 11;\n\tenum ModeEnum{ \n\t\t MODE_idle = 0; \n\t\t MODE_run = 1; \n\t} \n",
		"\toptional string label = 12 [(dccl.field).max_length=8];\n",
		"\toptional bytes blob = 13 [(dccl.field).max_length=2];\n",
		"\trepeated int32 arr = 14 [(dccl.field).max=5, (dccl.field).min=0, (dccl.field).max_repeat=2];\n",
		"\toptional string tag = 15 [default=\"v1\", (dccl.field).static_value=\"v1\", (dccl.field).codec=\"_static\"];\n} \n",
	}
	for _, w := range want {
		if !strings.Contains(res.SchemaText, w) {
			t.Errorf("schema text lacks %q\n%s", w, res.SchemaText)
		}
	}
	if !strings.HasPrefix(res.SchemaText, "import ") {
		t.Error("schema text without imports")
	}

	dp := res.File.GetMessageType()[0]
	if dp.GetName() != "Simple" || len(dp.GetField()) != 15 || len(dp.GetEnumType()) != 1 {
		t.Fatalf("descriptor %v", dp)
	}
	for i, fd := range dp.GetField() {
		if int(fd.GetNumber()) != i+1 {
			t.Errorf("field %s numbered %d", fd.GetName(), fd.GetNumber())
		}
	}
}

func TestConvertYAMLMatchesTOML(t *testing.T) {
	_, a := newTestCodec(t, simpleTOML, FormatTOML)
	_, b := newTestCodec(t, simpleYAML, FormatYAML)
	if a.SchemaText != b.SchemaText {
		t.Errorf("yaml schema differs:\n%s\n%s", a.SchemaText, b.SchemaText)
	}
	if a.Entries[0].String() != b.Entries[0].String() {
		t.Errorf("yaml entry differs:\n%s\n%s", a.Entries[0], b.Entries[0])
	}
}

func TestConvertEntry(t *testing.T) {
	_, res := newTestCodec(t, simpleTOML, FormatTOML)
	e := res.Entries[0]
	if e.TypeName != "Simple" || !e.UseShortEnum {
		t.Errorf("entry %v", e)
	}
	if e.Trigger.Type != translate.TriggerPublish || e.Trigger.Var != "SIMPLE_OUT" || e.Trigger.MandatoryContent != "go" {
		t.Errorf("trigger %+v", e.Trigger)
	}

	create := []struct {
		v         string
		technique translate.Technique
		format    string
		algs      int
	}{
		{"DEPTH", translate.TechniqueFormat, "%9%", 0},
		{"COUNT", translate.TechniqueFormat, "%10%", 0},
		{"NAV", translate.TechniqueKeyValue, "", 1},
		{"SIMPLE_OUT", translate.TechniqueKeyValue, "", 0},
	}
	if len(e.Create) != len(create) {
		t.Fatalf("create parsers %+v", e.Create)
	}
	for i, c := range create {
		p := e.Create[i]
		if p.Var != c.v || p.Technique != c.technique || p.Format != c.format || len(p.Algorithms) != c.algs {
			t.Errorf("create %d: %+v", i, p)
		}
	}
	if a := e.Create[2].Algorithms[0]; a.Name != "to_lower" || a.PrimaryField != 12 {
		t.Errorf("create algorithm %+v", a)
	}

	if len(e.Publish) != 2 {
		t.Fatalf("publish %+v", e.Publish)
	}
	p := e.Publish[0]
	if p.Var != "SIMPLE_IN" || p.Format != "depth=%9%,up=%100%" || p.Technique != translate.TechniqueFormat {
		t.Errorf("publish %+v", p)
	}
	if len(p.Algorithms) != 1 || p.Algorithms[0].Name != "to_upper" || p.Algorithms[0].PrimaryField != 12 ||
		p.Algorithms[0].OutputVirtualField != 100 || len(p.Algorithms[0].ReferenceFields) != 0 {
		t.Errorf("publish algorithms %+v", p.Algorithms)
	}
	p = e.Publish[1]
	if p.Var != "SIMPLE_ALL_%9%" || p.Format != "depth=%9%,arr={%14.0%,%14.1%}" {
		t.Errorf("default publish %+v", p)
	}
}

func TestConvertErrors(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"reference on create", `
[[message]]
name = "A"
id = 1
trigger = "publish"
trigger_var = "A_OUT"
[[message.layout]]
name = "c"
type = "float"
algorithms = ["TSD_to_soundspeed:s:d"]
[[message.layout]]
name = "s"
type = "float"
[[message.layout]]
name = "d"
type = "float"
`, "reference fields"},
		{"no source", `
[[message]]
name = "A"
id = 1
trigger = "time"
trigger_time = 10.0
[[message.layout]]
name = "c"
type = "string"
max_length = 4
algorithms = ["to_lower"]
`, "no source variable"},
		{"duplicate id", `
[[message]]
name = "A"
id = 7
trigger = "time"
trigger_time = 1.0
[[message]]
name = "B"
id = 7
trigger = "time"
trigger_time = 1.0
`, "duplicate variable id 7 specified for B and A"},
		{"dangling reference", `
[[message]]
name = "A"
id = 1
trigger = "publish"
trigger_var = "A_OUT"
[[message.layout]]
name = "c"
type = "float"
algorithms = ["TSD_to_soundspeed:nope:d"]
`, "no such reference message variable nope"},
		{"unknown algorithm", `
[[message]]
name = "A"
id = 1
trigger = "publish"
trigger_var = "A_OUT"
[[message.layout]]
name = "c"
type = "float"
algorithms = ["make_coffee"]
`, "unknown algorithm"},
		{"bad trigger", `
[[message]]
name = "A"
id = 1
trigger = "sometimes"
`, "unknown trigger"},
		{"empty enum", `
[[message]]
name = "A"
id = 1
trigger = "publish"
trigger_var = "X"
[[message.layout]]
name = "e"
type = "enum"
`, "at least one value"},
		{"unknown publish name", `
[[message]]
name = "A"
id = 1
trigger = "publish"
trigger_var = "X"
[[message.publish]]
var = "Y"
names = ["ghost"]
`, "no such name"},
	}
	for _, tc := range tests {
		f, err := Parse(strings.NewReader(tc.text), FormatTOML)
		if err != nil {
			t.Fatalf("%s: %s", tc.name, err)
		}
		c := NewCodec(1, schema.New(), testAlgorithms())
		_, err = c.Convert("a.proto", f)
		if err == nil || !strings.Contains(err.Error(), tc.want) {
			t.Errorf("%s: %v", tc.name, err)
			continue
		}
		if acerrors.ErrNo(err) != acerrors.KErrSchema {
			t.Errorf("%s: error class %s", tc.name, acerrors.ErrNoName(acerrors.ErrNo(err)))
		}
		if len(c.Names()) != 0 {
			t.Errorf("%s: failed conversion kept messages", tc.name)
		}
	}

	c, _ := newTestCodec(t, simpleTOML, FormatTOML)
	f, _ := Parse(strings.NewReader(simpleTOML), FormatTOML)
	if _, err := c.Convert("again.proto", f); err == nil {
		t.Error("reloading the same id")
	}
}

func TestEncodeDecode(t *testing.T) {
	c, res := newTestCodec(t, simpleTOML, FormatTOML)
	tr := translate.New(c.schemas, c.algorithms)
	for _, e := range res.Entries {
		if err := tr.AddEntry(e); err != nil {
			t.Fatal(err)
		}
	}
	msg, err := tr.FromBus(map[string]value.Value{
		"DEPTH":      value.Double(12.34),
		"COUNT":      value.String("4"),
		"NAV":        value.String("mode=run,label=HELLO"),
		"SIMPLE_OUT": value.String("blob=beef,arr={1,2},tag=v1"),
	}, "Simple")
	if err != nil {
		t.Fatal(err)
	}

	name, vals, err := c.Decode(msg)
	if err != nil {
		t.Fatal(err)
	}
	if name != "Simple" {
		t.Errorf("decoded %s", name)
	}
	checks := map[string]string{
		"depth": "12.3",
		"count": "4",
		"mode":  "run",
		"label": "hello",
		"blob":  "beef",
		"tag":   "v1",
	}
	check := func(vals field.Values) {
		t.Helper()
		for k, want := range checks {
			if got := vals[k][0].AsString(); got != want {
				t.Errorf("%s = %q, want %q", k, got, want)
			}
		}
		if arr := vals["arr"]; len(arr) != 2 || arr[0].AsInt() != 1 || arr[1].AsInt() != 2 {
			t.Errorf("arr %v", arr)
		}
	}
	check(vals)
	if !vals["_ccl_id"][0].Empty() {
		t.Errorf("header set by the translator: %v", vals["_ccl_id"])
	}

	encoded, err := c.Encode("Simple", vals)
	if err != nil {
		t.Fatal(err)
	}
	_, round, err := c.Decode(encoded)
	if err != nil {
		t.Fatal(err)
	}
	check(round)
	header := map[string]float64{
		"_ccl_id":  field.CCLHeaderID,
		"_id":      5,
		"_src_id":  3,
		"_dest_id": field.BroadcastID,
		"_time":    1300000000.5,
		"_unused":  0,
	}
	for k, want := range header {
		if got := round[k][0].AsDouble(); got != want {
			t.Errorf("%s = %v, want %v", k, got, want)
		}
	}
	if !vals["_ccl_id"][0].Empty() {
		t.Error("Encode modified its input")
	}
}

func TestEncodeSkipsInvalid(t *testing.T) {
	c, _ := newTestCodec(t, simpleTOML, FormatTOML)
	msg, err := c.Encode("Simple", field.Values{
		"mode":  {value.String("sprint")},
		"count": {value.String("many")},
	})
	if err != nil {
		t.Fatal(err)
	}
	_, vals, _ := c.Decode(msg)
	if !vals["mode"][0].Empty() || !vals["count"][0].Empty() {
		t.Errorf("invalid values encoded: %v %v", vals["mode"], vals["count"])
	}
	if _, err = c.Encode("Simple", field.Values{"blob": {value.String("xyz")}}); acerrors.ErrNo(err) != acerrors.KErrTranslate {
		t.Errorf("bad hex: %v", err)
	}
	if _, err = c.Encode("Nope", nil); err == nil {
		t.Error("unknown message")
	}
}

func TestReadBusVars(t *testing.T) {
	c, _ := newTestCodec(t, simpleTOML, FormatTOML)
	m, ok := c.Message("Simple")
	if !ok {
		t.Fatal("Simple not loaded")
	}
	vals := make(field.Values)
	m.ReadBusVars(vals, map[string][]value.Value{
		"DEPTH":      {value.Double(3)},
		"NAV":        {value.String("m=idle,label=X")},
		"SIMPLE_OUT": {value.String("arr={1,2},blob=00ff")},
	})
	if vals["depth"][0].Kind() != value.KindDouble || vals["depth"][0].AsDouble() != 3 {
		t.Errorf("depth %v", vals["depth"])
	}
	if vals["mode"][0].AsString() != "idle" || vals["label"][0].AsString() != "X" || vals["blob"][0].AsString() != "00ff" {
		t.Errorf("key=value sources %v %v %v", vals["mode"], vals["label"], vals["blob"])
	}
	if len(vals["arr"]) != 2 || vals["arr"][1].AsInt() != 2 {
		t.Errorf("arr %v", vals["arr"])
	}
	if _, ok := vals["count"]; ok {
		t.Error("count has no published source")
	}
}

func TestMessageDefaults(t *testing.T) {
	c, _ := newTestCodec(t, simpleTOML, FormatTOML)
	m, _ := c.MessageByID(5)
	if m.InVar != "IN_SIMPLE_HEX_32B" || m.OutVar != "OUT_SIMPLE_HEX_32B" {
		t.Errorf("in/out vars %s %s", m.InVar, m.OutVar)
	}
	if f, _ := m.Field("count"); f.Max != 10 || f.Min != -10 || f.MaxDelta != 2 {
		t.Errorf("count constraints %+v", f)
	}
	if f, _ := m.Field("blob"); f.SourceVar != "SIMPLE_OUT" {
		t.Errorf("blob source %s", f.SourceVar)
	}
	if f := m.HeaderField(field.HeadTime); f.SourceVar != "" {
		t.Errorf("time header bound to %s", f.SourceVar)
	}
	if !strings.Contains(m.String(), "trigger: on publish of SIMPLE_OUT containing \"go\"") {
		t.Errorf("display:\n%s", m)
	}
}

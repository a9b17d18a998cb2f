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
	"errors"
	"strings"
	"testing"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/descriptorpb"
	"google.golang.org/protobuf/types/dynamicpb"

	"acomms/pkg/algorithm"
	acerrors "acomms/pkg/errors"
	"acomms/pkg/schema"
	"acomms/pkg/value"
)

const nodeReportFormat = "NAME=%1%,X=%202%,Y=%3%,HEADING=%201%,REPEAT={%10%}"

type pb = descriptorpb.FieldDescriptorProto_Type

const (
	tDouble   = descriptorpb.FieldDescriptorProto_TYPE_DOUBLE
	tFloat    = descriptorpb.FieldDescriptorProto_TYPE_FLOAT
	tInt32    = descriptorpb.FieldDescriptorProto_TYPE_INT32
	tInt64    = descriptorpb.FieldDescriptorProto_TYPE_INT64
	tUint32   = descriptorpb.FieldDescriptorProto_TYPE_UINT32
	tUint64   = descriptorpb.FieldDescriptorProto_TYPE_UINT64
	tSint32   = descriptorpb.FieldDescriptorProto_TYPE_SINT32
	tSint64   = descriptorpb.FieldDescriptorProto_TYPE_SINT64
	tFixed32  = descriptorpb.FieldDescriptorProto_TYPE_FIXED32
	tFixed64  = descriptorpb.FieldDescriptorProto_TYPE_FIXED64
	tSfixed32 = descriptorpb.FieldDescriptorProto_TYPE_SFIXED32
	tSfixed64 = descriptorpb.FieldDescriptorProto_TYPE_SFIXED64
	tBool     = descriptorpb.FieldDescriptorProto_TYPE_BOOL
	tString   = descriptorpb.FieldDescriptorProto_TYPE_STRING
	tBytes    = descriptorpb.FieldDescriptorProto_TYPE_BYTES
)

var scalarTypes = []struct {
	name string
	typ  pb
}{
	{"double", tDouble}, {"float", tFloat}, {"int32", tInt32}, {"int64", tInt64},
	{"uint32", tUint32}, {"uint64", tUint64}, {"sint32", tSint32}, {"sint64", tSint64},
	{"fixed32", tFixed32}, {"fixed64", tFixed64}, {"sfixed32", tSfixed32}, {"sfixed64", tSfixed64},
	{"bool", tBool}, {"string", tString}, {"bytes", tBytes},
}

func testRegistry(t *testing.T) *schema.Registry {
	t.Helper()
	r := schema.New()

	nr := schema.NewFileBuilder("basic_node_report.proto", "")
	nr.AddMessage("BasicNodeReport").
		Optional("name", 1, tString).
		Optional("x", 202, tDouble).
		Optional("y", 3, tDouble).
		Optional("heading", 201, tDouble).
		Repeated("repeat", 10, tInt32)
	if _, err := r.RegisterFile(nr.Build()); err != nil {
		t.Fatal(err)
	}

	b := schema.NewFileBuilder("acomms/test/translate.proto", "acomms.test")
	b.AddMessage("Embedded2").Optional("val", 1, tDouble)
	b.AddMessage("Embedded1").
		Optional("val", 1, tDouble).
		Embedded("msg", 2, "acomms.test.Embedded2", false)
	tm := b.AddMessage("TestMsg")
	num := int32(1)
	for _, st := range scalarTypes {
		tm.Optional(st.name+"_default_optional", num, st.typ)
		num++
	}
	for _, st := range scalarTypes {
		tm.Repeated(st.name+"_default_repeat", num, st.typ)
		num++
	}
	tm.Embedded("msg_default_optional", num, "acomms.test.Embedded1", false)
	tm.Embedded("msg_default_repeat", num+1, "acomms.test.Embedded1", true)
	tm.Enum("enum_default_optional", num+2, "Enum1", "ENUM_A", "ENUM_B", "ENUM_C")
	b.AddMessage("Modal").Enum("mode", 1, "Mode", "MODE_IDLE", "MODE_RUN")
	b.AddMessage("Track").
		Optional("id", 1, tInt32).
		Embedded("pos", 2, "acomms.test.Embedded1", false).
		Repeated("depths", 3, tDouble).
		Embedded("legs", 4, "acomms.test.Embedded1", true)
	if _, err := r.RegisterFile(b.Build()); err != nil {
		t.Fatal(err)
	}
	return r
}

func newMsg(t *testing.T, r *schema.Registry, name string) *dynamicpb.Message {
	t.Helper()
	m, err := r.NewMessage(name)
	if err != nil {
		t.Fatal(err)
	}
	return m
}

func fieldOf(t *testing.T, m protoreflect.Message, name string) protoreflect.FieldDescriptor {
	t.Helper()
	fd := m.Descriptor().Fields().ByName(protoreflect.Name(name))
	if fd == nil {
		t.Fatalf("%s has no field %s", m.Descriptor().FullName(), name)
	}
	return fd
}

func set(t *testing.T, m protoreflect.Message, name string, v interface{}) {
	t.Helper()
	m.Set(fieldOf(t, m, name), protoreflect.ValueOf(v))
}

func add(t *testing.T, m protoreflect.Message, name string, v interface{}) {
	t.Helper()
	m.Mutable(fieldOf(t, m, name)).List().Append(protoreflect.ValueOf(v))
}

func embedded(t *testing.T, m protoreflect.Message, name string, val float64, inner float64) protoreflect.Message {
	t.Helper()
	fd := fieldOf(t, m, name)
	var sub protoreflect.Message
	if fd.IsList() {
		list := m.Mutable(fd).List()
		sub = list.NewElement().Message()
		list.Append(protoreflect.ValueOfMessage(sub))
	} else {
		sub = m.Mutable(fd).Message()
	}
	set(t, sub, "val", val)
	set(t, sub.Mutable(fieldOf(t, sub, "msg")).Message(), "val", inner)
	return sub
}

func populateTestMsg(t *testing.T, m protoreflect.Message) {
	i := 0
	next := func() int { i++; return i }
	set(t, m, "double_default_optional", float64(next())+0.1)
	set(t, m, "float_default_optional", float32(next())+0.2)
	set(t, m, "int32_default_optional", int32(next()))
	set(t, m, "int64_default_optional", -int64(next()))
	set(t, m, "uint32_default_optional", uint32(next()))
	set(t, m, "uint64_default_optional", uint64(next()))
	set(t, m, "sint32_default_optional", -int32(next()))
	set(t, m, "sint64_default_optional", int64(next()))
	set(t, m, "fixed32_default_optional", uint32(next()))
	set(t, m, "fixed64_default_optional", uint64(next()))
	set(t, m, "sfixed32_default_optional", int32(next()))
	set(t, m, "sfixed64_default_optional", -int64(next()))
	set(t, m, "bool_default_optional", true)
	set(t, m, "string_default_optional", "abc123")
	set(t, m, "bytes_default_optional", []byte{0x00, 0x11, 0x22, 0x33, 0xaa, 0xbb, 0xcc, 0x12, 0x34})
	m.Set(fieldOf(t, m, "enum_default_optional"), protoreflect.ValueOfEnum(2))
	embedded(t, m, "msg_default_optional", float64(next())+0.3, float64(next()))

	for j := 0; j < 2; j++ {
		add(t, m, "double_default_repeat", float64(next())+0.1)
		add(t, m, "float_default_repeat", float32(next())+0.2)
		add(t, m, "int32_default_repeat", int32(next()))
		add(t, m, "int64_default_repeat", -int64(next()))
		add(t, m, "uint32_default_repeat", uint32(next()))
		add(t, m, "uint64_default_repeat", uint64(next()))
		add(t, m, "sint32_default_repeat", -int32(next()))
		add(t, m, "sint64_default_repeat", int64(next()))
		add(t, m, "fixed32_default_repeat", uint32(next()))
		add(t, m, "fixed64_default_repeat", uint64(next()))
		add(t, m, "sfixed32_default_repeat", int32(next()))
		add(t, m, "sfixed64_default_repeat", -int64(next()))
		add(t, m, "bool_default_repeat", j == 0)
		add(t, m, "string_default_repeat", "abc")
		add(t, m, "bytes_default_repeat", []byte{0xca, 0xfe})
		embedded(t, m, "msg_default_repeat", float64(next())+0.3, float64(next()))
	}
}

func TestRoundTrip(t *testing.T) {
	r := testRegistry(t)
	in := newMsg(t, r, "acomms.test.TestMsg")
	populateTestMsg(t, in)

	tests := []struct {
		technique Technique
		opts      Options
	}{
		{TechniqueNative, Options{}},
		{TechniqueNative, Options{Compress: CompressSnappy}},
		{TechniqueSchemaText, Options{}},
		{TechniquePlainSchemaText, Options{}},
		{TechniqueKeyValue, Options{}},
	}
	for _, tc := range tests {
		payload, err := Serialize(tc.technique, in, tc.opts)
		if err != nil {
			t.Fatalf("%s: %s", tc.technique, err)
		}
		out := newMsg(t, r, "acomms.test.TestMsg")
		if err = Parse(tc.technique, payload, out, tc.opts); err != nil {
			t.Fatalf("%s: %s", tc.technique, err)
		}
		if !proto.Equal(in, out) {
			t.Errorf("%s%s round trip differs:\n%s", tc.technique, tc.opts.Compress, payload)
		}
	}
}

func TestSchemaTextPrefix(t *testing.T) {
	r := testRegistry(t)
	in := newMsg(t, r, "acomms.test.Embedded1")
	set(t, in, "val", 2.5)

	payload, err := Serialize(TechniqueSchemaText, in, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(payload, "@PB[acomms.test.Embedded1] ") {
		t.Errorf("payload %q", payload)
	}

	out, err := DynamicParse(payload, r)
	if err != nil {
		t.Fatal(err)
	}
	if !proto.Equal(in, out) {
		t.Error("dynamic parse differs")
	}

	wrong := newMsg(t, r, "acomms.test.Embedded2")
	if err = Parse(TechniqueSchemaText, payload, wrong, Options{}); !errors.Is(err, acerrors.ErrTranslate) {
		t.Errorf("wrong type: %v", err)
	}
	if err = Parse(TechniqueSchemaText, "@PB[acomms.test.Embedded1 val: 1", in, Options{}); err == nil {
		t.Error("missing bracket accepted")
	}
	if err = Parse(TechniqueSchemaText, "@PB[acomms.test.Embedded1]", in, Options{}); err != nil {
		t.Fatal(err)
	}
	if in.Has(fieldOf(t, in, "val")) {
		t.Error("empty body should clear the message")
	}
	if err = Parse(TechniqueSchemaText, "val: 4", in, Options{}); err != nil || in.Get(fieldOf(t, in, "val")).Float() != 4 {
		t.Errorf("unprefixed text: %v", err)
	}
	if _, err = DynamicParse("val: 4", r); err == nil {
		t.Error("dynamic parse without prefix")
	}
	if _, err = DynamicParse("@PB[acomms.test.Nope] ", r); err == nil {
		t.Error("dynamic parse of unknown type")
	}
}

func TestKeyValue(t *testing.T) {
	text := "foo=1,bar={2,3,4,5},pig=3,o=bar,cow=yes"
	tests := []struct {
		key  string
		want string
		ok   bool
	}{
		{"foo", "1", true},
		{"bar", "2,3,4,5", true},
		{"pig", "3", true},
		{"o", "bar", true},
		{"cow", "yes", true},
		{"ig", "", false},
		{"horse", "", false},
	}
	for _, tc := range tests {
		got, ok := KeyValue(text, tc.key)
		if got != tc.want || ok != tc.ok {
			t.Errorf("KeyValue(%q) = %q, %v", tc.key, got, ok)
		}
	}
}

func TestShortEnum(t *testing.T) {
	r := testRegistry(t)
	in := newMsg(t, r, "acomms.test.Modal")
	in.Set(fieldOf(t, in, "mode"), protoreflect.ValueOfEnum(1))
	opts := Options{UseShortEnum: true}
	payload, err := Serialize(TechniqueKeyValue, in, opts)
	if err != nil {
		t.Fatal(err)
	}
	if payload != "mode=RUN" {
		t.Errorf("payload %q", payload)
	}
	out := newMsg(t, r, "acomms.test.Modal")
	if err = Parse(TechniqueKeyValue, "mode=run", out, opts); err != nil {
		t.Fatal(err)
	}
	if !proto.Equal(in, out) {
		t.Error("short enum parse")
	}
	out = newMsg(t, r, "acomms.test.Modal")
	if err = Parse(TechniqueKeyValue, "mode=FLY", out, opts); err != nil || out.Has(fieldOf(t, out, "mode")) {
		t.Errorf("unknown symbol should be skipped: %v", err)
	}
}

func TestCompileFormat(t *testing.T) {
	f, err := CompileFormat("A=%1%;B=%3.2%;C=%4:1.0:2%")
	if err != nil {
		t.Fatal(err)
	}
	toks := f.Tokens()
	if len(toks) != 6 {
		t.Fatalf("tokens %+v", toks)
	}
	if toks[0].Literal != "A=" || toks[1].Path[0] != (Step{Field: 1, Index: -1}) {
		t.Errorf("first placeholder %+v", toks[1])
	}
	if toks[3].Path[0] != (Step{Field: 3, Index: 2}) {
		t.Errorf("indexed %+v", toks[3])
	}
	want := []Step{{4, -1}, {1, 0}, {2, -1}}
	if len(toks[5].Path) != 3 {
		t.Fatalf("path %+v", toks[5].Path)
	}
	for i, st := range want {
		if toks[5].Path[i] != st {
			t.Errorf("step %d: %+v", i, toks[5].Path[i])
		}
	}
	for _, bad := range []string{"%1", "x=%%", "%a%", "%1.b%", "%1:%"} {
		if _, err := CompileFormat(bad); acerrors.ErrNo(err) != acerrors.KErrConfig {
			t.Errorf("%q: %v", bad, err)
		}
	}
}

func TestFormatPaths(t *testing.T) {
	r := testRegistry(t)
	in := newMsg(t, r, "acomms.test.Track")
	set(t, in, "id", int32(7))
	set(t, in.Mutable(fieldOf(t, in, "pos")).Message(), "val", 1.5)
	add(t, in, "depths", 10.0)
	add(t, in, "depths", 20.25)
	embedded(t, in, "legs", 3, 4)

	f, _ := CompileFormat("ID=%1%;V=%2:1%;D1=%3.1%;D5=%3.5%;L0=%4.0:1%;ALL=%3%;X=%50%")
	got, err := Serialize(TechniqueFormat, in, Options{Format: f})
	if err != nil {
		t.Fatal(err)
	}
	if want := "ID=7;V=1.5;D1=20.25;D5=nan;L0=3;ALL=10,20.25;X=unknown"; got != want {
		t.Errorf("got  %s\nwant %s", got, want)
	}

	f, _ = CompileFormat("ID=%1%;V=%2:1%;D1=%3.1%;L0=%4.0:1%")
	out := newMsg(t, r, "acomms.test.Track")
	if err = Parse(TechniqueFormat, "id=7;v=1.5;d1=20.25;l0=3", out, Options{Format: f}); err != nil {
		t.Fatal(err)
	}
	depths := out.Get(fieldOf(t, out, "depths")).List()
	if out.Get(fieldOf(t, out, "id")).Int() != 7 || depths.Len() != 2 || depths.Get(1).Float() != 20.25 {
		t.Errorf("parsed %v", out)
	}
	pos := out.Get(fieldOf(t, out, "pos")).Message()
	if pos.Get(fieldOf(t, pos, "val")).Float() != 1.5 {
		t.Error("embedded value")
	}
	legs := out.Get(fieldOf(t, out, "legs")).List()
	if legs.Len() != 1 || legs.Get(0).Message().Get(fieldOf(t, pos, "val")).Float() != 3 {
		t.Error("repeated embedded value")
	}

	for _, bad := range []string{"%1:1%", "%4:1%"} {
		f, _ = CompileFormat(bad)
		if _, err = Serialize(TechniqueFormat, in, Options{Format: f}); !errors.Is(err, acerrors.ErrTranslate) {
			t.Errorf("%s: %v", bad, err)
		}
	}
}

func nodeReportAlgorithms(t *testing.T) *algorithm.Registry {
	t.Helper()
	a := algorithm.New()
	algorithm.RegisterDefaults(a)
	lookup, err := algorithm.ReadModemLookup(strings.NewReader("3,unicorn,auv\n"))
	if err != nil {
		t.Fatal(err)
	}
	algorithm.RegisterModemLookup(a, lookup)
	// Fixed conversions for the local grid point (550, 1023.5) of an origin
	// at 42.5N 10.8E.
	a.RegisterRef("utm_x2lon", func(v value.Value, refs []value.Value) value.Value {
		if v.AsDouble() == 550 && len(refs) == 1 && refs[0].AsDouble() == 1023.5 {
			return value.Double(10.806955912844)
		}
		return value.Double(0)
	})
	a.RegisterRef("utm_y2lat", func(v value.Value, refs []value.Value) value.Value {
		if v.AsDouble() == 1023.5 && len(refs) == 1 && refs[0].AsDouble() == 550 {
			return value.Double(42.5091075598637)
		}
		return value.Double(0)
	})
	return a
}

func nodeReport(t *testing.T, r *schema.Registry, repeat ...int32) *dynamicpb.Message {
	m := newMsg(t, r, "BasicNodeReport")
	set(t, m, "name", "unicorn")
	set(t, m, "x", 550.0)
	set(t, m, "y", 1023.5)
	set(t, m, "heading", 240.0)
	for _, v := range repeat {
		add(t, m, "repeat", v)
	}
	return m
}

func snapshotOf(vars []Variable) map[string]value.Value {
	snap := make(map[string]value.Value)
	for _, v := range vars {
		snap[v.Name] = v.Value
	}
	return snap
}

func TestFormatOneInOneOut(t *testing.T) {
	r := testRegistry(t)
	tr := New(r, nodeReportAlgorithms(t))
	err := tr.AddEntry(&Entry{
		TypeName: "BasicNodeReport",
		Trigger:  Trigger{Type: TriggerPublish, Var: "NODE_REPORT"},
		Create:   []CreateParser{{Var: "NODE_REPORT", Technique: TechniqueFormat, Format: nodeReportFormat}},
		Publish:  []PublishSerializer{{Var: "NODE_REPORT", Technique: TechniqueFormat, Format: nodeReportFormat}},
	})
	if err != nil {
		t.Fatal(err)
	}

	report := nodeReport(t, r, 1, -1)
	vars, err := tr.ToBus(report)
	if err != nil {
		t.Fatal(err)
	}
	if len(vars) != 1 || vars[0].Name != "NODE_REPORT" {
		t.Fatalf("vars %v", vars)
	}
	if got := vars[0].Value.AsString(); got != "NAME=unicorn,X=550,Y=1023.5,HEADING=240,REPEAT={1,-1}" {
		t.Errorf("got %s", got)
	}

	out, err := tr.FromBus(snapshotOf(vars), "BasicNodeReport")
	if err != nil {
		t.Fatal(err)
	}
	if !proto.Equal(out, report) {
		t.Errorf("parsed back %v", out)
	}
}

func nodeReportEntry() *Entry {
	e := &Entry{
		TypeName: "BasicNodeReport",
		Trigger:  Trigger{Type: TriggerPublish, Var: "NAV_X"},
		Create: []CreateParser{
			{Var: "NAV_X", Technique: TechniqueFormat, Format: "%202%"},
			{Var: "VEHICLE_NAME", Technique: TechniqueFormat, Format: "%1%",
				Algorithms: []CreateAlgorithm{{Name: "to_lower", PrimaryField: 1}}},
			{Var: "NAV_HEADING", Technique: TechniqueKeyValue,
				Algorithms: []CreateAlgorithm{{Name: "angle_0_360", PrimaryField: 201}}},
			{Var: "NAV_Y", Technique: TechniqueFormat, Format: "%3%"},
		},
	}
	format := PublishSerializer{
		Var:       "NODE_REPORT_FORMAT",
		Technique: TechniqueFormat,
		Format:    nodeReportFormat + ";LAT=%100%;LON=%101%",
		Algorithms: []PublishAlgorithm{
			{Name: "utm_x2lon", OutputVirtualField: 101, PrimaryField: 202, ReferenceFields: []int32{3}},
			{Name: "utm_y2lat", OutputVirtualField: 100, PrimaryField: 3, ReferenceFields: []int32{202}},
			{Name: "name2modem_id", OutputVirtualField: 102, PrimaryField: 1},
			{Name: "name2modem_id", OutputVirtualField: 103, PrimaryField: 1},
			{Name: "modem_id2type", OutputVirtualField: 103, PrimaryField: 1},
			{Name: "to_upper", OutputVirtualField: 103, PrimaryField: 1},
		},
	}
	kv := format.Clone()
	kv.Format = ""
	kv.Technique = TechniqueKeyValue
	kv.Var = "NODE_REPORT_KEY_VALUE"
	e.Publish = []PublishSerializer{format, kv}
	return e
}

func TestManyInManyOut(t *testing.T) {
	r := testRegistry(t)
	tr := New(r, nodeReportAlgorithms(t))
	if err := tr.AddEntry(nodeReportEntry()); err != nil {
		t.Fatal(err)
	}

	out, err := tr.FromBus(map[string]value.Value{
		"NAV_X":        value.Double(550),
		"NAV_Y":        value.Double(1023.5),
		"NAV_HEADING":  value.String("heading=-120"),
		"VEHICLE_NAME": value.String("UNICORN"),
	}, "BasicNodeReport")
	if err != nil {
		t.Fatal(err)
	}
	if want := nodeReport(t, r); !proto.Equal(out, want) {
		t.Fatalf("created %v, want %v", out, want)
	}

	vars, err := tr.ToBus(out)
	if err != nil {
		t.Fatal(err)
	}
	want := map[string]string{
		"NODE_REPORT_FORMAT":    "NAME=unicorn,X=550,Y=1023.5,HEADING=240,REPEAT={};LAT=42.5091075598637;LON=10.806955912844",
		"NODE_REPORT_KEY_VALUE": "name=unicorn,x=550,y=1023.5,heading=240,utm_y2lat(y)=42.5091075598637,utm_x2lon(x)=10.806955912844,name2modem_id(name)=3,name2modem_id+modem_id2type+to_upper(name)=AUV",
	}
	if len(vars) != len(want) {
		t.Fatalf("vars %v", vars)
	}
	for _, v := range vars {
		if got := v.Value.AsString(); got != want[v.Name] {
			t.Errorf("%s:\n got  %s\n want %s", v.Name, got, want[v.Name])
		}
	}

	inverse, err := tr.ToInverseBus(out)
	if err != nil {
		t.Fatal(err)
	}
	if len(inverse) != 4 || inverse[0].Name != "NAV_X" || inverse[0].Value.Kind() != value.KindDouble {
		t.Fatalf("inverse %v", inverse)
	}
	back, err := tr.FromBus(snapshotOf(inverse), "BasicNodeReport")
	if err != nil {
		t.Fatal(err)
	}
	if !proto.Equal(back, out) {
		t.Errorf("inverse round trip %v", back)
	}
}

func TestDoubleBusRoundTrip(t *testing.T) {
	r := testRegistry(t)
	tr := New(r, algorithm.New())
	err := tr.AddEntry(&Entry{
		TypeName: "BasicNodeReport",
		Trigger:  Trigger{Type: TriggerPublish, Var: "NAV_Y"},
		Create:   []CreateParser{{Var: "NAV_Y", Technique: TechniqueFormat, Format: "%3%"}},
		Publish:  []PublishSerializer{{Var: "NAV_Y", Technique: TechniqueFormat, Format: "%3%"}},
	})
	if err != nil {
		t.Fatal(err)
	}
	for _, y := range []float64{1.5e-16, 1e20, -2.5e-300, 0.1} {
		report := newMsg(t, r, "BasicNodeReport")
		set(t, report, "y", y)
		inverse, err := tr.ToInverseBus(report)
		if err != nil {
			t.Fatal(err)
		}
		if len(inverse) != 1 || inverse[0].Value.Kind() != value.KindDouble || inverse[0].Value.AsDouble() != y {
			t.Fatalf("%g: inverse %v", y, inverse)
		}
		back, err := tr.FromBus(snapshotOf(inverse), "BasicNodeReport")
		if err != nil {
			t.Fatal(err)
		}
		if got := back.ProtoReflect().Get(fieldOf(t, back.ProtoReflect(), "y")).Float(); got != y {
			t.Errorf("%g read back from the bus as %g", y, got)
		}
	}
}

func TestTranslatorErrors(t *testing.T) {
	r := testRegistry(t)
	tr := New(r, algorithm.New())
	if err := tr.AddEntry(&Entry{TypeName: "Nope"}); acerrors.ErrNo(err) != acerrors.KErrConfig {
		t.Errorf("unknown type: %v", err)
	}
	err := tr.AddEntry(&Entry{
		TypeName: "BasicNodeReport",
		Create:   []CreateParser{{Var: "V", Technique: TechniqueFormat, Format: "%1"}},
	})
	if acerrors.ErrNo(err) != acerrors.KErrConfig {
		t.Errorf("bad format: %v", err)
	}
	err = tr.AddEntry(&Entry{
		TypeName: "BasicNodeReport",
		Create:   []CreateParser{{Var: "V", Technique: TechniqueFormat, Format: "%99%"}},
	})
	if err != nil {
		t.Fatal(err)
	}
	_, err = tr.FromBus(map[string]value.Value{"V": value.String("x")}, "BasicNodeReport")
	if err == nil || !strings.Contains(err.Error(), "bad field: 99 not in message BasicNodeReport") {
		t.Errorf("bad field: %v", err)
	}
	if _, err = tr.ToBus(newMsg(t, r, "acomms.test.Modal")); err == nil {
		t.Error("message without entry")
	}
	if _, ok := tr.Entry("BasicNodeReport"); !ok || len(tr.Entries()) != 1 {
		t.Error("entries")
	}
}

func TestParseTechnique(t *testing.T) {
	for tech, name := range techniqueNames {
		got, err := ParseTechnique(strings.ToUpper(name))
		if err != nil || got != tech {
			t.Errorf("%s: %v %v", name, got, err)
		}
	}
	if _, err := ParseTechnique("carrier_pigeon"); err == nil {
		t.Error("unknown technique")
	}
	var tt TriggerType
	if err := tt.UnmarshalText([]byte("TIME")); err != nil || tt != TriggerTime {
		t.Errorf("trigger %v %v", tt, err)
	}
	trig := Trigger{Type: TriggerPublish, Var: "NAV_X", MandatoryContent: "ok"}
	if !trig.Fires("NAV_X", value.String("all ok")) || trig.Fires("NAV_X", value.String("bad")) || trig.Fires("NAV_Y", value.String("ok")) {
		t.Error("trigger matching")
	}
}

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

package codec

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"acomms/pkg/translate"
	"acomms/pkg/value"
)

const depthTOML = `
[[message]]
name = "Depth"
id = 12
size = 32
trigger_var = "DEPTH_NOW"

[[message.layout]]
name = "depth"
type = "float"
max = 100.0
min = 0.0
precision = 1
src_var = "DEPTH"
`

func TestParseVars(t *testing.T) {
	snap, err := parseVars([]string{"DEPTH=12.3", "NAV=mode=run,label=x"})
	if err != nil {
		t.Fatal(err)
	}
	if snap["DEPTH"].AsString() != "12.3" || snap["NAV"].AsString() != "mode=run,label=x" {
		t.Errorf("snapshot %v", snap)
	}
	if _, err = parseVars([]string{"=1"}); err == nil {
		t.Error("empty name accepted")
	}
}

func TestWriteVars(t *testing.T) {
	var buf bytes.Buffer
	writeVars(&buf, []translate.Variable{
		{Name: "B", Value: value.String("x")},
		{Name: "A", Value: value.Double(12.3)},
	})
	if buf.String() != "A 12.3\nB x\n" {
		t.Errorf("wrote %q", buf.String())
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "depth.toml")
	if err := os.WriteFile(path, []byte(depthTOML), 0644); err != nil {
		t.Fatal(err)
	}
	opts := loaderOptions{defs: []string{path}, modemID: 4}
	l, err := opts.load()
	if err != nil {
		t.Fatal(err)
	}
	if len(l.results) != 1 || !strings.Contains(l.results[0].SchemaText, "message Depth") {
		t.Fatalf("results %v", l.results)
	}
	if _, ok := l.translator.Entry("Depth"); !ok {
		t.Error("no translator entry for Depth")
	}
	if m, ok := l.codec.Message("Depth"); !ok || m.OutVar != "OUT_DEPTH_HEX_32B" {
		t.Errorf("codec message %v", m)
	}

	opts.defs = append(opts.defs, filepath.Join(filepath.Dir(path), "none.yaml"))
	if _, err = opts.load(); err == nil {
		t.Error("missing definition file accepted")
	}
}

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

package cmd

import (
	"bytes"
	"strings"
	"testing"
)

type demoCmd struct {
	Command
	file string
}

func (c *demoCmd) Init(name string, desc string) {
	c.Command.Init(name, desc)
	c.StringOption(&c.file, "f|file", "-", "output file")
	c.SetSynopsis("[-f <file>]")
	c.AddExample(name+" -f out.toml", "write to a file")
}

func (c *demoCmd) Exec() {}

func TestCommandUsage(t *testing.T) {
	c := &demoCmd{}
	c.Init("demo", "print a demo")
	RegisterNewGroup("demos", c)
	defer func() {
		delete(groups, "demos")
		delete(commands, "demo")
	}()

	var buf bytes.Buffer
	c.Write(&buf)
	out := buf.String()
	for _, want := range []string{
		" demo - print a demo",
		" demo [-f <file>]",
		"-f, -file string",
		"OPTIONS",
		"EXAMPLES",
		"write to a file",
		"commands of group demos",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("usage lacks %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "DESCRIPTION") {
		t.Errorf("empty details rendered:\n%s", out)
	}

	if err := c.Parse([]string{"-file", "x.toml"}); err != nil || c.file != "x.toml" {
		t.Errorf("parse: %v %q", err, c.file)
	}
	if GetCommand("demo") != c {
		t.Error("command not registered")
	}

	buf.Reset()
	Write(&buf)
	if !strings.Contains(buf.String(), "<command> -help") || !strings.Contains(buf.String(), "* demo") {
		t.Errorf("program usage:\n%s", buf.String())
	}
}

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
	"fmt"
	"os"
	"path/filepath"

	"acomms/pkg/cmd"
)

type cmdSchemaT struct {
	cmd.Command
	loaderOptions
	optOutDir  string
	optEntries bool
}

func (c *cmdSchemaT) Init(name string, desc string) {
	c.Command.Init(name, desc)
	c.loaderOptions.register(&c.Command)
	c.StringOption(&c.optOutDir, "o|output-dir", "", "write <stem>.proto files here instead of stdout")
	c.BoolOption(&c.optEntries, "e|entries", false, "also print the derived translator entries")
	c.SetSynopsis("-d <definition file> [-d <definition file>] [options]")
	c.AddExample(name+" -d status.toml -o ./proto", "convert status.toml into ./proto/status.proto")
}

func (c *cmdSchemaT) Exec() {
	c.Validate()
	if len(c.defs) == 0 {
		fail("no definition file")
		return
	}
	l, err := c.load()
	if err != nil {
		fail("%s", err)
		return
	}
	for _, res := range l.results {
		if c.optOutDir == "" {
			fmt.Printf("// %s\n%s\n", res.File.GetName(), res.SchemaText)
			continue
		}
		out := filepath.Join(c.optOutDir, res.File.GetName())
		if err := os.WriteFile(out, []byte(res.SchemaText), 0644); err != nil {
			fail("writing %s: %s", out, err)
			return
		}
		fmt.Fprintf(os.Stderr, "wrote %s\n", out)
	}
	if c.optEntries {
		fmt.Print(l.translator.String())
	}
}

func init() {
	c := &cmdSchemaT{}
	c.Init("schema", "convert message definitions into schema text")

	cmd.Register(c)
}

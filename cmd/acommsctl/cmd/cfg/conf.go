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

package cfg

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"acomms/pkg/cfg"
	"acomms/pkg/cmd"
	"acomms/pkg/util"
)

type cmdConfUnify struct {
	cmd.Command
	optOutFileName string
	optOutFormat   string
	optOverrides   util.StringListFlags
}

func (c *cmdConfUnify) Init(name string, desc string) {
	c.Command.Init(name, desc)
	c.StringOption(&c.optOutFileName, "o|output-filename", "-", "output filename, - for stdout")
	c.StringOption(&c.optOutFormat, "f|output-format", "toml", "output format {toml|text}")
	c.ValueOption(&c.optOverrides, "set", "property applied over the files, e.g. -set MAC.Type=polled")
	c.SetSynopsis("[options] <toml file name> [<toml file name>]")
}

func (c *cmdConfUnify) Exec() {
	c.Validate()
	c.optOutFormat = strings.ToLower(c.optOutFormat)
	if c.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "no input file")
		return
	}

	var unified cfg.Config
	for _, f := range c.Args() {
		var conf cfg.Config
		if err := conf.ReadFromTomlFile(f); err != nil {
			fmt.Fprintf(os.Stderr, "%s, Error: %s\n", f, err)
			return
		}
		if err := unified.Merge(&conf); err != nil {
			fmt.Fprintf(os.Stderr, "%s, Error: %s\n", f, err)
			return
		}
	}
	for _, o := range c.optOverrides {
		if err := unified.Set(o); err != nil {
			fmt.Fprintf(os.Stderr, "%s, Error: %s\n", o, err)
			return
		}
	}

	var w io.Writer = os.Stdout
	if c.optOutFileName != "-" {
		file, err := os.Create(c.optOutFileName)
		if err != nil {
			fmt.Fprintf(os.Stderr, "fail to create file %s\n", c.optOutFileName)
			return
		}
		defer file.Close()
		w = file
	}
	writer := bufio.NewWriter(w)
	if c.optOutFormat == "toml" {
		unified.WriteToToml(writer)
	} else {
		unified.WriteToKVList(writer)
	}
	writer.Flush()
}

func init() {
	c := &cmdConfUnify{}
	c.Init("config", "unify the given toml configuration file(s)")

	cmd.Register(c)
}

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

	"github.com/BurntSushi/toml"

	"acomms/cmd/acommsd/config"
	"acomms/pkg/cmd"
)

type cmdCfgGenT struct {
	cmd.Command
	outFileName string
}

func (c *cmdCfgGenT) Init(name string, desc string) {
	c.Command.Init(name, desc)
	c.StringOption(&c.outFileName, "f|file-name", "-", "output filename, - for stdout")
	c.SetSynopsis("[<filename-option>]")
}

func (c *cmdCfgGenT) Exec() {
	c.Validate()
	var w io.Writer = os.Stdout
	if c.outFileName != "-" {
		file, err := os.Create(c.outFileName)
		if err != nil {
			fmt.Fprintf(os.Stderr, "fail to create file %s\n", c.outFileName)
			return
		}
		defer file.Close()
		w = file
	}
	writer := bufio.NewWriter(w)
	if err := toml.NewEncoder(writer).Encode(&config.Conf); err != nil {
		fmt.Fprintf(os.Stderr, "encoding default config: %s\n", err)
	}
	writer.Flush()
}

func init() {
	c := &cmdCfgGenT{}
	c.Init("cfggen", "generate the default node configuration")

	cmd.Register(c)
}

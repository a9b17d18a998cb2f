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
	"sort"

	"acomms/pkg/cmd"
	"acomms/pkg/translate"
	"acomms/pkg/util"
)

type cmdDecodeT struct {
	cmd.Command
	loaderOptions
	optMessage string
	optFields  bool
}

func (c *cmdDecodeT) Init(name string, desc string) {
	c.Command.Init(name, desc)
	c.loaderOptions.register(&c.Command)
	c.StringOption(&c.optMessage, "m|message", "", "message type name")
	c.BoolOption(&c.optFields, "f|fields", false, "also print the decoded field values")
	c.SetSynopsis("-d <definition file> -m <message> <hex> [<hex>]")
}

func (c *cmdDecodeT) Exec() {
	c.Validate()
	if c.optMessage == "" || c.NArg() < 1 {
		fail("a message type and at least one hex payload expected")
		return
	}
	l, err := c.load()
	if err != nil {
		fail("%s", err)
		return
	}
	for _, hex := range c.Args() {
		b, err := util.HexDecode(hex)
		if err != nil {
			fail("%q is not hex", hex)
			return
		}
		msg, err := l.schemas.NewMessage(c.optMessage)
		if err != nil {
			fail("%s", err)
			return
		}
		if err = translate.Parse(translate.TechniqueNative, string(b), msg, translate.Options{}); err != nil {
			fail("%s", err)
			return
		}
		vars, err := l.translator.ToBus(msg)
		if err != nil {
			fail("%s", err)
			return
		}
		writeVars(os.Stdout, vars)
		if !c.optFields {
			continue
		}
		if _, ok := l.codec.Message(c.optMessage); !ok {
			continue
		}
		_, vals, err := l.codec.Decode(msg)
		if err != nil {
			fail("%s", err)
			return
		}
		names := make([]string, 0, len(vals))
		for k := range vals {
			names = append(names, k)
		}
		sort.Strings(names)
		for _, k := range names {
			fmt.Printf("  %s: %v\n", k, vals[k])
		}
	}
}

func init() {
	c := &cmdDecodeT{}
	c.Init("decode", "decode hex payloads onto bus variables")

	cmd.Register(c)
}

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

	"google.golang.org/protobuf/proto"

	"acomms/pkg/cmd"
	"acomms/pkg/field"
	"acomms/pkg/translate"
	"acomms/pkg/util"
	"acomms/pkg/value"
)

type cmdEncodeT struct {
	cmd.Command
	loaderOptions
	optMessage string
	optVars    util.StringListFlags
	optText    bool
}

func (c *cmdEncodeT) Init(name string, desc string) {
	c.Command.Init(name, desc)
	c.loaderOptions.register(&c.Command)
	c.StringOption(&c.optMessage, "m|message", "", "message type name")
	c.ValueOption(&c.optVars, "v|var", "bus variable as NAME=payload")
	c.BoolOption(&c.optText, "t|text", false, "also print the message as schema text")
	c.SetSynopsis("-d <definition file> -m <message> [-v NAME=payload]...")
	c.AddExample(name+" -d status.toml -m Status -v DEPTH=12.3", "print the hex encoding of a Status")
}

func (c *cmdEncodeT) Exec() {
	c.Validate()
	if c.optMessage == "" {
		fail("no message type")
		return
	}
	l, err := c.load()
	if err != nil {
		fail("%s", err)
		return
	}
	snapshot, err := parseVars(c.optVars)
	if err != nil {
		fail("%s", err)
		return
	}

	var msg proto.Message
	outVar := "OUT_HEX"
	if m, ok := l.codec.Message(c.optMessage); ok {
		history := make(map[string][]value.Value, len(snapshot))
		for k, v := range snapshot {
			history[k] = []value.Value{v}
		}
		vals := make(field.Values)
		m.ReadBusVars(vals, history)
		msg, err = l.codec.Encode(c.optMessage, vals)
		outVar = m.OutVar
	} else {
		msg, err = l.translator.FromBus(snapshot, c.optMessage)
	}
	if err != nil {
		fail("%s", err)
		return
	}
	payload, err := translate.Serialize(translate.TechniqueNative, msg, translate.Options{})
	if err != nil {
		fail("%s", err)
		return
	}
	fmt.Printf("%s %s\n", outVar, util.HexEncode([]byte(payload)))
	if c.optText {
		text, err := translate.Serialize(translate.TechniqueSchemaText, msg, translate.Options{})
		if err != nil {
			fail("%s", err)
			return
		}
		fmt.Fprintln(os.Stdout, text)
	}
}

func init() {
	c := &cmdEncodeT{}
	c.Init("encode", "encode a message from bus variables")

	cmd.Register(c)
}

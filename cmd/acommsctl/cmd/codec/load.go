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

// Package codec holds the commands that convert, encode and decode
// messages outside a running node.
package codec

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"acomms/pkg/algorithm"
	"acomms/pkg/bridge"
	"acomms/pkg/cmd"
	"acomms/pkg/schema"
	"acomms/pkg/translate"
	"acomms/pkg/util"
	"acomms/pkg/value"
)

// loaderOptions are shared by the commands that need messages loaded.
type loaderOptions struct {
	defs     util.StringListFlags
	descSets util.StringListFlags
	modemID  uint
}

func (o *loaderOptions) register(c *cmd.Command) {
	c.ValueOption(&o.defs, "d|def", "message definition file, .toml or .yaml")
	c.ValueOption(&o.descSets, "p|descriptor-set", "binary FileDescriptorSet file")
	c.UintOption(&o.modemID, "modem", 1, "modem id used for the source header")
}

type loaded struct {
	schemas    *schema.Registry
	translator *translate.Translator
	codec      *bridge.Codec
	results    []*bridge.Result
}

func (o *loaderOptions) load() (*loaded, error) {
	algs := algorithm.New()
	algorithm.RegisterDefaults(algs)
	l := &loaded{schemas: schema.New()}
	for _, p := range o.descSets {
		if err := l.schemas.LoadDescriptorSet(p); err != nil {
			return nil, err
		}
	}
	l.translator = translate.New(l.schemas, algs)
	l.codec = bridge.NewCodec(uint32(o.modemID), l.schemas, algs)
	for _, d := range o.defs {
		res, err := l.codec.ConvertFile(d)
		if err != nil {
			return nil, err
		}
		for _, e := range res.Entries {
			if err = l.translator.AddEntry(e); err != nil {
				return nil, err
			}
		}
		l.results = append(l.results, res)
	}
	return l, nil
}

// parseVars reads NAME=payload assignments into a bus snapshot.
func parseVars(assignments []string) (map[string]value.Value, error) {
	snapshot := make(map[string]value.Value, len(assignments))
	for _, a := range assignments {
		i := strings.IndexByte(a, '=')
		if i <= 0 {
			return nil, fmt.Errorf("expected NAME=payload, got %q", a)
		}
		snapshot[a[:i]] = value.String(a[i+1:])
	}
	return snapshot, nil
}

func writeVars(w io.Writer, vars []translate.Variable) {
	sort.SliceStable(vars, func(i, j int) bool { return vars[i].Name < vars[j].Name })
	for _, v := range vars {
		fmt.Fprintf(w, "%s %s\n", v.Name, v.Value.Text())
	}
}

func fail(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
}

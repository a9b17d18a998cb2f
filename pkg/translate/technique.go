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
	"strings"

	"acomms/pkg/errors"
)

// Technique selects how a message is rendered to or read from a bus
// variable.
type Technique int

const (
	TechniqueNative Technique = iota + 1
	TechniqueSchemaText
	TechniquePlainSchemaText
	TechniqueKeyValue
	TechniqueFormat
)

var techniqueNames = map[Technique]string{
	TechniqueNative:          "native",
	TechniqueSchemaText:      "schema_text",
	TechniquePlainSchemaText: "plain_schema_text",
	TechniqueKeyValue:        "key_value",
	TechniqueFormat:          "format",
}

func (t Technique) String() string {
	if n, ok := techniqueNames[t]; ok {
		return n
	}
	return "unknown"
}

// ParseTechnique accepts the configuration names, case-insensitively.
func ParseTechnique(s string) (Technique, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for t, n := range techniqueNames {
		if n == s {
			return t, nil
		}
	}
	return 0, errors.Configf("unknown technique %q", s)
}

func (t Technique) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *Technique) UnmarshalText(text []byte) (err error) {
	*t, err = ParseTechnique(string(text))
	return
}

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
	"acomms/pkg/util"
	"acomms/pkg/value"
)

type TriggerType int

const (
	TriggerPublish TriggerType = iota + 1
	TriggerTime
)

func (t TriggerType) String() string {
	switch t {
	case TriggerPublish:
		return "publish"
	case TriggerTime:
		return "time"
	}
	return "unknown"
}

func (t TriggerType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *TriggerType) UnmarshalText(text []byte) error {
	switch strings.ToLower(string(text)) {
	case "publish":
		*t = TriggerPublish
	case "time":
		*t = TriggerTime
	default:
		return errors.Configf("unknown trigger type %q", text)
	}
	return nil
}

// Trigger says when the node builds a message from the bus: every Period,
// or whenever Var is published (and contains MandatoryContent, if set).
type Trigger struct {
	Type             TriggerType
	Var              string
	MandatoryContent string
	Period           util.Duration
}

// Fires reports whether a publication of name with v satisfies a publish
// trigger.
func (t Trigger) Fires(name string, v value.Value) bool {
	if t.Type != TriggerPublish || name != t.Var {
		return false
	}
	return t.MandatoryContent == "" || strings.Contains(v.AsString(), t.MandatoryContent)
}

type CreateAlgorithm struct {
	Name         string
	PrimaryField int32
}

// CreateParser fills a message from one bus variable.
type CreateParser struct {
	Var               string
	Technique         Technique
	Format            string
	RepeatedDelimiter string
	Algorithms        []CreateAlgorithm
}

type PublishAlgorithm struct {
	Name               string
	PrimaryField       int32
	ReferenceFields    []int32
	OutputVirtualField int32
}

// PublishSerializer renders a message onto one bus variable.
type PublishSerializer struct {
	Var               string
	Technique         Technique
	Format            string
	RepeatedDelimiter string
	Algorithms        []PublishAlgorithm
	Compress          string
}

func (p PublishSerializer) Clone() PublishSerializer {
	c := p
	c.Algorithms = make([]PublishAlgorithm, len(p.Algorithms))
	for i, a := range p.Algorithms {
		a.ReferenceFields = append([]int32(nil), a.ReferenceFields...)
		c.Algorithms[i] = a
	}
	return c
}

// Entry binds a message type to the bus variables it is created from and
// published to.
type Entry struct {
	TypeName     string
	Trigger      Trigger
	Create       []CreateParser
	Publish      []PublishSerializer
	UseShortEnum bool
}

func (e *Entry) Clone() *Entry {
	c := *e
	c.Create = make([]CreateParser, len(e.Create))
	for i, p := range e.Create {
		p.Algorithms = append([]CreateAlgorithm(nil), p.Algorithms...)
		c.Create[i] = p
	}
	c.Publish = make([]PublishSerializer, len(e.Publish))
	for i, p := range e.Publish {
		c.Publish[i] = p.Clone()
	}
	return &c
}

func (e *Entry) String() string {
	var b strings.Builder
	b.WriteString(e.TypeName)
	b.WriteString(" trigger=")
	b.WriteString(e.Trigger.Type.String())
	if e.Trigger.Type == TriggerPublish {
		b.WriteString(":" + e.Trigger.Var)
	} else if e.Trigger.Type == TriggerTime {
		b.WriteString(":" + e.Trigger.Period.String())
	}
	for _, c := range e.Create {
		b.WriteString(" create=" + c.Var + "/" + c.Technique.String())
	}
	for _, p := range e.Publish {
		b.WriteString(" publish=" + p.Var + "/" + p.Technique.String())
	}
	return b.String()
}

func delimiterOr(d string) string {
	if d == "" {
		return ","
	}
	return d
}

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

// Package algorithm holds the named value transforms applied to message
// fields while encoding, decoding and translating.
package algorithm

import (
	"sort"
	"strings"
	"sync"

	"github.com/golang/glog"

	"acomms/pkg/errors"
	"acomms/pkg/field"
	"acomms/pkg/logging"
	"acomms/pkg/value"
)

// Func transforms a single value.
type Func func(v value.Value) value.Value

// RefFunc transforms a value using the values of referenced sibling fields.
type RefFunc func(v value.Value, refs []value.Value) value.Value

// Schema is the message an algorithm chain is validated against.
type Schema interface {
	HasField(name string) bool
}

type Registry struct {
	mu     sync.RWMutex
	single map[string]Func
	ref    map[string]RefFunc
	warned sync.Map
}

func New() *Registry {
	return &Registry{
		single: make(map[string]Func),
		ref:    make(map[string]RefFunc),
	}
}

func (r *Registry) Register(name string, fn Func) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.has(name) {
		glog.V(logging.LevelDebug).Infof("algorithm %s replaced", name)
	}
	delete(r.ref, name)
	r.single[name] = fn
}

func (r *Registry) RegisterRef(name string, fn RefFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.has(name) {
		glog.V(logging.LevelDebug).Infof("algorithm %s replaced", name)
	}
	delete(r.single, name)
	r.ref[name] = fn
}

func (r *Registry) has(name string) bool {
	_, ok1 := r.single[name]
	_, ok2 := r.ref[name]
	return ok1 || ok2
}

func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.has(name)
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.single) + len(r.ref)
}

func (r *Registry) Names() []string {
	r.mu.RLock()
	names := make([]string, 0, len(r.single)+len(r.ref))
	for n := range r.single {
		names = append(names, n)
	}
	for n := range r.ref {
		names = append(names, n)
	}
	r.mu.RUnlock()
	sort.Strings(names)
	return names
}

// Run dispatches to the algorithm called name. A name nobody registered
// passes v through unchanged; the first occurrence is logged.
func (r *Registry) Run(name string, v value.Value, refs []value.Value) value.Value {
	r.mu.RLock()
	fn, single := r.single[name]
	rfn, ref := r.ref[name]
	r.mu.RUnlock()

	switch {
	case single:
		return fn(v)
	case ref:
		return rfn(v, refs)
	}
	if _, seen := r.warned.LoadOrStore(name, true); !seen {
		glog.Warningf("algorithm %q not registered, value passed through", name)
	}
	return v
}

// Spec is a parsed algorithm reference of the form name[:ref1[:ref2...]].
type Spec struct {
	Name string
	Refs []string
}

func ParseSpec(spec string) Spec {
	parts := strings.Split(strings.ReplaceAll(spec, " ", ""), ":")
	return Spec{Name: parts[0], Refs: parts[1:]}
}

func (s Spec) String() string {
	return strings.Join(append([]string{s.Name}, s.Refs...), ":")
}

// Apply runs spec on in. Reference values come from element index of the
// referenced field, or its first element when it has fewer.
func (r *Registry) Apply(in value.Value, index int, spec string, vals field.Values) value.Value {
	if in.Empty() {
		return in
	}
	s := ParseSpec(spec)
	refs := make([]value.Value, 0, len(s.Refs))
	for _, ref := range s.Refs {
		vs, ok := vals[ref]
		if !ok || len(vs) == 0 {
			// keeps later refs at their position
			refs = append(refs, value.Value{})
			continue
		}
		if index < len(vs) {
			refs = append(refs, vs[index])
		} else {
			refs = append(refs, vs[0])
		}
	}
	return r.Run(s.Name, in, refs)
}

// Validate checks an algorithm reference against a message. Unknown names
// are only reported once at least one algorithm is registered.
func (r *Registry) Validate(spec string, schema Schema) error {
	if strings.TrimSpace(spec) == "" {
		return nil
	}
	s := ParseSpec(spec)
	if r.Len() > 0 && !r.Has(s.Name) {
		return errors.Schemaf("unknown algorithm defined: %s", s.Name)
	}
	for _, ref := range s.Refs {
		if schema == nil || !schema.HasField(ref) {
			return errors.Schemaf("no such reference message variable %s used in algorithm: %s", ref, s.Name)
		}
	}
	return nil
}

// Validator adapts Validate to field.Initialize.
func (r *Registry) Validator(schema Schema) func(string) error {
	return func(spec string) error {
		return r.Validate(spec, schema)
	}
}

// HasRefs reports whether spec names reference arguments.
func HasRefs(spec string) bool {
	return len(ParseSpec(spec).Refs) > 0
}

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

// Package schema keeps the reflective message descriptors the codec and
// translator work from.
package schema

import (
	"os"
	"sort"
	"sync"

	"github.com/golang/glog"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protodesc"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/reflect/protoregistry"
	"google.golang.org/protobuf/types/descriptorpb"
	"google.golang.org/protobuf/types/dynamicpb"

	"acomms/pkg/errors"
	"acomms/pkg/logging"
	"acomms/pkg/util"
)

// Registry holds file descriptors registered at runtime. Lookups may run
// concurrently with registration.
type Registry struct {
	mu           sync.RWMutex
	files        *protoregistry.Files
	fingerprints map[string]uint32
	messages     map[protoreflect.FullName]uint32
}

func New() *Registry {
	return &Registry{
		files:        new(protoregistry.Files),
		fingerprints: make(map[string]uint32),
		messages:     make(map[protoreflect.FullName]uint32),
	}
}

// Fingerprint hashes the deterministic encoding of a file descriptor.
func Fingerprint(fdp *descriptorpb.FileDescriptorProto) (uint32, error) {
	b, err := proto.MarshalOptions{Deterministic: true}.Marshal(fdp)
	if err != nil {
		return 0, err
	}
	return util.Murmur3Hash(b), nil
}

// RegisterFile builds and registers fdp. Registering an identical file
// again returns the existing descriptor.
func (r *Registry) RegisterFile(fdp *descriptorpb.FileDescriptorProto) (protoreflect.FileDescriptor, error) {
	fp, err := Fingerprint(fdp)
	if err != nil {
		return nil, errors.Schemaf("%s: %s", fdp.GetName(), err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if old, found := r.fingerprints[fdp.GetName()]; found {
		if old != fp {
			return nil, errors.Schemaf("file %s already registered with different content", fdp.GetName())
		}
		fd, err := r.files.FindFileByPath(fdp.GetName())
		if err != nil {
			return nil, errors.Schemaf("%s: %s", fdp.GetName(), err)
		}
		return fd, nil
	}

	fd, err := protodesc.NewFile(fdp, chainResolver{r.files, protoregistry.GlobalFiles})
	if err != nil {
		return nil, errors.Schemaf("%s: %s", fdp.GetName(), err)
	}
	if err = r.files.RegisterFile(fd); err != nil {
		return nil, errors.Schemaf("%s: %s", fdp.GetName(), err)
	}
	r.fingerprints[fdp.GetName()] = fp
	walkMessages(fd.Messages(), func(md protoreflect.MessageDescriptor) {
		r.messages[md.FullName()] = fp
	})
	glog.V(logging.LevelDebug).Infof("schema %s registered (fingerprint %08x)", fdp.GetName(), fp)
	return fd, nil
}

// LoadDescriptorSet registers every file of a serialized FileDescriptorSet,
// such as one written by protoc --descriptor_set_out --include_imports.
func (r *Registry) LoadDescriptorSet(path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return errors.Configf("cannot read schema file %s: %s", path, err)
	}
	var set descriptorpb.FileDescriptorSet
	if err = proto.Unmarshal(b, &set); err != nil {
		return errors.Configf("%s is not a descriptor set: %s", path, err)
	}
	for _, fdp := range set.GetFile() {
		if r.knownGlobally(fdp.GetName()) {
			continue
		}
		if _, err = r.RegisterFile(fdp); err != nil {
			return errors.Configf("%s: %s", path, err)
		}
	}
	return nil
}

func (r *Registry) knownGlobally(path string) bool {
	_, err := protoregistry.GlobalFiles.FindFileByPath(path)
	return err == nil
}

func (r *Registry) FindMessage(name string) (protoreflect.MessageDescriptor, error) {
	r.mu.RLock()
	d, err := r.files.FindDescriptorByName(protoreflect.FullName(name))
	r.mu.RUnlock()
	if err != nil {
		return nil, errors.Configf("unknown message type %s", name)
	}
	md, ok := d.(protoreflect.MessageDescriptor)
	if !ok {
		return nil, errors.Configf("%s is not a message", name)
	}
	return md, nil
}

// NewMessage returns an empty dynamic message of the named type.
func (r *Registry) NewMessage(name string) (*dynamicpb.Message, error) {
	md, err := r.FindMessage(name)
	if err != nil {
		return nil, err
	}
	return dynamicpb.NewMessage(md), nil
}

func (r *Registry) Fingerprint(name string) (fp uint32, ok bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fp, ok = r.messages[protoreflect.FullName(name)]
	return
}

// Names lists every registered message, nested ones included.
func (r *Registry) Names() []string {
	r.mu.RLock()
	names := make([]string, 0, len(r.messages))
	for n := range r.messages {
		names = append(names, string(n))
	}
	r.mu.RUnlock()
	sort.Strings(names)
	return names
}

func walkMessages(mds protoreflect.MessageDescriptors, fn func(protoreflect.MessageDescriptor)) {
	for i := 0; i < mds.Len(); i++ {
		md := mds.Get(i)
		fn(md)
		walkMessages(md.Messages(), fn)
	}
}

// chainResolver looks up dependencies in the runtime files first, then in
// the descriptors linked into the binary.
type chainResolver struct {
	local  *protoregistry.Files
	global *protoregistry.Files
}

func (c chainResolver) FindFileByPath(path string) (protoreflect.FileDescriptor, error) {
	if fd, err := c.local.FindFileByPath(path); err == nil {
		return fd, nil
	}
	return c.global.FindFileByPath(path)
}

func (c chainResolver) FindDescriptorByName(name protoreflect.FullName) (protoreflect.Descriptor, error) {
	if d, err := c.local.FindDescriptorByName(name); err == nil {
		return d, nil
	}
	return c.global.FindDescriptorByName(name)
}

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

package schema

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protodesc"
	"google.golang.org/protobuf/types/descriptorpb"

	acerrors "acomms/pkg/errors"
)

func testFile() *descriptorpb.FileDescriptorProto {
	b := NewFileBuilder("test/status.proto", "acomms.test")
	b.AddMessage("Position").
		Optional("lat", 1, descriptorpb.FieldDescriptorProto_TYPE_DOUBLE).
		Optional("lon", 2, descriptorpb.FieldDescriptorProto_TYPE_DOUBLE)
	b.AddMessage("Status").
		Optional("name", 1, descriptorpb.FieldDescriptorProto_TYPE_STRING).
		Embedded("pos", 2, "acomms.test.Position", false).
		Enum("mode", 3, "Mode", "MODE_IDLE", "MODE_RUN")
	return b.Build()
}

func TestRegisterFile(t *testing.T) {
	r := New()
	fd, err := r.RegisterFile(testFile())
	if err != nil {
		t.Fatal(err)
	}
	if fd.Messages().Len() != 2 {
		t.Errorf("messages %d", fd.Messages().Len())
	}
	if _, err = r.RegisterFile(testFile()); err != nil {
		t.Errorf("identical file should register again: %v", err)
	}

	changed := testFile()
	changed.MessageType[0].Field[0].Name = proto.String("latitude")
	if _, err = r.RegisterFile(changed); !errors.Is(err, acerrors.ErrSchema) {
		t.Errorf("changed file: %v", err)
	}

	md, err := r.FindMessage("acomms.test.Status")
	if err != nil {
		t.Fatal(err)
	}
	if md.Fields().ByName("pos").Message().FullName() != "acomms.test.Position" {
		t.Error("embedded reference not resolved")
	}
	if _, ok := r.Fingerprint("acomms.test.Status"); !ok {
		t.Error("no fingerprint")
	}
	if _, err = r.NewMessage("acomms.test.Nope"); err == nil {
		t.Error("unknown message")
	}
	names := r.Names()
	if len(names) != 2 || names[0] != "acomms.test.Position" {
		t.Errorf("names %v", names)
	}
}

func TestLoadDescriptorSet(t *testing.T) {
	set := &descriptorpb.FileDescriptorSet{File: []*descriptorpb.FileDescriptorProto{
		protodesc.ToFileDescriptorProto(descriptorpb.File_google_protobuf_descriptor_proto),
		testFile(),
	}}
	b, err := proto.Marshal(set)
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "set.pb")
	if err = os.WriteFile(path, b, 0644); err != nil {
		t.Fatal(err)
	}
	r := New()
	if err = r.LoadDescriptorSet(path); err != nil {
		t.Fatal(err)
	}
	if _, err = r.NewMessage("acomms.test.Status"); err != nil {
		t.Error(err)
	}
	err = r.LoadDescriptorSet(filepath.Join(t.TempDir(), "missing.pb"))
	if acerrors.ErrNo(err) != acerrors.KErrConfig {
		t.Errorf("missing file: %v", err)
	}
}

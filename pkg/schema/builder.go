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
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/descriptorpb"
)

// FileBuilder assembles a proto2 file descriptor for message types defined
// at runtime.
type FileBuilder struct {
	fdp *descriptorpb.FileDescriptorProto
}

type MessageBuilder struct {
	parent string
	dp     *descriptorpb.DescriptorProto
}

func NewFileBuilder(path string, pkg string) *FileBuilder {
	fdp := &descriptorpb.FileDescriptorProto{
		Name:   proto.String(path),
		Syntax: proto.String("proto2"),
	}
	if pkg != "" {
		fdp.Package = proto.String(pkg)
	}
	return &FileBuilder{fdp: fdp}
}

func (b *FileBuilder) Package() string {
	return b.fdp.GetPackage()
}

// FullName qualifies a top-level message name with the file package.
func (b *FileBuilder) FullName(name string) string {
	if b.fdp.GetPackage() == "" {
		return name
	}
	return b.fdp.GetPackage() + "." + name
}

func (b *FileBuilder) AddMessage(name string) *MessageBuilder {
	dp := &descriptorpb.DescriptorProto{Name: proto.String(name)}
	b.fdp.MessageType = append(b.fdp.MessageType, dp)
	return &MessageBuilder{parent: b.FullName(name), dp: dp}
}

// AddDescriptor appends a message descriptor built elsewhere.
func (b *FileBuilder) AddDescriptor(dp *descriptorpb.DescriptorProto) {
	b.fdp.MessageType = append(b.fdp.MessageType, dp)
}

func (b *FileBuilder) Build() *descriptorpb.FileDescriptorProto {
	return b.fdp
}

func (m *MessageBuilder) FullName() string {
	return m.parent
}

func (m *MessageBuilder) Descriptor() *descriptorpb.DescriptorProto {
	return m.dp
}

func (m *MessageBuilder) add(name string, num int32, typ descriptorpb.FieldDescriptorProto_Type, repeated bool) *descriptorpb.FieldDescriptorProto {
	label := descriptorpb.FieldDescriptorProto_LABEL_OPTIONAL
	if repeated {
		label = descriptorpb.FieldDescriptorProto_LABEL_REPEATED
	}
	fd := &descriptorpb.FieldDescriptorProto{
		Name:   proto.String(name),
		Number: proto.Int32(num),
		Label:  label.Enum(),
		Type:   typ.Enum(),
	}
	m.dp.Field = append(m.dp.Field, fd)
	return fd
}

func (m *MessageBuilder) Optional(name string, num int32, typ descriptorpb.FieldDescriptorProto_Type) *MessageBuilder {
	m.add(name, num, typ, false)
	return m
}

func (m *MessageBuilder) Repeated(name string, num int32, typ descriptorpb.FieldDescriptorProto_Type) *MessageBuilder {
	m.add(name, num, typ, true)
	return m
}

// Embedded adds a message-typed field. typeName is fully qualified.
func (m *MessageBuilder) Embedded(name string, num int32, typeName string, repeated bool) *MessageBuilder {
	fd := m.add(name, num, descriptorpb.FieldDescriptorProto_TYPE_MESSAGE, repeated)
	fd.TypeName = proto.String("." + typeName)
	return m
}

// Enum declares a nested enum with values numbered from 0 and a field of
// that type.
func (m *MessageBuilder) Enum(name string, num int32, enumName string, values ...string) *MessageBuilder {
	ed := &descriptorpb.EnumDescriptorProto{Name: proto.String(enumName)}
	for i, v := range values {
		ed.Value = append(ed.Value, &descriptorpb.EnumValueDescriptorProto{
			Name:   proto.String(v),
			Number: proto.Int32(int32(i)),
		})
	}
	m.dp.EnumType = append(m.dp.EnumType, ed)
	fd := m.add(name, num, descriptorpb.FieldDescriptorProto_TYPE_ENUM, false)
	fd.TypeName = proto.String("." + m.parent + "." + enumName)
	return m
}

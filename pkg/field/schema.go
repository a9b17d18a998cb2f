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

package field

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/descriptorpb"
)

var schemaTypes = map[Type]string{
	TypeInt:    "int32",
	TypeFloat:  "double",
	TypeBool:   "bool",
	TypeString: "string",
	TypeHex:    "bytes",
	TypeStatic: "string",
}

var descriptorTypes = map[Type]descriptorpb.FieldDescriptorProto_Type{
	TypeInt:    descriptorpb.FieldDescriptorProto_TYPE_INT32,
	TypeFloat:  descriptorpb.FieldDescriptorProto_TYPE_DOUBLE,
	TypeBool:   descriptorpb.FieldDescriptorProto_TYPE_BOOL,
	TypeString: descriptorpb.FieldDescriptorProto_TYPE_STRING,
	TypeHex:    descriptorpb.FieldDescriptorProto_TYPE_BYTES,
	TypeEnum:   descriptorpb.FieldDescriptorProto_TYPE_ENUM,
	TypeStatic: descriptorpb.FieldDescriptorProto_TYPE_STRING,
}

// EnumName is the name of the nested enum declared for an enum field.
func (f *Field) EnumName() string {
	n := f.Name + "Enum"
	return strings.ToUpper(n[:1]) + n[1:]
}

func (f *Field) label() string {
	if f.Repeated() {
		return "repeated"
	}
	return "optional"
}

// options lists the bracketed annotations in their fixed order.
func (f *Field) options() []string {
	var opts []string
	switch f.Type {
	case TypeInt, TypeFloat:
		if f.HasMax {
			opts = append(opts, "(dccl.field).max="+strconv.FormatFloat(f.Max, 'f', f.Precision, 64))
		}
		if f.HasMin {
			opts = append(opts, "(dccl.field).min="+strconv.FormatFloat(f.Min, 'f', f.Precision, 64))
		}
		if f.Type == TypeFloat {
			opts = append(opts, "(dccl.field).precision="+strconv.Itoa(f.Precision))
		}
	case TypeString:
		opts = append(opts, "(dccl.field).max_length="+strconv.Itoa(f.MaxLength))
	case TypeHex:
		opts = append(opts, "(dccl.field).max_length="+strconv.Itoa(f.NumBytes))
	case TypeStatic:
		// repeated fields cannot carry a default
		if !f.Repeated() {
			opts = append(opts, fmt.Sprintf(`default="%s"`, f.StaticValue))
		}
		opts = append(opts, fmt.Sprintf(`(dccl.field).static_value="%s", (dccl.field).codec="_static"`, f.StaticValue))
	}
	if f.Repeated() {
		opts = append(opts, "(dccl.field).max_repeat="+strconv.Itoa(f.ArrayLength))
	}
	if extra := f.extraOptions(); extra != "" {
		opts = append(opts, extra)
	}
	return opts
}

func (f *Field) extraOptions() string {
	switch f.Head {
	case HeadSrcID:
		return "(goby.field).dccl.in_head=true, (goby.field).queue.is_src=true"
	case HeadDestID:
		return "(goby.field).dccl.in_head=true, (goby.field).queue.is_dest=true"
	}
	return ""
}

// WriteSchema assigns seq to the field and writes its declaration.
func (f *Field) WriteSchema(w io.Writer, seq int) (err error) {
	f.SequenceNumber = seq
	if f.Head == HeadTime {
		_, err = fmt.Fprintf(w, "\toptional double %s = %d [(goby.field).dccl.codec=\"_time\", (goby.field).dccl.in_head=true, (goby.field).queue.is_time=true];\n",
			f.Name, seq)
		return
	}
	typ := schemaTypes[f.Type]
	if f.Type == TypeEnum {
		typ = f.EnumName()
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "\t%s %s %s = %d", f.label(), typ, f.Name, seq)
	if opts := f.options(); len(opts) > 0 {
		sb.WriteString(" [")
		sb.WriteString(strings.Join(opts, ", "))
		sb.WriteString("]")
	}
	sb.WriteString(";\n")
	if f.Type == TypeEnum {
		fmt.Fprintf(&sb, "\tenum %s{ \n", f.EnumName())
		for i, e := range f.Enums {
			fmt.Fprintf(&sb, "\t\t %s = %d; \n", f.FullEnum(e), i)
		}
		sb.WriteString("\t} \n")
	}
	_, err = io.WriteString(w, sb.String())
	return
}

// Descriptor builds the reflective declaration matching WriteSchema.
// parent is the fully qualified name of the enclosing message.
func (f *Field) Descriptor(parent string) *descriptorpb.FieldDescriptorProto {
	label := descriptorpb.FieldDescriptorProto_LABEL_OPTIONAL
	if f.Repeated() {
		label = descriptorpb.FieldDescriptorProto_LABEL_REPEATED
	}
	fd := &descriptorpb.FieldDescriptorProto{
		Name:   proto.String(f.Name),
		Number: proto.Int32(int32(f.SequenceNumber)),
		Label:  label.Enum(),
		Type:   descriptorTypes[f.Type].Enum(),
	}
	switch f.Type {
	case TypeEnum:
		fd.TypeName = proto.String("." + parent + "." + f.EnumName())
	case TypeStatic:
		if !f.Repeated() {
			fd.DefaultValue = proto.String(f.StaticValue)
		}
	}
	return fd
}

// EnumDescriptor returns the nested enum for an enum field, nil otherwise.
func (f *Field) EnumDescriptor() *descriptorpb.EnumDescriptorProto {
	if f.Type != TypeEnum {
		return nil
	}
	ed := &descriptorpb.EnumDescriptorProto{Name: proto.String(f.EnumName())}
	for i, e := range f.Enums {
		ed.Value = append(ed.Value, &descriptorpb.EnumValueDescriptorProto{
			Name:   proto.String(f.FullEnum(e)),
			Number: proto.Int32(int32(i)),
		})
	}
	return ed
}

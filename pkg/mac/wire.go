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

package mac

import (
	"strings"

	"github.com/golang/glog"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/descriptorpb"

	"acomms/pkg/errors"
	"acomms/pkg/schema"
	"acomms/pkg/translate"
)

// Message types of the schedule payloads published on the bus.
const (
	SlotMessage   = "acomms.mac.Slot"
	UpdateMessage = "acomms.mac.MACUpdate"
)

const (
	tUint32 = descriptorpb.FieldDescriptorProto_TYPE_UINT32
	tInt32  = descriptorpb.FieldDescriptorProto_TYPE_INT32
	tDouble = descriptorpb.FieldDescriptorProto_TYPE_DOUBLE
	tBool   = descriptorpb.FieldDescriptorProto_TYPE_BOOL
)

var wireSchemas = newWireSchemas()

func newWireSchemas() *schema.Registry {
	b := schema.NewFileBuilder("acomms/mac/mac_update.proto", "acomms.mac")
	b.AddMessage("Slot").
		Optional("src", 1, tUint32).
		Optional("dest", 2, tUint32).
		Optional("rate", 3, tInt32).
		Enum("type", 4, "SlotType", slotTypeNames...).
		Optional("slot_seconds", 5, tDouble).
		Optional("always_initiate", 6, tBool)
	u := b.AddMessage("MACUpdate").
		Optional("dest", 1, tUint32).
		Enum("update_type", 2, "UpdateType", updateTypeNames...).
		Optional("first_iterator", 3, tInt32).
		Optional("second_iterator", 4, tInt32).
		Embedded("slot", 5, SlotMessage, true).
		Enum("cycle_state", 6, "CycleState", cycleStateNames...)
	for _, fd := range u.Descriptor().Field {
		if fd.GetName() == "second_iterator" {
			fd.DefaultValue = proto.String("-1")
		}
	}
	r := schema.New()
	if _, err := r.RegisterFile(b.Build()); err != nil {
		panic(err)
	}
	return r
}

func newWireMessage(name string) protoreflect.Message {
	m, err := wireSchemas.NewMessage(name)
	if err != nil {
		panic(err)
	}
	return m
}

func fieldByName(m protoreflect.Message, name string) protoreflect.FieldDescriptor {
	return m.Descriptor().Fields().ByName(protoreflect.Name(name))
}

func setField(m protoreflect.Message, name string, v protoreflect.Value) {
	m.Set(fieldByName(m, name), v)
}

func getField(m protoreflect.Message, name string) protoreflect.Value {
	return m.Get(fieldByName(m, name))
}

func slotToMessage(s Slot, m protoreflect.Message) {
	setField(m, "src", protoreflect.ValueOfUint32(s.Src))
	setField(m, "dest", protoreflect.ValueOfUint32(s.Dest))
	setField(m, "rate", protoreflect.ValueOfInt32(int32(s.Rate)))
	setField(m, "type", protoreflect.ValueOfEnum(protoreflect.EnumNumber(s.Type)))
	setField(m, "slot_seconds", protoreflect.ValueOfFloat64(s.SlotSeconds))
	setField(m, "always_initiate", protoreflect.ValueOfBool(s.AlwaysInitiate))
}

func slotFromMessage(m protoreflect.Message) (s Slot, err error) {
	s.Src = uint32(getField(m, "src").Uint())
	s.Dest = uint32(getField(m, "dest").Uint())
	s.Rate = int(getField(m, "rate").Int())
	t := getField(m, "type").Enum()
	if t < 0 || int(t) >= len(slotTypeNames) {
		return s, errors.Translatef("slot type %d", t)
	}
	s.Type = SlotType(t)
	s.SlotSeconds = getField(m, "slot_seconds").Float()
	s.AlwaysInitiate = getField(m, "always_initiate").Bool()
	return
}

func updateToMessage(u Update) protoreflect.Message {
	m := newWireMessage(UpdateMessage)
	setField(m, "dest", protoreflect.ValueOfUint32(u.Dest))
	setField(m, "update_type", protoreflect.ValueOfEnum(protoreflect.EnumNumber(u.Type)))
	setField(m, "first_iterator", protoreflect.ValueOfInt32(int32(u.FirstOffset)))
	setField(m, "second_iterator", protoreflect.ValueOfInt32(int32(u.SecondOffset)))
	list := m.Mutable(fieldByName(m, "slot")).List()
	for _, s := range u.Slots {
		e := list.NewElement()
		slotToMessage(s, e.Message())
		list.Append(e)
	}
	if u.CycleState != CycleUnchanged {
		setField(m, "cycle_state", protoreflect.ValueOfEnum(protoreflect.EnumNumber(u.CycleState)))
	}
	return m
}

func updateFromMessage(m protoreflect.Message) (u Update, err error) {
	if !m.Has(fieldByName(m, "update_type")) {
		return u, errors.Translatef("update without an update_type")
	}
	t := getField(m, "update_type").Enum()
	if t < 0 || int(t) >= len(updateTypeNames) {
		return u, errors.Translatef("update type %d", t)
	}
	c := getField(m, "cycle_state").Enum()
	if c < 0 || int(c) >= len(cycleStateNames) {
		return u, errors.Translatef("cycle state %d", c)
	}
	u.Dest = uint32(getField(m, "dest").Uint())
	u.Type = UpdateType(t)
	u.FirstOffset = int(getField(m, "first_iterator").Int())
	u.SecondOffset = int(getField(m, "second_iterator").Int())
	u.CycleState = CycleState(c)
	list := getField(m, "slot").List()
	for i := 0; i < list.Len(); i++ {
		s, err := slotFromMessage(list.Get(i).Message())
		if err != nil {
			return u, err
		}
		u.Slots = append(u.Slots, s)
	}
	return
}

func serializeWire(m protoreflect.Message) string {
	text, err := translate.Serialize(translate.TechniqueSchemaText, m.Interface(), translate.Options{})
	if err != nil {
		glog.Errorf("%s: %s", m.Descriptor().FullName(), err)
	}
	return text
}

func parseWire(text string, name string) (protoreflect.Message, error) {
	m := newWireMessage(name)
	if err := translate.Parse(translate.TechniqueSchemaText, strings.TrimSpace(text), m.Interface(), translate.Options{}); err != nil {
		return nil, err
	}
	return m, nil
}

// FormatUpdate renders u as a schema text payload, for example
//
//	@PB[acomms.mac.MACUpdate] dest: 1 update_type: PUSH_BACK slot { src: 2 dest: 1 slot_seconds: 10 }
func FormatUpdate(u Update) string {
	return serializeWire(updateToMessage(u))
}

// ParseUpdate reads an acomms.mac.MACUpdate payload, with or without its
// @PB[...] prefix. update_type is required; second_iterator defaults to -1.
func ParseUpdate(text string) (Update, error) {
	m, err := parseWire(text, UpdateMessage)
	if err != nil {
		return Update{SecondOffset: -1}, err
	}
	return updateFromMessage(m)
}

// FormatSlot renders s as an acomms.mac.Slot schema text payload.
func FormatSlot(s Slot) string {
	m := newWireMessage(SlotMessage)
	slotToMessage(s, m)
	return serializeWire(m)
}

func ParseSlot(text string) (Slot, error) {
	m, err := parseWire(text, SlotMessage)
	if err != nil {
		return Slot{}, err
	}
	return slotFromMessage(m)
}

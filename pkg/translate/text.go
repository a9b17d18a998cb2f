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

	"google.golang.org/protobuf/encoding/prototext"
	"google.golang.org/protobuf/proto"

	"acomms/pkg/errors"
	"acomms/pkg/schema"
)

// SchemaTextPrefix starts a payload that names its own message type:
// "@PB[<full name>] <text>".
const SchemaTextPrefix = "@PB"

func serializeText(msg proto.Message) (string, error) {
	b, err := prototext.MarshalOptions{Multiline: false}.Marshal(msg)
	if err != nil {
		return "", errors.Translatef("text encoding %s: %s", msg.ProtoReflect().Descriptor().FullName(), err)
	}
	return strings.TrimSpace(string(b)), nil
}

func parseText(payload string, msg proto.Message) error {
	if err := prototext.Unmarshal([]byte(payload), msg); err != nil {
		return errors.Translatef("text payload for %s: %s", msg.ProtoReflect().Descriptor().FullName(), err)
	}
	return nil
}

func serializePrefixed(msg proto.Message) (string, error) {
	body, err := serializeText(msg)
	if err != nil {
		return "", err
	}
	return SchemaTextPrefix + "[" + string(msg.ProtoReflect().Descriptor().FullName()) + "] " + body, nil
}

// splitPrefix returns the type name and body of a prefixed payload. ok is
// false when payload carries no prefix.
func splitPrefix(payload string) (name string, body string, ok bool, err error) {
	if len(payload) <= len(SchemaTextPrefix) || !strings.HasPrefix(payload, SchemaTextPrefix) {
		return "", "", false, nil
	}
	end := strings.IndexByte(payload, ']')
	if end < 0 || payload[len(SchemaTextPrefix)] != '[' {
		return "", "", true, errors.Translatef("incorrectly formatted schema text payload: %.40q", payload)
	}
	return payload[len(SchemaTextPrefix)+1 : end], payload[end+1:], true, nil
}

func parsePrefixed(payload string, msg proto.Message) error {
	name, body, ok, err := splitPrefix(payload)
	if err != nil {
		return err
	}
	if !ok {
		return parseText(payload, msg)
	}
	want := string(msg.ProtoReflect().Descriptor().FullName())
	if name != want {
		return errors.Translatef("wrong message type in payload: expected %s, received %s", want, name)
	}
	if strings.TrimSpace(body) == "" {
		proto.Reset(msg)
		return nil
	}
	return parseText(body, msg)
}

// DynamicParse builds the message named by a prefixed payload.
func DynamicParse(payload string, reg *schema.Registry) (proto.Message, error) {
	name, body, ok, err := splitPrefix(payload)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errors.Translatef("payload has no %s[type] prefix", SchemaTextPrefix)
	}
	msg, err := reg.NewMessage(name)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(body) != "" {
		if err = parseText(body, msg); err != nil {
			return nil, err
		}
	}
	return msg, nil
}

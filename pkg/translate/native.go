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
	"github.com/golang/snappy"
	"google.golang.org/protobuf/proto"

	"acomms/pkg/errors"
)

// CompressSnappy is the only compression a native serializer may ask for.
const CompressSnappy = "snappy"

func serializeNative(msg proto.Message, compress string) (string, error) {
	b, err := proto.Marshal(msg)
	if err != nil {
		return "", errors.Translatef("encoding %s: %s", msg.ProtoReflect().Descriptor().FullName(), err)
	}
	if compress == CompressSnappy {
		b = snappy.Encode(nil, b)
	}
	return string(b), nil
}

func parseNative(payload string, msg proto.Message, compress string) error {
	b := []byte(payload)
	if compress == CompressSnappy {
		var err error
		if b, err = snappy.Decode(nil, b); err != nil {
			return errors.Translatef("snappy payload for %s: %s", msg.ProtoReflect().Descriptor().FullName(), err)
		}
	}
	if err := proto.Unmarshal(b, msg); err != nil {
		return errors.Translatef("decoding %s: %s", msg.ProtoReflect().Descriptor().FullName(), err)
	}
	return nil
}

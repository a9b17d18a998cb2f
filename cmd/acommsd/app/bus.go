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

package app

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/golang/glog"

	"acomms/pkg/errors"
	"acomms/pkg/logging"
	"acomms/pkg/translate"
	"acomms/pkg/value"
)

// Bus carries named variables in and out of the node.
type Bus interface {
	Publish(v translate.Variable) error
	Variables() <-chan translate.Variable
}

// LineBus reads and writes one "NAME payload" variable per line.
type LineBus struct {
	mtx  sync.Mutex
	w    *bufio.Writer
	vars chan translate.Variable
}

// NewLineBus starts reading r. The variable channel is closed once r is
// exhausted or ctx is done.
func NewLineBus(ctx context.Context, r io.Reader, w io.Writer) *LineBus {
	b := &LineBus{
		w:    bufio.NewWriter(w),
		vars: make(chan translate.Variable, 64),
	}
	go b.read(ctx, r)
	return b
}

func (b *LineBus) read(ctx context.Context, r io.Reader) {
	defer close(b.vars)
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		v, err := ParseLine(line)
		if err != nil {
			glog.Warningf("%s", logging.NewKVBufferForLog().AddDropReason(err.Error()))
			continue
		}
		select {
		case b.vars <- v:
		case <-ctx.Done():
			return
		}
	}
	if err := scanner.Err(); err != nil {
		glog.Errorf("bus read: %s", err)
	}
}

func (b *LineBus) Variables() <-chan translate.Variable {
	return b.vars
}

func (b *LineBus) Publish(v translate.Variable) error {
	b.mtx.Lock()
	defer b.mtx.Unlock()
	if _, err := fmt.Fprintln(b.w, FormatLine(v)); err != nil {
		return err
	}
	return b.w.Flush()
}

// ParseLine splits "NAME payload". The payload is kept as text.
func ParseLine(line string) (translate.Variable, error) {
	name, payload := line, ""
	if i := strings.IndexAny(line, " \t"); i >= 0 {
		name, payload = line[:i], strings.TrimLeft(line[i+1:], " \t")
	}
	if name == "" {
		return translate.Variable{}, errors.Translatef("bus line without a name: %q", line)
	}
	return translate.Variable{Name: name, Value: value.String(payload)}, nil
}

// FormatLine writes doubles in their shortest form.
func FormatLine(v translate.Variable) string {
	return v.Name + " " + v.Value.Text()
}

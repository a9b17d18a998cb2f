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

// Package errors defines the error classes shared by the codec, translator
// and schedule packages.
package errors

import (
	"errors"
	"fmt"
)

const (
	KErrNone uint32 = iota
	// raised while building schemas and translator entries
	KErrSchema
	// rejected schedule update
	KErrPrecondition
	// aborts startup
	KErrConfig
	// malformed payload
	KErrTranslate
)

var errNoNames = map[uint32]string{
	KErrNone:         "none",
	KErrSchema:       "schema",
	KErrPrecondition: "precondition",
	KErrConfig:       "config",
	KErrTranslate:    "translate",
}

var (
	ErrSchema       = &Error{what: "schema error", errno: KErrSchema}
	ErrPrecondition = &Error{what: "precondition violated", errno: KErrPrecondition}
	ErrConfig       = &Error{what: "configuration error", errno: KErrConfig}
	ErrTranslate    = &Error{what: "malformed payload", errno: KErrTranslate}
)

type Error struct {
	what  string
	errno uint32
}

func NewError(what string, errno uint32) *Error {
	return &Error{what: what, errno: errno}
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s error: %s", ErrNoName(e.errno), e.what)
}

func (e *Error) ErrNo() uint32 {
	return e.errno
}

// Is matches any *Error of the same class, so errors.Is(err, ErrSchema)
// holds for every schema error.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return t.errno == e.errno && (t.what == e.what || isClass(t))
	}
	return false
}

func isClass(e *Error) bool {
	switch e {
	case ErrSchema, ErrPrecondition, ErrConfig, ErrTranslate:
		return true
	}
	return false
}

func ErrNoName(errno uint32) string {
	if n, ok := errNoNames[errno]; ok {
		return n
	}
	return fmt.Sprintf("errno(%d)", errno)
}

// Schemaf returns a schema class error with a formatted description.
func Schemaf(format string, a ...interface{}) error {
	return NewError(fmt.Sprintf(format, a...), KErrSchema)
}

func Preconditionf(format string, a ...interface{}) error {
	return NewError(fmt.Sprintf(format, a...), KErrPrecondition)
}

func Configf(format string, a ...interface{}) error {
	return NewError(fmt.Sprintf(format, a...), KErrConfig)
}

func Translatef(format string, a ...interface{}) error {
	return NewError(fmt.Sprintf(format, a...), KErrTranslate)
}

// ErrNo returns the class of the first *Error found in err's chain,
// KErrNone if there is none.
func ErrNo(err error) uint32 {
	var e *Error
	if errors.As(err, &e) {
		return e.errno
	}
	return KErrNone
}

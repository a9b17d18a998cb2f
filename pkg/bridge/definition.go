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

// Package bridge converts legacy field-list message definitions into
// generated schemas and translator entries, and marshals field values in
// and out of the generated messages.
package bridge

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"acomms/pkg/errors"
)

const (
	FormatTOML = "toml"
	FormatYAML = "yaml"
)

// FieldDef is one <layout> entry of a legacy definition.
type FieldDef struct {
	Name        string   `toml:"name" yaml:"name"`
	Type        string   `toml:"type" yaml:"type"`
	SourceVar   string   `toml:"src_var" yaml:"src_var"`
	SourceKey   string   `toml:"src_key" yaml:"src_key"`
	Algorithms  []string `toml:"algorithms" yaml:"algorithms"`
	ArrayLength int      `toml:"array_length" yaml:"array_length"`
	Max         *float64 `toml:"max" yaml:"max"`
	Min         *float64 `toml:"min" yaml:"min"`
	Precision   int      `toml:"precision" yaml:"precision"`
	MaxDelta    *float64 `toml:"max_delta" yaml:"max_delta"`
	MaxLength   int      `toml:"max_length" yaml:"max_length"`
	NumBytes    int      `toml:"num_bytes" yaml:"num_bytes"`
	Values      []string `toml:"values" yaml:"values"`
	Value       string   `toml:"value" yaml:"value"`
}

// HeaderDef overrides the name or bus binding of one header part. Part is
// the default header name, with or without the leading underscore.
type HeaderDef struct {
	Part       string   `toml:"part" yaml:"part"`
	Name       string   `toml:"name" yaml:"name"`
	SourceVar  string   `toml:"src_var" yaml:"src_var"`
	SourceKey  string   `toml:"src_key" yaml:"src_key"`
	Algorithms []string `toml:"algorithms" yaml:"algorithms"`
}

// PublishDef renders a decoded message onto one bus variable. Algorithms
// runs parallel to Names; %k in Var and Format refers to the k-th value
// the names expand to.
type PublishDef struct {
	Var        string     `toml:"var" yaml:"var"`
	Format     string     `toml:"format" yaml:"format"`
	All        bool       `toml:"all" yaml:"all"`
	Names      []string   `toml:"names" yaml:"names"`
	Algorithms [][]string `toml:"algorithms" yaml:"algorithms"`
}

type Definition struct {
	Name             string       `toml:"name" yaml:"name"`
	ID               uint32       `toml:"id" yaml:"id"`
	Size             int          `toml:"size" yaml:"size"`
	Trigger          string       `toml:"trigger" yaml:"trigger"`
	TriggerVar       string       `toml:"trigger_var" yaml:"trigger_var"`
	TriggerMandatory string       `toml:"trigger_mandatory" yaml:"trigger_mandatory"`
	TriggerTime      float64      `toml:"trigger_time" yaml:"trigger_time"`
	InVar            string       `toml:"in_var" yaml:"in_var"`
	OutVar           string       `toml:"out_var" yaml:"out_var"`
	Header           []HeaderDef  `toml:"header" yaml:"header"`
	Layout           []FieldDef   `toml:"layout" yaml:"layout"`
	Publish          []PublishDef `toml:"publish" yaml:"publish"`
}

// File is a set of definitions loaded together.
type File struct {
	Messages []Definition `toml:"message" yaml:"message"`
}

// FormatOf picks the definition format from a file extension.
func FormatOf(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return FormatTOML, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	}
	return "", errors.Configf("cannot tell the definition format of %s", path)
}

func LoadFile(path string) (*File, error) {
	format, err := FormatOf(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Configf("cannot open message definitions %s: %s", path, err)
	}
	defer f.Close()
	return Parse(f, format)
}

func Parse(r io.Reader, format string) (*File, error) {
	file := &File{}
	switch format {
	case FormatTOML:
		if _, err := toml.NewDecoder(r).Decode(file); err != nil {
			return nil, errors.Configf("message definitions: %s", err)
		}
	case FormatYAML:
		dec := yaml.NewDecoder(r)
		dec.KnownFields(true)
		if err := dec.Decode(file); err != nil && err != io.EOF {
			return nil, errors.Configf("message definitions: %s", err)
		}
	default:
		return nil, errors.Configf("unknown definition format %q", format)
	}
	return file, nil
}

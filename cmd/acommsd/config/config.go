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

// Package config holds the node configuration.
package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/golang/glog"

	"acomms/pkg/cfg"
	"acomms/pkg/errors"
	"acomms/pkg/initmgr"
	"acomms/pkg/mac"
	"acomms/pkg/translate"
	"acomms/pkg/util"
)

var (
	Initializer initmgr.IInitializer = initmgr.NewInitializer(initialize, finalize)

	Conf = Config{
		LogLevel:      "info",
		PollInterval:  util.Duration{Duration: 100 * time.Millisecond},
		StatsInterval: util.Duration{Duration: 0},
		MACUpdateVar:  "MAC_UPDATE",
		InitiateVar:   "MAC_INITIATE_TRANSMISSION",
		SlotStartVar:  "MAC_SLOT_START",
		MAC:           mac.DefaultConfig,
	}
)

type CodecConfig struct {
	RootDir string
	// legacy message definitions, .toml or .yaml
	MessageFiles []string
	// binary FileDescriptorSet files
	DescriptorSets []string
	// the generated schema text of each message file is written here
	ProtoOutputDir string

	UseGeodesy bool
	LatOrigin  float64
	LonOrigin  float64

	ModemLookup string
}

type Config struct {
	ModemID       uint32
	LogLevel      string
	PollInterval  util.Duration
	StatsInterval util.Duration

	MACUpdateVar string
	InitiateVar  string
	SlotStartVar string

	Codec      CodecConfig
	Translator []translate.Entry
	MAC        mac.Config
}

func (c *Config) Dump() {
	var buf bytes.Buffer
	toml.NewEncoder(&buf).Encode(c)
	glog.Info(buf.String())
}

// set path to be under Codec.RootDir if not an absolute path
func (c *Config) validatePath(path *string) {
	if path != nil && len(*path) != 0 && !filepath.IsAbs(*path) {
		*path = filepath.Clean(filepath.Join(c.Codec.RootDir, *path))
	}
}

func (c *Config) validatePathAndFileNames() {
	if len(c.Codec.RootDir) == 0 {
		c.Codec.RootDir = "."
	}
	for i := range c.Codec.MessageFiles {
		c.validatePath(&c.Codec.MessageFiles[i])
	}
	for i := range c.Codec.DescriptorSets {
		c.validatePath(&c.Codec.DescriptorSets[i])
	}
	c.validatePath(&c.Codec.ProtoOutputDir)
	c.validatePath(&c.Codec.ModemLookup)
}

func (c *Config) Validate() (err error) {
	if c.ModemID == mac.BroadcastID {
		return errors.Configf("ModemID %d is the broadcast id", c.ModemID)
	}
	if c.MAC.ModemID == 0 {
		c.MAC.ModemID = c.ModemID
	}
	if c.MAC.ModemID != c.ModemID {
		return errors.Configf("MAC.ModemID %d differs from ModemID %d", c.MAC.ModemID, c.ModemID)
	}
	if c.PollInterval.Duration <= 0 {
		return errors.Configf("PollInterval must be positive")
	}
	if c.MACUpdateVar == "" {
		return errors.Configf("MACUpdateVar not set")
	}
	if err = c.MAC.Validate(); err != nil {
		glog.Errorf("config error: %s", err)
	}
	return
}

// LoadConfig reads file into Conf, with overrides such as MAC.ModemID=3
// applied over the file.
func LoadConfig(file string, overrides ...string) (err error) {
	var c cfg.Config
	if err = c.ReadFromTomlFile(file); err != nil {
		return errors.Configf("%s: %s", file, err)
	}
	for _, o := range overrides {
		if err = c.Set(o); err != nil {
			return errors.Configf("override %s: %s", o, err)
		}
	}
	if err = c.WriteTo(&Conf); err != nil {
		return errors.Configf("%s: %s", file, err)
	}
	Conf.validatePathAndFileNames()
	return Conf.Validate()
}

func initialize(args ...interface{}) (err error) {
	if len(args) < 1 {
		return fmt.Errorf("a string config file name argument expected")
	}
	filename, ok := args[0].(string)
	if !ok {
		return fmt.Errorf("wrong argument type. a string config file name expected")
	}
	var overrides []string
	if len(args) > 1 {
		if overrides, ok = args[1].([]string); !ok {
			return fmt.Errorf("wrong argument type. a list of overrides expected")
		}
	}
	if _, err = os.Stat(filename); err != nil {
		return errors.Configf("config file %s: %s", filename, err)
	}
	return LoadConfig(filename, overrides...)
}

func finalize() {
}

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

/*
Package app runs one acoustic communications node: message translation
over a line bus and the slot schedule of its modem.
*/
package app

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/golang/glog"

	"acomms/cmd/acommsd/config"
	"acomms/pkg/cmd"
	"acomms/pkg/initmgr"
	"acomms/pkg/logging"
	"acomms/pkg/util"
	"acomms/pkg/version"
)

func Main() {
	defer initmgr.Finalize()

	progName := filepath.Base(os.Args[0])
	var (
		option         cmd.Option
		displayVersion bool
		dumpConfig     bool
		configFilename string
		overrides      util.StringListFlags
	)
	option.BoolOption(&displayVersion, "version", false, "display version info")
	option.BoolOption(&dumpConfig, "dump", false, "log the effective configuration")
	option.StringOption(&configFilename, "c|config", "", "specify toml config file")
	option.ValueOption(&overrides, "set", "override a config property, e.g. -set MAC.StartCycleInMiddle=false")

	option.Usage = func() {
		fmt.Fprintf(os.Stderr, `
NAME
  %s - acoustic communications node

USAGE
  %s <-version>
  %s <-c|-config=<config file>> <-set Key=Value>...

OPTIONS
%s
  Variables are read from stdin and published to stdout, one per line
  as "NAME payload".
`, progName, progName, progName, option.GetOptionDesc())
	}
	if err := option.Parse(os.Args[1:]); err != nil {
		return
	}
	if displayVersion {
		version.PrintVersionInfo()
		if configFilename == "" {
			return
		}
	}
	if configFilename == "" {
		glog.Exitf("\n\n*** missing config option ***\n\n")
	}
	if _, err := os.Stat(configFilename); errors.Is(err, fs.ErrNotExist) {
		glog.Exitf("\n\n***  config file \"%s\" not found ***\n\n", configFilename)
	}

	initmgr.Register(config.Initializer, configFilename, []string(overrides))
	initmgr.Init() // config first, logging depends on it

	cfg := &config.Conf
	initmgr.RegisterWithFuncs(initLogging, glog.Flush, cfg.LogLevel, "["+progName+"]")
	initmgr.Init()
	if dumpConfig {
		cfg.Dump()
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	bus := NewLineBus(ctx, os.Stdin, os.Stdout)
	node, err := NewNode(cfg, bus, nil)
	if err != nil {
		glog.Exitf("cannot start node %d: %s", cfg.ModemID, err)
	}
	logging.LogNodeStart(cfg.ModemID)
	if err = node.Run(ctx); err != nil {
		glog.Errorf("node %d: %s", cfg.ModemID, err)
	}
	logging.LogNodeExit(cfg.ModemID)
}

func initLogging(args ...interface{}) error {
	if len(args) < 2 {
		return fmt.Errorf("log level and app name expected")
	}
	level, ok := args[0].(string)
	if !ok {
		return fmt.Errorf("wrong argument type. a string log level expected")
	}
	name, ok := args[1].(string)
	if !ok {
		return fmt.Errorf("wrong argument type. a string app name expected")
	}
	logging.InitLogging(level, name)
	return nil
}

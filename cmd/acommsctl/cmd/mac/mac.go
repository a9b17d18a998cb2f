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

// Package mac holds the commands that work on slot schedules offline.
package mac

import (
	"fmt"
	"os"

	"acomms/cmd/acommsd/config"
	"acomms/pkg/cmd"
	"acomms/pkg/mac"
	"acomms/pkg/util"
)

type cmdApplyT struct {
	cmd.Command
	optConfig  string
	optUpdates util.StringListFlags
}

func (c *cmdApplyT) Init(name string, desc string) {
	c.Command.Init(name, desc)
	c.StringOption(&c.optConfig, "c|config", "", "node configuration holding the initial schedule")
	c.ValueOption(&c.optUpdates, "u|update", "acomms.mac.MACUpdate text, applied in order")
	c.SetSynopsis("-c <config file> -u <update> [-u <update>]...")
	c.AddExample(name+` -c node.toml -u "dest: 1 update_type: POP_FRONT"`, "show the schedule of node 1 without its first slot")
}

func (c *cmdApplyT) Exec() {
	c.Validate()
	if c.optConfig == "" {
		fmt.Fprintln(os.Stderr, "no config file")
		return
	}
	if err := config.LoadConfig(c.optConfig); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		return
	}
	modemID := config.Conf.MAC.ModemID
	schedule := mac.NewSchedule(config.Conf.MAC.Slot)
	fmt.Printf("initial %s, cycle %s\n", schedule.Describe(-1), schedule.CycleDuration())
	for _, text := range c.optUpdates {
		u, err := mac.ParseUpdate(text)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s\n", err)
			return
		}
		fmt.Printf("update  %s\n", mac.FormatUpdate(u))
		if u.Dest != modemID {
			fmt.Printf("        ignored, not for modem %d\n", modemID)
			continue
		}
		if err = schedule.Apply(u); err != nil {
			fmt.Printf("        rejected: %s\n", err)
			continue
		}
		fmt.Printf("        %s, cycle %s\n", schedule.Describe(-1), schedule.CycleDuration())
	}
}

type cmdFormatT struct {
	cmd.Command
}

func (c *cmdFormatT) Init(name string, desc string) {
	c.Command.Init(name, desc)
	c.SetSynopsis("<update> [<update>]")
	c.AddDetails("\tPrints each update as an @PB[acomms.mac.MACUpdate] payload, the form the node reads from its update variable.\n")
	c.AddExample(name+` "dest: 2 update_type: PUSH_BACK slot { src: 2 slot_seconds: 10 }"`, "add a ten second slot for modem 2")
}

// Exec prints each update as a prefixed payload, one per line.
func (c *cmdFormatT) Exec() {
	c.Validate()
	for _, text := range c.Args() {
		u, err := mac.ParseUpdate(text)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s\n", err)
			continue
		}
		fmt.Println(mac.FormatUpdate(u))
	}
}

func init() {
	apply := &cmdApplyT{}
	apply.Init("mac", "apply schedule updates to a configured schedule")
	format := &cmdFormatT{}
	format.Init("macfmt", "check schedule updates and print them as bus payloads")

	cmd.RegisterNewGroup("schedule", apply, format)
}

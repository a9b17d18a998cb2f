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
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/golang/glog"
	"google.golang.org/protobuf/proto"

	"acomms/cmd/acommsd/config"
	"acomms/pkg/algorithm"
	"acomms/pkg/bridge"
	"acomms/pkg/errors"
	"acomms/pkg/field"
	"acomms/pkg/logging"
	"acomms/pkg/mac"
	"acomms/pkg/schema"
	"acomms/pkg/stats"
	"acomms/pkg/translate"
	"acomms/pkg/util"
	"acomms/pkg/value"
)

// Node moves messages between the bus and their encoded form and keeps the
// slot schedule of one modem.
type Node struct {
	cfg   *config.Config
	bus   Bus
	clock mac.Clock

	algorithms *algorithm.Registry
	schemas    *schema.Registry
	translator *translate.Translator
	codec      *bridge.Codec
	mac        *mac.Manager
	stats      *stats.SlotStats

	snapshot map[string]value.Value
	inbound  map[string]string
	lastSent map[string]time.Time
}

// NewNode loads every schema and message definition named in cfg.
func NewNode(cfg *config.Config, bus Bus, clock mac.Clock) (n *Node, err error) {
	if clock == nil {
		clock = mac.SystemClock
	}
	n = &Node{
		cfg:        cfg,
		bus:        bus,
		clock:      clock,
		algorithms: algorithm.New(),
		schemas:    schema.New(),
		stats:      stats.NewSlotStats(),
		snapshot:   make(map[string]value.Value),
		inbound:    make(map[string]string),
		lastSent:   make(map[string]time.Time),
	}
	if err = n.loadAlgorithms(); err != nil {
		return nil, err
	}
	for _, path := range cfg.Codec.DescriptorSets {
		if err = n.schemas.LoadDescriptorSet(path); err != nil {
			return nil, err
		}
	}
	n.translator = translate.New(n.schemas, n.algorithms)
	n.codec = bridge.NewCodec(cfg.ModemID, n.schemas, n.algorithms)
	n.codec.SetClock(clock.Now)
	for _, path := range cfg.Codec.MessageFiles {
		if err = n.loadMessageFile(path); err != nil {
			return nil, err
		}
	}
	for i := range cfg.Translator {
		e := cfg.Translator[i]
		if err = n.translator.AddEntry(&e); err != nil {
			return nil, err
		}
	}
	for _, e := range n.translator.Entries() {
		in, _ := n.nativeVars(e.TypeName)
		n.inbound[in] = e.TypeName
	}

	n.mac = mac.NewManager(clock, n.stats)
	n.mac.OnInitiateTransmission = func(s mac.Slot) {
		n.publish(translate.Variable{Name: cfg.InitiateVar, Value: value.String(mac.FormatSlot(s))})
	}
	n.mac.OnSlotStart = func(s mac.Slot) {
		n.publish(translate.Variable{Name: cfg.SlotStartVar, Value: value.String(mac.FormatSlot(s))})
	}
	return n, nil
}

func (n *Node) loadAlgorithms() error {
	algorithm.RegisterDefaults(n.algorithms)
	c := &n.cfg.Codec
	if c.UseGeodesy {
		g, err := algorithm.NewGeodesy(c.LatOrigin, c.LonOrigin)
		if err != nil {
			return err
		}
		algorithm.RegisterGeodesy(n.algorithms, g)
	}
	if c.ModemLookup != "" {
		l, err := algorithm.LoadModemLookup(c.ModemLookup)
		if err != nil {
			return err
		}
		algorithm.RegisterModemLookup(n.algorithms, l)
	}
	return nil
}

func (n *Node) loadMessageFile(path string) error {
	res, err := n.codec.ConvertFile(path)
	if err != nil {
		return err
	}
	if dir := n.cfg.Codec.ProtoOutputDir; dir != "" {
		out := filepath.Join(dir, res.File.GetName())
		if err = os.WriteFile(out, []byte(res.SchemaText), 0644); err != nil {
			return errors.Configf("writing %s: %s", out, err)
		}
		glog.V(logging.LevelInfo).Infof("schema for %s written to %s", path, out)
	}
	for _, e := range res.Entries {
		if err = n.translator.AddEntry(e); err != nil {
			return err
		}
	}
	return nil
}

// nativeVars names the variables carrying the hex encoding of a message.
// Converted messages use their definition's names.
func (n *Node) nativeVars(typeName string) (in string, out string) {
	if m, ok := n.codec.Message(typeName); ok {
		return m.InVar, m.OutVar
	}
	short := typeName
	if i := strings.LastIndexByte(short, '.'); i >= 0 {
		short = short[i+1:]
	}
	short = strings.ToUpper(short)
	return "IN_" + short + "_HEX", "OUT_" + short + "_HEX"
}

func (n *Node) Translator() *translate.Translator {
	return n.translator
}

func (n *Node) MAC() *mac.Manager {
	return n.mac
}

func (n *Node) Stats() *stats.SlotStats {
	return n.stats
}

// Start begins the slot cycle. Time triggered messages first go out one
// period from now.
func (n *Node) Start() error {
	now := n.clock.Now()
	for _, e := range n.translator.Entries() {
		if e.Trigger.Type == translate.TriggerTime {
			n.lastSent[e.TypeName] = now
		}
	}
	return n.mac.Startup(n.cfg.MAC)
}

func (n *Node) Stop() {
	n.mac.Shutdown()
}

func (n *Node) publish(v translate.Variable) {
	if err := n.bus.Publish(v); err != nil {
		glog.Errorf("publish %s: %s", v.Name, err)
	}
}

// HandleVariable applies one publication from the bus. Schedule updates go
// to the slot manager and incoming hex is decoded onto the bus. Any publish
// trigger it satisfies sends its message. Text that reads as a number is
// kept as a double, except on the hex variables.
func (n *Node) HandleVariable(v translate.Variable) error {
	name, hexVar := n.inbound[v.Name]
	if s, ok := v.Value.GetString(); ok && !hexVar && v.Value.Kind() == value.KindString {
		if d, err := strconv.ParseFloat(s, 64); err == nil {
			v.Value = value.Double(d)
		}
	}
	n.snapshot[v.Name] = v.Value

	if v.Name == n.cfg.MACUpdateVar {
		u, err := mac.ParseUpdate(v.Value.AsString())
		if err != nil {
			return err
		}
		return n.mac.HandleUpdate(u)
	}

	var firstErr error
	if hexVar {
		firstErr = n.receive(name, v.Value.AsString())
	}
	for _, e := range n.translator.Entries() {
		if e.Trigger.Fires(v.Name, v.Value) {
			if err := n.send(e.TypeName); err != nil && firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

func (n *Node) receive(name string, hex string) error {
	b, err := util.HexDecode(hex)
	if err != nil {
		return errors.Translatef("%s: payload is not hex", name)
	}
	msg, err := n.schemas.NewMessage(name)
	if err != nil {
		return err
	}
	if err = translate.Parse(translate.TechniqueNative, string(b), msg, translate.Options{}); err != nil {
		glog.V(logging.LevelDebug).Infof("undecodable %s: %s", name, util.ToPrintableAndHexString(b))
		return err
	}
	if _, ok := n.codec.Message(name); ok {
		if glog.V(logging.LevelVerbose) {
			if _, vals, err := n.codec.Decode(msg); err == nil {
				glog.Infof("received %s %v", name, vals)
			}
		}
	}
	vars, err := n.translator.ToBus(msg)
	if err != nil {
		return err
	}
	for _, out := range vars {
		n.publish(out)
	}
	return nil
}

// busHistory gives each variable's latest value in the form converted
// messages read their fields from.
func (n *Node) busHistory() map[string][]value.Value {
	h := make(map[string][]value.Value, len(n.snapshot))
	for k, v := range n.snapshot {
		h[k] = []value.Value{v}
	}
	return h
}

func (n *Node) send(name string) (err error) {
	var msg proto.Message
	if m, ok := n.codec.Message(name); ok {
		vals := make(field.Values)
		m.ReadBusVars(vals, n.busHistory())
		msg, err = n.codec.Encode(name, vals)
	} else {
		msg, err = n.translator.FromBus(n.snapshot, name)
	}
	if err != nil {
		return
	}
	payload, err := translate.Serialize(translate.TechniqueNative, msg, translate.Options{})
	if err != nil {
		return
	}
	_, out := n.nativeVars(name)
	n.lastSent[name] = n.clock.Now()
	n.publish(translate.Variable{Name: out, Value: value.String(util.HexEncode([]byte(payload)))})
	if glog.V(logging.LevelDebug) {
		glog.Infof("%s", logging.NewKVBufferForLog().AddMessage(name).AddVar(out).AddLen(len(payload)))
	}
	return
}

// DoWork sends the time triggered messages that are due and advances the
// slot cycle.
func (n *Node) DoWork() {
	now := n.clock.Now()
	for _, e := range n.translator.Entries() {
		if e.Trigger.Type != translate.TriggerTime || e.Trigger.Period.Duration <= 0 {
			continue
		}
		if now.Sub(n.lastSent[e.TypeName]) < e.Trigger.Period.Duration {
			continue
		}
		if err := n.send(e.TypeName); err != nil {
			glog.Warningf("%s", logging.NewKVBufferForLog().AddMessage(e.TypeName).AddDropReason(err.Error()))
			n.lastSent[e.TypeName] = now
		}
	}
	n.mac.DoWork()
}

// Run serves the bus until ctx is done or the bus closes.
func (n *Node) Run(ctx context.Context) error {
	if err := n.Start(); err != nil {
		return err
	}
	defer n.stats.WriteTo(os.Stderr)
	defer n.Stop()

	poll := time.NewTicker(n.cfg.PollInterval.Duration)
	defer poll.Stop()
	var statsCh <-chan time.Time
	if n.cfg.StatsInterval.Duration > 0 {
		st := time.NewTicker(n.cfg.StatsInterval.Duration)
		defer st.Stop()
		statsCh = st.C
	}

	vars := n.bus.Variables()
	for {
		select {
		case <-ctx.Done():
			return nil
		case v, ok := <-vars:
			if !ok {
				return nil
			}
			if err := n.HandleVariable(v); err != nil {
				glog.Warningf("%s", logging.NewKVBufferForLog().AddVar(v.Name).AddDropReason(err.Error()))
			}
		case <-poll.C:
			n.DoWork()
		case <-statsCh:
			n.stats.WriteTo(os.Stderr)
		}
	}
}

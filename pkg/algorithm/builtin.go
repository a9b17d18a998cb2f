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

package algorithm

import (
	"fmt"
	"math"
	"strings"
	"time"

	"acomms/pkg/value"
)

// RegisterDefaults adds the algorithms that need no configuration.
func RegisterDefaults(r *Registry) {
	r.Register("power_to_dB", PowerToDB)
	r.Register("dB_to_power", DBToPower)
	r.RegisterRef("TSD_to_soundspeed", TSDToSoundSpeed)
	r.Register("to_lower", ToLower)
	r.Register("to_upper", ToUpper)
	r.Register("angle_0_360", Angle0To360)
	r.Register("angle_-180_180", AngleMinus180To180)
	r.Register("lat2hemisphere_initial", LatToHemisphereInitial)
	r.Register("lon2hemisphere_initial", LonToHemisphereInitial)
	r.Register("lat2nmea_lat", LatToNMEALat)
	r.Register("lon2nmea_lon", LonToNMEALon)
	r.Register("unix_time2nmea_time", UnixTimeToNMEATime)
	r.Register("abs", Abs)
}

func PowerToDB(v value.Value) value.Value {
	return value.Double(10 * math.Log10(v.AsDouble()))
}

func DBToPower(v value.Value) value.Value {
	return value.Double(math.Pow(10, v.AsDouble()/10))
}

// TSDToSoundSpeed is applied to temperature with salinity and depth as
// references.
func TSDToSoundSpeed(v value.Value, refs []value.Value) value.Value {
	if len(refs) < 2 {
		return value.DoubleWithPrecision(math.NaN(), 3)
	}
	return value.DoubleWithPrecision(Mackenzie(v.AsDouble(), refs[0].AsDouble(), refs[1].AsDouble()), 3)
}

// Mackenzie is the nine-term sound speed equation (J. Acoust. Soc. Am.
// 70(3), 1981) in m/s for temperature T in deg C, salinity S and depth D
// in meters.
func Mackenzie(T, S, D float64) float64 {
	return 1448.96 + 4.591*T - 5.304e-2*T*T + 2.374e-4*T*T*T +
		1.340*(S-35) + 1.630e-2*D + 1.675e-7*D*D -
		1.025e-2*T*(S-35) - 7.139e-13*T*D*D*D
}

func ToLower(v value.Value) value.Value {
	return value.String(strings.ToLower(v.AsString()))
}

func ToUpper(v value.Value) value.Value {
	return value.String(strings.ToUpper(v.AsString()))
}

func Angle0To360(v value.Value) value.Value {
	a := v.AsDouble()
	if math.IsNaN(a) || math.IsInf(a, 0) {
		return value.Double(a)
	}
	for a < 0 {
		a += 360
	}
	for a >= 360 {
		a -= 360
	}
	return value.Double(a)
}

func AngleMinus180To180(v value.Value) value.Value {
	a := v.AsDouble()
	if math.IsNaN(a) || math.IsInf(a, 0) {
		return value.Double(a)
	}
	for a < -180 {
		a += 360
	}
	for a >= 180 {
		a -= 360
	}
	return value.Double(a)
}

func LatToHemisphereInitial(v value.Value) value.Value {
	if v.AsDouble() < 0 {
		return value.String("S")
	}
	return value.String("N")
}

func LonToHemisphereInitial(v value.Value) value.Value {
	if v.AsDouble() < 0 {
		return value.String("W")
	}
	return value.String("E")
}

func degreesMinutes(d float64) (deg, min, tenThousandths int) {
	deg = int(math.Floor(d))
	m := (d - float64(deg)) * 60
	min = int(math.Floor(m))
	tenThousandths = int(math.Floor((m - float64(min)) * 10000))
	return
}

// LatToNMEALat renders DDMM.MMMM.
func LatToNMEALat(v value.Value) value.Value {
	deg, min, frac := degreesMinutes(v.AsDouble())
	return value.String(fmt.Sprintf("%02d%02d.%04d", deg, min, frac))
}

// LonToNMEALon renders DDDMM.MMMM.
func LonToNMEALon(v value.Value) value.Value {
	deg, min, frac := degreesMinutes(v.AsDouble())
	return value.String(fmt.Sprintf("%03d%02d.%04d", deg, min, frac))
}

// UnixTimeToNMEATime renders HHMMSS.SSSSSS in UTC.
func UnixTimeToNMEATime(v value.Value) value.Value {
	d := v.AsDouble()
	sec := math.Floor(d)
	us := int64(math.Floor((d-sec)*1e6 + 0.5))
	if us >= 1000000 {
		sec++
		us -= 1000000
	}
	t := time.Unix(int64(sec), 0).UTC()
	return value.String(fmt.Sprintf("%02d%02d%02d.%06d", t.Hour(), t.Minute(), t.Second(), us))
}

func Abs(v value.Value) value.Value {
	return value.Double(math.Abs(v.AsDouble()))
}

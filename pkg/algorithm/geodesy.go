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
	"math"

	"acomms/pkg/errors"
	"acomms/pkg/value"
)

// WGS84 ellipsoid and UTM projection constants.
const (
	wgs84A        = 6378137.0
	wgs84F        = 1 / 298.257223563
	utmK0         = 0.9996
	utmFalseEast  = 500000.0
	degreesToRads = math.Pi / 180
)

var (
	tmN     = wgs84F / (2 - wgs84F)
	tmE     = math.Sqrt(wgs84F * (2 - wgs84F))
	tmA     = wgs84A / (1 + tmN) * (1 + tmN*tmN/4 + math.Pow(tmN, 4)/64 + math.Pow(tmN, 6)/256)
	tmAlpha = krugerAlpha(tmN)
	tmBeta  = krugerBeta(tmN)
)

func krugerAlpha(n float64) [6]float64 {
	n2, n3, n4, n5, n6 := n*n, n*n*n, math.Pow(n, 4), math.Pow(n, 5), math.Pow(n, 6)
	return [6]float64{
		n/2 - 2*n2/3 + 5*n3/16 + 41*n4/180 - 127*n5/288 + 7891*n6/37800,
		13*n2/48 - 3*n3/5 + 557*n4/1440 + 281*n5/630 - 1983433*n6/1935360,
		61*n3/240 - 103*n4/140 + 15061*n5/26880 + 167603*n6/181440,
		49561*n4/161280 - 179*n5/168 + 6601661*n6/7257600,
		34729*n5/80640 - 3418889*n6/1995840,
		212378941 * n6 / 319334400,
	}
}

func krugerBeta(n float64) [6]float64 {
	n2, n3, n4, n5, n6 := n*n, n*n*n, math.Pow(n, 4), math.Pow(n, 5), math.Pow(n, 6)
	return [6]float64{
		n/2 - 2*n2/3 + 37*n3/96 - n4/360 - 81*n5/512 + 96199*n6/604800,
		n2/48 + n3/15 - 437*n4/1440 + 46*n5/105 - 1118711*n6/3870720,
		17*n3/480 - 37*n4/840 - 209*n5/4480 + 5569*n6/90720,
		4397*n4/161280 - 11*n5/504 - 830251*n6/7257600,
		4583*n5/161280 - 108847*n6/3991680,
		20648693 * n6 / 638668800,
	}
}

// Geodesy converts between latitude/longitude and a local grid in meters
// centred on an origin, using the UTM zone of the origin.
type Geodesy struct {
	zone           int
	centralLon     float64
	originEasting  float64
	originNorthing float64
	originLat      float64
	originLon      float64
}

func UTMZone(lon float64) int {
	return (int(math.Floor((lon+180)/6)) + 1) % 60
}

func NewGeodesy(lat, lon float64) (*Geodesy, error) {
	if math.IsNaN(lat) || math.IsNaN(lon) || lat < -90 || lat > 90 {
		return nil, errors.Configf("invalid geodesy origin (%v, %v)", lat, lon)
	}
	g := &Geodesy{
		zone:      UTMZone(lon),
		originLat: lat,
		originLon: lon,
	}
	g.centralLon = float64(g.zone*6 - 183)
	g.originEasting, g.originNorthing = g.toUTM(lat, lon)
	return g, nil
}

func (g *Geodesy) Zone() int {
	return g.zone
}

func (g *Geodesy) Origin() (lat, lon float64) {
	return g.originLat, g.originLon
}

func (g *Geodesy) toUTM(lat, lon float64) (easting, northing float64) {
	phi := lat * degreesToRads
	lambda := (lon - g.centralLon) * degreesToRads

	tau := math.Tan(phi)
	sigma := math.Sinh(tmE * math.Atanh(tmE*tau/math.Sqrt(1+tau*tau)))
	tauP := tau*math.Sqrt(1+sigma*sigma) - sigma*math.Sqrt(1+tau*tau)

	xiP := math.Atan2(tauP, math.Cos(lambda))
	etaP := math.Asinh(math.Sin(lambda) / math.Sqrt(tauP*tauP+math.Cos(lambda)*math.Cos(lambda)))

	xi, eta := xiP, etaP
	for j := 1; j <= 6; j++ {
		k := float64(2 * j)
		xi += tmAlpha[j-1] * math.Sin(k*xiP) * math.Cosh(k*etaP)
		eta += tmAlpha[j-1] * math.Cos(k*xiP) * math.Sinh(k*etaP)
	}
	return utmK0*tmA*eta + utmFalseEast, utmK0 * tmA * xi
}

func (g *Geodesy) fromUTM(easting, northing float64) (lat, lon float64) {
	eta := (easting - utmFalseEast) / (utmK0 * tmA)
	xi := northing / (utmK0 * tmA)

	xiP, etaP := xi, eta
	for j := 1; j <= 6; j++ {
		k := float64(2 * j)
		xiP -= tmBeta[j-1] * math.Sin(k*xi) * math.Cosh(k*eta)
		etaP -= tmBeta[j-1] * math.Cos(k*xi) * math.Sinh(k*eta)
	}

	sinhEtaP := math.Sinh(etaP)
	cosXiP := math.Cos(xiP)
	tauP := math.Sin(xiP) / math.Sqrt(sinhEtaP*sinhEtaP+cosXiP*cosXiP)
	lambda := math.Atan2(sinhEtaP, cosXiP)

	e2 := tmE * tmE
	tau := tauP
	for i := 0; i < 10; i++ {
		sigma := math.Sinh(tmE * math.Atanh(tmE*tau/math.Sqrt(1+tau*tau)))
		tauI := tau*math.Sqrt(1+sigma*sigma) - sigma*math.Sqrt(1+tau*tau)
		delta := (tauP - tauI) / math.Sqrt(1+tauI*tauI) *
			(1 + (1-e2)*tau*tau) / ((1 - e2) * math.Sqrt(1+tau*tau))
		tau += delta
		if math.Abs(delta) < 1e-12 {
			break
		}
	}
	return math.Atan(tau) / degreesToRads, lambda/degreesToRads + g.centralLon
}

// LatLonToLocal returns meters north and east of the origin.
func (g *Geodesy) LatLonToLocal(lat, lon float64) (north, east float64) {
	if math.IsNaN(lat) || math.IsNaN(lon) {
		return math.NaN(), math.NaN()
	}
	e, n := g.toUTM(lat, lon)
	return n - g.originNorthing, e - g.originEasting
}

// LocalToLatLon is the inverse of LatLonToLocal, taking x (east) and y
// (north) in meters.
func (g *Geodesy) LocalToLatLon(x, y float64) (lat, lon float64) {
	if math.IsNaN(x) || math.IsNaN(y) {
		return math.NaN(), math.NaN()
	}
	return g.fromUTM(x+g.originEasting, y+g.originNorthing)
}

const (
	latIntDigits = 2
	lonIntDigits = 3
)

// RegisterGeodesy adds the local grid conversions for origin g.
func RegisterGeodesy(r *Registry, g *Geodesy) {
	r.RegisterRef("lat2utm_y", func(v value.Value, refs []value.Value) value.Value {
		y, _ := g.LatLonToLocal(v.AsDouble(), refValue(refs, 0))
		return value.Double(y)
	})
	r.RegisterRef("lon2utm_x", func(v value.Value, refs []value.Value) value.Value {
		_, x := g.LatLonToLocal(refValue(refs, 0), v.AsDouble())
		return value.Double(x)
	})
	r.RegisterRef("utm_x2lon", func(v value.Value, refs []value.Value) value.Value {
		_, lon := g.LocalToLatLon(v.AsDouble(), refValue(refs, 0))
		return value.Double(roundNaN(lon, value.MaxDoublePrecision-lonIntDigits-1))
	})
	r.RegisterRef("utm_y2lat", func(v value.Value, refs []value.Value) value.Value {
		lat, _ := g.LocalToLatLon(refValue(refs, 0), v.AsDouble())
		return value.Double(roundNaN(lat, value.MaxDoublePrecision-latIntDigits-1))
	})
}

func refValue(refs []value.Value, i int) float64 {
	if i < len(refs) {
		return refs[i].AsDouble()
	}
	return math.NaN()
}

func roundNaN(d float64, dec int) float64 {
	if math.IsNaN(d) {
		return d
	}
	return value.Round(d, dec)
}

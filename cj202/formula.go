// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package cj202

import (
	"fmt"
	"time"
)

// PPM=Parts Per Million. Units of measure for CO2 concentration.
type PPM int

func (ppm PPM) String() string {
	return fmt.Sprintf("%d PPM", int(ppm))
}

// Sensor characteristics from the datasheet.
const (
	// MinPPM and MaxPPM bound every reading.
	MinPPM PPM = 0
	MaxPPM PPM = 5000

	// NominalPeriod is the output period of the sensor.
	NominalPeriod = 1004 * time.Millisecond
	// MinPeriod and MaxPeriod are the accepted period window, ±5% around
	// NominalPeriod.
	MinPeriod = 950 * time.Millisecond
	MaxPeriod = 1050 * time.Millisecond

	// The sensor always emits at least 2ms high and 2ms low, so the encoded
	// span is the period minus 4ms.
	headTime = 2 * time.Millisecond
	edgeTime = 4 * time.Millisecond
)

// ComputePPM converts a high time and a period into a CO2 concentration:
//
//	Cppm = 5000 × (TH-2ms) / (TH+TL-4ms)
//
// The result is clamped to [0, 5000] and truncated. It returns 0 when period
// is 4ms or less or high is 2ms or less, the sensor's way of saying no
// valid signal was seen yet.
func ComputePPM(high, period time.Duration) PPM {
	if period <= edgeTime || high <= headTime {
		return 0
	}
	h := float64(high) / float64(time.Millisecond)
	p := float64(period) / float64(time.Millisecond)
	co2 := float64(MaxPPM) * (h - 2) / (p - 4)
	if co2 < float64(MinPPM) {
		co2 = float64(MinPPM)
	}
	if co2 > float64(MaxPPM) {
		co2 = float64(MaxPPM)
	}
	return PPM(co2)
}

// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package cj202

import (
	"time"

	"github.com/sirupsen/logrus"
)

type outcome int

const (
	accepted outcome = iota
	degraded
	rejected
)

func (o outcome) String() string {
	switch o {
	case accepted:
		return "accepted"
	case degraded:
		return "degraded"
	default:
		return "rejected"
	}
}

// inWindow reports whether a candidate looks like one full sensor cycle.
func inWindow(high, period time.Duration) bool {
	return period >= MinPeriod && period <= MaxPeriod && period >= high
}

// decoder validates candidates and publishes readings. Both capture sources
// share it, so an out of window sample always falls back to the last good
// one.
type decoder struct {
	st    *state
	stats *stats
	log   logrus.FieldLogger
}

func (d *decoder) decode(high, period time.Duration) outcome {
	if inWindow(high, period) {
		ppm := ComputePPM(high, period)
		d.st.ppm.Store(int32(ppm))
		d.st.lastGood = makePair(high, period)
		d.st.hasGood = true
		d.stats.accepted.Add(1)
		d.log.Debugf("high=%s period=%s co2=%s", high, period, ppm)
		return accepted
	}
	if !d.st.hasGood {
		d.stats.rejected.Add(1)
		d.log.Debugf("discarding high=%s period=%s", high, period)
		return rejected
	}
	ppm := ComputePPM(d.st.lastGood.high(), d.st.lastGood.period())
	d.st.ppm.Store(int32(ppm))
	d.stats.degraded.Add(1)
	d.log.Warnf("period %s out of window, using previous valid measurement: co2=%s", period, ppm)
	return degraded
}

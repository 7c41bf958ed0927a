// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package cj202

import (
	"math"
	"sync/atomic"
	"time"
)

// pair packs a high time and a period, both in microseconds, so that a
// candidate measurement is published with a single atomic store.
type pair uint64

// makePair saturates values that do not fit in 32 bits of microseconds, so
// an oversized period stays out of the acceptance window instead of
// wrapping into it.
func makePair(high, period time.Duration) pair {
	return pair(uint64(toMicros(high))<<32 | uint64(toMicros(period)))
}

func toMicros(d time.Duration) uint32 {
	switch us := d / time.Microsecond; {
	case us <= 0:
		return 0
	case us >= math.MaxUint32:
		return math.MaxUint32
	default:
		return uint32(us)
	}
}

func (p pair) high() time.Duration {
	return time.Duration(p>>32) * time.Microsecond
}

func (p pair) period() time.Duration {
	return time.Duration(uint32(p)) * time.Microsecond
}

// state is the capture record of one sensor.
//
// The producer (edge pump or capture callback) owns the edge bookkeeping,
// the decoder owns lastGood, and the two meet through pending and ready.
// ppm is the only field readers touch.
type state struct {
	// Edge-interrupt bookkeeping, producer owned. Timestamps are relative to
	// Dev creation.
	lastRising  time.Duration
	lastFalling time.Duration
	seenRising  bool
	seenFalling bool
	highTime    time.Duration
	period      time.Duration

	// Hardware capture latch, producer owned.
	capBegin   uint32
	posPending bool

	// Candidate handed from producer to decoder.
	pending atomic.Uint64
	ready   atomic.Bool

	// Last accepted candidate, decoder owned.
	lastGood pair
	hasGood  bool

	ppm atomic.Int32
}

// stage publishes a candidate and marks it ready.
func (s *state) stage(high, period time.Duration) {
	s.pending.Store(uint64(makePair(high, period)))
	s.ready.Store(true)
}

// consume returns the staged candidate, if any, and clears ready.
func (s *state) consume() (pair, bool) {
	if !s.ready.Swap(false) {
		return 0, false
	}
	return pair(s.pending.Load()), true
}

// Stats counts what happened to the samples of a Dev since New.
type Stats struct {
	// Edges is the number of edges seen by the producer.
	Edges uint64
	// Accepted samples were inside the period window and published.
	Accepted uint64
	// Degraded samples were out of window; the last good sample was
	// published again.
	Degraded uint64
	// Rejected samples were out of window with no previous good sample.
	Rejected uint64
	// Timeouts counts capture waits that expired without a sample.
	Timeouts uint64
	// Dropped counts edge notifications discarded because the queue was
	// full.
	Dropped uint64
}

type stats struct {
	edges    atomic.Uint64
	accepted atomic.Uint64
	degraded atomic.Uint64
	rejected atomic.Uint64
	timeouts atomic.Uint64
	dropped  atomic.Uint64
}

func (s *stats) snapshot() Stats {
	return Stats{
		Edges:    s.edges.Load(),
		Accepted: s.accepted.Load(),
		Degraded: s.degraded.Load(),
		Rejected: s.rejected.Load(),
		Timeouts: s.timeouts.Load(),
		Dropped:  s.dropped.Load(),
	}
}

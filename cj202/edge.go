// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package cj202

import (
	"sync"
	"time"

	"periph.io/x/conn/v3/gpio"
)

const (
	// QueueDepth is the number of edge notifications buffered between the
	// edge pump and the decoder.
	QueueDepth = 10
	// edgePollInterval bounds how long the edge pump waits in WaitForEdge
	// before checking for Halt.
	edgePollInterval = 100 * time.Millisecond
)

// edgeEvent wakes the decoder up.
type edgeEvent struct {
	level gpio.Level
	at    time.Duration
}

// edgeSource timestamps both edges of the pin in software.
//
// The pump goroutine stands in for the interrupt handler: it only does
// timestamp arithmetic and a non-blocking post to events.
type edgeSource struct {
	d *Dev
	p gpio.PinIn

	events   chan edgeEvent
	haltPump chan struct{}
	haltDec  chan struct{}
	pumpWG   sync.WaitGroup
	decWG    sync.WaitGroup
}

func newEdgeSource(d *Dev, p gpio.PinIn) *edgeSource {
	return &edgeSource{d: d, p: p}
}

func (s *edgeSource) start() error {
	if err := s.p.In(s.d.pull, gpio.BothEdges); err != nil {
		return hardwareError("configure "+s.p.Name()+" for both edges", err)
	}
	s.events = make(chan edgeEvent, QueueDepth)
	s.haltPump = make(chan struct{})
	s.haltDec = make(chan struct{})
	s.decWG.Add(1)
	go s.decode()
	s.pumpWG.Add(1)
	go s.pump()
	return nil
}

// stop disables edge capture, then stops the decoder, then drops the queue.
func (s *edgeSource) stop() error {
	close(s.haltPump)
	// In() unblocks a pending WaitForEdge on hosts that support it.
	err := s.p.In(gpio.PullNoChange, gpio.NoEdge)
	s.pumpWG.Wait()
	close(s.haltDec)
	s.decWG.Wait()
	s.events = nil
	s.haltPump = nil
	s.haltDec = nil
	return err
}

func (s *edgeSource) pump() {
	defer s.pumpWG.Done()
	for {
		select {
		case <-s.haltPump:
			return
		default:
		}
		if s.p.WaitForEdge(edgePollInterval) {
			s.onEdge(s.p.Read(), s.d.now())
		}
	}
}

// onEdge updates the edge bookkeeping. A falling edge completes a candidate:
// the high time just measured, and the period measured at the previous
// rising edge.
func (s *edgeSource) onEdge(l gpio.Level, now time.Duration) {
	st := &s.d.st
	if l == gpio.High {
		st.lastRising = now
		st.seenRising = true
		if st.seenFalling {
			st.period = now - st.lastFalling + st.highTime
		}
	} else {
		st.lastFalling = now
		st.seenFalling = true
		if st.seenRising {
			st.highTime = now - st.lastRising
			st.stage(st.highTime, st.period)
		}
	}
	s.d.stats.edges.Add(1)
	s.post(edgeEvent{level: l, at: now})
}

// post enqueues ev without blocking. When the queue is full the oldest
// notification is dropped.
func (s *edgeSource) post(ev edgeEvent) {
	select {
	case s.events <- ev:
		return
	default:
	}
	select {
	case <-s.events:
		s.d.stats.dropped.Add(1)
	default:
	}
	select {
	case s.events <- ev:
	default:
		s.d.stats.dropped.Add(1)
	}
}

func (s *edgeSource) decode() {
	defer s.decWG.Done()
	for {
		select {
		case <-s.haltDec:
			return
		case <-s.events:
			if c, ok := s.d.st.consume(); ok {
				s.d.dec.decode(c.high(), c.period())
			}
		}
	}
}

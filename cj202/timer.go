// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package cj202

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/GermanBionicSystems/co2pwm/capture"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
)

// CaptureTimeout is how long the hardware capture decoder waits for a pulse
// before reporting that there is no signal.
const CaptureTimeout = 1500 * time.Millisecond

// notifier is a single slot notification where the latest value wins. An
// undelivered value is overwritten, never queued.
type notifier struct {
	val atomic.Uint64
	sig chan struct{}
}

const notified = 1 << 32

func newNotifier() *notifier {
	return &notifier{sig: make(chan struct{}, 1)}
}

func (n *notifier) notify(v uint32) {
	n.val.Store(notified | uint64(v))
	select {
	case n.sig <- struct{}{}:
	default:
	}
}

func (n *notifier) take() (uint32, bool) {
	v := n.val.Swap(0)
	return uint32(v), v&notified != 0
}

// undo is a stack of release functions run in reverse order of
// acquisition.
type undo []func() error

func (u *undo) push(f func() error) {
	*u = append(*u, f)
}

// run calls every function, last pushed first, and empties the stack. It
// returns the first error.
func (u *undo) run() error {
	var err error
	for i := len(*u) - 1; i >= 0; i-- {
		if e := (*u)[i](); e != nil && err == nil {
			err = e
		}
	}
	*u = nil
	return err
}

// timerSource measures the high time with a hardware capture timer and the
// period with the decoder's own clock.
type timerSource struct {
	d      *Dev
	p      gpio.PinIn
	opener capture.Opener

	timer capture.Timer
	ch    capture.Channel
	hz    uint64

	// disable holds Stop/Disable calls, release holds Close calls. Every
	// disable entry is acquired after every release entry, so running
	// disable then release is the exact reverse of acquisition.
	disable undo
	release undo

	// note is cleared at teardown. A callback the peripheral latched before
	// Disable may still arrive and must find it nil.
	note atomic.Pointer[notifier]
	halt chan struct{}
	wg   sync.WaitGroup

	// Decoder goroutine owned.
	first       bool
	lastCapture time.Duration
}

func newTimerSource(d *Dev, p gpio.PinIn, o capture.Opener) *timerSource {
	return &timerSource{d: d, p: p, opener: o, first: true}
}

func (s *timerSource) start() (err error) {
	defer func() {
		if err != nil {
			_ = s.disable.run()
			_ = s.release.run()
			s.timer = nil
			s.ch = nil
			s.note.Store(nil)
		}
	}()

	s.d.log.Debug("installing capture timer")
	if s.timer, err = s.opener.NewTimer(); err != nil {
		return hardwareError("create capture timer", err)
	}
	s.release.push(s.timer.Close)
	if s.hz = uint64(s.timer.Frequency() / physic.Hertz); s.hz == 0 {
		return hardwareError("query capture timer frequency", errors.New("frequency is 0"))
	}

	s.d.log.Debug("installing capture channel")
	cfg := capture.ChannelConfig{Pos: true, Neg: true, PullUp: s.d.pull == gpio.PullUp, Prescale: 1}
	if s.ch, err = s.timer.NewChannel(s.p, &cfg); err != nil {
		return hardwareError("create capture channel", err)
	}
	s.release.push(s.ch.Close)

	note := newNotifier()
	s.note.Store(note)
	s.d.log.Debug("registering capture callback")
	if err = s.ch.RegisterCallback(s.onCapture); err != nil {
		return hardwareError("register capture callback", err)
	}

	s.d.log.Debug("enabling capture channel")
	if err = s.ch.Enable(); err != nil {
		return hardwareError("enable capture channel", err)
	}
	s.disable.push(s.ch.Disable)

	s.d.log.Debug("enabling and starting capture timer")
	if err = s.timer.Enable(); err != nil {
		return hardwareError("enable capture timer", err)
	}
	s.disable.push(s.timer.Disable)
	if err = s.timer.Start(); err != nil {
		return hardwareError("start capture timer", err)
	}
	s.disable.push(s.timer.Stop)

	s.halt = make(chan struct{})
	s.wg.Add(1)
	go s.decode(note)
	return nil
}

// stop disables capture, detaches the notifier so that a late callback is
// dropped, stops the decoder, then releases the channel and the timer.
func (s *timerSource) stop() error {
	err := s.disable.run()
	s.note.Store(nil)
	close(s.halt)
	s.wg.Wait()
	s.halt = nil
	if e := s.release.run(); err == nil {
		err = e
	}
	s.ch = nil
	s.timer = nil
	return err
}

// onCapture runs in the peripheral's interrupt context.
func (s *timerSource) onCapture(_ capture.Channel, e capture.Event) {
	note := s.note.Load()
	if note == nil {
		return
	}
	st := &s.d.st
	s.d.stats.edges.Add(1)
	switch e.Edge {
	case capture.PosEdge:
		st.capBegin = e.Value
		st.posPending = true
	case capture.NegEdge:
		if !st.posPending {
			return
		}
		st.posPending = false
		// The counter wrapped around during the pulse.
		if e.Value <= st.capBegin {
			return
		}
		note.notify(e.Value - st.capBegin)
	}
}

func (s *timerSource) decode(note *notifier) {
	defer s.wg.Done()
	for {
		t := s.d.clock.NewTimer(CaptureTimeout)
		select {
		case <-s.halt:
			t.Stop()
			return
		case <-note.sig:
			t.Stop()
			if ticks, ok := note.take(); ok {
				s.measure(ticks, s.d.now())
			}
		case <-t.Chan():
			s.d.stats.timeouts.Add(1)
			s.d.log.Warn("timeout waiting for pulse capture, no signal")
		}
	}
}

// measure turns a high time in ticks into a candidate. The period is the
// time between two deliveries, so the very first one has none.
func (s *timerSource) measure(ticks uint32, now time.Duration) outcome {
	var period time.Duration
	if s.first {
		s.first = false
	} else {
		period = now - s.lastCapture
	}
	s.lastCapture = now
	high := time.Duration(uint64(ticks) * uint64(time.Second) / s.hz)
	return s.d.dec.decode(high, period)
}

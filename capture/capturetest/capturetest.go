// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package capturetest is meant to be used to test drivers using a fake
// capture peripheral.
//
// Every call is recorded in Opener.Ops so tests can assert acquisition and
// release order. Set Opener.Fail to make a specific call fail.
package capturetest

import (
	"errors"
	"fmt"
	"sync"

	"github.com/GermanBionicSystems/co2pwm/capture"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
)

// Operation names recorded in Opener.Ops and used as keys of Opener.Fail.
const (
	OpNewTimer         = "NewTimer"
	OpNewChannel       = "NewChannel"
	OpRegisterCallback = "RegisterCallback"
	OpChannelEnable    = "Channel.Enable"
	OpChannelDisable   = "Channel.Disable"
	OpChannelClose     = "Channel.Close"
	OpTimerEnable      = "Timer.Enable"
	OpTimerDisable     = "Timer.Disable"
	OpTimerStart       = "Timer.Start"
	OpTimerStop        = "Timer.Stop"
	OpTimerClose       = "Timer.Close"
)

// DefaultFrequency is the tick rate used when Opener.Freq is zero. It matches
// the 80MHz APB clock commonly feeding capture units.
const DefaultFrequency = 80 * physic.MegaHertz

// ErrInjected is returned by calls listed in Opener.Fail with a nil error.
var ErrInjected = errors.New("capturetest: injected failure")

// Opener implements capture.Opener.
type Opener struct {
	// Freq is the tick frequency reported by created timers.
	Freq physic.Frequency

	// Grab the Mutex before accessing the following members.
	sync.Mutex
	// Fail maps an operation name to the error it must return.
	Fail map[string]error
	// Ops lists every call made, in order.
	Ops []string
	// Timer is the last timer created.
	Timer *Timer
}

// NewTimer implements capture.Opener.
func (o *Opener) NewTimer() (capture.Timer, error) {
	if err := o.record(OpNewTimer); err != nil {
		return nil, err
	}
	f := o.Freq
	if f == 0 {
		f = DefaultFrequency
	}
	t := &Timer{o: o, freq: f}
	o.Lock()
	o.Timer = t
	o.Unlock()
	return t, nil
}

// Recorded returns a copy of the recorded operations.
func (o *Opener) Recorded() []string {
	o.Lock()
	defer o.Unlock()
	return append([]string(nil), o.Ops...)
}

// Open returns the number of timers and channels not closed yet.
func (o *Opener) Open() int {
	o.Lock()
	defer o.Unlock()
	n := 0
	if o.Timer != nil {
		if !o.Timer.closed {
			n++
		}
		if c := o.Timer.Channel; c != nil && !c.closed {
			n++
		}
	}
	return n
}

func (o *Opener) record(op string) error {
	o.Lock()
	defer o.Unlock()
	o.Ops = append(o.Ops, op)
	if err, ok := o.Fail[op]; ok {
		if err == nil {
			err = ErrInjected
		}
		return err
	}
	return nil
}

// Timer implements capture.Timer.
type Timer struct {
	o    *Opener
	freq physic.Frequency

	// The following members are protected by Opener's Mutex.
	Channel *Channel
	enabled bool
	running bool
	closed  bool
}

func (t *Timer) String() string {
	return "capturetest.Timer"
}

// NewChannel implements capture.Timer.
func (t *Timer) NewChannel(p gpio.PinIn, cfg *capture.ChannelConfig) (capture.Channel, error) {
	if err := t.o.record(OpNewChannel); err != nil {
		return nil, err
	}
	c := &Channel{t: t, Pin: p, Config: *cfg}
	t.o.Lock()
	t.Channel = c
	t.o.Unlock()
	return c, nil
}

// Frequency implements capture.Timer.
func (t *Timer) Frequency() physic.Frequency {
	return t.freq
}

// Enable implements capture.Timer.
func (t *Timer) Enable() error {
	return t.set(OpTimerEnable, func() { t.enabled = true })
}

// Disable implements capture.Timer.
func (t *Timer) Disable() error {
	return t.set(OpTimerDisable, func() { t.enabled = false })
}

// Start implements capture.Timer.
func (t *Timer) Start() error {
	return t.set(OpTimerStart, func() { t.running = true })
}

// Stop implements capture.Timer.
func (t *Timer) Stop() error {
	return t.set(OpTimerStop, func() { t.running = false })
}

// Close implements capture.Timer.
func (t *Timer) Close() error {
	return t.set(OpTimerClose, func() { t.closed = true })
}

// Running returns true if the timer is enabled and started.
func (t *Timer) Running() bool {
	t.o.Lock()
	defer t.o.Unlock()
	return t.enabled && t.running && !t.closed
}

func (t *Timer) set(op string, f func()) error {
	if err := t.o.record(op); err != nil {
		return err
	}
	t.o.Lock()
	f()
	t.o.Unlock()
	return nil
}

// Channel implements capture.Channel.
type Channel struct {
	t *Timer
	// Pin the channel was bound to.
	Pin gpio.PinIn
	// Config passed to NewChannel.
	Config capture.ChannelConfig

	// fire is held for reading while a callback runs, so that Disable and
	// Close wait for it.
	fire sync.RWMutex

	// The following members are protected by Opener's Mutex.
	cb      capture.Callback
	enabled bool
	closed  bool
}

func (c *Channel) String() string {
	if c.Pin == nil {
		return "capturetest.Channel"
	}
	return fmt.Sprintf("capturetest.Channel(%s)", c.Pin)
}

// RegisterCallback implements capture.Channel.
func (c *Channel) RegisterCallback(cb capture.Callback) error {
	if err := c.t.o.record(OpRegisterCallback); err != nil {
		return err
	}
	c.t.o.Lock()
	c.cb = cb
	c.t.o.Unlock()
	return nil
}

// Enable implements capture.Channel.
func (c *Channel) Enable() error {
	return c.t.set(OpChannelEnable, func() { c.enabled = true })
}

// Disable implements capture.Channel.
func (c *Channel) Disable() error {
	c.fire.Lock()
	defer c.fire.Unlock()
	return c.t.set(OpChannelDisable, func() { c.enabled = false })
}

// Close implements capture.Channel.
func (c *Channel) Close() error {
	c.fire.Lock()
	defer c.fire.Unlock()
	return c.t.set(OpChannelClose, func() {
		c.closed = true
		c.cb = nil
	})
}

// Fire simulates a captured edge. The callback runs synchronously on the
// caller's goroutine, like an interrupt preempting the current task.
//
// Returns false if the edge was not delivered because the channel or the
// timer is not running or no callback is registered.
func (c *Channel) Fire(e capture.Event) bool {
	c.fire.RLock()
	defer c.fire.RUnlock()
	c.t.o.Lock()
	cb := c.cb
	live := c.enabled && !c.closed && c.t.enabled && c.t.running
	c.t.o.Unlock()
	if !live || cb == nil {
		return false
	}
	cb(c, e)
	return true
}

// Pulse fires a positive edge at begin and a negative edge at begin+width.
func (c *Channel) Pulse(begin, width uint32) bool {
	if !c.Fire(capture.Event{Edge: capture.PosEdge, Value: begin}) {
		return false
	}
	return c.Fire(capture.Event{Edge: capture.NegEdge, Value: begin + width})
}

var _ capture.Opener = &Opener{}
var _ capture.Timer = &Timer{}
var _ capture.Channel = &Channel{}

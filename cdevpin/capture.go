// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

//go:build linux

package cdevpin

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/GermanBionicSystems/co2pwm/capture"
	pkgerrors "github.com/pkg/errors"
	"github.com/warthog618/go-gpiocdev"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
)

// Frequency is the tick rate of the kernel event timestamps.
const Frequency = physic.GigaHertz

// Capture implements capture.Opener on a GPIO character device.
type Capture struct {
	// Chip is used for pins that are not a *Pin, with the pin's Number() as
	// the line offset.
	Chip string

	request requestFunc
}

// NewTimer implements capture.Opener.
func (c *Capture) NewTimer() (capture.Timer, error) {
	req := c.request
	if req == nil {
		req = requestLine
	}
	return &timer{chip: c.Chip, request: req}, nil
}

type timer struct {
	chip    string
	request requestFunc

	mu       sync.Mutex
	channels []*channel
	enabled  bool
	running  bool
	closed   bool
}

func (t *timer) String() string {
	return "cdevpin.Timer(" + t.chip + ")"
}

func (t *timer) NewChannel(p gpio.PinIn, cfg *capture.ChannelConfig) (capture.Channel, error) {
	if cfg.Prescale > 1 {
		return nil, ErrPrescale
	}
	if !cfg.Pos && !cfg.Neg {
		return nil, errors.New("cdevpin: channel captures no edge")
	}
	ch := &channel{t: t, cfg: *cfg, chip: t.chip, offset: p.Number()}
	if cp, ok := p.(*Pin); ok {
		ch.chip = cp.chip
		ch.offset = cp.offset
	}
	if ch.chip == "" || ch.offset < 0 {
		return nil, fmt.Errorf("cdevpin: no line for %s", p)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil, ErrHalted
	}
	t.channels = append(t.channels, ch)
	return ch, nil
}

func (t *timer) Frequency() physic.Frequency {
	return Frequency
}

func (t *timer) Enable() error {
	return t.set(func() { t.enabled = true })
}

func (t *timer) Disable() error {
	return t.set(func() { t.enabled = false })
}

func (t *timer) Start() error {
	return t.set(func() { t.running = true })
}

func (t *timer) Stop() error {
	return t.set(func() { t.running = false })
}

func (t *timer) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	t.enabled = false
	t.running = false
	for _, ch := range t.channels {
		if ch.enabled() {
			return fmt.Errorf("cdevpin: %s still open", ch)
		}
	}
	t.channels = nil
	return nil
}

func (t *timer) set(f func()) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return ErrHalted
	}
	f()
	return nil
}

func (t *timer) live() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.enabled && t.running
}

// channel requests its line on Enable and delivers kernel edge events to the
// callback while the timer runs.
type channel struct {
	t      *timer
	cfg    capture.ChannelConfig
	chip   string
	offset int

	cb atomic.Value // capture.Callback
	// fire is held for reading while the callback runs.
	fire sync.RWMutex

	mu sync.Mutex
	l  line
}

func (c *channel) String() string {
	return fmt.Sprintf("cdevpin.Channel(%s/%d)", c.chip, c.offset)
}

func (c *channel) RegisterCallback(cb capture.Callback) error {
	c.cb.Store(cb)
	return nil
}

func (c *channel) Enable() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.l != nil {
		return nil
	}
	opts := []gpiocdev.LineReqOption{
		gpiocdev.AsInput,
		gpiocdev.WithConsumer(Consumer),
		gpiocdev.WithEventHandler(c.onEvent),
	}
	if c.cfg.PullUp {
		opts = append(opts, gpiocdev.WithPullUp)
	}
	switch {
	case c.cfg.Pos && c.cfg.Neg:
		opts = append(opts, gpiocdev.WithBothEdges)
	case c.cfg.Pos:
		opts = append(opts, gpiocdev.WithRisingEdge)
	default:
		opts = append(opts, gpiocdev.WithFallingEdge)
	}
	l, err := c.t.request(c.chip, c.offset, opts...)
	if err != nil {
		return pkgerrors.Wrapf(err, "cdevpin: request %s", c)
	}
	c.l = l
	return nil
}

func (c *channel) enabled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.l != nil
}

// Disable releases the line, then waits for a callback in progress. No lock
// is held while closing since Close waits for the event goroutine.
func (c *channel) Disable() error {
	c.mu.Lock()
	l := c.l
	c.l = nil
	c.mu.Unlock()
	if l == nil {
		return nil
	}
	err := l.Close()
	c.fire.Lock()
	c.fire.Unlock()
	if err != nil {
		return pkgerrors.Wrapf(err, "cdevpin: release %s", c)
	}
	return nil
}

func (c *channel) Close() error {
	if err := c.Disable(); err != nil {
		return err
	}
	c.cb.Store(capture.Callback(nil))
	return nil
}

// onEvent is called by gpiocdev from its event goroutine.
func (c *channel) onEvent(evt gpiocdev.LineEvent) {
	c.fire.RLock()
	defer c.fire.RUnlock()
	cb, _ := c.cb.Load().(capture.Callback)
	if cb == nil || !c.enabled() || !c.t.live() {
		return
	}
	e := capture.Event{Edge: capture.NegEdge, Value: uint32(evt.Timestamp.Nanoseconds())}
	if evt.Type == gpiocdev.LineEventRisingEdge {
		e.Edge = capture.PosEdge
	}
	cb(c, e)
}

var _ capture.Opener = &Capture{}

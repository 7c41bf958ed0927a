// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

//go:build linux

package cdevpin

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	pkgerrors "github.com/pkg/errors"
	"github.com/warthog618/go-gpiocdev"
	"periph.io/x/conn/v3/gpio"
)

// Consumer is the label the kernel shows for lines requested by this package.
const Consumer = "co2pwm"

// edgeBuffer is the number of edges kept between two WaitForEdge calls.
const edgeBuffer = 16

var (
	// ErrHalted is returned when using a Pin after Halt.
	ErrHalted = errors.New("cdevpin: pin halted")
	// ErrPrescale is returned for a capture channel with a prescaler.
	ErrPrescale = errors.New("cdevpin: prescaling is not supported")
)

// line is the part of *gpiocdev.Line used by this package.
type line interface {
	Value() (int, error)
	Close() error
}

type requestFunc func(chip string, offset int, opts ...gpiocdev.LineReqOption) (line, error)

func requestLine(chip string, offset int, opts ...gpiocdev.LineReqOption) (line, error) {
	l, err := gpiocdev.RequestLine(chip, offset, opts...)
	if err != nil {
		return nil, err
	}
	return l, nil
}

// Pin is a GPIO line of a character device, used as an input.
type Pin struct {
	chip    string
	offset  int
	name    string
	clock   clockwork.Clock
	request requestFunc

	mu     sync.Mutex
	line   line
	pull   gpio.Pull
	edge   gpio.Edge
	edges  chan gpio.Level
	reset  chan struct{}
	level  gpio.Level
	halted bool
}

// Open returns the line offset of chip, e.g. "gpiochip0" or
// "/dev/gpiochip0". The line is not requested until In is called.
func Open(chip string, offset int) (*Pin, error) {
	if chip == "" || offset < 0 {
		return nil, fmt.Errorf("cdevpin: invalid line %s:%d", chip, offset)
	}
	return newPin(chip, offset, clockwork.NewRealClock(), requestLine), nil
}

func newPin(chip string, offset int, clk clockwork.Clock, req requestFunc) *Pin {
	return &Pin{
		chip:    chip,
		offset:  offset,
		name:    fmt.Sprintf("%s/%d", chip, offset),
		clock:   clk,
		request: req,
		reset:   make(chan struct{}),
	}
}

// String implements conn.Resource.
func (p *Pin) String() string {
	return p.name
}

// Halt implements conn.Resource. It releases the line.
func (p *Pin) Halt() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.halted {
		return nil
	}
	p.halted = true
	return p.release()
}

// Name implements pin.Pin.
func (p *Pin) Name() string {
	return p.name
}

// Number implements pin.Pin. It returns the line offset.
func (p *Pin) Number() int {
	return p.offset
}

// Function implements pin.Pin.
func (p *Pin) Function() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.line == nil {
		return ""
	}
	return "In"
}

// In implements gpio.PinIn.
//
// Each call releases the line and requests it again with the new settings,
// which discards pending edges and wakes up WaitForEdge.
func (p *Pin) In(pull gpio.Pull, edge gpio.Edge) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.halted {
		return ErrHalted
	}
	if pull == gpio.PullNoChange {
		pull = p.pull
	}
	opts := []gpiocdev.LineReqOption{gpiocdev.AsInput, gpiocdev.WithConsumer(Consumer)}
	switch pull {
	case gpio.PullNoChange:
	case gpio.Float:
		opts = append(opts, gpiocdev.WithBiasDisabled)
	case gpio.PullDown:
		opts = append(opts, gpiocdev.WithPullDown)
	case gpio.PullUp:
		opts = append(opts, gpiocdev.WithPullUp)
	default:
		return fmt.Errorf("cdevpin: invalid pull %s", pull)
	}
	switch edge {
	case gpio.NoEdge:
	case gpio.RisingEdge:
		opts = append(opts, gpiocdev.WithRisingEdge)
	case gpio.FallingEdge:
		opts = append(opts, gpiocdev.WithFallingEdge)
	case gpio.BothEdges:
		opts = append(opts, gpiocdev.WithBothEdges)
	default:
		return fmt.Errorf("cdevpin: invalid edge %s", edge)
	}
	edges := make(chan gpio.Level, edgeBuffer)
	if edge != gpio.NoEdge {
		opts = append(opts, gpiocdev.WithEventHandler(func(evt gpiocdev.LineEvent) {
			push(edges, evt)
		}))
	}

	if err := p.release(); err != nil {
		return err
	}
	l, err := p.request(p.chip, p.offset, opts...)
	if err != nil {
		return pkgerrors.Wrapf(err, "cdevpin: request %s", p.name)
	}
	p.line = l
	p.edges = edges
	p.pull = pull
	p.edge = edge
	if v, err := l.Value(); err == nil {
		p.level = v != 0
	}
	return nil
}

// Read implements gpio.PinIn.
//
// With edge detection enabled, it returns the level of the last edge
// returned by WaitForEdge so that levels and edges stay in order.
func (p *Pin) Read() gpio.Level {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.line == nil || p.edge != gpio.NoEdge {
		return p.level
	}
	v, err := p.line.Value()
	if err != nil {
		return p.level
	}
	p.level = v != 0
	return p.level
}

// WaitForEdge implements gpio.PinIn.
func (p *Pin) WaitForEdge(timeout time.Duration) bool {
	p.mu.Lock()
	edges, reset := p.edges, p.reset
	p.mu.Unlock()
	if edges == nil {
		return false
	}
	var after <-chan time.Time
	if timeout >= 0 {
		t := p.clock.NewTimer(timeout)
		defer t.Stop()
		after = t.Chan()
	}
	select {
	case l := <-edges:
		p.mu.Lock()
		p.level = l
		p.mu.Unlock()
		return true
	case <-reset:
		return false
	case <-after:
		return false
	}
}

// Pull implements gpio.PinIn.
func (p *Pin) Pull() gpio.Pull {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pull
}

// DefaultPull implements gpio.PinIn. The reset state depends on the board.
func (p *Pin) DefaultPull() gpio.Pull {
	return gpio.PullNoChange
}

// push is called by gpiocdev from its event goroutine. It must not take
// Pin.mu since Close waits for that goroutine. Edges are dropped when
// nobody waits for them.
func push(edges chan<- gpio.Level, evt gpiocdev.LineEvent) {
	select {
	case edges <- evt.Type == gpiocdev.LineEventRisingEdge:
	default:
	}
}

// release closes the line and wakes up waiters. p.mu must be held.
func (p *Pin) release() error {
	close(p.reset)
	p.reset = make(chan struct{})
	p.edges = nil
	if p.line == nil {
		return nil
	}
	err := p.line.Close()
	p.line = nil
	if err != nil {
		return pkgerrors.Wrapf(err, "cdevpin: release %s", p.name)
	}
	return nil
}

var _ gpio.PinIn = &Pin{}

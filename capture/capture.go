// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package capture

import (
	"fmt"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
)

// Edge is the polarity of a captured transition.
type Edge uint8

const (
	// PosEdge is a low to high transition.
	PosEdge Edge = iota + 1
	// NegEdge is a high to low transition.
	NegEdge
)

func (e Edge) String() string {
	switch e {
	case PosEdge:
		return "PosEdge"
	case NegEdge:
		return "NegEdge"
	default:
		return fmt.Sprintf("Edge(%d)", uint8(e))
	}
}

// Event is the data handed to a Callback for every captured edge.
type Event struct {
	// Edge that triggered the capture.
	Edge Edge
	// Value is the free-running timer count latched on the edge. It wraps
	// around at 1<<32.
	Value uint32
}

// Callback is invoked from the peripheral's interrupt context for every
// captured edge. It must not block.
type Callback func(ch Channel, e Event)

// ChannelConfig describes which edges a channel latches.
type ChannelConfig struct {
	// Pos enables capture on positive edges.
	Pos bool
	// Neg enables capture on negative edges.
	Neg bool
	// PullUp enables the internal pull up on the input.
	PullUp bool
	// Prescale divides the input signal before capture. 0 and 1 mean no
	// division.
	Prescale uint32
}

// Opener creates capture timers. It is the entry point a driver needs to
// acquire a peripheral.
type Opener interface {
	NewTimer() (Timer, error)
}

// Timer is a free-running capture timer shared by one or more channels.
//
// Resources must be released in reverse order of acquisition: Stop,
// Disable, then Close.
type Timer interface {
	fmt.Stringer
	// NewChannel binds a capture channel to p.
	NewChannel(p gpio.PinIn, cfg *ChannelConfig) (Channel, error)
	// Frequency returns the timer tick frequency, used to convert captured
	// values to time.
	Frequency() physic.Frequency
	Enable() error
	Disable() error
	Start() error
	Stop() error
	// Close releases the timer.
	Close() error
}

// Channel is one capture input of a Timer.
type Channel interface {
	fmt.Stringer
	// RegisterCallback sets the function called on each captured edge. It
	// must be called before Enable.
	RegisterCallback(cb Callback) error
	Enable() error
	// Disable stops capturing. No callback runs after it returns; it waits
	// for one in progress to complete.
	Disable() error
	// Close releases the channel. It implies Disable.
	Close() error
}

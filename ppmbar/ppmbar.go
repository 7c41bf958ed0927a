// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package ppmbar draws a CO2 reading as a colored bar on a terminal using
// ANSI color codes.
//
// The bar is redrawn in place on every Display call.
package ppmbar

import (
	"bytes"
	"fmt"
	"image/color"
	"io"

	"github.com/GermanBionicSystems/co2pwm/cj202"
	"github.com/maruel/ansi256"
	"github.com/mattn/go-colorable"
)

// Opts represents the options available for the gauge.
type Opts struct {
	// Width is the number of cells of a full scale bar. Defaults to 50.
	Width int
	// Warn and Alarm are the thresholds where the bar turns yellow and red.
	// Default to 1000 and 2000 PPM.
	Warn  cj202.PPM
	Alarm cj202.PPM
	// Palette defaults to ansi256.Default.
	Palette *ansi256.Palette
	// W defaults to a colorable stdout.
	W io.Writer

	_ struct{}
}

var (
	good  = color.NRGBA{0x00, 0xC0, 0x00, 0xFF}
	warn  = color.NRGBA{0xE0, 0xC0, 0x00, 0xFF}
	alarm = color.NRGBA{0xE0, 0x00, 0x00, 0xFF}
	empty = color.NRGBA{0x30, 0x30, 0x30, 0xFF}
)

// Dev is a bar gauge that outputs to the console.
type Dev struct {
	w       io.Writer
	width   int
	warn    cj202.PPM
	alarm   cj202.PPM
	palette ansi256.Palette

	buf bytes.Buffer
}

// New returns a Dev that displays at the console.
func New(opts *Opts) *Dev {
	d := &Dev{
		w:       opts.W,
		width:   opts.Width,
		warn:    opts.Warn,
		alarm:   opts.Alarm,
		palette: *ansi256.Default,
	}
	if opts.Palette != nil {
		d.palette = *opts.Palette
	}
	if d.w == nil {
		d.w = colorable.NewColorableStdout()
	}
	if d.width <= 0 {
		d.width = 50
	}
	if d.warn == 0 {
		d.warn = 1000
	}
	if d.alarm == 0 {
		d.alarm = 2000
	}
	return d
}

func (d *Dev) String() string {
	return "PPMBar"
}

// Halt implements conn.Resource.
//
// It moves to the next line and resets the colors so the terminal is not
// corrupted.
func (d *Dev) Halt() error {
	_, err := d.w.Write([]byte("\n\033[0m"))
	return err
}

// Display redraws the bar for p.
func (d *Dev) Display(p cj202.PPM) error {
	filled := d.cells(p)
	c := good
	switch {
	case p >= d.alarm:
		c = alarm
	case p >= d.warn:
		c = warn
	}
	d.buf.Reset()
	_, _ = d.buf.WriteString("\r\033[0m")
	on, off := d.palette.Block(c), d.palette.Block(empty)
	for i := 0; i < d.width; i++ {
		if i < filled {
			_, _ = io.WriteString(&d.buf, on)
		} else {
			_, _ = io.WriteString(&d.buf, off)
		}
	}
	_, _ = fmt.Fprintf(&d.buf, "\033[0m %5d PPM ", int(p))
	_, err := d.buf.WriteTo(d.w)
	return err
}

// cells returns the number of lit cells for p, rounded up so that any non
// zero reading is visible.
func (d *Dev) cells(p cj202.PPM) int {
	if p <= cj202.MinPPM {
		return 0
	}
	if p >= cj202.MaxPPM {
		return d.width
	}
	return (int(p)*d.width + int(cj202.MaxPPM) - 1) / int(cj202.MaxPPM)
}

var _ fmt.Stringer = &Dev{}

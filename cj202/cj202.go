// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package cj202

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/GermanBionicSystems/co2pwm/capture"
	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"
	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/gpio"
)

// Mode selects how the sensor output is captured.
type Mode int

const (
	// EdgeInterrupt timestamps both edges in software.
	EdgeInterrupt Mode = iota
	// HardwareCapture latches the high time with a capture timer.
	HardwareCapture
)

func (m Mode) String() string {
	switch m {
	case EdgeInterrupt:
		return "EdgeInterrupt"
	case HardwareCapture:
		return "HardwareCapture"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (m Mode) MarshalText() ([]byte, error) {
	switch m {
	case EdgeInterrupt:
		return []byte("edge"), nil
	case HardwareCapture:
		return []byte("capture"), nil
	default:
		return nil, fmt.Errorf("cj202: unknown mode %d", int(m))
	}
}

// UnmarshalText implements encoding.TextUnmarshaler. It accepts "edge" and
// "capture", and the aliases "gpio" and "mcpwm".
func (m *Mode) UnmarshalText(b []byte) error {
	switch strings.ToLower(string(b)) {
	case "edge", "gpio", "edgeinterrupt":
		*m = EdgeInterrupt
	case "capture", "mcpwm", "hardwarecapture":
		*m = HardwareCapture
	default:
		return fmt.Errorf("cj202: unknown mode %q", b)
	}
	return nil
}

// Opts holds the configuration options.
type Opts struct {
	// Mode is fixed for the lifetime of the Dev.
	Mode Mode
	// Pull is the input configuration of the pin. With HardwareCapture,
	// gpio.PullUp enables the capture channel pull up.
	Pull gpio.Pull
	// Capture provides the capture timer. Required for HardwareCapture.
	Capture capture.Opener
	// Clock is the monotonic time source. Defaults to the real clock.
	Clock clockwork.Clock
	// Logger defaults to logrus.StandardLogger().
	Logger logrus.FieldLogger
}

// DefaultOpts is the recommended default options.
var DefaultOpts = Opts{
	Mode: EdgeInterrupt,
	Pull: gpio.Float,
}

// source produces candidate measurements for the decoder.
type source interface {
	start() error
	stop() error
}

// Dev is a handle to a CJ202 sensor whose PWM output is wired to a GPIO.
type Dev struct {
	name  string
	mode  Mode
	pull  gpio.Pull
	clock clockwork.Clock
	boot  time.Time
	log   logrus.FieldLogger

	st    state
	stats stats
	dec   decoder

	mu  sync.Mutex
	src source
}

// New starts decoding the sensor output on p.
//
// Reading starts at 0 and the first value is published after one full
// sensor cycle, roughly two seconds.
func New(p gpio.PinIn, opts *Opts) (*Dev, error) {
	if p == nil || opts == nil {
		return nil, ErrInvalidArgument
	}
	if opts.Pull > gpio.PullUp {
		return nil, fmt.Errorf("%w: pull %s", ErrInvalidArgument, opts.Pull)
	}
	d := &Dev{
		name:  p.Name(),
		mode:  opts.Mode,
		pull:  opts.Pull,
		clock: opts.Clock,
		log:   opts.Logger,
	}
	if d.clock == nil {
		d.clock = clockwork.NewRealClock()
	}
	if d.log == nil {
		d.log = logrus.StandardLogger()
	}
	d.log = d.log.WithFields(logrus.Fields{"pin": d.name, "mode": d.mode})
	d.boot = d.clock.Now()
	d.dec = decoder{st: &d.st, stats: &d.stats, log: d.log}

	switch opts.Mode {
	case EdgeInterrupt:
		d.src = newEdgeSource(d, p)
	case HardwareCapture:
		if opts.Capture == nil {
			d.log.Error("no capture peripheral available")
			return nil, fmt.Errorf("%w: %s requires a capture peripheral", ErrUnsupportedMode, opts.Mode)
		}
		d.src = newTimerSource(d, p, opts.Capture)
	default:
		d.log.Errorf("unsupported mode %d", int(opts.Mode))
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedMode, opts.Mode)
	}

	d.log.Info("initializing CJ202 CO2 sensor")
	if err := d.src.start(); err != nil {
		d.log.WithError(err).Error("initialization failed")
		return nil, err
	}
	d.log.Info("CJ202 CO2 sensor initialized")
	return d, nil
}

// PPM returns the last published CO2 concentration. It never blocks.
//
// It returns 0 for a nil or halted Dev, and until the first valid cycle was
// decoded.
func (d *Dev) PPM() PPM {
	if d == nil {
		return 0
	}
	return PPM(d.st.ppm.Load())
}

// Mode returns the capture mode selected at New.
func (d *Dev) Mode() Mode {
	return d.mode
}

// Stats returns the sample counters.
func (d *Dev) Stats() Stats {
	if d == nil {
		return Stats{}
	}
	return d.stats.snapshot()
}

// Halt implements conn.Resource.
//
// It stops capturing and releases the pin and capture resources. The Dev
// cannot be used afterward; a second call returns ErrInvalidArgument.
func (d *Dev) Halt() error {
	if d == nil {
		return ErrInvalidArgument
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.src == nil {
		return ErrInvalidArgument
	}
	err := d.src.stop()
	d.src = nil
	d.st.ppm.Store(0)
	if err != nil {
		d.log.WithError(err).Warn("deinitialized with errors")
	} else {
		d.log.Info("CJ202 CO2 sensor deinitialized")
	}
	return err
}

func (d *Dev) String() string {
	return fmt.Sprintf("cj202{%s, %s}", d.name, d.mode)
}

// now returns the monotonic time since New at millisecond resolution.
func (d *Dev) now() time.Duration {
	return d.clock.Since(d.boot).Truncate(time.Millisecond)
}

var _ conn.Resource = &Dev{}
var _ fmt.Stringer = &Dev{}

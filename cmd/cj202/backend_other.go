// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

//go:build !linux

package main

import (
	"errors"

	"github.com/GermanBionicSystems/co2pwm/capture"
	"periph.io/x/conn/v3/gpio"
)

var errNoCdev = errors.New("GPIO character devices require linux")

func openLine(chip string, line int) (gpio.PinIn, error) {
	return nil, errNoCdev
}

func newCapture(chip string) (capture.Opener, error) {
	return nil, errNoCdev
}

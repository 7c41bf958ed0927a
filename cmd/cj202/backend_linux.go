// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

//go:build linux

package main

import (
	"github.com/GermanBionicSystems/co2pwm/capture"
	"github.com/GermanBionicSystems/co2pwm/cdevpin"
	"periph.io/x/conn/v3/gpio"
)

func openLine(chip string, line int) (gpio.PinIn, error) {
	return cdevpin.Open(chip, line)
}

func newCapture(chip string) (capture.Opener, error) {
	return &cdevpin.Capture{Chip: chip}, nil
}

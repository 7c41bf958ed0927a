// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package co2pwm is a container for the CJ202 CO2 sensor driver and the
// capture backends it runs on.
//
// The driver lives in package cj202. Package capture describes hardware
// pulse-capture peripherals and cdevpin implements GPIO input and capture on
// Linux GPIO character devices. The cj202 command exports readings to
// Prometheus.
package co2pwm

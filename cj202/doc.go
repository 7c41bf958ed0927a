// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package cj202 provides a driver for the CJ202 family of NDIR CO2 sensors
// read through their PWM output.
//
// The sensor emits a square wave with a 1004ms period. The high time TH
// encodes the concentration:
//
//	Cppm = 5000 × (TH-2ms) / (TH+TL-4ms)
//
// Two capture strategies are available. EdgeInterrupt timestamps both edges
// of a GPIO in software; it works on any pin supporting edge detection.
// HardwareCapture measures the high time with a capture peripheral (see
// package capture) and is not affected by scheduling latency.
//
// Cycles whose period falls outside 950ms-1050ms are discarded. When a good
// cycle was seen before, its value is published again so the reading stays
// steady through glitches.
package cj202

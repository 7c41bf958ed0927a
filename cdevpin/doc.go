// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package cdevpin exposes Linux GPIO character device lines through the
// periph interfaces.
//
// Pin implements gpio.PinIn with edge detection delivered by the kernel, so
// it works on any board with a /dev/gpiochipN device without a periph host
// driver.
//
// Capture implements capture.Opener. Its timer does not count anything: the
// captured value of an edge is the kernel event timestamp in nanoseconds,
// truncated to 32 bits, so it behaves like a 1GHz free-running counter that
// wraps every 4.29s.
//
// Both require Linux 5.10 or later.
package cdevpin

// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package capture defines the interface of a hardware pulse-capture
// peripheral: a free-running timer with input channels that latch the timer
// count on signal edges and report it through a callback.
//
// Microcontrollers expose this as input-capture units (e.g. MCPWM capture on
// ESP32, TIMx input capture on STM32). On Linux, the cdevpin package provides
// an implementation that uses kernel edge timestamps instead.
//
// Drivers acquire the peripheral in this order and release it in reverse:
//
//	t, _ := opener.NewTimer()
//	ch, _ := t.NewChannel(pin, &capture.ChannelConfig{Pos: true, Neg: true})
//	_ = ch.RegisterCallback(cb)
//	_ = ch.Enable()
//	_ = t.Enable()
//	_ = t.Start()
package capture

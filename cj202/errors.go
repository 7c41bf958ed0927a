// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package cj202

import (
	"errors"

	pkgerrors "github.com/pkg/errors"
)

var (
	// ErrInvalidArgument is returned for a nil or already halted Dev, or an
	// invalid configuration.
	ErrInvalidArgument = errors.New("cj202: invalid argument")
	// ErrOutOfMemory is never returned: allocation failure is fatal in Go.
	ErrOutOfMemory = errors.New("cj202: out of memory")
	// ErrUnsupportedMode is returned when the requested capture mode is not
	// available, e.g. HardwareCapture without a capture peripheral.
	ErrUnsupportedMode = errors.New("cj202: unsupported capture mode")
	// ErrHardwareInit is matched by every HardwareError.
	ErrHardwareInit = errors.New("cj202: hardware init failed")
)

// HardwareError is returned by New when configuring the pin or the capture
// peripheral failed. Err is the platform error.
type HardwareError struct {
	Op  string
	Err error
}

func hardwareError(op string, err error) error {
	return &HardwareError{Op: op, Err: pkgerrors.WithStack(err)}
}

func (e *HardwareError) Error() string {
	return "cj202: " + e.Op + ": " + e.Err.Error()
}

// Unwrap returns the platform error.
func (e *HardwareError) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, ErrHardwareInit) true.
func (e *HardwareError) Is(target error) bool {
	return target == ErrHardwareInit
}

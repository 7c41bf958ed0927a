// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package ppmbar

import (
	"bytes"
	"strings"
	"testing"

	"github.com/GermanBionicSystems/co2pwm/cj202"
	"github.com/maruel/ansi256"
)

func TestCells(t *testing.T) {
	d := New(&Opts{Width: 10, W: &bytes.Buffer{}})
	data := []struct {
		p    cj202.PPM
		want int
	}{
		{0, 0},
		{1, 1},
		{499, 1},
		{500, 1},
		{501, 2},
		{2500, 5},
		{4999, 10},
		{5000, 10},
		{9000, 10},
	}
	for _, line := range data {
		if got := d.cells(line.p); got != line.want {
			t.Errorf("cells(%d) = %d, want %d", line.p, got, line.want)
		}
	}
}

func TestDisplay(t *testing.T) {
	buf := bytes.Buffer{}
	d := New(&Opts{Width: 4, W: &buf})
	if s := d.String(); s != "PPMBar" {
		t.Fatal(s)
	}
	p := ansi256.Default
	data := []struct {
		ppm cj202.PPM
		on  string
		n   int
	}{
		{412, p.Block(good), 1},
		{1000, p.Block(warn), 1},
		{2500, p.Block(alarm), 2},
	}
	for _, line := range data {
		buf.Reset()
		if err := d.Display(line.ppm); err != nil {
			t.Fatal(err)
		}
		want := "\r\033[0m" + strings.Repeat(line.on, line.n) + strings.Repeat(p.Block(empty), 4-line.n) + "\033[0m"
		got := buf.String()
		if !strings.HasPrefix(got, want) {
			t.Fatalf("Display(%d) = %q, want prefix %q", line.ppm, got, want)
		}
		if !strings.HasSuffix(got, line.ppm.String()+" ") {
			t.Fatalf("Display(%d) = %q", line.ppm, got)
		}
	}

	buf.Reset()
	if err := d.Halt(); err != nil {
		t.Fatal(err)
	}
	if s := buf.String(); s != "\n\033[0m" {
		t.Fatalf("unexpected %q", s)
	}
}

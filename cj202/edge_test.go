// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package cj202

import (
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus/hooks/test"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpiotest"
)

// waitFor polls cond until it is true or fails the test after 5s.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(time.Millisecond)
	}
}

type edge struct {
	at time.Duration
	l  gpio.Level
}

// pulses returns the edges of n cycles of the given high time and period,
// starting with a rising edge at start.
func pulses(start, high, period time.Duration, n int) []edge {
	var out []edge
	for i := 0; i < n; i++ {
		r := start + time.Duration(i)*period
		out = append(out, edge{r, gpio.High}, edge{r + high, gpio.Low})
	}
	return out
}

func TestEdgeBookkeeping(t *testing.T) {
	d, _ := newTestDev()
	s := newEdgeSource(d, nil)
	s.events = make(chan edgeEvent, QueueDepth)

	s.onEdge(gpio.High, 0)
	if _, ok := d.st.consume(); ok {
		t.Fatal("a rising edge alone must not complete a measurement")
	}
	s.onEdge(gpio.Low, 202*ms)
	c, ok := d.st.consume()
	if !ok {
		t.Fatal("expected a candidate")
	}
	// No period is known before the second rising edge.
	if c.high() != 202*ms || c.period() != 0 {
		t.Fatalf("got %s/%s", c.high(), c.period())
	}

	s.onEdge(gpio.High, 1004*ms)
	if d.st.period != 1004*ms {
		t.Fatalf("period = %s", d.st.period)
	}
	if _, ok := d.st.consume(); ok {
		t.Fatal("a rising edge must not complete a measurement")
	}
	s.onEdge(gpio.Low, 1306*ms)
	if c, ok = d.st.consume(); !ok {
		t.Fatal("expected a candidate")
	}
	if c.high() != 302*ms || c.period() != 1004*ms {
		t.Fatalf("got %s/%s", c.high(), c.period())
	}
	if n := len(s.events); n != 4 {
		t.Fatalf("%d events queued, want 4", n)
	}
}

func TestEdgeFallingFirst(t *testing.T) {
	d, _ := newTestDev()
	s := newEdgeSource(d, nil)
	s.events = make(chan edgeEvent, QueueDepth)

	// Capture started in the middle of a high pulse.
	s.onEdge(gpio.Low, 120*ms)
	if _, ok := d.st.consume(); ok {
		t.Fatal("no rising edge seen yet")
	}
	s.onEdge(gpio.High, 920*ms)
	// The high time of the previous pulse is unknown, so the period is
	// short by that much and will fail the window check.
	if d.st.period != 800*ms {
		t.Fatalf("period = %s", d.st.period)
	}
	s.onEdge(gpio.Low, 1122*ms)
	c, _ := d.st.consume()
	if o := d.dec.decode(c.high(), c.period()); o != rejected {
		t.Fatalf("got %s", o)
	}
}

func TestEdgeLongGap(t *testing.T) {
	d, _ := newTestDev()
	s := newEdgeSource(d, nil)
	s.events = make(chan edgeEvent, QueueDepth)

	// The signal disappears for over 71 minutes. The true period wraps to
	// 1002ms in 32 bits of microseconds.
	rise := 202*ms + 1<<32*time.Microsecond + 800*ms
	for _, e := range []edge{{0, gpio.High}, {202 * ms, gpio.Low}, {rise, gpio.High}, {rise + 202*ms, gpio.Low}} {
		s.onEdge(e.l, e.at)
	}
	c, ok := d.st.consume()
	if !ok {
		t.Fatal("expected a candidate")
	}
	if c.period() <= MaxPeriod {
		t.Fatalf("period %s staged as %s", d.st.period, c.period())
	}
	if o := d.dec.decode(c.high(), c.period()); o != rejected {
		t.Fatalf("got %s", o)
	}
	if ppm := d.PPM(); ppm != 0 {
		t.Fatalf("ppm = %d", ppm)
	}
}

func TestEdgeQueueKeepsNewest(t *testing.T) {
	d, _ := newTestDev()
	s := newEdgeSource(d, nil)
	s.events = make(chan edgeEvent, QueueDepth)

	for i := 0; i < QueueDepth+3; i++ {
		s.post(edgeEvent{at: time.Duration(i) * ms})
	}
	if n := len(s.events); n != QueueDepth {
		t.Fatalf("%d events queued", n)
	}
	if n := d.Stats().Dropped; n != 3 {
		t.Fatalf("dropped %d, want 3", n)
	}
	first := <-s.events
	if first.at != 3*ms {
		t.Fatalf("oldest kept event is %s, want 3ms", first.at)
	}
}

// newEdgeDev starts a Dev on a fake pin. Edges are delivered with feed.
func newEdgeDev(t *testing.T) (*Dev, *gpiotest.Pin, *clockwork.FakeClock, *test.Hook) {
	log, hook := test.NewNullLogger()
	clk := clockwork.NewFakeClock()
	p := &gpiotest.Pin{N: "GPIO4", Num: 4, EdgesChan: make(chan gpio.Level)}
	d, err := New(p, &Opts{Mode: EdgeInterrupt, Pull: gpio.Float, Clock: clk, Logger: log})
	if err != nil {
		t.Fatal(err)
	}
	return d, p, clk, hook
}

// feed plays edges on p, advancing clk so that each edge is timestamped at
// e.at since the Dev was created. It waits for every candidate to be
// consumed by the decoder.
func feed(t *testing.T, d *Dev, p *gpiotest.Pin, clk *clockwork.FakeClock, edges []edge) {
	t.Helper()
	for _, e := range edges {
		if now := d.now(); e.at > now {
			clk.Advance(e.at - now)
		}
		n := d.Stats().Edges
		p.EdgesChan <- e.l
		waitFor(t, "edge", func() bool { return d.Stats().Edges == n+1 })
		waitFor(t, "decoder", func() bool { return !d.st.ready.Load() })
	}
}

func TestEdgeInterrupt(t *testing.T) {
	d, p, clk, _ := newEdgeDev(t)
	defer d.Halt()

	if ppm := d.PPM(); ppm != 0 {
		t.Fatalf("fresh Dev reads %d", ppm)
	}

	// The first cycle has no period, the second one is published.
	feed(t, d, p, clk, pulses(0, 202*ms, 1004*ms, 2))
	waitFor(t, "accepted", func() bool { return d.Stats().Accepted == 1 })
	if ppm := d.PPM(); ppm != ComputePPM(202*ms, 1004*ms) {
		t.Fatalf("ppm = %d", ppm)
	}
	if s := d.Stats(); s.Rejected != 1 || s.Degraded != 0 {
		t.Fatalf("unexpected %+v", s)
	}

	// A 1100ms cycle is out of window, the reading does not move.
	feed(t, d, p, clk, []edge{{2104 * ms, gpio.High}, {2606 * ms, gpio.Low}})
	waitFor(t, "degraded", func() bool { return d.Stats().Degraded == 1 })
	if ppm := d.PPM(); ppm != 1000 {
		t.Fatalf("ppm = %d, want 1000", ppm)
	}
	if s := d.Stats(); s.Accepted != 1 {
		t.Fatalf("unexpected %+v", s)
	}
}

func TestEdgeRoundTrip(t *testing.T) {
	d, p, clk, _ := newEdgeDev(t)
	defer d.Halt()

	rise1, fall1, rise2, fall2 := 10*ms, 160*ms, 1008*ms, 1731*ms
	feed(t, d, p, clk, []edge{
		{rise1, gpio.High}, {fall1, gpio.Low}, {rise2, gpio.High}, {fall2, gpio.Low},
	})
	waitFor(t, "accepted", func() bool { return d.Stats().Accepted == 1 })
	high := fall2 - rise2
	period := rise2 - fall1 + (fall1 - rise1)
	want := PPM(5000 * (float64(high/ms) - 2) / (float64(period/ms) - 4))
	if ppm := d.PPM(); ppm != want {
		t.Fatalf("ppm = %d, want %d", ppm, want)
	}
}

func TestEdgeHalt(t *testing.T) {
	d, _, _, _ := newEdgeDev(t)
	s := d.src.(*edgeSource)
	if err := d.Halt(); err != nil {
		t.Fatal(err)
	}
	if s.events != nil || s.haltPump != nil || s.haltDec != nil {
		t.Fatal("queue or goroutine handles leaked")
	}
	if d.src != nil {
		t.Fatal("source not released")
	}
}

func TestEdgeConcurrentReaders(t *testing.T) {
	d, p, clk, _ := newEdgeDev(t)
	defer d.Halt()

	stop := make(chan struct{})
	var wg sync.WaitGroup
	bad := make(chan PPM, 4)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				// Only the initial value and published readings are visible.
				if v := d.PPM(); v != 0 && v != 1000 && v != 2500 {
					select {
					case bad <- v:
					default:
					}
				}
			}
		}()
	}

	feed(t, d, p, clk, pulses(0, 202*ms, 1004*ms, 2))
	feed(t, d, p, clk, pulses(2008*ms, 502*ms, 1004*ms, 2))
	waitFor(t, "accepted", func() bool { return d.Stats().Accepted == 3 })
	close(stop)
	wg.Wait()
	close(bad)
	for v := range bad {
		t.Errorf("reader saw %d", v)
	}
	if ppm := d.PPM(); ppm != 2500 {
		t.Fatalf("ppm = %d, want 2500", ppm)
	}
}

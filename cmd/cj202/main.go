// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Command cj202 reads a CJ202 CO2 sensor through its PWM output and exports
// the concentration to Prometheus.
//
// Usage:
//
//	cj202 [flags]
//
// Flags:
//
//	-config string          YAML configuration file path
//	-pin string             periph pin name (default "GPIO4")
//	-chip string            GPIO character device, overrides -pin
//	-line int               line offset on -chip
//	-mode value             capture mode: edge or capture (default edge)
//	-pull string            input bias: float, up, down or nochange
//	-listen-address string  The address to listen on for HTTP requests (default ":8080")
//	-read-int duration      time interval between sensor reads (default 1s)
//	-log-level string       Log level: debug, info, warn, error (default "info")
//	-bar                    draw a bar gauge when stdout is a terminal (default true)
//
// Examples:
//
//	# Edge timestamping on a Raspberry Pi header pin
//	cj202 -pin GPIO4
//
//	# Kernel timestamped capture on line 17 of the first GPIO chip
//	cj202 -chip gpiochip0 -line 17 -mode capture -pull up
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/GermanBionicSystems/co2pwm/cj202"
	"github.com/GermanBionicSystems/co2pwm/ppmbar"
	"github.com/mattn/go-isatty"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"
)

func main() {
	if err := mainImpl(); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(2)
		}
		log.Fatal(err)
	}
}

func mainImpl() error {
	cfg, err := loadConfig(os.Args[1:])
	if err != nil {
		return err
	}
	setupLogging(cfg.LogLevel)

	p, err := openPin(cfg)
	if err != nil {
		return err
	}
	opts, err := driverOpts(cfg)
	if err != nil {
		return err
	}
	dev, err := cj202.New(p, opts)
	if err != nil {
		return err
	}
	defer dev.Halt()

	label := p.Name()
	if err := registerMetrics(prometheus.DefaultRegisterer, label, dev); err != nil {
		return err
	}
	srv := &http.Server{Addr: cfg.ListenAddress}
	http.Handle("/metrics", promhttp.HandlerFor(
		prometheus.DefaultGatherer,
		promhttp.HandlerOpts{
			// Opt into OpenMetrics to support exemplars.
			EnableOpenMetrics: true,
		},
	))
	go func() {
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			log.Panic(err)
		}
	}()
	log.Infof("serving metrics on %s", cfg.ListenAddress)

	var bar *ppmbar.Dev
	if cfg.Bar && isatty.IsTerminal(os.Stdout.Fd()) {
		bar = ppmbar.New(&ppmbar.Opts{})
		defer bar.Halt()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	run(ctx, time.NewTicker(cfg.ReadInterval).C, label, dev, bar)
	log.Info("shutting down")

	shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdown)
}

func setupLogging(level string) {
	log.SetFormatter(&log.TextFormatter{
		FullTimestamp: true,
	})
	if l, err := log.ParseLevel(level); err == nil {
		log.SetLevel(l)
	}
}

// openPin resolves the configured pin, initializing the periph host drivers
// when a periph pin name is used.
func openPin(cfg *Config) (gpio.PinIn, error) {
	if cfg.Chip != "" {
		return openLine(cfg.Chip, cfg.Line)
	}
	if _, err := host.Init(); err != nil {
		return nil, err
	}
	p := gpioreg.ByName(cfg.Pin)
	if p == nil {
		return nil, fmt.Errorf("failed to find pin %s", cfg.Pin)
	}
	return p, nil
}

func driverOpts(cfg *Config) (*cj202.Opts, error) {
	pull, err := cfg.pull()
	if err != nil {
		return nil, err
	}
	opts := &cj202.Opts{
		Mode:   cfg.Mode,
		Pull:   pull,
		Logger: log.StandardLogger(),
	}
	if cfg.Mode == cj202.HardwareCapture {
		if opts.Capture, err = newCapture(cfg.Chip); err != nil {
			return nil, err
		}
	}
	return opts, nil
}

// run publishes a reading on every tick until ctx is done.
func run(ctx context.Context, tick <-chan time.Time, label string, s sensor, bar *ppmbar.Dev) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-tick:
			publish(label, s, bar)
		}
	}
}

func publish(label string, s sensor, bar *ppmbar.Dev) {
	ppm := s.PPM()
	gaugeCo2Level.WithLabelValues(label).Set(float64(ppm))
	log.Debugf("%s: %s", label, ppm)
	if bar != nil {
		if err := bar.Display(ppm); err != nil {
			log.Errorf("failed to draw gauge: %s", err)
		}
	}
}

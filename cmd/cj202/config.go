// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/GermanBionicSystems/co2pwm/cj202"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
	"periph.io/x/conn/v3/gpio"
)

// Config holds the exporter configuration. Values come from the defaults,
// then the config file, then the flags set on the command line.
type Config struct {
	// Pin is a periph pin name, e.g. "GPIO4". Ignored when Chip is set.
	Pin string `yaml:"pin"`
	// Chip and Line select a GPIO character device line instead of Pin.
	Chip string `yaml:"chip"`
	Line int    `yaml:"line"`

	Mode cj202.Mode `yaml:"mode"`
	Pull string     `yaml:"pull"`

	ListenAddress string        `yaml:"listen_address"`
	ReadInterval  time.Duration `yaml:"read_interval"`
	LogLevel      string        `yaml:"log_level"`
	Bar           bool          `yaml:"bar"`
}

func defaultConfig() Config {
	return Config{
		Pin:           "GPIO4",
		Line:          -1,
		Mode:          cj202.EdgeInterrupt,
		Pull:          "float",
		ListenAddress: ":8080",
		ReadInterval:  time.Second,
		LogLevel:      "info",
		Bar:           true,
	}
}

// registerFlags binds the flags to cfg. The config file path is returned
// separately since it is not part of the file.
func registerFlags(fs *flag.FlagSet, cfg *Config) *string {
	path := fs.String("config", "", "YAML configuration file path")
	fs.StringVar(&cfg.Pin, "pin", cfg.Pin, "periph pin name the sensor PWM output is wired to")
	fs.StringVar(&cfg.Chip, "chip", cfg.Chip, "GPIO character device, e.g. gpiochip0; overrides -pin")
	fs.IntVar(&cfg.Line, "line", cfg.Line, "line offset on -chip")
	fs.TextVar(&cfg.Mode, "mode", cfg.Mode, "capture mode: edge or capture")
	fs.StringVar(&cfg.Pull, "pull", cfg.Pull, "input bias: float, up, down or nochange")
	fs.StringVar(&cfg.ListenAddress, "listen-address", cfg.ListenAddress, "The address to listen on for HTTP requests.")
	fs.DurationVar(&cfg.ReadInterval, "read-int", cfg.ReadInterval, "time interval between sensor reads")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level: debug, info, warn, error")
	fs.BoolVar(&cfg.Bar, "bar", cfg.Bar, "draw a bar gauge when stdout is a terminal")
	return path
}

// loadConfig parses args into a Config. Flags set explicitly win over the
// config file.
func loadConfig(args []string) (*Config, error) {
	cfg := defaultConfig()
	fs := flag.NewFlagSet("cj202", flag.ContinueOnError)
	path := registerFlags(fs, &cfg)
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if *path != "" {
		file := defaultConfig()
		if err := readConfigFile(*path, &file); err != nil {
			return nil, err
		}
		// Replay the explicit flags over the file values.
		override := flag.NewFlagSet("cj202", flag.ContinueOnError)
		registerFlags(override, &file)
		var replay []string
		fs.Visit(func(f *flag.Flag) {
			if f.Name != "config" {
				replay = append(replay, "-"+f.Name+"="+f.Value.String())
			}
		})
		if err := override.Parse(replay); err != nil {
			return nil, err
		}
		cfg = file
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func readConfigFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) validate() error {
	if c.Chip == "" && c.Pin == "" {
		return fmt.Errorf("either pin or chip must be set")
	}
	if c.Chip != "" && c.Line < 0 {
		return fmt.Errorf("line must be set with chip %s", c.Chip)
	}
	if c.Mode == cj202.HardwareCapture && c.Chip == "" {
		return fmt.Errorf("mode %s requires chip", c.Mode)
	}
	if _, err := c.pull(); err != nil {
		return err
	}
	if c.ReadInterval <= 0 {
		return fmt.Errorf("read interval must be positive, got %s", c.ReadInterval)
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

func (c *Config) pull() (gpio.Pull, error) {
	switch strings.ToLower(c.Pull) {
	case "float", "":
		return gpio.Float, nil
	case "up":
		return gpio.PullUp, nil
	case "down":
		return gpio.PullDown, nil
	case "nochange":
		return gpio.PullNoChange, nil
	default:
		return gpio.PullNoChange, fmt.Errorf("unknown pull %q", c.Pull)
	}
}

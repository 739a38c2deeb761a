package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/phanxgames/scenelink"
)

// Config holds scenelink CLI configuration.
type Config struct {
	Listen     string        `yaml:"listen"`
	Root       string        `yaml:"root"`
	Watch      []string      `yaml:"watch"`
	Extensions []string      `yaml:"extensions"`
	Debounce   time.Duration `yaml:"debounce"`
	TestMode   bool          `yaml:"test_mode"`
	LogLevel   string        `yaml:"log_level"`
	CarrierTag string        `yaml:"carrier_tag"`
	Preview    PreviewConfig `yaml:"preview"`
}

// PreviewConfig controls the preview window.
type PreviewConfig struct {
	Width         int     `yaml:"width"`
	Height        int     `yaml:"height"`
	PixelsPerUnit float64 `yaml:"pixels_per_unit"`
}

func (c *Config) defaults() {
	if c.Listen == "" {
		c.Listen = "127.0.0.1:8742"
	}
	if c.Root == "" {
		c.Root = "."
	}
	if len(c.Watch) == 0 {
		c.Watch = []string{c.Root}
	}
	if len(c.Extensions) == 0 {
		c.Extensions = scenelink.DefaultExtensions
	}
	if c.Debounce <= 0 {
		c.Debounce = 100 * time.Millisecond
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.Preview.Width <= 0 {
		c.Preview.Width = 960
	}
	if c.Preview.Height <= 0 {
		c.Preview.Height = 640
	}
	if c.Preview.PixelsPerUnit <= 0 {
		c.Preview.PixelsPerUnit = 50
	}
}

// LoadConfig reads a YAML config file. A missing file yields the defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := &Config{}
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, err
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse %s: %w", path, err)
			}
		}
	}
	cfg.defaults()
	return cfg, nil
}

// level returns the configured zap level, or debug when verbose is set.
func (c *Config) level(verbose bool) (zapcore.Level, error) {
	if verbose {
		return zapcore.DebugLevel, nil
	}
	var l zapcore.Level
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return l, fmt.Errorf("log_level: %w", err)
	}
	return l, nil
}

func newLogger(level zapcore.Level) (*zap.Logger, error) {
	config := zap.NewProductionConfig()
	config.Level = zap.NewAtomicLevelAt(level)
	return config.Build()
}

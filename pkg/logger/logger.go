/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package logger provides JSON structured logging using zerolog
package logger

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

var errUnknownOutput = errors.New("unknown log output")

type Config struct {
	Level      string     `json:"level" yaml:"level"`
	Debug      bool       `json:"debug" yaml:"debug"`
	Output     string     `json:"output" yaml:"output"`
	TimeFormat string     `json:"time_format" yaml:"time_format"`
	OTel       OTelConfig `json:"otel" yaml:"otel"`
}

// New builds a Logger from cfg. A nil cfg falls back to DefaultConfig. When
// OTel export is enabled but cannot start, the logger keeps its local output
// and reports the failure through it.
func New(cfg *Config) (Logger, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	out, err := outputFor(cfg.Output)
	if err != nil {
		return nil, err
	}

	level, err := levelFor(cfg)
	if err != nil {
		return nil, err
	}

	zerolog.TimeFieldFormat = time.RFC3339
	if cfg.TimeFormat != "" {
		zerolog.TimeFieldFormat = cfg.TimeFormat
	}

	var otelErr error

	if cfg.OTel.Enabled {
		w, err := NewOTelWriter(context.Background(), cfg.OTel)
		if err != nil {
			otelErr = err
		} else {
			out = zerolog.MultiLevelWriter(out, w)
		}
	}

	zl := zerolog.New(out).
		Level(level).
		With().
		Timestamp().
		Logger()

	if otelErr != nil {
		zl.Warn().Err(otelErr).Msg("OTel log export disabled")
	}

	return &zeroLogger{logger: zl}, nil
}

func outputFor(name string) (io.Writer, error) {
	switch name {
	case "", "stdout":
		return os.Stdout, nil
	case "stderr":
		return os.Stderr, nil
	case "console":
		return zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}, nil
	default:
		return nil, fmt.Errorf("%w: %q", errUnknownOutput, name)
	}
}

func levelFor(cfg *Config) (zerolog.Level, error) {
	if cfg.Debug {
		return zerolog.DebugLevel, nil
	}

	if cfg.Level == "" {
		return zerolog.InfoLevel, nil
	}

	return zerolog.ParseLevel(cfg.Level)
}

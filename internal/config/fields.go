/*
 * Licensed to the Apache Software Foundation (ASF) under one or more
 * contributor license agreements.  See the NOTICE file distributed with
 * this work for additional information regarding copyright ownership.
 * The ASF licenses this file to You under the Apache License, Version 2.0
 * (the "License"); you may not use this file except in compliance with
 * the License.  You may obtain a copy of the License at
 *
 *    http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package config

import (
	"fmt"
	"strconv"
	"time"

	"github.com/noso/nosod/internal/logger"
)

// Recognized configuration keys, "section.key" in lowercase
// 可识别的配置键，格式为小写的 "section.key"
const (
	KeyLogLevel          = "logging.log_level"
	KeyLogFile           = "logging.log_file"
	KeyLogFormat         = "logging.format"
	KeyLogMaxSize        = "logging.max_size"
	KeyLogMaxBackups     = "logging.max_backups"
	KeyLogMaxAge         = "logging.max_age"
	KeyRunMode           = "noso.run_mode"
	KeyMaxConnections    = "noso.max_connections"
	KeyTickInterval      = "noso.tick_interval"
	KeyMetricsAddr       = "noso.metrics_addr"
	KeyWatchConfig       = "noso.watch_config"
	KeyTelemetryEnabled  = "telemetry.enabled"
	KeyTelemetryEndpoint = "telemetry.endpoint"
)

// field binds a configuration key to the code that stores its value. apply
// always stores a usable value, even when it also returns a warning.
type field struct {
	key   string
	apply func(c *Config, raw string) error
}

var fields = []field{
	{KeyLogLevel, func(c *Config, raw string) error {
		level, ok := logger.ParseLevel(raw)
		if !ok {
			c.LogLevel = logger.DefaultLevel
			return fmt.Errorf("invalid log level %q, using %s", raw, logger.DefaultLevel)
		}
		c.LogLevel = level
		return nil
	}},
	{KeyLogFile, func(c *Config, raw string) error {
		c.LogFile = raw
		return nil
	}},
	{KeyLogFormat, func(c *Config, raw string) error {
		switch raw {
		case logger.FormatConsole, logger.FormatJSON:
			c.LogFormat = raw
			return nil
		}
		c.LogFormat = logger.FormatConsole
		return fmt.Errorf("invalid log format %q, using %s", raw, logger.FormatConsole)
	}},
	{KeyLogMaxSize, intField(func(c *Config) *int { return &c.LogMaxSize })},
	{KeyLogMaxBackups, intField(func(c *Config) *int { return &c.LogMaxBackups })},
	{KeyLogMaxAge, intField(func(c *Config) *int { return &c.LogMaxAge })},
	{KeyRunMode, func(c *Config, raw string) error {
		c.RunMode = raw
		return nil
	}},
	{KeyMaxConnections, func(c *Config, raw string) error {
		n, err := parseInt(raw)
		c.MaxConnections = &n
		return err
	}},
	{KeyTickInterval, func(c *Config, raw string) error {
		d, err := time.ParseDuration(raw)
		if err != nil {
			c.TickInterval = DefaultTickInterval
			return fmt.Errorf("invalid duration %q, using %s", raw, DefaultTickInterval)
		}
		if d < MinTickInterval {
			c.TickInterval = MinTickInterval
			return fmt.Errorf("tick interval %s below minimum, using %s", d, MinTickInterval)
		}
		c.TickInterval = d
		return nil
	}},
	{KeyMetricsAddr, func(c *Config, raw string) error {
		c.MetricsAddr = raw
		return nil
	}},
	{KeyWatchConfig, boolField(func(c *Config) *bool { return &c.WatchConfig })},
	{KeyTelemetryEnabled, boolField(func(c *Config) *bool { return &c.TelemetryEnabled })},
	{KeyTelemetryEndpoint, func(c *Config, raw string) error {
		c.TelemetryEndpoint = raw
		return nil
	}},
}

// validate reports whether raw would be stored without falling back
func (f field) validate(raw string) error {
	return f.apply(Default(), raw)
}

var fieldsByKey = func() map[string]field {
	m := make(map[string]field, len(fields))
	for _, f := range fields {
		m[f.key] = f
	}
	return m
}()

// parseInt returns the zero value alongside an error for non-numeric input
func parseInt(raw string) (int, error) {
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid integer %q, using 0", raw)
	}
	return n, nil
}

func intField(target func(c *Config) *int) func(c *Config, raw string) error {
	return func(c *Config, raw string) error {
		n, err := parseInt(raw)
		*target(c) = n
		return err
	}
}

func boolField(target func(c *Config) *bool) func(c *Config, raw string) error {
	return func(c *Config, raw string) error {
		b, err := strconv.ParseBool(raw)
		if err != nil {
			*target(c) = false
			return fmt.Errorf("invalid boolean %q, using false", raw)
		}
		*target(c) = b
		return nil
	}
}

// Keys lists every recognized configuration key
// Keys 列出所有可识别的配置键
func Keys() []string {
	keys := make([]string, len(fields))
	for i, f := range fields {
		keys[i] = f.key
	}
	return keys
}

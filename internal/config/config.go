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

// Package config loads the daemon configuration.
// config 包负责加载守护进程配置。
//
// Configuration sources, later ones override earlier ones (lowest to highest):
// 配置来源，后者覆盖前者（从低到高）：
// 1. Default values / 默认值
// 2. Command line arguments / 命令行参数
// 3. Configuration file (INI) / 配置文件（INI）
// 4. Environment variables (NOSOD_ prefix) / 环境变量（NOSOD_ 前缀）
//
// A missing or malformed source never aborts loading; it is reported as a warning.
// 缺失或格式错误的来源不会中止加载，只会作为警告上报。
package config

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/noso/nosod/internal/logger"
)

// Default configuration values
// 默认配置值
const (
	DefaultConfigPath   = "config.ini"
	DefaultTickInterval = time.Second
	MinTickInterval     = 10 * time.Millisecond
	ConfigPathEnv       = "NOSOD_CONFIG_PATH"
	EnvPrefix           = "NOSOD"
)

// Config represents the daemon configuration
// Config 表示守护进程配置
type Config struct {
	// LogLevel is the effective severity / LogLevel 是生效的日志级别
	LogLevel logger.Level `yaml:"log_level"`

	// LogFile enables a rotated file sink / LogFile 启用轮转文件输出
	LogFile       string `yaml:"log_file,omitempty"`
	LogFormat     string `yaml:"log_format"`
	LogMaxSize    int    `yaml:"log_max_size"`
	LogMaxBackups int    `yaml:"log_max_backups"`
	LogMaxAge     int    `yaml:"log_max_age"`

	// RunMode is stored and reported only / RunMode 仅保存和上报
	RunMode string `yaml:"run_mode,omitempty"`

	// MaxConnections is nil when unset / MaxConnections 未设置时为 nil
	MaxConnections *int `yaml:"max_connections,omitempty"`

	// TickInterval is the run loop period / TickInterval 是运行循环周期
	TickInterval time.Duration `yaml:"tick_interval"`

	// MetricsAddr enables the status server when non-empty
	// MetricsAddr 非空时启用状态服务
	MetricsAddr string `yaml:"metrics_addr,omitempty"`

	// WatchConfig enables hot log-level reloads from the config file
	// WatchConfig 启用从配置文件热加载日志级别
	WatchConfig bool `yaml:"watch_config"`

	TelemetryEnabled  bool   `yaml:"telemetry_enabled"`
	TelemetryEndpoint string `yaml:"telemetry_endpoint,omitempty"`

	// Path is the config file that was consulted / Path 是实际查询的配置文件
	Path string `yaml:"path"`
}

// Default returns the configuration used when no source provides a value
// Default 返回没有任何来源提供值时使用的配置
func Default() *Config {
	return &Config{
		LogLevel:      logger.DefaultLevel,
		LogFormat:     logger.FormatConsole,
		LogMaxSize:    logger.DefaultMaxSize,
		LogMaxBackups: logger.DefaultMaxBackups,
		LogMaxAge:     logger.DefaultMaxAge,
		TickInterval:  DefaultTickInterval,
		Path:          DefaultConfigPath,
	}
}

// LoggerOptions converts the logging section into logger options
// LoggerOptions 将日志配置转换为日志记录器选项
func (c *Config) LoggerOptions() logger.Options {
	return logger.Options{
		Level:      c.LogLevel,
		Format:     c.LogFormat,
		File:       c.LogFile,
		MaxSize:    c.LogMaxSize,
		MaxBackups: c.LogMaxBackups,
		MaxAge:     c.LogMaxAge,
	}
}

// ToYAML serializes the effective configuration
// ToYAML 将生效的配置序列化为 YAML
func (c *Config) ToYAML() ([]byte, error) {
	out, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config: %w", err)
	}
	return out, nil
}

// String returns a short representation for logs
func (c *Config) String() string {
	maxConn := "unset"
	if c.MaxConnections != nil {
		maxConn = fmt.Sprintf("%d", *c.MaxConnections)
	}
	return fmt.Sprintf("Config{LogLevel: %s, RunMode: %q, MaxConnections: %s, Path: %s}",
		c.LogLevel, c.RunMode, maxConn, c.Path)
}

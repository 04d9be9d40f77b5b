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
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/noso/nosod/internal/logger"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.ini")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func missingPath(t *testing.T) string {
	return filepath.Join(t.TempDir(), "absent.ini")
}

// TestLoadConfig tests a complete config file
// TestLoadConfig 测试完整的配置文件
func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `
[Logging]
log_level = debug
log_file = /tmp/nosod.log
format = json
max_size = 50
max_backups = 5
max_age = 14

[Noso]
run_mode = mainnet
max_connections = 64
tick_interval = 250ms
metrics_addr = 127.0.0.1:9464
watch_config = true

[Telemetry]
enabled = true
endpoint = localhost:4317
`)

	cfg, err := NewLoader(nil).Load([]string{"-c", path})
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, logger.DebugLevel, cfg.LogLevel)
	assert.Equal(t, "/tmp/nosod.log", cfg.LogFile)
	assert.Equal(t, logger.FormatJSON, cfg.LogFormat)
	assert.Equal(t, 50, cfg.LogMaxSize)
	assert.Equal(t, 5, cfg.LogMaxBackups)
	assert.Equal(t, 14, cfg.LogMaxAge)
	assert.Equal(t, "mainnet", cfg.RunMode)
	require.NotNil(t, cfg.MaxConnections)
	assert.Equal(t, 64, *cfg.MaxConnections)
	assert.Equal(t, 250*time.Millisecond, cfg.TickInterval)
	assert.Equal(t, "127.0.0.1:9464", cfg.MetricsAddr)
	assert.True(t, cfg.WatchConfig)
	assert.True(t, cfg.TelemetryEnabled)
	assert.Equal(t, "localhost:4317", cfg.TelemetryEndpoint)
	assert.Equal(t, path, cfg.Path)
}

// TestLoadMissingFile tests defaults and CLI values survive a missing file
// TestLoadMissingFile 测试配置文件缺失时保留默认值和命令行值
func TestLoadMissingFile(t *testing.T) {
	tests := []struct {
		name  string
		args  []string
		level logger.Level
	}{
		{"no flag", nil, logger.InfoLevel},
		{"short flag", []string{"-l", "error"}, logger.ErrorLevel},
		{"long flag", []string{"--log-level", "trace"}, logger.TraceLevel},
		{"equals form", []string{"--log-level=critical"}, logger.CriticalLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"--config", missingPath(t)}, tt.args...)

			cfg, err := NewLoader(nil).Load(args)
			require.NotNil(t, cfg)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrFileNotFound))
			assert.Equal(t, tt.level, cfg.LogLevel)
			assert.Nil(t, cfg.MaxConnections)
			assert.Equal(t, DefaultTickInterval, cfg.TickInterval)
		})
	}
}

// TestLoadFileOverridesArgs tests the file wins over the command line
// TestLoadFileOverridesArgs 测试配置文件覆盖命令行
func TestLoadFileOverridesArgs(t *testing.T) {
	path := writeConfig(t, "[Logging]\nlog_level=debug\n")

	cfg, err := NewLoader(nil).Load([]string{"-l", "warn", "-c", path})
	require.NoError(t, err)
	assert.Equal(t, logger.DebugLevel, cfg.LogLevel)
}

// TestLoadArgsKeptWhenFileOmitsKey tests the CLI value stays when the file is silent
func TestLoadArgsKeptWhenFileOmitsKey(t *testing.T) {
	path := writeConfig(t, "[Noso]\nrun_mode = testnet\n")

	cfg, err := NewLoader(nil).Load([]string{"-l", "warn", "-c", path})
	require.NoError(t, err)
	assert.Equal(t, logger.WarnLevel, cfg.LogLevel)
	assert.Equal(t, "testnet", cfg.RunMode)
}

// TestLoadExtraArgs tests unrecognized arguments are ignored
// TestLoadExtraArgs 测试无法识别的参数被忽略
func TestLoadExtraArgs(t *testing.T) {
	path := writeConfig(t, "[Noso]\n")

	cfg, err := NewLoader(nil).Load([]string{"--log-level", "warn", "extra-arg", "-c", path})
	require.NoError(t, err)
	assert.Equal(t, logger.WarnLevel, cfg.LogLevel)

	cfg, err = NewLoader(nil).Load([]string{"--unknown", "value", "-x", "-l", "error", "-c", path})
	require.NoError(t, err)
	assert.Equal(t, logger.ErrorLevel, cfg.LogLevel)
}

// TestLoadMalformedMaxConnections tests a non-numeric value yields 0 and a warning
// TestLoadMalformedMaxConnections 测试非数字值得到 0 并产生警告
func TestLoadMalformedMaxConnections(t *testing.T) {
	path := writeConfig(t, "[Noso]\nmax_connections = abc\n")

	cfg, err := NewLoader(nil).Load([]string{"-c", path})
	require.Error(t, err)
	require.NotNil(t, cfg.MaxConnections)
	assert.Equal(t, 0, *cfg.MaxConnections)

	warnings := multierr.Errors(err)
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0].Error(), KeyMaxConnections)
	assert.Contains(t, warnings[0].Error(), "abc")
}

// TestLoadInvalidValues tests every malformed value falls back with a warning
func TestLoadInvalidValues(t *testing.T) {
	path := writeConfig(t, `
[Logging]
log_level = LOUD
format = xml
max_size = big

[Noso]
tick_interval = soon
watch_config = maybe
`)

	cfg, err := NewLoader(nil).Load([]string{"-c", path})
	require.Error(t, err)
	assert.Len(t, multierr.Errors(err), 5)
	assert.Equal(t, logger.InfoLevel, cfg.LogLevel)
	assert.Equal(t, logger.FormatConsole, cfg.LogFormat)
	assert.Equal(t, 0, cfg.LogMaxSize)
	assert.Equal(t, DefaultTickInterval, cfg.TickInterval)
	assert.False(t, cfg.WatchConfig)
}

func TestLoadTickIntervalFloor(t *testing.T) {
	path := writeConfig(t, "[Noso]\ntick_interval = 1ms\n")

	cfg, err := NewLoader(nil).Load([]string{"-c", path})
	require.Error(t, err)
	assert.Equal(t, MinTickInterval, cfg.TickInterval)
}

// TestLoadUnknownEntries tests unknown sections and keys are ignored
// TestLoadUnknownEntries 测试未知的节和键被忽略
func TestLoadUnknownEntries(t *testing.T) {
	path := writeConfig(t, `
top_level = 1

[Logging]
log_level = error
colour = purple

[Storage]
engine = rocks
`)

	cfg, err := NewLoader(nil).Load([]string{"-c", path})
	require.NoError(t, err)
	assert.Equal(t, logger.ErrorLevel, cfg.LogLevel)
}

// TestLoadMalformedFile tests an unparsable file degrades to defaults
// TestLoadMalformedFile 测试无法解析的文件降级为默认值
func TestLoadMalformedFile(t *testing.T) {
	path := writeConfig(t, "[Logging\nlog_level = debug\n")

	cfg, err := NewLoader(nil).Load([]string{"-l", "warn", "-c", path})
	require.NotNil(t, cfg)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrFileMalformed))
	assert.Equal(t, logger.WarnLevel, cfg.LogLevel)
}

func TestLoadDirectoryAsFile(t *testing.T) {
	cfg, err := NewLoader(nil).Load([]string{"-c", t.TempDir()})
	require.NotNil(t, cfg)
	assert.True(t, errors.Is(err, ErrFileMalformed))
	assert.Equal(t, logger.InfoLevel, cfg.LogLevel)
}

// TestLoadEnvOverride tests environment variables override the file
// TestLoadEnvOverride 测试环境变量覆盖配置文件
func TestLoadEnvOverride(t *testing.T) {
	path := writeConfig(t, "[Logging]\nlog_level = debug\n[Noso]\nmax_connections = 8\n")
	t.Setenv("NOSOD_LOGGING_LOG_LEVEL", "error")
	t.Setenv("NOSOD_NOSO_MAX_CONNECTIONS", "32")

	cfg, err := NewLoader(nil).Load([]string{"-c", path})
	require.NoError(t, err)
	assert.Equal(t, logger.ErrorLevel, cfg.LogLevel)
	require.NotNil(t, cfg.MaxConnections)
	assert.Equal(t, 32, *cfg.MaxConnections)
}

func TestLoadConfigPathFromEnv(t *testing.T) {
	path := writeConfig(t, "[Noso]\nrun_mode = regtest\n")
	t.Setenv(ConfigPathEnv, path)

	cfg, err := NewLoader(nil).Load(nil)
	require.NoError(t, err)
	assert.Equal(t, path, cfg.Path)
	assert.Equal(t, "regtest", cfg.RunMode)
}

// TestReload tests Reload picks up file changes with the original arguments
// TestReload 测试 Reload 使用原始参数读取文件变更
func TestReload(t *testing.T) {
	path := writeConfig(t, "[Noso]\n")
	loader := NewLoader(nil)

	cfg, err := loader.Load([]string{"-l", "warn", "-c", path})
	require.NoError(t, err)
	assert.Equal(t, logger.WarnLevel, cfg.LogLevel)

	require.NoError(t, os.WriteFile(path, []byte("[Logging]\nlog_level = trace\n"), 0644))

	cfg, err = loader.Reload()
	require.NoError(t, err)
	assert.Equal(t, logger.TraceLevel, cfg.LogLevel)
}

// TestParseArgs tests argument extraction
// TestParseArgs 测试参数提取
func TestParseArgs(t *testing.T) {
	a, err := ParseArgs([]string{"run", "-l", "debug", "--config", "/etc/nosod.ini", "tail"})
	require.NoError(t, err)
	assert.True(t, a.LogLevelSet)
	assert.Equal(t, "debug", a.LogLevel)
	assert.Equal(t, "/etc/nosod.ini", a.ConfigPath)
	assert.Equal(t, []string{"run", "tail"}, a.Rest)

	a, err = ParseArgs(nil)
	require.NoError(t, err)
	assert.False(t, a.LogLevelSet)

	a, err = ParseArgs([]string{"--help"})
	require.NoError(t, err)
	assert.False(t, a.LogLevelSet)
}

func TestParseArgsMissingValue(t *testing.T) {
	a, err := ParseArgs([]string{"-l"})
	require.Error(t, err)
	assert.False(t, a.LogLevelSet)

	path := missingPath(t)
	cfg, err := NewLoader(nil).Load([]string{"-c", path, "-l"})
	require.Error(t, err)
	assert.Len(t, multierr.Errors(err), 2)
	assert.Equal(t, logger.InfoLevel, cfg.LogLevel)
}

// TestToYAML tests the effective configuration dump
// TestToYAML 测试生效配置的导出
func TestToYAML(t *testing.T) {
	cfg := Default()
	n := 16
	cfg.MaxConnections = &n
	cfg.LogLevel = logger.CriticalLevel
	cfg.RunMode = "mainnet"

	out, err := cfg.ToYAML()
	require.NoError(t, err)
	text := string(out)
	assert.Contains(t, text, "log_level: critical")
	assert.Contains(t, text, "max_connections: 16")
	assert.Contains(t, text, "run_mode: mainnet")
	assert.Contains(t, text, "tick_interval: 1s")
	assert.False(t, strings.Contains(text, "metrics_addr"))
}

func TestConfigString(t *testing.T) {
	cfg := Default()
	assert.Contains(t, cfg.String(), "MaxConnections: unset")
	n := 3
	cfg.MaxConnections = &n
	assert.Contains(t, cfg.String(), "MaxConnections: 3")
}

func TestKeys(t *testing.T) {
	keys := Keys()
	assert.Contains(t, keys, KeyLogLevel)
	assert.Contains(t, keys, KeyRunMode)
	assert.Contains(t, keys, KeyMaxConnections)
	assert.Len(t, keys, len(fieldsByKey))
}

// TestLoadMalformedFileValueKeepsArgs tests a malformed file entry does not
// replace a valid command line value
// TestLoadMalformedFileValueKeepsArgs 测试文件中的错误条目不会覆盖有效的命令行值
func TestLoadMalformedFileValueKeepsArgs(t *testing.T) {
	path := writeConfig(t, "[Logging]\nlog_level = bogus\n")

	cfg, err := NewLoader(nil).Load([]string{"-l", "warn", "-c", path})
	require.Error(t, err)
	assert.Equal(t, logger.WarnLevel, cfg.LogLevel)

	warnings := multierr.Errors(err)
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0].Error(), KeyLogLevel)
	assert.Contains(t, warnings[0].Error(), "bogus")
}

// TestLoadMalformedEnvKeepsFile tests a malformed environment value does not
// replace a valid file value
func TestLoadMalformedEnvKeepsFile(t *testing.T) {
	path := writeConfig(t, "[Logging]\nlog_level = debug\n[Noso]\ntick_interval = 2s\nmax_connections = 8\n")
	t.Setenv(EnvName(KeyLogLevel), "LOUD")
	t.Setenv(EnvName(KeyTickInterval), "1ms")
	t.Setenv(EnvName(KeyMaxConnections), "many")

	cfg, err := NewLoader(nil).Load([]string{"-l", "error", "-c", path})
	require.Error(t, err)
	assert.Len(t, multierr.Errors(err), 3)
	assert.Contains(t, err.Error(), "NOSOD_LOGGING_LOG_LEVEL")
	assert.Equal(t, logger.DebugLevel, cfg.LogLevel)
	assert.Equal(t, 2*time.Second, cfg.TickInterval)
	require.NotNil(t, cfg.MaxConnections)
	assert.Equal(t, 8, *cfg.MaxConnections)
}

// TestLoadMalformedEnvWithoutEarlierValue tests the fallback applies when no
// earlier source has a value
func TestLoadMalformedEnvWithoutEarlierValue(t *testing.T) {
	t.Setenv(EnvName(KeyMaxConnections), "many")

	cfg, err := NewLoader(nil).Load([]string{"-c", missingPath(t)})
	require.Error(t, err)
	require.NotNil(t, cfg.MaxConnections)
	assert.Equal(t, 0, *cfg.MaxConnections)
}

// TestLoadFile tests a file reload keeps the original command line values
// TestLoadFile 测试重新加载文件时保留原有命令行值
func TestLoadFile(t *testing.T) {
	first := writeConfig(t, "[Noso]\nrun_mode = testnet\n")
	second := writeConfig(t, "[Noso]\nrun_mode = mainnet\nmax_connections = 4\n")
	loader := NewLoader(nil)

	_, err := loader.Load([]string{"-l", "warn", "-c", first})
	require.NoError(t, err)

	cfg, err := loader.LoadFile(second)
	require.NoError(t, err)
	assert.Equal(t, second, cfg.Path)
	assert.Equal(t, logger.WarnLevel, cfg.LogLevel)
	assert.Equal(t, "mainnet", cfg.RunMode)
	require.NotNil(t, cfg.MaxConnections)
	assert.Equal(t, 4, *cfg.MaxConnections)
}

// TestLoaderSetLogger tests diagnostics go to the replaced logger
func TestLoaderSetLogger(t *testing.T) {
	path := writeConfig(t, "[Storage]\nengine = rocks\n")
	loader := NewLoader(nil)

	core, logs := observer.New(zapcore.DebugLevel)
	log := zap.New(core)
	loader.SetLogger(log)
	assert.Same(t, log, loader.Logger())

	_, err := loader.Load([]string{"-c", path})
	require.NoError(t, err)
	assert.Equal(t, 1, logs.FilterMessage("ignoring unknown config entry").Len())

	loader.SetLogger(nil)
	assert.NotNil(t, loader.Logger())
}

func TestEnvName(t *testing.T) {
	assert.Equal(t, "NOSOD_LOGGING_LOG_LEVEL", EnvName(KeyLogLevel))
	assert.Equal(t, "NOSOD_TELEMETRY_ENDPOINT", EnvName(KeyTelemetryEndpoint))
}

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
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gopkg.in/ini.v1"
)

var (
	// ErrFileNotFound reports an absent config file; defaults are used instead
	// ErrFileNotFound 表示配置文件不存在，改用默认值
	ErrFileNotFound = errors.New("config file not found")

	// ErrFileMalformed reports a config file that could not be parsed
	// ErrFileMalformed 表示配置文件无法解析
	ErrFileMalformed = errors.New("config file malformed")
)

// Args holds the values recognized on the command line
// Args 保存命令行中可识别的值
type Args struct {
	LogLevel    string
	LogLevelSet bool
	ConfigPath  string

	// Rest holds every argument that is not a recognized flag
	// Rest 保存所有不是可识别标志的参数
	Rest []string
}

// ParseArgs extracts --log-level/-l and --config/-c. Every other argument is
// accepted and ignored. A non-nil error is a warning; the returned Args are usable.
// ParseArgs 解析 --log-level/-l 和 --config/-c，其他参数一律接受并忽略。
// 返回的错误仅为警告，Args 始终可用。
func ParseArgs(args []string) (Args, error) {
	var a Args

	fs := pflag.NewFlagSet("nosod", pflag.ContinueOnError)
	fs.ParseErrorsWhitelist.UnknownFlags = true
	fs.SetOutput(io.Discard)
	fs.Usage = func() {}
	fs.StringVarP(&a.LogLevel, "log-level", "l", "", "log level (trace, debug, info, warn, error, critical, off)")
	fs.StringVarP(&a.ConfigPath, "config", "c", "", "config file path (default: "+DefaultConfigPath+")")

	err := fs.Parse(args)
	a.LogLevelSet = fs.Changed("log-level")
	a.Rest = fs.Args()

	if err != nil && !errors.Is(err, pflag.ErrHelp) {
		return a, fmt.Errorf("failed to parse arguments: %w", err)
	}
	return a, nil
}

// Loader produces a Config from arguments, the config file and the environment
// Loader 根据命令行参数、配置文件和环境变量生成 Config
type Loader struct {
	mu       sync.Mutex
	log      *zap.Logger
	lastArgs Args
}

// NewLoader creates a Loader. A nil log discards debug output.
// NewLoader 创建 Loader，log 为 nil 时丢弃调试输出。
func NewLoader(log *zap.Logger) *Loader {
	if log == nil {
		log = zap.NewNop()
	}
	return &Loader{log: log}
}

// SetLogger replaces the logger used by later loads
// SetLogger 替换后续加载使用的日志记录器
func (l *Loader) SetLogger(log *zap.Logger) {
	if log == nil {
		log = zap.NewNop()
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.log = log
}

// Logger returns the logger used for loader diagnostics
func (l *Loader) Logger() *zap.Logger {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.log
}

// Load builds the configuration. The returned Config is never nil; a non-nil
// error aggregates non-fatal warnings (see multierr.Errors).
// Load 构建配置。返回的 Config 永不为 nil；非 nil 的错误聚合了非致命警告。
func (l *Loader) Load(args []string) (*Config, error) {
	parsed, err := ParseArgs(args)
	if len(parsed.Rest) > 0 {
		l.Logger().Debug("ignoring extra arguments", zap.Strings("args", parsed.Rest))
	}

	l.mu.Lock()
	l.lastArgs = parsed
	l.mu.Unlock()

	cfg, warnings := l.load(parsed, resolvePath(parsed.ConfigPath))
	return cfg, multierr.Append(err, warnings)
}

// Reload repeats the last Load with the same arguments
// Reload 使用相同参数重复上一次 Load
func (l *Loader) Reload() (*Config, error) {
	l.mu.Lock()
	parsed := l.lastArgs
	l.mu.Unlock()
	return l.load(parsed, resolvePath(parsed.ConfigPath))
}

// LoadFile re-reads the configuration from path, keeping the command line
// values of the last Load.
// LoadFile 从 path 重新读取配置，保留上一次 Load 的命令行值。
func (l *Loader) LoadFile(path string) (*Config, error) {
	l.mu.Lock()
	parsed := l.lastArgs
	l.mu.Unlock()
	return l.load(parsed, path)
}

// load layers the sources through viper. Entries that fail validation are
// never merged, so the value from an earlier source survives them. When no
// earlier source has a value, the malformed entry's fallback applies.
// load 通过 viper 叠加各来源。校验失败的条目不会被合并，因此先前来源的值得以保留；
// 若先前来源没有值，则使用该错误条目的回退值。
func (l *Loader) load(parsed Args, path string) (*Config, error) {
	var warnings error
	v := viper.New()
	rejected := make(map[string]string)

	// Command line values sit just above the built-in defaults
	// 命令行值仅高于内置默认值
	if parsed.LogLevelSet {
		v.SetDefault(KeyLogLevel, parsed.LogLevel)
	}

	values, err := l.readFile(path)
	warnings = multierr.Append(warnings, err)
	nested := make(map[string]any)
	for _, f := range fields {
		raw, ok := values[f.key]
		if !ok {
			continue
		}
		if err := f.validate(raw); err != nil {
			warnings = multierr.Append(warnings, fmt.Errorf("%s: %w", f.key, err))
			rejected[f.key] = raw
			continue
		}
		section, name, _ := strings.Cut(f.key, ".")
		sub, ok := nested[section].(map[string]any)
		if !ok {
			sub = make(map[string]any)
			nested[section] = sub
		}
		sub[name] = raw
	}
	if len(nested) > 0 {
		if err := v.MergeConfigMap(nested); err != nil {
			warnings = multierr.Append(warnings, fmt.Errorf("%w: %s: %v", ErrFileMalformed, path, err))
		}
	}

	for _, f := range fields {
		name := EnvName(f.key)
		raw := strings.TrimSpace(os.Getenv(name))
		if raw == "" {
			continue
		}
		if err := f.validate(raw); err != nil {
			warnings = multierr.Append(warnings, fmt.Errorf("%s (%s): %w", f.key, name, err))
			rejected[f.key] = raw
			continue
		}
		if err := v.BindEnv(f.key, name); err != nil {
			warnings = multierr.Append(warnings, fmt.Errorf("%s (%s): %w", f.key, name, err))
		}
	}

	cfg := Default()
	cfg.Path = path
	for _, f := range fields {
		if v.IsSet(f.key) {
			if err := f.apply(cfg, strings.TrimSpace(v.GetString(f.key))); err != nil {
				warnings = multierr.Append(warnings, fmt.Errorf("%s: %w", f.key, err))
			}
			continue
		}
		if raw, ok := rejected[f.key]; ok {
			// Already reported; apply only for its fallback value
			_ = f.apply(cfg, raw)
		}
	}

	return cfg, warnings
}

// EnvName returns the environment variable that overrides key
// EnvName 返回覆盖 key 的环境变量名
func EnvName(key string) string {
	return EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

// resolvePath picks the config path: flag, then environment, then default
// resolvePath 选择配置路径：命令行标志、环境变量、默认值
func resolvePath(flagPath string) string {
	if flagPath != "" {
		return flagPath
	}
	if envPath := os.Getenv(ConfigPathEnv); envPath != "" {
		return envPath
	}
	return DefaultConfigPath
}

// readFile parses the INI file into recognized "section.key" entries
// readFile 将 INI 文件解析为可识别的 "section.key" 条目
func (l *Loader) readFile(path string) (map[string]string, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}
		return nil, fmt.Errorf("%w: %s: %v", ErrFileMalformed, path, err)
	}

	file, err := ini.Load(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrFileMalformed, path, err)
	}

	log := l.Logger()
	values := make(map[string]string)
	for _, section := range file.Sections() {
		for _, key := range section.Keys() {
			name := strings.ToLower(section.Name() + "." + key.Name())
			if _, ok := fieldsByKey[name]; !ok {
				log.Debug("ignoring unknown config entry",
					zap.String("section", section.Name()),
					zap.String("key", key.Name()),
				)
				continue
			}
			values[name] = strings.TrimSpace(key.String())
		}
	}
	return values, nil
}

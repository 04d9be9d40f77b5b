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

package logger

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Log sink defaults
// 日志输出默认值
const (
	DefaultMaxSize    = 100 // MB
	DefaultMaxBackups = 3
	DefaultMaxAge     = 7 // days

	FormatConsole = "console"
	FormatJSON    = "json"
)

// Options describes how the logger writes
// Options 描述日志记录器的输出方式
type Options struct {
	// Level is the initial severity / Level 是初始级别
	Level Level

	// Format is "console" or "json" / Format 为 "console" 或 "json"
	Format string

	// File enables a rotated file sink in addition to stderr
	// File 启用额外的轮转文件输出（stderr 之外）
	File string

	MaxSize    int
	MaxBackups int
	MaxAge     int
}

// Logger wraps a zap logger whose severity can be changed at runtime
// Logger 封装一个可在运行时修改级别的 zap 日志记录器
type Logger struct {
	zl      *zap.Logger
	atom    zap.AtomicLevel
	rotator *lumberjack.Logger
}

// New builds a Logger from opts
// New 根据 opts 构建 Logger
func New(opts Options) *Logger {
	atom := zap.NewAtomicLevelAt(opts.Level.ZapLevel())
	encoder := newEncoder(opts.Format)

	cores := []zapcore.Core{
		zapcore.NewCore(encoder, zapcore.Lock(os.Stderr), atom),
	}

	var rotator *lumberjack.Logger
	if opts.File != "" {
		rotator = &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    orDefault(opts.MaxSize, DefaultMaxSize),
			MaxBackups: orDefault(opts.MaxBackups, DefaultMaxBackups),
			MaxAge:     orDefault(opts.MaxAge, DefaultMaxAge),
			Compress:   true,
		}
		// Files always get JSON so they stay machine-readable
		cores = append(cores, zapcore.NewCore(newEncoder(FormatJSON), zapcore.AddSync(rotator), atom))
	}

	return &Logger{
		zl:      zap.New(zapcore.NewTee(cores...), zap.AddCaller()),
		atom:    atom,
		rotator: rotator,
	}
}

// Wrap builds a Logger around a caller-supplied core. The core must consult the
// given enabler so that SetLevel keeps working.
// Wrap 使用调用方提供的 core 构建 Logger，core 必须使用传入的 enabler 以便 SetLevel 生效。
func Wrap(level Level, build func(enab zapcore.LevelEnabler) zapcore.Core) *Logger {
	atom := zap.NewAtomicLevelAt(level.ZapLevel())
	return &Logger{
		zl:   zap.New(build(atom)),
		atom: atom,
	}
}

// NewNop returns a Logger that discards everything
func NewNop() *Logger {
	return Wrap(OffLevel, func(zapcore.LevelEnabler) zapcore.Core { return zapcore.NewNopCore() })
}

// Zap exposes the underlying zap logger
// Zap 返回底层 zap 日志记录器
func (l *Logger) Zap() *zap.Logger {
	return l.zl
}

// With returns a child logger carrying fields. The child shares the parent's
// level, so SetLevel on either affects both.
// With 返回携带字段的子日志记录器，子记录器与父记录器共享日志级别。
func (l *Logger) With(fields ...zap.Field) *Logger {
	return &Logger{
		zl:      l.zl.With(fields...),
		atom:    l.atom,
		rotator: l.rotator,
	}
}

// SetLevel changes the effective severity immediately
// SetLevel 立即修改生效的日志级别
func (l *Logger) SetLevel(level Level) {
	l.atom.SetLevel(level.ZapLevel())
}

// Level returns the effective severity
// Level 返回当前生效的日志级别
func (l *Logger) Level() Level {
	current := l.atom.Level()
	for level, zl := range zapLevels {
		if zl == current {
			return Level(level)
		}
	}
	return DefaultLevel
}

// Trace logs below debug
func (l *Logger) Trace(msg string, fields ...zap.Field) {
	l.zl.Log(zapTraceLevel, msg, fields...)
}

// Critical logs above error without panicking
func (l *Logger) Critical(msg string, fields ...zap.Field) {
	l.zl.Log(zapcore.DPanicLevel, msg, fields...)
}

// Close flushes buffered entries and releases the file sink
// Close 刷新缓冲日志并释放文件输出
func (l *Logger) Close() error {
	// Sync on stderr returns EINVAL on some platforms; ignore it.
	_ = l.zl.Sync()
	if l.rotator != nil {
		return l.rotator.Close()
	}
	return nil
}

func newEncoder(format string) zapcore.Encoder {
	cfg := zap.NewProductionEncoderConfig()
	cfg.TimeKey = "time"
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncodeLevel = encodeLevel
	if format == FormatJSON {
		return zapcore.NewJSONEncoder(cfg)
	}
	return zapcore.NewConsoleEncoder(cfg)
}

// encodeLevel renders the two levels zap has no name for
func encodeLevel(l zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
	switch l {
	case zapTraceLevel:
		enc.AppendString("TRACE")
	case zapcore.DPanicLevel:
		enc.AppendString("CRITICAL")
	default:
		zapcore.CapitalLevelEncoder(l, enc)
	}
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

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

// Package logger provides severity mapping and the zap-based logger of the daemon.
// logger 包提供日志级别映射以及守护进程基于 zap 的日志记录器。
package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Level is an ordered logging severity
// Level 是有序的日志级别
type Level int8

const (
	TraceLevel Level = iota
	DebugLevel
	InfoLevel
	WarnLevel
	ErrorLevel
	CriticalLevel
	OffLevel
)

// DefaultLevel is used whenever a severity name cannot be resolved
// DefaultLevel 在无法解析级别名称时使用
const DefaultLevel = InfoLevel

// zapTraceLevel sits one step below zap's debug level.
const zapTraceLevel = zapcore.DebugLevel - 1

// zapOffLevel is above every level zap can emit, so nothing passes the filter.
const zapOffLevel = zapcore.FatalLevel + 1

var levelsByName = map[string]Level{
	"trace":    TraceLevel,
	"debug":    DebugLevel,
	"info":     InfoLevel,
	"warn":     WarnLevel,
	"error":    ErrorLevel,
	"critical": CriticalLevel,
	"off":      OffLevel,
}

var levelNames = [...]string{
	TraceLevel:    "trace",
	DebugLevel:    "debug",
	InfoLevel:     "info",
	WarnLevel:     "warn",
	ErrorLevel:    "error",
	CriticalLevel: "critical",
	OffLevel:      "off",
}

var zapLevels = [...]zapcore.Level{
	TraceLevel:    zapTraceLevel,
	DebugLevel:    zapcore.DebugLevel,
	InfoLevel:     zapcore.InfoLevel,
	WarnLevel:     zapcore.WarnLevel,
	ErrorLevel:    zapcore.ErrorLevel,
	CriticalLevel: zapcore.DPanicLevel,
	OffLevel:      zapOffLevel,
}

// String returns the canonical lowercase name of the level
// String 返回级别的规范小写名称
func (l Level) String() string {
	if l < TraceLevel || l > OffLevel {
		return "unknown"
	}
	return levelNames[l]
}

// ZapLevel returns the zap level that enables exactly this severity and above
// ZapLevel 返回恰好启用此级别及以上级别的 zap 级别
func (l Level) ZapLevel() zapcore.Level {
	if l < TraceLevel || l > OffLevel {
		return zapcore.InfoLevel
	}
	return zapLevels[l]
}

// MarshalText implements encoding.TextMarshaler so configs render level names
func (l Level) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

// ParseLevel resolves a severity name. Matching is case-sensitive and exact.
// ParseLevel 解析级别名称，区分大小写且精确匹配。
func ParseLevel(name string) (Level, bool) {
	level, ok := levelsByName[name]
	return level, ok
}

// MapLevel resolves a severity name, falling back to info with a warning on log
// when the name is not recognized. A nil log suppresses the warning.
// MapLevel 解析级别名称，无法识别时记录警告并回退为 info。log 为 nil 时不记录警告。
func MapLevel(name string, log *zap.Logger) Level {
	if level, ok := ParseLevel(name); ok {
		return level
	}
	if log != nil {
		log.Warn("invalid log level, using default",
			zap.String("level", name),
			zap.Stringer("default", DefaultLevel),
		)
	}
	return DefaultLevel
}

// LevelNames lists the recognized severity names from most to least verbose
// LevelNames 按从详细到简略的顺序列出可识别的级别名称
func LevelNames() []string {
	names := make([]string, len(levelNames))
	copy(names, levelNames[:])
	return names
}

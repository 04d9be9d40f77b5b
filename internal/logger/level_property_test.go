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
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"pgregory.net/rapid"
)

// Property: any name outside the recognized set maps to info and emits exactly one warning.
// 属性：任何不在可识别集合中的名称都映射为 info，并且恰好产生一条警告。
func TestProperty_UnknownLevelFallsBackToInfo(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		name := rapid.String().Filter(func(s string) bool {
			_, ok := levelsByName[s]
			return !ok
		}).Draw(t, "name")

		core, logs := observer.New(zapcore.DebugLevel)
		level := MapLevel(name, zap.New(core))

		if level != InfoLevel {
			t.Fatalf("MapLevel(%q) = %s, want info", name, level)
		}
		if logs.Len() != 1 {
			t.Fatalf("MapLevel(%q) emitted %d entries, want 1", name, logs.Len())
		}
	})
}

// Property: mapping a level's own name returns the level unchanged.
// 属性：映射级别自身的名称返回该级别本身。
func TestProperty_LevelNameRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		level := Level(rapid.IntRange(int(TraceLevel), int(OffLevel)).Draw(t, "level"))

		got, ok := ParseLevel(level.String())
		if !ok || got != level {
			t.Fatalf("ParseLevel(%q) = %s, %v", level.String(), got, ok)
		}
	})
}

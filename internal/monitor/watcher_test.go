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

package monitor

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfigWatcherValidation(t *testing.T) {
	_, err := NewConfigWatcher(ConfigWatcherConfig{OnChange: func() {}})
	assert.Error(t, err)

	_, err = NewConfigWatcher(ConfigWatcherConfig{Path: "config.ini"})
	assert.Error(t, err)

	w, err := NewConfigWatcher(ConfigWatcherConfig{Path: "config.ini", OnChange: func() {}})
	require.NoError(t, err)
	assert.Equal(t, DefaultDebounceDelay, w.delay)
	assert.True(t, filepath.IsAbs(w.path))
}

// TestConfigWatcherDebounces tests a burst of writes yields one callback and
// other files in the directory are ignored
// TestConfigWatcherDebounces 测试一组连续写入只触发一次回调，且忽略目录中的其他文件
func TestConfigWatcherDebounces(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.ini")
	require.NoError(t, os.WriteFile(path, []byte("[Logging]\nlog_level=info\n"), 0644))

	var calls atomic.Int32
	w, err := NewConfigWatcher(ConfigWatcherConfig{
		Path:          path,
		OnChange:      func() { calls.Add(1) },
		DebounceDelay: 50 * time.Millisecond,
	})
	require.NoError(t, err)
	require.NoError(t, w.Start(context.Background()))
	defer func() { _ = w.Stop(context.Background()) }()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.txt"), []byte("x"), 0644))
	time.Sleep(150 * time.Millisecond)
	assert.Equal(t, int32(0), calls.Load())

	for i := 0; i < 5; i++ {
		require.NoError(t, os.WriteFile(path, []byte("[Logging]\nlog_level=debug\n"), 0644))
	}
	require.Eventually(t, func() bool { return calls.Load() == 1 }, 2*time.Second, 5*time.Millisecond)

	time.Sleep(150 * time.Millisecond)
	assert.Equal(t, int32(1), calls.Load())
}

func TestConfigWatcherStop(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.ini")

	var calls atomic.Int32
	w, err := NewConfigWatcher(ConfigWatcherConfig{
		Path:          path,
		OnChange:      func() { calls.Add(1) },
		DebounceDelay: 10 * time.Millisecond,
	})
	require.NoError(t, err)
	assert.NoError(t, w.Stop(context.Background()))

	require.NoError(t, w.Start(context.Background()))
	require.NoError(t, w.Stop(context.Background()))
	require.NoError(t, w.Stop(context.Background()))

	require.NoError(t, os.WriteFile(path, []byte("[Logging]\n"), 0644))
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, int32(0), calls.Load())
}

func TestConfigWatcherMissingDirectory(t *testing.T) {
	w, err := NewConfigWatcher(ConfigWatcherConfig{
		Path:     filepath.Join(t.TempDir(), "nope", "config.ini"),
		OnChange: func() {},
	})
	require.NoError(t, err)
	assert.Error(t, w.Start(context.Background()))
}

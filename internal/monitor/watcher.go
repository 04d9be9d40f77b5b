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
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/noso/nosod/internal/lifecycle"
)

// DefaultDebounceDelay coalesces the burst of events editors produce on save
const DefaultDebounceDelay = 200 * time.Millisecond

// ConfigWatcherConfig configures the config file watcher
// ConfigWatcherConfig 配置文件监听器的配置
type ConfigWatcherConfig struct {
	// Path is the configuration file to watch
	Path string

	// OnChange is called once per debounced burst of changes
	OnChange func()

	// Logger is used for structured logging (optional)
	Logger *zap.Logger

	// DebounceDelay defaults to DefaultDebounceDelay
	DebounceDelay time.Duration
}

// ConfigWatcher asks for a reload whenever the configuration file changes.
// The parent directory is watched so editors that replace the file by rename
// are still seen.
// ConfigWatcher 在配置文件变化时请求重载。监听的是父目录，因此通过重命名替换文件的编辑器也能被感知。
type ConfigWatcher struct {
	path     string
	onChange func()
	log      *zap.Logger
	delay    time.Duration

	mu      sync.Mutex
	fsw     *fsnotify.Watcher
	pending *time.Timer
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool
}

var _ lifecycle.Worker = (*ConfigWatcher)(nil)

// NewConfigWatcher creates a stopped watcher
// NewConfigWatcher 创建一个处于停止状态的监听器
func NewConfigWatcher(cfg ConfigWatcherConfig) (*ConfigWatcher, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("config path is required")
	}
	if cfg.OnChange == nil {
		return nil, fmt.Errorf("change callback is required")
	}
	abs, err := filepath.Abs(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve path %s: %w", cfg.Path, err)
	}

	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	delay := cfg.DebounceDelay
	if delay <= 0 {
		delay = DefaultDebounceDelay
	}

	return &ConfigWatcher{
		path:     abs,
		onChange: cfg.OnChange,
		log:      log,
		delay:    delay,
	}, nil
}

// Name implements lifecycle.Worker
func (w *ConfigWatcher) Name() string {
	return "config-watcher"
}

// Start begins watching the file's directory
// Start 开始监听配置文件所在目录
func (w *ConfigWatcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return nil
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	dir := filepath.Dir(w.path)
	if err := fsw.Add(dir); err != nil {
		_ = fsw.Close()
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	ctx, cancel := context.WithCancel(ctx)
	w.fsw = fsw
	w.cancel = cancel
	w.running = true

	w.wg.Add(1)
	go w.processEvents(ctx, fsw)

	w.log.Debug("watching config file", zap.String("path", w.path))
	return nil
}

func (w *ConfigWatcher) processEvents(ctx context.Context, fsw *fsnotify.Watcher) {
	defer w.wg.Done()

	for {
		select {
		case event, ok := <-fsw.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
				w.schedule()
			}

		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			w.log.Warn("config watcher error", zap.Error(err))

		case <-ctx.Done():
			return
		}
	}
}

// schedule restarts the debounce timer
func (w *ConfigWatcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.running {
		return
	}
	if w.pending != nil {
		w.pending.Stop()
	}
	w.pending = time.AfterFunc(w.delay, w.fire)
}

func (w *ConfigWatcher) fire() {
	w.mu.Lock()
	w.pending = nil
	running := w.running
	w.mu.Unlock()
	if !running {
		return
	}

	w.log.Info("config file changed, requesting reload", zap.String("path", w.path))
	w.onChange()
}

// Stop stops watching and drops any pending change
// Stop 停止监听并丢弃尚未触发的变更
func (w *ConfigWatcher) Stop(ctx context.Context) error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = false
	w.cancel()
	if w.pending != nil {
		w.pending.Stop()
		w.pending = nil
	}
	fsw := w.fsw
	w.mu.Unlock()

	w.wg.Wait()
	return fsw.Close()
}

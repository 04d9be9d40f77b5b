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

package lifecycle

import (
	"os"
	"time"

	"github.com/noso/nosod/internal/config"
	"github.com/noso/nosod/internal/logger"
	"github.com/noso/nosod/internal/tracing"
)

// Option configures a Controller
// Option 配置 Controller
type Option func(*Controller)

// WithLogger injects the logger. The controller then only changes its level
// during Initialise and never rebuilds or closes it.
// WithLogger 注入日志记录器，控制器在 Initialise 时只修改其级别，不会重建或关闭它。
func WithLogger(l *logger.Logger) Option {
	return func(c *Controller) {
		c.log.Store(l)
		c.ownsLogger = false
	}
}

// WithSignalSource sets the channel of termination notifications
// WithSignalSource 设置终止通知的通道
func WithSignalSource(ch <-chan os.Signal) Option {
	return func(c *Controller) { c.terminate = ch }
}

// WithReloadSource sets the channel of reload notifications
// WithReloadSource 设置重载通知的通道
func WithReloadSource(ch <-chan os.Signal) Option {
	return func(c *Controller) { c.reload = ch }
}

// WithIntegrityChecker replaces the placeholder integrity pass
func WithIntegrityChecker(ic IntegrityChecker) Option {
	return func(c *Controller) { c.checker = ic }
}

// WithObserver attaches a lifecycle observer
// WithObserver 附加生命周期观察者
func WithObserver(o Observer) Option {
	return func(c *Controller) { c.observer = o }
}

// WithTracer injects the trace provider. Initialise then keeps it instead of
// building one from the configuration.
// WithTracer 注入追踪提供者，Initialise 将保留它而不是根据配置构建。
func WithTracer(p *tracing.Provider) Option {
	return func(c *Controller) {
		if p == nil {
			return
		}
		c.tracing.Store(p)
		c.tracerFixed = true
	}
}

// withSignalRelease sets how the bridge unregisters its OS notifications
func withSignalRelease(release func()) Option {
	return func(c *Controller) { c.signalRelease = release }
}

// WithTickInterval fixes the run loop period, overriding the configuration
// WithTickInterval 固定运行循环周期，覆盖配置值
func WithTickInterval(d time.Duration) Option {
	return func(c *Controller) {
		c.tick = d
		c.tickFixed = true
	}
}

// WithLoader replaces the configuration loader
func WithLoader(l *config.Loader) Option {
	return func(c *Controller) { c.loader = l }
}

// WithShutdownTimeout bounds how long workers and hooks may take to stop
// WithShutdownTimeout 限制组件和钩子停止的最长时间
func WithShutdownTimeout(d time.Duration) Option {
	return func(c *Controller) { c.shutdownTimeout = d }
}

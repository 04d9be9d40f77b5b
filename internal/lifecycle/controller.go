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

// Package lifecycle owns the daemon's process lifecycle: initialisation,
// the run loop, termination signals and the orderly shutdown sequence.
// lifecycle 包负责守护进程的生命周期：初始化、运行循环、终止信号以及有序关闭流程。
//
// State machine / 状态机:
//
//	uninitialized --Initialise--> initializing --Run--> running
//	running --(signal | fault | Shutdown)--> shutting_down --> terminated
//
// terminated is absorbing. Shutdown from any other state drives to terminated.
// terminated 为终态。从任何其他状态调用 Shutdown 都会推进到 terminated。
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/noso/nosod/internal/config"
	"github.com/noso/nosod/internal/logger"
	"github.com/noso/nosod/internal/tracing"
)

// DefaultShutdownTimeout bounds worker and hook cleanup
// DefaultShutdownTimeout 限制组件与钩子清理的时长
const DefaultShutdownTimeout = 30 * time.Second

// ErrInvalidTransition is returned when an operation is called in the wrong state
// ErrInvalidTransition 在错误的状态下调用操作时返回
var ErrInvalidTransition = errors.New("invalid lifecycle transition")

var (
	instance     *Controller
	instanceOnce sync.Once
)

// GetInstance returns the process-wide controller, creating it on first use.
// Creation registers the OS termination signals. opts only apply to the call
// that creates the instance.
// GetInstance 返回进程级控制器，首次调用时创建，创建时注册操作系统终止信号。
// opts 仅对创建实例的那次调用生效。
func GetInstance(opts ...Option) *Controller {
	instanceOnce.Do(func() {
		terminate := NotifyTermination()
		reload := NotifyReload()
		base := []Option{
			WithSignalSource(terminate),
			WithReloadSource(reload),
			withSignalRelease(func() { stopNotify(terminate, reload) }),
		}
		instance = New(append(base, opts...)...)
	})
	return instance
}

// Controller drives the lifecycle state machine
// Controller 驱动生命周期状态机
type Controller struct {
	id    string
	state atomic.Int32

	log        atomic.Pointer[logger.Logger]
	ownsLogger bool

	loader     *config.Loader
	ownsLoader bool
	cfg        atomic.Pointer[config.Config]
	checker    IntegrityChecker
	observer   Observer

	// tracerFixed keeps an injected provider across Initialise
	tracing     atomic.Pointer[tracing.Provider]
	tracerFixed bool

	tick            time.Duration
	tickFixed       bool
	shutdownTimeout time.Duration

	terminate     <-chan os.Signal
	reload        <-chan os.Signal
	signalRelease func()
	bridge        *SignalBridge

	// stopReason doubles as the one-shot gate for stopCh
	stopReason atomic.Int32
	stopCh     chan struct{}
	reloadCh   chan struct{}

	running      atomic.Bool
	shutdownOnce sync.Once
	done         chan struct{}

	// workCtx is handed to workers and cancelled once they are stopped
	workCtx    context.Context
	workCancel context.CancelFunc

	// mu protects workers, started, hooks and fault
	mu      sync.Mutex
	workers []Worker
	started []Worker
	hooks   []func(context.Context) error
	fault   error
}

// New creates a controller. Signals are only bridged when a source is given.
// New 创建控制器。仅在提供信号来源时才桥接信号。
func New(opts ...Option) *Controller {
	workCtx, workCancel := context.WithCancel(context.Background())
	c := &Controller{
		id:              uuid.NewString(),
		ownsLogger:      true,
		checker:         BlockChecker{},
		observer:        nopObserver{},
		tick:            config.DefaultTickInterval,
		shutdownTimeout: DefaultShutdownTimeout,
		stopCh:          make(chan struct{}),
		reloadCh:        make(chan struct{}, 1),
		done:            make(chan struct{}),
		workCtx:         workCtx,
		workCancel:      workCancel,
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.log.Load() == nil {
		c.ownsLogger = true
		c.log.Store(logger.New(logger.Options{Level: logger.DefaultLevel}).With(zap.String("run_id", c.id)))
	}
	if c.tracing.Load() == nil {
		c.tracing.Store(tracing.Noop())
	}

	if c.terminate != nil || c.reload != nil {
		c.bridge = newSignalBridge(c.terminate, c.reload, c, c.done, c.signalRelease)
	}
	return c
}

// ID returns the run identifier attached to every log line
// ID 返回附加在每条日志上的运行标识
func (c *Controller) ID() string {
	return c.id
}

// State returns the current lifecycle state
// State 返回当前生命周期状态
func (c *Controller) State() State {
	return State(c.state.Load())
}

// Config returns the configuration built by Initialise, or nil before it
// Config 返回 Initialise 构建的配置，之前调用返回 nil
func (c *Controller) Config() *config.Config {
	return c.cfg.Load()
}

// Logger returns the controller's logger
func (c *Controller) Logger() *logger.Logger {
	return c.log.Load()
}

// Done is closed once the controller reaches terminated
// Done 在控制器进入 terminated 后关闭
func (c *Controller) Done() <-chan struct{} {
	return c.done
}

// ExitCode is the process exit code the entry point should use
// ExitCode 是入口点应使用的进程退出码
func (c *Controller) ExitCode() int {
	return ExitOK
}

// StopReason returns what requested the shutdown, if anything has
func (c *Controller) StopReason() StopReason {
	return StopReason(c.stopReason.Load())
}

// Err returns the worker fault that ended the run, if any
// Err 返回导致运行结束的组件故障（如有）
func (c *Controller) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fault
}

// Signals returns the signal bridge, nil when no source was configured
func (c *Controller) Signals() *SignalBridge {
	return c.bridge
}

// SetLogLevel applies a new severity immediately
// SetLogLevel 立即应用新的日志级别
func (c *Controller) SetLogLevel(level logger.Level) {
	c.log.Load().SetLevel(level)
}

// Register adds a worker started by Run and stopped during shutdown
// Register 添加由 Run 启动、在关闭时停止的组件
func (c *Controller) Register(w Worker) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.workers = append(c.workers, w)
}

// OnShutdown adds a cleanup hook. Hooks run in registration order after workers
// stop. A hook must not call Shutdown; RequestShutdown and Fault are safe.
// OnShutdown 添加清理钩子，钩子在组件停止后按注册顺序执行。钩子不得调用 Shutdown，
// 可安全调用 RequestShutdown 和 Fault。
func (c *Controller) OnShutdown(hook func(context.Context) error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hooks = append(c.hooks, hook)
}

// Initialise loads the configuration from args and the config file, then
// applies the log level. Configuration problems are logged as warnings and
// never fail the call.
// Initialise 从 args 和配置文件加载配置并应用日志级别。配置问题只记录为警告，不会导致失败。
func (c *Controller) Initialise(args []string) error {
	start := time.Now()
	if !c.transition(StateUninitialized, StateInitializing) {
		return fmt.Errorf("%w: initialise called while %s", ErrInvalidTransition, c.State())
	}

	loader := c.loader
	if loader == nil {
		loader = config.NewLoader(c.log.Load().Zap())
		c.loader = loader
		c.ownsLoader = true
	}

	cfg, warnings := loader.Load(args)
	c.applyLogging(cfg)

	log := c.log.Load().Zap()
	if c.ownsLoader {
		// The bootstrap logger was just replaced
		loader.SetLogger(log)
	}
	problems := multierr.Errors(warnings)
	for _, err := range problems {
		log.Warn("configuration warning, continuing with defaults", zap.Error(err))
	}
	c.observer.ConfigWarnings(len(problems))

	if !c.tickFixed {
		c.tick = cfg.TickInterval
	}
	c.cfg.Store(cfg)

	if !c.tracerFixed {
		c.tracing.Store(tracing.New(context.Background(), tracing.Options{
			Enabled:  cfg.TelemetryEnabled,
			Endpoint: cfg.TelemetryEndpoint,
			RunID:    c.id,
		}, log))
	}

	// The provider only exists now, so the span is back-dated to cover loading
	_, span := c.tracing.Load().Start(context.Background(), "lifecycle.initialise", trace.WithTimestamp(start))
	span.SetAttributes(
		attribute.String("log_level", cfg.LogLevel.String()),
		attribute.String("config", cfg.Path),
		attribute.Int("warnings", len(problems)),
	)
	span.End()

	fields := []zap.Field{
		zap.Stringer("log_level", cfg.LogLevel),
		zap.String("config", cfg.Path),
	}
	if cfg.RunMode != "" {
		fields = append(fields, zap.String("run_mode", cfg.RunMode))
	}
	if cfg.MaxConnections != nil {
		fields = append(fields, zap.Int("max_connections", *cfg.MaxConnections))
	}
	log.Info("initialised", fields...)
	return nil
}

// applyLogging rebuilds an owned logger from the config, or only changes the
// level of an injected one.
func (c *Controller) applyLogging(cfg *config.Config) {
	if !c.ownsLogger {
		c.log.Load().SetLevel(cfg.LogLevel)
		return
	}
	next := logger.New(cfg.LoggerOptions()).With(zap.String("run_id", c.id))
	prev := c.log.Swap(next)
	if prev != nil {
		_ = prev.Close()
	}
}

// CheckIntegrity runs the integrity pass and reports its status
// CheckIntegrity 执行完整性检查并上报结果
func (c *Controller) CheckIntegrity(ctx context.Context) IntegrityReport {
	ctx, span := c.tracing.Load().Start(ctx, "lifecycle.check_integrity")
	defer span.End()

	log := c.log.Load().Zap()
	report := c.checker.Check(ctx, log)
	log.Info("integrity check completed",
		zap.String("status", string(report.Status)),
		zap.Strings("checked", report.Checked),
		zap.Duration("duration", report.Duration),
	)
	return report
}

// Run starts the workers and blocks until the controller terminates. Every stop
// trigger is observed on this goroutine, which also performs the cleanup.
// Run 启动组件并阻塞直到控制器终止。所有停止触发都在此 goroutine 上被观察到，
// 清理也在此 goroutine 上执行。
func (c *Controller) Run(ctx context.Context) error {
	if !c.transition(StateInitializing, StateRunning) {
		if c.State() >= StateShuttingDown {
			<-c.done
			return nil
		}
		return fmt.Errorf("%w: run called while %s", ErrInvalidTransition, c.State())
	}
	c.running.Store(true)
	defer c.running.Store(false)

	log := c.log.Load().Zap()
	log.Info("application is running, press CTRL-C or stop the service to terminate",
		zap.Duration("tick", c.tick))

	c.startWorkers()

	ticker := time.NewTicker(c.tick)
	defer ticker.Stop()

	ctxDone := ctx.Done()
	for {
		select {
		case <-c.stopCh:
			reason := c.StopReason()
			c.observer.ShutdownRequested(reason)
			if reason == ReasonFault {
				log.Error("worker fault, shutting down", zap.Error(c.Err()))
			} else {
				log.Info("termination requested, shutting down gracefully", zap.Stringer("reason", reason))
			}
			c.shutdown()
			return nil
		case <-ctxDone:
			ctxDone = nil
			c.RequestShutdown(ReasonContext)
		case <-c.reloadCh:
			c.reloadConfig()
		case <-ticker.C:
			c.observer.Tick()
			c.log.Load().Trace("running periodic tasks")
		}
	}
}

// RequestShutdown records a stop request and returns immediately. It neither
// logs nor allocates, so it is safe to call from signal delivery.
// RequestShutdown 记录停止请求并立即返回，不记录日志也不分配内存，可在信号处理中安全调用。
func (c *Controller) RequestShutdown(reason StopReason) {
	if c.stopReason.CompareAndSwap(int32(reasonNone), int32(reason)) {
		close(c.stopCh)
	}
}

// RequestReload asks the run loop to reload the configuration. Requests made
// while one is pending are merged.
// RequestReload 请求运行循环重新加载配置，挂起期间的重复请求会被合并。
func (c *Controller) RequestReload() {
	select {
	case c.reloadCh <- struct{}{}:
	default:
	}
}

// Fault reports a worker failure. The first fault is kept and ends the run.
// Fault 上报组件故障，保留第一个故障并结束运行。
func (c *Controller) Fault(err error) {
	if err == nil {
		return
	}
	c.mu.Lock()
	if c.fault == nil {
		c.fault = err
	}
	c.mu.Unlock()
	c.RequestShutdown(ReasonFault)
}

// Shutdown stops the controller and returns once it is terminated. It is
// idempotent; concurrent callers all wait for the single cleanup. It must not be
// called from a cleanup hook or Worker.Stop, which would wait on itself; those
// use RequestShutdown or Fault.
// Shutdown 停止控制器并在进入 terminated 后返回。该方法幂等，并发调用方都会等待唯一的一次清理。
// 不得在清理钩子或 Worker.Stop 中调用（会等待自身），这些场景应使用 RequestShutdown 或 Fault。
func (c *Controller) Shutdown() {
	c.RequestShutdown(ReasonExplicit)
	// Run may have won the CAS without publishing running yet
	if c.running.Load() || c.State() == StateRunning {
		<-c.done
		return
	}
	c.shutdown()
}

// shutdown runs the cleanup sequence exactly once
func (c *Controller) shutdown() {
	c.shutdownOnce.Do(func() {
		start := time.Now()
		c.advance(StateShuttingDown)
		c.RequestShutdown(ReasonExplicit)

		ctx, cancel := context.WithTimeout(context.Background(), c.shutdownTimeout)
		defer cancel()
		prov := c.tracing.Load()
		ctx, span := prov.Start(ctx, "lifecycle.shutdown")

		log := c.log.Load().Zap()
		log.Info("performing cleanup tasks")

		c.mu.Lock()
		started := append([]Worker(nil), c.started...)
		hooks := append([]func(context.Context) error(nil), c.hooks...)
		c.mu.Unlock()

		for i := len(started) - 1; i >= 0; i-- {
			w := started[i]
			if err := w.Stop(ctx); err != nil {
				log.Warn("error stopping worker", zap.String("worker", w.Name()), zap.Error(err))
			}
		}
		c.workCancel()

		for _, hook := range hooks {
			if err := hook(ctx); err != nil {
				log.Warn("cleanup hook failed", zap.Error(err))
			}
		}

		span.End()
		if err := prov.Shutdown(ctx); err != nil {
			log.Warn("error flushing traces", zap.Error(err))
		}

		c.observer.ShutdownCompleted(time.Since(start))
		c.advance(StateTerminated)
		log.Info("shutdown complete", zap.Int("exit_code", c.ExitCode()), zap.Duration("took", time.Since(start)))

		if c.ownsLogger {
			_ = c.log.Load().Close()
		}
		close(c.done)
	})
}

// startWorkers starts registered workers in order, stopping early when a
// shutdown is already pending. A start failure is a fault.
func (c *Controller) startWorkers() {
	c.mu.Lock()
	defer c.mu.Unlock()

	log := c.log.Load().Zap()
	for _, w := range c.workers {
		if c.StopReason() != reasonNone {
			return
		}
		if err := w.Start(c.workCtx); err != nil {
			// Fault takes mu, so record the fault inline
			if c.fault == nil {
				c.fault = fmt.Errorf("failed to start %s: %w", w.Name(), err)
			}
			c.RequestShutdown(ReasonFault)
			return
		}
		c.started = append(c.started, w)
		log.Debug("worker started", zap.String("worker", w.Name()))
	}
}

// reloadConfig re-reads the configuration and applies the hot-changeable parts
// reloadConfig 重新读取配置并应用可热更新的部分
func (c *Controller) reloadConfig() {
	if c.loader == nil {
		return
	}
	log := c.log.Load().Zap()

	cfg, warnings := c.loader.Reload()
	problems := multierr.Errors(warnings)
	for _, err := range problems {
		log.Warn("configuration warning during reload", zap.Error(err))
	}
	c.observer.ConfigWarnings(len(problems))

	previous := c.log.Load().Level()
	c.SetLogLevel(cfg.LogLevel)
	log.Info("configuration reloaded",
		zap.Stringer("previous_level", previous),
		zap.Stringer("log_level", cfg.LogLevel),
	)
}

// transition moves from exactly one state to another
func (c *Controller) transition(from, to State) bool {
	if !c.state.CompareAndSwap(int32(from), int32(to)) {
		return false
	}
	c.observer.StateChanged(from, to)
	return true
}

// advance moves forward to to from whatever earlier state the controller is in
func (c *Controller) advance(to State) bool {
	for {
		cur := State(c.state.Load())
		if cur >= to {
			return false
		}
		if c.transition(cur, to) {
			return true
		}
	}
}

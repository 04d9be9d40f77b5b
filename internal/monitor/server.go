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
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"

	"github.com/noso/nosod/internal/lifecycle"
)

// DefaultReadHeaderTimeout bounds how long a client may take to send headers
const DefaultReadHeaderTimeout = 5 * time.Second

// StatusServerConfig configures the status server
// StatusServerConfig 配置状态服务器
type StatusServerConfig struct {
	// Addr is the listen address, e.g. "127.0.0.1:9100"
	// Addr 为监听地址
	Addr string

	// Gatherer serves /metrics; defaults to prometheus.DefaultGatherer
	Gatherer prometheus.Gatherer

	// State reports the lifecycle state for /healthz
	State func() lifecycle.State

	// RunID is echoed by /healthz (optional)
	RunID string

	// Fault is told when the server stops serving unexpectedly (optional)
	Fault func(error)

	// Logger is used for structured logging (optional)
	Logger *zap.Logger
}

// StatusServer serves /metrics and /healthz as a lifecycle worker
// StatusServer 作为生命周期组件提供 /metrics 与 /healthz
type StatusServer struct {
	cfg     StatusServerConfig
	log     *zap.Logger
	handler http.Handler

	mu       sync.Mutex
	server   *http.Server
	listener net.Listener
	running  bool
}

var _ lifecycle.Worker = (*StatusServer)(nil)

// NewStatusServer creates a stopped status server
// NewStatusServer 创建一个处于停止状态的状态服务器
func NewStatusServer(cfg StatusServerConfig) *StatusServer {
	if cfg.Gatherer == nil {
		cfg.Gatherer = prometheus.DefaultGatherer
	}
	if cfg.State == nil {
		cfg.State = func() lifecycle.State { return lifecycle.StateUninitialized }
	}
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	s := &StatusServer{cfg: cfg, log: log}
	s.handler = s.newRouter()
	return s
}

func (s *StatusServer) newRouter() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), otelgin.Middleware("nosod"))

	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.cfg.Gatherer, promhttp.HandlerOpts{})))
	r.GET("/healthz", s.healthz)
	return r
}

// healthz reports 200 only while the daemon is running
func (s *StatusServer) healthz(c *gin.Context) {
	state := s.cfg.State()
	code := http.StatusOK
	if state != lifecycle.StateRunning {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, gin.H{
		"status": state.String(),
		"run_id": s.cfg.RunID,
	})
}

// Name implements lifecycle.Worker
func (s *StatusServer) Name() string {
	return "status-server"
}

// Handler returns the HTTP handler, mainly for tests
func (s *StatusServer) Handler() http.Handler {
	return s.handler
}

// Start binds the listen address and serves in the background. Bind errors are
// returned directly.
// Start 绑定监听地址并在后台提供服务，绑定错误直接返回。
func (s *StatusServer) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return nil
	}

	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.cfg.Addr, err)
	}
	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: DefaultReadHeaderTimeout,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	s.server = srv
	s.listener = ln
	s.running = true

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("status server stopped serving", zap.Error(err))
			if s.cfg.Fault != nil {
				s.cfg.Fault(fmt.Errorf("status server: %w", err))
			}
		}
	}()

	s.log.Info("status server listening", zap.String("addr", ln.Addr().String()))
	return nil
}

// Stop gracefully shuts the server down. Safe to call more than once.
// Stop 优雅关闭服务器，可多次调用。
func (s *StatusServer) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return nil
	}
	s.running = false

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("status server shutdown: %w", err)
	}
	s.log.Info("status server stopped")
	return nil
}

// Addr returns the bound address, or the configured one before Start
func (s *StatusServer) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.cfg.Addr
}

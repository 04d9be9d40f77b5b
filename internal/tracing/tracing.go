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

// Package tracing wires OpenTelemetry spans around lifecycle phases.
// tracing 包为生命周期各阶段接入 OpenTelemetry 追踪。
package tracing

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"
)

// InstrumentationName names the tracer used by the daemon
const InstrumentationName = "github.com/noso/nosod"

// Options configures the trace provider
// Options 配置追踪提供者
type Options struct {
	Enabled     bool
	Endpoint    string
	ServiceName string
	RunID       string
}

// Provider owns a tracer and the function that flushes it
// Provider 持有追踪器及其刷新函数
type Provider struct {
	tracer   trace.Tracer
	shutdown func(context.Context) error
	enabled  bool
}

// Noop returns a provider whose spans are discarded
// Noop 返回丢弃所有 span 的提供者
func Noop() *Provider {
	return &Provider{
		tracer:   noop.NewTracerProvider().Tracer(InstrumentationName),
		shutdown: func(context.Context) error { return nil },
	}
}

// New builds a provider from opts. When tracing is disabled, or the exporter
// cannot be created, a noop provider is returned and the failure is logged.
// New 根据 opts 构建提供者。追踪被禁用或导出器创建失败时返回空操作提供者并记录日志。
func New(ctx context.Context, opts Options, log *zap.Logger) *Provider {
	if log == nil {
		log = zap.NewNop()
	}
	if !opts.Enabled {
		log.Debug("OpenTelemetry tracing is disabled")
		return Noop()
	}

	tp, err := newTracerProvider(ctx, opts)
	if err != nil {
		log.Warn("failed to init trace provider, using noop tracer", zap.Error(err))
		return Noop()
	}

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	otel.SetTracerProvider(tp)

	log.Info("OpenTelemetry tracing initialized", zap.String("endpoint", opts.Endpoint))
	return &Provider{
		tracer:   tp.Tracer(InstrumentationName),
		shutdown: tp.Shutdown,
		enabled:  true,
	}
}

// Wrap builds an enabled provider over an existing tracer provider. Shutdown
// is forwarded when tp supports it.
// Wrap 基于已有的 TracerProvider 构建提供者，tp 支持时转发 Shutdown。
func Wrap(tp trace.TracerProvider) *Provider {
	p := &Provider{
		tracer:   tp.Tracer(InstrumentationName),
		shutdown: func(context.Context) error { return nil },
		enabled:  true,
	}
	if s, ok := tp.(interface{ Shutdown(context.Context) error }); ok {
		p.shutdown = s.Shutdown
	}
	return p
}

func newTracerProvider(ctx context.Context, opts Options) (*sdktrace.TracerProvider, error) {
	if opts.Endpoint == "" {
		return nil, errors.New("telemetry endpoint is required when tracing is enabled")
	}

	exporter, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(opts.Endpoint),
		otlptracegrpc.WithInsecure(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create otlp exporter: %w", err)
	}

	serviceName := opts.ServiceName
	if serviceName == "" {
		serviceName = "nosod"
	}
	res := resource.NewSchemaless(
		attribute.String("service.name", serviceName),
		attribute.String("service.instance.id", opts.RunID),
	)

	return sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	), nil
}

// Tracer returns the provider's tracer
func (p *Provider) Tracer() trace.Tracer {
	return p.tracer
}

// Enabled reports whether spans are exported
// Enabled 返回 span 是否会被导出
func (p *Provider) Enabled() bool {
	return p.enabled
}

// Start opens a span on the provider's tracer
func (p *Provider) Start(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return p.tracer.Start(ctx, name, opts...)
}

// Shutdown flushes pending spans
// Shutdown 刷新待导出的 span
func (p *Provider) Shutdown(ctx context.Context) error {
	return p.shutdown(ctx)
}

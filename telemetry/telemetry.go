// Copyright 2025 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package telemetry configures OpenTelemetry tracing for the evaluation
// pipeline. Spans cover inference and evaluation passes; export goes to an
// OTLP endpoint when one is configured and stays in-process otherwise.
package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

const serviceName = "evalkit"

// Options configures tracing setup.
type Options struct {
	// OTLPEndpoint is the OTLP/HTTP collector address, e.g.
	// "localhost:4318". Empty disables export; spans are still recorded
	// for in-process consumers.
	OTLPEndpoint string

	// Insecure permits plain HTTP to the collector.
	Insecure bool
}

// Shutdown flushes and stops the tracer provider.
type Shutdown func(context.Context) error

// Setup installs a global tracer provider and returns its shutdown hook.
func Setup(ctx context.Context, opts Options) (Shutdown, error) {
	res, err := resource.Merge(resource.Default(), resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(serviceName),
	))
	if err != nil {
		return nil, fmt.Errorf("build telemetry resource: %w", err)
	}

	providerOpts := []sdktrace.TracerProviderOption{sdktrace.WithResource(res)}
	if opts.OTLPEndpoint != "" {
		exporterOpts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(opts.OTLPEndpoint)}
		if opts.Insecure {
			exporterOpts = append(exporterOpts, otlptracehttp.WithInsecure())
		}
		exporter, err := otlptracehttp.New(ctx, exporterOpts...)
		if err != nil {
			return nil, fmt.Errorf("create OTLP trace exporter: %w", err)
		}
		providerOpts = append(providerOpts, sdktrace.WithBatcher(exporter))
	}

	provider := sdktrace.NewTracerProvider(providerOpts...)
	otel.SetTracerProvider(provider)
	return provider.Shutdown, nil
}

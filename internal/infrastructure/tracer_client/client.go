package tracer_client

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.28.0"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/keepalive"
)

var (
	mu       sync.RWMutex
	provider *sdktrace.TracerProvider
)

var ErrNoEndpoint = errors.New("tracing endpoint is required")

// Options describe the OTLP collector and how this agent identifies itself.
type Options struct {
	Endpoint    string
	Insecure    bool
	ServiceName string
	Namespace   string
	AgentID     string
	SampleRatio float64
	Timeout     time.Duration
}

type Option func(*Options)

func WithEndpoint(ep string) Option { return func(o *Options) { o.Endpoint = ep } }
func WithInsecure(insecure bool) Option { return func(o *Options) { o.Insecure = insecure } }
func WithServiceName(name string) Option { return func(o *Options) { o.ServiceName = name } }
func WithNamespace(ns string) Option { return func(o *Options) { o.Namespace = ns } }
func WithAgentID(id string) Option { return func(o *Options) { o.AgentID = id } }
func WithTimeout(d time.Duration) Option { return func(o *Options) { o.Timeout = d } }
func WithSampleRatio(r float64) Option { return func(o *Options) { o.SampleRatio = r } }

func resolve(opts []Option) (Options, error) {
	o := Options{ServiceName: "smartfarm-agent", SampleRatio: 1, Timeout: 10 * time.Second}
	for _, fn := range opts {
		fn(&o)
	}
	if o.Endpoint == "" {
		return o, ErrNoEndpoint
	}
	if o.SampleRatio <= 0 || o.SampleRatio > 1 {
		o.SampleRatio = 1
	}
	if o.Timeout <= 0 {
		o.Timeout = 10 * time.Second
	}
	return o, nil
}

func newExporter(ctx context.Context, o Options) (*otlptrace.Exporter, error) {
	dial := []grpc.DialOption{grpc.WithKeepaliveParams(keepalive.ClientParameters{PermitWithoutStream: true})}
	if o.Insecure {
		dial = append(dial, grpc.WithTransportCredentials(insecure.NewCredentials()))
	}
	return otlptrace.New(ctx, otlptracegrpc.NewClient(
		otlptracegrpc.WithEndpoint(o.Endpoint),
		otlptracegrpc.WithDialOption(dial...),
	))
}

func newResource(ctx context.Context, o Options) (*resource.Resource, error) {
	attrs := []attribute.KeyValue{semconv.ServiceName(o.ServiceName)}
	if o.Namespace != "" {
		attrs = append(attrs, semconv.ServiceNamespace(o.Namespace))
	}
	if o.AgentID != "" {
		attrs = append(attrs, semconv.ServiceInstanceID(o.AgentID))
	}
	return resource.New(ctx,
		resource.WithFromEnv(),
		resource.WithHost(),
		resource.WithProcess(),
		resource.WithTelemetrySDK(),
		resource.WithAttributes(attrs...),
	)
}

// NewTracerClient installs the global OTLP provider and returns its
// shutdown. Installing twice keeps the first provider; a failed install
// may be retried.
func NewTracerClient(opts ...Option) (func(ctx context.Context) error, error) {
	mu.Lock()
	defer mu.Unlock()
	if provider != nil {
		return Shutdown, nil
	}

	o, err := resolve(opts)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), o.Timeout)
	defer cancel()

	exp, err := newExporter(ctx, o)
	if err != nil {
		return nil, fmt.Errorf("create otlp trace exporter: %w", err)
	}
	res, err := newResource(ctx, o)
	if err != nil {
		return nil, fmt.Errorf("create resource: %w", err)
	}

	provider = sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(o.SampleRatio))),
		sdktrace.WithBatcher(exp,
			sdktrace.WithBatchTimeout(5*time.Second),
			sdktrace.WithExportTimeout(10*time.Second),
		),
	)
	otel.SetTracerProvider(provider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))
	return Shutdown, nil
}

// Tracer falls back to the global no-op tracer while tracing is off.
func Tracer(name string, opts ...trace.TracerOption) trace.Tracer {
	mu.RLock()
	defer mu.RUnlock()
	if provider == nil {
		return otel.Tracer(name, opts...)
	}
	return provider.Tracer(name, opts...)
}

// Shutdown flushes pending spans and uninstalls the provider.
func Shutdown(ctx context.Context) error {
	mu.Lock()
	defer mu.Unlock()
	if provider == nil {
		return nil
	}
	err := provider.Shutdown(ctx)
	provider = nil
	return err
}

// Span attribute keys shared by the farm components.
const (
	AttrNodeID   = attribute.Key("smartfarm.node_id")
	AttrDeviceID = attribute.Key("smartfarm.device_id")
	AttrZone     = attribute.Key("smartfarm.zone")
	AttrRecipe   = attribute.Key("smartfarm.recipe")
)

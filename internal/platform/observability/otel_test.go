package observability

import (
	"context"
	"testing"
)

func TestInitTracer_NoEndpointIsNoop(t *testing.T) {
	shutdown, err := InitTracer(context.Background(), TracerConfig{ServiceName: "test"})
	if err != nil {
		t.Fatalf("InitTracer: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
}

func TestInitTracer_WithEndpoint(t *testing.T) {
	// El exporter gRPC conecta en forma diferida: no hace falta un collector real.
	shutdown, err := InitTracer(context.Background(), TracerConfig{
		ServiceName: "test",
		Endpoint:    "127.0.0.1:4317",
		Insecure:    true,
		SampleRatio: 5,
	})
	if err != nil {
		t.Fatalf("InitTracer: %v", err)
	}
	_ = shutdown(context.Background())
}

package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/trace"

	"github.com/bizmatters/diabetes-screener/internal/inference"
)

func main() {
	// Parse command-line flags
	name := flag.String("name", "diabetes", "Model name the artifact belongs to")
	kind := flag.String("kind", "", "Artifact kind: scaler or classifier (required)")
	file := flag.String("file", "", "Path to the JSON artifact (required)")
	flag.Parse()

	// Initialize OpenTelemetry for observability
	tp, err := initTracer()
	if err != nil {
		log.Fatalf("Failed to initialize tracer: %v", err)
	}
	defer tp.Shutdown(context.Background())

	payload, err := readArtifact(*name, *kind, *file)
	if err != nil {
		log.Fatalf("Validation error: %v", err)
	}

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatalf("DATABASE_URL is required")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		log.Fatalf("Failed to ping database: %v", err)
	}
	log.Println("Connected to PostgreSQL database")

	registry := inference.NewRegistry(pool)
	if err := registry.EnsureSchema(ctx); err != nil {
		log.Fatalf("Failed to prepare registry: %v", err)
	}

	artifact, err := registry.Register(ctx, *name, *kind, payload)
	if err != nil {
		log.Fatalf("Failed to register artifact: %v", err)
	}

	log.Printf("✓ Successfully registered artifact")
	log.Printf("  ID: %s", artifact.ID)
	log.Printf("  Model: %s (%s)", artifact.Name, artifact.Kind)
	log.Printf("  Version: %d", artifact.Version)
	log.Printf("  Digest: %s", artifact.Digest)
}

// readArtifact loads the file and checks it parses as the declared kind
func readArtifact(name, kind, path string) ([]byte, error) {
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("name is required and cannot be empty")
	}
	if path == "" {
		return nil, fmt.Errorf("file is required")
	}

	payload, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	switch kind {
	case inference.KindScaler:
		_, err = inference.ParseScaler(payload)
	case inference.KindClassifier:
		_, err = inference.ParseLogisticRegression(payload)
	default:
		return nil, fmt.Errorf("kind must be %q or %q, got %q", inference.KindScaler, inference.KindClassifier, kind)
	}
	if err != nil {
		return nil, err
	}
	return payload, nil
}

// initTracer initializes OpenTelemetry tracing
func initTracer() (*trace.TracerProvider, error) {
	exporter, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
	if err != nil {
		return nil, fmt.Errorf("failed to create stdout exporter: %w", err)
	}

	tp := trace.NewTracerProvider(
		trace.WithBatcher(exporter),
	)

	otel.SetTracerProvider(tp)

	return tp, nil
}

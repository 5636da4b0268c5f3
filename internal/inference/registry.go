package inference

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/crypto/blake2b"
)

// ErrArtifactNotFound is returned when no version of an artifact exists.
var ErrArtifactNotFound = errors.New("artifact not found")

const registrySchema = `
CREATE TABLE IF NOT EXISTS model_artifacts (
	id         UUID PRIMARY KEY,
	name       TEXT NOT NULL,
	kind       TEXT NOT NULL,
	version    INTEGER NOT NULL,
	payload    BYTEA NOT NULL,
	digest     TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	UNIQUE (name, kind, version)
)`

// Artifact is one stored version of a scaler or classifier
type Artifact struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Kind      string    `json:"kind"`
	Version   int       `json:"version"`
	Payload   []byte    `json:"-"`
	Digest    string    `json:"digest"`
	CreatedAt time.Time `json:"created_at"`
}

// Registry stores versioned model artifacts in PostgreSQL
type Registry struct {
	pool   *pgxpool.Pool
	tracer trace.Tracer
}

// NewRegistry creates a registry backed by pool
func NewRegistry(pool *pgxpool.Pool) *Registry {
	return &Registry{
		pool:   pool,
		tracer: otel.Tracer("model-registry"),
	}
}

// Digest returns the hex blake2b-256 digest of payload.
func Digest(payload []byte) string {
	sum := blake2b.Sum256(payload)
	return hex.EncodeToString(sum[:])
}

// EnsureSchema creates the artifacts table if needed.
func (r *Registry) EnsureSchema(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, registrySchema); err != nil {
		return fmt.Errorf("failed to create model_artifacts table: %w", err)
	}
	return nil
}

// Ping checks database connectivity.
func (r *Registry) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

// Register stores payload as the next version of (name, kind).
func (r *Registry) Register(ctx context.Context, name, kind string, payload []byte) (*Artifact, error) {
	ctx, span := r.tracer.Start(ctx, "registry.register")
	defer span.End()

	span.SetAttributes(
		attribute.String("artifact.name", name),
		attribute.String("artifact.kind", kind),
	)

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	// Serialize concurrent registrations of the same artifact
	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, name+"/"+kind); err != nil {
		return nil, fmt.Errorf("failed to lock artifact: %w", err)
	}

	var version int
	err = tx.QueryRow(ctx,
		`SELECT COALESCE(MAX(version), 0) + 1 FROM model_artifacts WHERE name = $1 AND kind = $2`,
		name, kind,
	).Scan(&version)
	if err != nil {
		return nil, fmt.Errorf("failed to compute next version: %w", err)
	}

	a := &Artifact{
		ID:      uuid.New(),
		Name:    name,
		Kind:    kind,
		Version: version,
		Payload: payload,
		Digest:  Digest(payload),
	}

	err = tx.QueryRow(ctx,
		`INSERT INTO model_artifacts (id, name, kind, version, payload, digest)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING created_at`,
		a.ID, a.Name, a.Kind, a.Version, a.Payload, a.Digest,
	).Scan(&a.CreatedAt)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to insert artifact: %w", err)
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	span.SetAttributes(attribute.Int("artifact.version", version))
	return a, nil
}

// Latest returns the newest version of (name, kind) after verifying its digest.
func (r *Registry) Latest(ctx context.Context, name, kind string) (*Artifact, error) {
	ctx, span := r.tracer.Start(ctx, "registry.latest")
	defer span.End()

	var a Artifact
	err := r.pool.QueryRow(ctx, `
		SELECT id, name, kind, version, payload, digest, created_at
		FROM model_artifacts
		WHERE name = $1 AND kind = $2
		ORDER BY version DESC
		LIMIT 1
	`, name, kind).Scan(&a.ID, &a.Name, &a.Kind, &a.Version, &a.Payload, &a.Digest, &a.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%s %s: %w", name, kind, ErrArtifactNotFound)
		}
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get artifact: %w", err)
	}

	if err := a.Verify(); err != nil {
		span.RecordError(err)
		return nil, err
	}

	span.SetAttributes(attribute.Int("artifact.version", a.Version))
	return &a, nil
}

// Verify checks the payload against the stored digest.
func (a *Artifact) Verify() error {
	if got := Digest(a.Payload); got != a.Digest {
		return fmt.Errorf("artifact %s %s v%d: digest mismatch (stored %s, computed %s)",
			a.Name, a.Kind, a.Version, a.Digest, got)
	}
	return nil
}

package state

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"strings"
	"time"

	"github.com/google/uuid"

	videocfg "github.com/goliatone/go-videoconfig"
	"github.com/goliatone/go-videoconfig/layering"
)

var ErrETagMismatch = errors.New("state: etag mismatch")

var ErrInvalidRef = errors.New("state: invalid layer reference")

// Ref identifies one persisted layer.
type Ref struct {
	Source layering.Source
}

// ParseRef converts a source identifier ("global", "title/GALE01/local")
// into a Ref.
func ParseRef(id string) (Ref, error) {
	source, err := layering.ParseSource(id)
	if err != nil {
		return Ref{}, fmt.Errorf("%w: %w", ErrInvalidRef, err)
	}
	ref := Ref{Source: source}
	if _, err := ref.Identifier(); err != nil {
		return Ref{}, err
	}
	return ref, nil
}

// Identifier returns the storage key of the referenced layer. Title and
// revision identifiers must be single path segments.
func (r Ref) Identifier() (string, error) {
	if !r.Source.Valid() {
		return "", fmt.Errorf("%w: %s source is missing identifiers", ErrInvalidRef, r.Source.Level)
	}
	for _, part := range []string{r.Source.Title, r.Source.Revision} {
		if part == "." || part == ".." || strings.ContainsAny(part, `/\`) {
			return "", fmt.Errorf("%w: unsafe segment %q", ErrInvalidRef, part)
		}
	}
	return r.Source.Identifier(), nil
}

// Meta is storage-owned metadata used for trace/audit and concurrency control.
type Meta struct {
	SnapshotID string            `json:"snapshot_id,omitempty" toml:"snapshot_id,omitempty"`
	ETag       string            `json:"etag,omitempty" toml:"etag,omitempty"`
	UpdatedAt  time.Time         `json:"updated_at,omitempty" toml:"updated_at,omitempty"`
	Extra      map[string]string `json:"extra,omitempty" toml:"extra,omitempty"`
}

// Store loads and saves the values of one layer.
//
// Save is a compare-and-swap: when meta.ETag is set it must match the
// stored record's ETag, otherwise ErrETagMismatch is returned. A successful
// Save assigns a new SnapshotID and ETag and returns the stored Meta.
type Store interface {
	Load(ctx context.Context, ref Ref) (values map[string]any, meta Meta, ok bool, err error)
	Save(ctx context.Context, ref Ref, values map[string]any, meta Meta) (Meta, error)
}

// Mutator edits the values of one layer in place.
type Mutator func(values map[string]any) error

// Resolver orchestrates layer loads and edits on top of a Store.
type Resolver struct {
	Store Store
}

// Resolve loads sources and stacks them by precedence. Duplicate sources are
// loaded once and sources that were never written are skipped. Each scope carries the loaded snapshot id under
// the "snapshot_id" metadata key.
func (r Resolver) Resolve(ctx context.Context, schema *videocfg.Schema, sources ...layering.Source) (*videocfg.Stack, error) {
	if r.Store == nil {
		return nil, fmt.Errorf("state: store is required")
	}
	if len(sources) == 0 {
		return nil, fmt.Errorf("state: at least one source is required")
	}

	for _, source := range sources {
		if _, err := (Ref{Source: source}).Identifier(); err != nil {
			return nil, err
		}
	}

	chain := layering.NewChain(sources...)
	layers := make([]videocfg.ScopedLayer, 0, len(sources))
	for _, source := range chain.Ordered() {
		ref := Ref{Source: source}
		id, _ := ref.Identifier()
		values, meta, ok, err := r.Store.Load(ctx, ref)
		if err != nil {
			return nil, fmt.Errorf("state: load %q: %w", id, err)
		}
		if !ok {
			continue
		}
		layer := videocfg.NewLayer(id, values)
		if schema != nil {
			layer, _ = layer.Normalize(schema)
		}
		scoped := videocfg.Scoped(source, layer)
		if meta.SnapshotID != "" {
			if scoped.Scope.Metadata == nil {
				scoped.Scope.Metadata = map[string]any{}
			}
			scoped.Scope.Metadata["snapshot_id"] = meta.SnapshotID
		}
		layers = append(layers, scoped)
	}
	return videocfg.NewStack(layers...)
}

// ResolveWithDefaults is Resolve with the schema's compiled defaults stacked
// as the weakest layer.
func (r Resolver) ResolveWithDefaults(ctx context.Context, schema *videocfg.Schema, sources ...layering.Source) (*videocfg.Stack, error) {
	if schema == nil {
		return nil, fmt.Errorf("state: schema is required")
	}
	stack, err := r.Resolve(ctx, schema, sources...)
	if err != nil {
		return nil, err
	}
	layers := append(stack.Layers(), videocfg.ScopedLayer{
		Scope: videocfg.CompiledScope(),
		Layer: schema.DefaultLayer("compiled"),
	})
	return videocfg.NewStack(layers...)
}

// Mutate loads one layer, applies fn and saves the result. A non-empty
// meta.ETag must match the stored record. meta.Extra, when set, replaces the
// stored extra metadata.
func (r Resolver) Mutate(ctx context.Context, ref Ref, meta Meta, fn Mutator) (map[string]any, Meta, error) {
	if r.Store == nil {
		return nil, Meta{}, fmt.Errorf("state: store is required")
	}
	if fn == nil {
		return nil, Meta{}, fmt.Errorf("state: mutator is required")
	}
	id, err := ref.Identifier()
	if err != nil {
		return nil, Meta{}, err
	}

	values, loadedMeta, ok, err := r.Store.Load(ctx, ref)
	if err != nil {
		return nil, Meta{}, fmt.Errorf("state: load %q: %w", id, err)
	}
	if !ok {
		loadedMeta = Meta{}
	}
	if values == nil {
		values = map[string]any{}
	}

	if meta.ETag != "" && meta.ETag != loadedMeta.ETag {
		return nil, loadedMeta, fmt.Errorf("%w: expected %q, got %q", ErrETagMismatch, meta.ETag, loadedMeta.ETag)
	}

	if err := fn(values); err != nil {
		return nil, loadedMeta, err
	}

	saveMeta := loadedMeta
	if meta.Extra != nil {
		saveMeta.Extra = maps.Clone(meta.Extra)
	}
	savedMeta, err := r.Store.Save(ctx, ref, values, saveMeta)
	if err != nil {
		return nil, loadedMeta, fmt.Errorf("state: save %q: %w", id, err)
	}
	return values, savedMeta, nil
}

// stamp returns meta with a fresh snapshot id, etag and timestamp.
func stamp(meta Meta) Meta {
	out := cloneMeta(meta)
	out.SnapshotID = uuid.NewString()
	out.ETag = uuid.NewString()
	out.UpdatedAt = time.Now().UTC()
	return out
}

func cloneMeta(meta Meta) Meta {
	out := meta
	out.Extra = maps.Clone(meta.Extra)
	return out
}

func checkETag(expected, stored Meta) error {
	if expected.ETag != "" && expected.ETag != stored.ETag {
		return fmt.Errorf("%w: expected %q, got %q", ErrETagMismatch, expected.ETag, stored.ETag)
	}
	return nil
}

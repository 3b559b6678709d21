package state_test

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"sync"
	"testing"

	videocfg "github.com/goliatone/go-videoconfig"
	"github.com/goliatone/go-videoconfig/layering"
	"github.com/goliatone/go-videoconfig/pkg/state"
	"github.com/goliatone/go-videoconfig/render"
)

type storeFactory struct {
	name string
	open func(t *testing.T) state.Store
}

func storeFactories() []storeFactory {
	return []storeFactory{
		{name: "memory", open: func(t *testing.T) state.Store { return state.NewMemoryStore() }},
		{name: "toml", open: func(t *testing.T) state.Store {
			store, err := state.NewFileStore(filepath.Join(t.TempDir(), "layers"))
			if err != nil {
				t.Fatalf("file store: %v", err)
			}
			return store
		}},
		{name: "sqlite", open: func(t *testing.T) state.Store {
			store, err := state.OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "layers.db"))
			if err != nil {
				t.Fatalf("sqlite store: %v", err)
			}
			t.Cleanup(func() { _ = store.Close() })
			return store
		}},
	}
}

func normalized(t *testing.T, values map[string]any) map[string]any {
	t.Helper()
	layer, dropped := videocfg.NewLayer("check", values).Normalize(render.Schema())
	if len(dropped) > 0 {
		t.Fatalf("store returned values the schema rejects: %v", dropped)
	}
	return layer.Values()
}

func TestStoreContract(t *testing.T) {
	ctx := context.Background()
	local := state.Ref{Source: layering.TitleLocal("GALE01")}
	values := map[string]any{
		render.KeyMSAA:                 2,
		render.KeyHudDistance:          2.75,
		render.KeyDisable3D:            true,
		render.KeyPostProcessingShader: "bloom",
		"Video_Settings.UseXFB":        true,
	}

	for _, factory := range storeFactories() {
		t.Run(factory.name, func(t *testing.T) {
			store := factory.open(t)

			if _, _, ok, err := store.Load(ctx, local); ok || err != nil {
				t.Fatalf("missing layer should load as absent, got ok=%v err=%v", ok, err)
			}

			meta, err := store.Save(ctx, local, values, state.Meta{Extra: map[string]string{"editor": "cli"}})
			if err != nil {
				t.Fatalf("save: %v", err)
			}
			if meta.ETag == "" || meta.SnapshotID == "" || meta.UpdatedAt.IsZero() {
				t.Fatalf("save should stamp metadata, got %+v", meta)
			}

			loaded, loadedMeta, ok, err := store.Load(ctx, local)
			if err != nil || !ok {
				t.Fatalf("load: ok=%v err=%v", ok, err)
			}
			if !reflect.DeepEqual(normalized(t, loaded), normalized(t, values)) {
				t.Fatalf("round trip mismatch:\nwant %v\n got %v", values, loaded)
			}
			if loadedMeta.ETag != meta.ETag || loadedMeta.Extra["editor"] != "cli" {
				t.Fatalf("metadata mismatch: saved %+v loaded %+v", meta, loadedMeta)
			}

			if _, err := store.Save(ctx, local, values, state.Meta{ETag: "stale"}); !errors.Is(err, state.ErrETagMismatch) {
				t.Fatalf("expected etag mismatch, got %v", err)
			}
			next, err := store.Save(ctx, local, map[string]any{render.KeyMSAA: 1}, loadedMeta)
			if err != nil {
				t.Fatalf("save with current etag: %v", err)
			}
			if next.ETag == meta.ETag {
				t.Fatalf("a save must rotate the etag")
			}

			loaded, _, _, _ = store.Load(ctx, local)
			if got := normalized(t, loaded); !reflect.DeepEqual(got, map[string]any{render.KeyMSAA: 1}) {
				t.Fatalf("save should replace the layer, got %v", got)
			}

			other := state.Ref{Source: layering.Global()}
			if _, _, ok, _ := store.Load(ctx, other); ok {
				t.Fatalf("layers must not leak across sources")
			}
			if _, _, _, err := store.Load(ctx, state.Ref{Source: layering.TitleLocal("..")}); !errors.Is(err, state.ErrInvalidRef) {
				t.Fatalf("expected unsafe ref to be rejected, got %v", err)
			}
		})
	}
}

func TestLayersAdapterContract(t *testing.T) {
	ctx := context.Background()
	for _, factory := range storeFactories() {
		t.Run(factory.name, func(t *testing.T) {
			layers := state.NewLayers(factory.open(t))
			const source = "title/GALE01/local"

			layer, err := layers.LoadLayer(ctx, source)
			if err != nil || layer.Len() != 0 || layer.Name != source {
				t.Fatalf("missing source should load empty, got %v %v", layer, err)
			}

			first := videocfg.NewLayer(source, map[string]any{render.KeyMSAA: 2, render.KeyHudDistance: 3.0})
			if err := layers.SaveLayer(ctx, source, first); err != nil {
				t.Fatalf("save: %v", err)
			}
			second := videocfg.NewLayer(source, map[string]any{render.KeyTelescopeEye: 1})
			if err := layers.SaveLayer(ctx, source, second); err != nil {
				t.Fatalf("save: %v", err)
			}
			if ok, err := layers.LayerExists(ctx, source, render.KeyMSAA); !ok || err != nil {
				t.Fatalf("SaveLayer must keep keys it was not given: %v %v", ok, err)
			}

			if err := layers.DeleteKey(ctx, source, render.KeyMSAA); err != nil {
				t.Fatalf("delete: %v", err)
			}
			if err := layers.DeleteKey(ctx, source, "Settings.Missing"); err != nil {
				t.Fatalf("deleting a missing key is not an error: %v", err)
			}
			if ok, _ := layers.LayerExists(ctx, source, render.KeyMSAA); ok {
				t.Fatalf("deleted key still present")
			}

			loaded, err := layers.LoadLayer(ctx, source)
			if err != nil {
				t.Fatalf("load: %v", err)
			}
			want := map[string]any{render.KeyHudDistance: 3.0, render.KeyTelescopeEye: 1}
			if got := normalized(t, loaded.Values()); !reflect.DeepEqual(got, want) {
				t.Fatalf("layer mismatch: want %v got %v", want, got)
			}

			if _, err := layers.LoadLayer(ctx, "bogus"); !errors.Is(err, state.ErrInvalidRef) {
				t.Fatalf("expected invalid ref error, got %v", err)
			}
		})
	}
}

func TestLayersConcurrentWritersDoNotLoseKeys(t *testing.T) {
	ctx := context.Background()
	for _, factory := range storeFactories() {
		t.Run(factory.name, func(t *testing.T) {
			layers := state.NewLayers(factory.open(t))
			keys := []string{render.KeyMSAA, render.KeyAdapter, render.KeyTelescopeEye}
			if err := layers.SaveLayer(ctx, "global", videocfg.NewLayer("global", map[string]any{render.KeyVSync: true})); err != nil {
				t.Fatalf("seed: %v", err)
			}

			var wg sync.WaitGroup
			errs := make(chan error, len(keys))
			for i, key := range keys {
				wg.Add(1)
				go func() {
					defer wg.Done()
					errs <- layers.SaveLayer(ctx, "global", videocfg.NewLayer("global", map[string]any{key: i + 1}))
				}()
			}
			wg.Wait()
			close(errs)

			for err := range errs {
				if err != nil {
					t.Fatalf("save: %v", err)
				}
			}
			loaded, err := layers.LoadLayer(ctx, "global")
			if err != nil {
				t.Fatalf("load: %v", err)
			}
			if loaded.Len() != len(keys)+1 {
				t.Fatalf("expected %d keys, got %v", len(keys)+1, loaded)
			}
		})
	}
}

package state_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"github.com/goliatone/go-videoconfig/layering"
	"github.com/goliatone/go-videoconfig/pkg/state"
	"github.com/goliatone/go-videoconfig/render"
)

func TestFileStoreWritesSectionedTOML(t *testing.T) {
	root := t.TempDir()
	store, err := state.NewFileStore(root)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	ref := state.Ref{Source: layering.TitleRevision("GALE01", "2")}
	meta, err := store.Save(context.Background(), ref, map[string]any{
		render.KeyMSAA:              2,
		render.KeyHudDistance:       2.5,
		"Video_Hacks.EFBScaledCopy": false,
	}, state.Meta{})
	if err != nil {
		t.Fatalf("save: %v", err)
	}

	path, err := store.Path(ref)
	if err != nil {
		t.Fatalf("path: %v", err)
	}
	if want := filepath.Join(root, "title", "GALE01", "revision", "2.toml"); path != want {
		t.Fatalf("expected %s, got %s", want, path)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var doc map[string]map[string]any
	if err := toml.Unmarshal(raw, &doc); err != nil {
		t.Fatalf("decode %s: %v", raw, err)
	}
	if doc["Settings"]["MSAA"] != int64(2) {
		t.Fatalf("expected [Settings] MSAA = 2, got %v", doc["Settings"])
	}
	if doc["VR"]["HudDistance"] != 2.5 {
		t.Fatalf("expected [VR] HudDistance = 2.5, got %v", doc["VR"])
	}
	if doc["Video_Hacks"]["EFBScaledCopy"] != false {
		t.Fatalf("expected [Video_Hacks] table, got %v", doc)
	}
	if doc["_meta"]["etag"] != meta.ETag {
		t.Fatalf("expected etag in [_meta], got %v", doc["_meta"])
	}

	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	for _, entry := range entries {
		if strings.HasSuffix(entry.Name(), ".tmp") {
			t.Fatalf("temporary file left behind: %s", entry.Name())
		}
	}
}

func TestFileStoreReadsHandWrittenLayers(t *testing.T) {
	root := t.TempDir()
	store, err := state.NewFileStore(root)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	path := filepath.Join(root, "global.toml")
	content := "[Settings]\nMSAA = 1\nWireFrame = true\n\n[VR]\nUnitsPerMetre = 1.25\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	values, meta, ok, err := store.Load(context.Background(), state.Ref{Source: layering.Global()})
	if err != nil || !ok {
		t.Fatalf("load: ok=%v err=%v", ok, err)
	}
	if meta.ETag != "" {
		t.Fatalf("hand written layers carry no etag, got %q", meta.ETag)
	}
	got := normalized(t, values)
	want := map[string]any{render.KeyMSAA: 1, render.KeyWireframe: true, render.KeyUnitsPerMetre: 1.25}
	for key, value := range want {
		if got[key] != value {
			t.Fatalf("%s: expected %v, got %v (%v)", key, value, got[key], got)
		}
	}
}

func TestNewFileStoreRequiresRoot(t *testing.T) {
	if _, err := state.NewFileStore("  "); err == nil {
		t.Fatalf("expected error for empty root")
	}
}

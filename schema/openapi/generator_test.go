package openapi

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"

	videocfg "github.com/goliatone/go-videoconfig"
	"github.com/goliatone/go-videoconfig/render"
)

func TestGeneratorOptions(t *testing.T) {
	doc, err := NewGenerator(
		WithOpenAPIVersion("3.1.0"),
		WithInfo("Video Service", "2.0.0"),
		WithDescription("  render settings  "),
		WithBasePath("api/video/"),
		WithRootComponent("  "),
	).Generate(render.Schema())
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	document := doc.Document.(map[string]any)
	if document["openapi"] != "3.1.0" {
		t.Fatalf("unexpected version %v", document["openapi"])
	}
	info := document["info"].(map[string]any)
	if info["title"] != "Video Service" || info["version"] != "2.0.0" || info["description"] != "render settings" {
		t.Fatalf("unexpected info %v", info)
	}
	paths := document["paths"].(map[string]any)
	if _, ok := paths["/api/video"]; !ok {
		t.Fatalf("expected normalised base path, got %v", keys(paths))
	}
	if _, ok := paths["/api/video/titles/{title}"]; !ok {
		t.Fatalf("expected title path under the base path, got %v", keys(paths))
	}
	schemas := document["components"].(map[string]any)["schemas"].(map[string]any)
	if _, ok := schemas["Settings"]; !ok {
		t.Fatalf("a blank root component keeps the default name, got %v", keys(schemas))
	}
}

func TestGeneratorSectionsFixture(t *testing.T) {
	schema := videocfg.MustSchema(
		videocfg.Option{Key: "Settings.MSAA", Kind: videocfg.KindInt, Default: 0},
		videocfg.Option{
			Key:     "Settings.Mode",
			Kind:    videocfg.KindEnum,
			Default: 0,
			Values:  []string{"Off", "On"},
			Aliases: []string{"Settings.OldMode"},
		},
		videocfg.Option{
			Key:         "VR.HudDistance",
			Kind:        videocfg.KindFloat,
			Default:     1.5,
			Tracked:     true,
			TitleScoped: true,
			Description: "metres",
		},
	)

	doc, err := NewGenerator().Generate(schema)
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	if doc.Format != videocfg.SchemaFormatOpenAPI {
		t.Fatalf("expected format %q, got %q", videocfg.SchemaFormatOpenAPI, doc.Format)
	}
	got, ok := doc.Document.(map[string]any)
	if !ok {
		t.Fatalf("expected map document, got %T", doc.Document)
	}

	fx := loadFixture(t, "document_sections.json")
	assertJSONEqual(t, fx.Expect.Document, got)
}

func TestGeneratorRootComponent(t *testing.T) {
	doc, err := NewGenerator(WithRootComponent("Video Config")).Generate(render.Schema())
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	document := doc.Document.(map[string]any)
	schemas := document["components"].(map[string]any)["schemas"].(map[string]any)

	root, ok := schemas["Video_Config"].(map[string]any)
	if !ok {
		t.Fatalf("expected sanitised root component, got %v", keys(schemas))
	}
	props := root["properties"].(map[string]any)
	for _, section := range []string{"Hardware", "Settings", "Enhancements", "Stereoscopy", "Hacks", "Video", "VR"} {
		ref, _ := props[section].(map[string]any)
		if ref["$ref"] != "#/components/schemas/Video_Config_"+section {
			t.Fatalf("section %s: unexpected ref %v", section, props[section])
		}
	}

	stereo := schemas["Video_Config_Enhancements"].(map[string]any)["properties"].(map[string]any)["StereoMode"].(map[string]any)
	labels, _ := stereo["x-enum-labels"].([]string)
	if len(labels) != 7 || labels[render.StereoOculus] != "Oculus" {
		t.Fatalf("unexpected stereo labels %v", stereo)
	}

	media := document["paths"].(map[string]any)["/settings"].(map[string]any)["put"].(map[string]any)["requestBody"].(map[string]any)["content"].(map[string]any)[mediaTypeJSON].(map[string]any)
	if media["schema"].(map[string]any)["$ref"] != "#/components/schemas/Video_Config" {
		t.Fatalf("request body should reference the root component, got %v", media)
	}
}

func TestGeneratorNil(t *testing.T) {
	doc, err := NewGenerator().Generate(nil)
	if err != nil {
		t.Fatalf("Generate(nil) returned error: %v", err)
	}
	document := doc.Document.(map[string]any)
	schemas := document["components"].(map[string]any)["schemas"].(map[string]any)
	if len(schemas) != 1 {
		t.Fatalf("an empty schema publishes only the root component, got %v", keys(schemas))
	}
	root := schemas["Settings"].(map[string]any)
	if props := root["properties"].(map[string]any); len(props) != 0 {
		t.Fatalf("expected no sections, got %v", props)
	}
}

func TestComponentNames(t *testing.T) {
	cases := map[string]string{
		"Video Config":  "Video_Config",
		"  --  ":        "Schema",
		"3D/Vision":     "_3D_Vision",
		"Settings__VR":  "Settings__VR",
		"Stereo.Mode!!": "Stereo_Mode",
	}
	for hint, want := range cases {
		if got := componentName(hint); got != want {
			t.Errorf("%q: expected %q, got %q", hint, want, got)
		}
	}

	schemas := components{}
	first := schemas.add("VR", map[string]any{})
	second := schemas.add("VR", map[string]any{})
	if first["$ref"] != "#/components/schemas/VR" || second["$ref"] != "#/components/schemas/VR1" {
		t.Fatalf("names must be unique, got %v and %v", first, second)
	}
}

func TestGeneratorConcurrentAccess(t *testing.T) {
	t.Parallel()

	generator := NewGenerator()
	schema := render.Schema()

	const goroutines = 16
	var wg sync.WaitGroup
	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func() {
			defer wg.Done()
			doc, err := generator.Generate(schema)
			if err != nil {
				t.Errorf("Generate returned error: %v", err)
				return
			}
			if doc.Document == nil {
				t.Errorf("expected document payload")
			}
		}()
	}
	wg.Wait()
}

func TestValidateDocumentRejectsIncompleteDocuments(t *testing.T) {
	info := map[string]any{"title": "x", "version": "1"}
	cases := map[string]map[string]any{
		"missing version": {"info": info},
		"missing title":   {"openapi": "3.0.3", "info": map[string]any{"version": "1"}},
		"no paths":        {"openapi": "3.0.3", "info": info},
		"no operations": {"openapi": "3.0.3", "info": info, "paths": map[string]any{
			"/settings": map[string]any{"parameters": []any{}},
		}},
		"no operation id": {"openapi": "3.0.3", "info": info, "paths": map[string]any{
			"/settings": map[string]any{"get": map[string]any{"responses": map[string]any{"200": map[string]any{}}}},
		}},
		"no responses": {"openapi": "3.0.3", "info": info, "paths": map[string]any{
			"/settings": map[string]any{"get": map[string]any{"operationId": "getSettings"}},
		}},
	}
	for name, document := range cases {
		if err := validateDocument(document); err == nil {
			t.Errorf("%s: expected validation error", name)
		}
	}
}

type fixture struct {
	Description string `json:"description"`
	Expect      struct {
		Document map[string]any `json:"document"`
	} `json:"expect"`
}

func loadFixture(t *testing.T, name string) fixture {
	t.Helper()

	path := filepath.Join("testdata", name)
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read fixture %q: %v", path, err)
	}

	var fx fixture
	if err := json.Unmarshal(raw, &fx); err != nil {
		t.Fatalf("unmarshal fixture %q: %v", path, err)
	}
	return fx
}

func assertJSONEqual(t *testing.T, want, got map[string]any) {
	t.Helper()

	wantBytes := mustMarshal(t, want)
	gotBytes := mustMarshal(t, got)

	if !bytes.Equal(wantBytes, gotBytes) {
		t.Fatalf("schema mismatch\nwant: %s\ngot:  %s", wantBytes, gotBytes)
	}
}

func mustMarshal(t *testing.T, value any) []byte {
	t.Helper()

	raw, err := json.Marshal(value)
	if err != nil {
		t.Fatalf("marshal json: %v", err)
	}
	return raw
}

func keys(m map[string]any) []string {
	out := make([]string, 0, len(m))
	for key := range m {
		out = append(out, key)
	}
	return out
}

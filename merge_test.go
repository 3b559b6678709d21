package videocfg

import (
	"encoding/json"
	"os"
	"path/filepath"
	"reflect"
	"slices"
	"testing"
)

type mergeFixture struct {
	Cases []struct {
		Name     string         `json:"name"`
		Base     map[string]any `json:"base"`
		Layer    map[string]any `json:"layer"`
		Defaults map[string]any `json:"defaults"`
		Want     map[string]any `json:"want"`
		Notices  []string       `json:"notices"`
		Ignored  []string       `json:"ignored"`
	} `json:"cases"`
}

func loadMergeFixture(t *testing.T, name string) mergeFixture {
	t.Helper()
	raw, err := os.ReadFile(filepath.Join("testdata", name))
	if err != nil {
		t.Fatalf("read fixture: %v", err)
	}
	var fx mergeFixture
	if err := json.Unmarshal(raw, &fx); err != nil {
		t.Fatalf("decode fixture: %v", err)
	}
	return fx
}

func TestApplyLayerFromFixture(t *testing.T) {
	schema := testSchema(t)
	fx := loadMergeFixture(t, "merge_cases.json")

	for _, tc := range fx.Cases {
		t.Run(tc.Name, func(t *testing.T) {
			base := setOf(t, schema, tc.Base)
			before := base.Clone()
			defaults := NewLayer("defaults", tc.Defaults)

			result := ApplyLayerDetailed(base, NewLayer("title", tc.Layer), defaults)

			want := base.Clone()
			for key, value := range tc.Want {
				if err := want.Set(key, value); err != nil {
					t.Fatalf("fixture want %s: %v", key, err)
				}
			}
			if !result.Set.Equal(want) {
				t.Fatalf("merged set mismatch:\nwant %v\n got %v", want.Map(), result.Set.Map())
			}
			if got := result.Overrides(); !slices.Equal(got, tc.Notices) {
				t.Fatalf("notice keys mismatch: want %v got %v", tc.Notices, got)
			}
			if !slices.Equal(result.Ignored, tc.Ignored) {
				t.Fatalf("ignored keys mismatch: want %v got %v", tc.Ignored, result.Ignored)
			}
			if !base.Equal(before) {
				t.Fatalf("ApplyLayer mutated its base")
			}
		})
	}
}

func TestApplyLayerNoticeCarriesPreviousValue(t *testing.T) {
	schema := testSchema(t)
	base := setOf(t, schema, map[string]any{keyMSAA: 1})

	_, notices := ApplyLayer(base, NewLayer("title", map[string]any{keyMSAA: 2}), Layer{})

	want := []ChangeNotice{{Key: keyMSAA, Layer: "title", Previous: 1, Value: 2}}
	if !reflect.DeepEqual(notices, want) {
		t.Fatalf("notices mismatch:\nwant %#v\n got %#v", want, notices)
	}
	if msg := notices[0].Message(); msg != overrideNote(keyMSAA) {
		t.Fatalf("unexpected message %q", msg)
	}
}

// Three AA modes are available, the title asks for mode 5: the override is
// reported and merged as-is, and only validation brings it back to 0.
func TestApplyLayerThenValidateAntialiasingScenario(t *testing.T) {
	schema := testSchema(t)
	caps := CapabilityDescriptor{AAModes: []int{1, 2, 4}, SupportsStereoscopy: true}
	base := NewOptionSet(schema)

	merged, notices := ApplyLayer(base, NewLayer("title", map[string]any{keyMSAA: 5}), schema.DefaultLayer("compiled"))

	if len(notices) != 1 || notices[0].Key != keyMSAA || notices[0].Value != 5 {
		t.Fatalf("expected one MSAA notice, got %#v", notices)
	}
	if merged.Int(keyMSAA) != 5 {
		t.Fatalf("unvalidated merge should hold 5, got %d", merged.Int(keyMSAA))
	}

	NewValidator(testRules()...).Validate(merged, caps)
	if merged.Int(keyMSAA) != 0 {
		t.Fatalf("validation should clamp MSAA to 0, got %d", merged.Int(keyMSAA))
	}
	if len(notices) != 1 {
		t.Fatalf("validation must not retract the notice")
	}
}

func TestApplyLayerDiffRoundTrip(t *testing.T) {
	schema := testSchema(t)
	defaults := NewLayer("defaults", map[string]any{keyMSAA: 1, keyUnits: 1.0})
	base := setOf(t, schema, map[string]any{keyMSAA: 1})
	baseline := NewBaseline(base)

	layer := NewLayer("title", map[string]any{
		keyMSAA:      1,
		keyUnits:     2.0,
		keyWireframe: true,
		keyHud:       1.5,
	})
	merged, _ := ApplyLayer(base, layer, defaults)

	want := []string{keyWireframe, keyUnits}
	if got := Diff(merged, baseline); !slices.Equal(got, want) {
		t.Fatalf("diff mismatch: want %v got %v", want, got)
	}
}

func TestDefaultViewPrefersRevisionDefaults(t *testing.T) {
	schema := testSchema(t)
	revision := NewLayer("revision", map[string]any{keyUnits: 3.0})
	defaults := NewLayer("default", map[string]any{keyUnits: 2.0, keyHud: 4.0, "VR.Bogus": 1})

	view := DefaultView(schema, []string{keyUnits, keyHud, keyDisable3D}, revision, defaults)

	if view.Float(keyUnits) != 3.0 {
		t.Fatalf("revision default should win, got %v", view.Float(keyUnits))
	}
	if view.Float(keyHud) != 4.0 {
		t.Fatalf("title default should fill the gap, got %v", view.Float(keyHud))
	}
	if view.Bool(keyDisable3D) {
		t.Fatalf("keys without layer defaults take the compiled default")
	}
}

func TestDefaultViewLimitsToKeys(t *testing.T) {
	schema := testSchema(t)
	defaults := NewLayer("default", map[string]any{keyMSAA: 2, keyUnits: 2.0})

	view := DefaultView(schema, []string{keyUnits}, defaults)
	if view.Int(keyMSAA) != 0 {
		t.Fatalf("keys outside the list keep compiled defaults, got %d", view.Int(keyMSAA))
	}
	if all := DefaultView(schema, nil, defaults); all.Int(keyMSAA) != 2 {
		t.Fatalf("an empty key list covers every key, got %d", all.Int(keyMSAA))
	}
}

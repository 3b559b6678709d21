package render_test

import (
	"context"
	"testing"
	"time"

	videocfg "github.com/goliatone/go-videoconfig"
	"github.com/goliatone/go-videoconfig/layering"
	"github.com/goliatone/go-videoconfig/pkg/state"
	"github.com/goliatone/go-videoconfig/render"
)

func TestForceIntegral(t *testing.T) {
	cases := []struct {
		name     string
		current  any
		override any
		want     any
	}{
		{name: "auto rounds to auto integral", current: render.EFBScaleAuto, override: render.EFBScaleForceIntegral, want: render.EFBScaleAutoIntegral},
		{name: "1.5x rounds down", current: render.EFBScale1_5x, override: render.EFBScaleForceIntegral, want: render.EFBScale1x},
		{name: "2.5x rounds down", current: render.EFBScale2_5x, override: render.EFBScaleForceIntegral, want: render.EFBScale2x},
		{name: "integral scale kept", current: render.EFBScale3x, override: render.EFBScaleForceIntegral, want: render.EFBScale3x},
		{name: "plain override replaces", current: render.EFBScale1_5x, override: render.EFBScale4x, want: render.EFBScale4x},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := render.ForceIntegral(tc.current, tc.override); got != tc.want {
				t.Fatalf("expected %v, got %v", tc.want, got)
			}
		})
	}
}

func TestSchemaAliases(t *testing.T) {
	schema := render.Schema()
	cases := map[string]string{
		"Video_Settings.MSAA":           render.KeyMSAA,
		"Video_Enhancements.StereoMode": render.KeyStereoMode,
		"Settings.WireFrame":            render.KeyWireframe,
		"Video_Settings.WireFrame":      "",
		"Video_Settings.Wireframe":      render.KeyWireframe,
		"VR.TelescopeFOV":               render.KeyTelescopeMaxFOV,
		"Video_VR.HudDistance":          "",
		"Video_Video.ProjectionHack":    "",
	}
	for alias, want := range cases {
		got, ok := schema.Canonical(alias)
		if want == "" {
			if ok {
				t.Errorf("%s should not resolve, got %s", alias, got)
			}
			continue
		}
		if !ok || got != want {
			t.Errorf("%s: expected %s, got %q (%v)", alias, want, got, ok)
		}
	}
}

func TestSchemaTitleScopedKeys(t *testing.T) {
	scoped := map[string]bool{}
	for _, key := range render.Schema().TitleScopedKeys() {
		scoped[key] = true
	}
	for _, key := range []string{render.KeyUnitsPerMetre, render.KeyScreenPitch, render.KeyDisable3D, render.KeyHudOnTop} {
		if !scoped[key] {
			t.Errorf("%s should be reset before each title", key)
		}
	}
	for _, key := range []string{render.KeyTelescopeEye, render.KeyTelescopeMaxFOV, render.KeyMSAA} {
		if scoped[key] {
			t.Errorf("%s should survive title changes", key)
		}
	}
}

func TestValidatorRules(t *testing.T) {
	desktop := videocfg.CapabilityDescriptor{
		Adapters:            []string{"Primary"},
		AAModes:             []int{1, 2},
		SupportsStereoscopy: true,
		MaxAnisotropy:       4,
	}
	cases := []struct {
		name  string
		caps  videocfg.CapabilityDescriptor
		apply map[string]any
		want  map[string]any
	}{
		{
			name:  "out of range indexes reset",
			caps:  desktop,
			apply: map[string]any{render.KeyAdapter: 3, render.KeyMSAA: 2},
			want:  map[string]any{render.KeyAdapter: 0, render.KeyMSAA: 0},
		},
		{
			name:  "anisotropy clamped to the reported limit",
			caps:  desktop,
			apply: map[string]any{render.KeyMaxAnisotropy: 9},
			want:  map[string]any{render.KeyMaxAnisotropy: 4},
		},
		{
			name:  "rift forces oculus stereo",
			caps:  videocfg.CapabilityDescriptor{SupportsStereoscopy: true, Display: videocfg.DisplayRift},
			apply: map[string]any{render.KeyStereoMode: render.StereoAnaglyph},
			want:  map[string]any{render.KeyStereoMode: render.StereoOculus},
		},
		{
			name:  "vr920 forces its own mode",
			caps:  videocfg.CapabilityDescriptor{SupportsStereoscopy: true, Display: videocfg.DisplayVR920},
			apply: map[string]any{render.KeyStereoMode: render.StereoOff},
			want:  map[string]any{render.KeyStereoMode: render.StereoVR920},
		},
		{
			name:  "device mode dropped without the device",
			caps:  desktop,
			apply: map[string]any{render.KeyStereoMode: render.StereoOculus},
			want:  map[string]any{render.KeyStereoMode: render.StereoOff},
		},
		{
			name:  "stereo off without backend support",
			caps:  videocfg.CapabilityDescriptor{Adapters: []string{"Primary"}},
			apply: map[string]any{render.KeyStereoMode: render.StereoSideBySide},
			want:  map[string]any{render.KeyStereoMode: render.StereoOff},
		},
		{
			name:  "supported stereo mode kept",
			caps:  desktop,
			apply: map[string]any{render.KeyStereoMode: render.StereoTopAndBottom},
			want:  map[string]any{render.KeyStereoMode: render.StereoTopAndBottom},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			set := videocfg.NewOptionSet(render.Schema())
			for key, value := range tc.apply {
				if err := set.Set(key, value); err != nil {
					t.Fatalf("set %s: %v", key, err)
				}
			}
			render.Validator(nil).Validate(set, tc.caps)
			for key, want := range tc.want {
				if got, _ := set.Get(key); got != want {
					t.Fatalf("%s: expected %v, got %v", key, want, got)
				}
			}
		})
	}
}

func TestPublishRulesDisableXFB(t *testing.T) {
	cases := []struct {
		name string
		env  videocfg.PublishEnv
		want bool
	}{
		{name: "desktop keeps xfb", env: videocfg.PublishEnv{}, want: true},
		{name: "hmd disables xfb", env: videocfg.PublishEnv{Capabilities: videocfg.CapabilityDescriptor{Display: videocfg.DisplayRift}}, want: false},
		{name: "host switch disables xfb", env: videocfg.PublishEnv{AlternateFrameBufferDisabled: true}, want: false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			edit := videocfg.NewOptionSet(render.Schema())
			_ = edit.Set(render.KeyUseXFB, true)
			publisher := videocfg.NewPublisher(
				videocfg.WithPublishRuleSet(render.PublishRules()...),
				videocfg.WithPublishEnvironment(func() videocfg.PublishEnv { return tc.env }),
			)
			active := publisher.Publish(edit)
			if active.Bool(render.KeyUseXFB) != tc.want {
				t.Fatalf("expected UseXFB %v", tc.want)
			}
			if !edit.Bool(render.KeyUseXFB) {
				t.Fatalf("the edit buffer must keep its value")
			}
		})
	}
}

func TestManagerSessionOverMemoryStore(t *testing.T) {
	ctx := context.Background()
	store := state.NewMemoryStore()
	seedLayer(t, store, layering.Global(), map[string]any{
		"Video_Settings.UseXFB": true,
		render.KeyMSAA:          1,
		render.KeyHudDistance:   1.75,
	})
	seedLayer(t, store, layering.TitleDefault("RMCE01"), map[string]any{
		"Video_Settings.EFBScale": render.EFBScaleForceIntegral,
		render.KeyUnitsPerMetre:   2.5,
	})

	var notices []string
	m, err := render.NewManager(
		videocfg.WithStore(state.NewLayers(store)),
		videocfg.WithCapabilities(videocfg.CapabilityDescriptor{
			Adapters:            []string{"Primary"},
			AAModes:             []int{1, 2, 4},
			SupportsStereoscopy: true,
			Display:             videocfg.DisplayRift,
		}),
		videocfg.WithNotifier(videocfg.NotifierFunc(func(message string, _ time.Duration) {
			notices = append(notices, message)
		})),
	)
	if err != nil {
		t.Fatalf("manager: %v", err)
	}
	if err := m.LoadGlobal(ctx); err != nil {
		t.Fatalf("load global: %v", err)
	}
	if got, _ := m.Get(render.KeyStereoMode); got != render.StereoOculus {
		t.Fatalf("rift should force oculus stereo, got %v", got)
	}

	if _, err := m.ApplyTitle(ctx, "RMCE01", ""); err != nil {
		t.Fatalf("apply title: %v", err)
	}
	if got, _ := m.Get(render.KeyEFBScale); got != render.EFBScale1x {
		t.Fatalf("force integral should keep 1x, got %v", got)
	}
	if got, _ := m.Get(render.KeyUnitsPerMetre); got != 2.5 {
		t.Fatalf("expected title units 2.5, got %v", got)
	}
	if len(notices) == 0 {
		t.Fatalf("expected override notices")
	}

	active := m.Publish()
	if active.Bool(render.KeyUseXFB) {
		t.Fatalf("xfb must be off on a head mounted display")
	}
	if !m.Snapshot().Bool(render.KeyUseXFB) {
		t.Fatalf("edit buffer should keep UseXFB")
	}

	if err := m.Set(render.KeyHudDistance, 3.0); err != nil {
		t.Fatalf("set: %v", err)
	}
	if _, err := m.SaveTitle(ctx); err != nil {
		t.Fatalf("save title: %v", err)
	}
	values, _, ok, err := store.Load(ctx, state.Ref{Source: layering.TitleLocal("RMCE01")})
	if err != nil || !ok {
		t.Fatalf("title layer not written: %v", err)
	}
	if values[render.KeyHudDistance] != 3.0 {
		t.Fatalf("expected saved HudDistance 3.0, got %v", values)
	}
}

func seedLayer(t *testing.T, store state.Store, source layering.Source, values map[string]any) {
	t.Helper()
	if _, err := store.Save(context.Background(), state.Ref{Source: source}, values, state.Meta{}); err != nil {
		t.Fatalf("seed %s: %v", source, err)
	}
}

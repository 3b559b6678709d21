package videocfg

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"
)

const (
	keyAdapter    = "Hardware.Adapter"
	keyMSAA       = "Settings.MSAA"
	keyEFBScale   = "Settings.EFBScale"
	keyWireframe  = "Settings.Wireframe"
	keyUseXFB     = "Settings.UseXFB"
	keyShaderDbg  = "Settings.EnableShaderDebugging"
	keyStereo     = "Enhancements.StereoMode"
	keyAniso      = "Enhancements.MaxAnisotropy"
	keyShader     = "Enhancements.PostProcessingShader"
	keyEFBAccess  = "Hacks.EFBAccessEnable"
	keyUnits      = "VR.UnitsPerMetre"
	keyHud        = "VR.HudDistance"
	keyDisable3D  = "VR.Disable3D"
	keyTelescope  = "VR.TelescopeEye"
	stereoOff     = 0
	stereoOculus  = 5
	stereoVR920   = 6
	efbAuto       = 0
	efbAutoInt    = 1
	efb1x         = 2
	efb1_5x       = 3
	efbIntegral   = -1
	efbAbsent     = -9000
	shaderWarning = "Warning: shader debugging is enabled"
)

func roundToIntegral(current, override any) any {
	if override != efbIntegral {
		return override
	}
	switch current {
	case efbAuto:
		return efbAutoInt
	case efb1_5x:
		return efb1x
	}
	return current
}

func testSchema(t testing.TB) *Schema {
	t.Helper()
	schema, err := NewSchema(
		Option{Key: keyAdapter, Kind: KindInt, Default: 0},
		Option{Key: keyMSAA, Kind: KindInt, Default: 0},
		Option{
			Key:      keyEFBScale,
			Kind:     KindEnum,
			Default:  efb1x,
			Values:   []string{"Auto", "AutoIntegral", "1x", "1.5x", "2x"},
			Sentinel: efbAbsent,
			Resolve:  roundToIntegral,
		},
		Option{Key: keyWireframe, Kind: KindBool, Default: false, Aliases: []string{"Settings.WireFrame"}},
		Option{Key: keyUseXFB, Kind: KindBool, Default: false},
		Option{Key: keyShaderDbg, Kind: KindBool, Default: false, Warning: shaderWarning},
		Option{
			Key:     keyStereo,
			Kind:    KindEnum,
			Default: stereoOff,
			Values:  []string{"Off", "SideBySide", "TopAndBottom", "Anaglyph", "3DVision", "Oculus", "VR920"},
		},
		Option{Key: keyAniso, Kind: KindInt, Default: 0},
		Option{Key: keyShader, Kind: KindString, Default: ""},
		Option{Key: keyEFBAccess, Kind: KindBool, Default: true},
		Option{Key: keyUnits, Kind: KindFloat, Default: 1.0, Tracked: true, TitleScoped: true},
		Option{Key: keyHud, Kind: KindFloat, Default: 1.5, Tracked: true, TitleScoped: true},
		Option{Key: keyDisable3D, Kind: KindBool, Default: false, Tracked: true, TitleScoped: true},
		Option{Key: keyTelescope, Kind: KindInt, Default: 0, Tracked: true},
	)
	if err != nil {
		t.Fatalf("build schema: %v", err)
	}
	return schema
}

func testRules() []ValidationRule {
	return []ValidationRule{
		ClampIndex(keyAdapter, func(c CapabilityDescriptor) int { return len(c.Adapters) }),
		ClampIndex(keyMSAA, func(c CapabilityDescriptor) int { return len(c.AAModes) }),
		ClampRange(keyAniso, 0, func(c CapabilityDescriptor) int { return c.MaxAnisotropy }),
		StereoModeRule(keyStereo, stereoOff,
			StereoForce{Display: DisplayRift, Mode: stereoOculus},
			StereoForce{Display: DisplayVR920, Mode: stereoVR920},
		),
		RequireStereoscopy(keyStereo, stereoOff),
	}
}

func desktopCaps() CapabilityDescriptor {
	return CapabilityDescriptor{
		Adapters:            []string{"primary", "secondary"},
		AAModes:             []int{1, 2, 4},
		SupportsStereoscopy: true,
		MaxAnisotropy:       4,
	}
}

func setOf(t testing.TB, schema *Schema, values map[string]any) *OptionSet {
	t.Helper()
	set := NewOptionSet(schema)
	for key, value := range values {
		if err := set.Set(key, value); err != nil {
			t.Fatalf("set %s=%v: %v", key, value, err)
		}
	}
	return set
}

// memoryStore is a LayerStore kept in maps, with injectable failures.
type memoryStore struct {
	mu      sync.Mutex
	layers  map[string]map[string]any
	loadErr map[string]error
	saveErr error
	saves   int
	deletes []string
}

func newMemoryStore(seed map[string]map[string]any) *memoryStore {
	store := &memoryStore{layers: map[string]map[string]any{}, loadErr: map[string]error{}}
	for source, values := range seed {
		store.layers[source] = map[string]any{}
		for key, value := range values {
			store.layers[source][key] = value
		}
	}
	return store
}

func (s *memoryStore) LoadLayer(_ context.Context, source string) (Layer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.loadErr[source]; err != nil {
		return Layer{}, err
	}
	return NewLayer(source, s.layers[source]), nil
}

func (s *memoryStore) SaveLayer(_ context.Context, source string, layer Layer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	s.saves++
	if s.layers[source] == nil {
		s.layers[source] = map[string]any{}
	}
	for key, value := range layer.Values() {
		s.layers[source][key] = value
	}
	return nil
}

func (s *memoryStore) DeleteKey(_ context.Context, source, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	s.deletes = append(s.deletes, source+"#"+key)
	delete(s.layers[source], key)
	return nil
}

func (s *memoryStore) LayerExists(_ context.Context, source, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.layers[source][key]
	return ok, nil
}

func (s *memoryStore) layer(source string) map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := map[string]any{}
	for key, value := range s.layers[source] {
		out[key] = value
	}
	return out
}

type notice struct {
	message  string
	duration time.Duration
}

type notifierSpy struct {
	mu      sync.Mutex
	notices []notice
}

func (n *notifierSpy) Notify(message string, duration time.Duration) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notices = append(n.notices, notice{message: message, duration: duration})
}

func (n *notifierSpy) messages() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, len(n.notices))
	for i, entry := range n.notices {
		out[i] = entry.message
	}
	return out
}

func (n *notifierSpy) durationOf(message string) (time.Duration, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, entry := range n.notices {
		if entry.message == message {
			return entry.duration, true
		}
	}
	return 0, false
}

var errStoreDown = errors.New("store unavailable")

func overrideNote(key string) string {
	return fmt.Sprintf("Note: %s is overridden by title settings.", key)
}

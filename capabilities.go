package videocfg

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/goliatone/go-videoconfig/internal/hydrate"
)

// DisplayClass identifies the kind of attached head-mounted display.
type DisplayClass int

const (
	DisplayNone DisplayClass = iota
	DisplayRift
	DisplayVR920
)

func (d DisplayClass) String() string {
	switch d {
	case DisplayRift:
		return "rift"
	case DisplayVR920:
		return "vr920"
	default:
		return "none"
	}
}

// HeadMounted reports whether d is a head-mounted display.
func (d DisplayClass) HeadMounted() bool {
	return d != DisplayNone
}

// ParseDisplayClass converts a display name. Empty input means DisplayNone.
func ParseDisplayClass(value string) (DisplayClass, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "none":
		return DisplayNone, nil
	case "rift", "oculus":
		return DisplayRift, nil
	case "vr920":
		return DisplayVR920, nil
	default:
		return DisplayNone, fmt.Errorf("videocfg: unknown display class %q", value)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (d DisplayClass) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *DisplayClass) UnmarshalText(text []byte) error {
	parsed, err := ParseDisplayClass(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// CapabilityDescriptor is the rendering backend's report of what it supports.
type CapabilityDescriptor struct {
	Adapters            []string     `json:"adapters"`
	AAModes             []int        `json:"aa_modes"`
	SupportsStereoscopy bool         `json:"supports_stereoscopy"`
	Display             DisplayClass `json:"display"`
	// MaxAnisotropy is the highest anisotropic filtering level; zero means
	// the backend did not report a limit.
	MaxAnisotropy int `json:"max_anisotropy"`
}

// Clone returns a copy that shares no slices with c.
func (c CapabilityDescriptor) Clone() CapabilityDescriptor {
	c.Adapters = slices.Clone(c.Adapters)
	c.AAModes = slices.Clone(c.AAModes)
	return c
}

// Binding returns the view of c that rule expressions see under "caps".
func (c CapabilityDescriptor) Binding() map[string]any {
	adapters := make([]any, len(c.Adapters))
	for i, name := range c.Adapters {
		adapters[i] = name
	}
	modes := make([]any, len(c.AAModes))
	for i, mode := range c.AAModes {
		modes[i] = mode
	}
	return map[string]any{
		"adapters":       adapters,
		"adapter_count":  len(c.Adapters),
		"aa_modes":       modes,
		"aa_mode_count":  len(c.AAModes),
		"stereoscopy":    c.SupportsStereoscopy,
		"display":        c.Display.String(),
		"head_mounted":   c.Display.HeadMounted(),
		"max_anisotropy": c.MaxAnisotropy,
	}
}

// CapabilityProvider queries the rendering backend.
type CapabilityProvider interface {
	Capabilities(ctx context.Context) (CapabilityDescriptor, error)
}

// CapabilityProviderFunc adapts a function to CapabilityProvider.
type CapabilityProviderFunc func(ctx context.Context) (CapabilityDescriptor, error)

// Capabilities implements CapabilityProvider.
func (f CapabilityProviderFunc) Capabilities(ctx context.Context) (CapabilityDescriptor, error) {
	return f(ctx)
}

// StaticCapabilities returns a provider that always reports caps.
func StaticCapabilities(caps CapabilityDescriptor) CapabilityProvider {
	caps = caps.Clone()
	return CapabilityProviderFunc(func(context.Context) (CapabilityDescriptor, error) {
		return caps.Clone(), nil
	})
}

var capabilityKeyAliases = map[string]string{
	"adapterNames":        "adapters",
	"aaModes":             "aa_modes",
	"msaa_modes":          "aa_modes",
	"supportsStereo":      "supports_stereoscopy",
	"stereoscopy":         "supports_stereoscopy",
	"supportsStereoscopy": "supports_stereoscopy",
	"hmd":                 "display",
	"maxAnisotropy":       "max_anisotropy",
}

var capabilityDecoder = hydrate.NewDecoder(
	hydrate.Aliases[CapabilityDescriptor](capabilityKeyAliases),
	hydrate.Finish(sanitizeCapabilities),
)

// DecodeCapabilities converts a loosely typed capability report (for example
// a JSON document written by a backend probe) into a descriptor. Camel-case
// and legacy key spellings are accepted.
func DecodeCapabilities(source string, payload map[string]any) (CapabilityDescriptor, error) {
	return capabilityDecoder.Decode(hydrate.Origin{Source: source, Kind: "capability report"}, payload)
}

// ParseCapabilityReport decodes a JSON capability report.
func ParseCapabilityReport(source string, raw []byte) (CapabilityDescriptor, error) {
	return capabilityDecoder.DecodeJSON(hydrate.Origin{Source: source, Kind: "capability report"}, raw)
}

func sanitizeCapabilities(_ hydrate.Origin, caps *CapabilityDescriptor) error {
	if caps.MaxAnisotropy < 0 {
		caps.MaxAnisotropy = 0
	}
	caps.AAModes = slices.DeleteFunc(caps.AAModes, func(mode int) bool { return mode <= 0 })
	return nil
}

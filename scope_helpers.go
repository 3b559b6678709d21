package videocfg

import "github.com/goliatone/go-videoconfig/layering"

const (
	// Priorities for the persisted layer levels. Higher numbers win.
	ScopePriorityCompiled      = 0
	ScopePriorityGlobal        = 100
	ScopePriorityTitleDefault  = 200
	ScopePriorityTitleRevision = 300
	ScopePriorityTitleLocal    = 400
)

// ScopeFor returns the canonical scope of a persisted source.
func ScopeFor(source layering.Source) Scope {
	switch source.Level {
	case layering.LevelGlobal:
		return NewScope("global", ScopePriorityGlobal, WithScopeLabel("Global Settings"))
	case layering.LevelTitleDefault:
		return NewScope("title-default", ScopePriorityTitleDefault,
			WithScopeLabel("Title Defaults"),
			WithScopeMetadata(map[string]any{"title": source.Title}))
	case layering.LevelTitleRevision:
		return NewScope("title-revision", ScopePriorityTitleRevision,
			WithScopeLabel("Title Revision Defaults"),
			WithScopeMetadata(map[string]any{"title": source.Title, "revision": source.Revision}))
	case layering.LevelTitleLocal:
		return NewScope("title-local", ScopePriorityTitleLocal,
			WithScopeLabel("Title Overrides"),
			WithScopeMetadata(map[string]any{"title": source.Title}))
	default:
		return NewScope(source.Level.String(), ScopePriorityCompiled)
	}
}

// CompiledScope is the scope of the schema's compiled defaults.
func CompiledScope() Scope {
	return NewScope("compiled", ScopePriorityCompiled, WithScopeLabel("Compiled Defaults"))
}

// Scoped pairs layer with the canonical scope of source.
func Scoped(source layering.Source, layer Layer) ScopedLayer {
	return ScopedLayer{Scope: ScopeFor(source), Layer: layer, Source: source}
}

// TitleDefaultsStack stacks a title's revision and default layers. An empty
// revision contributes nothing.
func TitleDefaultsStack(title, revision string, defaults, revisionDefaults Layer) (*Stack, error) {
	layers := []ScopedLayer{Scoped(layering.TitleDefault(title), defaults)}
	if revision != "" {
		layers = append(layers, Scoped(layering.TitleRevision(title, revision), revisionDefaults))
	}
	return NewStack(layers...)
}

package layering

import (
	"fmt"
	"slices"
	"strings"
)

// Level identifies the precedence of a persisted layer. Higher levels override
// lower levels when layering.
type Level int

const (
	// LevelUnknown guards against misconfiguration so call sites can detect
	// missing metadata.
	LevelUnknown Level = iota
	// LevelGlobal is the user's global settings layer (weakest).
	LevelGlobal
	// LevelTitleDefault is the per-title default layer shipped with the
	// application.
	LevelTitleDefault
	// LevelTitleRevision is a revision-specific default layer for a title. It
	// takes priority over LevelTitleDefault.
	LevelTitleRevision
	// LevelTitleLocal holds the user's own per-title overrides (strongest).
	LevelTitleLocal
)

func (l Level) String() string {
	switch l {
	case LevelGlobal:
		return "global"
	case LevelTitleDefault:
		return "title-default"
	case LevelTitleRevision:
		return "title-revision"
	case LevelTitleLocal:
		return "title-local"
	default:
		return "unknown"
	}
}

// ParseLevel converts a string representation into the corresponding Level.
// Returns LevelUnknown for unrecognised values.
func ParseLevel(value string) Level {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "global":
		return LevelGlobal
	case "title-default", "default":
		return LevelTitleDefault
	case "title-revision", "revision":
		return LevelTitleRevision
	case "title-local", "local":
		return LevelTitleLocal
	default:
		return LevelUnknown
	}
}

// Source names one persisted layer.
type Source struct {
	Level    Level
	Title    string // title identifier for title levels
	Revision string // revision identifier when Level == LevelTitleRevision
}

// Global returns the source of the global settings layer.
func Global() Source {
	return Source{Level: LevelGlobal}
}

// TitleDefault returns the shipped default layer source for title.
func TitleDefault(title string) Source {
	return Source{Level: LevelTitleDefault, Title: title}
}

// TitleRevision returns the revision-specific default layer source for title.
func TitleRevision(title, revision string) Source {
	return Source{Level: LevelTitleRevision, Title: title, Revision: revision}
}

// TitleLocal returns the user's override layer source for title.
func TitleLocal(title string) Source {
	return Source{Level: LevelTitleLocal, Title: title}
}

// Identifier returns a stable slug stores use as a deterministic key
// (e.g., "title/GALE01/local").
func (s Source) Identifier() string {
	switch s.Level {
	case LevelGlobal:
		return "global"
	case LevelTitleDefault:
		return fmt.Sprintf("title/%s/default", s.Title)
	case LevelTitleRevision:
		return fmt.Sprintf("title/%s/revision/%s", s.Title, s.Revision)
	case LevelTitleLocal:
		return fmt.Sprintf("title/%s/local", s.Title)
	default:
		return fmt.Sprintf("unknown/%s", s.Title)
	}
}

// Valid reports whether the source carries the identifiers its level needs.
func (s Source) Valid() bool {
	switch s.Level {
	case LevelGlobal:
		return true
	case LevelTitleDefault, LevelTitleLocal:
		return s.Title != ""
	case LevelTitleRevision:
		return s.Title != "" && s.Revision != ""
	default:
		return false
	}
}

// ParseSource reverses Identifier.
func ParseSource(id string) (Source, error) {
	parts := strings.Split(strings.Trim(id, "/"), "/")
	switch {
	case len(parts) == 1 && parts[0] == "global":
		return Global(), nil
	case len(parts) == 3 && parts[0] == "title" && parts[2] == "default":
		return TitleDefault(parts[1]), nil
	case len(parts) == 3 && parts[0] == "title" && parts[2] == "local":
		return TitleLocal(parts[1]), nil
	case len(parts) == 4 && parts[0] == "title" && parts[2] == "revision":
		return TitleRevision(parts[1], parts[3]), nil
	default:
		return Source{}, fmt.Errorf("layering: unrecognised source identifier %q", id)
	}
}

// Chain describes the ordered layering sequence from strongest to weakest.
type Chain struct {
	ordered []Source
}

// NewChain constructs a chain and deduplicates sources using their
// Identifier. Invalid sources are dropped. The resulting order places stronger
// levels before weaker ones while keeping relative ordering for peers.
func NewChain(sources ...Source) Chain {
	filtered := make([]Source, 0, len(sources))
	seen := map[string]struct{}{}

	for _, source := range sources {
		if !source.Valid() {
			continue
		}
		id := source.Identifier()
		if _, exists := seen[id]; exists {
			continue
		}
		seen[id] = struct{}{}
		filtered = append(filtered, source)
	}

	slices.SortStableFunc(filtered, func(a, b Source) int {
		switch {
		case a.Level == b.Level:
			return 0
		case a.Level > b.Level:
			return -1
		default:
			return 1
		}
	})

	return Chain{ordered: filtered}
}

// TitleChain returns the sources a title session reads. An empty revision
// leaves the revision layer out; an empty title leaves only Global.
func TitleChain(title, revision string) Chain {
	return NewChain(Global(), TitleDefault(title), TitleRevision(title, revision), TitleLocal(title))
}

// Ordered returns the layering sequence from strongest (index 0) to weakest.
func (c Chain) Ordered() []Source {
	out := make([]Source, len(c.ordered))
	copy(out, c.ordered)
	return out
}

// Strongest returns the first source in the chain (zero source if empty).
func (c Chain) Strongest() Source {
	if len(c.ordered) == 0 {
		return Source{}
	}
	return c.ordered[0]
}

// Weakest returns the final source in the chain (zero source if empty).
func (c Chain) Weakest() Source {
	if len(c.ordered) == 0 {
		return Source{}
	}
	return c.ordered[len(c.ordered)-1]
}

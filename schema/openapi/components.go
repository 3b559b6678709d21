package openapi

import (
	"strconv"
	"strings"
	"unicode"
)

const componentPrefix = "#/components/schemas/"

// components collects the schemas published under components.schemas.
// Names are sanitised and made unique.
type components map[string]map[string]any

// add stores schema under a name derived from hint and returns a $ref
// object pointing at it.
func (c components) add(hint string, schema map[string]any) map[string]any {
	base := componentName(hint)
	name := base
	for n := 1; c[name] != nil; n++ {
		name = base + strconv.Itoa(n)
	}
	c[name] = schema
	return map[string]any{"$ref": componentPrefix + name}
}

func (c components) document() map[string]any {
	out := make(map[string]any, len(c))
	for name, schema := range c {
		out[name] = schema
	}
	return out
}

// componentName keeps letters, digits and underscores, collapsing
// everything else into single underscores.
func componentName(hint string) string {
	var b strings.Builder
	pending := false
	for _, r := range hint {
		if r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r) {
			if pending && b.Len() > 0 {
				b.WriteByte('_')
			}
			pending = false
			b.WriteRune(r)
			continue
		}
		pending = true
	}
	name := strings.Trim(b.String(), "_")
	switch {
	case name == "":
		return "Schema"
	case unicode.IsDigit(rune(name[0])):
		return "_" + name
	default:
		return name
	}
}

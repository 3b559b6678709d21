package openapi

import (
	videocfg "github.com/goliatone/go-videoconfig"
)

type generator struct {
	cfg config
}

// NewGenerator returns a SchemaGenerator describing the settings API as an
// OpenAPI 3 document. Every option section becomes a component.
func NewGenerator(opts ...Option) videocfg.SchemaGenerator {
	cfg := defaultConfig()
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return generator{cfg: cfg}
}

func (g generator) Generate(schema *videocfg.Schema) (videocfg.SchemaDocument, error) {
	document, err := buildDocument(g.cfg, schemaTree(schema))
	if err != nil {
		return videocfg.SchemaDocument{}, err
	}
	return videocfg.SchemaDocument{Format: videocfg.SchemaFormatOpenAPI, Document: document}, nil
}

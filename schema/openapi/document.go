package openapi

import (
	"errors"
	"fmt"
	"sort"
)

// buildDocument renders root as three operations on the settings API:
// reading the effective settings, replacing the global layer and patching
// a title layer. All of them share the root component.
func buildDocument(cfg config, root *schemaNode) (map[string]any, error) {
	schemas := components{}
	ref := schemas.add(cfg.rootComponent, objectSchema(schemas, root, componentName(cfg.rootComponent)))

	info := map[string]any{"title": cfg.title, "version": cfg.version}
	if cfg.description != "" {
		info["description"] = cfg.description
	}

	body := func(description string) map[string]any {
		return map[string]any{
			"description": description,
			"content":     map[string]any{mediaTypeJSON: map[string]any{"schema": ref}},
		}
	}

	paths := map[string]any{
		cfg.basePath: map[string]any{
			"get": map[string]any{
				"operationId": "getSettings",
				"summary":     "Effective settings after every layer and validation",
				"responses":   map[string]any{"200": body("Effective settings")},
			},
			"put": map[string]any{
				"operationId": "putGlobalSettings",
				"summary":     "Replace the global layer",
				"requestBody": withRequired(body("Global layer values")),
				"responses":   map[string]any{"204": map[string]any{"description": "Global layer stored"}},
			},
		},
		cfg.basePath + "/titles/{title}": map[string]any{
			"parameters": []any{map[string]any{
				"name":     "title",
				"in":       "path",
				"required": true,
				"schema":   map[string]any{"type": "string"},
			}},
			"patch": map[string]any{
				"operationId": "patchTitleSettings",
				"summary":     "Merge values into the title local layer",
				"requestBody": withRequired(body("Sparse title layer values")),
				"responses":   map[string]any{"204": map[string]any{"description": "Title layer stored"}},
			},
		},
	}

	document := map[string]any{
		"openapi":    cfg.openapi,
		"info":       info,
		"paths":      paths,
		"components": map[string]any{"schemas": schemas.document()},
	}
	if err := validateDocument(document); err != nil {
		return nil, err
	}
	return document, nil
}

func withRequired(body map[string]any) map[string]any {
	body["required"] = true
	return body
}

// objectSchema renders node; nested objects (the sections) become
// components named after their parent.
func objectSchema(schemas components, node *schemaNode, name string) map[string]any {
	out := node.baseMap()
	if node.Type != "object" {
		return out
	}
	props := make(map[string]any, len(node.Properties))
	for _, key := range node.names() {
		child := node.Properties[key]
		if child.Type != "object" {
			props[key] = child.baseMap()
			continue
		}
		section := name + "_" + componentName(key)
		props[key] = schemas.add(section, objectSchema(schemas, child, section))
	}
	out["properties"] = props
	out["additionalProperties"] = false
	return out
}

var operationMethods = map[string]bool{"get": true, "put": true, "post": true, "patch": true, "delete": true}

// validateDocument checks the fields an OpenAPI 3 consumer needs.
func validateDocument(document map[string]any) error {
	if version, _ := document["openapi"].(string); version == "" {
		return errors.New("openapi: document has no openapi version")
	}
	info, _ := document["info"].(map[string]any)
	for _, field := range []string{"title", "version"} {
		if value, _ := info[field].(string); value == "" {
			return fmt.Errorf("openapi: info.%s is required", field)
		}
	}
	paths, _ := document["paths"].(map[string]any)
	if len(paths) == 0 {
		return errors.New("openapi: document has no paths")
	}
	names := make([]string, 0, len(paths))
	for name := range paths {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		item, _ := paths[name].(map[string]any)
		operations := 0
		for method, value := range item {
			if !operationMethods[method] {
				continue
			}
			operations++
			operation, _ := value.(map[string]any)
			if id, _ := operation["operationId"].(string); id == "" {
				return fmt.Errorf("openapi: %s %s has no operationId", method, name)
			}
			if responses, _ := operation["responses"].(map[string]any); len(responses) == 0 {
				return fmt.Errorf("openapi: %s %s has no responses", method, name)
			}
		}
		if operations == 0 {
			return fmt.Errorf("openapi: path %s has no operations", name)
		}
	}
	return nil
}

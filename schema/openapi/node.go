package openapi

import (
	"sort"

	videocfg "github.com/goliatone/go-videoconfig"
)

// schemaNode is the intermediate form of one JSON schema object.
type schemaNode struct {
	Type        string
	Description string
	Default     any
	Enum        []any
	Properties  map[string]*schemaNode
	order       []string
	extensions  map[string]any
}

func newObjectNode() *schemaNode {
	return &schemaNode{
		Type:       "object",
		Properties: map[string]*schemaNode{},
	}
}

func (n *schemaNode) add(name string, child *schemaNode) {
	if _, exists := n.Properties[name]; !exists {
		n.order = append(n.order, name)
	}
	n.Properties[name] = child
}

func (n *schemaNode) names() []string {
	names := append([]string(nil), n.order...)
	sort.Strings(names)
	return names
}

func (n *schemaNode) baseMap() map[string]any {
	result := map[string]any{}
	if n.Type != "" {
		result["type"] = n.Type
	}
	if n.Description != "" {
		result["description"] = n.Description
	}
	if n.Default != nil {
		result["default"] = n.Default
	}
	if len(n.Enum) > 0 {
		result["enum"] = n.Enum
	}
	for key, value := range n.extensions {
		result[key] = value
	}
	return result
}

// optionNode maps a registered option onto its JSON schema type.
func optionNode(opt videocfg.Option) *schemaNode {
	node := &schemaNode{
		Description: opt.Description,
		Default:     opt.Default,
		extensions:  map[string]any{},
	}
	switch opt.Kind {
	case videocfg.KindBool:
		node.Type = "boolean"
	case videocfg.KindInt:
		node.Type = "integer"
	case videocfg.KindFloat:
		node.Type = "number"
	case videocfg.KindString:
		node.Type = "string"
	case videocfg.KindEnum:
		node.Type = "integer"
		node.Enum = make([]any, len(opt.Values))
		for i := range opt.Values {
			node.Enum[i] = i
		}
		node.extensions["x-enum-labels"] = append([]string(nil), opt.Values...)
	}
	if opt.Tracked {
		node.extensions["x-tracked"] = true
	}
	if opt.TitleScoped {
		node.extensions["x-title-scoped"] = true
	}
	if len(opt.Aliases) > 0 {
		aliases := append([]string(nil), opt.Aliases...)
		sort.Strings(aliases)
		node.extensions["x-aliases"] = aliases
	}
	if opt.Warning != "" {
		node.extensions["x-warning"] = opt.Warning
	}
	return node
}

// schemaTree groups options by section: the root object holds one object
// per section, in registration order.
func schemaTree(schema *videocfg.Schema) *schemaNode {
	root := newObjectNode()
	for _, opt := range schema.Options() {
		section := opt.Section()
		child, ok := root.Properties[section]
		if !ok {
			child = newObjectNode()
			root.add(section, child)
		}
		child.add(opt.Name(), optionNode(opt))
	}
	return root
}

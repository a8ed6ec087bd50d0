package schema

import (
	"bytes"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/arloliu/schemabin/errs"
)

// document is the YAML form of a schema:
//
//	entryPoints: [Scene]
//	types:
//	  Scene:
//	    fields:
//	      name: String
//	      entities: {array: Entity}
//	      focus: {optional: {ref: Entity}}
//	  Entity:
//	    fields:
//	      id: Uint32
//	      shape: {oneOf: [Circle, Box]}
//
// Every type expression is either a type name or a single-key mapping:
// tuple, fields, array, map, optional, oneOf, ref or link ({schema, type}).
// Field order follows the document.
type document struct {
	EntryPoints []string             `yaml:"entryPoints"`
	Types       map[string]yaml.Node `yaml:"types"`
}

// LoadYAML reads a YAML schema document and builds its Graph.
func LoadYAML(r io.Reader) (*Graph, error) {
	var doc document
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %w", errs.ErrTypeDefinition, err)
	}

	defs := make(map[string]Type, len(doc.Types))
	for name, node := range doc.Types {
		t, err := parseTypeNode(&node)
		if err != nil {
			return nil, fmt.Errorf("type %q: %w", name, err)
		}
		defs[name] = t
	}

	return Extend(defs, doc.EntryPoints...)
}

// ParseYAML is LoadYAML over an in-memory document.
func ParseYAML(data []byte) (*Graph, error) {
	return LoadYAML(bytes.NewReader(data))
}

func parseTypeNode(n *yaml.Node) (Type, error) {
	switch n.Kind {
	case yaml.ScalarNode:
		return Named(n.Value), nil
	case yaml.MappingNode:
	default:
		return nil, nodeErr(n, "expected a type name or a single-key mapping")
	}

	if len(n.Content) != 2 {
		return nil, nodeErr(n, "type mapping must have exactly one key")
	}
	key, body := n.Content[0].Value, n.Content[1]

	switch key {
	case "tuple", "oneOf":
		if body.Kind != yaml.SequenceNode {
			return nil, nodeErr(body, key+" expects a sequence")
		}
		children := make([]Type, len(body.Content))
		for i, c := range body.Content {
			t, err := parseTypeNode(c)
			if err != nil {
				return nil, err
			}
			children[i] = t
		}
		if key == "tuple" {
			return Tuple{Children: children}, nil
		}

		return OneOf{Children: children}, nil
	case "fields":
		if body.Kind != yaml.MappingNode {
			return nil, nodeErr(body, "fields expects a mapping")
		}
		fields := make([]Field, 0, len(body.Content)/2)
		for i := 0; i+1 < len(body.Content); i += 2 {
			t, err := parseTypeNode(body.Content[i+1])
			if err != nil {
				return nil, err
			}
			fields = append(fields, Field{Name: body.Content[i].Value, Type: t})
		}

		return NamedTuple{Fields: fields}, nil
	case "array", "map", "optional", "ref":
		inner, err := parseTypeNode(body)
		if err != nil {
			return nil, err
		}
		switch key {
		case "array":
			return Array{Element: inner}, nil
		case "map":
			return Map{Value: inner}, nil
		case "optional":
			return Optional{Inner: inner}, nil
		default:
			return Ref{Target: inner}, nil
		}
	case "link":
		var l struct {
			Schema string `yaml:"schema"`
			Type   string `yaml:"type"`
		}
		if err := body.Decode(&l); err != nil {
			return nil, nodeErr(body, err.Error())
		}

		return Link{Schema: l.Schema, Target: l.Type}, nil
	default:
		return nil, nodeErr(n, "unknown type constructor "+key)
	}
}

func nodeErr(n *yaml.Node, msg string) error {
	return fmt.Errorf("%w: line %d: %s", errs.ErrTypeDefinition, n.Line, msg)
}

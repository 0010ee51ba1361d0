// SPDX-License-Identifier:Apache-2.0

package config

import (
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// LoadFile reads the instances listed in the YAML file at path.
func LoadFile(path string) ([]Instance, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open config file %s", path)
	}
	defer f.Close()
	return Load(f)
}

// Load reads a YAML document of the form
//
//	instances:
//	  - socket: /var/run/quagga/bgpd.vty
//	    family: ipv4 unicast
//	    usehostname: true
//
// Each value may be a scalar or a sequence; sequences must hold exactly
// one element.
func Load(r io.Reader) ([]Instance, error) {
	var doc yaml.Node
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.WithMessage(ErrConfig, "empty config file")
		}
		return nil, errors.WithMessagef(ErrConfig, "invalid yaml: %v", err)
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) != 1 || doc.Content[0].Kind != yaml.MappingNode {
		return nil, errors.WithMessage(ErrConfig, "config file must be a mapping")
	}

	var instances *yaml.Node
	root := doc.Content[0]
	for i := 0; i+1 < len(root.Content); i += 2 {
		key := root.Content[i].Value
		if key != "instances" {
			return nil, errors.WithMessagef(ErrConfig, "unknown top level keyword `%s` (line %d)", key, root.Content[i].Line)
		}
		instances = root.Content[i+1]
	}
	if instances == nil || instances.Kind != yaml.SequenceNode || len(instances.Content) == 0 {
		return nil, errors.WithMessage(ErrConfig, "instances must be a non empty list")
	}

	res := make([]Instance, 0, len(instances.Content))
	families := map[string]int{}
	for _, n := range instances.Content {
		kv, err := keyValues(n)
		if err != nil {
			return nil, err
		}
		inst, err := Parse(kv)
		if err != nil {
			return nil, errors.WithMessagef(err, "instance at line %d", n.Line)
		}
		// Instances are told apart by family in the exported series.
		if line, ok := families[inst.Family]; ok {
			return nil, errors.WithMessagef(ErrConfig, "family %q at line %d already configured at line %d", inst.Family, n.Line, line)
		}
		families[inst.Family] = n.Line
		res = append(res, inst)
	}
	return res, nil
}

// keyValues flattens an instance mapping into the key/values form taken by
// Parse. A key repeated in the mapping accumulates its values.
func keyValues(n *yaml.Node) (map[string][]interface{}, error) {
	if n.Kind != yaml.MappingNode {
		return nil, errors.WithMessagef(ErrConfig, "instance at line %d must be a mapping", n.Line)
	}
	res := map[string][]interface{}{}
	for i := 0; i+1 < len(n.Content); i += 2 {
		key := strings.ToLower(n.Content[i].Value)
		valueNode := n.Content[i+1]

		var values []*yaml.Node
		switch valueNode.Kind {
		case yaml.ScalarNode:
			values = []*yaml.Node{valueNode}
		case yaml.SequenceNode:
			values = valueNode.Content
		default:
			return nil, errors.WithMessagef(ErrConfig, "%s (line %d) must be a scalar or a list", key, valueNode.Line)
		}
		for _, v := range values {
			value, err := scalar(v)
			if err != nil {
				return nil, errors.WithMessagef(err, "%s", key)
			}
			res[key] = append(res[key], value)
		}
	}
	return res, nil
}

// scalar returns bool for YAML booleans and the literal text otherwise.
// Null is rejected rather than read as the text "null" or "~".
func scalar(n *yaml.Node) (interface{}, error) {
	if n.Kind != yaml.ScalarNode {
		return nil, errors.WithMessagef(ErrConfig, "line %d: nested values are not supported", n.Line)
	}
	switch n.ShortTag() {
	case "!!null":
		return nil, errors.WithMessagef(ErrConfig, "line %d: a value is required", n.Line)
	case "!!bool":
		var b bool
		if err := n.Decode(&b); err != nil {
			return nil, errors.WithMessagef(ErrConfig, "line %d: %v", n.Line, err)
		}
		return b, nil
	}
	return n.Value, nil
}

// Package agent loads and resolves agent descriptors.
//
// Descriptors come from two tiers: a per-user global directory and a
// project-local directory found by walking ancestors of the working
// directory. Project entries shadow global entries with the same name.
// Descriptors are immutable after load; Reload swaps the whole set.
package agent

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"

	"agcodex/internal/logging"
	"agcodex/internal/types"
)

// Duration decodes from either a Go duration string ("2m") or a number
// of seconds.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err == nil {
		parsed, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", s, err)
		}
		*d = Duration(parsed)
		return nil
	}
	var secs float64
	if err := node.Decode(&secs); err != nil {
		return fmt.Errorf("invalid duration value")
	}
	*d = Duration(time.Duration(secs * float64(time.Second)))
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Permission is a tool access level in a descriptor.
type Permission string

const (
	PermissionAllow      Permission = "allow"
	PermissionDeny       Permission = "deny"
	PermissionRestricted Permission = "restricted"
)

// ToolPolicy is the access rule for one tool. In YAML it is either a bare
// permission string or an object with restrictions:
//
//	tools:
//	  grep: allow
//	  rename_symbol:
//	    permission: restricted
//	    restrictions:
//	      scope: File
type ToolPolicy struct {
	Permission   Permission        `yaml:"permission"`
	Restrictions map[string]string `yaml:"restrictions,omitempty"`
}

// UnmarshalYAML accepts both the scalar and the object form.
func (p *ToolPolicy) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		var s string
		if err := node.Decode(&s); err != nil {
			return err
		}
		p.Permission = Permission(s)
		return p.validate()
	}

	type plain ToolPolicy
	var decoded plain
	if err := node.Decode(&decoded); err != nil {
		return err
	}
	*p = ToolPolicy(decoded)
	return p.validate()
}

func (p *ToolPolicy) validate() error {
	switch p.Permission {
	case PermissionAllow, PermissionDeny, PermissionRestricted:
		return nil
	default:
		return fmt.Errorf("unknown tool permission %q", p.Permission)
	}
}

// Parameter declares one descriptor parameter.
type Parameter struct {
	Name        string   `yaml:"name"`
	Description string   `yaml:"description"`
	Required    bool     `yaml:"required"`
	Default     string   `yaml:"default,omitempty"`
	Enum        []string `yaml:"enum,omitempty"`
}

// Descriptor is one agent definition. Immutable after load.
type Descriptor struct {
	Name           string                `yaml:"name"`
	Description    string                `yaml:"description"`
	ModeOverride   string                `yaml:"mode_override,omitempty"`
	Intelligence   types.Intelligence    `yaml:"intelligence,omitempty"`
	Tools          map[string]ToolPolicy `yaml:"tools,omitempty"`
	Prompt         string                `yaml:"prompt"`
	Parameters     []Parameter           `yaml:"parameters,omitempty"`
	Timeout        Duration              `yaml:"timeout,omitempty"`
	Chainable      bool                  `yaml:"chainable"`
	Parallelizable bool                  `yaml:"parallelizable"`
	FilePatterns   []string              `yaml:"file_patterns,omitempty"`
	Tags           []string              `yaml:"tags,omitempty"`

	// Source records which tier the descriptor came from.
	Source string `yaml:"-"`
	// Path is the file the descriptor was loaded from, empty for builtins.
	Path string `yaml:"-"`
}

// knownFields is the accepted YAML key set; anything else is warned about
// and ignored.
var knownFields = map[string]bool{
	"name": true, "description": true, "mode_override": true,
	"intelligence": true, "tools": true, "prompt": true,
	"parameters": true, "timeout": true, "chainable": true,
	"parallelizable": true, "file_patterns": true, "tags": true,
}

const defaultTimeout = 2 * time.Minute

// ParseDescriptor decodes one YAML descriptor. Unknown top-level fields
// are ignored with a warning rather than failing the load.
func ParseDescriptor(data []byte, path string) (*Descriptor, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if len(doc.Content) > 0 && doc.Content[0].Kind == yaml.MappingNode {
		root := doc.Content[0]
		for i := 0; i < len(root.Content)-1; i += 2 {
			key := root.Content[i].Value
			if !knownFields[key] {
				logging.AgentsWarn("descriptor %s: unknown field %q ignored", path, key)
			}
		}
	}

	var d Descriptor
	if err := doc.Decode(&d); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	d.Path = path
	if d.Timeout == 0 {
		d.Timeout = Duration(defaultTimeout)
	}
	if err := d.Validate(); err != nil {
		return nil, fmt.Errorf("descriptor %s: %w", path, err)
	}
	return &d, nil
}

// Validate enforces the descriptor invariants.
func (d *Descriptor) Validate() error {
	if d.Name == "" {
		return fmt.Errorf("name is required")
	}
	if d.Prompt == "" {
		return fmt.Errorf("prompt must not be empty")
	}
	if d.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %v", d.Timeout.Std())
	}
	seen := make(map[string]bool, len(d.Parameters))
	for _, p := range d.Parameters {
		if p.Name == "" {
			return fmt.Errorf("parameter with empty name")
		}
		if seen[p.Name] {
			return fmt.Errorf("duplicate parameter %q", p.Name)
		}
		seen[p.Name] = true
	}
	return nil
}

// ToolAllowed reports whether the descriptor permits a tool, with its
// restrictions if any. Tools absent from the map default to allow.
func (d *Descriptor) ToolAllowed(name string) (bool, map[string]string) {
	policy, ok := d.Tools[name]
	if !ok {
		return true, nil
	}
	switch policy.Permission {
	case PermissionDeny:
		return false, nil
	case PermissionRestricted:
		return true, policy.Restrictions
	default:
		return true, nil
	}
}

// ValidateParameters checks call-site parameters against the declared
// schema: missing required values and out-of-enum values are errors, and
// declared defaults are filled in.
func (d *Descriptor) ValidateParameters(params map[string]string) (map[string]string, error) {
	out := make(map[string]string, len(params))
	for k, v := range params {
		out[k] = v
	}
	for _, p := range d.Parameters {
		v, present := out[p.Name]
		if !present {
			if p.Required && p.Default == "" {
				return nil, fmt.Errorf("agent %s: missing required parameter %q", d.Name, p.Name)
			}
			if p.Default != "" {
				out[p.Name] = p.Default
			}
			continue
		}
		if len(p.Enum) > 0 && !contains(p.Enum, v) {
			return nil, fmt.Errorf("agent %s: parameter %q must be one of %v, got %q", d.Name, p.Name, p.Enum, v)
		}
	}
	return out, nil
}

func contains(list []string, v string) bool {
	for _, e := range list {
		if e == v {
			return true
		}
	}
	return false
}

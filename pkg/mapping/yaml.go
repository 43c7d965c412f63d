package mapping

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/uxr-project/uxr-go/pkg/restriction"
	"github.com/uxr-project/uxr-go/pkg/vehicle"
)

// yamlMapping is the top-level structure of a mapping document.
type yamlMapping struct {
	Rules []yaml.Node `yaml:"rules"`
}

// yamlRule is a single rule in a mapping document.
type yamlRule struct {
	State        string     `yaml:"state"`
	Speed        *yamlSpeed `yaml:"speed"`
	Restrictions []string   `yaml:"restrictions"`
}

// yamlSpeed is the optional speed range of a rule.
type yamlSpeed struct {
	Min *float32 `yaml:"min"`
	Max *float32 `yaml:"max"`
}

// ParseYAML parses a mapping document into a rule table.
func ParseYAML(data []byte) (*RuleTable, error) {
	var doc yamlMapping
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: YAML parse error: %v", ErrInvalidMapping, err)
	}

	rules := make([]Rule, 0, len(doc.Rules))
	for i := range doc.Rules {
		node := &doc.Rules[i]
		rule, err := parseYAMLRule(node)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", node.Line, err)
		}
		rules = append(rules, rule)
	}

	return NewRuleTable(rules)
}

func parseYAMLRule(node *yaml.Node) (Rule, error) {
	var yr yamlRule
	if err := node.Decode(&yr); err != nil {
		return Rule{}, fmt.Errorf("%w: %v", ErrInvalidMapping, err)
	}

	if yr.State == "" {
		return Rule{}, fmt.Errorf("%w: rule without state", ErrInvalidMapping)
	}
	state, err := vehicle.ParseDrivingState(yr.State)
	if err != nil {
		return Rule{}, fmt.Errorf("%w: %v", ErrInvalidMapping, err)
	}

	if len(yr.Restrictions) == 0 {
		return Rule{}, fmt.Errorf("%w: rule for %s without restrictions", ErrInvalidMapping, state)
	}
	flags, err := restriction.ParseFlags(yr.Restrictions)
	if err != nil {
		return Rule{}, fmt.Errorf("%w: %v", ErrInvalidMapping, err)
	}

	rule := Rule{
		State:        state,
		Restrictions: flags,
		Line:         node.Line,
	}
	if yr.Speed != nil {
		rule.Speed = SpeedRange{Min: yr.Speed.Min, Max: yr.Speed.Max}
	}
	return rule, nil
}

// FileProvider loads a YAML mapping document from disk.
type FileProvider struct {
	Path string
}

// NewFileProvider creates a provider for the given path.
func NewFileProvider(path string) *FileProvider {
	return &FileProvider{Path: path}
}

// Load reads and parses the mapping file.
func (p *FileProvider) Load() (Table, error) {
	if p.Path == "" {
		return nil, fmt.Errorf("%w: no mapping file configured", ErrInvalidMapping)
	}
	data, err := os.ReadFile(p.Path)
	if err != nil {
		return nil, fmt.Errorf("read mapping: %w", err)
	}
	table, err := ParseYAML(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", p.Path, err)
	}
	return table, nil
}

// BytesProvider parses an in-memory YAML mapping document.
type BytesProvider []byte

// Load parses the document.
func (b BytesProvider) Load() (Table, error) {
	return ParseYAML(b)
}

var (
	_ Provider = (*FileProvider)(nil)
	_ Provider = BytesProvider(nil)
)

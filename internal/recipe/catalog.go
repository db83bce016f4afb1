// Package recipe holds the crop recipe catalog and the zone growth schedule.
// Both documents are re-read from disk on every load so edits apply on the
// next evaluation cycle.
package recipe

import (
	"strings"

	"github.com/okieraised/smartfarm-agent/internal/cerrors"
	"github.com/okieraised/smartfarm-agent/internal/utilities"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Limits are the thresholds a recipe assigns to matching sensors. A nil
// bound clears the corresponding threshold.
type Limits struct {
	Min *float64 `json:"min" yaml:"min"`
	Max *float64 `json:"max" yaml:"max"`
}

// Rule assigns Limits to every sensor whose name contains Keyword.
type Rule struct {
	Keyword string
	Limits  Limits
}

// Stage is the keyword rules of one growth stage, in document order.
type Stage []Rule

// UnmarshalYAML reads a keyword mapping, keeping the order of its keys.
func (s *Stage) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode && value.Tag == "!!null" {
		*s = nil
		return nil
	}
	if value.Kind != yaml.MappingNode {
		return errors.Errorf("line %d: stage must be a mapping of keyword to limits", value.Line)
	}
	rules := make(Stage, 0, len(value.Content)/2)
	for i := 0; i+1 < len(value.Content); i += 2 {
		var lim Limits
		if err := value.Content[i+1].Decode(&lim); err != nil {
			return errors.Wrapf(err, "keyword %q", value.Content[i].Value)
		}
		rules = append(rules, Rule{Keyword: value.Content[i].Value, Limits: lim})
	}
	*s = rules
	return nil
}

// UnmarshalJSON goes through the YAML node tree, since JSON is YAML and a
// Go map would lose the keyword order.
func (s *Stage) UnmarshalJSON(data []byte) error {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return err
	}
	if len(doc.Content) == 0 {
		*s = nil
		return nil
	}
	return s.UnmarshalYAML(doc.Content[0])
}

// Catalog maps crop -> stage -> keyword limits.
type Catalog map[string]map[string]Stage

type CatalogSource interface {
	LoadCatalog() (Catalog, error)
}

// LoadCatalog lets an in-memory catalog act as its own source.
func (c Catalog) LoadCatalog() (Catalog, error) { return c, nil }

type FileCatalog struct {
	Path string
}

func (f FileCatalog) LoadCatalog() (Catalog, error) {
	var c Catalog
	if err := utilities.DecodeFile(f.Path, &c); err != nil {
		return nil, err
	}
	return c, nil
}

// Key identifies a recipe as "{crop}.{stage}".
type Key struct {
	Crop  string
	Stage string
}

func (k Key) String() string { return k.Crop + "." + k.Stage }

func ParseKey(s string) (Key, error) {
	parts := strings.Split(s, ".")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return Key{}, cerrors.ErrMalformedRecipeKey.WithMessage("malformed recipe key %q", s)
	}
	return Key{Crop: parts[0], Stage: parts[1]}, nil
}

func (c Catalog) Lookup(k Key) (Stage, error) {
	stage := c[k.Crop][k.Stage]
	if len(stage) == 0 {
		return nil, cerrors.ErrRecipeNotFound.WithMessage("recipe %s not found in catalog", k)
	}
	return stage, nil
}

// Match returns the limits of the first keyword, in document order, that
// appears case-insensitively in name.
func (s Stage) Match(name string) (Limits, bool) {
	lower := strings.ToLower(name)
	for _, r := range s {
		if strings.Contains(lower, strings.ToLower(r.Keyword)) {
			return r.Limits, true
		}
	}
	return Limits{}, false
}

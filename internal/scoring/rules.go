// internal/scoring/rules.go
package scoring

import (
	_ "embed"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"githop/internal/model"
)

//go:embed rules.yaml
var rulesYAML []byte

type rulesFile struct {
	AwesomeList []string            `yaml:"awesome_list"`
	Personas    map[string][]string `yaml:"personas"`
	Badges      []struct {
		Type     string   `yaml:"type"`
		Label    string   `yaml:"label"`
		Patterns []string `yaml:"patterns"`
	} `yaml:"badges"`
	GDECategories []struct {
		Category string   `yaml:"category"`
		Patterns []string `yaml:"patterns"`
	} `yaml:"gde_categories"`
	BigTech struct {
		Label     string   `yaml:"label"`
		Companies []string `yaml:"companies"`
	} `yaml:"big_tech"`
}

type badgeRule struct {
	badgeType model.BadgeType
	label     string
	pattern   *regexp.Regexp
}

type categoryRule struct {
	category string
	pattern  *regexp.Regexp
}

// Rules is the compiled keyword rule set.
type Rules struct {
	awesome       *regexp.Regexp
	personas      map[model.Persona]*regexp.Regexp
	badges        []badgeRule
	gdeCategories []categoryRule
	bigTechLabel  string
	bigTech       *regexp.Regexp
}

var (
	defaultOnce  sync.Once
	defaultRules *Rules
)

// DefaultRules returns the rule set embedded in the binary. It panics if the embedded file is invalid.
func DefaultRules() *Rules {
	defaultOnce.Do(func() {
		r, err := ParseRules(rulesYAML)
		if err != nil {
			panic(fmt.Sprintf("scoring: invalid embedded rules: %v", err))
		}
		defaultRules = r
	})
	return defaultRules
}

// ParseRules compiles a YAML rule document.
func ParseRules(data []byte) (*Rules, error) {
	var f rulesFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse rules: %w", err)
	}

	r := &Rules{personas: make(map[model.Persona]*regexp.Regexp, len(model.Personas))}

	var err error
	if r.awesome, err = compileAny(f.AwesomeList); err != nil {
		return nil, fmt.Errorf("awesome_list: %w", err)
	}

	for _, p := range model.Personas {
		patterns, ok := f.Personas[string(p)]
		if !ok || len(patterns) == 0 {
			return nil, fmt.Errorf("persona %q has no patterns", p)
		}
		re, err := compileAny(patterns)
		if err != nil {
			return nil, fmt.Errorf("persona %q: %w", p, err)
		}
		r.personas[p] = re
	}
	for name := range f.Personas {
		if !model.ValidPersona(name) {
			return nil, fmt.Errorf("unknown persona %q", name)
		}
	}

	for _, b := range f.Badges {
		re, err := compileAny(b.Patterns)
		if err != nil {
			return nil, fmt.Errorf("badge %q: %w", b.Type, err)
		}
		r.badges = append(r.badges, badgeRule{badgeType: model.BadgeType(b.Type), label: b.Label, pattern: re})
	}

	for _, c := range f.GDECategories {
		re, err := compileAny(c.Patterns)
		if err != nil {
			return nil, fmt.Errorf("gde category %q: %w", c.Category, err)
		}
		r.gdeCategories = append(r.gdeCategories, categoryRule{category: c.Category, pattern: re})
	}

	r.bigTechLabel = f.BigTech.Label
	if len(f.BigTech.Companies) > 0 {
		quoted := make([]string, len(f.BigTech.Companies))
		for i, c := range f.BigTech.Companies {
			quoted[i] = `\b` + regexp.QuoteMeta(c) + `\b`
		}
		if r.bigTech, err = compileAny(quoted); err != nil {
			return nil, fmt.Errorf("big_tech: %w", err)
		}
	}

	return r, nil
}

// compileAny joins patterns into one case-insensitive alternation.
func compileAny(patterns []string) (*regexp.Regexp, error) {
	if len(patterns) == 0 {
		return nil, nil
	}
	return regexp.Compile(`(?i)(?:` + strings.Join(patterns, `)|(?:`) + `)`)
}

// IsAwesomeList reports whether text looks like a curated link collection.
func (r *Rules) IsAwesomeList(text string) bool {
	return r.awesome != nil && r.awesome.MatchString(text)
}

// MatchPersonas returns the personas whose patterns match text.
func (r *Rules) MatchPersonas(text string) []model.Persona {
	var matched []model.Persona
	for _, p := range model.Personas {
		if r.personas[p].MatchString(text) {
			matched = append(matched, p)
		}
	}
	return matched
}

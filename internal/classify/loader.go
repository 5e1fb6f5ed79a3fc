package classify

import (
	"fmt"
	"os"
	"regexp"

	"github.com/spounge-ai/sysaudit/internal/domain"
	app_errors "github.com/spounge-ai/sysaudit/internal/errors"
	"gopkg.in/yaml.v3"
)

type ruleFile struct {
	Location []struct {
		Name     string `yaml:"name"`
		Pattern  string `yaml:"pattern"`
		Location string `yaml:"location"`
	} `yaml:"location"`
	PasswordIndicators []string `yaml:"password_indicators"`
	InteractiveTools   []string `yaml:"interactive_tools"`
}

// LoadRules reads a YAML rule file. Sections absent from the file keep the
// default rules. Every pattern must compile and every location rule must
// name local or remote.
func LoadRules(path string) (RuleSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return RuleSet{}, fmt.Errorf("read rules file %s: %w: %w", path, app_errors.ErrConfig, err)
	}
	return ParseRules(data)
}

// ParseRules decodes a YAML rule document.
func ParseRules(data []byte) (RuleSet, error) {
	var file ruleFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return RuleSet{}, fmt.Errorf("decode rules: %w: %w", app_errors.ErrConfig, err)
	}

	rules := DefaultRules()

	if len(file.Location) > 0 {
		rules.Location = make([]LocationRule, 0, len(file.Location))
		for i, r := range file.Location {
			loc := domain.Location(r.Location)
			if loc != domain.LocationLocal && loc != domain.LocationRemote {
				return RuleSet{}, fmt.Errorf("location rule %d (%s): unknown location %q: %w", i, r.Name, r.Location, app_errors.ErrConfig)
			}
			re, err := compile(r.Pattern)
			if err != nil {
				return RuleSet{}, fmt.Errorf("location rule %d (%s): %w", i, r.Name, err)
			}
			rules.Location = append(rules.Location, LocationRule{Name: r.Name, Pattern: re, Location: loc})
		}
	}

	if len(file.PasswordIndicators) > 0 {
		compiled, err := compileAll(file.PasswordIndicators)
		if err != nil {
			return RuleSet{}, fmt.Errorf("password indicators: %w", err)
		}
		rules.PasswordIndicators = compiled
	}

	if len(file.InteractiveTools) > 0 {
		compiled, err := compileAll(file.InteractiveTools)
		if err != nil {
			return RuleSet{}, fmt.Errorf("interactive tools: %w", err)
		}
		rules.InteractiveTools = compiled
	}

	return rules, nil
}

func compile(pattern string) (*regexp.Regexp, error) {
	if pattern == "" {
		return nil, fmt.Errorf("empty pattern: %w", app_errors.ErrConfig)
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("compile %q: %w: %w", pattern, app_errors.ErrConfig, err)
	}
	return re, nil
}

func compileAll(patterns []string) ([]*regexp.Regexp, error) {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := compile(p)
		if err != nil {
			return nil, err
		}
		out = append(out, re)
	}
	return out, nil
}

func matchAny(patterns []*regexp.Regexp, s string) bool {
	if s == "" {
		return false
	}
	for _, re := range patterns {
		if re.MatchString(s) {
			return true
		}
	}
	return false
}

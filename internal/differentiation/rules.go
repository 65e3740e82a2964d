package differentiation

import (
	_ "embed"
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"

	"github.com/ZanzyTHEbar/creative-scorer/internal/errors"
)

//go:embed rules.yaml
var defaultRules []byte

// RuleFile is the on-disk shape of a rule set
type RuleFile struct {
	Version          string   `yaml:"version" json:"version"`
	GenericClaims    []string `yaml:"generic_claims" json:"generic_claims"`
	CommodityPhrases []string `yaml:"commodity_phrases" json:"commodity_phrases"`
	LocaleTropes     []string `yaml:"locale_tropes" json:"locale_tropes"`
}

// Rules is a compiled, read-only rule set
type Rules struct {
	Version   string
	generic   []*regexp.Regexp
	commodity []*regexp.Regexp
	tropes    []*regexp.Regexp
}

// DefaultRules returns the rule set compiled into the binary
func DefaultRules() (*Rules, error) {
	return ParseRules(defaultRules)
}

// LoadRules reads a rule set from a YAML file. An empty path selects the
// built-in rules.
func LoadRules(path string) (*Rules, error) {
	if path == "" {
		return DefaultRules()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.NewConfigurationError(fmt.Sprintf("cannot read rule set %s", path), err)
	}
	return ParseRules(data)
}

// ParseRules decodes and compiles a YAML rule set
func ParseRules(data []byte) (*Rules, error) {
	var file RuleFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, errors.NewConfigurationError("invalid rule set", err)
	}
	if file.Version == "" {
		return nil, errors.NewConfigurationError("rule set has no version", nil)
	}

	rules := &Rules{Version: file.Version}
	var err error
	if rules.generic, err = compileAll("generic_claims", file.GenericClaims); err != nil {
		return nil, err
	}
	if rules.commodity, err = compileAll("commodity_phrases", file.CommodityPhrases); err != nil {
		return nil, err
	}
	if rules.tropes, err = compileAll("locale_tropes", file.LocaleTropes); err != nil {
		return nil, err
	}
	return rules, nil
}

func compileAll(section string, patterns []string) ([]*regexp.Regexp, error) {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for i, p := range patterns {
		re, err := regexp.Compile("(?i)" + p)
		if err != nil {
			return nil, errors.NewConfigurationError(fmt.Sprintf("%s[%d]: bad pattern %q", section, i, p), err)
		}
		out = append(out, re)
	}
	return out, nil
}

// Counts reports how many patterns each section holds
func (r *Rules) Counts() map[string]int {
	return map[string]int{
		"generic_claims":    len(r.generic),
		"commodity_phrases": len(r.commodity),
		"locale_tropes":     len(r.tropes),
	}
}

// matches returns the first matched span of each pattern that hits, in
// rule order. A pattern contributes at most one match.
func matches(patterns []*regexp.Regexp, text string) []string {
	found := []string{}
	for _, re := range patterns {
		if loc := re.FindStringIndex(text); loc != nil {
			found = append(found, text[loc[0]:loc[1]])
		}
	}
	return found
}

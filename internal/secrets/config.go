package secrets

import (
	"fmt"
	"regexp"
)

// DefaultRedaction replaces every detected secret.
const DefaultRedaction = "[REDACTED]"

// Config configures the scrubber.
type Config struct {
	// Enabled controls whether scrubbing is active (default: true)
	Enabled bool `koanf:"enabled"`

	// Redaction is the replacement for detected secrets
	Redaction string `koanf:"redaction"`

	// AllowList contains patterns whose matches are never redacted
	AllowList []string `koanf:"allow_list"`

	// ExtraRules are evaluated after the built-in rules
	ExtraRules []Rule `koanf:"extra_rules"`
}

// Rule defines a secret detection rule.
type Rule struct {
	// ID is the unique identifier for this rule
	ID string `koanf:"id"`

	// Pattern is the regex matching the secret
	Pattern string `koanf:"pattern"`

	// Keywords, if set, must appear (case-insensitively) for the rule to run
	Keywords []string `koanf:"keywords"`
}

type compiledRule struct {
	id       string
	pattern  *regexp.Regexp
	keywords []*regexp.Regexp
}

// DefaultConfig enables scrubbing with the built-in rules.
func DefaultConfig() Config {
	return Config{
		Enabled:   true,
		Redaction: DefaultRedaction,
	}
}

func compileRules(rules []Rule) ([]compiledRule, error) {
	out := make([]compiledRule, 0, len(rules))
	seen := make(map[string]bool, len(rules))
	for i, rule := range rules {
		if rule.ID == "" {
			return nil, fmt.Errorf("rule %d: id is required", i)
		}
		if seen[rule.ID] {
			return nil, fmt.Errorf("rule %s: duplicate id", rule.ID)
		}
		seen[rule.ID] = true
		if rule.Pattern == "" {
			return nil, fmt.Errorf("rule %s: pattern is required", rule.ID)
		}

		pattern, err := regexp.Compile(rule.Pattern)
		if err != nil {
			return nil, fmt.Errorf("rule %s: invalid pattern: %w", rule.ID, err)
		}
		compiled := compiledRule{id: rule.ID, pattern: pattern}
		for _, kw := range rule.Keywords {
			compiled.keywords = append(compiled.keywords, regexp.MustCompile("(?i)"+regexp.QuoteMeta(kw)))
		}
		out = append(out, compiled)
	}
	return out, nil
}

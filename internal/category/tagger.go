package category

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidRule indicates a rule with no keywords or an unknown category.
var ErrInvalidRule = errors.New("invalid category rule")

// Rule assigns Category when any keyword occurs in the text.
type Rule struct {
	Category Category `koanf:"category" json:"category"`
	Keywords []string `koanf:"keywords" json:"keywords"`
}

// DefaultRules returns the built-in rules in priority order.
func DefaultRules() []Rule {
	return []Rule{
		{Category: Empathy, Keywords: []string{"died", "death", "passed", "grief", "miss", "lost", "sad", "cry", "tears"}},
		{Category: Understanding, Keywords: []string{"adhd", "autism", "anxiety", "depression", "neurodivergent", "disability"}},
		{Category: Respect, Keywords: []string{"degree", "phd", "lawyer", "doctor", "engineer", "expert", "professional"}},
		{Category: Communication, Keywords: []string{"prefer", "direct", "patient", "explain", "style"}},
		{Category: Volatile, Keywords: []string{"shipping", "launching", "deadline", "project", "goal"}},
	}
}

// Tagger assigns a category by first-match-wins keyword rules over the
// lowercased text. Keywords match as substrings. Tagger is immutable and
// safe for concurrent use.
type Tagger struct {
	rules []Rule
}

// NewTagger compiles rules. Nil rules selects DefaultRules.
func NewTagger(rules []Rule) (*Tagger, error) {
	if rules == nil {
		rules = DefaultRules()
	}
	if err := ValidateRules(rules); err != nil {
		return nil, err
	}

	compiled := make([]Rule, len(rules))
	for i, r := range rules {
		keywords := make([]string, 0, len(r.Keywords))
		for _, k := range r.Keywords {
			keywords = append(keywords, strings.ToLower(strings.TrimSpace(k)))
		}
		cat, _ := Parse(string(r.Category))
		compiled[i] = Rule{Category: cat, Keywords: keywords}
	}
	return &Tagger{rules: compiled}, nil
}

// ValidateRules rejects unknown categories, CONTEXT as an explicit rule and
// empty keyword lists.
func ValidateRules(rules []Rule) error {
	for i, r := range rules {
		cat, err := Parse(string(r.Category))
		if err != nil {
			return fmt.Errorf("%w: rule %d: %v", ErrInvalidRule, i, err)
		}
		if cat == Context {
			return fmt.Errorf("%w: rule %d: %s is the fallback and cannot be a rule", ErrInvalidRule, i, Context)
		}
		if len(r.Keywords) == 0 {
			return fmt.Errorf("%w: rule %d (%s): no keywords", ErrInvalidRule, i, cat)
		}
		for _, k := range r.Keywords {
			if strings.TrimSpace(k) == "" {
				return fmt.Errorf("%w: rule %d (%s): blank keyword", ErrInvalidRule, i, cat)
			}
		}
	}
	return nil
}

// Tag returns the category of text. It never fails; unmatched text is Context.
func (t *Tagger) Tag(text string) Category {
	lower := strings.ToLower(text)
	for _, rule := range t.rules {
		for _, k := range rule.Keywords {
			if strings.Contains(lower, k) {
				return rule.Category
			}
		}
	}
	return Context
}

// Rules returns a copy of the rules in priority order.
func (t *Tagger) Rules() []Rule {
	out := make([]Rule, len(t.rules))
	for i, r := range t.rules {
		out[i] = Rule{Category: r.Category, Keywords: append([]string(nil), r.Keywords...)}
	}
	return out
}

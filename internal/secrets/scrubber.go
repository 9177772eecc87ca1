package secrets

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// RedactionsTotal counts redacted secrets.
// Labels: rule
var RedactionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "roomgate",
		Subsystem: "secrets",
		Name:      "redactions_total",
		Help:      "Total number of secrets redacted from persisted exchanges",
	},
	[]string{"rule"},
)

// Scrubber detects and redacts secrets.
type Scrubber interface {
	// Scrub returns text with every detected secret replaced.
	Scrub(text string) Result
	// Enabled reports whether scrubbing is active.
	Enabled() bool
}

// Finding is one detected secret, without its value.
type Finding struct {
	RuleID string
	Start  int
	End    int
}

// Result is the outcome of a Scrub call.
type Result struct {
	Scrubbed string
	Findings []Finding
}

// HasFindings reports whether anything was redacted.
func (r Result) HasFindings() bool {
	return len(r.Findings) > 0
}

// RuleIDs returns the distinct rule ids that matched, sorted.
func (r Result) RuleIDs() []string {
	seen := make(map[string]bool)
	var ids []string
	for _, f := range r.Findings {
		if !seen[f.RuleID] {
			seen[f.RuleID] = true
			ids = append(ids, f.RuleID)
		}
	}
	sort.Strings(ids)
	return ids
}

type scrubber struct {
	enabled   bool
	redaction string
	rules     []compiledRule
	allow     []*regexp.Regexp
}

// New builds a scrubber from cfg. The scrubber is immutable and safe for
// concurrent use.
func New(cfg Config) (Scrubber, error) {
	if !cfg.Enabled {
		return Noop{}, nil
	}
	if cfg.Redaction == "" {
		cfg.Redaction = DefaultRedaction
	}

	rules, err := compileRules(append(builtinRules(), cfg.ExtraRules...))
	if err != nil {
		return nil, err
	}
	allow := make([]*regexp.Regexp, 0, len(cfg.AllowList))
	for i, pattern := range cfg.AllowList {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("allow_list %d: invalid pattern: %w", i, err)
		}
		allow = append(allow, re)
	}

	return &scrubber{enabled: true, redaction: cfg.Redaction, rules: rules, allow: allow}, nil
}

type span struct{ start, end int }

func (s *scrubber) Scrub(text string) Result {
	var findings []Finding
	for _, rule := range s.rules {
		if !rule.applies(text) {
			continue
		}
		for _, m := range rule.pattern.FindAllStringIndex(text, -1) {
			if s.allowed(text[m[0]:m[1]]) {
				continue
			}
			findings = append(findings, Finding{RuleID: rule.id, Start: m[0], End: m[1]})
			RedactionsTotal.WithLabelValues(rule.id).Inc()
		}
	}
	if len(findings) == 0 {
		return Result{Scrubbed: text}
	}

	spans := make([]span, len(findings))
	for i, f := range findings {
		spans[i] = span{f.Start, f.End}
	}
	sort.Slice(spans, func(i, j int) bool { return spans[i].start < spans[j].start })

	// Merge overlapping matches, then rebuild left to right.
	merged := []span{spans[0]}
	for _, sp := range spans[1:] {
		last := &merged[len(merged)-1]
		if sp.start <= last.end {
			last.end = max(last.end, sp.end)
			continue
		}
		merged = append(merged, sp)
	}

	var b strings.Builder
	prev := 0
	for _, sp := range merged {
		b.WriteString(text[prev:sp.start])
		b.WriteString(s.redaction)
		prev = sp.end
	}
	b.WriteString(text[prev:])

	return Result{Scrubbed: b.String(), Findings: findings}
}

func (s *scrubber) Enabled() bool {
	return s.enabled
}

func (s *scrubber) allowed(match string) bool {
	for _, re := range s.allow {
		if re.MatchString(match) {
			return true
		}
	}
	return false
}

func (r compiledRule) applies(text string) bool {
	if len(r.keywords) == 0 {
		return true
	}
	for _, kw := range r.keywords {
		if kw.MatchString(text) {
			return true
		}
	}
	return false
}

// Noop returns text unchanged.
type Noop struct{}

// Scrub returns text unchanged.
func (Noop) Scrub(text string) Result {
	return Result{Scrubbed: text}
}

// Enabled returns false.
func (Noop) Enabled() bool {
	return false
}

var (
	_ Scrubber = (*scrubber)(nil)
	_ Scrubber = Noop{}
)

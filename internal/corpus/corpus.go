// Package corpus holds labelled exchanges used to train and validate the gate.
package corpus

import (
	"crypto/sha256"
	"embed"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
)

// Label is the gate verdict attached to an exchange.
type Label string

const (
	// LabelFlush marks a trivial exchange that is discarded.
	LabelFlush Label = "FLUSH"
	// LabelPersist marks an exchange worth keeping in long-term memory.
	LabelPersist Label = "PERSIST"
)

// Valid reports whether l is one of the two gate labels.
func (l Label) Valid() bool {
	return l == LabelFlush || l == LabelPersist
}

// ParseLabel accepts "flush"/"persist" in any case.
func ParseLabel(s string) (Label, error) {
	l := Label(strings.ToUpper(strings.TrimSpace(s)))
	if !l.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidLabel, s)
	}
	return l, nil
}

var (
	// ErrInvalidLabel indicates a label outside {FLUSH, PERSIST}.
	ErrInvalidLabel = errors.New("invalid label")

	// ErrEmptyText indicates an example with blank text.
	ErrEmptyText = errors.New("example text is empty")

	// ErrMissingClass indicates a corpus without both FLUSH and PERSIST examples.
	ErrMissingClass = errors.New("corpus must contain both FLUSH and PERSIST examples")
)

// Example is one labelled exchange.
type Example struct {
	Text  string `toml:"text"`
	Label Label  `toml:"label"`
}

// Set is an ordered collection of labelled examples.
type Set struct {
	Name     string    `toml:"name"`
	Examples []Example `toml:"example"`
}

//go:embed data/*.toml
var builtin embed.FS

// Training returns the built-in training corpus.
func Training() (*Set, error) {
	return loadBuiltin("training.toml")
}

// Validation returns the built-in labelled validation cases.
func Validation() (*Set, error) {
	return loadBuiltin("validation.toml")
}

// Novel returns held-out examples that never appear in the training corpus.
func Novel() (*Set, error) {
	return loadBuiltin("novel.toml")
}

func loadBuiltin(name string) (*Set, error) {
	data, err := builtin.ReadFile("data/" + name)
	if err != nil {
		return nil, fmt.Errorf("reading built-in corpus %s: %w", name, err)
	}
	return decode(data, name)
}

// Load reads a TOML corpus from disk.
//
// The file format is:
//
//	name = "my-corpus"
//
//	[[example]]
//	text = "my dad died yesterday"
//	label = "PERSIST"
func Load(path string) (*Set, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading corpus: %w", err)
	}
	return decode(data, path)
}

func decode(data []byte, source string) (*Set, error) {
	var set Set
	if _, err := toml.Decode(string(data), &set); err != nil {
		return nil, fmt.Errorf("decoding corpus %s: %w", source, err)
	}
	for i := range set.Examples {
		label, err := ParseLabel(string(set.Examples[i].Label))
		if err != nil {
			return nil, fmt.Errorf("corpus %s example %d: %w", source, i, err)
		}
		set.Examples[i].Label = label
	}
	if set.Name == "" {
		set.Name = source
	}
	return &set, nil
}

// Counts returns the number of FLUSH and PERSIST examples.
func (s *Set) Counts() (flush, persist int) {
	for _, ex := range s.Examples {
		switch ex.Label {
		case LabelFlush:
			flush++
		case LabelPersist:
			persist++
		}
	}
	return flush, persist
}

// Validate checks every example has text and a valid label.
// Training sets additionally need both classes; see ValidateForTraining.
func (s *Set) Validate() error {
	if len(s.Examples) == 0 {
		return fmt.Errorf("corpus %s: no examples", s.Name)
	}
	for i, ex := range s.Examples {
		if strings.TrimSpace(ex.Text) == "" {
			return fmt.Errorf("corpus %s example %d: %w", s.Name, i, ErrEmptyText)
		}
		if !ex.Label.Valid() {
			return fmt.Errorf("corpus %s example %d: %w: %q", s.Name, i, ErrInvalidLabel, ex.Label)
		}
	}
	return nil
}

// ValidateForTraining is Validate plus the requirement that both classes are present.
func (s *Set) ValidateForTraining() error {
	if err := s.Validate(); err != nil {
		return err
	}
	flush, persist := s.Counts()
	if flush == 0 || persist == 0 {
		return fmt.Errorf("corpus %s (%d flush, %d persist): %w", s.Name, flush, persist, ErrMissingClass)
	}
	return nil
}

// Texts returns the example texts in order.
func (s *Set) Texts() []string {
	texts := make([]string, len(s.Examples))
	for i, ex := range s.Examples {
		texts[i] = ex.Text
	}
	return texts
}

// Fingerprint is a stable sha256 over the ordered (text, label) pairs.
func (s *Set) Fingerprint() string {
	h := sha256.New()
	for _, ex := range s.Examples {
		h.Write([]byte(ex.Text))
		h.Write([]byte{0})
		h.Write([]byte(ex.Label))
		h.Write([]byte{'\n'})
	}
	return hex.EncodeToString(h.Sum(nil))
}

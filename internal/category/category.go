// Package category tags retained exchanges with the kind of relationship
// knowledge they carry.
package category

import (
	"fmt"
	"strings"
)

// Category labels what a persisted exchange tells us about the user.
type Category string

const (
	// Empathy covers loss, grief and emotionally heavy events.
	Empathy Category = "EMPATHY"

	// Understanding covers neurodivergence, health and disability.
	Understanding Category = "UNDERSTANDING"

	// Respect covers credentials, professions and expertise.
	Respect Category = "RESPECT"

	// Communication covers how the user wants to be spoken to.
	Communication Category = "COMMUNICATION"

	// Volatile covers time-bound plans, projects and deadlines.
	Volatile Category = "VOLATILE"

	// Context is the fallback when no rule matches.
	Context Category = "CONTEXT"
)

// validCategories maps category names to their typed values.
var validCategories = map[string]Category{
	"EMPATHY":       Empathy,
	"UNDERSTANDING": Understanding,
	"RESPECT":       Respect,
	"COMMUNICATION": Communication,
	"VOLATILE":      Volatile,
	"CONTEXT":       Context,
}

// Parse converts a category name, in any case, to a Category.
func Parse(s string) (Category, error) {
	c, ok := validCategories[strings.ToUpper(strings.TrimSpace(s))]
	if !ok {
		return "", fmt.Errorf("unknown category %q", s)
	}
	return c, nil
}

// String implements fmt.Stringer.
func (c Category) String() string {
	return string(c)
}

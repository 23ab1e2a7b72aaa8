package annotation

import (
	"fmt"
	"slices"
)

// Category is a family of rhetorical actions.
type Category string

const (
	Emphasize Category = "EMPHASIZE"
	Contrast  Category = "CONTRAST"
	Argue     Category = "ARGUE"
)

// Categories lists the categories in display order.
var Categories = []Category{Emphasize, Contrast, Argue}

var verbCatalog = map[Category][]string{
	Emphasize: {"Highlight", "Underscore", "Reinforce", "Accentuate"},
	Contrast:  {"Juxtapose", "Distinguish", "Differentiate", "Counter"},
	Argue:     {"Assert", "Contend", "Maintain", "Postulate"},
}

// Verb tags an annotation with the rhetorical action the author performs.
type Verb struct {
	Category Category `json:"category"`
	Verb     string   `json:"verb"`
}

// Valid reports whether v is one of the fixed category/verb pairs.
func (v Verb) Valid() bool {
	return slices.Contains(verbCatalog[v.Category], v.Verb)
}

// NewVerb validates a category/verb pair.
func NewVerb(category Category, verb string) (Verb, error) {
	v := Verb{Category: category, Verb: verb}
	if !v.Valid() {
		return Verb{}, fmt.Errorf("unknown rhetorical verb %s/%s", category, verb)
	}
	return v, nil
}

// VerbsFor returns the verbs of a category, or nil for an unknown one.
func VerbsFor(category Category) []string {
	return slices.Clone(verbCatalog[category])
}

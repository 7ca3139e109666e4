package exam

import "strings"

// Canonical question types, listed in presentation precedence order:
// single-choice blocks come first in an assembled paper, subjective last.
const (
	TypeSingle     = "single"
	TypeMultiple   = "multiple"
	TypeFill       = "fill"
	TypeSubjective = "subjective"
)

// Types in precedence order.
var Types = []string{TypeSingle, TypeMultiple, TypeFill, TypeSubjective}

var typeOrder = map[string]int{
	TypeSingle:     0,
	TypeMultiple:   1,
	TypeFill:       2,
	TypeSubjective: 3,
}

// Rules may carry free-form or localized type labels; this table maps them
// onto the canonical enum. Anything outside it cannot be scored.
var typeSynonyms = map[string]string{
	"single":          TypeSingle,
	"single_choice":   TypeSingle,
	"scq":             TypeSingle,
	"单选":              TypeSingle,
	"单选题":             TypeSingle,
	"multiple":        TypeMultiple,
	"multiple_choice": TypeMultiple,
	"mcq":             TypeMultiple,
	"多选":              TypeMultiple,
	"多选题":             TypeMultiple,
	"fill":            TypeFill,
	"gap":             TypeFill,
	"blank":           TypeFill,
	"填空":              TypeFill,
	"填空题":             TypeFill,
	"subjective":      TypeSubjective,
	"essay":           TypeSubjective,
	"主观":              TypeSubjective,
	"主观题":             TypeSubjective,
}

// NormalizeType maps a type label to its canonical form. Unrecognized labels
// return ok=false; the resolver drops them rather than erroring.
func NormalizeType(label string) (string, bool) {
	t, ok := typeSynonyms[strings.ToLower(strings.TrimSpace(label))]
	return t, ok
}

// TypeOrder returns the sort rank of a canonical type; unknown types sort last.
func TypeOrder(t string) int {
	if o, ok := typeOrder[t]; ok {
		return o
	}
	return len(typeOrder)
}

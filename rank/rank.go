// Package rank implements the access tier policy: a total order over the
// three tiers that gates which content a viewer may watch.
package rank

import "strings"

// Rank is an access tier.
type Rank string

const (
	Free   Rank = "free"
	Middle Rank = "middle"
	Top    Rank = "top"
)

// Ranks lists all tiers in ascending order.
var Ranks = []Rank{Free, Middle, Top}

var order = map[Rank]int{
	Free:   1,
	Middle: 2,
	Top:    3,
}

// Parse normalizes a rank value read from storage or a form. Unknown or
// empty values degrade to Free.
func Parse(s string) Rank {
	r := Rank(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := order[r]; !ok {
		return Free
	}
	return r
}

// Valid reports whether s names one of the three tiers. Unlike Parse it does
// not coerce: URL segments with an unknown tier are rejected, not defaulted.
func Valid(s string) bool {
	_, ok := order[Rank(strings.ToLower(strings.TrimSpace(s)))]
	return ok
}

// Order returns the position of r in the tier order, or 0 for unknown values
// so that they fail every comparison.
func Order(r Rank) int {
	return order[r]
}

// CanWatch reports whether a viewer with rank viewer may watch content with
// rank content.
func CanWatch(viewer, content Rank) bool {
	return Order(viewer) >= Order(content)
}

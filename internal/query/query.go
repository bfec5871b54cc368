// Package query translates the pseudo-SQL statements typed into the search
// box into a Spec: which columns to show, which metadata predicate to forward
// to the backend, the similarity operand and the row limit.
//
// The grammar is a permissive subset keyed on a fixed clause vocabulary
// (select, from, where, and, or, limit). Nothing here returns an error:
// input that does not fit degrades to "show everything, no filter".
package query

import (
	"sort"
	"strings"
)

// FallbackLimit replaces a non-positive default limit.
const FallbackLimit = 10

// Projection is the set of result fields a statement asks to display.
// The zero value is the unrestricted projection.
type Projection struct {
	fields map[string]struct{}
}

// All returns the unrestricted projection.
func All() Projection { return Projection{} }

// Named returns a projection limited to fields. Names are lowercased; an
// empty list, or one containing "*", yields All.
func Named(fields ...string) Projection {
	if len(fields) == 0 {
		return All()
	}
	set := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		f = strings.ToLower(strings.TrimSpace(f))
		if f == "*" {
			return All()
		}
		set[f] = struct{}{}
	}
	return Projection{fields: set}
}

// IsAll reports whether p is unrestricted.
func (p Projection) IsAll() bool { return p.fields == nil }

// Shows reports whether any of names is visible under p.
func (p Projection) Shows(names ...string) bool {
	if p.IsAll() {
		return true
	}
	for _, n := range names {
		if _, ok := p.fields[strings.ToLower(n)]; ok {
			return true
		}
	}
	return false
}

// Fields returns the named fields in sorted order, or nil for All.
func (p Projection) Fields() []string {
	if p.IsAll() {
		return nil
	}
	out := make([]string, 0, len(p.fields))
	for f := range p.fields {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

func (p Projection) String() string {
	if p.IsAll() {
		return "*"
	}
	return strings.Join(p.Fields(), ", ")
}

// Similarity is the "query by example" sub-expression of a where clause,
// e.g. audio_sim <-> '034996' or lyric @@ 'love'.
type Similarity struct {
	Field     string
	Operator  string
	Reference string
}

// Spec is the structured form of one statement.
type Spec struct {
	Projection Projection
	Similarity *Similarity
	// Predicate is the backend-opaque metadata filter. Empty means absent:
	// extracted fragments are never empty.
	Predicate string
	Limit     int
}

// HasPredicate reports whether a metadata predicate was extracted.
func (s Spec) HasPredicate() bool { return s.Predicate != "" }

// Reference returns the similarity operand, or "" when there is none.
func (s Spec) Reference() string {
	if s.Similarity == nil {
		return ""
	}
	return s.Similarity.Reference
}

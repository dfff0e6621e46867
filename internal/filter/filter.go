// Package filter decides which archive entries a run selects, from include and
// exclude glob lists.
package filter

import "github.com/meigma/unzip/internal/glob"

// Filter is an immutable include/exclude predicate over entry names.
// It is safe for concurrent use.
type Filter struct {
	include         []string
	exclude         []string
	caseInsensitive bool
}

// New builds a Filter. When caseInsensitive is set the patterns are
// lower-cased once here and every name is lower-cased per call.
func New(include, exclude []string, caseInsensitive bool) *Filter {
	f := &Filter{caseInsensitive: caseInsensitive}
	f.include = prepare(include, caseInsensitive)
	f.exclude = prepare(exclude, caseInsensitive)
	return f
}

func prepare(patterns []string, fold bool) []string {
	if len(patterns) == 0 {
		return nil
	}
	out := make([]string, len(patterns))
	for i, p := range patterns {
		if fold {
			p = asciiLower(p)
		}
		out[i] = p
	}
	return out
}

// Empty reports whether the filter selects every name.
func (f *Filter) Empty() bool {
	return f == nil || (len(f.include) == 0 && len(f.exclude) == 0)
}

// Match reports whether name is selected. Exclusion always wins over
// inclusion, and an empty include list selects everything not excluded.
func (f *Filter) Match(name string) bool {
	if f.Empty() {
		return true
	}
	if f.caseInsensitive {
		name = asciiLower(name)
	}
	for _, p := range f.exclude {
		if glob.Match(p, name) {
			return false
		}
	}
	if len(f.include) == 0 {
		return true
	}
	for _, p := range f.include {
		if glob.Match(p, name) {
			return true
		}
	}
	return false
}

// asciiLower lower-cases ASCII letters only and avoids allocating when s has
// none.
func asciiLower(s string) string {
	for i := 0; i < len(s); i++ {
		if s[i] >= 'A' && s[i] <= 'Z' {
			b := []byte(s)
			for j := i; j < len(b); j++ {
				if b[j] >= 'A' && b[j] <= 'Z' {
					b[j] += 'a' - 'A'
				}
			}
			return string(b)
		}
	}
	return s
}

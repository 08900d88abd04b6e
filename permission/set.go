package permission

import "sort"

// Set is an immutable set of permission codes collected from a user's roles.
type Set struct {
	codes map[string]struct{}
}

// NewSet builds a Set from permission codes. Blank codes are dropped.
func NewSet(codes ...string) Set {
	s := Set{codes: make(map[string]struct{}, len(codes))}
	for _, c := range codes {
		if c == "" {
			continue
		}
		s.codes[c] = struct{}{}
	}
	return s
}

// Has reports whether code is granted.
func (s Set) Has(code string) bool {
	_, ok := s.codes[code]
	return ok
}

// Len returns the number of granted codes.
func (s Set) Len() int {
	return len(s.codes)
}

// Codes returns the granted codes sorted.
func (s Set) Codes() []string {
	out := make([]string, 0, len(s.codes))
	for c := range s.codes {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

package model

import "slices"

// Set is a collection of proxies deduplicated by Key. It is not safe for
// concurrent use.
type Set struct {
	m map[Key]Proxy
}

func NewSet(proxies ...Proxy) *Set {
	s := &Set{m: make(map[Key]Proxy, len(proxies))}
	for _, p := range proxies {
		s.Add(p)
	}
	return s
}

// Add inserts p and reports whether it was not already present.
func (s *Set) Add(p Proxy) bool {
	if s.m == nil {
		s.m = make(map[Key]Proxy)
	}
	k := p.Key()
	if _, ok := s.m[k]; ok {
		return false
	}
	s.m[k] = p
	return true
}

func (s *Set) Contains(p Proxy) bool {
	_, ok := s.m[p.Key()]
	return ok
}

func (s *Set) Len() int { return len(s.m) }

// Union adds every proxy of o to s.
func (s *Set) Union(o *Set) {
	for _, p := range o.m {
		s.Add(p)
	}
}

// Equal reports whether s and o hold the same keys.
func (s *Set) Equal(o *Set) bool {
	if s.Len() != o.Len() {
		return false
	}
	for k := range s.m {
		if _, ok := o.m[k]; !ok {
			return false
		}
	}
	return true
}

// Slice returns the proxies sorted with Compare.
func (s *Set) Slice() []Proxy {
	out := make([]Proxy, 0, len(s.m))
	for _, p := range s.m {
		out = append(out, p)
	}
	slices.SortFunc(out, Compare)
	return out
}

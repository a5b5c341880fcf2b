package model

import "testing"

func mustNew(t *testing.T, host string, port int, s Scheme) Proxy {
	t.Helper()
	p, err := New(host, port, s, Credentials{})
	if err != nil {
		t.Fatalf("New(%q, %d): %v", host, port, err)
	}
	return p
}

func TestSet_Dedup(t *testing.T) {
	s := NewSet(
		mustNew(t, "1.2.3.4", 8080, SchemeHTTP),
		mustNew(t, "1.2.3.4", 8080, SchemeHTTP),
		mustNew(t, "1.2.3.4", 8081, SchemeHTTP),
	)
	if s.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", s.Len())
	}
	if s.Add(mustNew(t, "1.2.3.4", 8081, SchemeHTTP)) {
		t.Fatal("Add of a duplicate reported insertion")
	}
}

func TestSet_UnionAndSlice(t *testing.T) {
	a := NewSet(mustNew(t, "10.0.0.2", 80, SchemeHTTP))
	b := NewSet(mustNew(t, "10.0.0.1", 80, SchemeHTTP), mustNew(t, "10.0.0.2", 80, SchemeHTTP))
	a.Union(b)
	got := a.Slice()
	if len(got) != 2 || got[0].Host() != "10.0.0.1" || got[1].Host() != "10.0.0.2" {
		t.Fatalf("Slice() = %v", got)
	}
	if !a.Equal(b) {
		t.Fatal("sets should be equal")
	}
}

func TestSet_ZeroValue(t *testing.T) {
	var s Set
	if !s.Add(mustNew(t, "10.0.0.1", 80, SchemeHTTP)) || s.Len() != 1 {
		t.Fatal("zero Set must be usable")
	}
}

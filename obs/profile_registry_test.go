package obs

import "testing"

func TestProfileRegistrySummarySortedByName(t *testing.T) {
	p := NewProfileRegistry()
	p.StartScope("Zeta")()
	p.StartScope("Alpha")()
	p.StartScope("Alpha")()

	summary := p.Summary()
	if len(summary) != 2 {
		t.Fatalf("got %d scopes, want 2", len(summary))
	}
	if summary[0].Name != "Alpha" || summary[1].Name != "Zeta" {
		t.Fatalf("summary not sorted by name: %+v", summary)
	}
	if summary[0].Count != 2 {
		t.Fatalf("Alpha count = %d, want 2", summary[0].Count)
	}
}

func TestProfileRegistryTracksMinMax(t *testing.T) {
	p := NewProfileRegistry()
	p.record("Scope", 100)
	p.record("Scope", 50)
	p.record("Scope", 200)

	summary := p.Summary()
	s := summary[0]
	if s.MinNs != 50 || s.MaxNs != 200 || s.TotalNs != 350 || s.Count != 3 {
		t.Fatalf("got %+v", s)
	}
}

func TestNilProfileRegistryIsSafe(t *testing.T) {
	var p *ProfileRegistry
	stop := p.StartScope("x")
	stop()
	if p.Summary() != nil {
		t.Fatal("nil registry Summary() should return nil")
	}
}

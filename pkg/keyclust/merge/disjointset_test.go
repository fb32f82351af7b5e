package merge

import "testing"

func TestDisjointSetUnionFind(t *testing.T) {
	ds := NewDisjointSet(6)
	if ds.Len() != 6 {
		t.Fatalf("Len = %d, want 6", ds.Len())
	}

	if !ds.Union(0, 1) {
		t.Error("first union of 0 and 1 should report a merge")
	}
	if ds.Union(1, 0) {
		t.Error("repeated union should report no merge")
	}
	ds.Union(2, 3)
	ds.Union(1, 3)

	if !ds.Connected(0, 2) {
		t.Error("0 and 2 should be connected through 1-3")
	}
	if ds.Connected(0, 4) {
		t.Error("0 and 4 were never joined")
	}

	classes := ds.Classes()
	if len(classes) != 3 {
		t.Fatalf("expected 3 classes, got %d: %v", len(classes), classes)
	}
	want := []int{0, 1, 2, 3}
	for i, m := range classes[0] {
		if m != want[i] {
			t.Fatalf("first class = %v, want %v", classes[0], want)
		}
	}
	if classes[1][0] != 4 || classes[2][0] != 5 {
		t.Errorf("classes should be ordered by smallest member: %v", classes)
	}
}

func TestDisjointSetPathCompression(t *testing.T) {
	ds := NewDisjointSet(5)
	// Build a chain by hand so Find has something to compress.
	ds.parent[4] = 3
	ds.parent[3] = 2
	ds.parent[2] = 1
	ds.parent[1] = 0

	if root := ds.Find(4); root != 0 {
		t.Fatalf("Find(4) = %d, want 0", root)
	}
	for i := 1; i < 5; i++ {
		if ds.parent[i] != 0 {
			t.Errorf("parent[%d] = %d after Find, want 0", i, ds.parent[i])
		}
	}
}

func TestDisjointSetEmpty(t *testing.T) {
	ds := NewDisjointSet(0)
	if len(ds.Classes()) != 0 {
		t.Error("empty set should have no classes")
	}
}

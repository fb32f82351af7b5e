package merge

// DisjointSet is a union-find structure over the indices 0..n-1 with path
// compression and union by rank. A DisjointSet belongs to a single Merge
// call; once two indices are joined they stay joined.
type DisjointSet struct {
	parent []int
	rank   []int
}

// NewDisjointSet creates n singleton sets.
func NewDisjointSet(n int) *DisjointSet {
	parent := make([]int, n)
	for i := range parent {
		parent[i] = i
	}
	return &DisjointSet{parent: parent, rank: make([]int, n)}
}

// Len returns the number of elements.
func (d *DisjointSet) Len() int {
	return len(d.parent)
}

// Find returns the root of x, compressing the path on the way.
func (d *DisjointSet) Find(x int) int {
	root := x
	for d.parent[root] != root {
		root = d.parent[root]
	}
	for d.parent[x] != root {
		next := d.parent[x]
		d.parent[x] = root
		x = next
	}
	return root
}

// Union joins the sets holding a and b. It reports whether they were
// previously disjoint.
func (d *DisjointSet) Union(a, b int) bool {
	ra, rb := d.Find(a), d.Find(b)
	if ra == rb {
		return false
	}
	switch {
	case d.rank[ra] < d.rank[rb]:
		d.parent[ra] = rb
	case d.rank[ra] > d.rank[rb]:
		d.parent[rb] = ra
	default:
		d.parent[rb] = ra
		d.rank[ra]++
	}
	return true
}

// Connected reports whether a and b share a root.
func (d *DisjointSet) Connected(a, b int) bool {
	return d.Find(a) == d.Find(b)
}

// Classes returns every set as an ascending slice of members. Sets are
// ordered by their smallest member.
func (d *DisjointSet) Classes() [][]int {
	slot := make(map[int]int)
	var classes [][]int
	for i := range d.parent {
		root := d.Find(i)
		idx, ok := slot[root]
		if !ok {
			idx = len(classes)
			slot[root] = idx
			classes = append(classes, nil)
		}
		classes[idx] = append(classes[idx], i)
	}
	return classes
}

package aggregate

import (
	"sort"
	"strconv"

	"github.com/cognicore/keyclust/pkg/keyclust/intent"
)

// PageType labels the role of a page within its category.
type PageType string

const (
	Pillar     PageType = "Pillar"
	Cluster    PageType = "Cluster"
	SubCluster PageType = "Sub-Cluster"
)

// DefaultPillarVolume is the category volume at which a dominant page
// becomes a pillar.
const DefaultPillarVolume = 100000

// Classify returns the page type of a volume against its category total.
// Only a volume that accounts for the whole category dominates it.
func Classify(volume, categoryTotal, pillarVolume float64) PageType {
	if volume != categoryTotal {
		return SubCluster
	}
	if volume >= pillarVolume {
		return Pillar
	}
	return Cluster
}

// Item is a merged, classified phrase ready for grouping.
type Item struct {
	Phrase     string
	Normalized string
	Volume     float64
	Intent     intent.Label
	Title      string
	Category   string
	// Sources is the number of input phrases merged into this one.
	Sources int
}

// Member is an Item placed in a group.
type Member struct {
	Item
	PageType PageType
}

// Group is every item sharing a (category, intent) pair.
type Group struct {
	Category       string
	Intent         intent.Label
	Volume         float64
	CategoryVolume float64
	PageType       PageType
	Members        []Member
}

// Aggregator groups items and assigns page types.
type Aggregator struct {
	pillarVolume float64
}

// New creates an Aggregator. A negative threshold is treated as zero.
func New(pillarVolume float64) *Aggregator {
	if pillarVolume < 0 {
		pillarVolume = 0
	}
	return &Aggregator{pillarVolume: pillarVolume}
}

type groupKey struct {
	category string
	intent   intent.Label
}

// Group buckets items by (category, intent), sums volumes and labels both
// groups and members against their category total. Groups are ordered by
// category then intent; members by volume, highest first.
func (a *Aggregator) Group(items []Item) []Group {
	index := make(map[groupKey]int)
	var groups []Group
	for _, it := range items {
		k := groupKey{category: it.Category, intent: it.Intent}
		idx, ok := index[k]
		if !ok {
			idx = len(groups)
			index[k] = idx
			groups = append(groups, Group{Category: it.Category, Intent: it.Intent})
		}
		groups[idx].Members = append(groups[idx].Members, Member{Item: it})
	}

	sort.SliceStable(groups, func(i, j int) bool {
		if groups[i].Category != groups[j].Category {
			return groups[i].Category < groups[j].Category
		}
		return groups[i].Intent < groups[j].Intent
	})

	categoryTotals := make(map[string]float64)
	for i := range groups {
		g := &groups[i]
		sort.SliceStable(g.Members, func(x, y int) bool {
			mx, my := g.Members[x], g.Members[y]
			if mx.Volume != my.Volume {
				return mx.Volume > my.Volume
			}
			return mx.Phrase < my.Phrase
		})
		for _, m := range g.Members {
			g.Volume += m.Volume
		}
		categoryTotals[g.Category] += g.Volume
	}

	for i := range groups {
		g := &groups[i]
		g.CategoryVolume = categoryTotals[g.Category]
		g.PageType = Classify(g.Volume, g.CategoryVolume, a.pillarVolume)
		for j := range g.Members {
			g.Members[j].PageType = Classify(g.Members[j].Volume, g.CategoryVolume, a.pillarVolume)
		}
	}
	return groups
}

// Summary counts what a grouping produced.
type Summary struct {
	Categories  int
	Groups      int
	Phrases     int
	Pillars     int
	Clusters    int
	SubClusters int
}

// Summarize tallies groups. Page types are counted per phrase.
func Summarize(groups []Group) Summary {
	cats := make(map[string]struct{})
	s := Summary{Groups: len(groups)}
	for _, g := range groups {
		cats[g.Category] = struct{}{}
		for _, m := range g.Members {
			s.Phrases++
			switch m.PageType {
			case Pillar:
				s.Pillars++
			case Cluster:
				s.Clusters++
			default:
				s.SubClusters++
			}
		}
	}
	s.Categories = len(cats)
	return s
}

// FormatVolume renders a volume without a trailing ".0" for whole numbers.
func FormatVolume(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

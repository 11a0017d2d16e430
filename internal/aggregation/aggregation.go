// Package aggregation computes grouped statistics over in-memory record sets.
//
// The engine is pure: callers fetch and filter raw records, then describe the
// grouping dimension and metrics with a Grouping. Percentages and averages over an
// empty population are 0, never NaN.
package aggregation

import (
	"cmp"
	"math"
	"slices"
	"sort"
	"time"
)

// Grouping describes how records are grouped and which metrics are computed per group.
type Grouping[T any, K cmp.Ordered] struct {
	// Key selects the grouping dimension.
	Key func(T) K
	// Category enables the percentage breakdown over a categorical field.
	Category func(T) string
	// Categories are always emitted, in this order, even with zero count.
	Categories []string
	// Ratio enables the ratio-average metric (score/max*100). Records with max <= 0 are excluded.
	Ratio func(T) (score, max float64)
	// Value enables a plain average when Ratio is nil.
	Value func(T) float64
	// Ranked orders groups by count descending, ties by key ascending.
	Ranked bool
	// Limit truncates the output when positive.
	Limit int
}

// CategoryCount is the count and share of one category within a group.
type CategoryCount struct {
	Category   string  `json:"category"`
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
}

// Group is the metric set computed for one grouping key.
type Group[K cmp.Ordered] struct {
	Key        K               `json:"key"`
	Count      int             `json:"count"`
	Categories []CategoryCount `json:"categories,omitempty"`
	Average    float64         `json:"average"`
	Minimum    float64         `json:"minimum"`
	Maximum    float64         `json:"maximum"`
	Excluded   int             `json:"excluded,omitempty"`
}

// Category returns the breakdown entry for name, or a zero entry when absent.
func (g Group[K]) Category(name string) CategoryCount {
	for _, c := range g.Categories {
		if c.Category == name {
			return c
		}
	}
	return CategoryCount{Category: name}
}

type accumulator[T any, K cmp.Ordered] struct {
	count    int
	cats     map[string]int
	sum      float64
	min      float64
	max      float64
	sampled  int
	excluded int
}

// Aggregate groups records by grouping.Key and computes the configured metrics.
func Aggregate[T any, K cmp.Ordered](records []T, grouping Grouping[T, K]) []Group[K] {
	if grouping.Key == nil {
		return nil
	}
	accs := make(map[K]*accumulator[T, K])
	keys := make([]K, 0)
	for _, record := range records {
		key := grouping.Key(record)
		acc, ok := accs[key]
		if !ok {
			acc = &accumulator[T, K]{cats: make(map[string]int)}
			accs[key] = acc
			keys = append(keys, key)
		}
		acc.add(record, grouping)
	}

	groups := make([]Group[K], 0, len(keys))
	for _, key := range keys {
		groups = append(groups, accs[key].group(key, grouping))
	}

	if grouping.Ranked {
		sort.SliceStable(groups, func(i, j int) bool {
			if groups[i].Count != groups[j].Count {
				return groups[i].Count > groups[j].Count
			}
			return groups[i].Key < groups[j].Key
		})
	} else {
		slices.SortFunc(groups, func(a, b Group[K]) int { return cmp.Compare(a.Key, b.Key) })
	}

	if grouping.Limit > 0 && len(groups) > grouping.Limit {
		groups = groups[:grouping.Limit]
	}
	return groups
}

// Summarize computes the metric set over all records as a single group.
// An empty input yields a zero group with every fixed category present.
func Summarize[T any](records []T, grouping Grouping[T, int]) Group[int] {
	grouping.Key = func(T) int { return 0 }
	grouping.Ranked = false
	grouping.Limit = 0
	groups := Aggregate(records, grouping)
	if len(groups) == 0 {
		acc := &accumulator[T, int]{cats: map[string]int{}}
		return acc.group(0, grouping)
	}
	return groups[0]
}

// Distinct counts unique values of key across records.
func Distinct[T any, K comparable](records []T, key func(T) K) int {
	seen := make(map[K]struct{}, len(records))
	for _, record := range records {
		seen[key(record)] = struct{}{}
	}
	return len(seen)
}

func (a *accumulator[T, K]) add(record T, grouping Grouping[T, K]) {
	a.count++
	if grouping.Category != nil {
		a.cats[grouping.Category(record)]++
	}
	switch {
	case grouping.Ratio != nil:
		score, outOf := grouping.Ratio(record)
		if outOf <= 0 {
			a.excluded++
			return
		}
		a.sample(score * 100 / outOf)
	case grouping.Value != nil:
		a.sample(grouping.Value(record))
	}
}

func (a *accumulator[T, K]) sample(v float64) {
	if a.sampled == 0 || v < a.min {
		a.min = v
	}
	if a.sampled == 0 || v > a.max {
		a.max = v
	}
	a.sum += v
	a.sampled++
}

func (a *accumulator[T, K]) group(key K, grouping Grouping[T, K]) Group[K] {
	g := Group[K]{Key: key, Count: a.count, Excluded: a.excluded}
	if a.sampled > 0 {
		g.Average = Round2(a.sum / float64(a.sampled))
		g.Minimum = Round2(a.min)
		g.Maximum = Round2(a.max)
	}
	if grouping.Category != nil {
		g.Categories = a.breakdown(grouping.Categories)
	}
	return g
}

func (a *accumulator[T, K]) breakdown(fixed []string) []CategoryCount {
	out := make([]CategoryCount, 0, len(fixed)+len(a.cats))
	listed := make(map[string]struct{}, len(fixed))
	for _, name := range fixed {
		listed[name] = struct{}{}
		out = append(out, CategoryCount{Category: name, Count: a.cats[name], Percentage: Percentage(a.cats[name], a.count)})
	}
	extra := make([]string, 0)
	for name := range a.cats {
		if _, ok := listed[name]; !ok {
			extra = append(extra, name)
		}
	}
	sort.Strings(extra)
	for _, name := range extra {
		out = append(out, CategoryCount{Category: name, Count: a.cats[name], Percentage: Percentage(a.cats[name], a.count)})
	}
	return out
}

// Percentage returns part/total*100 rounded to two decimals, or 0 when total is 0.
func Percentage(part, total int) float64 {
	if total <= 0 {
		return 0
	}
	return Round2(float64(part) * 100 / float64(total))
}

// Round2 rounds to two decimal places.
func Round2(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return math.Round(v*100) / 100
}

// DateKey buckets a timestamp by calendar day.
func DateKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// HourKey buckets a timestamp by UTC hour of day, 0-23.
func HourKey(t time.Time) int {
	return t.UTC().Hour()
}

// DayKey buckets a timestamp by UTC day of week, 0 = Sunday.
func DayKey(t time.Time) int {
	return int(t.UTC().Weekday())
}

// Package quadrant buckets content items into a supply x demand opportunity
// matrix.
package quadrant

import (
	"fmt"
	"math"
	"sort"

	"github.com/qinglingtaxue/youtube--sub001/pkg/errcode"
)

// ID is the stable identifier of a quadrant: "<x>-<y>" with the supply
// (X) side first.
type ID string

const (
	LowLow   ID = "low-low"
	LowHigh  ID = "low-high"
	HighLow  ID = "high-low"
	HighHigh ID = "high-high"
)

// IDs lists the quadrants in their stable order.
var IDs = []ID{LowLow, LowHigh, HighLow, HighHigh}

// DefaultLabels names the quadrants for a supply x demand matrix.
var DefaultLabels = map[ID]string{
	LowLow:   "Niche",
	LowHigh:  "Blue Ocean",
	HighLow:  "Saturated",
	HighHigh: "Red Ocean",
}

// ParseID validates a quadrant id.
func ParseID(s string) (ID, error) {
	for _, id := range IDs {
		if string(id) == s {
			return id, nil
		}
	}
	return "", fmt.Errorf("unknown quadrant %q", s)
}

func makeID(highX, highY bool) ID {
	switch {
	case highX && highY:
		return HighHigh
	case highX:
		return HighLow
	case highY:
		return LowHigh
	default:
		return LowLow
	}
}

// Item is one content item positioned on both axes.
type Item struct {
	ID string  `json:"id"`
	X  float64 `json:"x"`
	Y  float64 `json:"y"`
}

// AxisSpec names an axis and optionally fixes its split point. A nil
// Threshold means the median of the observed values.
type AxisSpec struct {
	Name      string
	Threshold *float64
}

// Fixed returns a pointer to v, for AxisSpec.Threshold.
func Fixed(v float64) *float64 { return &v }

// Quadrant is one bucket of a classification.
type Quadrant struct {
	ID      ID       `json:"id"`
	Label   string   `json:"label"`
	Members []string `json:"members"`
	Count   int      `json:"count"`
}

// Axis describes how one axis was split.
type Axis struct {
	Name       string  `json:"name"`
	Threshold  float64 `json:"threshold"`
	Computed   bool    `json:"computed"`
	Distinct   int     `json:"distinct"`
	Degenerate bool    `json:"degenerate"`
}

// DegenerateAxisWarning reports an axis with fewer than two distinct values.
// Every item falls into that axis's low side.
type DegenerateAxisWarning struct {
	Axis     string
	Distinct int
}

func (w *DegenerateAxisWarning) Error() string {
	return fmt.Sprintf("axis %s has %d distinct value(s); all items classified low", w.Axis, w.Distinct)
}

// Code implements errcode.Coder.
func (w *DegenerateAxisWarning) Code() errcode.Code { return errcode.DegenerateAxis }

// Result is one classification run.
type Result struct {
	Quadrants map[ID]*Quadrant `json:"quadrants"`
	X         Axis             `json:"x_axis"`
	Y         Axis             `json:"y_axis"`
	// Skipped lists items with a non-finite axis value or a repeated id.
	Skipped  []string                 `json:"skipped,omitempty"`
	Warnings []*DegenerateAxisWarning `json:"-"`
}

// Ordered returns the quadrants in IDs order.
func (r *Result) Ordered() []*Quadrant {
	out := make([]*Quadrant, 0, len(IDs))
	for _, id := range IDs {
		out = append(out, r.Quadrants[id])
	}
	return out
}

// Of returns the quadrant an item was assigned to.
func (r *Result) Of(itemID string) (ID, bool) {
	for _, id := range IDs {
		members := r.Quadrants[id].Members
		i := sort.SearchStrings(members, itemID)
		if i < len(members) && members[i] == itemID {
			return id, true
		}
	}
	return "", false
}

// Total returns the number of classified items.
func (r *Result) Total() int {
	n := 0
	for _, q := range r.Quadrants {
		n += q.Count
	}
	return n
}

// Classify assigns every eligible item to exactly one quadrant. A value
// strictly above an axis threshold is high. Labels missing from labels fall
// back to DefaultLabels. An item repeating an earlier item's id is skipped,
// so the first occurrence decides. Otherwise the result depends only on the
// item set, not its order.
func Classify(items []Item, x, y AxisSpec, labels map[ID]string) *Result {
	res := &Result{
		Quadrants: make(map[ID]*Quadrant, len(IDs)),
		X:         Axis{Name: axisName(x.Name, "x")},
		Y:         Axis{Name: axisName(y.Name, "y")},
	}
	for _, id := range IDs {
		label := labels[id]
		if label == "" {
			label = DefaultLabels[id]
		}
		res.Quadrants[id] = &Quadrant{ID: id, Label: label, Members: []string{}}
	}

	eligible := make([]Item, 0, len(items))
	seen := make(map[string]struct{}, len(items))
	for _, it := range items {
		if _, dup := seen[it.ID]; dup {
			res.Skipped = append(res.Skipped, it.ID)
			continue
		}
		seen[it.ID] = struct{}{}
		if !finite(it.X) || !finite(it.Y) {
			res.Skipped = append(res.Skipped, it.ID)
			continue
		}
		eligible = append(eligible, it)
	}
	sort.Strings(res.Skipped)

	xs := make([]float64, len(eligible))
	ys := make([]float64, len(eligible))
	for i, it := range eligible {
		xs[i], ys[i] = it.X, it.Y
	}
	res.X = split(res.X, xs, x.Threshold)
	res.Y = split(res.Y, ys, y.Threshold)
	for _, ax := range []Axis{res.X, res.Y} {
		if ax.Degenerate {
			res.Warnings = append(res.Warnings, &DegenerateAxisWarning{Axis: ax.Name, Distinct: ax.Distinct})
		}
	}

	for _, it := range eligible {
		highX := !res.X.Degenerate && it.X > res.X.Threshold
		highY := !res.Y.Degenerate && it.Y > res.Y.Threshold
		q := res.Quadrants[makeID(highX, highY)]
		q.Members = append(q.Members, it.ID)
	}
	for _, q := range res.Quadrants {
		sort.Strings(q.Members)
		q.Count = len(q.Members)
	}
	return res
}

func axisName(name, fallback string) string {
	if name == "" {
		return fallback
	}
	return name
}

func split(ax Axis, values []float64, fixed *float64) Axis {
	ax.Distinct = distinct(values)
	if fixed != nil {
		ax.Threshold = *fixed
		return ax
	}
	ax.Computed = true
	if ax.Distinct < 2 {
		ax.Degenerate = true
		if len(values) > 0 {
			ax.Threshold = values[0]
		}
		return ax
	}
	ax.Threshold = Median(values)
	return ax
}

// Median returns the median of values, averaging the middle pair for even
// counts. It returns 0 for no values.
func Median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}

func distinct(values []float64) int {
	seen := make(map[float64]struct{}, len(values))
	for _, v := range values {
		seen[v] = struct{}{}
	}
	return len(seen)
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

package analysis

import (
	"context"
	"fmt"
	"sort"

	"github.com/qinglingtaxue/youtube--sub001/pkg/records"
	"github.com/qinglingtaxue/youtube--sub001/pkg/report"
)

// Pattern reports the keyword pairs that co-occur most often on videos.
type Pattern struct {
	TopN int
	// MinCount is the smallest co-occurrence count reported. Zero means 2.
	MinCount int
}

func (m *Pattern) Name() string { return NamePattern }

// KeywordPair is an unordered keyword pair with A < B.
type KeywordPair struct {
	A, B  string
	Count int
	Views float64
}

// CooccurringKeywords counts keyword pairs across videos, ordered by count
// descending then A, B ascending.
func CooccurringKeywords(ctx context.Context, videos []records.ContentRecord) ([]KeywordPair, error) {
	counts := make(map[[2]string]*KeywordPair)
	for i, v := range videos {
		if i%256 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		kws := v.NormalizedKeywords()
		for a := 0; a < len(kws); a++ {
			for b := a + 1; b < len(kws); b++ {
				key := [2]string{kws[a], kws[b]}
				p, ok := counts[key]
				if !ok {
					p = &KeywordPair{A: kws[a], B: kws[b]}
					counts[key] = p
				}
				p.Count++
				p.Views += v.Metric(records.MetricViews)
			}
		}
	}

	out := make([]KeywordPair, 0, len(counts))
	for _, p := range counts {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		if out[i].A != out[j].A {
			return out[i].A < out[j].A
		}
		return out[i].B < out[j].B
	})
	return out, nil
}

func (m *Pattern) Analyze(ctx context.Context, in *report.Input) ([]report.Conclusion, error) {
	pairs, err := CooccurringKeywords(ctx, in.ScopedVideos())
	if err != nil {
		return nil, err
	}
	minCount := m.MinCount
	if minCount <= 0 {
		minCount = 2
	}

	var out []report.Conclusion
	for i, p := range pairs {
		if i >= topN(m.TopN) || p.Count < minCount {
			break
		}
		avg := p.Views / float64(p.Count)
		out = append(out, report.Conclusion{
			ID:      fmt.Sprintf("pattern-%s+%s", p.A, p.B),
			Title:   fmt.Sprintf("Recurring pairing: %s + %s", p.A, p.B),
			Summary: fmt.Sprintf("%d videos combine %q and %q, averaging %.0f views.", p.Count, p.A, p.B, avg),
			Reasoning: []string{
				"Keyword pairs that recur across videos mark an established content format.",
				fmt.Sprintf("Rank %d of %d co-occurring pairs.", i+1, len(pairs)),
			},
			DataPoints: []report.DataPoint{
				{Label: "videos", Value: p.Count},
				{Label: "total_views", Value: p.Views},
				{Label: "average_views", Value: round4(avg)},
			},
			ActionItems: []string{fmt.Sprintf("Study top videos tagged %q and %q for a repeatable format.", p.A, p.B)},
			Priority:    2,
			Confidence:  in.Confidence(min(0.4+0.1*float64(p.Count), 0.9)),
		})
	}
	return out, nil
}

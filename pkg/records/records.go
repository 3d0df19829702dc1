// Package records defines the content records the data-collection pipeline
// produces and the per-window snapshots the analytics core consumes.
package records

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Kind is the type of a content record and of the graph node built from it.
type Kind string

const (
	KindVideo   Kind = "video"
	KindChannel Kind = "channel"
	KindKeyword Kind = "keyword"
)

// Kinds lists every valid kind in a stable order.
var Kinds = []Kind{KindVideo, KindChannel, KindKeyword}

// ParseKind validates a kind name.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case KindVideo, KindChannel, KindKeyword:
		return k, nil
	}
	return "", fmt.Errorf("unknown kind %q", s)
}

// Valid reports whether k is one of the known kinds.
func (k Kind) Valid() bool {
	_, err := ParseKind(string(k))
	return err == nil
}

// Metric names recorded by the data-collection pipeline.
const (
	MetricViews        = "views"
	MetricLikes        = "likes"
	MetricComments     = "comments"
	MetricSubscribers  = "subscribers"
	MetricSearchVolume = "search_volume"
)

// ContentRecord is one raw video, channel or keyword fact.
type ContentRecord struct {
	ID          string             `json:"id" yaml:"id"`
	Kind        Kind               `json:"kind" yaml:"kind"`
	Title       string             `json:"title,omitempty" yaml:"title,omitempty"`
	ChannelID   string             `json:"channel_id,omitempty" yaml:"channel_id,omitempty"`
	Keywords    []string           `json:"keywords,omitempty" yaml:"keywords,omitempty"`
	PublishedAt time.Time          `json:"published_at" yaml:"published_at"`
	Metrics     map[string]float64 `json:"metrics,omitempty" yaml:"metrics,omitempty"`
}

// Metric returns the named metric, or 0 when absent.
func (r ContentRecord) Metric(name string) float64 {
	return r.Metrics[name]
}

// HasMetric reports whether the named metric is present.
func (r ContentRecord) HasMetric(name string) bool {
	_, ok := r.Metrics[name]
	return ok
}

// NormalizedKeywords returns the record's keywords lower-cased, trimmed,
// de-duplicated and sorted.
func (r ContentRecord) NormalizedKeywords() []string {
	if len(r.Keywords) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(r.Keywords))
	out := make([]string, 0, len(r.Keywords))
	for _, kw := range r.Keywords {
		kw = NormalizeKeyword(kw)
		if kw == "" {
			continue
		}
		if _, dup := seen[kw]; dup {
			continue
		}
		seen[kw] = struct{}{}
		out = append(out, kw)
	}
	sort.Strings(out)
	return out
}

// NormalizeKeyword canonicalises a keyword for use as a node id.
func NormalizeKeyword(kw string) string {
	return strings.ToLower(strings.TrimSpace(kw))
}

// Snapshot is the immutable record set of one time window.
type Snapshot struct {
	Window      TimeWindow      `json:"window"`
	AsOf        time.Time       `json:"as_of"`
	Records     []ContentRecord `json:"records"`
	Fingerprint string          `json:"fingerprint"`
}

// NewSnapshot filters records to the window ending at asOf and fingerprints
// the result.
func NewSnapshot(window TimeWindow, asOf time.Time, recs []ContentRecord) (*Snapshot, error) {
	filtered := Filter(recs, window, asOf)
	fp, err := Fingerprint(filtered)
	if err != nil {
		return nil, err
	}
	return &Snapshot{
		Window:      window,
		AsOf:        asOf,
		Records:     filtered,
		Fingerprint: fp,
	}, nil
}

// Filter keeps the videos published inside the window and every channel and
// keyword record. Records of unknown kind are kept so the graph builder can
// report them as malformed.
func Filter(recs []ContentRecord, window TimeWindow, asOf time.Time) []ContentRecord {
	out := make([]ContentRecord, 0, len(recs))
	for _, r := range recs {
		if r.Kind == KindVideo && !window.Contains(asOf, r.PublishedAt) {
			continue
		}
		out = append(out, r)
	}
	return out
}

// Lookup returns the record with the given kind and id.
func (s *Snapshot) Lookup(kind Kind, id string) (ContentRecord, bool) {
	for _, r := range s.Records {
		if r.Kind == kind && r.ID == id {
			return r, true
		}
	}
	return ContentRecord{}, false
}

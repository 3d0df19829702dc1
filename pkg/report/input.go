package report

import (
	"github.com/qinglingtaxue/youtube--sub001/pkg/algorithms"
	"github.com/qinglingtaxue/youtube--sub001/pkg/graph"
	"github.com/qinglingtaxue/youtube--sub001/pkg/opportunity"
	"github.com/qinglingtaxue/youtube--sub001/pkg/quadrant"
	"github.com/qinglingtaxue/youtube--sub001/pkg/records"
)

// DefaultApproximateDiscount scales module confidence when centrality was
// estimated rather than computed exactly.
const DefaultApproximateDiscount = 0.7

// Input is the read-only snapshot every module analyses. Modules must not
// modify it.
type Input struct {
	Snapshot   *records.Snapshot
	Graph      *graph.Graph
	Centrality *algorithms.Result
	// Scores holds every node's opportunity, ranked by opportunity.
	Scores []opportunity.Score
	// Quadrants holds one classification per dimension.
	Quadrants map[records.Kind]*quadrant.Result

	// Focus narrows the report to one node and its neighbours. Empty means
	// the whole graph.
	Focus graph.NodeID
	scope map[graph.NodeID]struct{}

	ApproximateDiscount float64
}

// SetFocus narrows the input to id and its direct neighbours. The caller
// checks that id exists.
func (in *Input) SetFocus(id graph.NodeID) {
	in.Focus = id
	in.scope = map[graph.NodeID]struct{}{id: {}}
	for _, nb := range in.Graph.Neighbors(id) {
		in.scope[nb] = struct{}{}
	}
}

// InScope reports whether a node is covered by the report.
func (in *Input) InScope(id graph.NodeID) bool {
	if in.scope == nil {
		return true
	}
	_, ok := in.scope[id]
	return ok
}

// ScopedScores returns the ranked scores of in-scope nodes of kind, or of
// every kind when kind is empty.
func (in *Input) ScopedScores(kind records.Kind) []opportunity.Score {
	out := make([]opportunity.Score, 0, len(in.Scores))
	for _, s := range in.Scores {
		if (kind == "" || s.Kind == kind) && in.InScope(s.NodeID) {
			out = append(out, s)
		}
	}
	return out
}

// ScopedVideos returns the snapshot's video records that are in scope.
func (in *Input) ScopedVideos() []records.ContentRecord {
	if in.Snapshot == nil {
		return nil
	}
	out := make([]records.ContentRecord, 0, len(in.Snapshot.Records))
	for _, r := range in.Snapshot.Records {
		if r.Kind != records.KindVideo || r.ID == "" {
			continue
		}
		if in.InScope(graph.MakeNodeID(records.KindVideo, r.ID)) {
			out = append(out, r)
		}
	}
	return out
}

// Approximate reports whether centrality was estimated.
func (in *Input) Approximate() bool {
	return in.Centrality != nil && in.Centrality.Approximate
}

// Confidence applies the approximation discount to a module confidence and
// clamps it into [0,1].
func (in *Input) Confidence(c float64) float64 {
	if in.Approximate() {
		d := in.ApproximateDiscount
		if d <= 0 || d > 1 {
			d = DefaultApproximateDiscount
		}
		c *= d
	}
	return min(max(c, 0), 1)
}

func (in *Input) window() records.TimeWindow {
	if in.Graph != nil {
		return in.Graph.Window()
	}
	if in.Snapshot != nil {
		return in.Snapshot.Window
	}
	return ""
}

func (in *Input) dataSnapshot() DataSnapshot {
	var d DataSnapshot
	if in.Snapshot != nil {
		d.Fingerprint = in.Snapshot.Fingerprint
		d.AsOf = in.Snapshot.AsOf
		d.RecordCount = len(in.Snapshot.Records)
	}
	if in.Graph != nil {
		d.GraphFingerprint = in.Graph.Fingerprint()
		d.NodeCount = in.Graph.NodeCount()
		d.EdgeCount = in.Graph.EdgeCount()
		d.SkippedRecords = len(in.Graph.Skipped())
	}
	return d
}

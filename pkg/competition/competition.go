// Package competition supplies per-node competition levels in [0,1] from
// external signal providers.
package competition

import (
	"context"

	"github.com/qinglingtaxue/youtube--sub001/pkg/graph"
	"github.com/qinglingtaxue/youtube--sub001/pkg/logging"
	"github.com/qinglingtaxue/youtube--sub001/pkg/opportunity"
	"github.com/qinglingtaxue/youtube--sub001/pkg/records"
)

// Provider returns the competition levels it knows for ids. Nodes missing
// from the result are treated as neutral.
type Provider interface {
	Name() string
	Levels(ctx context.Context, window records.TimeWindow, ids []graph.NodeID) (map[graph.NodeID]float64, error)
}

// Static serves fixed levels.
type Static struct {
	levels map[graph.NodeID]float64
}

// NewStatic creates a provider from a fixed table. A nil table knows nothing.
func NewStatic(levels map[graph.NodeID]float64) *Static {
	cp := make(map[graph.NodeID]float64, len(levels))
	for k, v := range levels {
		cp[k] = v
	}
	return &Static{levels: cp}
}

func (s *Static) Name() string { return "static" }

func (s *Static) Levels(_ context.Context, _ records.TimeWindow, ids []graph.NodeID) (map[graph.NodeID]float64, error) {
	out := make(map[graph.NodeID]float64)
	for _, id := range ids {
		if v, ok := s.levels[id]; ok {
			out[id] = v
		}
	}
	return out, nil
}

// Lookup fetches levels for ids and adapts them to the scorer. Provider
// errors are logged and treated as absence, so every node scores neutral.
func Lookup(ctx context.Context, p Provider, window records.TimeWindow, ids []graph.NodeID, logger logging.Logger) opportunity.CompetitionLookup {
	if p == nil {
		return nil
	}
	levels, err := p.Levels(ctx, window, ids)
	if err != nil {
		if logger != nil {
			logger.Warn("competition provider unavailable, using neutral levels",
				logging.String("provider", p.Name()),
				logging.Window(string(window)),
				logging.Error(err))
		}
		return nil
	}
	return opportunity.StaticCompetition(levels)
}

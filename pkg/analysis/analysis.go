// Package analysis holds the report modules that turn scores,
// classifications and raw records into candidate conclusions.
package analysis

import (
	"math"

	"github.com/qinglingtaxue/youtube--sub001/pkg/report"
)

// Module names, in their default declaration order.
const (
	NameOpportunity  = "opportunity"
	NameQuadrant     = "quadrant"
	NameMarketHealth = "market-health"
	NamePattern      = "pattern"
	NameArbitrage    = "arbitrage"
)

// Config tunes the default module set.
type Config struct {
	// TopN bounds per-module listings. Zero means 5.
	TopN int
	// ArbitrageRatio is the share of the best opportunity a node must reach
	// to count as arbitrage. Zero means DefaultArbitrageRatio.
	ArbitrageRatio float64
}

// Default returns every module in declaration order.
func Default(cfg Config) []report.Module {
	return []report.Module{
		&Opportunity{TopN: cfg.TopN},
		&Quadrant{TopN: cfg.TopN},
		&MarketHealth{},
		&Pattern{TopN: cfg.TopN},
		&Arbitrage{Ratio: cfg.ArbitrageRatio, TopN: cfg.TopN},
	}
}

const defaultTopN = 5

func topN(n int) int {
	if n <= 0 {
		return defaultTopN
	}
	return n
}

// round4 keeps data points readable.
func round4(v float64) float64 {
	return math.Round(v*1e4) / 1e4
}

func label(id, fallback string) string {
	if id != "" {
		return id
	}
	return fallback
}

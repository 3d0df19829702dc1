// Package report merges the conclusions of independent analysis modules
// into one ordered, confidence-scored report.
package report

import (
	"time"

	"github.com/qinglingtaxue/youtube--sub001/pkg/errcode"
	"github.com/qinglingtaxue/youtube--sub001/pkg/records"
)

// DataPoint is one piece of evidence behind a conclusion.
type DataPoint struct {
	Label string `json:"label"`
	Value any    `json:"value"`
}

// Conclusion is one synthesized finding. Lower Priority is more important.
type Conclusion struct {
	ID          string      `json:"id"`
	Module      string      `json:"module"`
	Title       string      `json:"title"`
	Summary     string      `json:"summary"`
	Reasoning   []string    `json:"reasoning"`
	DataPoints  []DataPoint `json:"data_points"`
	ActionItems []string    `json:"action_items"`
	Priority    int         `json:"priority"`
	Confidence  float64     `json:"confidence"`
}

// Synthesis is the top-level narrative of a report.
type Synthesis struct {
	Headline          string   `json:"headline"`
	Summary           string   `json:"summary"`
	KeyFindings       []string `json:"key_findings"`
	Confidence        float64  `json:"confidence"`
	ConclusionCount   int      `json:"conclusion_count"`
	ModuleCount       int      `json:"module_count"`
	HighPriorityCount int      `json:"high_priority_count"`
}

// Scope is the part of the snapshot a report covers.
type Scope struct {
	Window records.TimeWindow `json:"window"`
	// Focus is the node a report was narrowed to, empty for the whole graph.
	Focus string `json:"focus,omitempty"`
}

// DataSnapshot identifies the data a report was computed from.
type DataSnapshot struct {
	Fingerprint      string    `json:"fingerprint"`
	GraphFingerprint string    `json:"graph_fingerprint"`
	AsOf             time.Time `json:"as_of"`
	RecordCount      int       `json:"record_count"`
	SkippedRecords   int       `json:"skipped_records"`
	NodeCount        int       `json:"node_count"`
	EdgeCount        int       `json:"edge_count"`
}

// Research frames the question a report answers and how.
type Research struct {
	Question    string       `json:"question"`
	Scope       Scope        `json:"scope"`
	Method      []string     `json:"method"`
	Data        DataSnapshot `json:"data"`
	Approximate bool         `json:"approximate"`
}

// ModuleFailure records a module whose conclusions are missing.
type ModuleFailure struct {
	Module  string       `json:"module"`
	Code    errcode.Code `json:"code"`
	Message string       `json:"message"`
}

// Report is the immutable output of one synthesis run.
type Report struct {
	ID             string            `json:"id"`
	GeneratedAt    time.Time         `json:"generated_at"`
	Conclusions    []Conclusion      `json:"conclusions"`
	Synthesis      Synthesis         `json:"synthesis"`
	Research       Research          `json:"research"`
	Degraded       bool              `json:"degraded"`
	MissingModules []string          `json:"missing_modules"`
	Failures       []ModuleFailure   `json:"failures,omitempty"`
	Warnings       []errcode.Warning `json:"warnings,omitempty"`
}

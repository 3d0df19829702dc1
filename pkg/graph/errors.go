package graph

import (
	"errors"
	"fmt"
	"strings"

	"github.com/qinglingtaxue/youtube--sub001/pkg/errcode"
)

// Sentinel causes for construction failures.
var (
	ErrUnknownNode    = errors.New("edge endpoint is not in the node set")
	ErrSelfEdge       = errors.New("self edges are not allowed")
	ErrInvalidWeight  = errors.New("edge weight must be a positive finite number")
	ErrMissingChannel = errors.New("video references a channel with no channel record")
)

// ConstructionError is fatal for the graph build it came from.
type ConstructionError struct {
	Op     string // "add_edge", "add_channel_edge", ...
	Source NodeID
	Target NodeID
	Cause  error
}

func (e *ConstructionError) Error() string {
	if e.Target != "" {
		return fmt.Sprintf("graph %s %s-%s: %v", e.Op, e.Source, e.Target, e.Cause)
	}
	return fmt.Sprintf("graph %s %s: %v", e.Op, e.Source, e.Cause)
}

func (e *ConstructionError) Unwrap() error { return e.Cause }

// Code implements errcode.Coder.
func (e *ConstructionError) Code() errcode.Code { return errcode.GraphConstruction }

func constructionError(op string, source, target NodeID, cause error) error {
	return &ConstructionError{Op: op, Source: source, Target: target, Cause: cause}
}

// SkippedRecord describes one input record the builder could not use.
type SkippedRecord struct {
	Index  int    `json:"index"`
	ID     string `json:"id,omitempty"`
	Reason string `json:"reason"`
}

// MalformedRecordError reports records skipped during a build. It is
// non-fatal: the graph is still built from the remaining records.
type MalformedRecordError struct {
	Skipped []SkippedRecord
}

func (e *MalformedRecordError) Error() string {
	reasons := make([]string, 0, 3)
	for i, s := range e.Skipped {
		if i == 3 {
			reasons = append(reasons, "...")
			break
		}
		reasons = append(reasons, fmt.Sprintf("#%d %s", s.Index, s.Reason))
	}
	return fmt.Sprintf("skipped %d malformed record(s): %s", len(e.Skipped), strings.Join(reasons, "; "))
}

// Count returns how many records were skipped.
func (e *MalformedRecordError) Count() int { return len(e.Skipped) }

// Code implements errcode.Coder.
func (e *MalformedRecordError) Code() errcode.Code { return errcode.MalformedRecord }

package algorithms

import (
	"fmt"

	"github.com/qinglingtaxue/youtube--sub001/pkg/errcode"
)

// ComputationTimeoutError reports that a centrality run hit its deadline
// before every planned shortest-path source was processed. The run still
// produced a result, estimated from the processed sources.
type ComputationTimeoutError struct {
	Processed int
	Planned   int
	Cause     error
}

func (e *ComputationTimeoutError) Error() string {
	return fmt.Sprintf("centrality computation stopped after %d of %d sources: %v", e.Processed, e.Planned, e.Cause)
}

func (e *ComputationTimeoutError) Unwrap() error { return e.Cause }

// Code implements errcode.Coder.
func (e *ComputationTimeoutError) Code() errcode.Code { return errcode.ComputationTimeout }

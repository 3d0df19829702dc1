package report

import (
	"fmt"

	"github.com/qinglingtaxue/youtube--sub001/pkg/errcode"
)

// ModuleUnavailableError reports a module that failed or timed out.
type ModuleUnavailableError struct {
	Module string
	Cause  error
}

func (e *ModuleUnavailableError) Error() string {
	return fmt.Sprintf("report module %s unavailable: %v", e.Module, e.Cause)
}

func (e *ModuleUnavailableError) Unwrap() error { return e.Cause }

// Code implements errcode.Coder.
func (e *ModuleUnavailableError) Code() errcode.Code { return errcode.ModuleUnavailable }

package graphql

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/graphql-go/graphql"
	"github.com/graphql-go/graphql/gqlerrors"
	"github.com/graphql-go/graphql/language/parser"

	"github.com/qinglingtaxue/youtube--sub001/pkg/errcode"
	"github.com/qinglingtaxue/youtube--sub001/pkg/logging"
)

// Limits bounds the shape of accepted queries.
type Limits struct {
	MaxDepth      int
	MaxComplexity int
	ReportCost    int
}

// DefaultLimits returns the limits used when none are configured.
func DefaultLimits() Limits {
	return Limits{
		MaxDepth:      DefaultMaxDepth,
		MaxComplexity: DefaultMaxComplexity,
		ReportCost:    DefaultReportCost,
	}
}

// Request is one GraphQL operation.
type Request struct {
	Query         string         `json:"query"`
	Variables     map[string]any `json:"variables,omitempty"`
	OperationName string         `json:"operationName,omitempty"`
}

// Executor runs operations against a schema after checking them against
// the depth and complexity limits.
type Executor struct {
	schema     graphql.Schema
	maxDepth   int
	complexity ComplexityConfig
	logger     logging.Logger
}

// NewExecutor creates an executor. Zero limits take their defaults.
func NewExecutor(schema graphql.Schema, limits Limits, logger logging.Logger) (*Executor, error) {
	if limits.MaxDepth == 0 {
		limits.MaxDepth = DefaultMaxDepth
	}
	if limits.MaxComplexity == 0 {
		limits.MaxComplexity = DefaultMaxComplexity
	}
	if limits.MaxDepth < 0 {
		return nil, errors.New("max depth must be greater than 0")
	}
	cc := ComplexityConfig{MaxComplexity: limits.MaxComplexity, ReportCost: limits.ReportCost}
	if err := ValidateComplexityConfig(&cc); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Executor{
		schema:     schema,
		maxDepth:   limits.MaxDepth,
		complexity: cc,
		logger:     logger.With(logging.Component("graphql")),
	}, nil
}

// Execute runs req. Limit violations and parse errors come back as result
// errors with code INVALID_REQUEST, like any other GraphQL error.
func (e *Executor) Execute(ctx context.Context, req Request) *graphql.Result {
	start := time.Now()

	document, err := parser.Parse(parser.ParseParams{Source: req.Query})
	if err != nil {
		return rejected(err)
	}
	if err := validateDepth(document, e.maxDepth); err != nil {
		return rejected(err)
	}
	if _, err := validateComplexity(document, &e.complexity, req.Variables); err != nil {
		return rejected(err)
	}

	result := graphql.Do(graphql.Params{
		Schema:         e.schema,
		RequestString:  req.Query,
		VariableValues: req.Variables,
		OperationName:  req.OperationName,
		Context:        ctx,
	})

	for _, fe := range result.Errors {
		var ce *codedError
		if errors.As(fe.OriginalError(), &ce) && ce.code == errcode.Internal {
			e.logger.Error("graphql resolver failed",
				logging.String("path", pathString(fe.Path)),
				logging.Error(ce.err))
		}
	}
	e.logger.Debug("graphql operation",
		logging.String("operation", req.OperationName),
		logging.Int("errors", len(result.Errors)),
		logging.Latency(time.Since(start)))
	return result
}

func rejected(err error) *graphql.Result {
	return &graphql.Result{
		Errors: []gqlerrors.FormattedError{{
			Message:    err.Error(),
			Extensions: map[string]any{"code": string(errcode.InvalidRequest)},
		}},
	}
}

func pathString(path []any) string {
	parts := make([]string, 0, len(path))
	for _, p := range path {
		parts = append(parts, fmt.Sprint(p))
	}
	return strings.Join(parts, ".")
}

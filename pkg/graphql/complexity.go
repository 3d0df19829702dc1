package graphql

import (
	"fmt"
	"strconv"

	"github.com/graphql-go/graphql/language/ast"

	"github.com/qinglingtaxue/youtube--sub001/pkg/opportunity"
)

// Complexity defaults.
const (
	DefaultMaxComplexity = 5000
	// DefaultReportCost is the flat cost of one report field; a report runs
	// every analysis module.
	DefaultReportCost = 200
)

// ComplexityConfig defines configuration for query complexity analysis
type ComplexityConfig struct {
	MaxComplexity int // Maximum allowed complexity score
	ReportCost    int // Flat cost added per report field
}

// ValidateComplexityConfig validates the complexity configuration and fills
// defaults.
func ValidateComplexityConfig(config *ComplexityConfig) error {
	if config.MaxComplexity <= 0 {
		return fmt.Errorf("max complexity must be greater than 0, got %d", config.MaxComplexity)
	}
	if config.ReportCost <= 0 {
		config.ReportCost = DefaultReportCost
	}
	return nil
}

// calculateQueryComplexity calculates the complexity score of a GraphQL query
func calculateQueryComplexity(document *ast.Document, config *ComplexityConfig, variableValues map[string]any) int {
	fragments := fragmentsOf(document)
	total := 0

	for _, definition := range document.Definitions {
		if def, ok := definition.(*ast.OperationDefinition); ok {
			total += calculateSelectionSetComplexity(def.SelectionSet, config, variableValues, fragments, 1, map[string]bool{})
		}
	}

	return total
}

// calculateSelectionSetComplexity charges every selected field once per
// object it can be resolved on. The items of a ranking multiply by its
// limit.
func calculateSelectionSetComplexity(selectionSet *ast.SelectionSet, config *ComplexityConfig, variableValues map[string]any, fragments map[string]*ast.FragmentDefinition, multiplier int, visiting map[string]bool) int {
	if selectionSet == nil || len(selectionSet.Selections) == 0 {
		return 0
	}

	complexity := 0

	for _, selection := range selectionSet.Selections {
		switch sel := selection.(type) {
		case *ast.Field:
			name := sel.Name.Value
			if isIntrospectionField(name) {
				complexity++
				continue
			}
			complexity += multiplier
			if sel.SelectionSet == nil {
				continue
			}

			fieldMultiplier := multiplier
			switch name {
			case "ranking":
				limit := opportunity.ClampLimit(extractLimitFromArguments(sel.Arguments, variableValues))
				fieldMultiplier = multiplier * limit
			case "report":
				complexity += config.ReportCost
			}
			complexity += calculateSelectionSetComplexity(sel.SelectionSet, config, variableValues, fragments, fieldMultiplier, visiting)

		case *ast.InlineFragment:
			complexity += calculateSelectionSetComplexity(sel.SelectionSet, config, variableValues, fragments, multiplier, visiting)

		case *ast.FragmentSpread:
			frag, ok := fragments[sel.Name.Value]
			if !ok || visiting[sel.Name.Value] {
				continue
			}
			visiting[sel.Name.Value] = true
			complexity += calculateSelectionSetComplexity(frag.SelectionSet, config, variableValues, fragments, multiplier, visiting)
			delete(visiting, sel.Name.Value)
		}
	}

	return complexity
}

// extractLimitFromArguments extracts the limit value from field arguments.
// Zero means none was given.
func extractLimitFromArguments(arguments []*ast.Argument, variableValues map[string]any) int {
	for _, arg := range arguments {
		if arg.Name.Value != "limit" {
			continue
		}
		switch value := arg.Value.(type) {
		case *ast.IntValue:
			// GetValue() returns a string
			if limitStr, ok := value.GetValue().(string); ok {
				if limit, err := strconv.Atoi(limitStr); err == nil {
					return limit
				}
			}
		case *ast.Variable:
			switch limit := variableValues[value.Name.Value].(type) {
			case int:
				return limit
			case float64:
				return int(limit)
			}
		}
	}
	return 0
}

// validateComplexity checks a parsed query against the complexity limit.
func validateComplexity(document *ast.Document, config *ComplexityConfig, variableValues map[string]any) (int, error) {
	complexity := calculateQueryComplexity(document, config, variableValues)
	if complexity > config.MaxComplexity {
		return complexity, fmt.Errorf("query complexity %d exceeds maximum allowed complexity %d", complexity, config.MaxComplexity)
	}
	return complexity, nil
}

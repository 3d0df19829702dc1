// Package graphql exposes the ranking, quadrant and report queries over a
// read-only GraphQL schema.
package graphql

import (
	"context"
	"fmt"

	"github.com/graphql-go/graphql"

	"github.com/qinglingtaxue/youtube--sub001/pkg/analytics"
	"github.com/qinglingtaxue/youtube--sub001/pkg/errcode"
	"github.com/qinglingtaxue/youtube--sub001/pkg/quadrant"
	"github.com/qinglingtaxue/youtube--sub001/pkg/report"
	"github.com/qinglingtaxue/youtube--sub001/pkg/validation"
)

// Querier is the part of the analytics service the schema resolves against.
type Querier interface {
	GetRanking(ctx context.Context, q analytics.RankingQuery) (*analytics.Ranking, error)
	GetQuadrants(ctx context.Context, q analytics.QuadrantQuery) (*analytics.Matrix, error)
	GetReport(ctx context.Context, q analytics.ReportQuery) (*report.Report, error)
}

// codedError carries the stable error code into the "extensions" member of
// a GraphQL error. Internal errors keep their cause for logging but show a
// generic message.
type codedError struct {
	code errcode.Code
	msg  string
	err  error
}

func (e *codedError) Error() string { return e.msg }

func (e *codedError) Unwrap() error { return e.err }

// Extensions implements gqlerrors.ExtendedError.
func (e *codedError) Extensions() map[string]any {
	return map[string]any{"code": string(e.code)}
}

func coded(err error) error {
	if err == nil {
		return nil
	}
	code := errcode.Of(err)
	msg := err.Error()
	if code == errcode.Internal {
		msg = "internal error"
	}
	return &codedError{code: code, msg: msg, err: err}
}

var warningType = graphql.NewObject(graphql.ObjectConfig{
	Name:        "Warning",
	Description: "A non-fatal condition attached to a result",
	Fields: graphql.Fields{
		"code":    &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
		"message": &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
	},
})

var scoreType = graphql.NewObject(graphql.ObjectConfig{
	Name:        "Score",
	Description: "The centrality and opportunity of one node",
	Fields: graphql.Fields{
		"rank":             &graphql.Field{Type: graphql.NewNonNull(graphql.Int)},
		"nodeId":           &graphql.Field{Type: graphql.NewNonNull(graphql.ID)},
		"kind":             &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
		"label":            &graphql.Field{Type: graphql.String},
		"degree":           &graphql.Field{Type: graphql.NewNonNull(graphql.Float)},
		"betweenness":      &graphql.Field{Type: graphql.NewNonNull(graphql.Float)},
		"closeness":        &graphql.Field{Type: graphql.NewNonNull(graphql.Float)},
		"interestingness":  &graphql.Field{Type: graphql.NewNonNull(graphql.Float)},
		"competition":      &graphql.Field{Type: graphql.NewNonNull(graphql.Float)},
		"competitionKnown": &graphql.Field{Type: graphql.NewNonNull(graphql.Boolean)},
		"opportunity":      &graphql.Field{Type: graphql.NewNonNull(graphql.Float)},
	},
})

var rankingType = graphql.NewObject(graphql.ObjectConfig{
	Name: "Ranking",
	Fields: graphql.Fields{
		"window":      &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
		"dimension":   &graphql.Field{Type: graphql.String},
		"fingerprint": &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
		"approximate": &graphql.Field{Type: graphql.NewNonNull(graphql.Boolean)},
		"rankingKey":  &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
		"total":       &graphql.Field{Type: graphql.NewNonNull(graphql.Int)},
		"limit":       &graphql.Field{Type: graphql.NewNonNull(graphql.Int)},
		"offset":      &graphql.Field{Type: graphql.NewNonNull(graphql.Int)},
		"items":       &graphql.Field{Type: graphql.NewList(scoreType)},
		"warnings":    &graphql.Field{Type: graphql.NewList(warningType)},
	},
})

var axisType = graphql.NewObject(graphql.ObjectConfig{
	Name: "Axis",
	Fields: graphql.Fields{
		"name":       &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
		"threshold":  &graphql.Field{Type: graphql.NewNonNull(graphql.Float)},
		"computed":   &graphql.Field{Type: graphql.NewNonNull(graphql.Boolean)},
		"distinct":   &graphql.Field{Type: graphql.NewNonNull(graphql.Int)},
		"degenerate": &graphql.Field{Type: graphql.NewNonNull(graphql.Boolean)},
	},
})

var quadrantType = graphql.NewObject(graphql.ObjectConfig{
	Name: "Quadrant",
	Fields: graphql.Fields{
		"id":      &graphql.Field{Type: graphql.NewNonNull(graphql.ID)},
		"label":   &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
		"count":   &graphql.Field{Type: graphql.NewNonNull(graphql.Int)},
		"members": &graphql.Field{Type: graphql.NewList(graphql.String)},
	},
})

var matrixType = graphql.NewObject(graphql.ObjectConfig{
	Name:        "QuadrantMatrix",
	Description: "Supply x demand classification of one dimension",
	Fields: graphql.Fields{
		"window":      &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
		"dimension":   &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
		"fingerprint": &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
		"total":       &graphql.Field{Type: graphql.NewNonNull(graphql.Int)},
		"xAxis":       &graphql.Field{Type: axisType},
		"yAxis":       &graphql.Field{Type: axisType},
		"quadrants":   &graphql.Field{Type: graphql.NewList(quadrantType)},
		"skipped":     &graphql.Field{Type: graphql.NewList(graphql.String)},
		"warnings":    &graphql.Field{Type: graphql.NewList(warningType)},
	},
})

var dataPointType = graphql.NewObject(graphql.ObjectConfig{
	Name: "DataPoint",
	Fields: graphql.Fields{
		"label": &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
		"value": &graphql.Field{
			Type: graphql.String,
			Resolve: func(p graphql.ResolveParams) (any, error) {
				if dp, ok := p.Source.(report.DataPoint); ok && dp.Value != nil {
					return fmt.Sprint(dp.Value), nil
				}
				return nil, nil
			},
		},
	},
})

var conclusionType = graphql.NewObject(graphql.ObjectConfig{
	Name: "Conclusion",
	Fields: graphql.Fields{
		"id":          &graphql.Field{Type: graphql.NewNonNull(graphql.ID)},
		"module":      &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
		"title":       &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
		"summary":     &graphql.Field{Type: graphql.String},
		"reasoning":   &graphql.Field{Type: graphql.NewList(graphql.String)},
		"dataPoints":  &graphql.Field{Type: graphql.NewList(dataPointType)},
		"actionItems": &graphql.Field{Type: graphql.NewList(graphql.String)},
		"priority":    &graphql.Field{Type: graphql.NewNonNull(graphql.Int)},
		"confidence":  &graphql.Field{Type: graphql.NewNonNull(graphql.Float)},
	},
})

var synthesisType = graphql.NewObject(graphql.ObjectConfig{
	Name: "Synthesis",
	Fields: graphql.Fields{
		"headline":          &graphql.Field{Type: graphql.String},
		"summary":           &graphql.Field{Type: graphql.String},
		"keyFindings":       &graphql.Field{Type: graphql.NewList(graphql.String)},
		"confidence":        &graphql.Field{Type: graphql.NewNonNull(graphql.Float)},
		"conclusionCount":   &graphql.Field{Type: graphql.NewNonNull(graphql.Int)},
		"moduleCount":       &graphql.Field{Type: graphql.NewNonNull(graphql.Int)},
		"highPriorityCount": &graphql.Field{Type: graphql.NewNonNull(graphql.Int)},
	},
})

var scopeType = graphql.NewObject(graphql.ObjectConfig{
	Name: "Scope",
	Fields: graphql.Fields{
		"window": &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
		"focus":  &graphql.Field{Type: graphql.String},
	},
})

var dataSnapshotType = graphql.NewObject(graphql.ObjectConfig{
	Name: "DataSnapshot",
	Fields: graphql.Fields{
		"fingerprint":      &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
		"graphFingerprint": &graphql.Field{Type: graphql.String},
		"asOf":             &graphql.Field{Type: graphql.DateTime},
		"recordCount":      &graphql.Field{Type: graphql.NewNonNull(graphql.Int)},
		"skippedRecords":   &graphql.Field{Type: graphql.NewNonNull(graphql.Int)},
		"nodeCount":        &graphql.Field{Type: graphql.NewNonNull(graphql.Int)},
		"edgeCount":        &graphql.Field{Type: graphql.NewNonNull(graphql.Int)},
	},
})

var researchType = graphql.NewObject(graphql.ObjectConfig{
	Name: "Research",
	Fields: graphql.Fields{
		"question":    &graphql.Field{Type: graphql.String},
		"scope":       &graphql.Field{Type: scopeType},
		"method":      &graphql.Field{Type: graphql.NewList(graphql.String)},
		"data":        &graphql.Field{Type: dataSnapshotType},
		"approximate": &graphql.Field{Type: graphql.NewNonNull(graphql.Boolean)},
	},
})

var moduleFailureType = graphql.NewObject(graphql.ObjectConfig{
	Name: "ModuleFailure",
	Fields: graphql.Fields{
		"module":  &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
		"code":    &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
		"message": &graphql.Field{Type: graphql.String},
	},
})

var reportType = graphql.NewObject(graphql.ObjectConfig{
	Name:        "Report",
	Description: "Synthesized conclusions of every analysis module",
	Fields: graphql.Fields{
		"id":             &graphql.Field{Type: graphql.NewNonNull(graphql.ID)},
		"generatedAt":    &graphql.Field{Type: graphql.DateTime},
		"conclusions":    &graphql.Field{Type: graphql.NewList(conclusionType)},
		"synthesis":      &graphql.Field{Type: synthesisType},
		"research":       &graphql.Field{Type: researchType},
		"degraded":       &graphql.Field{Type: graphql.NewNonNull(graphql.Boolean)},
		"missingModules": &graphql.Field{Type: graphql.NewList(graphql.String)},
		"failures":       &graphql.Field{Type: graphql.NewList(moduleFailureType)},
		"warnings":       &graphql.Field{Type: graphql.NewList(warningType)},
	},
})

// NewSchema builds the query schema over q.
func NewSchema(q Querier) (graphql.Schema, error) {
	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"health": &graphql.Field{
				Type: graphql.String,
				Resolve: func(p graphql.ResolveParams) (any, error) {
					return "ok", nil
				},
			},
			"ranking": &graphql.Field{
				Type:        rankingType,
				Description: "Nodes of a window ordered by a ranking key",
				Args: graphql.FieldConfigArgument{
					"dimension":  &graphql.ArgumentConfig{Type: graphql.String},
					"window":     &graphql.ArgumentConfig{Type: graphql.String},
					"rankingKey": &graphql.ArgumentConfig{Type: graphql.String},
					"limit":      &graphql.ArgumentConfig{Type: graphql.Int},
					"offset":     &graphql.ArgumentConfig{Type: graphql.Int},
				},
				Resolve: rankingResolver(q),
			},
			"quadrants": &graphql.Field{
				Type:        matrixType,
				Description: "Supply x demand quadrants of one dimension",
				Args: graphql.FieldConfigArgument{
					"dimension": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"window":    &graphql.ArgumentConfig{Type: graphql.String},
				},
				Resolve: quadrantsResolver(q),
			},
			"report": &graphql.Field{
				Type:        reportType,
				Description: "Synthesized report, optionally focused on one video or channel",
				Args: graphql.FieldConfigArgument{
					"videoId":   &graphql.ArgumentConfig{Type: graphql.ID},
					"channelId": &graphql.ArgumentConfig{Type: graphql.ID},
					"window":    &graphql.ArgumentConfig{Type: graphql.String},
				},
				Resolve: reportResolver(q),
			},
		},
	})

	schema, err := graphql.NewSchema(graphql.SchemaConfig{
		Query: queryType,
	})
	if err != nil {
		return graphql.Schema{}, fmt.Errorf("failed to create schema: %w", err)
	}
	return schema, nil
}

func rankingResolver(q Querier) graphql.FieldResolveFn {
	return func(p graphql.ResolveParams) (any, error) {
		req := &validation.RankingRequest{
			Dimension:  stringArg(p.Args, "dimension"),
			Window:     stringArg(p.Args, "window"),
			RankingKey: stringArg(p.Args, "rankingKey"),
			Limit:      intArg(p.Args, "limit"),
			Offset:     intArg(p.Args, "offset"),
		}
		if err := validation.ValidateRankingRequest(req); err != nil {
			return nil, coded(err)
		}
		r, err := q.GetRanking(p.Context, req.Query())
		if err != nil {
			return nil, coded(err)
		}
		return map[string]any{
			"window":      r.Window,
			"dimension":   nilIfEmpty(string(r.Dimension)),
			"fingerprint": r.Fingerprint,
			"approximate": r.Approximate,
			"rankingKey":  r.Key,
			"total":       r.Total,
			"limit":       r.Limit,
			"offset":      r.Offset,
			"items":       r.Items,
			"warnings":    r.Warnings,
		}, nil
	}
}

func quadrantsResolver(q Querier) graphql.FieldResolveFn {
	return func(p graphql.ResolveParams) (any, error) {
		req := &validation.QuadrantRequest{
			Dimension: stringArg(p.Args, "dimension"),
			Window:    stringArg(p.Args, "window"),
		}
		if err := validation.ValidateQuadrantRequest(req); err != nil {
			return nil, coded(err)
		}
		m, err := q.GetQuadrants(p.Context, req.Query())
		if err != nil {
			return nil, coded(err)
		}
		ordered := make([]*quadrant.Quadrant, 0, len(quadrant.IDs))
		for _, id := range quadrant.IDs {
			if qd, ok := m.Quadrants[id]; ok {
				ordered = append(ordered, qd)
			}
		}
		return map[string]any{
			"window":      m.Window,
			"dimension":   m.Dimension,
			"fingerprint": m.Fingerprint,
			"total":       m.Total,
			"xAxis":       m.X,
			"yAxis":       m.Y,
			"quadrants":   ordered,
			"skipped":     m.Skipped,
			"warnings":    m.Warnings,
		}, nil
	}
}

func reportResolver(q Querier) graphql.FieldResolveFn {
	return func(p graphql.ResolveParams) (any, error) {
		req := &validation.ReportRequest{
			VideoID:   stringArg(p.Args, "videoId"),
			ChannelID: stringArg(p.Args, "channelId"),
			Window:    stringArg(p.Args, "window"),
		}
		if err := validation.ValidateReportRequest(req); err != nil {
			return nil, coded(err)
		}
		rep, err := q.GetReport(p.Context, req.Query())
		if err != nil {
			return nil, coded(err)
		}
		return rep, nil
	}
}

func stringArg(args map[string]any, name string) string {
	s, _ := args[name].(string)
	return s
}

func intArg(args map[string]any, name string) int {
	n, _ := args[name].(int)
	return n
}

func nilIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

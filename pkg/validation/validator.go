package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/qinglingtaxue/youtube--sub001/pkg/analytics"
	"github.com/qinglingtaxue/youtube--sub001/pkg/errcode"
	"github.com/qinglingtaxue/youtube--sub001/pkg/opportunity"
	"github.com/qinglingtaxue/youtube--sub001/pkg/records"
)

// validate is a singleton validator instance
var validate *validator.Validate

func init() {
	validate = validator.New()
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	mustRegister("window", func(fl validator.FieldLevel) bool {
		_, err := records.ParseWindow(fl.Field().String())
		return err == nil
	})
	mustRegister("dimension", func(fl validator.FieldLevel) bool {
		_, err := records.ParseKind(fl.Field().String())
		return err == nil
	})
	mustRegister("rankingkey", func(fl validator.FieldLevel) bool {
		_, err := opportunity.ParseRankingKey(fl.Field().String())
		return err == nil
	})
}

func mustRegister(tag string, fn validator.Func) {
	if err := validate.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("register %s validation: %v", tag, err))
	}
}

// RankingRequest is the input of the ranking query. An empty dimension
// ranks every kind together.
type RankingRequest struct {
	Dimension  string `json:"dimension" validate:"omitempty,dimension"`
	Window     string `json:"window" validate:"omitempty,window"`
	RankingKey string `json:"rankingKey" validate:"omitempty,rankingkey"`
	Limit      int    `json:"limit"`
	Offset     int    `json:"offset"`
}

// QuadrantRequest is the input of the quadrant query.
type QuadrantRequest struct {
	Dimension string `json:"dimension" validate:"required,dimension"`
	Window    string `json:"window" validate:"omitempty,window"`
}

// ReportRequest is the input of the report query. At most one focus id may
// be given.
type ReportRequest struct {
	VideoID   string `json:"videoId" validate:"omitempty,max=128,excluded_with=ChannelID"`
	ChannelID string `json:"channelId" validate:"omitempty,max=128"`
	Window    string `json:"window" validate:"omitempty,window"`
}

// InvalidateRequest names the window whose cache entries to drop; "*"
// drops every window.
type InvalidateRequest struct {
	Window string `json:"window" validate:"required,window|eq=*"`
}

// ValidateRankingRequest validates a ranking request.
func ValidateRankingRequest(req *RankingRequest) error {
	if req == nil {
		return invalid(errors.New("ranking request cannot be nil"))
	}
	return check(req)
}

// ValidateQuadrantRequest validates a quadrant request.
func ValidateQuadrantRequest(req *QuadrantRequest) error {
	if req == nil {
		return invalid(errors.New("quadrant request cannot be nil"))
	}
	return check(req)
}

// ValidateReportRequest validates a report request.
func ValidateReportRequest(req *ReportRequest) error {
	if req == nil {
		return invalid(errors.New("report request cannot be nil"))
	}
	return check(req)
}

// ValidateInvalidateRequest validates an invalidation request.
func ValidateInvalidateRequest(req *InvalidateRequest) error {
	if req == nil {
		return invalid(errors.New("invalidate request cannot be nil"))
	}
	return check(req)
}

// Query converts a validated request into a service query.
func (r *RankingRequest) Query() analytics.RankingQuery {
	q := analytics.RankingQuery{
		Dimension: kind(r.Dimension),
		Window:    window(r.Window),
		Limit:     r.Limit,
		Offset:    r.Offset,
	}
	if r.RankingKey != "" {
		q.Key, _ = opportunity.ParseRankingKey(r.RankingKey)
	}
	return q
}

// Query converts a validated request into a service query.
func (r *QuadrantRequest) Query() analytics.QuadrantQuery {
	return analytics.QuadrantQuery{Dimension: kind(r.Dimension), Window: window(r.Window)}
}

// Query converts a validated request into a service query.
func (r *ReportRequest) Query() analytics.ReportQuery {
	return analytics.ReportQuery{
		VideoID:   strings.TrimSpace(r.VideoID),
		ChannelID: strings.TrimSpace(r.ChannelID),
		Window:    window(r.Window),
	}
}

// All reports whether the request targets every window.
func (r *InvalidateRequest) All() bool { return r.Window == "*" }

// TimeWindow returns the parsed window; it is empty when All is true.
func (r *InvalidateRequest) TimeWindow() records.TimeWindow { return window(r.Window) }

func kind(s string) records.Kind {
	if s == "" {
		return ""
	}
	k, _ := records.ParseKind(s)
	return k
}

func window(s string) records.TimeWindow {
	if s == "" || s == "*" {
		return ""
	}
	w, _ := records.ParseWindow(s)
	return w
}

func check(req any) error {
	if err := validate.Struct(req); err != nil {
		return invalid(formatValidationError(err))
	}
	return nil
}

func invalid(err error) error {
	return errcode.Wrap(errcode.InvalidRequest, "invalid request", err)
}

// formatValidationError converts validator errors to a more user-friendly format
func formatValidationError(err error) error {
	if err == nil {
		return nil
	}

	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return err
	}

	// Return the first validation error in a user-friendly format
	for _, e := range validationErrs {
		field := e.Field()
		param := e.Param()

		switch e.Tag() {
		case "required":
			return fmt.Errorf("%s: field is required", field)
		case "max":
			return fmt.Errorf("%s: must not exceed %s characters", field, param)
		case "excluded_with":
			return fmt.Errorf("%s: cannot be combined with %s", field, param)
		case "window", "window|eq=*":
			return fmt.Errorf("%s: unknown time window %q (want one of %v)", field, e.Value(), records.Windows)
		case "dimension":
			return fmt.Errorf("%s: unknown dimension %q (want one of %v)", field, e.Value(), records.Kinds)
		case "rankingkey":
			return fmt.Errorf("%s: unknown ranking key %q (want one of %v)", field, e.Value(), opportunity.RankingKeys)
		default:
			return fmt.Errorf("%s: validation failed (%s)", field, e.Tag())
		}
	}

	return err
}

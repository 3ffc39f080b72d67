package form

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"fund-strategy-lab/internal/domain"
)

// Values is a raw form submission. Dates are YYYY-MM-DD (RFC 3339 is accepted too).
type Values struct {
	StrategyChecked []string `json:"stragegyChecked" validate:"required,min=1,dive,required"`
	ChartChecked    []string `json:"chartChecked" validate:"required,min=1,dive,required,chartable"`
	DateRange       []string `json:"dateRange" validate:"required,len=2,dive,required"`
}

// Field names as reported in ValidationErrors.
const (
	FieldStrategy  = "stragegyChecked"
	FieldChart     = "chartChecked"
	FieldDateRange = "dateRange"
)

// Messages shown next to a field when it is left empty.
const (
	MsgStrategyRequired  = "please select at least one strategy"
	MsgChartRequired     = "please choose at least one metric"
	MsgDateRangeRequired = "please select a time range"
)

// ValidationErrors maps a field name to its first error message.
type ValidationErrors map[string]string

// Error lists the field errors in field order.
func (e ValidationErrors) Error() string {
	parts := make([]string, 0, len(e))
	for _, f := range e.Fields() {
		parts = append(parts, f+": "+e[f])
	}
	return "form validation failed: " + strings.Join(parts, "; ")
}

// Fields returns the failing field names, sorted.
func (e ValidationErrors) Fields() []string {
	fields := make([]string, 0, len(e))
	for f := range e {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	return fields
}

func (e ValidationErrors) add(field, msg string) {
	if _, exists := e[field]; !exists {
		e[field] = msg
	}
}

// validate is the validator instance for form values.
// Initialized in init() with the json tag name func and custom validators.
var validate *validator.Validate

func init() {
	validate = validator.New(validator.WithRequiredStructEnabled())
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	if err := validate.RegisterValidation("chartable", func(fl validator.FieldLevel) bool {
		return domain.IsChartable(fl.Field().String())
	}); err != nil {
		panic(fmt.Sprintf("register chartable validator: %v", err))
	}
}

// Validate checks v and builds the query. errs is nil when v is valid.
func (f *Form) Validate(v Values) (domain.CompareQuery, ValidationErrors) {
	errs := ValidationErrors{}

	if err := validate.Struct(v); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			errs.add(FieldStrategy, err.Error())
			return domain.CompareQuery{}, errs
		}
		for _, fe := range verrs {
			field, _, _ := strings.Cut(fe.Field(), "[")
			errs.add(field, message(field, fe))
		}
	}

	var q domain.CompareQuery

	if _, failed := errs[FieldStrategy]; !failed {
		q.StrategyChecked = dedupe(v.StrategyChecked)
		for _, name := range q.StrategyChecked {
			if _, ok := f.allowed[name]; !ok {
				errs.add(FieldStrategy, fmt.Sprintf("unknown strategy %q", name))
			}
		}
	}

	if _, failed := errs[FieldChart]; !failed {
		q.ChartChecked = dedupe(v.ChartChecked)
	}

	if _, failed := errs[FieldDateRange]; !failed {
		r, msg := f.parseRange(v.DateRange)
		if msg != "" {
			errs.add(FieldDateRange, msg)
		}
		q.DateRange = r
	}

	if len(errs) > 0 {
		return domain.CompareQuery{}, errs
	}
	return q, nil
}

func message(field string, fe validator.FieldError) string {
	if fe.Tag() == "chartable" {
		if domain.IsExcluded(fmt.Sprint(fe.Value())) {
			return fmt.Sprintf("metric %q cannot be compared", fe.Value())
		}
		return fmt.Sprintf("unknown metric %q", fe.Value())
	}
	switch field {
	case FieldStrategy:
		return MsgStrategyRequired
	case FieldChart:
		return MsgChartRequired
	default:
		return MsgDateRangeRequired
	}
}

// parseRange parses both ends at day granularity and checks start <= end <= today.
func (f *Form) parseRange(raw []string) ([2]time.Time, string) {
	var r [2]time.Time
	for i, s := range raw {
		t, err := f.parseDay(s)
		if err != nil {
			return r, fmt.Sprintf("invalid date %q, expected YYYY-MM-DD", s)
		}
		r[i] = t
	}
	if r[1].After(f.today) {
		return r, "end date cannot be in the future"
	}
	if r[0].After(r[1]) {
		return r, "start date must not be after end date"
	}
	return r, ""
}

func (f *Form) parseDay(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.ParseInLocation(time.DateOnly, s, f.loc); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, err
	}
	return truncateDay(t, f.loc), nil
}

// dedupe removes repeated values keeping first occurrences in order.
func dedupe(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

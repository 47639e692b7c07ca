package query

import (
	"encoding/json"
	"sort"
	"strings"

	"github.com/fellnerd/dimetrics-mcp-server/internal/apperr"
)

// AggregateFunc is a backend aggregation function.
type AggregateFunc string

const (
	Sum   AggregateFunc = "sum"
	Count AggregateFunc = "count"
	Avg   AggregateFunc = "avg"
	Min   AggregateFunc = "min"
	Max   AggregateFunc = "max"
)

// aggregateOrder is the canonical emission order.
var aggregateOrder = []AggregateFunc{Sum, Count, Avg, Min, Max}

// AggregateFuncs returns the supported functions in canonical order.
func AggregateFuncs() []AggregateFunc {
	out := make([]AggregateFunc, len(aggregateOrder))
	copy(out, aggregateOrder)
	return out
}

func (f AggregateFunc) valid() bool { return f.rank() >= 0 }

func (f AggregateFunc) rank() int {
	for i, fn := range aggregateOrder {
		if fn == f {
			return i
		}
	}
	return -1
}

// Aggregation computes Func over each of Fields across the filtered rows.
type Aggregation struct {
	Func   AggregateFunc
	Fields []string
}

// AggregationSpec is a set of independent aggregations over the same rows.
// sum/avg/min/max only make sense on numeric fields; the backend enforces that.
type AggregationSpec []Aggregation

// Empty reports whether the spec requests no aggregation, in which case the
// response rows are entries.
func (s AggregationSpec) Empty() bool { return len(s) == 0 }

// ParseAggregation decodes {"sum": "amount", "count": ["name", "id"]}.
// Empty input and {} mean absent.
func ParseAggregation(data []byte) (AggregationSpec, error) {
	if isAbsent(data) {
		return nil, nil
	}
	v, err := decodeJSON(data)
	if err != nil {
		return nil, apperr.Wrap(apperr.InvalidAggregationSyntax, err, "aggregate_json is not valid JSON")
	}
	if v == nil {
		return nil, nil
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, apperr.New(apperr.InvalidAggregationSyntax, "aggregate_json must be a JSON object, got %s", jsonType(v))
	}

	spec := make(AggregationSpec, 0, len(obj))
	for name, target := range obj {
		fn := AggregateFunc(name)
		if !fn.valid() {
			return nil, apperr.New(apperr.UnknownAggregationFunction, "unknown aggregation function %q (supported: sum, count, avg, min, max)", name)
		}
		fields, err := aggregateFields(fn, target)
		if err != nil {
			return nil, err
		}
		spec = append(spec, Aggregation{Func: fn, Fields: fields})
	}
	sort.Slice(spec, func(i, j int) bool { return spec[i].Func.rank() < spec[j].Func.rank() })
	return spec, nil
}

func aggregateFields(fn AggregateFunc, v any) ([]string, error) {
	switch t := v.(type) {
	case string:
		if strings.TrimSpace(t) == "" {
			return nil, apperr.New(apperr.InvalidAggregationSyntax, "%s needs a field name", fn)
		}
		return []string{t}, nil
	case []any:
		if len(t) == 0 {
			return nil, apperr.New(apperr.InvalidAggregationSyntax, "%s needs at least one field name", fn)
		}
		fields := make([]string, 0, len(t))
		for _, item := range t {
			s, ok := item.(string)
			if !ok || strings.TrimSpace(s) == "" {
				return nil, apperr.New(apperr.InvalidAggregationSyntax, "%s field names must be non-empty strings", fn)
			}
			fields = append(fields, s)
		}
		return fields, nil
	default:
		return nil, apperr.New(apperr.InvalidAggregationSyntax, "%s target must be a field name, got %s", fn, jsonType(v))
	}
}

// Params renders aggregate[fn]=field[,field...] for each aggregation.
func (s AggregationSpec) Params() (Params, error) {
	var params Params
	for _, a := range s {
		if !a.Func.valid() {
			return Params{}, apperr.New(apperr.UnknownAggregationFunction, "unknown aggregation function %q", a.Func)
		}
		if len(a.Fields) == 0 {
			return Params{}, apperr.New(apperr.InvalidAggregationSyntax, "%s needs at least one field name", a.Func)
		}
		for _, f := range a.Fields {
			if strings.TrimSpace(f) == "" {
				return Params{}, apperr.New(apperr.InvalidAggregationSyntax, "%s field names must be non-empty", a.Func)
			}
		}
		params.Add(bracketKey("aggregate", string(a.Func)), strings.Join(a.Fields, ","))
	}
	return params, nil
}

// MarshalJSON renders the spec back into its input form. Single-field
// aggregations render as a plain string.
func (s AggregationSpec) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(s))
	for _, a := range s {
		if len(a.Fields) == 1 {
			out[string(a.Func)] = a.Fields[0]
		} else {
			out[string(a.Func)] = a.Fields
		}
	}
	return json.Marshal(out)
}

package query

import (
	"sort"
	"strconv"
	"strings"

	"github.com/fellnerd/dimetrics-mcp-server/internal/apperr"
)

// reservedParams are the top-level keys the list request itself sends. A
// simple filter on one of them would be indistinguishable on the wire.
var reservedParams = map[string]bool{
	"search":    true,
	"page":      true,
	"page_size": true,
	"ordering":  true,
	"limit":     true,
	"aggregate": true,
}

// checkFieldName rejects names that would change the bracket structure of
// the keys they appear in.
func checkFieldName(field string) error {
	if strings.ContainsAny(field, "[]") {
		return apperr.New(apperr.InvalidFilterSyntax, "field name %q must not contain brackets", field)
	}
	return nil
}

// Compile merges the simple filter and the Directus tree into one parameter
// set. Simple filters come first, sorted by field; the tree follows in
// declaration order. Either input may be nil.
func Compile(simple SimpleFilter, filter Node) (Params, error) {
	var params Params

	fields := make([]string, 0, len(simple))
	for field := range simple {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	for _, field := range fields {
		if field == "" {
			return Params{}, apperr.New(apperr.InvalidFilterSyntax, "simple filter has an empty field name")
		}
		if reservedParams[field] {
			return Params{}, apperr.New(apperr.InvalidFilterSyntax, "simple filter field %q collides with a request parameter; use directus_filter_json", field)
		}
		if err := checkFieldName(field); err != nil {
			return Params{}, err
		}
		value := simple[field]
		if isComposite(value) {
			return Params{}, apperr.New(apperr.InvalidOperandType, "simple filter on field %q requires a literal, got %s", field, jsonType(value))
		}
		params.Add(field, literal(value))
	}

	if filter != nil {
		if err := lower(&params, nil, filter); err != nil {
			return Params{}, err
		}
	}
	return params, nil
}

func lower(params *Params, prefix []string, n Node) error {
	switch n := n.(type) {
	case *FieldNode:
		if n == nil || len(n.Fields) == 0 {
			return apperr.New(apperr.InvalidFilterSyntax, "empty field node at %s", describePrefix(prefix))
		}
		for _, fp := range n.Fields {
			if fp.Field == "" {
				return apperr.New(apperr.InvalidFilterSyntax, "empty field name at %s", describePrefix(prefix))
			}
			if err := checkFieldName(fp.Field); err != nil {
				return err
			}
			for _, c := range fp.Conditions {
				value, err := renderOperand(fp.Field, c)
				if err != nil {
					return err
				}
				params.Add(bracketKey(extend(prefix, fp.Field, string(c.Op))...), value)
			}
		}
		return nil

	case *LogicalNode:
		if n == nil || !isLogicalKey(string(n.Op)) {
			return apperr.New(apperr.InvalidFilterSyntax, "invalid logical node at %s", describePrefix(prefix))
		}
		if len(n.Children) == 0 {
			return apperr.New(apperr.InvalidFilterSyntax, "%s at %s has no children", n.Op, describePrefix(prefix))
		}
		for i, child := range n.Children {
			if err := lower(params, extend(prefix, string(n.Op), strconv.Itoa(i)), child); err != nil {
				return err
			}
		}
		return nil

	default:
		return apperr.New(apperr.InvalidFilterSyntax, "unsupported filter node %T", n)
	}
}

func renderOperand(field string, c Condition) (string, error) {
	want, ok := c.Op.Kind()
	if !ok {
		return "", apperr.New(apperr.InvalidFilterSyntax, "unknown operator %q on field %q", c.Op, field)
	}
	if c.Operand == nil || c.Operand.operandKind() != want {
		got := "none"
		if c.Operand != nil {
			got = c.Operand.operandKind().String()
		}
		return "", apperr.New(apperr.InvalidOperandType, "%s on field %q requires a %s operand, got %s", c.Op, field, want, got)
	}

	switch o := c.Operand.(type) {
	case Scalar:
		if isComposite(o.Value) {
			return "", apperr.New(apperr.InvalidOperandType, "%s on field %q requires a scalar operand", c.Op, field)
		}
		return literal(o.Value), nil
	case List:
		if len(o.Items) == 0 {
			return "", apperr.New(apperr.InvalidOperandType, "%s on field %q requires a non-empty list", c.Op, field)
		}
		parts := make([]string, len(o.Items))
		for i, item := range o.Items {
			parts[i] = literal(item)
		}
		return strings.Join(parts, ","), nil
	case Pair:
		return literal(o.Low) + "," + literal(o.High), nil
	case Flag:
		return "true", nil
	default:
		return "", apperr.New(apperr.InvalidOperandType, "unsupported operand %T on field %q", o, field)
	}
}

// extend returns a fresh slice; prefix is shared between siblings.
func extend(prefix []string, segments ...string) []string {
	out := make([]string, 0, len(prefix)+len(segments))
	out = append(out, prefix...)
	return append(out, segments...)
}

func describePrefix(prefix []string) string {
	if len(prefix) == 0 {
		return "root"
	}
	return bracketKey(prefix...)
}

package query

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/fellnerd/dimetrics-mcp-server/internal/apperr"
)

// Operator is a Directus field operator, spelled as it appears on the wire.
type Operator string

const (
	OpEq          Operator = "_eq"
	OpNeq         Operator = "_neq"
	OpGt          Operator = "_gt"
	OpGte         Operator = "_gte"
	OpLt          Operator = "_lt"
	OpLte         Operator = "_lte"
	OpIn          Operator = "_in"
	OpNin         Operator = "_nin"
	OpContains    Operator = "_contains"
	OpNContains   Operator = "_ncontains"
	OpStartsWith  Operator = "_starts_with"
	OpNStartsWith Operator = "_nstarts_with"
	OpEndsWith    Operator = "_ends_with"
	OpNEndsWith   Operator = "_nends_with"
	OpBetween     Operator = "_between"
	OpNBetween    Operator = "_nbetween"
	OpNull        Operator = "_null"
	OpNNull       Operator = "_nnull"
	OpEmpty       Operator = "_empty"
	OpNEmpty      Operator = "_nempty"
)

// LogicalOp combines child nodes.
type LogicalOp string

const (
	And LogicalOp = "_and"
	Or  LogicalOp = "_or"
)

// OperandKind is the operand shape an operator accepts.
type OperandKind int

const (
	ScalarOperand OperandKind = iota
	ListOperand
	PairOperand
	FlagOperand
)

func (k OperandKind) String() string {
	switch k {
	case ScalarOperand:
		return "scalar"
	case ListOperand:
		return "list"
	case PairOperand:
		return "pair"
	case FlagOperand:
		return "flag"
	default:
		return "unknown"
	}
}

var operatorKinds = map[Operator]OperandKind{
	OpEq:          ScalarOperand,
	OpNeq:         ScalarOperand,
	OpGt:          ScalarOperand,
	OpGte:         ScalarOperand,
	OpLt:          ScalarOperand,
	OpLte:         ScalarOperand,
	OpContains:    ScalarOperand,
	OpNContains:   ScalarOperand,
	OpStartsWith:  ScalarOperand,
	OpNStartsWith: ScalarOperand,
	OpEndsWith:    ScalarOperand,
	OpNEndsWith:   ScalarOperand,
	OpIn:          ListOperand,
	OpNin:         ListOperand,
	OpBetween:     PairOperand,
	OpNBetween:    PairOperand,
	OpNull:        FlagOperand,
	OpNNull:       FlagOperand,
	OpEmpty:       FlagOperand,
	OpNEmpty:      FlagOperand,
}

// flag operators with an explicit false operand flip to their complement.
var flagComplement = map[Operator]Operator{
	OpNull:   OpNNull,
	OpNNull:  OpNull,
	OpEmpty:  OpNEmpty,
	OpNEmpty: OpEmpty,
}

// Operators returns every supported operator in a stable order.
func Operators() []Operator {
	ops := make([]Operator, 0, len(operatorKinds))
	for op := range operatorKinds {
		ops = append(ops, op)
	}
	sort.Slice(ops, func(i, j int) bool { return ops[i] < ops[j] })
	return ops
}

// Kind returns the operand shape op accepts. ok is false for unknown operators.
func (op Operator) Kind() (OperandKind, bool) {
	k, ok := operatorKinds[op]
	return k, ok
}

// Node is a Directus filter tree node: *FieldNode or *LogicalNode.
type Node interface {
	isNode()
}

// FieldNode is one JSON object of field predicates, implicitly AND-ed.
type FieldNode struct {
	Fields []FieldPredicate
}

// FieldPredicate holds the conditions applied to one field.
type FieldPredicate struct {
	Field      string
	Conditions []Condition
}

// Condition is one operator applied to a field.
type Condition struct {
	Op      Operator
	Operand Operand
}

// LogicalNode combines its children with _and or _or. Child order only
// affects the generated parameter indexes.
type LogicalNode struct {
	Op       LogicalOp
	Children []Node
}

func (*FieldNode) isNode()   {}
func (*LogicalNode) isNode() {}

// Operand is the right-hand side of a condition: Scalar, List, Pair or Flag.
type Operand interface {
	operandKind() OperandKind
}

// Scalar is a single literal: string, json.Number, bool, nil or a Go number.
type Scalar struct {
	Value any
}

// List is a non-empty set of literals for _in / _nin.
type List struct {
	Items []any
}

// Pair is the ordered bound pair for _between / _nbetween.
type Pair struct {
	Low, High any
}

// Flag is the operand of the null/empty check operators.
type Flag struct{}

func (Scalar) operandKind() OperandKind { return ScalarOperand }
func (List) operandKind() OperandKind   { return ListOperand }
func (Pair) operandKind() OperandKind   { return PairOperand }
func (Flag) operandKind() OperandKind   { return FlagOperand }

// Where builds a single-condition field node.
func Where(field string, op Operator, operand Operand) *FieldNode {
	return &FieldNode{Fields: []FieldPredicate{{
		Field:      field,
		Conditions: []Condition{{Op: op, Operand: operand}},
	}}}
}

// AllOf builds an _and node.
func AllOf(children ...Node) *LogicalNode {
	return &LogicalNode{Op: And, Children: children}
}

// AnyOf builds an _or node.
func AnyOf(children ...Node) *LogicalNode {
	return &LogicalNode{Op: Or, Children: children}
}

// SimpleFilter is the legacy dialect: field -> required literal, AND-ed.
type SimpleFilter map[string]any

// ParseSimpleFilter decodes a SimpleFilter. Empty input and {} mean absent.
func ParseSimpleFilter(data []byte) (SimpleFilter, error) {
	if isAbsent(data) {
		return nil, nil
	}
	v, err := decodeJSON(data)
	if err != nil {
		return nil, apperr.Wrap(apperr.InvalidFilterSyntax, err, "filters_json is not valid JSON")
	}
	if v == nil {
		return nil, nil
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, apperr.New(apperr.InvalidFilterSyntax, "filters_json must be a JSON object, got %s", jsonType(v))
	}
	if len(obj) == 0 {
		return nil, nil
	}
	return SimpleFilter(obj), nil
}

// ParseFilter decodes a Directus filter tree. Empty input, null and {} mean absent.
func ParseFilter(data []byte) (Node, error) {
	if isAbsent(data) {
		return nil, nil
	}
	v, err := decodeJSON(data)
	if err != nil {
		return nil, apperr.Wrap(apperr.InvalidFilterSyntax, err, "directus_filter_json is not valid JSON")
	}
	if v == nil {
		return nil, nil
	}
	if obj, ok := v.(map[string]any); ok && len(obj) == 0 {
		return nil, nil
	}
	return parseNode(v, "$")
}

func parseNode(v any, path string) (Node, error) {
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, apperr.New(apperr.InvalidFilterSyntax, "filter node at %s must be an object, got %s", path, jsonType(v))
	}
	if len(obj) == 0 {
		return nil, apperr.New(apperr.InvalidFilterSyntax, "filter node at %s is empty", path)
	}

	var logical []string
	var fields []string
	for key := range obj {
		if isLogicalKey(key) {
			logical = append(logical, key)
		} else {
			fields = append(fields, key)
		}
	}
	sort.Strings(logical)
	sort.Strings(fields)

	switch {
	case len(logical) > 1:
		return nil, apperr.New(apperr.AmbiguousFilterNode, "filter node at %s combines %s", path, strings.Join(logical, " and "))
	case len(logical) == 1 && len(fields) > 0:
		return nil, apperr.New(apperr.AmbiguousFilterNode, "filter node at %s mixes %s with field predicates %s", path, logical[0], strings.Join(fields, ", "))
	case len(logical) == 1:
		return parseLogical(LogicalOp(logical[0]), obj[logical[0]], path)
	}

	node := &FieldNode{Fields: make([]FieldPredicate, 0, len(fields))}
	for _, field := range fields {
		fp, err := parseFieldPredicate(field, obj[field], path)
		if err != nil {
			return nil, err
		}
		node.Fields = append(node.Fields, fp)
	}
	return node, nil
}

func parseLogical(op LogicalOp, v any, path string) (Node, error) {
	items, ok := v.([]any)
	if !ok {
		return nil, apperr.New(apperr.InvalidFilterSyntax, "%s at %s must be an array of filter nodes, got %s", op, path, jsonType(v))
	}
	if len(items) == 0 {
		return nil, apperr.New(apperr.InvalidFilterSyntax, "%s at %s has no children", op, path)
	}
	node := &LogicalNode{Op: op, Children: make([]Node, 0, len(items))}
	for i, item := range items {
		child, err := parseNode(item, fmt.Sprintf("%s.%s[%d]", path, op, i))
		if err != nil {
			return nil, err
		}
		node.Children = append(node.Children, child)
	}
	return node, nil
}

func parseFieldPredicate(field string, v any, path string) (FieldPredicate, error) {
	if field == "" {
		return FieldPredicate{}, apperr.New(apperr.InvalidFilterSyntax, "empty field name at %s", path)
	}
	if strings.HasPrefix(field, "_") {
		return FieldPredicate{}, apperr.New(apperr.InvalidFilterSyntax, "unknown logical operator %q at %s", field, path)
	}
	conds, ok := v.(map[string]any)
	if !ok || len(conds) == 0 {
		return FieldPredicate{}, apperr.New(apperr.InvalidFilterSyntax, "field %q at %s must map operators to operands", field, path)
	}

	ops := make([]string, 0, len(conds))
	for op := range conds {
		ops = append(ops, op)
	}
	sort.Strings(ops)

	fp := FieldPredicate{Field: field, Conditions: make([]Condition, 0, len(ops))}
	for _, name := range ops {
		if isLogicalKey(name) {
			return FieldPredicate{}, apperr.New(apperr.AmbiguousFilterNode, "field %q at %s contains logical operator %s", field, path, name)
		}
		op := Operator(name)
		cond, err := parseCondition(field, op, conds[name])
		if err != nil {
			return FieldPredicate{}, err
		}
		fp.Conditions = append(fp.Conditions, cond)
	}
	return fp, nil
}

func parseCondition(field string, op Operator, v any) (Condition, error) {
	kind, ok := op.Kind()
	if !ok {
		return Condition{}, apperr.New(apperr.InvalidFilterSyntax, "unknown operator %q on field %q", op, field)
	}

	switch kind {
	case ScalarOperand:
		if isComposite(v) {
			return Condition{}, apperr.New(apperr.InvalidOperandType, "%s on field %q requires a scalar operand, got %s", op, field, jsonType(v))
		}
		return Condition{Op: op, Operand: Scalar{Value: v}}, nil

	case ListOperand:
		items, ok := v.([]any)
		if !ok {
			return Condition{}, apperr.New(apperr.InvalidOperandType, "%s on field %q requires a list operand, got %s", op, field, jsonType(v))
		}
		if len(items) == 0 {
			return Condition{}, apperr.New(apperr.InvalidOperandType, "%s on field %q requires a non-empty list", op, field)
		}
		for _, item := range items {
			if isComposite(item) {
				return Condition{}, apperr.New(apperr.InvalidOperandType, "%s on field %q accepts only literals, got %s", op, field, jsonType(item))
			}
		}
		return Condition{Op: op, Operand: List{Items: items}}, nil

	case PairOperand:
		items, ok := v.([]any)
		if !ok {
			return Condition{}, apperr.New(apperr.InvalidOperandType, "%s on field %q requires a two-element list, got %s", op, field, jsonType(v))
		}
		if len(items) != 2 {
			return Condition{}, apperr.New(apperr.InvalidOperandArity, "%s on field %q requires exactly 2 bounds, got %d", op, field, len(items))
		}
		for _, item := range items {
			if isComposite(item) {
				return Condition{}, apperr.New(apperr.InvalidOperandType, "%s on field %q accepts only literal bounds, got %s", op, field, jsonType(item))
			}
		}
		return Condition{Op: op, Operand: Pair{Low: items[0], High: items[1]}}, nil

	case FlagOperand:
		switch b := v.(type) {
		case nil:
			return Condition{Op: op, Operand: Flag{}}, nil
		case bool:
			if !b {
				op = flagComplement[op]
			}
			return Condition{Op: op, Operand: Flag{}}, nil
		default:
			return Condition{}, apperr.New(apperr.InvalidOperandType, "%s on field %q requires a boolean operand, got %s", op, field, jsonType(v))
		}
	}
	return Condition{}, apperr.New(apperr.InvalidFilterSyntax, "unsupported operator %q", op)
}

// MarshalJSON renders the node back into Directus JSON.
func (n *FieldNode) MarshalJSON() ([]byte, error) {
	out := make(map[string]map[string]any, len(n.Fields))
	for _, fp := range n.Fields {
		conds, ok := out[fp.Field]
		if !ok {
			conds = make(map[string]any, len(fp.Conditions))
			out[fp.Field] = conds
		}
		for _, c := range fp.Conditions {
			conds[string(c.Op)] = operandJSON(c.Operand)
		}
	}
	return json.Marshal(out)
}

// MarshalJSON renders the node back into Directus JSON.
func (n *LogicalNode) MarshalJSON() ([]byte, error) {
	children := n.Children
	if children == nil {
		children = []Node{}
	}
	return json.Marshal(map[string][]Node{string(n.Op): children})
}

func operandJSON(o Operand) any {
	switch o := o.(type) {
	case Scalar:
		return o.Value
	case List:
		return o.Items
	case Pair:
		return []any{o.Low, o.High}
	case Flag:
		return true
	default:
		return nil
	}
}

func isLogicalKey(key string) bool {
	return key == string(And) || key == string(Or)
}

func isAbsent(data []byte) bool {
	trimmed := bytes.TrimSpace(data)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("{}"))
}

// decodeJSON decodes a single JSON value, keeping numbers as json.Number so
// operands render exactly as the caller wrote them.
func decodeJSON(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("unexpected data after JSON value")
	}
	return v, nil
}

func isComposite(v any) bool {
	switch v.(type) {
	case map[string]any, []any:
		return true
	default:
		return false
	}
}

func jsonType(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case bool:
		return "boolean"
	case json.Number, float64, float32, int, int64:
		return "number"
	case string:
		return "string"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	default:
		return fmt.Sprintf("%T", v)
	}
}

// literal renders a scalar the way the backend expects it in a query string.
func literal(v any) string {
	switch v := v.(type) {
	case nil:
		return "null"
	case string:
		return v
	case json.Number:
		return v.String()
	case bool:
		return strconv.FormatBool(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	default:
		return fmt.Sprint(v)
	}
}

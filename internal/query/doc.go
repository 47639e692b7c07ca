// Package query compiles generic-entry list requests into backend query
// parameters.
//
// # Filter dialects
//
// Two filter dialects can be combined in one request; both are AND-ed:
//
//	SimpleFilter   {"training_type": "dauerlauf"}           -> training_type=dauerlauf
//	Node (Directus) {"amount": {"_gte": 10}}                 -> amount[_gte]=10
//
// A Directus tree is either a FieldNode (one JSON object of field
// predicates) or a LogicalNode (_and / _or over an ordered child list).
// Logical children are keyed by their 0-based position:
//
//	{"_and": [{"state": {"_eq": "ok"}}, {"amount": {"_gte": 10}}]}
//	-> _and[0][state][_eq]=ok
//	   _and[1][amount][_gte]=10
//
// Operands render as follows:
//
//	scalar operators        literal (strings raw, numbers as written)
//	_in, _nin               comma-joined list, never empty
//	_between, _nbetween     "low,high", exactly two elements
//	_null, _nnull,
//	_empty, _nempty         "true"; a false operand selects the complement
//
// List items are joined without escaping, so an item that itself contains a
// comma cannot be told apart from two items: ["a,b"] and ["a","b"] produce
// the same parameter. Match such values with _contains or _eq instead.
//
// Field names must not contain brackets. Simple filters may not use the
// request's own keys (search, page, page_size, ordering, limit, aggregate);
// a Directus field predicate on such a field is fine because its key is
// always bracketed.
//
// # Aggregation
//
// An AggregationSpec adds aggregate[fn]=field parameters. A non-empty spec
// tells the caller the response rows are computed values, not entries.
//
// Everything here is a pure function of its inputs; the same inputs always
// produce byte-identical Params.
package query

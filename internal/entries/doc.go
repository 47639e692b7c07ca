// Package entries is the generic-entry orchestrator. It validates caller
// input, compiles filters and aggregations into query parameters, issues
// exactly one gateway call per operation and normalizes the backend's
// paginated response into a stable envelope.
//
// Errors returned from this package always carry an apperr.Kind together
// with the operation and resource name. Converting them into structured
// tool results is left to the caller.
package entries

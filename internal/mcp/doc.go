// Package mcp implements a Model Context Protocol server that exposes the
// Dimetrics platform to AI agents.
//
// # Transport
//
// Supports two transports:
//   - stdio: for local agents launched as a subprocess
//   - http: streamable HTTP at /mcp, with /healthz and /metrics alongside
//
// # Results
//
// Every tool answers with a Result:
//
//	{"success": true, "message": "...", "data": {...}, "request_id": "..."}
//	{"success": false, "message": "...", "error": "...", "error_kind": "EntryNotFound"}
//
// Failures are never returned as protocol errors. error_kind is one of the
// apperr kinds, so agents can tell a bad filter from a missing entry.
//
// # Tools
//
//	list_generic_entries
//	  Params: resource_name (required), search, page_size (20), page (1), ordering,
//	          filters_json, directus_filter_json, aggregate_json
//	  Returns: entries.ListResult
//
//	get_generic_entry, create_generic_entry, update_generic_entry, delete_generic_entry
//	  Single-entry CRUD. delete requires confirm_deletion=true.
//
//	list_<collection>, get_<x>, create_<x>, update_<x>, delete_<x>
//	  Catalog CRUD for apps, categories, services, resources and permission groups.
//
//	list_attributes, get_attribute, create_attribute, update_attribute,
//	delete_attribute, create_attributes_bulk
//	  Attribute (column) CRUD scoped to a resource.
//
//	health_check
//	  Backend reachability and auth status.
//
// # Constructor
//
//	func NewServer(handlers *Handlers, opts ServerOptions) *Server
//	func (s *Server) Start(ctx context.Context) error
package mcp

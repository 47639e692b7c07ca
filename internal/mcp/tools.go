package mcp

import (
	"fmt"

	"github.com/fellnerd/dimetrics-mcp-server/internal/catalog"
)

// Tool names for the generic entry surface.
const (
	ToolListEntries          = "list_generic_entries"
	ToolGetEntry             = "get_generic_entry"
	ToolCreateEntry          = "create_generic_entry"
	ToolUpdateEntry          = "update_generic_entry"
	ToolDeleteEntry          = "delete_generic_entry"
	ToolHealth               = "health_check"
	ToolListAttributes       = "list_attributes"
	ToolGetAttribute         = "get_attribute"
	ToolCreateAttribute      = "create_attribute"
	ToolUpdateAttribute      = "update_attribute"
	ToolDeleteAttribute      = "delete_attribute"
	ToolCreateAttributesBulk = "create_attributes_bulk"
)

const serverInstructions = `Dimetrics exposes low-code apps as resources (tables) whose rows are entries.
Use list_resources and list_attributes to discover schemas, then the *_generic_entry tools to read and write data.
list_generic_entries accepts simple equality filters (filters_json), Directus-style filter trees (directus_filter_json)
and aggregations (aggregate_json). Aggregated rows are returned under data.aggregations, never under data.results.
Every tool answers with {"success": bool, "message": ...}; on failure error and error_kind explain what went wrong.
Deletions require confirm_deletion=true.`

const listEntriesDescription = `List entries (rows) of a resource with search, ordering, pagination, filters and aggregations.

Simple filters (filters_json): {"training_type":"dauerlauf"}

Directus filters (directus_filter_json):
  {"state":{"_eq":"ok"}}
  {"amount":{"_gte":10}}
  {"name":{"_contains":"Canva"}}
  {"date_created":{"_between":["2025-01-01","2025-12-31"]}}
  {"state":{"_in":["ok","pending"]}}
  {"_and":[{"state":{"_eq":"ok"}},{"amount":{"_gte":10}}]}
  {"_or":[{"state":{"_eq":"ok"}},{"state":{"_eq":"pending"}}]}
Operators: _eq _neq _gt _gte _lt _lte _in _nin _contains _ncontains _starts_with _nstarts_with
_ends_with _nends_with _between _nbetween _null _nnull _empty _nempty. Logical: _and _or.

Aggregations (aggregate_json): {"sum":"distance_km","count":"name"}. Functions: sum, count, avg, min, max.
sum/avg only make sense on numeric fields.`

func (s *Server) registerTools() {
	h := s.handlers

	addTool(s, ToolListEntries, listEntriesDescription, h.ListEntries)
	addTool(s, ToolGetEntry, "Fetch one entry of a resource by object_id.", h.GetEntry)
	addTool(s, ToolCreateEntry,
		"Create an entry in a resource. object_id, date_created and date_updated are assigned by the system.",
		h.CreateEntry)
	addTool(s, ToolUpdateEntry,
		"Partially update an entry. Only the fields present in update_data_json are changed.",
		h.UpdateEntry)
	addTool(s, ToolDeleteEntry,
		"Irreversibly delete an entry. Requires confirm_deletion=true; otherwise nothing is deleted.",
		h.DeleteEntry)
	addTool(s, ToolHealth, "Check connectivity and authentication against the Dimetrics API.", h.Health)

	for _, c := range catalog.Collections() {
		addTool(s, "list_"+c.Name, fmt.Sprintf("List %s with optional search and pagination.", c.Name), h.ListCatalog(c))
		addTool(s, "get_"+c.Singular, fmt.Sprintf("Fetch one %s by object_id.", c.Singular), h.GetCatalog(c))
		addTool(s, "create_"+c.Singular, fmt.Sprintf("Create a %s from data_json.", c.Singular), h.CreateCatalog(c))
		addTool(s, "update_"+c.Singular,
			fmt.Sprintf("Partially update a %s; only the fields in data_json change.", c.Singular), h.UpdateCatalog(c))
		addTool(s, "delete_"+c.Singular,
			fmt.Sprintf("Irreversibly delete a %s. Requires confirm_deletion=true.", c.Singular), h.DeleteCatalog(c))
	}

	addTool(s, ToolListAttributes, "List the attributes (columns) of a resource.", h.ListAttributes)
	addTool(s, ToolGetAttribute, "Fetch one attribute of a resource.", h.GetAttribute)
	addTool(s, ToolCreateAttribute, "Create an attribute (column) in a resource from data_json.", h.CreateAttribute)
	addTool(s, ToolUpdateAttribute, "Partially update an attribute; only the fields in data_json change.", h.UpdateAttribute)
	addTool(s, ToolDeleteAttribute,
		"Irreversibly delete an attribute and its data. Requires confirm_deletion=true.", h.DeleteAttribute)
	addTool(s, ToolCreateAttributesBulk, "Create several attributes of a resource in one request.", h.CreateAttributesBulk)
}

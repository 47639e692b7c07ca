package mcp

// --- Result envelope ---

// Result is the payload of every tool call. Failures are reported with
// Success=false rather than as protocol errors so agents can branch on the
// flag.
type Result struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	Error     string `json:"error,omitempty"`
	ErrorKind string `json:"error_kind,omitempty"`
	Operation string `json:"operation,omitempty"`
	Resource  string `json:"resource_name,omitempty"`
	RequestID string `json:"request_id,omitempty"`
	Data      any    `json:"data,omitempty"`
}

// --- Tool: list_generic_entries ---

type ListEntriesParams struct {
	ResourceName       string `json:"resource_name" jsonschema:"Resource (table) name, e.g. lau6_RunEntries"`
	Search             string `json:"search,omitempty" jsonschema:"Free-text search across the resource's text fields"`
	PageSize           *int   `json:"page_size,omitempty" jsonschema:"Entries per page (default 20, 0 uses the backend default)"`
	Page               *int   `json:"page,omitempty" jsonschema:"1-based page number (default 1)"`
	Ordering           string `json:"ordering,omitempty" jsonschema:"Single field to order by, prefix with - for descending, e.g. -date_created"`
	FiltersJSON        string `json:"filters_json,omitempty" jsonschema:"JSON object of field equality filters, e.g. {\"training_type\":\"dauerlauf\"}"`
	DirectusFilterJSON string `json:"directus_filter_json,omitempty" jsonschema:"Directus-style filter tree, e.g. {\"_and\":[{\"state\":{\"_eq\":\"ok\"}},{\"amount\":{\"_gte\":10}}]}"`
	AggregateJSON      string `json:"aggregate_json,omitempty" jsonschema:"Aggregations as JSON, e.g. {\"sum\":\"amount\",\"count\":\"name\"}; functions sum, count, avg, min, max"`
}

// --- Tool: get_generic_entry ---

type GetEntryParams struct {
	ResourceName string `json:"resource_name" jsonschema:"Resource (table) name"`
	EntryID      string `json:"entry_id" jsonschema:"object_id of the entry"`
}

// --- Tool: create_generic_entry ---

type CreateEntryParams struct {
	ResourceName  string `json:"resource_name" jsonschema:"Resource (table) name"`
	EntryDataJSON string `json:"entry_data_json" jsonschema:"JSON object with the field values of the new entry; object_id and timestamps are set by the system"`
}

// --- Tool: update_generic_entry ---

type UpdateEntryParams struct {
	ResourceName   string `json:"resource_name" jsonschema:"Resource (table) name"`
	EntryID        string `json:"entry_id" jsonschema:"object_id of the entry"`
	UpdateDataJSON string `json:"update_data_json" jsonschema:"JSON object with only the fields to change"`
}

// --- Tool: delete_generic_entry ---

type DeleteEntryParams struct {
	ResourceName    string `json:"resource_name" jsonschema:"Resource (table) name"`
	EntryID         string `json:"entry_id" jsonschema:"object_id of the entry"`
	ConfirmDeletion bool   `json:"confirm_deletion,omitempty" jsonschema:"Must be true; deletion is irreversible"`
}

// --- Tool: health_check ---

type HealthParams struct{}

type HealthResult struct {
	Status        string `json:"status"`
	APIURL        string `json:"api_url"`
	Authenticated bool   `json:"authenticated"`
	Reachable     bool   `json:"reachable"`
	Version       string `json:"version"`
}

// --- Catalog tools: list_<collection>, get_<singular>, ... ---

type ListCatalogParams struct {
	Search   string `json:"search,omitempty" jsonschema:"Optional search term"`
	PageSize *int   `json:"page_size,omitempty" jsonschema:"Results per page (default 20)"`
	Page     *int   `json:"page,omitempty" jsonschema:"1-based page number (default 1)"`
	Limit    *int   `json:"limit,omitempty" jsonschema:"Maximum number of results"`
}

type GetCatalogParams struct {
	ObjectID string `json:"object_id" jsonschema:"object_id of the record"`
}

type CreateCatalogParams struct {
	DataJSON string `json:"data_json" jsonschema:"JSON object with the fields of the new record, e.g. {\"name\":\"Sport\",\"description\":\"\",\"prefix\":\"spo\"}"`
}

type UpdateCatalogParams struct {
	ObjectID string `json:"object_id" jsonschema:"object_id of the record"`
	DataJSON string `json:"data_json" jsonschema:"JSON object with only the fields to change"`
}

type DeleteCatalogParams struct {
	ObjectID        string `json:"object_id" jsonschema:"object_id of the record"`
	ConfirmDeletion bool   `json:"confirm_deletion,omitempty" jsonschema:"Must be true; deletion is irreversible"`
}

// --- Attribute tools ---

type ListAttributesParams struct {
	ResourceName string `json:"resource_name" jsonschema:"Resource whose attributes (columns) to list"`
	Search       string `json:"search,omitempty" jsonschema:"Optional search term"`
	PageSize     *int   `json:"page_size,omitempty" jsonschema:"Results per page (default 50)"`
	Page         *int   `json:"page,omitempty" jsonschema:"1-based page number (default 1)"`
}

type GetAttributeParams struct {
	ResourceName string `json:"resource_name" jsonschema:"Resource name"`
	AttributeID  string `json:"attribute_id" jsonschema:"object_id of the attribute"`
}

type CreateAttributeParams struct {
	ResourceName string `json:"resource_name" jsonschema:"Resource name"`
	DataJSON     string `json:"data_json" jsonschema:"JSON object describing the attribute. Required keys: name (field name), type (e.g. string, integer, decimal, boolean, date), label (display name). Example: {\"name\":\"amount\",\"type\":\"decimal\",\"label\":\"Amount\"}"`
}

type UpdateAttributeParams struct {
	ResourceName string `json:"resource_name" jsonschema:"Resource name"`
	AttributeID  string `json:"attribute_id" jsonschema:"object_id of the attribute"`
	DataJSON     string `json:"data_json" jsonschema:"JSON object with only the fields to change"`
}

type DeleteAttributeParams struct {
	ResourceName    string `json:"resource_name" jsonschema:"Resource name"`
	AttributeID     string `json:"attribute_id" jsonschema:"object_id of the attribute"`
	ConfirmDeletion bool   `json:"confirm_deletion,omitempty" jsonschema:"Must be true; deletion is irreversible"`
}

type CreateAttributesBulkParams struct {
	ResourceName   string `json:"resource_name" jsonschema:"Resource name"`
	AttributesJSON string `json:"attributes_json" jsonschema:"JSON array of attribute definitions. Each requires name, type and label, e.g. [{\"name\":\"amount\",\"type\":\"decimal\",\"label\":\"Amount\"}]"`
}

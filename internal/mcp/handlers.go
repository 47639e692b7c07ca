package mcp

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/fellnerd/dimetrics-mcp-server/internal/apperr"
	"github.com/fellnerd/dimetrics-mcp-server/internal/catalog"
	"github.com/fellnerd/dimetrics-mcp-server/internal/entries"
	"github.com/fellnerd/dimetrics-mcp-server/internal/query"
	"github.com/fellnerd/dimetrics-mcp-server/internal/types"
)

const (
	defaultPageSize          = 20
	defaultAttributePageSize = 50
	defaultPage              = 1
)

// HealthChecker reports on the backend connection. *gateway.Client
// satisfies it.
type HealthChecker interface {
	Ping(ctx context.Context) error
	BaseURL() string
	Authenticated() bool
}

// Handlers implements the MCP tools. Every handler returns a Result;
// failures never escape as Go errors.
type Handlers struct {
	logger  *zap.Logger
	entries *entries.Service
	catalog *catalog.Service
	health  HealthChecker
	version string
}

// NewHandlers creates a new Handlers instance. health may be nil.
func NewHandlers(
	entrySvc *entries.Service,
	catalogSvc *catalog.Service,
	health HealthChecker,
	logger *zap.Logger,
	version string,
) *Handlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handlers{
		logger:  logger.Named("mcp-handlers"),
		entries: entrySvc,
		catalog: catalogSvc,
		health:  health,
		version: version,
	}
}

// ListEntries handles the list_generic_entries tool.
func (h *Handlers) ListEntries(ctx context.Context, p ListEntriesParams) Result {
	const op = entries.OpList

	simple, err := query.ParseSimpleFilter([]byte(p.FiltersJSON))
	if err != nil {
		return failure(op, p.ResourceName, err, "Could not parse filters_json")
	}
	filter, err := query.ParseFilter([]byte(p.DirectusFilterJSON))
	if err != nil {
		return failure(op, p.ResourceName, err, "Could not parse directus_filter_json")
	}
	agg, err := query.ParseAggregation([]byte(p.AggregateJSON))
	if err != nil {
		return failure(op, p.ResourceName, err, "Could not parse aggregate_json")
	}

	res, err := h.entries.List(ctx, p.ResourceName, entries.ListOptions{
		Search:    p.Search,
		PageSize:  withDefault(p.PageSize, defaultPageSize),
		Page:      withDefault(p.Page, defaultPage),
		Ordering:  p.Ordering,
		Filters:   simple,
		Filter:    filter,
		Aggregate: agg,
	})
	if err != nil {
		return failure(op, p.ResourceName, err, fmt.Sprintf("Failed to list entries of resource '%s'", p.ResourceName))
	}
	res.RawFilters = p.FiltersJSON
	res.RawFilter = p.DirectusFilterJSON
	res.RawAggregate = p.AggregateJSON

	msg := fmt.Sprintf("Fetched %d of %d entries of resource '%s'", len(res.Results), res.Count, res.Resource)
	if res.Aggregated {
		msg = fmt.Sprintf("Computed aggregations over %d entries of resource '%s'", res.Count, res.Resource)
	}
	return success(op, res.Resource, msg, res)
}

// GetEntry handles the get_generic_entry tool.
func (h *Handlers) GetEntry(ctx context.Context, p GetEntryParams) Result {
	entry, err := h.entries.Get(ctx, p.ResourceName, p.EntryID)
	if err != nil {
		return failure(entries.OpGet, p.ResourceName, err, fmt.Sprintf("Failed to fetch entry '%s' of resource '%s'", p.EntryID, p.ResourceName))
	}
	return success(entries.OpGet, p.ResourceName, fmt.Sprintf("Fetched entry '%s'", p.EntryID), entry)
}

// CreateEntry handles the create_generic_entry tool.
func (h *Handlers) CreateEntry(ctx context.Context, p CreateEntryParams) Result {
	data, err := parseObject("entry_data_json", p.EntryDataJSON)
	if err != nil {
		return failure(entries.OpCreate, p.ResourceName, err, "Could not parse entry_data_json")
	}
	entry, err := h.entries.Create(ctx, p.ResourceName, data)
	if err != nil {
		return failure(entries.OpCreate, p.ResourceName, err, fmt.Sprintf("Failed to create entry in resource '%s'", p.ResourceName))
	}
	return success(entries.OpCreate, p.ResourceName, fmt.Sprintf("Created entry '%s' in resource '%s'", entry.ID(), p.ResourceName), entry)
}

// UpdateEntry handles the update_generic_entry tool.
func (h *Handlers) UpdateEntry(ctx context.Context, p UpdateEntryParams) Result {
	data, err := parseObject("update_data_json", p.UpdateDataJSON)
	if err != nil {
		return failure(entries.OpUpdate, p.ResourceName, err, "Could not parse update_data_json")
	}
	res, err := h.entries.Update(ctx, p.ResourceName, p.EntryID, data)
	if err != nil {
		return failure(entries.OpUpdate, p.ResourceName, err, fmt.Sprintf("Failed to update entry '%s' of resource '%s'", p.EntryID, p.ResourceName))
	}
	return success(entries.OpUpdate, p.ResourceName,
		fmt.Sprintf("Updated %s of entry '%s'", strings.Join(res.ChangedFields, ", "), p.EntryID), res)
}

// DeleteEntry handles the delete_generic_entry tool.
func (h *Handlers) DeleteEntry(ctx context.Context, p DeleteEntryParams) Result {
	res, err := h.entries.Delete(ctx, p.ResourceName, p.EntryID, p.ConfirmDeletion)
	if err != nil {
		return failure(entries.OpDelete, p.ResourceName, err, fmt.Sprintf("Entry '%s' of resource '%s' was not deleted", p.EntryID, p.ResourceName))
	}
	return success(entries.OpDelete, p.ResourceName, fmt.Sprintf("Deleted entry '%s' of resource '%s'", p.EntryID, p.ResourceName), res)
}

// Health handles the health_check tool.
func (h *Handlers) Health(ctx context.Context, _ HealthParams) Result {
	hr := HealthResult{Status: "healthy", Version: h.version}
	if h.health == nil {
		hr.Status = "unconfigured"
		return Result{Success: false, Message: "No backend client configured", ErrorKind: string(apperr.GatewayError), Operation: "health", Data: hr}
	}
	hr.APIURL = h.health.BaseURL()
	hr.Authenticated = h.health.Authenticated()
	if err := h.health.Ping(ctx); err != nil {
		h.logger.Warn("Backend health check failed", zap.String("api_url", hr.APIURL), zap.Error(err))
		hr.Status = "unhealthy"
		res := failure("health", "", err, "Dimetrics API is not reachable")
		res.Data = hr
		return res
	}
	hr.Reachable = true
	return success("health", "", "Dimetrics API is reachable", hr)
}

// --- Catalog ---

// ListCatalog handles list_<collection>.
func (h *Handlers) ListCatalog(c catalog.Collection) func(context.Context, ListCatalogParams) Result {
	return func(ctx context.Context, p ListCatalogParams) Result {
		page, err := h.catalog.List(ctx, c, catalog.ListOptions{
			Search:   p.Search,
			PageSize: withDefault(p.PageSize, defaultPageSize),
			Page:     withDefault(p.Page, defaultPage),
			Limit:    p.Limit,
		})
		if err != nil {
			return failure("list", c.Name, err, fmt.Sprintf("Failed to list %s", c.Name))
		}
		return success("list", c.Name, fmt.Sprintf("Fetched %d of %d %s", len(page.Results), page.Count, c.Name), page)
	}
}

// GetCatalog handles get_<singular>.
func (h *Handlers) GetCatalog(c catalog.Collection) func(context.Context, GetCatalogParams) Result {
	return func(ctx context.Context, p GetCatalogParams) Result {
		rec, err := h.catalog.Get(ctx, c, p.ObjectID)
		if err != nil {
			return failure("get", c.Name, err, fmt.Sprintf("Failed to fetch %s '%s'", c.Singular, p.ObjectID))
		}
		return success("get", c.Name, fmt.Sprintf("Fetched %s '%s'", c.Singular, p.ObjectID), rec)
	}
}

// CreateCatalog handles create_<singular>.
func (h *Handlers) CreateCatalog(c catalog.Collection) func(context.Context, CreateCatalogParams) Result {
	return func(ctx context.Context, p CreateCatalogParams) Result {
		data, err := parseObject("data_json", p.DataJSON)
		if err != nil {
			return failure("create", c.Name, err, "Could not parse data_json")
		}
		rec, err := h.catalog.Create(ctx, c, data)
		if err != nil {
			return failure("create", c.Name, err, fmt.Sprintf("Failed to create %s", c.Singular))
		}
		return success("create", c.Name, fmt.Sprintf("Created %s '%s'", c.Singular, rec.ID()), rec)
	}
}

// UpdateCatalog handles update_<singular>.
func (h *Handlers) UpdateCatalog(c catalog.Collection) func(context.Context, UpdateCatalogParams) Result {
	return func(ctx context.Context, p UpdateCatalogParams) Result {
		data, err := parseObject("data_json", p.DataJSON)
		if err != nil {
			return failure("update", c.Name, err, "Could not parse data_json")
		}
		res, err := h.catalog.Update(ctx, c, p.ObjectID, data)
		if err != nil {
			return failure("update", c.Name, err, fmt.Sprintf("Failed to update %s '%s'", c.Singular, p.ObjectID))
		}
		return success("update", c.Name, fmt.Sprintf("Updated %s of %s '%s'", strings.Join(res.ChangedFields, ", "), c.Singular, p.ObjectID), res)
	}
}

// DeleteCatalog handles delete_<singular>.
func (h *Handlers) DeleteCatalog(c catalog.Collection) func(context.Context, DeleteCatalogParams) Result {
	return func(ctx context.Context, p DeleteCatalogParams) Result {
		res, err := h.catalog.Delete(ctx, c, p.ObjectID, p.ConfirmDeletion)
		if err != nil {
			return failure("delete", c.Name, err, fmt.Sprintf("%s '%s' was not deleted", c.Singular, p.ObjectID))
		}
		return success("delete", c.Name, fmt.Sprintf("Deleted %s '%s'", c.Singular, p.ObjectID), res)
	}
}

// --- Attributes ---

// ListAttributes handles list_attributes.
func (h *Handlers) ListAttributes(ctx context.Context, p ListAttributesParams) Result {
	c, err := catalog.Attributes(p.ResourceName)
	if err != nil {
		return failure("list", p.ResourceName, err, "Failed to list attributes")
	}
	page, err := h.catalog.List(ctx, c, catalog.ListOptions{
		Search:   p.Search,
		PageSize: withDefault(p.PageSize, defaultAttributePageSize),
		Page:     withDefault(p.Page, defaultPage),
	})
	if err != nil {
		return failure("list", p.ResourceName, err, fmt.Sprintf("Failed to list attributes of resource '%s'", p.ResourceName))
	}
	return success("list", p.ResourceName, fmt.Sprintf("Fetched %d attributes of resource '%s'", len(page.Results), p.ResourceName), page)
}

// GetAttribute handles get_attribute.
func (h *Handlers) GetAttribute(ctx context.Context, p GetAttributeParams) Result {
	c, err := catalog.Attributes(p.ResourceName)
	if err != nil {
		return failure("get", p.ResourceName, err, "Failed to fetch attribute")
	}
	rec, err := h.catalog.Get(ctx, c, p.AttributeID)
	if err != nil {
		return failure("get", p.ResourceName, err, fmt.Sprintf("Failed to fetch attribute '%s' of resource '%s'", p.AttributeID, p.ResourceName))
	}
	return success("get", p.ResourceName, fmt.Sprintf("Fetched attribute '%s'", p.AttributeID), rec)
}

// CreateAttribute handles create_attribute.
func (h *Handlers) CreateAttribute(ctx context.Context, p CreateAttributeParams) Result {
	c, err := catalog.Attributes(p.ResourceName)
	if err != nil {
		return failure("create", p.ResourceName, err, "Failed to create attribute")
	}
	data, err := parseObject("data_json", p.DataJSON)
	if err != nil {
		return failure("create", p.ResourceName, err, "Could not parse data_json")
	}
	rec, err := h.catalog.Create(ctx, c, data)
	if err != nil {
		return failure("create", p.ResourceName, err, fmt.Sprintf("Failed to create attribute in resource '%s'", p.ResourceName))
	}
	return success("create", p.ResourceName, fmt.Sprintf("Created attribute '%s' in resource '%s'", rec.ID(), p.ResourceName), rec)
}

// UpdateAttribute handles update_attribute.
func (h *Handlers) UpdateAttribute(ctx context.Context, p UpdateAttributeParams) Result {
	c, err := catalog.Attributes(p.ResourceName)
	if err != nil {
		return failure("update", p.ResourceName, err, "Failed to update attribute")
	}
	data, err := parseObject("data_json", p.DataJSON)
	if err != nil {
		return failure("update", p.ResourceName, err, "Could not parse data_json")
	}
	res, err := h.catalog.Update(ctx, c, p.AttributeID, data)
	if err != nil {
		return failure("update", p.ResourceName, err, fmt.Sprintf("Failed to update attribute '%s'", p.AttributeID))
	}
	return success("update", p.ResourceName, fmt.Sprintf("Updated %s of attribute '%s'", strings.Join(res.ChangedFields, ", "), p.AttributeID), res)
}

// DeleteAttribute handles delete_attribute.
func (h *Handlers) DeleteAttribute(ctx context.Context, p DeleteAttributeParams) Result {
	c, err := catalog.Attributes(p.ResourceName)
	if err != nil {
		return failure("delete", p.ResourceName, err, "Attribute was not deleted")
	}
	res, err := h.catalog.Delete(ctx, c, p.AttributeID, p.ConfirmDeletion)
	if err != nil {
		return failure("delete", p.ResourceName, err, fmt.Sprintf("Attribute '%s' was not deleted", p.AttributeID))
	}
	return success("delete", p.ResourceName, fmt.Sprintf("Deleted attribute '%s' of resource '%s'", p.AttributeID, p.ResourceName), res)
}

// CreateAttributesBulk handles create_attributes_bulk.
func (h *Handlers) CreateAttributesBulk(ctx context.Context, p CreateAttributesBulkParams) Result {
	var attrs []map[string]any
	if err := types.DecodeJSON([]byte(p.AttributesJSON), &attrs); err != nil {
		err = apperr.Wrap(apperr.InvalidArgument, err, "attributes_json must be a JSON array of objects")
		return failure("create_bulk", p.ResourceName, err, "Could not parse attributes_json")
	}
	recs, err := h.catalog.CreateAttributesBulk(ctx, p.ResourceName, attrs)
	if err != nil {
		return failure("create_bulk", p.ResourceName, err, fmt.Sprintf("Failed to create attributes in resource '%s'", p.ResourceName))
	}
	return success("create_bulk", p.ResourceName, fmt.Sprintf("Created %d attributes in resource '%s'", len(recs), p.ResourceName), recs)
}

// --- helpers ---

func success(op, resource, message string, data any) Result {
	return Result{Success: true, Message: message, Operation: op, Resource: resource, Data: data}
}

func failure(op, resource string, err error, message string) Result {
	return Result{
		Success:   false,
		Message:   message,
		Error:     err.Error(),
		ErrorKind: string(apperr.KindOf(err)),
		Operation: op,
		Resource:  strings.TrimSpace(resource),
	}
}

// parseObject decodes a JSON object argument. Anything else is InvalidArgument.
func parseObject(name, raw string) (map[string]any, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, apperr.New(apperr.InvalidArgument, "%s is required", name)
	}
	var out map[string]any
	if err := types.DecodeJSON([]byte(raw), &out); err != nil {
		return nil, apperr.Wrap(apperr.InvalidArgument, err, "%s must be a JSON object", name)
	}
	if out == nil {
		return nil, apperr.New(apperr.InvalidArgument, "%s must be a JSON object, got null", name)
	}
	return out, nil
}

// withDefault applies the tool-level default for an omitted number. An
// explicit value, including 0, is passed through.
func withDefault(v *int, def int) *int {
	if v != nil {
		return v
	}
	return &def
}

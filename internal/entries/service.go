package entries

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/fellnerd/dimetrics-mcp-server/internal/apperr"
	"github.com/fellnerd/dimetrics-mcp-server/internal/gateway"
	"github.com/fellnerd/dimetrics-mcp-server/internal/query"
	"github.com/fellnerd/dimetrics-mcp-server/internal/types"
)

// Operation names used in errors and logs.
const (
	OpList   = "list"
	OpGet    = "get"
	OpCreate = "create"
	OpUpdate = "update"
	OpDelete = "delete"
)

// Gateway performs one backend round trip. *gateway.Client satisfies it.
type Gateway interface {
	Do(ctx context.Context, req gateway.Request) (json.RawMessage, error)
}

// ListOptions are the optional inputs of List. Nil PageSize and Page leave
// the backend defaults in place; values <= 0 are treated the same way.
type ListOptions struct {
	Search    string
	PageSize  *int
	Page      *int
	Ordering  string
	Filters   query.SimpleFilter
	Filter    query.Node
	Aggregate query.AggregationSpec
}

// ListResult is a normalized page plus the resolved inputs that produced it.
type ListResult struct {
	Page

	Resource   string                `json:"resource_name"`
	Aggregated bool                  `json:"aggregated"`
	Search     string                `json:"search_term"`
	Ordering   string                `json:"ordering"`
	Filters    query.SimpleFilter    `json:"simple_filters,omitempty"`
	Filter     query.Node            `json:"directus_filter,omitempty"`
	Aggregate  query.AggregationSpec `json:"aggregate,omitempty"`
	// Query is the compiled query string sent to the backend.
	Query string `json:"query"`

	// The JSON texts the caller supplied, unmodified. The parsed fields
	// above are canonical and may spell an operator differently.
	RawFilters   string `json:"filters_json,omitempty"`
	RawFilter    string `json:"directus_filter_json,omitempty"`
	RawAggregate string `json:"aggregate_json,omitempty"`
}

// UpdateResult is the updated entry and the names of the fields the caller
// asked to change, sorted.
type UpdateResult struct {
	Entry         types.Entry `json:"entry"`
	ChangedFields []string    `json:"updated_fields"`
}

// DeleteResult confirms a deletion.
type DeleteResult struct {
	Resource string `json:"resource_name"`
	ID       string `json:"entry_id"`
	Deleted  bool   `json:"deleted"`
}

// Service runs entry operations against one gateway. It holds no per-call
// state and is safe for concurrent use.
type Service struct {
	gw     Gateway
	logger *zap.Logger
}

// NewService creates a Service.
func NewService(gw Gateway, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{gw: gw, logger: logger.Named("entries")}
}

// List fetches one page of entries, or aggregation rows when
// opts.Aggregate is non-empty.
func (s *Service) List(ctx context.Context, resource string, opts ListOptions) (result *ListResult, err error) {
	start := time.Now()
	defer func() { s.finish(OpList, resource, start, err) }()

	resource = strings.TrimSpace(resource)
	if resource == "" {
		return nil, apperr.WithContext(apperr.New(apperr.InvalidArgument, "resource name is required"), OpList, resource)
	}
	ordering := strings.TrimSpace(opts.Ordering)
	if strings.Contains(ordering, ",") {
		return nil, apperr.WithContext(apperr.New(apperr.InvalidArgument, "ordering takes a single field, got %q", ordering), OpList, resource)
	}

	pageSize := positive(opts.PageSize)
	page := positive(opts.Page)

	var params query.Params
	if strings.TrimSpace(opts.Search) != "" {
		params.Add("search", opts.Search)
	}
	if pageSize != nil {
		params.Add("page_size", strconv.Itoa(*pageSize))
	}
	if page != nil {
		params.Add("page", strconv.Itoa(*page))
	}
	if ordering != "" {
		params.Add("ordering", ordering)
	}

	filterParams, err := query.Compile(opts.Filters, opts.Filter)
	if err != nil {
		return nil, apperr.WithContext(err, OpList, resource)
	}
	params.Merge(filterParams)

	aggParams, err := opts.Aggregate.Params()
	if err != nil {
		return nil, apperr.WithContext(err, OpList, resource)
	}
	params.Merge(aggParams)

	aggregated := !opts.Aggregate.Empty()
	s.logger.Debug("Listing entries",
		zap.String("resource", resource),
		zap.Bool("aggregated", aggregated),
		zap.Stringer("params", params))

	data, err := s.gw.Do(ctx, gateway.Request{
		Method: http.MethodGet,
		Path:   collectionPath(resource),
		Query:  params,
	})
	if err != nil {
		return nil, apperr.WithContext(gateway.Translate(err), OpList, resource)
	}

	p, err := NormalizePage(data, pageSize, page, aggregated)
	if err != nil {
		return nil, apperr.WithContext(apperr.Wrap(apperr.GatewayError, err, "unexpected list response"), OpList, resource)
	}

	return &ListResult{
		Page:       p,
		Resource:   resource,
		Aggregated: aggregated,
		Search:     opts.Search,
		Ordering:   ordering,
		Filters:    opts.Filters,
		Filter:     opts.Filter,
		Aggregate:  opts.Aggregate,
		Query:      params.Encode(),
	}, nil
}

// Get fetches one entry.
func (s *Service) Get(ctx context.Context, resource, id string) (entry types.Entry, err error) {
	start := time.Now()
	defer func() { s.finish(OpGet, resource, start, err) }()

	resource, id, err = requireIdentity(OpGet, resource, id)
	if err != nil {
		return nil, err
	}
	data, err := s.gw.Do(ctx, gateway.Request{Method: http.MethodGet, Path: detailPath(resource, id)})
	if err != nil {
		return nil, apperr.WithContext(gateway.Translate(err), OpGet, resource)
	}
	return decodeEntry(OpGet, resource, data)
}

// Create inserts an entry. The backend assigns identity and timestamps.
func (s *Service) Create(ctx context.Context, resource string, data map[string]any) (entry types.Entry, err error) {
	start := time.Now()
	defer func() { s.finish(OpCreate, resource, start, err) }()

	resource = strings.TrimSpace(resource)
	if resource == "" {
		return nil, apperr.WithContext(apperr.New(apperr.InvalidArgument, "resource name is required"), OpCreate, resource)
	}
	if data == nil {
		return nil, apperr.WithContext(apperr.New(apperr.InvalidArgument, "entry data is required"), OpCreate, resource)
	}
	resp, err := s.gw.Do(ctx, gateway.Request{Method: http.MethodPost, Path: collectionPath(resource), Body: data})
	if err != nil {
		return nil, apperr.WithContext(gateway.Translate(err), OpCreate, resource)
	}
	return decodeEntry(OpCreate, resource, resp)
}

// Update applies a partial update. Only the keys present in data are sent.
func (s *Service) Update(ctx context.Context, resource, id string, data map[string]any) (result *UpdateResult, err error) {
	start := time.Now()
	defer func() { s.finish(OpUpdate, resource, start, err) }()

	resource, id, err = requireIdentity(OpUpdate, resource, id)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, apperr.WithContext(apperr.New(apperr.InvalidArgument, "update data must contain at least one field"), OpUpdate, resource)
	}
	resp, err := s.gw.Do(ctx, gateway.Request{Method: http.MethodPatch, Path: detailPath(resource, id), Body: data})
	if err != nil {
		return nil, apperr.WithContext(gateway.Translate(err), OpUpdate, resource)
	}
	entry, err := decodeEntry(OpUpdate, resource, resp)
	if err != nil {
		return nil, err
	}

	changed := make([]string, 0, len(data))
	for k := range data {
		changed = append(changed, k)
	}
	sort.Strings(changed)
	return &UpdateResult{Entry: entry, ChangedFields: changed}, nil
}

// Delete removes an entry. Unless confirmed is true it returns
// DeletionNotConfirmed without contacting the backend.
func (s *Service) Delete(ctx context.Context, resource, id string, confirmed bool) (result *DeleteResult, err error) {
	start := time.Now()
	defer func() { s.finish(OpDelete, resource, start, err) }()

	resource, id, err = requireIdentity(OpDelete, resource, id)
	if err != nil {
		return nil, err
	}
	if !confirmed {
		return nil, apperr.WithContext(
			apperr.New(apperr.DeletionNotConfirmed, "deleting entry %s is irreversible; set confirm_deletion=true to proceed", id),
			OpDelete, resource)
	}
	if _, err := s.gw.Do(ctx, gateway.Request{Method: http.MethodDelete, Path: detailPath(resource, id)}); err != nil {
		return nil, apperr.WithContext(gateway.Translate(err), OpDelete, resource)
	}
	return &DeleteResult{Resource: resource, ID: id, Deleted: true}, nil
}

func (s *Service) finish(op, resource string, start time.Time, err error) {
	fields := []zap.Field{
		zap.String("operation", op),
		zap.String("resource", resource),
		zap.Duration("duration", time.Since(start)),
	}
	if err == nil {
		s.logger.Debug("Entry operation completed", fields...)
		return
	}
	kind := apperr.KindOf(err)
	fields = append(fields, zap.String("kind", string(kind)), zap.Error(err))
	if kind.ClientSide() {
		s.logger.Debug("Entry operation rejected", fields...)
		return
	}
	s.logger.Warn("Entry operation failed", fields...)
}

func requireIdentity(op, resource, id string) (string, string, error) {
	resource = strings.TrimSpace(resource)
	id = strings.TrimSpace(id)
	if resource == "" {
		return "", "", apperr.WithContext(apperr.New(apperr.InvalidArgument, "resource name is required"), op, resource)
	}
	if id == "" {
		return "", "", apperr.WithContext(apperr.New(apperr.InvalidArgument, "entry id is required"), op, resource)
	}
	return resource, id, nil
}

func decodeEntry(op, resource string, data json.RawMessage) (types.Entry, error) {
	if isNull(data) {
		return types.Entry{}, nil
	}
	entry, err := types.DecodeEntry(data)
	if err != nil {
		return nil, apperr.WithContext(apperr.Wrap(apperr.GatewayError, err, "unexpected %s response", op), op, resource)
	}
	return entry, nil
}

func positive(v *int) *int {
	if v == nil || *v <= 0 {
		return nil
	}
	n := *v
	return &n
}

func collectionPath(resource string) string {
	return "/generics/" + url.PathEscape(resource) + "/"
}

func detailPath(resource, id string) string {
	return collectionPath(resource) + url.PathEscape(id) + "/"
}

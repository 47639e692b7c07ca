// Package catalog provides passthrough CRUD for the schema collections of
// the Dimetrics platform: apps, categories, services, resources,
// permission groups and the attributes of a resource. Requests are shaped
// 1:1 from caller input; the backend validates payloads.
package catalog

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
	"github.com/fellnerd/dimetrics-mcp-server/internal/entries"
	"github.com/fellnerd/dimetrics-mcp-server/internal/gateway"
	"github.com/fellnerd/dimetrics-mcp-server/internal/types"
)

// Collection is a backend collection addressed by a fixed path.
type Collection struct {
	// Name is the plural name used in tool names and errors.
	Name string
	// Singular names one record, e.g. "app".
	Singular string
	// Path is the collection path with a trailing slash.
	Path string
}

// DetailPath returns the path of one record.
func (c Collection) DetailPath(id string) string {
	return c.Path + url.PathEscape(id) + "/"
}

var (
	Apps             = Collection{Name: "apps", Singular: "app", Path: "/apps/"}
	Categories       = Collection{Name: "categories", Singular: "category", Path: "/categories/"}
	Services         = Collection{Name: "services", Singular: "service", Path: "/services/"}
	Resources        = Collection{Name: "resources", Singular: "resource", Path: "/resources/"}
	PermissionGroups = Collection{Name: "permission_groups", Singular: "permission_group", Path: "/resource-permission-groups/"}
)

// Collections returns the fixed collections in tool registration order.
func Collections() []Collection {
	return []Collection{Apps, Categories, Services, Resources, PermissionGroups}
}

// Attributes returns the attribute collection of a resource.
func Attributes(resource string) (Collection, error) {
	resource = strings.TrimSpace(resource)
	if resource == "" {
		return Collection{}, apperr.WithContext(apperr.New(apperr.InvalidArgument, "resource name is required"), "attributes", "")
	}
	return Collection{
		Name:     "attributes",
		Singular: "attribute",
		Path:     "/attributes/" + url.PathEscape(resource) + "/",
	}, nil
}

// ListOptions are the optional list parameters. Nil or non-positive
// numbers are omitted.
type ListOptions struct {
	Search   string
	PageSize *int
	Page     *int
	Limit    *int
}

// UpdateResult is the updated record and the sorted names of the fields the
// caller changed.
type UpdateResult struct {
	Record        types.Entry `json:"record"`
	ChangedFields []string    `json:"updated_fields"`
}

// DeleteResult confirms a deletion.
type DeleteResult struct {
	Collection string `json:"collection"`
	ID         string `json:"object_id"`
	Deleted    bool   `json:"deleted"`
}

// Service runs catalog operations against one gateway.
type Service struct {
	gw     entries.Gateway
	logger *zap.Logger
}

// NewService creates a Service.
func NewService(gw entries.Gateway, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{gw: gw, logger: logger.Named("catalog")}
}

// List fetches one page of a collection.
func (s *Service) List(ctx context.Context, c Collection, opts ListOptions) (page *entries.Page, err error) {
	start := time.Now()
	defer func() { s.finish("list", c, start, err) }()

	pageSize, pageNum := positive(opts.PageSize), positive(opts.Page)
	q := url.Values{}
	if strings.TrimSpace(opts.Search) != "" {
		q.Set("search", opts.Search)
	}
	if pageSize != nil {
		q.Set("page_size", strconv.Itoa(*pageSize))
	}
	if pageNum != nil {
		q.Set("page", strconv.Itoa(*pageNum))
	}
	if limit := positive(opts.Limit); limit != nil {
		q.Set("limit", strconv.Itoa(*limit))
	}

	data, err := s.gw.Do(ctx, gateway.Request{Method: http.MethodGet, Path: c.Path, Query: q})
	if err != nil {
		return nil, apperr.WithContext(gateway.Translate(err), "list", c.Name)
	}
	p, err := entries.NormalizePage(data, pageSize, pageNum, false)
	if err != nil {
		return nil, apperr.WithContext(apperr.Wrap(apperr.GatewayError, err, "unexpected list response"), "list", c.Name)
	}
	return &p, nil
}

// Get fetches one record.
func (s *Service) Get(ctx context.Context, c Collection, id string) (rec types.Entry, err error) {
	start := time.Now()
	defer func() { s.finish("get", c, start, err) }()

	if id, err = requireID("get", c, id); err != nil {
		return nil, err
	}
	data, err := s.gw.Do(ctx, gateway.Request{Method: http.MethodGet, Path: c.DetailPath(id)})
	if err != nil {
		return nil, apperr.WithContext(gateway.Translate(err), "get", c.Name)
	}
	return decodeRecord("get", c, data)
}

// Create inserts a record.
func (s *Service) Create(ctx context.Context, c Collection, data map[string]any) (rec types.Entry, err error) {
	start := time.Now()
	defer func() { s.finish("create", c, start, err) }()

	if data == nil {
		return nil, apperr.WithContext(apperr.New(apperr.InvalidArgument, "%s data is required", c.Singular), "create", c.Name)
	}
	resp, err := s.gw.Do(ctx, gateway.Request{Method: http.MethodPost, Path: c.Path, Body: data})
	if err != nil {
		return nil, apperr.WithContext(gateway.Translate(err), "create", c.Name)
	}
	return decodeRecord("create", c, resp)
}

// Update applies a partial update with exactly the supplied fields.
func (s *Service) Update(ctx context.Context, c Collection, id string, data map[string]any) (res *UpdateResult, err error) {
	start := time.Now()
	defer func() { s.finish("update", c, start, err) }()

	if id, err = requireID("update", c, id); err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, apperr.WithContext(apperr.New(apperr.InvalidArgument, "update data must contain at least one field"), "update", c.Name)
	}
	resp, err := s.gw.Do(ctx, gateway.Request{Method: http.MethodPatch, Path: c.DetailPath(id), Body: data})
	if err != nil {
		return nil, apperr.WithContext(gateway.Translate(err), "update", c.Name)
	}
	rec, err := decodeRecord("update", c, resp)
	if err != nil {
		return nil, err
	}
	changed := make([]string, 0, len(data))
	for k := range data {
		changed = append(changed, k)
	}
	sort.Strings(changed)
	return &UpdateResult{Record: rec, ChangedFields: changed}, nil
}

// Delete removes a record. Unless confirmed is true it returns
// DeletionNotConfirmed without contacting the backend.
func (s *Service) Delete(ctx context.Context, c Collection, id string, confirmed bool) (res *DeleteResult, err error) {
	start := time.Now()
	defer func() { s.finish("delete", c, start, err) }()

	if id, err = requireID("delete", c, id); err != nil {
		return nil, err
	}
	if !confirmed {
		return nil, apperr.WithContext(
			apperr.New(apperr.DeletionNotConfirmed, "deleting %s %s is irreversible; set confirm_deletion=true to proceed", c.Singular, id),
			"delete", c.Name)
	}
	if _, err := s.gw.Do(ctx, gateway.Request{Method: http.MethodDelete, Path: c.DetailPath(id)}); err != nil {
		return nil, apperr.WithContext(gateway.Translate(err), "delete", c.Name)
	}
	return &DeleteResult{Collection: c.Name, ID: id, Deleted: true}, nil
}

// CreateAttributesBulk creates several attributes of a resource in one call.
func (s *Service) CreateAttributesBulk(ctx context.Context, resource string, attrs []map[string]any) (recs []types.Entry, err error) {
	c, err := Attributes(resource)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	defer func() { s.finish("create_bulk", c, start, err) }()

	if len(attrs) == 0 {
		return nil, apperr.WithContext(apperr.New(apperr.InvalidArgument, "at least one attribute definition is required"), "create_bulk", c.Name)
	}
	resp, err := s.gw.Do(ctx, gateway.Request{Method: http.MethodPost, Path: c.Path + "bulk/", Body: attrs})
	if err != nil {
		return nil, apperr.WithContext(gateway.Translate(err), "create_bulk", c.Name)
	}
	recs = []types.Entry{}
	if len(resp) > 0 {
		if err := types.DecodeJSON(resp, &recs); err != nil {
			return nil, apperr.WithContext(apperr.Wrap(apperr.GatewayError, err, "unexpected bulk response"), "create_bulk", c.Name)
		}
	}
	return recs, nil
}

func (s *Service) finish(op string, c Collection, start time.Time, err error) {
	fields := []zap.Field{
		zap.String("operation", op),
		zap.String("collection", c.Name),
		zap.Duration("duration", time.Since(start)),
	}
	if err == nil {
		s.logger.Debug("Catalog operation completed", fields...)
		return
	}
	kind := apperr.KindOf(err)
	fields = append(fields, zap.String("kind", string(kind)), zap.Error(err))
	if kind.ClientSide() {
		s.logger.Debug("Catalog operation rejected", fields...)
		return
	}
	s.logger.Warn("Catalog operation failed", fields...)
}

func requireID(op string, c Collection, id string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", apperr.WithContext(apperr.New(apperr.InvalidArgument, "%s id is required", c.Singular), op, c.Name)
	}
	return id, nil
}

func decodeRecord(op string, c Collection, data json.RawMessage) (types.Entry, error) {
	if len(data) == 0 {
		return types.Entry{}, nil
	}
	rec, err := types.DecodeEntry(data)
	if err != nil {
		return nil, apperr.WithContext(apperr.Wrap(apperr.GatewayError, err, "unexpected %s response", op), op, c.Name)
	}
	return rec, nil
}

func positive(v *int) *int {
	if v == nil || *v <= 0 {
		return nil
	}
	n := *v
	return &n
}

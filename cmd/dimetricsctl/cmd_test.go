package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fellnerd/dimetrics-mcp-server/internal/apperr"
	"github.com/fellnerd/dimetrics-mcp-server/internal/testutil"
)

type fakeBackend struct {
	*testutil.FakeGateway
	pingErr error
}

func (f *fakeBackend) Ping(context.Context) error { return f.pingErr }
func (f *fakeBackend) BaseURL() string            { return "https://example.test/api" }
func (f *fakeBackend) Authenticated() bool        { return true }

// useFakeBackend swaps the API client for the duration of the test.
func useFakeBackend(t *testing.T) *fakeBackend {
	t.Helper()
	fb := &fakeBackend{FakeGateway: testutil.NewFakeGateway()}
	orig := getBackendFunc
	getBackendFunc = func() (backend, error) { return fb, nil }
	t.Cleanup(func() { getBackendFunc = orig })
	return fb
}

// execute runs the root command with args and returns stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

// ---------------------------------------------------------------------------
// Command constructors
// ---------------------------------------------------------------------------

func TestRootCmd(t *testing.T) {
	cmd := newRootCmd()

	assert.Equal(t, "dimetricsctl", cmd.Use)
	assert.NotEmpty(t, cmd.Long)

	out := cmd.PersistentFlags().Lookup("output")
	require.NotNil(t, out)
	assert.Equal(t, "o", out.Shorthand)
	assert.Equal(t, "table", out.DefValue)
	require.NotNil(t, cmd.PersistentFlags().Lookup("env-file"))
}

func TestEntriesListCmd(t *testing.T) {
	cmd := entriesListCmd()

	assert.Equal(t, "list <resource>", cmd.Use)
	assert.NotEmpty(t, cmd.Long)
	assert.NotNil(t, cmd.RunE)

	for _, name := range []string{"search", "page-size", "page", "ordering", "filters", "filter", "aggregate"} {
		assert.NotNil(t, cmd.Flags().Lookup(name), "missing flag %s", name)
	}
	assert.Equal(t, "f", cmd.Flags().Lookup("filter").Shorthand)
	assert.Equal(t, "20", cmd.Flags().Lookup("page-size").DefValue)
}

func TestEntriesDeleteCmd(t *testing.T) {
	cmd := entriesDeleteCmd()
	yes := cmd.Flags().Lookup("yes")
	require.NotNil(t, yes)
	assert.Equal(t, "y", yes.Shorthand)
	assert.Equal(t, "false", yes.DefValue)
}

// ---------------------------------------------------------------------------
// entries list
// ---------------------------------------------------------------------------

func TestEntriesList(t *testing.T) {
	fb := useFakeBackend(t)
	fb.Respond(http.MethodGet, "/generics/orders/",
		`{"count":2,"results":[{"object_id":"a","name":"Canva Pro","amount":27.5},{"object_id":"b","name":"Figma","amount":12}]}`)

	out, err := execute(t, "entries", "list", "orders",
		"--filter", `{"_and":[{"state":{"_eq":"ok"}},{"amount":{"_gte":10}}]}`,
		"--ordering", "-amount")
	require.NoError(t, err)

	assert.Contains(t, out, "RESOURCE")
	assert.Contains(t, out, "orders")
	assert.Contains(t, out, "Canva Pro")
	assert.Contains(t, out, "AMOUNT")

	keys := testutil.QueryKeys(t, fb.LastCall(t).Query)
	assert.Equal(t, []string{
		"page_size=20",
		"page=1",
		"ordering=-amount",
		"_and[0][state][_eq]=ok",
		"_and[1][amount][_gte]=10",
	}, keys)
}

func TestEntriesList_PagingFlags(t *testing.T) {
	fb := useFakeBackend(t)
	fb.Respond(http.MethodGet, "/generics/orders/", `{"count":45,"results":[]}`)

	out, err := execute(t, "entries", "list", "orders", "--page-size", "20", "--page", "2", "-o", "json")
	require.NoError(t, err)
	assert.Equal(t, "page_size=20&page=2", fb.LastCall(t).Query)

	var res map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, float64(3), res["total_pages"])
	assert.Equal(t, float64(2), res["current_page"])
}

func TestEntriesList_DefaultPaging(t *testing.T) {
	tests := []struct {
		name      string
		args      []string
		wantQuery string
		wantPages float64
	}{
		{name: "defaults sent", args: nil, wantQuery: "page_size=20&page=1", wantPages: 3},
		{name: "zero page size", args: []string{"--page-size", "0"}, wantQuery: "page=1", wantPages: 1},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			fb := useFakeBackend(t)
			fb.Respond(http.MethodGet, "/generics/orders/", `{"count":45,"results":[]}`)

			args := append([]string{"entries", "list", "orders", "-o", "json"}, tc.args...)
			out, err := execute(t, args...)
			require.NoError(t, err)
			assert.Equal(t, tc.wantQuery, fb.LastCall(t).Query)

			var res map[string]interface{}
			require.NoError(t, json.Unmarshal([]byte(out), &res))
			assert.Equal(t, tc.wantPages, res["total_pages"])
		})
	}
}

func TestEntriesList_Aggregate(t *testing.T) {
	fb := useFakeBackend(t)
	fb.Respond(http.MethodGet, "/generics/lau6_RunEntries/",
		`{"count":12,"results":[],"aggregations":[{"sum_distance_km":84.5}]}`)

	out, err := execute(t, "entries", "list", "lau6_RunEntries", "-a", `{"sum":"distance_km"}`)
	require.NoError(t, err)
	assert.Contains(t, out, "AGGREGATIONS:")
	assert.Contains(t, out, "SUM_DISTANCE_KM")
	assert.Contains(t, out, "84.5")
	assert.NotContains(t, out, "ENTRIES:")
}

func TestEntriesList_AggregateWithEntries(t *testing.T) {
	fb := useFakeBackend(t)
	fb.Respond(http.MethodGet, "/generics/orders/",
		`{"count":2,"results":[{"object_id":"a","name":"Canva Pro"},{"object_id":"b","name":"Figma"}],"aggregations":[{"sum_amount":39.5}]}`)

	out, err := execute(t, "entries", "list", "orders", "-a", `{"sum":"amount"}`)
	require.NoError(t, err)
	assert.Contains(t, out, "SUM_AMOUNT")
	assert.Contains(t, out, "ENTRIES:")
	assert.Contains(t, out, "Canva Pro")
	assert.Contains(t, out, "Figma")
}

func TestEntriesList_InvalidFlags(t *testing.T) {
	tests := []struct {
		name string
		args []string
		kind apperr.Kind
	}{
		{name: "filters", args: []string{"--filters", "{"}, kind: apperr.InvalidFilterSyntax},
		{name: "filter", args: []string{"--filter", `{"a":{"_between":[1]}}`}, kind: apperr.InvalidOperandArity},
		{name: "aggregate", args: []string{"--aggregate", `{"median":"x"}`}, kind: apperr.UnknownAggregationFunction},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fb := useFakeBackend(t)
			_, err := execute(t, append([]string{"entries", "list", "orders"}, tt.args...)...)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.kind)
			assert.Contains(t, err.Error(), "--"+tt.name)
			assert.Empty(t, fb.Calls())
		})
	}
}

func TestEntriesList_RequiresResource(t *testing.T) {
	useFakeBackend(t)
	_, err := execute(t, "entries", "list")
	require.Error(t, err)
}

// ---------------------------------------------------------------------------
// entries get / create / update / delete
// ---------------------------------------------------------------------------

func TestEntriesGet(t *testing.T) {
	fb := useFakeBackend(t)
	fb.Respond(http.MethodGet, "/generics/orders/abc/", `{"object_id":"abc","state":"ok"}`)

	out, err := execute(t, "entries", "get", "orders", "abc")
	require.NoError(t, err)
	assert.Contains(t, out, "FIELD")
	assert.Contains(t, out, "state")

	_, err = execute(t, "entries", "get", "orders", "missing")
	assert.ErrorIs(t, err, apperr.EntryNotFound)
}

func TestEntriesCreate(t *testing.T) {
	fb := useFakeBackend(t)
	fb.Respond(http.MethodPost, "/generics/orders/", `{"object_id":"n1","name":"Canva Pro"}`)

	out, err := execute(t, "entries", "create", "orders", "-d", `{"name":"Canva Pro"}`, "-o", "yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "object_id: n1")
	assert.JSONEq(t, `{"name":"Canva Pro"}`, fb.LastCall(t).Body)

	_, err = execute(t, "entries", "create", "orders", "-d", `[1]`)
	assert.ErrorIs(t, err, apperr.InvalidArgument)

	_, err = execute(t, "entries", "create", "orders")
	require.Error(t, err, "--data is required")
}

func TestEntriesUpdate(t *testing.T) {
	fb := useFakeBackend(t)
	fb.Respond(http.MethodPatch, "/generics/orders/abc/", `{"object_id":"abc","state":"completed"}`)

	out, err := execute(t, "entries", "update", "orders", "abc", "--data", `{"state":"completed"}`)
	require.NoError(t, err)
	assert.Contains(t, out, "UPDATED:")
	assert.Contains(t, out, "completed")
	assert.Equal(t, http.MethodPatch, fb.LastCall(t).Method)
}

func TestEntriesDelete(t *testing.T) {
	fb := useFakeBackend(t)
	fb.Respond(http.MethodDelete, "/generics/orders/abc/", "")

	_, err := execute(t, "entries", "delete", "orders", "abc")
	assert.ErrorIs(t, err, apperr.DeletionNotConfirmed)
	assert.Empty(t, fb.Calls())

	out, err := execute(t, "entries", "delete", "orders", "abc", "--yes")
	require.NoError(t, err)
	assert.Contains(t, out, "orders/abc")
	assert.Len(t, fb.Calls(), 1)
}

// ---------------------------------------------------------------------------
// health
// ---------------------------------------------------------------------------

func TestHealth(t *testing.T) {
	fb := useFakeBackend(t)

	out, err := execute(t, "health")
	require.NoError(t, err)
	assert.Contains(t, out, "STATUS:")
	assert.Contains(t, out, "OK")

	fb.pingErr = errors.New("connection refused")
	out, err = execute(t, "health", "-o", "json")
	require.Error(t, err)
	assert.Contains(t, out, `"reachable": false`)
	assert.Contains(t, out, "connection refused")
}

func TestBackendFailure(t *testing.T) {
	orig := getBackendFunc
	getBackendFunc = func() (backend, error) { return nil, errors.New("no config") }
	t.Cleanup(func() { getBackendFunc = orig })

	_, err := execute(t, "entries", "get", "orders", "abc")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to create client")
}

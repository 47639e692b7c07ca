// Package testutil provides shared test helpers for the dimetrics server.
// Import this in test files to avoid duplicating fixture loading and fake
// backends.
package testutil

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"sigs.k8s.io/yaml"

	"github.com/fellnerd/dimetrics-mcp-server/internal/gateway"
)

// LoadFixture reads a YAML or JSON file and returns it as JSON.
// Fails the test immediately if the file can't be read or parsed.
func LoadFixture(t *testing.T, path string) json.RawMessage {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err, "failed to read fixture %s", path)
	out, err := yaml.YAMLToJSON(data)
	require.NoError(t, err, "failed to parse fixture %s", path)
	return out
}

// Call is one request recorded by FakeGateway.
type Call struct {
	Method string
	Path   string
	Query  string
	// Body is the JSON encoding of the request body, empty when there was none.
	Body string
}

type response struct {
	data json.RawMessage
	err  error
}

// FakeGateway records requests and answers them from canned responses
// keyed by "METHOD /path/". Unmatched requests get Default, or a 404
// StatusError when Default is unset.
type FakeGateway struct {
	mu        sync.Mutex
	calls     []Call
	responses map[string]response
	Default   *json.RawMessage
}

// NewFakeGateway creates an empty FakeGateway.
func NewFakeGateway() *FakeGateway {
	return &FakeGateway{responses: make(map[string]response)}
}

// Respond registers a JSON body for method and path.
func (f *FakeGateway) Respond(method, path, body string) *FakeGateway {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses[method+" "+path] = response{data: json.RawMessage(body)}
	return f
}

// Fail registers an error for method and path.
func (f *FakeGateway) Fail(method, path string, err error) *FakeGateway {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses[method+" "+path] = response{err: err}
	return f
}

// FailStatus registers a backend status error for method and path.
func (f *FakeGateway) FailStatus(method, path string, status int, body string) *FakeGateway {
	return f.Fail(method, path, &gateway.StatusError{Method: method, Path: path, StatusCode: status, Body: body})
}

// Do implements the gateway interface used by the services.
func (f *FakeGateway) Do(_ context.Context, req gateway.Request) (json.RawMessage, error) {
	call := Call{Method: req.Method, Path: req.Path}
	if req.Query != nil {
		call.Query = req.Query.Encode()
	}
	if req.Body != nil {
		b, err := json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
		call.Body = string(b)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)

	if r, ok := f.responses[req.Method+" "+req.Path]; ok {
		return r.data, r.err
	}
	if f.Default != nil {
		return *f.Default, nil
	}
	return nil, &gateway.StatusError{Method: req.Method, Path: req.Path, StatusCode: 404, Body: `{"detail":"Not found."}`}
}

// Calls returns a copy of the recorded requests.
func (f *FakeGateway) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Call, len(f.calls))
	copy(out, f.calls)
	return out
}

// LastCall returns the most recent request. Fails the test if there was none.
func (f *FakeGateway) LastCall(t *testing.T) Call {
	t.Helper()
	calls := f.Calls()
	require.NotEmpty(t, calls, "expected at least one gateway call")
	return calls[len(calls)-1]
}

// QueryKeys splits an encoded query into its unescaped "key=value" pairs,
// preserving order.
func QueryKeys(t *testing.T, encoded string) []string {
	t.Helper()
	if encoded == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(encoded, "&") {
		k, v, _ := strings.Cut(part, "=")
		key, err := url.QueryUnescape(k)
		require.NoError(t, err)
		val, err := url.QueryUnescape(v)
		require.NoError(t, err)
		out = append(out, key+"="+val)
	}
	return out
}

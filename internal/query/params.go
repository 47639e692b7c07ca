package query

import (
	"net/url"
	"strings"
)

// Param is a single query parameter.
type Param struct {
	Key   string
	Value string
}

// Params is an ordered multi-map of query parameters. Unlike url.Values it
// preserves insertion order, so logical children keep their declaration
// order on the wire.
type Params struct {
	pairs []Param
}

// Add appends a parameter. Repeated keys are kept.
func (p *Params) Add(key, value string) {
	p.pairs = append(p.pairs, Param{Key: key, Value: value})
}

// Merge appends all parameters of other.
func (p *Params) Merge(other Params) {
	p.pairs = append(p.pairs, other.pairs...)
}

// Get returns the first value stored under key.
func (p Params) Get(key string) (string, bool) {
	for _, kv := range p.pairs {
		if kv.Key == key {
			return kv.Value, true
		}
	}
	return "", false
}

// Has reports whether key is present.
func (p Params) Has(key string) bool {
	_, ok := p.Get(key)
	return ok
}

// Len returns the number of parameters.
func (p Params) Len() int { return len(p.pairs) }

// Pairs returns a copy of the parameters in order.
func (p Params) Pairs() []Param {
	out := make([]Param, len(p.pairs))
	copy(out, p.pairs)
	return out
}

// Keys returns the parameter keys in order.
func (p Params) Keys() []string {
	keys := make([]string, 0, len(p.pairs))
	for _, kv := range p.pairs {
		keys = append(keys, kv.Key)
	}
	return keys
}

// Values converts to url.Values. Ordering across keys is lost.
func (p Params) Values() url.Values {
	v := make(url.Values, len(p.pairs))
	for _, kv := range p.pairs {
		v.Add(kv.Key, kv.Value)
	}
	return v
}

// Encode renders the parameters as a URL query string in insertion order.
func (p Params) Encode() string {
	var b strings.Builder
	for i, kv := range p.pairs {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(kv.Key))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(kv.Value))
	}
	return b.String()
}

// String renders the parameters unescaped, one per line. Used in logs and
// CLI output where readability beats wire format.
func (p Params) String() string {
	var b strings.Builder
	for i, kv := range p.pairs {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(kv.Key)
		b.WriteByte('=')
		b.WriteString(kv.Value)
	}
	return b.String()
}

// bracketKey renders path segments as key[seg][seg]...
func bracketKey(segments ...string) string {
	var b strings.Builder
	for i, s := range segments {
		if i == 0 {
			b.WriteString(s)
			continue
		}
		b.WriteByte('[')
		b.WriteString(s)
		b.WriteByte(']')
	}
	return b.String()
}

package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParams_PreservesInsertionOrder(t *testing.T) {
	var p Params
	p.Add("_or[10][a][_eq]", "x")
	p.Add("_or[2][a][_eq]", "y")
	p.Add("search", "10 km")

	assert.Equal(t, "_or%5B10%5D%5Ba%5D%5B_eq%5D=x&_or%5B2%5D%5Ba%5D%5B_eq%5D=y&search=10+km", p.Encode())
	assert.Equal(t, []string{"_or[10][a][_eq]", "_or[2][a][_eq]", "search"}, p.Keys())
}

func TestParams_RepeatedKeys(t *testing.T) {
	var p Params
	p.Add("state", "ok")
	p.Add("state", "pending")

	first, ok := p.Get("state")
	assert.True(t, ok)
	assert.Equal(t, "ok", first)
	assert.Equal(t, []string{"ok", "pending"}, p.Values()["state"])
}

func TestParams_Merge(t *testing.T) {
	var a, b Params
	a.Add("page", "1")
	b.Add("aggregate[sum]", "amount")
	a.Merge(b)

	assert.Equal(t, 2, a.Len())
	assert.True(t, a.Has("aggregate[sum]"))
	assert.False(t, a.Has("page_size"))
	assert.Equal(t, "page=1\naggregate[sum]=amount", a.String())
}

func TestBracketKey(t *testing.T) {
	assert.Equal(t, "state", bracketKey("state"))
	assert.Equal(t, "state[_eq]", bracketKey("state", "_eq"))
	assert.Equal(t, "_and[0][state][_eq]", bracketKey("_and", "0", "state", "_eq"))
}

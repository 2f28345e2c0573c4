package bank

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGraphAddAndEdgeCount(t *testing.T) {
	g := newTransactionGraph()
	ts := time.Date(2026, 3, 1, 14, 30, 0, 0, time.UTC)

	g.Add("alice", "bob", decimal.NewFromInt(40), ts)
	g.Add("alice", "bob", decimal.NewFromInt(10), ts.Add(time.Minute))
	g.Add("bob", "alice", decimal.NewFromInt(5), ts)

	assert.Equal(t, 2, g.EdgeCount("alice", "bob"))
	assert.Equal(t, 1, g.EdgeCount("bob", "alice"))
	assert.Equal(t, 0, g.EdgeCount("alice", "carol"))
	assert.Equal(t, 0, g.EdgeCount("carol", "alice"))
}

func TestGraphSummarize(t *testing.T) {
	g := newTransactionGraph()
	ts := time.Date(2026, 3, 1, 14, 30, 0, 0, time.UTC)
	g.Add("u1", "u2", decimal.RequireFromString("40.5"), ts)

	out := g.Summarize(map[string]string{"u1": "alice", "u2": "bob"})
	require.Contains(t, out, "alice")
	require.Contains(t, out["alice"], "bob")
	require.Len(t, out["alice"]["bob"], 1)
	assert.Equal(t, "Amount: 40.50 (at 14:30)", out["alice"]["bob"][0])

	// summarization is read-only
	assert.Equal(t, 1, g.EdgeCount("u1", "u2"))
}

func TestGraphSummarizeUnknownUser(t *testing.T) {
	g := newTransactionGraph()
	ts := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	g.Add("u1", "ghost", decimal.NewFromInt(7), ts)

	out := g.Summarize(map[string]string{"u1": "alice"})
	require.Contains(t, out, "alice")
	assert.Contains(t, out["alice"], "unknown user (id ghost)")
}

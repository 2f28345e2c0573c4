package bank

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// graphEdge is one transfer-out recorded between a pair of users.
type graphEdge struct {
	Amount    decimal.Decimal
	Timestamp time.Time
}

// transactionGraph is a derived adjacency structure: sender user id →
// receiver user id → ordered transfer list. It is rebuilt from the
// transaction log at startup and extended incrementally on live transfers;
// it is never consulted as a source of truth. Not safe for concurrent use
// on its own (the service mutex guards it).
type transactionGraph struct {
	edges map[string]map[string][]graphEdge
}

func newTransactionGraph() *transactionGraph {
	return &transactionGraph{edges: make(map[string]map[string][]graphEdge)}
}

// Add records a transfer from sender to receiver.
func (g *transactionGraph) Add(senderUserID, receiverUserID string, amount decimal.Decimal, ts time.Time) {
	receivers, ok := g.edges[senderUserID]
	if !ok {
		receivers = make(map[string][]graphEdge)
		g.edges[senderUserID] = receivers
	}
	receivers[receiverUserID] = append(receivers[receiverUserID], graphEdge{Amount: amount, Timestamp: ts})
}

// EdgeCount returns how many transfers have been recorded from sender to
// receiver.
func (g *transactionGraph) EdgeCount(senderUserID, receiverUserID string) int {
	return len(g.edges[senderUserID][receiverUserID])
}

// Summarize renders the graph with user ids resolved to usernames and each
// transfer as a display string. It is read-only: the graph is not mutated.
func (g *transactionGraph) Summarize(usernames map[string]string) map[string]map[string][]string {
	displayName := func(userID string) string {
		if name, ok := usernames[userID]; ok {
			return name
		}
		return fmt.Sprintf("unknown user (id %s)", userID)
	}

	out := make(map[string]map[string][]string, len(g.edges))
	for senderID, receivers := range g.edges {
		sender := displayName(senderID)
		byReceiver, ok := out[sender]
		if !ok {
			byReceiver = make(map[string][]string, len(receivers))
			out[sender] = byReceiver
		}
		for receiverID, transfers := range receivers {
			lines := make([]string, 0, len(transfers))
			for _, e := range transfers {
				lines = append(lines, fmt.Sprintf("Amount: %s (at %s)", e.Amount.StringFixed(2), e.Timestamp.Format("15:04")))
			}
			byReceiver[displayName(receiverID)] = lines
		}
	}
	return out
}

// Package numbering issues quote and order numbers.
package numbering

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"

	"github.com/storeops/backend/internal/domain/sales"
)

const (
	QuotePrefix = "QT-"
	OrderPrefix = "SO-"
)

// SnowflakeGenerator derives document numbers from snowflake IDs, so
// replicas with distinct node IDs never collide and numbers sort by time.
type SnowflakeGenerator struct {
	node *snowflake.Node
}

// NewSnowflakeGenerator creates a generator for one replica
func NewSnowflakeGenerator(nodeID int64) (*SnowflakeGenerator, error) {
	node, err := snowflake.NewNode(nodeID)
	if err != nil {
		return nil, fmt.Errorf("numbering: snowflake node %d: %w", nodeID, err)
	}
	return &SnowflakeGenerator{node: node}, nil
}

// NextQuoteNumber returns e.g. QT-1A2B3C4D5E6F
func (g *SnowflakeGenerator) NextQuoteNumber(ctx context.Context) (string, error) {
	return g.next(QuotePrefix), nil
}

// NextOrderNumber returns e.g. SO-1A2B3C4D5E6F
func (g *SnowflakeGenerator) NextOrderNumber(ctx context.Context) (string, error) {
	return g.next(OrderPrefix), nil
}

func (g *SnowflakeGenerator) next(prefix string) string {
	return prefix + strings.ToUpper(g.node.Generate().Base36())
}

var _ sales.NumberGenerator = (*SnowflakeGenerator)(nil)

package service

import (
	"fmt"

	"github.com/bwmarrin/snowflake"
)

// ReceiptNumberer issues receipt numbers that are unique across terminals as
// long as every terminal runs with its own node id.
type ReceiptNumberer interface {
	Next() string
}

type snowflakeReceipts struct {
	node *snowflake.Node
}

func NewReceiptNumberer(nodeID int64) (ReceiptNumberer, error) {
	node, err := snowflake.NewNode(nodeID)
	if err != nil {
		return nil, fmt.Errorf("receipt numberer: %w", err)
	}
	return &snowflakeReceipts{node: node}, nil
}

func (r *snowflakeReceipts) Next() string {
	return r.node.Generate().Base58()
}

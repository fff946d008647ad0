// Package clients wraps per-network JSON-RPC connections behind the
// ChainClient capability interface. One client exists per configured
// network; adding a network means adding a registry entry, not new call
// sites.
package clients

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// TxInfo is the subset of a fetched transaction the gateway inspects.
type TxInfo struct {
	Hash common.Hash
	// To is nil for contract-creation transactions.
	To      *common.Address
	Input   []byte
	Pending bool
}

// ReceiptInfo is the subset of a transaction receipt the gateway inspects.
type ReceiptInfo struct {
	// Status is 1 for success, 0 for revert.
	Status      uint64
	BlockNumber *big.Int
}

// ChainClient is the capability interface over one network's RPC endpoint.
// Remote failures surface as CHAIN_ERROR; a missing transaction or receipt
// is the distinct TX_NOT_FOUND (a valid negative result, e.g. unmined).
type ChainClient interface {
	Transaction(ctx context.Context, hash string) (*TxInfo, error)
	Receipt(ctx context.Context, hash string) (*ReceiptInfo, error)
	BlockNumber(ctx context.Context) (uint64, error)
	NativeBalance(ctx context.Context, address string) (*big.Int, error)
	TokenBalance(ctx context.Context, tokenAddress, owner string) (*big.Int, error)
	Network() string
	Close()
}

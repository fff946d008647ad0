package clients

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/stablepay/stablepay/types"
)

var _ ChainClient = (*EVMClient)(nil)

// EVMClient implements ChainClient over go-ethereum's ethclient.
type EVMClient struct {
	network string
	rpcURL  string
	client  *ethclient.Client
}

// NewEVMClient dials the network's RPC endpoint.
func NewEVMClient(network, rpcURL string) (*EVMClient, error) {
	client, err := ethclient.Dial(rpcURL)
	if err != nil {
		return nil, types.WrapError(types.ErrChainError,
			fmt.Sprintf("failed to connect to %s RPC", network), err)
	}

	return &EVMClient{
		network: network,
		rpcURL:  rpcURL,
		client:  client,
	}, nil
}

func (e *EVMClient) Network() string { return e.network }

func (e *EVMClient) Close() {
	e.client.Close()
}

// Transaction fetches a transaction by hash. A transaction the node does
// not know yields TX_NOT_FOUND, not CHAIN_ERROR.
func (e *EVMClient) Transaction(ctx context.Context, hash string) (*TxInfo, error) {
	tx, pending, err := e.client.TransactionByHash(ctx, common.HexToHash(hash))
	if err != nil {
		if errors.Is(err, ethereum.NotFound) {
			return nil, types.NewError(types.ErrTxNotFound, "transaction not found")
		}
		return nil, types.WrapError(types.ErrChainError,
			fmt.Sprintf("fetching transaction on %s", e.network), err)
	}

	return &TxInfo{
		Hash:    tx.Hash(),
		To:      tx.To(),
		Input:   tx.Data(),
		Pending: pending,
	}, nil
}

// Receipt fetches the receipt for a mined transaction. An unmined
// transaction has no receipt and yields TX_NOT_FOUND.
func (e *EVMClient) Receipt(ctx context.Context, hash string) (*ReceiptInfo, error) {
	receipt, err := e.client.TransactionReceipt(ctx, common.HexToHash(hash))
	if err != nil {
		if errors.Is(err, ethereum.NotFound) {
			return nil, types.NewError(types.ErrTxNotFound, "transaction receipt not found")
		}
		return nil, types.WrapError(types.ErrChainError,
			fmt.Sprintf("fetching receipt on %s", e.network), err)
	}

	return &ReceiptInfo{
		Status:      receipt.Status,
		BlockNumber: receipt.BlockNumber,
	}, nil
}

func (e *EVMClient) BlockNumber(ctx context.Context) (uint64, error) {
	height, err := e.client.BlockNumber(ctx)
	if err != nil {
		return 0, types.WrapError(types.ErrChainError,
			fmt.Sprintf("fetching block height on %s", e.network), err)
	}
	return height, nil
}

func (e *EVMClient) NativeBalance(ctx context.Context, address string) (*big.Int, error) {
	bal, err := e.client.BalanceAt(ctx, common.HexToAddress(address), nil)
	if err != nil {
		return nil, types.WrapError(types.ErrChainError,
			fmt.Sprintf("fetching native balance on %s", e.network), err)
	}
	return bal, nil
}

// TokenBalance calls balanceOf(owner) on an ERC-20 contract.
func (e *EVMClient) TokenBalance(ctx context.Context, tokenAddress, owner string) (*big.Int, error) {
	contract := common.HexToAddress(tokenAddress)
	callData := PackBalanceOf(common.HexToAddress(owner))

	msg := ethereum.CallMsg{
		To:   &contract,
		Data: callData,
	}

	out, err := e.client.CallContract(ctx, msg, nil)
	if err != nil {
		return nil, types.WrapError(types.ErrChainError,
			fmt.Sprintf("calling balanceOf on %s", e.network), err)
	}

	bal, err := UnpackBalanceOf(out)
	if err != nil {
		return nil, types.WrapError(types.ErrChainError, "decoding balanceOf result", err)
	}
	return bal, nil
}

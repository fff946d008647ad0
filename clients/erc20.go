package clients

import (
	"bytes"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// TransferSelector is the 4-byte selector of transfer(address,uint256).
var TransferSelector = []byte{0xa9, 0x05, 0x9c, 0xbb}

// balanceOfSelector is the 4-byte selector of balanceOf(address).
var balanceOfSelector = []byte{0x70, 0xa0, 0x82, 0x31}

var (
	addressType = mustABIType("address")
	uint256Type = mustABIType("uint256")

	transferArgs = abi.Arguments{
		{Name: "recipient", Type: addressType},
		{Name: "amount", Type: uint256Type},
	}
	balanceArgs = abi.Arguments{
		{Name: "balance", Type: uint256Type},
	}
)

func mustABIType(name string) abi.Type {
	t, err := abi.NewType(name, "", nil)
	if err != nil {
		panic(err)
	}
	return t
}

// IsTransferCall reports whether calldata begins with the ERC-20 transfer
// selector.
func IsTransferCall(input []byte) bool {
	return len(input) >= 4 && bytes.Equal(input[:4], TransferSelector)
}

// DecodeTransfer decodes the recipient and raw integer amount from
// transfer(address,uint256) calldata.
func DecodeTransfer(input []byte) (common.Address, *big.Int, error) {
	if !IsTransferCall(input) {
		return common.Address{}, nil, fmt.Errorf("input is not a transfer call")
	}

	values, err := transferArgs.Unpack(input[4:])
	if err != nil {
		return common.Address{}, nil, fmt.Errorf("decoding transfer arguments: %w", err)
	}
	if len(values) != 2 {
		return common.Address{}, nil, fmt.Errorf("unexpected argument count %d", len(values))
	}

	recipient, ok := values[0].(common.Address)
	if !ok {
		return common.Address{}, nil, fmt.Errorf("recipient is not an address")
	}
	amount, ok := values[1].(*big.Int)
	if !ok {
		return common.Address{}, nil, fmt.Errorf("amount is not a uint256")
	}

	return recipient, amount, nil
}

// EncodeTransfer builds transfer(address,uint256) calldata. Used by tests
// to construct transactions a payer's wallet would produce.
func EncodeTransfer(recipient common.Address, amount *big.Int) ([]byte, error) {
	packed, err := transferArgs.Pack(recipient, amount)
	if err != nil {
		return nil, err
	}
	return append(append([]byte{}, TransferSelector...), packed...), nil
}

// PackBalanceOf builds balanceOf(address) calldata.
func PackBalanceOf(owner common.Address) []byte {
	packed, _ := abi.Arguments{{Name: "owner", Type: addressType}}.Pack(owner)
	return append(append([]byte{}, balanceOfSelector...), packed...)
}

// UnpackBalanceOf decodes the uint256 returned by balanceOf.
func UnpackBalanceOf(out []byte) (*big.Int, error) {
	values, err := balanceArgs.Unpack(out)
	if err != nil {
		return nil, err
	}
	bal, ok := values[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("balance is not a uint256")
	}
	return bal, nil
}

package verification

import (
	"context"
	"fmt"
	"math/big"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stablepay/stablepay/amounts"
	"github.com/stablepay/stablepay/clients"
	"github.com/stablepay/stablepay/ledger"
	"github.com/stablepay/stablepay/registry"
	"github.com/stablepay/stablepay/types"
	"github.com/stablepay/stablepay/utils"
)

const testWallet = "0x742d35Cc6634C0532925a3b844Bc454e4438f44e"

// fakeClient serves canned transactions and receipts.
type fakeClient struct {
	network  string
	head     uint64
	txs      map[string]*clients.TxInfo
	receipts map[string]*clients.ReceiptInfo
	headErr  error
}

func newFakeClient(network string) *fakeClient {
	return &fakeClient{
		network:  network,
		txs:      make(map[string]*clients.TxInfo),
		receipts: make(map[string]*clients.ReceiptInfo),
	}
}

func (f *fakeClient) Transaction(_ context.Context, hash string) (*clients.TxInfo, error) {
	tx, ok := f.txs[hash]
	if !ok {
		return nil, types.NewError(types.ErrTxNotFound, "transaction not found")
	}
	return tx, nil
}

func (f *fakeClient) Receipt(_ context.Context, hash string) (*clients.ReceiptInfo, error) {
	r, ok := f.receipts[hash]
	if !ok {
		return nil, types.NewError(types.ErrTxNotFound, "transaction receipt not found")
	}
	return r, nil
}

func (f *fakeClient) BlockNumber(context.Context) (uint64, error) {
	if f.headErr != nil {
		return 0, f.headErr
	}
	return f.head, nil
}

func (f *fakeClient) NativeBalance(context.Context, string) (*big.Int, error) {
	return big.NewInt(0), nil
}

func (f *fakeClient) TokenBalance(context.Context, string, string) (*big.Int, error) {
	return big.NewInt(0), nil
}

func (f *fakeClient) Network() string { return f.network }
func (f *fakeClient) Close()          {}

// addTransfer registers a mined transfer transaction at the given block.
func (f *fakeClient) addTransfer(t *testing.T, hash, contract, recipient string, raw *big.Int, block int64) {
	t.Helper()

	input, err := clients.EncodeTransfer(common.HexToAddress(recipient), raw)
	require.NoError(t, err)

	to := common.HexToAddress(contract)
	f.txs[hash] = &clients.TxInfo{Hash: common.HexToHash(hash), To: &to, Input: input}
	f.receipts[hash] = &clients.ReceiptInfo{Status: 1, BlockNumber: big.NewInt(block)}
}

type fixture struct {
	verifier *Verifier
	ledger   *ledger.Ledger
	bsc      *fakeClient
	ethereum *fakeClient
	clk      *clock.Mock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	clk := clock.NewMock()
	dis := amounts.New(clk, amounts.DefaultTTL)
	t.Cleanup(dis.Stop)

	reg := registry.New(false, nil)
	led := ledger.New(reg, dis, clk, ledger.Options{
		WalletAddress:  testWallet,
		PaymentTimeout: 30 * time.Minute,
	})

	v := NewVerifier(reg, led, Options{WalletAddress: testWallet})
	t.Cleanup(v.Close)

	f := &fixture{
		verifier: v,
		ledger:   led,
		bsc:      newFakeClient("bsc"),
		ethereum: newFakeClient("ethereum"),
		clk:      clk,
	}
	require.NoError(t, v.AddClient("bsc", f.bsc))
	require.NoError(t, v.AddClient("ethereum", f.ethereum))
	return f
}

// createPayment makes a pending payment and returns it together with the
// exact raw transfer amount a payer would send.
func (f *fixture) createPayment(t *testing.T, network, token string, base float64) (*types.Payment, *big.Int) {
	t.Helper()

	p, err := f.ledger.Create(types.CreateRequest{
		Amount:  decimal.NewFromFloat(base),
		OrderID: "order1",
		Network: network,
		Token:   token,
	})
	require.NoError(t, err)

	raw, err := utils.ScaleToRaw(p.Amount, p.Decimals)
	require.NoError(t, err)
	return p, raw
}

func hash(n byte) string { return fmt.Sprintf("0x%064x", n) }

func TestVerifyConfirms(t *testing.T) {
	f := newFixture(t)
	p, raw := f.createPayment(t, "bsc", "usdt", 10.00)

	// bsc needs 15 confirmations; 100 - 80 + 1 = 21.
	f.bsc.addTransfer(t, hash(1), p.ContractAddress, testWallet, raw, 80)
	f.bsc.head = 100

	got, err := f.verifier.Verify(context.Background(), p.ID, hash(1))
	require.NoError(t, err)

	assert.Equal(t, types.StatusConfirmed, got.Status)
	assert.Equal(t, hash(1), got.TxHash)
	assert.Equal(t, int64(21), got.Confirmations)
	assert.NotNil(t, got.VerifiedAt)
	assert.NotNil(t, got.ConfirmedAt)
}

func TestVerifyBelowThresholdThenConfirms(t *testing.T) {
	f := newFixture(t)
	p, raw := f.createPayment(t, "bsc", "usdt", 10.00)

	f.bsc.addTransfer(t, hash(1), p.ContractAddress, testWallet, raw, 100)
	f.bsc.head = 104 // 5 confirmations, threshold is 15

	got, err := f.verifier.Verify(context.Background(), p.ID, hash(1))
	require.NoError(t, err)
	assert.Equal(t, types.StatusPendingConfirmation, got.Status)
	assert.Equal(t, int64(5), got.Confirmations)
	assert.Nil(t, got.ConfirmedAt)

	// The chain advances; re-verifying the same hash promotes.
	f.bsc.head = 120
	got, err = f.verifier.Verify(context.Background(), p.ID, hash(1))
	require.NoError(t, err)
	assert.Equal(t, types.StatusConfirmed, got.Status)
	assert.Equal(t, int64(21), got.Confirmations)
}

func TestVerifyThresholdBoundary(t *testing.T) {
	// ethereum's threshold is 12 confirmations exactly.
	for _, tc := range []struct {
		name string
		head uint64
		want types.Status
	}{
		{"one short", 110, types.StatusPendingConfirmation}, // 11
		{"exactly at", 111, types.StatusConfirmed},          // 12
	} {
		t.Run(tc.name, func(t *testing.T) {
			ff := newFixture(t)
			p, raw := ff.createPayment(t, "ethereum", "usdt", 50.00)

			ff.ethereum.addTransfer(t, hash(2), p.ContractAddress, testWallet, raw, 100)
			ff.ethereum.head = tc.head

			got, err := ff.verifier.Verify(context.Background(), p.ID, hash(2))
			require.NoError(t, err)
			assert.Equal(t, tc.want, got.Status)
		})
	}
}

func TestVerifyUnminedTransaction(t *testing.T) {
	f := newFixture(t)
	p, raw := f.createPayment(t, "bsc", "usdt", 10.00)

	f.bsc.addTransfer(t, hash(1), p.ContractAddress, testWallet, raw, 0)
	f.bsc.receipts[hash(1)].BlockNumber = nil
	f.bsc.head = 100

	got, err := f.verifier.Verify(context.Background(), p.ID, hash(1))
	require.NoError(t, err)
	assert.Equal(t, types.StatusPendingConfirmation, got.Status)
	assert.Equal(t, int64(0), got.Confirmations)
}

func TestVerifyTxNotFound(t *testing.T) {
	f := newFixture(t)
	p, _ := f.createPayment(t, "bsc", "usdt", 10.00)

	_, err := f.verifier.Verify(context.Background(), p.ID, hash(9))
	assert.True(t, types.IsCode(err, types.ErrTxNotFound))

	got, err := f.ledger.Get(p.ID)
	require.NoError(t, err)
	assert.Equal(t, types.StatusPending, got.Status)
}

func TestVerifyRevertedTransaction(t *testing.T) {
	f := newFixture(t)
	p, raw := f.createPayment(t, "bsc", "usdt", 10.00)

	f.bsc.addTransfer(t, hash(1), p.ContractAddress, testWallet, raw, 80)
	f.bsc.receipts[hash(1)].Status = 0
	f.bsc.head = 100

	_, err := f.verifier.Verify(context.Background(), p.ID, hash(1))
	assert.True(t, types.IsCode(err, types.ErrTxReverted))
}

func TestVerifyRejectsInvalidTransactions(t *testing.T) {
	f := newFixture(t)
	p, raw := f.createPayment(t, "bsc", "usdt", 10.00)
	f.bsc.head = 100

	otherContract := "0x1111111111111111111111111111111111111111"
	otherRecipient := "0x2222222222222222222222222222222222222222"

	tests := []struct {
		name  string
		setup func(h string)
	}{
		{"wrong contract", func(h string) {
			f.bsc.addTransfer(t, h, otherContract, testWallet, raw, 80)
		}},
		{"wrong recipient", func(h string) {
			f.bsc.addTransfer(t, h, p.ContractAddress, otherRecipient, raw, 80)
		}},
		{"amount off by one unit", func(h string) {
			off := new(big.Int).Add(raw, big.NewInt(1))
			f.bsc.addTransfer(t, h, p.ContractAddress, testWallet, off, 80)
		}},
		{"not a transfer call", func(h string) {
			f.bsc.addTransfer(t, h, p.ContractAddress, testWallet, raw, 80)
			f.bsc.txs[h].Input = []byte{0xde, 0xad, 0xbe, 0xef}
		}},
		{"plain value transfer", func(h string) {
			f.bsc.addTransfer(t, h, p.ContractAddress, testWallet, raw, 80)
			f.bsc.txs[h].Input = nil
		}},
	}

	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := hash(byte(10 + i))
			tt.setup(h)

			_, err := f.verifier.Verify(context.Background(), p.ID, h)
			assert.True(t, types.IsCode(err, types.ErrInvalidTransaction), "got %v", err)

			got, err := f.ledger.Get(p.ID)
			require.NoError(t, err)
			assert.Equal(t, types.StatusPending, got.Status)
		})
	}
}

func TestVerifyContractAddressCaseInsensitive(t *testing.T) {
	f := newFixture(t)
	p, raw := f.createPayment(t, "bsc", "usdt", 10.00)

	// Same contract, different hex casing.
	f.bsc.addTransfer(t, hash(1), "0x55D398326F99059FF775485246999027B3197955", testWallet, raw, 80)
	f.bsc.head = 100

	got, err := f.verifier.Verify(context.Background(), p.ID, hash(1))
	require.NoError(t, err)
	assert.Equal(t, types.StatusConfirmed, got.Status)
}

func TestVerifyTerminalPayment(t *testing.T) {
	f := newFixture(t)
	p, raw := f.createPayment(t, "bsc", "usdt", 10.00)

	f.bsc.addTransfer(t, hash(1), p.ContractAddress, testWallet, raw, 80)
	f.bsc.head = 100

	_, err := f.verifier.Verify(context.Background(), p.ID, hash(1))
	require.NoError(t, err)

	_, err = f.verifier.Verify(context.Background(), p.ID, hash(1))
	assert.True(t, types.IsCode(err, types.ErrAlreadyProcessed))
}

func TestVerifyExpiredPayment(t *testing.T) {
	f := newFixture(t)
	p, raw := f.createPayment(t, "bsc", "usdt", 10.00)

	f.bsc.addTransfer(t, hash(1), p.ContractAddress, testWallet, raw, 80)
	f.bsc.head = 100

	f.clk.Add(30 * time.Minute)

	_, err := f.verifier.Verify(context.Background(), p.ID, hash(1))
	assert.True(t, types.IsCode(err, types.ErrAlreadyProcessed))
}

func TestVerifyUnknownPayment(t *testing.T) {
	f := newFixture(t)

	_, err := f.verifier.Verify(context.Background(), "missing", hash(1))
	assert.True(t, types.IsCode(err, types.ErrPaymentNotFound))
}

func TestVerifyNetworkWithoutClient(t *testing.T) {
	f := newFixture(t)
	p, _ := f.createPayment(t, "polygon", "usdt", 10.00)

	_, err := f.verifier.Verify(context.Background(), p.ID, hash(1))
	assert.True(t, types.IsCode(err, types.ErrUnsupportedNetwork))
}

func TestMatchTransferAutoVerifies(t *testing.T) {
	f := newFixture(t)
	p, raw := f.createPayment(t, "bsc", "usdt", 10.00)

	f.bsc.addTransfer(t, hash(1), p.ContractAddress, testWallet, raw, 80)
	f.bsc.head = 100

	got, err := f.verifier.MatchTransfer(context.Background(), types.TransferNotification{
		TxHash:    hash(1),
		ToAddress: testWallet,
		Amount:    p.Amount,
		Token:     p.ContractAddress,
		Network:   "bsc",
	})
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, p.ID, got.ID)
	assert.Equal(t, types.StatusConfirmed, got.Status)
}

func TestMatchTransferScansAllNetworksWithoutHint(t *testing.T) {
	f := newFixture(t)
	p, raw := f.createPayment(t, "bsc", "usdt", 10.00)

	f.bsc.addTransfer(t, hash(1), p.ContractAddress, testWallet, raw, 80)
	f.bsc.head = 100

	got, err := f.verifier.MatchTransfer(context.Background(), types.TransferNotification{
		TxHash:    hash(1),
		ToAddress: testWallet,
		Amount:    p.Amount,
		Token:     p.ContractAddress,
	})
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, p.ID, got.ID)
}

func TestMatchTransferIgnoresOtherWallets(t *testing.T) {
	f := newFixture(t)
	p, _ := f.createPayment(t, "bsc", "usdt", 10.00)

	got, err := f.verifier.MatchTransfer(context.Background(), types.TransferNotification{
		TxHash:    hash(1),
		ToAddress: "0x2222222222222222222222222222222222222222",
		Amount:    p.Amount,
		Token:     p.ContractAddress,
	})
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestMatchTransferNoPendingMatch(t *testing.T) {
	f := newFixture(t)

	got, err := f.verifier.MatchTransfer(context.Background(), types.TransferNotification{
		TxHash:    hash(1),
		ToAddress: testWallet,
		Amount:    decimal.NewFromFloat(99.99),
		Token:     "0x55d398326f99059fF775485246999027B3197955",
	})
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestMatchTransferDisambiguatesTwoInvoices(t *testing.T) {
	f := newFixture(t)

	a, rawA := f.createPayment(t, "bsc", "usdt", 10.00)
	b, _ := f.createPayment(t, "bsc", "usdt", 10.00)
	require.False(t, a.Amount.Equal(b.Amount))

	f.bsc.addTransfer(t, hash(1), a.ContractAddress, testWallet, rawA, 80)
	f.bsc.head = 100

	got, err := f.verifier.MatchTransfer(context.Background(), types.TransferNotification{
		TxHash:    hash(1),
		ToAddress: testWallet,
		Amount:    a.Amount,
		Network:   "bsc",
		Token:     a.ContractAddress,
	})
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, a.ID, got.ID)

	// The other invoice stays pending.
	other, err := f.ledger.Get(b.ID)
	require.NoError(t, err)
	assert.Equal(t, types.StatusPending, other.Status)
}

func TestConfirmPayment(t *testing.T) {
	f := newFixture(t)
	p, raw := f.createPayment(t, "bsc", "usdt", 10.00)

	f.bsc.addTransfer(t, hash(1), p.ContractAddress, testWallet, raw, 95)
	f.bsc.head = 100

	_, err := f.verifier.Verify(context.Background(), p.ID, hash(1))
	require.NoError(t, err)

	got, err := f.verifier.ConfirmPayment(p.ID, hash(1), 20)
	require.NoError(t, err)
	assert.Equal(t, types.StatusConfirmed, got.Status)
	assert.Equal(t, int64(20), got.Confirmations)
}

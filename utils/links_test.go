package utils

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stablepay/stablepay/types"
)

func TestWalletURLs(t *testing.T) {
	network := types.NetworkConfig{
		Name:    "BNB Smart Chain",
		ChainID: 56,
	}
	token := types.TokenConfig{
		Symbol:   "USDT",
		Address:  "0x55d398326f99059fF775485246999027B3197955",
		Decimals: 18,
	}
	amount := decimal.RequireFromString("10.37")
	wallet := "0x742d35Cc6634C0532925a3b844Bc454e4438f44e"

	urls, err := WalletURLs(amount, "payment-1", wallet, network, token)
	require.NoError(t, err)

	assert.Equal(t,
		"https://metamask.app.link/send/0x55d398326f99059fF775485246999027B3197955@56/transfer?address=0x742d35Cc6634C0532925a3b844Bc454e4438f44e&uint256=10370000000000000000",
		urls.MetaMask)
	assert.Contains(t, urls.TrustWallet, "trust://send?")
	assert.Contains(t, urls.TrustWallet, "memo=payment-1")
	assert.Contains(t, urls.CoinbaseWallet, "https://go.cb-w.com/dapp?cb_url=")

	assert.Equal(t, "10.37", urls.Direct.Amount)
	assert.Equal(t, "10370000000000000000", urls.Direct.TokenAmount)
	assert.Equal(t, int64(56), urls.Direct.ChainID)
	assert.Equal(t, wallet, urls.Direct.ToAddress)

	assert.Equal(t, urls.MetaMask, QRPayload(urls))
}

func TestWalletURLsRejectsExcessPrecision(t *testing.T) {
	token := types.TokenConfig{Symbol: "USDT", Decimals: 6}

	_, err := WalletURLs(decimal.RequireFromString("1.1234567"), "p", "0x0", types.NetworkConfig{}, token)
	assert.Error(t, err)
}

package utils

import (
	"fmt"
	"net/url"

	"github.com/shopspring/decimal"

	"github.com/stablepay/stablepay/types"
)

// WalletURLs builds the deep links a payer can open to prefill the token
// transfer, plus the raw description for wallets without a link scheme.
func WalletURLs(amount decimal.Decimal, paymentID, walletAddress string,
	network types.NetworkConfig, token types.TokenConfig) (*types.WalletURLs, error) {

	raw, err := ScaleToRaw(amount, token.Decimals)
	if err != nil {
		return nil, err
	}
	tokenAmount := raw.String()

	metamask := fmt.Sprintf("https://metamask.app.link/send/%s@%d/transfer?address=%s&uint256=%s",
		token.Address, network.ChainID, walletAddress, tokenAmount)

	trustParams := url.Values{}
	trustParams.Set("asset", fmt.Sprintf("%d", network.ChainID))
	trustParams.Set("address", walletAddress)
	trustParams.Set("amount", amount.String())
	trustParams.Set("token", token.Address)
	trustParams.Set("memo", paymentID)

	coinbaseInner := fmt.Sprintf("ethereum:%s/transfer?address=%s&uint256=%s",
		token.Address, walletAddress, tokenAmount)

	return &types.WalletURLs{
		MetaMask:       metamask,
		TrustWallet:    "trust://send?" + trustParams.Encode(),
		CoinbaseWallet: "https://go.cb-w.com/dapp?cb_url=" + url.QueryEscape(coinbaseInner),
		Direct: types.DirectPayment{
			Network:         network.Name,
			ChainID:         network.ChainID,
			ContractAddress: token.Address,
			ToAddress:       walletAddress,
			Amount:          amount.String(),
			TokenAmount:     tokenAmount,
			Decimals:        token.Decimals,
			Symbol:          token.Symbol,
		},
	}, nil
}

// QRPayload is the string a QR renderer should encode. Rendering itself is
// a presentation concern left to callers.
func QRPayload(urls *types.WalletURLs) string {
	return urls.MetaMask
}

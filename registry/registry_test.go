package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stablepay/stablepay/types"
)

func TestConfigMainnet(t *testing.T) {
	r := New(false, nil)

	cfg, err := r.Config("bsc")
	require.NoError(t, err)
	assert.Equal(t, int64(56), cfg.ChainID)
	assert.Equal(t, int64(15), cfg.MinConfirmations)
	assert.Equal(t, int32(18), cfg.Tokens["usdt"].Decimals)

	cfg, err = r.Config("ethereum")
	require.NoError(t, err)
	assert.Equal(t, int64(1), cfg.ChainID)
	assert.Equal(t, int32(6), cfg.Tokens["usdc"].Decimals)
}

func TestConfigIsCaseInsensitive(t *testing.T) {
	r := New(false, nil)

	cfg, err := r.Config("Polygon")
	require.NoError(t, err)
	assert.Equal(t, "polygon", cfg.Key)
}

func TestConfigUnknownNetwork(t *testing.T) {
	r := New(false, nil)

	_, err := r.Config("moonchain")
	require.Error(t, err)
	assert.True(t, types.IsCode(err, types.ErrUnsupportedNetwork))
}

func TestTokenConfig(t *testing.T) {
	r := New(false, nil)

	tok, err := r.TokenConfig("ethereum", "usdt")
	require.NoError(t, err)
	assert.Equal(t, "USDT", tok.Symbol)
	assert.Equal(t, "0xdAC17F958D2ee523a2206206994597C13D831ec7", tok.Address)

	tok, err = r.TokenConfig("bsc", "USDC")
	require.NoError(t, err)
	assert.Equal(t, "USDC", tok.Symbol)
}

func TestTokenConfigUnknownToken(t *testing.T) {
	r := New(false, nil)

	_, err := r.TokenConfig("ethereum", "dai")
	require.Error(t, err)
	assert.True(t, types.IsCode(err, types.ErrUnsupportedToken))
}

func TestSupportedNetworksOrder(t *testing.T) {
	r := New(false, nil)
	assert.Equal(t,
		[]string{"ethereum", "bsc", "polygon", "arbitrum", "optimism", "avalanche", "base"},
		r.SupportedNetworks())
}

func TestSupportedTokensSorted(t *testing.T) {
	r := New(false, nil)

	tokens, err := r.SupportedTokens("bsc")
	require.NoError(t, err)
	assert.Equal(t, []string{"usdc", "usdt"}, tokens)
}

func TestTestnetUniverse(t *testing.T) {
	r := New(true, nil)
	assert.True(t, r.Testnet())

	_, err := r.Config("ethereum")
	assert.Error(t, err)

	cfg, err := r.Config("sepolia")
	require.NoError(t, err)
	assert.Equal(t, int64(11155111), cfg.ChainID)
	assert.Equal(t, int64(3), cfg.MinConfirmations)
}

func TestRPCOverrides(t *testing.T) {
	r := New(false, map[string]string{"bsc": "http://localhost:8545"})

	cfg, err := r.Config("bsc")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8545", cfg.RPCURL)

	cfg, err = r.Config("ethereum")
	require.NoError(t, err)
	assert.Equal(t, "https://ethereum-rpc.publicnode.com", cfg.RPCURL)
}

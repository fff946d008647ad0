// Package registry holds the static per-network configuration: chain ids,
// RPC endpoints, block explorers, confirmation thresholds and the supported
// stablecoin contracts. It is immutable after construction; lookups for
// unknown networks or tokens fail with typed errors.
package registry

import (
	"fmt"
	"sort"
	"strings"

	"github.com/stablepay/stablepay/types"
)

// Registry resolves network and token configuration. The testnet flag is
// fixed at construction and selects which universe of chains is visible.
type Registry struct {
	networks map[string]types.NetworkConfig
	order    []string
	testnet  bool
}

// New builds a registry for either the mainnet or testnet universe.
// rpcOverrides replaces the default public RPC endpoint per network key.
func New(testnet bool, rpcOverrides map[string]string) *Registry {
	src := mainnets
	order := mainnetOrder
	if testnet {
		src = testnets
		order = testnetOrder
	}

	networks := make(map[string]types.NetworkConfig, len(src))
	for key, cfg := range src {
		if url, ok := rpcOverrides[key]; ok && url != "" {
			cfg.RPCURL = url
		}
		networks[key] = cfg
	}

	return &Registry{networks: networks, order: order, testnet: testnet}
}

// Testnet reports which universe this registry serves.
func (r *Registry) Testnet() bool { return r.testnet }

// Config returns the configuration for a network key.
func (r *Registry) Config(networkKey string) (types.NetworkConfig, error) {
	cfg, ok := r.networks[strings.ToLower(networkKey)]
	if !ok {
		return types.NetworkConfig{}, types.NewError(types.ErrUnsupportedNetwork,
			fmt.Sprintf("network %q is not supported", networkKey))
	}
	return cfg, nil
}

// TokenConfig returns the token configuration for a (network, token) pair.
func (r *Registry) TokenConfig(networkKey, token string) (types.TokenConfig, error) {
	cfg, err := r.Config(networkKey)
	if err != nil {
		return types.TokenConfig{}, err
	}
	tok, ok := cfg.Tokens[strings.ToLower(token)]
	if !ok {
		return types.TokenConfig{}, types.NewError(types.ErrUnsupportedToken,
			fmt.Sprintf("token %q is not supported on %s", token, cfg.Key))
	}
	return tok, nil
}

// SupportedNetworks returns network keys in their canonical order.
func (r *Registry) SupportedNetworks() []string {
	keys := make([]string, len(r.order))
	copy(keys, r.order)
	return keys
}

// SupportedTokens returns the token symbols available on a network, sorted.
func (r *Registry) SupportedTokens(networkKey string) ([]string, error) {
	cfg, err := r.Config(networkKey)
	if err != nil {
		return nil, err
	}
	symbols := make([]string, 0, len(cfg.Tokens))
	for sym := range cfg.Tokens {
		symbols = append(symbols, sym)
	}
	sort.Strings(symbols)
	return symbols, nil
}

var mainnetOrder = []string{"ethereum", "bsc", "polygon", "arbitrum", "optimism", "avalanche", "base"}

var mainnets = map[string]types.NetworkConfig{
	"ethereum": {
		Key:              "ethereum",
		Name:             "Ethereum Mainnet",
		ChainID:          1,
		Symbol:           "ETH",
		RPCURL:           "https://ethereum-rpc.publicnode.com",
		BlockExplorer:    "https://etherscan.io",
		MinConfirmations: 12,
		Tokens: map[string]types.TokenConfig{
			"usdt": {Symbol: "USDT", Name: "Tether USD", Address: "0xdAC17F958D2ee523a2206206994597C13D831ec7", Decimals: 6},
			"usdc": {Symbol: "USDC", Name: "USD Coin", Address: "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48", Decimals: 6},
		},
	},
	"bsc": {
		Key:              "bsc",
		Name:             "BNB Smart Chain",
		ChainID:          56,
		Symbol:           "BNB",
		RPCURL:           "https://bsc-dataseed.binance.org",
		BlockExplorer:    "https://bscscan.com",
		MinConfirmations: 15,
		Tokens: map[string]types.TokenConfig{
			"usdt": {Symbol: "USDT", Name: "Tether USD", Address: "0x55d398326f99059fF775485246999027B3197955", Decimals: 18},
			"usdc": {Symbol: "USDC", Name: "USD Coin", Address: "0x8AC76a51cc950d9822D68b83fE1Ad97B32Cd580d", Decimals: 18},
		},
	},
	"polygon": {
		Key:              "polygon",
		Name:             "Polygon PoS",
		ChainID:          137,
		Symbol:           "POL",
		RPCURL:           "https://polygon-rpc.com",
		BlockExplorer:    "https://polygonscan.com",
		MinConfirmations: 30,
		Tokens: map[string]types.TokenConfig{
			"usdt": {Symbol: "USDT", Name: "Tether USD", Address: "0xc2132D05D31c914a87C6611C10748AEb04B58e8F", Decimals: 6},
			"usdc": {Symbol: "USDC", Name: "USD Coin", Address: "0x3c499c542cEF5E3811e1192ce70d8cC03d5c3359", Decimals: 6},
		},
	},
	"arbitrum": {
		Key:              "arbitrum",
		Name:             "Arbitrum One",
		ChainID:          42161,
		Symbol:           "ETH",
		RPCURL:           "https://arb1.arbitrum.io/rpc",
		BlockExplorer:    "https://arbiscan.io",
		MinConfirmations: 10,
		Tokens: map[string]types.TokenConfig{
			"usdt": {Symbol: "USDT", Name: "Tether USD", Address: "0xFd086bC7CD5C481DCC9C85ebE478A1C0b69FCbb9", Decimals: 6},
			"usdc": {Symbol: "USDC", Name: "USD Coin", Address: "0xaf88d065e77c8cC2239327C5EDb3A432268e5831", Decimals: 6},
		},
	},
	"optimism": {
		Key:              "optimism",
		Name:             "OP Mainnet",
		ChainID:          10,
		Symbol:           "ETH",
		RPCURL:           "https://mainnet.optimism.io",
		BlockExplorer:    "https://optimistic.etherscan.io",
		MinConfirmations: 10,
		Tokens: map[string]types.TokenConfig{
			"usdt": {Symbol: "USDT", Name: "Tether USD", Address: "0x94b008aA00579c1307B0EF2c499aD98a8ce58e58", Decimals: 6},
			"usdc": {Symbol: "USDC", Name: "USD Coin", Address: "0x0b2C639c533813f4Aa9D7837CAf62653d097Ff85", Decimals: 6},
		},
	},
	"avalanche": {
		Key:              "avalanche",
		Name:             "Avalanche C-Chain",
		ChainID:          43114,
		Symbol:           "AVAX",
		RPCURL:           "https://api.avax.network/ext/bc/C/rpc",
		BlockExplorer:    "https://snowtrace.io",
		MinConfirmations: 5,
		Tokens: map[string]types.TokenConfig{
			"usdt": {Symbol: "USDT", Name: "Tether USD", Address: "0x9702230A8Ea53601f5cD2dc00fDBc13d4dF4A8c7", Decimals: 6},
			"usdc": {Symbol: "USDC", Name: "USD Coin", Address: "0xB97EF9Ef8734C71904D8002F8b6Bc66Dd9c48a6E", Decimals: 6},
		},
	},
	"base": {
		Key:              "base",
		Name:             "Base",
		ChainID:          8453,
		Symbol:           "ETH",
		RPCURL:           "https://mainnet.base.org",
		BlockExplorer:    "https://basescan.org",
		MinConfirmations: 10,
		Tokens: map[string]types.TokenConfig{
			"usdt": {Symbol: "USDT", Name: "Tether USD", Address: "0xfde4C96c8593536E31F229EA8f37b2ADa2699bb2", Decimals: 6},
			"usdc": {Symbol: "USDC", Name: "USD Coin", Address: "0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913", Decimals: 6},
		},
	},
}

var testnetOrder = []string{"sepolia", "bsc-testnet", "amoy", "arbitrum-sepolia", "optimism-sepolia", "fuji", "base-sepolia"}

var testnets = map[string]types.NetworkConfig{
	"sepolia": {
		Key:              "sepolia",
		Name:             "Sepolia",
		ChainID:          11155111,
		Symbol:           "ETH",
		RPCURL:           "https://ethereum-sepolia-rpc.publicnode.com",
		BlockExplorer:    "https://sepolia.etherscan.io",
		MinConfirmations: 3,
		Tokens: map[string]types.TokenConfig{
			"usdt": {Symbol: "USDT", Name: "Tether USD", Address: "0xaA8E23Fb1079EA71e0a56F48a2aA51851D8433D0", Decimals: 6},
			"usdc": {Symbol: "USDC", Name: "USD Coin", Address: "0x1c7D4B196Cb0C7B01d743Fbc6116a902379C7238", Decimals: 6},
		},
	},
	"bsc-testnet": {
		Key:              "bsc-testnet",
		Name:             "BNB Smart Chain Testnet",
		ChainID:          97,
		Symbol:           "tBNB",
		RPCURL:           "https://data-seed-prebsc-1-s1.binance.org:8545",
		BlockExplorer:    "https://testnet.bscscan.com",
		MinConfirmations: 6,
		Tokens: map[string]types.TokenConfig{
			"usdt": {Symbol: "USDT", Name: "Tether USD", Address: "0x337610d27c682E347C9cD60BD4b3b107C9d34dDd", Decimals: 18},
			"usdc": {Symbol: "USDC", Name: "USD Coin", Address: "0x64544969ed7EBf5f083679233325356EbE738930", Decimals: 18},
		},
	},
	"amoy": {
		Key:              "amoy",
		Name:             "Polygon Amoy",
		ChainID:          80002,
		Symbol:           "POL",
		RPCURL:           "https://rpc-amoy.polygon.technology",
		BlockExplorer:    "https://amoy.polygonscan.com",
		MinConfirmations: 5,
		Tokens: map[string]types.TokenConfig{
			"usdc": {Symbol: "USDC", Name: "USD Coin", Address: "0x41E94Eb019C0762f9Bfcf9Fb1E58725BfB0e7582", Decimals: 6},
		},
	},
	"arbitrum-sepolia": {
		Key:              "arbitrum-sepolia",
		Name:             "Arbitrum Sepolia",
		ChainID:          421614,
		Symbol:           "ETH",
		RPCURL:           "https://sepolia-rollup.arbitrum.io/rpc",
		BlockExplorer:    "https://sepolia.arbiscan.io",
		MinConfirmations: 3,
		Tokens: map[string]types.TokenConfig{
			"usdc": {Symbol: "USDC", Name: "USD Coin", Address: "0x75faf114eafb1BDbe2F0316DF893fd58CE46AA4d", Decimals: 6},
		},
	},
	"optimism-sepolia": {
		Key:              "optimism-sepolia",
		Name:             "OP Sepolia",
		ChainID:          11155420,
		Symbol:           "ETH",
		RPCURL:           "https://sepolia.optimism.io",
		BlockExplorer:    "https://sepolia-optimism.etherscan.io",
		MinConfirmations: 3,
		Tokens: map[string]types.TokenConfig{
			"usdc": {Symbol: "USDC", Name: "USD Coin", Address: "0x5fd84259d66Cd46123540766Be93DFE6D43130D7", Decimals: 6},
		},
	},
	"fuji": {
		Key:              "fuji",
		Name:             "Avalanche Fuji",
		ChainID:          43113,
		Symbol:           "AVAX",
		RPCURL:           "https://api.avax-test.network/ext/bc/C/rpc",
		BlockExplorer:    "https://testnet.snowtrace.io",
		MinConfirmations: 2,
		Tokens: map[string]types.TokenConfig{
			"usdc": {Symbol: "USDC", Name: "USD Coin", Address: "0x5425890298aed601595a70AB815c96711a31Bc65", Decimals: 6},
		},
	},
	"base-sepolia": {
		Key:              "base-sepolia",
		Name:             "Base Sepolia",
		ChainID:          84532,
		Symbol:           "ETH",
		RPCURL:           "https://sepolia.base.org",
		BlockExplorer:    "https://sepolia.basescan.org",
		MinConfirmations: 3,
		Tokens: map[string]types.TokenConfig{
			"usdc": {Symbol: "USDC", Name: "USD Coin", Address: "0x036CbD53842c5426634e7929541eC2318f3dCF7e", Decimals: 6},
		},
	},
}

// Package stablepay implements a stablecoin payment gateway for EVM
// networks. Payments are matched to anonymous on-chain transfers by a
// disambiguated amount unique among pending invoices, then verified
// against the actual transaction calldata and confirmation depth.
package stablepay

import (
	"context"

	"github.com/benbjohnson/clock"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/stablepay/stablepay/amounts"
	"github.com/stablepay/stablepay/clients"
	"github.com/stablepay/stablepay/ledger"
	"github.com/stablepay/stablepay/logger"
	"github.com/stablepay/stablepay/metrics"
	"github.com/stablepay/stablepay/registry"
	"github.com/stablepay/stablepay/types"
	"github.com/stablepay/stablepay/verification"
)

// Gateway is the main entry point: it wires the network registry, amount
// disambiguator, payment ledger and verifier together.
type Gateway struct {
	cfg      types.Config
	registry *registry.Registry
	amounts  *amounts.Disambiguator
	ledger   *ledger.Ledger
	verifier *verification.Verifier

	clk      clock.Clock
	log      logger.Logger
	metrics  metrics.Recorder
	validate *validator.Validate
	injected map[string]clients.ChainClient
}

// New builds a gateway from the validated configuration. Chain clients are
// dialed for every network in the registry's universe; a network whose RPC
// endpoint cannot be dialed is skipped with a warning and verification on
// it fails until restart.
func New(cfg types.Config, opts ...Option) (*Gateway, error) {
	validate := validator.New()
	if err := validate.Struct(cfg); err != nil {
		return nil, types.WrapError(types.ErrInvalidRequest, "invalid configuration", err)
	}

	g := &Gateway{
		cfg:      cfg,
		clk:      clock.New(),
		log:      logger.NoopLogger{},
		metrics:  metrics.NoopRecorder{},
		validate: validate,
		injected: make(map[string]clients.ChainClient),
	}
	for _, opt := range opts {
		opt(g)
	}

	g.registry = registry.New(cfg.Testnet, cfg.RPCOverrides)
	g.amounts = amounts.New(g.clk, amounts.DefaultTTL)
	g.ledger = ledger.New(g.registry, g.amounts, g.clk, ledger.Options{
		WalletAddress:  cfg.WalletAddress,
		PaymentTimeout: cfg.PaymentTimeout,
		Logger:         g.log,
		Metrics:        g.metrics,
	})
	g.verifier = verification.NewVerifier(g.registry, g.ledger, verification.Options{
		WalletAddress: cfg.WalletAddress,
		Logger:        g.log,
		Metrics:       g.metrics,
	})

	for _, networkKey := range g.registry.SupportedNetworks() {
		client, ok := g.injected[networkKey]
		if !ok {
			netCfg, err := g.registry.Config(networkKey)
			if err != nil {
				continue
			}
			evm, err := clients.NewEVMClient(networkKey, netCfg.RPCURL)
			if err != nil {
				g.log.Warn("skipping network, RPC dial failed", map[string]any{
					"network": networkKey,
					"error":   err.Error(),
				})
				continue
			}
			client = evm
		}
		if err := g.verifier.AddClient(networkKey, client); err != nil {
			return nil, err
		}
	}

	g.log.Info("gateway initialized", map[string]any{
		"testnet":  cfg.Testnet,
		"networks": len(g.registry.SupportedNetworks()),
	})
	return g, nil
}

// CreatePayment validates the request and allocates a new pending payment
// with a unique disambiguated amount.
func (g *Gateway) CreatePayment(req types.CreateRequest) (*types.Payment, error) {
	if err := g.validate.Struct(req); err != nil {
		return nil, types.WrapError(types.ErrInvalidRequest, "invalid create request", err)
	}
	return g.ledger.Create(req)
}

// GetPayment returns a payment by id.
func (g *Gateway) GetPayment(paymentID string) (*types.Payment, error) {
	return g.ledger.Get(paymentID)
}

// VerifyPayment checks a submitted transaction hash against the payment
// and advances its status.
func (g *Gateway) VerifyPayment(ctx context.Context, req types.VerifyRequest) (*types.Payment, error) {
	if err := g.validate.Struct(req); err != nil {
		return nil, types.WrapError(types.ErrInvalidRequest, "invalid verify request", err)
	}
	return g.verifier.Verify(ctx, req.PaymentID, req.TxHash)
}

// ListPayments returns a filtered page of payments, newest first.
func (g *Gateway) ListPayments(f types.ListFilter) *types.Page {
	return g.ledger.List(f)
}

// ConfirmPayment applies an out-of-band confirmation-count update.
func (g *Gateway) ConfirmPayment(w types.ConfirmationWebhook) (*types.Payment, error) {
	if err := g.validate.Struct(w); err != nil {
		return nil, types.WrapError(types.ErrInvalidRequest, "invalid confirmation payload", err)
	}
	return g.verifier.ConfirmPayment(w.PaymentID, w.TxHash, w.Confirmations)
}

// HandleTransferNotification tries to attribute an observed inbound
// transfer to a pending payment and verify it. A nil payment with nil
// error means nothing matched.
func (g *Gateway) HandleTransferNotification(ctx context.Context, n types.TransferNotification) (*types.Payment, error) {
	if err := g.validate.Struct(n); err != nil {
		return nil, types.WrapError(types.ErrInvalidRequest, "invalid transfer notification", err)
	}
	return g.verifier.MatchTransfer(ctx, n)
}

// Networks returns the configuration of every supported network.
func (g *Gateway) Networks() []types.NetworkConfig {
	keys := g.registry.SupportedNetworks()
	out := make([]types.NetworkConfig, 0, len(keys))
	for _, key := range keys {
		cfg, err := g.registry.Config(key)
		if err != nil {
			continue
		}
		out = append(out, cfg)
	}
	return out
}

// NetworkInfo returns one network's configuration.
func (g *Gateway) NetworkInfo(networkKey string) (types.NetworkConfig, error) {
	return g.registry.Config(networkKey)
}

// SupportedTokens returns the token symbols available on a network.
func (g *Gateway) SupportedTokens(networkKey string) ([]string, error) {
	return g.registry.SupportedTokens(networkKey)
}

// Balances fetches the configured wallet's native and token balances on
// one network. Token balance failures are recorded per token rather than
// failing the whole call.
func (g *Gateway) Balances(ctx context.Context, networkKey string) (*types.NetworkBalances, error) {
	netCfg, err := g.registry.Config(networkKey)
	if err != nil {
		return nil, err
	}
	client, err := g.verifier.Client(networkKey)
	if err != nil {
		return nil, err
	}

	out := &types.NetworkBalances{
		Network: netCfg.Key,
		ChainID: netCfg.ChainID,
		Tokens:  make(map[string]types.TokenBalance, len(netCfg.Tokens)),
	}

	native, err := client.NativeBalance(ctx, g.cfg.WalletAddress)
	if err != nil {
		return nil, err
	}
	out.Native = &types.NativeBalance{
		Amount:  decimal.NewFromBigInt(native, -18),
		Symbol:  netCfg.Symbol,
		Network: netCfg.Key,
	}

	for symbol, tok := range netCfg.Tokens {
		raw, err := client.TokenBalance(ctx, tok.Address, g.cfg.WalletAddress)
		if err != nil {
			g.log.Warn("token balance fetch failed", map[string]any{
				"network": networkKey,
				"token":   symbol,
				"error":   err.Error(),
			})
			continue
		}
		out.Tokens[symbol] = types.TokenBalance{
			Amount:          decimal.NewFromBigInt(raw, -tok.Decimals),
			Symbol:          tok.Symbol,
			Name:            tok.Name,
			ContractAddress: tok.Address,
			Decimals:        tok.Decimals,
		}
	}

	return out, nil
}

// AllBalances fetches balances across every network with an attached
// client. Networks that fail are omitted.
func (g *Gateway) AllBalances(ctx context.Context) map[string]*types.NetworkBalances {
	out := make(map[string]*types.NetworkBalances)
	for _, networkKey := range g.registry.SupportedNetworks() {
		if !g.verifier.IsNetworkSupported(networkKey) {
			continue
		}
		balances, err := g.Balances(ctx, networkKey)
		if err != nil {
			g.log.Warn("balance fetch failed", map[string]any{
				"network": networkKey,
				"error":   err.Error(),
			})
			continue
		}
		out[networkKey] = balances
	}
	return out
}

// Config returns the gateway configuration.
func (g *Gateway) Config() types.Config { return g.cfg }

// IsNetworkSupported reports whether a chain client is attached for the
// network.
func (g *Gateway) IsNetworkSupported(networkKey string) bool {
	return g.verifier.IsNetworkSupported(networkKey)
}

// Close releases chain clients and stops background work.
func (g *Gateway) Close() {
	g.verifier.Close()
	g.amounts.Stop()
}

// Version information.
const Version = "1.0.0"

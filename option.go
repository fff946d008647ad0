package stablepay

import (
	"github.com/benbjohnson/clock"

	"github.com/stablepay/stablepay/clients"
	"github.com/stablepay/stablepay/logger"
	"github.com/stablepay/stablepay/metrics"
)

// Option customizes a Gateway at construction time.
type Option func(*Gateway)

// WithLogger replaces the default logger.
func WithLogger(log logger.Logger) Option {
	return func(g *Gateway) {
		if log != nil {
			g.log = log
		}
	}
}

// WithMetrics replaces the default metrics recorder.
func WithMetrics(rec metrics.Recorder) Option {
	return func(g *Gateway) {
		if rec != nil {
			g.metrics = rec
		}
	}
}

// WithClock replaces the wall clock. Tests pass a mock clock to drive
// expiry and reservation sweeps deterministically.
func WithClock(clk clock.Clock) Option {
	return func(g *Gateway) {
		if clk != nil {
			g.clk = clk
		}
	}
}

// WithChainClient pre-attaches a chain client for a network instead of
// dialing the registry's RPC endpoint. Tests inject fakes this way.
func WithChainClient(networkKey string, client clients.ChainClient) Option {
	return func(g *Gateway) {
		g.injected[networkKey] = client
	}
}

// Package verification matches observed on-chain transactions to payment
// records: it validates the transfer calldata against the expected
// contract, recipient and exact raw amount, counts confirmation depth and
// drives the payment status machine. It is the only path that advances a
// payment past pending.
package verification

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/stablepay/stablepay/clients"
	"github.com/stablepay/stablepay/ledger"
	"github.com/stablepay/stablepay/logger"
	"github.com/stablepay/stablepay/metrics"
	"github.com/stablepay/stablepay/registry"
	"github.com/stablepay/stablepay/types"
	"github.com/stablepay/stablepay/utils"
)

// Options configures a Verifier.
type Options struct {
	WalletAddress string
	Timeout       time.Duration
	Logger        logger.Logger
	Metrics       metrics.Recorder
}

// Verifier verifies payments across the configured networks.
type Verifier struct {
	clients map[string]clients.ChainClient

	registry *registry.Registry
	ledger   *ledger.Ledger

	walletAddress string
	timeout       time.Duration
	log           logger.Logger
	metrics       metrics.Recorder
}

// NewVerifier builds a verifier; chain clients are attached per network
// with AddClient.
func NewVerifier(reg *registry.Registry, led *ledger.Ledger, opts Options) *Verifier {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	log := opts.Logger
	if log == nil {
		log = logger.NoopLogger{}
	}
	rec := opts.Metrics
	if rec == nil {
		rec = metrics.NoopRecorder{}
	}

	return &Verifier{
		clients:       make(map[string]clients.ChainClient),
		registry:      reg,
		ledger:        led,
		walletAddress: opts.WalletAddress,
		timeout:       timeout,
		log:           log,
		metrics:       rec,
	}
}

// AddClient attaches a chain client for a registry-supported network.
func (v *Verifier) AddClient(networkKey string, client clients.ChainClient) error {
	if _, err := v.registry.Config(networkKey); err != nil {
		return err
	}
	v.clients[strings.ToLower(networkKey)] = client
	return nil
}

// IsNetworkSupported reports whether a client is attached for the network.
func (v *Verifier) IsNetworkSupported(networkKey string) bool {
	_, ok := v.clients[strings.ToLower(networkKey)]
	return ok
}

// Client returns the chain client for a network.
func (v *Verifier) Client(networkKey string) (clients.ChainClient, error) {
	client, ok := v.clients[strings.ToLower(networkKey)]
	if !ok {
		return nil, types.NewError(types.ErrUnsupportedNetwork,
			fmt.Sprintf("no client configured for network %q", networkKey))
	}
	return client, nil
}

// Close closes all attached clients.
func (v *Verifier) Close() {
	for _, client := range v.clients {
		client.Close()
	}
}

// Verify checks txHash against the payment and advances its status:
// pending_confirmation below the network's confirmation threshold,
// confirmed at or above it. Terminal payments are rejected with a
// conflict; a transaction that fails validation rejects without mutating
// the record. RPC failures surface to the caller, who is expected to
// re-invoke; no retry happens here.
func (v *Verifier) Verify(ctx context.Context, paymentID, txHash string) (*types.Payment, error) {
	start := time.Now()

	payment, err := v.ledger.Get(paymentID)
	if err != nil {
		return nil, err
	}
	if payment.Status.Terminal() {
		return nil, types.NewError(types.ErrAlreadyProcessed, "payment already processed")
	}

	client, err := v.Client(payment.NetworkKey)
	if err != nil {
		return nil, err
	}

	verifyCtx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	tx, err := client.Transaction(verifyCtx, txHash)
	if err != nil {
		v.metrics.IncCounter("verify_failed", map[string]string{"network": payment.NetworkKey})
		return nil, err
	}

	receipt, err := client.Receipt(verifyCtx, txHash)
	if err != nil {
		v.metrics.IncCounter("verify_failed", map[string]string{"network": payment.NetworkKey})
		return nil, err
	}
	if receipt.Status == 0 {
		v.metrics.IncCounter("verify_failed", map[string]string{"network": payment.NetworkKey})
		return nil, types.NewError(types.ErrTxReverted, "transaction failed")
	}

	if !v.validateTransaction(tx, payment) {
		v.metrics.IncCounter("verify_failed", map[string]string{"network": payment.NetworkKey})
		return nil, types.NewError(types.ErrInvalidTransaction, "invalid transaction")
	}

	confirmations, err := v.confirmationDepth(verifyCtx, client, receipt)
	if err != nil {
		v.metrics.IncCounter("verify_failed", map[string]string{"network": payment.NetworkKey})
		return nil, err
	}

	netCfg, err := v.registry.Config(payment.NetworkKey)
	if err != nil {
		return nil, err
	}
	reached := confirmations >= netCfg.MinConfirmations

	updated, err := v.ledger.ApplyVerification(paymentID, txHash, confirmations, reached)
	if err != nil {
		return nil, err
	}

	v.metrics.ObserveLatency("verify", time.Since(start), map[string]string{"network": payment.NetworkKey})
	v.log.Info("payment verified", map[string]any{
		"paymentId":     paymentID,
		"txHash":        txHash,
		"confirmations": confirmations,
		"status":        updated.Status.String(),
	})

	return updated, nil
}

// validateTransaction checks that the transaction is a transfer of the
// exact expected raw amount to the configured wallet through the expected
// token contract. Amount equality has zero tolerance.
func (v *Verifier) validateTransaction(tx *clients.TxInfo, payment *types.Payment) bool {
	if tx.To == nil || !strings.EqualFold(tx.To.Hex(), payment.ContractAddress) {
		return false
	}
	if !clients.IsTransferCall(tx.Input) {
		return false
	}

	recipient, rawAmount, err := clients.DecodeTransfer(tx.Input)
	if err != nil {
		return false
	}
	if !strings.EqualFold(recipient.Hex(), v.walletAddress) {
		return false
	}

	expected, err := utils.ScaleToRaw(payment.Amount, payment.Decimals)
	if err != nil {
		return false
	}
	return rawAmount.Cmp(expected) == 0
}

// confirmationDepth is current head minus the transaction's block plus
// one, or zero if the transaction is not yet mined.
func (v *Verifier) confirmationDepth(ctx context.Context, client clients.ChainClient, receipt *clients.ReceiptInfo) (int64, error) {
	if receipt.BlockNumber == nil {
		return 0, nil
	}

	head, err := client.BlockNumber(ctx)
	if err != nil {
		return 0, err
	}

	depth := int64(head) - receipt.BlockNumber.Int64() + 1
	if depth < 0 {
		depth = 0
	}
	return depth, nil
}

// ConfirmPayment applies an out-of-band confirmation count (the
// payment-confirmed webhook) against the network's threshold.
func (v *Verifier) ConfirmPayment(paymentID, txHash string, confirmations int64) (*types.Payment, error) {
	payment, err := v.ledger.Get(paymentID)
	if err != nil {
		return nil, err
	}

	netCfg, err := v.registry.Config(payment.NetworkKey)
	if err != nil {
		return nil, err
	}

	reached := confirmations >= netCfg.MinConfirmations

	// Attribution can arrive with the webhook before any verify call; in
	// that case record the hash too, not just the count.
	var updated *types.Payment
	if txHash != "" && payment.TxHash == "" && !payment.Status.Terminal() {
		updated, err = v.ledger.ApplyVerification(paymentID, txHash, confirmations, reached)
	} else {
		updated, err = v.ledger.ApplyConfirmation(paymentID, confirmations, reached)
	}
	if err != nil {
		return nil, err
	}

	v.log.Info("confirmation update applied", map[string]any{
		"paymentId":     paymentID,
		"confirmations": confirmations,
		"status":        updated.Status.String(),
	})
	return updated, nil
}

// MatchTransfer attempts to attribute an inbound transfer notification to
// a pending payment by exact amount. The scan covers the hinted network if
// present, otherwise every supported network and token. A notification
// that matches nothing is not an error: it may be unrelated traffic.
//
// Matching is by numeric amount only, as scoped by the notification's
// network hint; the subsequent verification still re-checks contract,
// recipient and raw amount, so a cross-scope amount collision cannot
// confirm the wrong payment.
func (v *Verifier) MatchTransfer(ctx context.Context, n types.TransferNotification) (*types.Payment, error) {
	if !strings.EqualFold(n.ToAddress, v.walletAddress) {
		return nil, nil
	}

	networks := v.registry.SupportedNetworks()
	if n.Network != "" {
		networks = []string{strings.ToLower(n.Network)}
	}

	for _, networkKey := range networks {
		tokens, err := v.registry.SupportedTokens(networkKey)
		if err != nil {
			continue
		}
		for _, token := range tokens {
			payment, err := v.ledger.FindByScopedAmount(networkKey, token, n.Amount)
			if err != nil {
				continue
			}

			updated, err := v.Verify(ctx, payment.ID, n.TxHash)
			if err != nil {
				v.log.Warn("auto-verification failed", map[string]any{
					"paymentId": payment.ID,
					"txHash":    n.TxHash,
					"error":     err.Error(),
				})
				return nil, err
			}

			v.metrics.IncCounter("webhook_matched", map[string]string{"network": networkKey})
			v.log.Info("auto-verified payment", map[string]any{
				"paymentId": updated.ID,
				"network":   networkKey,
				"token":     token,
			})
			return updated, nil
		}
	}

	v.log.Info("no matching pending payment", map[string]any{
		"amount": n.Amount.String(),
		"txHash": n.TxHash,
	})
	return nil, nil
}

// MatchAmount is a read-only scoped lookup used by callers that only need
// attribution without triggering verification.
func (v *Verifier) MatchAmount(networkKey, token string, amount decimal.Decimal) (*types.Payment, error) {
	return v.ledger.FindByScopedAmount(networkKey, token, amount)
}

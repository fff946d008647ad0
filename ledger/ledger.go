// Package ledger is the authoritative in-memory store of payment records.
// All mutation goes through its operations; records never leave except as
// copies, and per-record transitions are linearized under one lock so a
// verify racing an expiry cannot produce a lost update.
package ledger

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/stablepay/stablepay/amounts"
	"github.com/stablepay/stablepay/logger"
	"github.com/stablepay/stablepay/metrics"
	"github.com/stablepay/stablepay/registry"
	"github.com/stablepay/stablepay/types"
	"github.com/stablepay/stablepay/utils"
)

// DefaultPaymentTimeout is how long a payment stays payable before expiry.
const DefaultPaymentTimeout = 30 * time.Minute

// Options configures a Ledger.
type Options struct {
	WalletAddress  string
	PaymentTimeout time.Duration
	Logger         logger.Logger
	Metrics        metrics.Recorder
}

// Ledger owns the payment map. Records are stored in creation order so
// scans are deterministic.
type Ledger struct {
	mu       sync.RWMutex
	payments map[string]*types.Payment
	order    []string

	registry *registry.Registry
	amounts  *amounts.Disambiguator
	clk      clock.Clock

	walletAddress string
	timeout       time.Duration
	log           logger.Logger
	metrics       metrics.Recorder
}

// New builds a ledger backed by the given registry and disambiguator.
func New(reg *registry.Registry, dis *amounts.Disambiguator, clk clock.Clock, opts Options) *Ledger {
	timeout := opts.PaymentTimeout
	if timeout <= 0 {
		timeout = DefaultPaymentTimeout
	}
	log := opts.Logger
	if log == nil {
		log = logger.NoopLogger{}
	}
	rec := opts.Metrics
	if rec == nil {
		rec = metrics.NoopRecorder{}
	}

	return &Ledger{
		payments:      make(map[string]*types.Payment),
		registry:      reg,
		amounts:       dis,
		clk:           clk,
		walletAddress: opts.WalletAddress,
		timeout:       timeout,
		log:           log,
		metrics:       rec,
	}
}

// Create allocates a payment in status pending with a disambiguated amount
// unique among pending payments in the (network, token) scope, and
// schedules its expiry. Network and token configuration are snapshotted
// from the registry and never recomputed.
func (l *Ledger) Create(req types.CreateRequest) (*types.Payment, error) {
	if !req.Amount.IsPositive() {
		return nil, types.NewError(types.ErrInvalidRequest, "amount must be positive")
	}

	networkKey := strings.ToLower(req.Network)
	if networkKey == "" {
		networkKey = "ethereum"
	}
	token := strings.ToLower(req.Token)
	if token == "" {
		token = "usdt"
	}

	netCfg, err := l.registry.Config(networkKey)
	if err != nil {
		return nil, err
	}
	tokCfg, err := l.registry.TokenConfig(networkKey, token)
	if err != nil {
		return nil, err
	}

	scope := amounts.ScopeKey(networkKey, token)
	unique := l.amounts.Reserve(req.Amount, scope)

	id := uuid.NewString()
	now := l.clk.Now()

	urls, err := utils.WalletURLs(unique, id, l.walletAddress, netCfg, tokCfg)
	if err != nil {
		l.amounts.Release(scope, unique)
		return nil, types.WrapError(types.ErrInvalidRequest, "building wallet links", err)
	}

	payment := &types.Payment{
		ID:              id,
		OriginalAmount:  req.Amount,
		Amount:          unique,
		OrderID:         req.OrderID,
		NetworkKey:      networkKey,
		Network:         netCfg.Name,
		ChainID:         netCfg.ChainID,
		Token:           tokCfg.Symbol,
		TokenName:       tokCfg.Name,
		ContractAddress: tokCfg.Address,
		WalletAddress:   l.walletAddress,
		Decimals:        tokCfg.Decimals,
		BlockExplorer:   netCfg.BlockExplorer,
		Status:          types.StatusPending,
		CreatedAt:       now,
		ExpiresAt:       now.Add(l.timeout),
		Metadata:        req.Metadata,
		WalletURLs:      urls,
		QRPayload:       utils.QRPayload(urls),
	}

	l.mu.Lock()
	l.payments[id] = payment
	l.order = append(l.order, id)
	l.mu.Unlock()

	// Fires once; a no-op if verification won the race.
	l.clk.AfterFunc(l.timeout, func() { l.MarkExpired(id) })

	l.metrics.IncCounter("payment_created", map[string]string{"network": networkKey})
	l.log.Info("payment created", map[string]any{
		"paymentId": id,
		"network":   networkKey,
		"token":     token,
		"amount":    unique.String(),
	})

	return payment.Clone(), nil
}

// Get returns a copy of a payment.
func (l *Ledger) Get(id string) (*types.Payment, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	p, ok := l.payments[id]
	if !ok {
		return nil, types.NewError(types.ErrPaymentNotFound, "payment not found")
	}
	return p.Clone(), nil
}

// FindByScopedAmount scans pending payments in the (network, token) scope
// for an exact amount match, in creation order; first match wins.
func (l *Ledger) FindByScopedAmount(networkKey, token string, amount decimal.Decimal) (*types.Payment, error) {
	networkKey = strings.ToLower(networkKey)
	token = strings.ToLower(token)

	l.mu.RLock()
	defer l.mu.RUnlock()

	for _, id := range l.order {
		p := l.payments[id]
		if p.Status == types.StatusPending &&
			p.NetworkKey == networkKey &&
			strings.ToLower(p.Token) == token &&
			p.Amount.Equal(amount) {
			return p.Clone(), nil
		}
	}
	return nil, types.NewError(types.ErrPaymentNotFound,
		fmt.Sprintf("no pending payment for %s %s on %s", amount, token, networkKey))
}

// List returns a filtered page, newest-created-first.
func (l *Ledger) List(f types.ListFilter) *types.Page {
	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}
	offset := f.Offset
	if offset < 0 {
		offset = 0
	}

	l.mu.RLock()
	matched := make([]*types.Payment, 0, len(l.order))
	// Walk newest-first; order is append-only so reverse iteration sorts
	// by creation time descending.
	for i := len(l.order) - 1; i >= 0; i-- {
		p := l.payments[l.order[i]]
		if f.Status != "" && p.Status != f.Status {
			continue
		}
		if f.Network != "" && p.NetworkKey != strings.ToLower(f.Network) {
			continue
		}
		if f.Token != "" && !strings.EqualFold(p.Token, f.Token) {
			continue
		}
		matched = append(matched, p)
	}
	l.mu.RUnlock()

	total := len(matched)
	end := offset + limit
	if offset > total {
		offset = total
	}
	if end > total {
		end = total
	}

	page := make([]*types.Payment, 0, end-offset)
	for _, p := range matched[offset:end] {
		page = append(page, p.Clone())
	}

	return &types.Page{
		Payments: page,
		Total:    total,
		Limit:    limit,
		Offset:   f.Offset,
		HasMore:  f.Offset+limit < total,
	}
}

// MarkExpired transitions a still-pending payment to expired and frees its
// amount reservation. Any other state makes this a no-op: the racing
// verification won.
func (l *Ledger) MarkExpired(id string) {
	l.mu.Lock()
	p, ok := l.payments[id]
	if !ok || p.Status != types.StatusPending {
		l.mu.Unlock()
		return
	}
	p.Status = types.StatusExpired
	scope := amounts.ScopeKey(p.NetworkKey, strings.ToLower(p.Token))
	amount := p.Amount
	networkKey := p.NetworkKey
	l.mu.Unlock()

	l.amounts.Release(scope, amount)
	l.metrics.IncCounter("payment_expired", map[string]string{"network": networkKey})
	l.log.Info("payment expired", map[string]any{"paymentId": id})
}

// ApplyVerification records the outcome of a successful transaction
// validation. Preconditions: the payment exists and is pending or
// pending_confirmation; anything else is a conflict. Confirmations never
// decrease, VerifiedAt is set on first verification only, and the amount
// reservation is released the moment the payment leaves pending.
func (l *Ledger) ApplyVerification(id, txHash string, confirmations int64, reachedThreshold bool) (*types.Payment, error) {
	l.mu.Lock()

	p, ok := l.payments[id]
	if !ok {
		l.mu.Unlock()
		return nil, types.NewError(types.ErrPaymentNotFound, "payment not found")
	}
	if p.Status != types.StatusPending && p.Status != types.StatusPendingConfirmation {
		l.mu.Unlock()
		return nil, types.NewError(types.ErrAlreadyProcessed, "payment already processed")
	}

	wasPending := p.Status == types.StatusPending
	now := l.clk.Now()

	p.TxHash = txHash
	if confirmations > p.Confirmations {
		p.Confirmations = confirmations
	}
	if p.VerifiedAt == nil {
		p.VerifiedAt = &now
	}
	if reachedThreshold {
		p.Status = types.StatusConfirmed
		p.ConfirmedAt = &now
	} else {
		p.Status = types.StatusPendingConfirmation
	}

	scope := amounts.ScopeKey(p.NetworkKey, strings.ToLower(p.Token))
	amount := p.Amount
	networkKey := p.NetworkKey
	confirmed := p.Status == types.StatusConfirmed
	result := p.Clone()
	l.mu.Unlock()

	if wasPending {
		l.amounts.Release(scope, amount)
	}
	if confirmed {
		l.metrics.IncCounter("payment_confirmed", map[string]string{"network": networkKey})
	}

	return result, nil
}

// ApplyConfirmation records a confirmation-count update delivered out of
// band (the payment-confirmed webhook). It only promotes; a count below
// the threshold leaves the status untouched.
func (l *Ledger) ApplyConfirmation(id string, confirmations int64, reachedThreshold bool) (*types.Payment, error) {
	l.mu.Lock()

	p, ok := l.payments[id]
	if !ok {
		l.mu.Unlock()
		return nil, types.NewError(types.ErrPaymentNotFound, "payment not found")
	}
	if p.Status.Terminal() {
		l.mu.Unlock()
		return nil, types.NewError(types.ErrAlreadyProcessed, "payment already processed")
	}

	wasPending := p.Status == types.StatusPending
	if confirmations > p.Confirmations {
		p.Confirmations = confirmations
	}

	promoted := false
	if reachedThreshold {
		now := l.clk.Now()
		p.Status = types.StatusConfirmed
		p.ConfirmedAt = &now
		promoted = true
	}

	scope := amounts.ScopeKey(p.NetworkKey, strings.ToLower(p.Token))
	amount := p.Amount
	networkKey := p.NetworkKey
	result := p.Clone()
	l.mu.Unlock()

	if promoted && wasPending {
		l.amounts.Release(scope, amount)
	}
	if promoted {
		l.metrics.IncCounter("payment_confirmed", map[string]string{"network": networkKey})
	}

	return result, nil
}

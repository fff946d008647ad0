// Package amounts perturbs requested payment amounts so each pending
// invoice in a (network, token) scope asks for a value no other pending
// invoice does. The perturbed amount is what ties an anonymous on-chain
// transfer back to one payment, so uniqueness is enforced at reservation
// time and reservations are released when a payment leaves pending or
// after a fixed TTL, whichever comes first.
package amounts

import (
	"math/rand"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/shopspring/decimal"
)

const (
	// DefaultTTL bounds how long an unreleased reservation can linger.
	DefaultTTL = 24 * time.Hour

	// precision is the display precision amounts are rounded to, matching
	// the finest increment either supported stablecoin can represent.
	precision = 6

	maxAttempts   = 50
	sweepInterval = 10 * time.Minute
)

// ScopeKey builds the uniqueness scope for a (network, token) pair.
func ScopeKey(networkKey, token string) string {
	return networkKey + "-" + token
}

// Disambiguator issues unique perturbed amounts per scope.
type Disambiguator struct {
	mu       sync.Mutex
	reserved map[string]map[string]time.Time
	rng      *rand.Rand
	clk      clock.Clock
	ttl      time.Duration
	stop     chan struct{}
	stopOnce sync.Once
}

// New builds a disambiguator and starts its TTL sweep.
func New(clk clock.Clock, ttl time.Duration) *Disambiguator {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	d := &Disambiguator{
		reserved: make(map[string]map[string]time.Time),
		rng:      rand.New(rand.NewSource(clk.Now().UnixNano())),
		clk:      clk,
		ttl:      ttl,
		stop:     make(chan struct{}),
	}
	// Register the ticker before returning so callers (and tests using a
	// mock clock) observe the sweep schedule as soon as New returns.
	ticker := clk.Ticker(sweepInterval)
	go d.sweepLoop(ticker)
	return d
}

// Reserve returns base plus a fractional increment (0.01 to 0.99, rounded
// to display precision) not currently reserved in scope, and registers it.
// After maxAttempts collisions it falls back to a deterministic increment
// derived from the current time so the call always terminates.
func (d *Disambiguator) Reserve(base decimal.Decimal, scope string) decimal.Decimal {
	d.mu.Lock()
	defer d.mu.Unlock()

	amounts := d.reserved[scope]
	if amounts == nil {
		amounts = make(map[string]time.Time)
		d.reserved[scope] = amounts
	}

	var amount decimal.Decimal
	for attempt := 0; ; attempt++ {
		if attempt >= maxAttempts {
			cents := d.clk.Now().UnixMilli() % 100
			amount = base.Add(decimal.New(cents, -2)).Round(precision)
			break
		}
		cents := int64(d.rng.Intn(99)) + 1
		amount = base.Add(decimal.New(cents, -2)).Round(precision)
		if _, taken := amounts[amount.String()]; !taken {
			break
		}
	}

	amounts[amount.String()] = d.clk.Now()
	return amount
}

// Release frees a reservation. Releasing an unknown amount is a no-op.
func (d *Disambiguator) Release(scope string, amount decimal.Decimal) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if amounts, ok := d.reserved[scope]; ok {
		delete(amounts, amount.String())
		if len(amounts) == 0 {
			delete(d.reserved, scope)
		}
	}
}

// Reserved reports whether an amount is currently reserved in scope.
func (d *Disambiguator) Reserved(scope string, amount decimal.Decimal) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	amounts, ok := d.reserved[scope]
	if !ok {
		return false
	}
	_, taken := amounts[amount.String()]
	return taken
}

// Stop ends the background sweep.
func (d *Disambiguator) Stop() {
	d.stopOnce.Do(func() { close(d.stop) })
}

func (d *Disambiguator) sweepLoop(ticker *clock.Ticker) {
	defer ticker.Stop()

	for {
		select {
		case <-d.stop:
			return
		case <-ticker.C:
			d.sweep()
		}
	}
}

// sweep releases reservations older than the TTL regardless of payment
// status, so abandoned reservations cannot accumulate.
func (d *Disambiguator) sweep() {
	cutoff := d.clk.Now().Add(-d.ttl)

	d.mu.Lock()
	defer d.mu.Unlock()

	for scope, amounts := range d.reserved {
		for amt, reservedAt := range amounts {
			if reservedAt.Before(cutoff) {
				delete(amounts, amt)
			}
		}
		if len(amounts) == 0 {
			delete(d.reserved, scope)
		}
	}
}

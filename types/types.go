// Package types defines the shared data model of the payment gateway:
// payment records, status lifecycle, network and token configuration, and
// the typed error taxonomy used across all packages.
package types

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// Status is the lifecycle state of a payment. Transitions are one-way:
// pending -> pending_confirmation -> confirmed, or pending -> expired.
type Status string

const (
	StatusPending             Status = "pending"
	StatusPendingConfirmation Status = "pending_confirmation"
	StatusConfirmed           Status = "confirmed"
	StatusExpired             Status = "expired"
)

// Terminal reports whether no further transition is permitted.
func (s Status) Terminal() bool {
	return s == StatusConfirmed || s == StatusExpired
}

func (s Status) String() string { return string(s) }

// WalletURLs holds deep links a payer can open to prefill the transfer.
type WalletURLs struct {
	MetaMask       string        `json:"metamask"`
	TrustWallet    string        `json:"trustWallet"`
	CoinbaseWallet string        `json:"coinbaseWallet"`
	Direct         DirectPayment `json:"direct"`
}

// DirectPayment is the raw transfer description for wallets without a
// deep-link scheme.
type DirectPayment struct {
	Network         string `json:"network"`
	ChainID         int64  `json:"chainId"`
	ContractAddress string `json:"contractAddress"`
	ToAddress       string `json:"toAddress"`
	Amount          string `json:"amount"`
	TokenAmount     string `json:"tokenAmount"`
	Decimals        int32  `json:"decimals"`
	Symbol          string `json:"symbol"`
}

// Payment is one invoice. ContractAddress, Decimals and ChainID are fixed
// at creation from the registry snapshot and never recomputed.
type Payment struct {
	ID             string          `json:"paymentId"`
	OriginalAmount decimal.Decimal `json:"originalAmount"`
	// Amount is the disambiguated amount: the value the payer must
	// transfer, unique among pending payments in the same
	// (network, token) scope at creation time.
	Amount          decimal.Decimal `json:"amount"`
	OrderID         string          `json:"orderId"`
	NetworkKey      string          `json:"networkKey"`
	Network         string          `json:"network"`
	ChainID         int64           `json:"chainId"`
	Token           string          `json:"token"`
	TokenName       string          `json:"tokenName"`
	ContractAddress string          `json:"contractAddress"`
	WalletAddress   string          `json:"walletAddress"`
	Decimals        int32           `json:"decimals"`
	BlockExplorer   string          `json:"blockExplorer"`
	Status          Status          `json:"status"`
	CreatedAt       time.Time       `json:"createdAt"`
	ExpiresAt       time.Time       `json:"expiresAt"`
	TxHash          string          `json:"txHash,omitempty"`
	Confirmations   int64           `json:"confirmations"`
	VerifiedAt      *time.Time      `json:"verifiedAt,omitempty"`
	ConfirmedAt     *time.Time      `json:"confirmedAt,omitempty"`
	Metadata        map[string]any  `json:"metadata,omitempty"`
	WalletURLs      *WalletURLs     `json:"walletUrls,omitempty"`
	QRPayload       string          `json:"qrPayload,omitempty"`
}

// Clone returns a copy safe for callers to inspect without racing ledger
// mutations.
func (p *Payment) Clone() *Payment {
	cp := *p
	if p.Metadata != nil {
		cp.Metadata = make(map[string]any, len(p.Metadata))
		for k, v := range p.Metadata {
			cp.Metadata[k] = v
		}
	}
	if p.WalletURLs != nil {
		urls := *p.WalletURLs
		cp.WalletURLs = &urls
	}
	return &cp
}

// NetworkConfig describes one supported chain.
type NetworkConfig struct {
	Key              string                 `json:"key"`
	Name             string                 `json:"name"`
	ChainID          int64                  `json:"chainId"`
	Symbol           string                 `json:"symbol"`
	RPCURL           string                 `json:"rpcUrl"`
	BlockExplorer    string                 `json:"blockExplorer"`
	MinConfirmations int64                  `json:"minConfirmations"`
	Tokens           map[string]TokenConfig `json:"tokens"`
}

// TokenConfig describes one ERC-20 token on a specific network.
type TokenConfig struct {
	Symbol   string `json:"symbol"`
	Name     string `json:"name"`
	Address  string `json:"address"`
	Decimals int32  `json:"decimals"`
}

// Error codes.
const (
	ErrInvalidRequest     = "INVALID_REQUEST"
	ErrUnsupportedNetwork = "UNSUPPORTED_NETWORK"
	ErrUnsupportedToken   = "UNSUPPORTED_TOKEN"
	ErrPaymentNotFound    = "PAYMENT_NOT_FOUND"
	ErrAlreadyProcessed   = "ALREADY_PROCESSED"
	ErrInvalidTransaction = "INVALID_TRANSACTION"
	ErrTxNotFound         = "TX_NOT_FOUND"
	ErrTxReverted         = "TX_REVERTED"
	ErrChainError         = "CHAIN_ERROR"
	ErrSignatureInvalid   = "SIGNATURE_INVALID"
)

// PayError is the typed error carried across package boundaries. Code is
// one of the Err* constants above.
type PayError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

func (e *PayError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *PayError) Unwrap() error { return e.Err }

// NewError builds a PayError with the given code and message.
func NewError(code, message string) *PayError {
	return &PayError{Code: code, Message: message}
}

// WrapError builds a PayError that wraps an underlying cause.
func WrapError(code, message string, err error) *PayError {
	return &PayError{Code: code, Message: message, Err: err}
}

// IsCode reports whether err is (or wraps) a PayError with the given code.
func IsCode(err error, code string) bool {
	var pe *PayError
	if errors.As(err, &pe) {
		return pe.Code == code
	}
	return false
}

// ErrorCode extracts the PayError code from err, or "" if err is not a
// PayError.
func ErrorCode(err error) string {
	var pe *PayError
	if errors.As(err, &pe) {
		return pe.Code
	}
	return ""
}

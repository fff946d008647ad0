package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// CreateRequest is the body of a payment-creation call. Network and Token
// default to ethereum/usdt when empty.
type CreateRequest struct {
	Amount   decimal.Decimal `json:"amount" validate:"required"`
	OrderID  string          `json:"orderId" validate:"required,alphanum,min=1,max=100"`
	Network  string          `json:"network" validate:"omitempty,lowercase"`
	Token    string          `json:"token" validate:"omitempty,lowercase"`
	Metadata map[string]any  `json:"metadata,omitempty"`
}

// VerifyRequest asks the gateway to check a submitted transaction hash
// against a payment.
type VerifyRequest struct {
	PaymentID string `json:"paymentId" validate:"required,uuid4"`
	TxHash    string `json:"txHash" validate:"required,len=66,startswith=0x"`
}

// ListFilter selects payments for the privileged list endpoint.
type ListFilter struct {
	Status  Status
	Network string
	Token   string
	Limit   int
	Offset  int
}

// Page is one page of list results, newest-created-first.
type Page struct {
	Payments []*Payment `json:"payments"`
	Total    int        `json:"total"`
	Limit    int        `json:"limit"`
	Offset   int        `json:"offset"`
	HasMore  bool       `json:"hasMore"`
}

// ConfirmationWebhook is the payment-confirmed notification body.
type ConfirmationWebhook struct {
	PaymentID     string `json:"paymentId" validate:"required,uuid4"`
	TxHash        string `json:"txHash" validate:"required,len=66,startswith=0x"`
	Confirmations int64  `json:"confirmations" validate:"min=0"`
}

// TransferNotification is the transaction-notification body: an observed
// inbound transfer that may correspond to a pending payment. Token is the
// contract address of the transferred asset; Network is an optional hint.
type TransferNotification struct {
	TxHash    string          `json:"txHash" validate:"required,len=66,startswith=0x"`
	ToAddress string          `json:"toAddress" validate:"required,len=42,startswith=0x"`
	Amount    decimal.Decimal `json:"amount" validate:"required"`
	Token     string          `json:"token" validate:"required,len=42,startswith=0x"`
	Network   string          `json:"network,omitempty"`
	ChainID   int64           `json:"chainId,omitempty"`
}

// TokenBalance is one token's wallet balance on one network.
type TokenBalance struct {
	Amount          decimal.Decimal `json:"amount"`
	Symbol          string          `json:"symbol"`
	Name            string          `json:"name"`
	ContractAddress string          `json:"contractAddress"`
	Decimals        int32           `json:"decimals"`
}

// NativeBalance is the native-asset wallet balance on one network.
type NativeBalance struct {
	Amount  decimal.Decimal `json:"amount"`
	Symbol  string          `json:"symbol"`
	Network string          `json:"network"`
}

// NetworkBalances aggregates native and token balances for one network.
type NetworkBalances struct {
	Network string                  `json:"network"`
	ChainID int64                   `json:"chainId"`
	Native  *NativeBalance          `json:"native,omitempty"`
	Tokens  map[string]TokenBalance `json:"tokens"`
}

// Config is the gateway-wide configuration, validated once at startup.
type Config struct {
	WalletAddress  string            `mapstructure:"wallet_address" validate:"required,len=42,startswith=0x"`
	Testnet        bool              `mapstructure:"testnet"`
	PaymentTimeout time.Duration     `mapstructure:"payment_timeout" validate:"required"`
	WebhookSecret  string            `mapstructure:"webhook_secret" validate:"required"`
	APIKey         string            `mapstructure:"api_key"`
	RPCOverrides   map[string]string `mapstructure:"rpc_overrides"`
	ListenAddr     string            `mapstructure:"listen_addr"`
	LogLevel       string            `mapstructure:"log_level"`
	EnableMetrics  bool              `mapstructure:"enable_metrics"`
}

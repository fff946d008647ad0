package utils

import (
	"math/big"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateAmount(t *testing.T) {
	tests := []struct {
		name    string
		amount  string
		wantErr bool
	}{
		{"valid integer", "10", false},
		{"valid decimal", "10.37", false},
		{"valid small", "0.000001", false},
		{"empty", "", true},
		{"zero", "0", true},
		{"negative", "-5", true},
		{"not a number", "ten", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ValidateAmount(tt.amount)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateTxHash(t *testing.T) {
	tests := []struct {
		name    string
		hash    string
		wantErr bool
	}{
		{"valid", "0x1234567890abcdef1234567890abcdef1234567890abcdef1234567890abcdef", false},
		{"uppercase hex", "0x1234567890ABCDEF1234567890ABCDEF1234567890ABCDEF1234567890ABCDEF", false},
		{"missing prefix", "1234567890abcdef1234567890abcdef1234567890abcdef1234567890abcdef", true},
		{"too short", "0x1234", true},
		{"non-hex", "0xzz34567890abcdef1234567890abcdef1234567890abcdef1234567890abcdef", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateTxHash(tt.hash)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateAddress(t *testing.T) {
	assert.NoError(t, ValidateAddress("0x742d35Cc6634C0532925a3b844Bc454e4438f44e"))
	assert.Error(t, ValidateAddress("742d35Cc6634C0532925a3b844Bc454e4438f44e"))
	assert.Error(t, ValidateAddress("0x742d"))
	assert.Error(t, ValidateAddress("0xzz2d35Cc6634C0532925a3b844Bc454e4438f44e"))
}

func TestScaleToRaw(t *testing.T) {
	raw, err := ScaleToRaw(decimal.RequireFromString("10.37"), 6)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(10370000), raw)

	raw, err = ScaleToRaw(decimal.RequireFromString("10.37"), 18)
	require.NoError(t, err)
	expected, _ := new(big.Int).SetString("10370000000000000000", 10)
	assert.Equal(t, expected, raw)

	raw, err = ScaleToRaw(decimal.RequireFromString("0.000001"), 6)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(1), raw)
}

func TestScaleToRawRejectsExcessPrecision(t *testing.T) {
	_, err := ScaleToRaw(decimal.RequireFromString("10.1234567"), 6)
	assert.Error(t, err)
}

func TestFormatRawRoundtrip(t *testing.T) {
	amount := decimal.RequireFromString("42.55")

	raw, err := ScaleToRaw(amount, 6)
	require.NoError(t, err)
	assert.True(t, amount.Equal(FormatRaw(raw, 6)))
}

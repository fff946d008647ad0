// Package utils holds small shared helpers: input validation, exact
// decimal/raw-unit conversion and wallet deep-link construction.
package utils

import (
	"fmt"
	"math/big"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var hexRe = regexp.MustCompile("^[0-9a-fA-F]+$")

// ValidateAmount checks that an amount string is a valid positive decimal.
func ValidateAmount(amount string) (decimal.Decimal, error) {
	if amount == "" {
		return decimal.Decimal{}, fmt.Errorf("amount cannot be empty")
	}

	dec, err := decimal.NewFromString(amount)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("invalid amount format: %w", err)
	}
	if !dec.IsPositive() {
		return decimal.Decimal{}, fmt.Errorf("amount must be positive")
	}

	return dec, nil
}

// ValidateTxHash checks the 0x-prefixed 64-hex-char transaction hash form.
func ValidateTxHash(hash string) error {
	if !strings.HasPrefix(hash, "0x") {
		return fmt.Errorf("transaction hash must start with 0x")
	}
	if len(hash) != 66 {
		return fmt.Errorf("transaction hash must be 66 characters long")
	}
	if !hexRe.MatchString(hash[2:]) {
		return fmt.Errorf("transaction hash must be valid hex")
	}
	return nil
}

// ValidateAddress checks the 0x-prefixed 40-hex-char address form.
func ValidateAddress(address string) error {
	if !strings.HasPrefix(address, "0x") {
		return fmt.Errorf("address must start with 0x")
	}
	if len(address) != 42 {
		return fmt.Errorf("address must be 42 characters long")
	}
	if !hexRe.MatchString(address[2:]) {
		return fmt.Errorf("address must be valid hex")
	}
	return nil
}

// ScaleToRaw converts a human-denominated amount to the token's smallest
// unit. The conversion is exact; amounts finer than the token's decimals
// are rejected rather than rounded.
func ScaleToRaw(amount decimal.Decimal, decimals int32) (*big.Int, error) {
	scaled := amount.Shift(decimals)
	if scaled.Exponent() < 0 && !scaled.Equal(scaled.Truncate(0)) {
		return nil, fmt.Errorf("amount %s has more than %d decimal places", amount, decimals)
	}
	return scaled.BigInt(), nil
}

// FormatRaw converts a raw integer token amount back to its
// human-denominated decimal.
func FormatRaw(raw *big.Int, decimals int32) decimal.Decimal {
	return decimal.NewFromBigInt(raw, -decimals)
}

package asset

import (
	"fmt"
	"math/big"
	"time"

	"github.com/shopspring/decimal"
)

// PricePrecision is the internal precision for price calculations.
const PricePrecision = 18

var pricePrecisionMultiplier = new(big.Int).Exp(big.NewInt(10), big.NewInt(PricePrecision), nil)

// Price is an exchange rate between two assets, stored as a fixed-point
// integer with PricePrecision decimals. Upstream quotes carry USD reference
// prices that are turned into Prices against USD to value both legs.
type Price struct {
	rate      *big.Int
	base      *Asset
	quote     *Asset
	timestamp time.Time
}

// NewPrice creates a new price from a decimal rate.
// For ETH/USD at 2000.50, rate=2000.50, base=ETH, quote=USD.
func NewPrice(base, quote *Asset, rate decimal.Decimal, timestamp time.Time) Price {
	if base == nil || quote == nil {
		panic("asset: nil base or quote in price")
	}
	if rate.IsNegative() {
		panic("asset: negative price rate")
	}

	return Price{
		rate:      rate.Shift(PricePrecision).BigInt(),
		base:      base,
		quote:     quote,
		timestamp: timestamp,
	}
}

// ParsePrice parses a decimal rate string such as "3012.55".
func ParsePrice(base, quote *Asset, rate string, timestamp time.Time) (Price, error) {
	d, err := decimal.NewFromString(rate)
	if err != nil {
		return Price{}, fmt.Errorf("asset: invalid price %q: %w", rate, err)
	}
	if d.IsNegative() {
		return Price{}, fmt.Errorf("asset: negative price %q", rate)
	}
	return NewPrice(base, quote, d, timestamp), nil
}

// Rate returns the price rate as a decimal.
func (p Price) Rate() decimal.Decimal {
	if p.rate == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(p.rate, -PricePrecision)
}

// Pair returns the trading pair symbol (e.g., "ETH/USD").
func (p Price) Pair() string {
	if p.base == nil || p.quote == nil {
		return "???/???"
	}
	return fmt.Sprintf("%s/%s", p.base.Symbol(), p.quote.Symbol())
}

// IsZero returns true if the price is zero.
func (p Price) IsZero() bool {
	return p.rate == nil || p.rate.Sign() == 0
}

// Convert converts an amount of the base asset into the quote asset.
// quoteRaw = baseRaw * rate / 10^18 * 10^(quoteDecimals - baseDecimals)
func (p Price) Convert(amount Amount) (Amount, error) {
	if amount.Asset() == nil {
		return Amount{}, ErrNilAsset
	}
	if !amount.Asset().ID().Equals(p.base.ID()) {
		return Amount{}, fmt.Errorf("%w: expected %s, got %s",
			ErrAssetMismatch, p.base.Symbol(), amount.Asset().Symbol())
	}

	decimalShift := int64(p.quote.Decimals()) - int64(p.base.Decimals())

	temp := new(big.Int).Mul(amount.Raw(), p.rate)
	if decimalShift > 0 {
		temp.Mul(temp, new(big.Int).Exp(big.NewInt(10), big.NewInt(decimalShift), nil))
	}
	temp.Div(temp, pricePrecisionMultiplier)
	if decimalShift < 0 {
		temp.Div(temp, new(big.Int).Exp(big.NewInt(10), big.NewInt(-decimalShift), nil))
	}

	return NewAmount(p.quote, temp), nil
}

// String returns a human-readable representation.
func (p Price) String() string {
	return fmt.Sprintf("%s %s", p.Rate().String(), p.Pair())
}

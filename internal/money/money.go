// Package money normalizes raw on-chain amounts into decimal prices.
package money

import "github.com/shopspring/decimal"

// USDCMint is the mainnet USDC mint address, the stable token of the feed.
const USDCMint = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"

// Decimal scales of the two supported currencies.
const (
	solDecimals  = 9 // lamports per SOL: 10^9
	usdcDecimals = 6 // USDC smallest unit: 10^6
)

// Price is a normalized listing price denominated in exactly one currency.
type Price struct {
	Sol  *decimal.Decimal
	Usdc *decimal.Decimal
}

// Normalize converts a raw integer amount in its smallest unit into a price
// in the matching currency column. Amounts in the stable token (USDC mint)
// scale by 10^6; everything else is treated as SOL and scales by 10^9.
func Normalize(raw int64, currencyMint string) Price {
	if currencyMint == USDCMint {
		v := decimal.NewFromInt(raw).Shift(-usdcDecimals)
		return Price{Usdc: &v}
	}
	v := decimal.NewFromInt(raw).Shift(-solDecimals)
	return Price{Sol: &v}
}

package gates

import (
	"math"

	"github.com/shopspring/decimal"

	"github.com/sawpanic/coinpilot/internal/domain/coin"
)

// DefaultCoinCount is the number of coins a budget is split across when unset.
const DefaultCoinCount = 5

// fairPriceTolerance is how far above the fair price a coin may trade.
var fairPriceTolerance = decimal.NewFromInt(3)

// FairPrice returns amount / count, with count defaulting to DefaultCoinCount.
func FairPrice(amount decimal.Decimal, count int) decimal.Decimal {
	if count <= 0 {
		count = DefaultCoinCount
	}
	return amount.Div(decimal.NewFromInt(int64(count)))
}

// FitBudget keeps candidates whose price is within 3x the fair price for the
// given investment. Non-positive or non-finite prices never fit. A non-positive
// amount returns pool unchanged.
func FitBudget(pool []coin.Candidate, amount decimal.Decimal, count int) []coin.Candidate {
	if !amount.IsPositive() {
		return pool
	}
	ceiling := FairPrice(amount, count).Mul(fairPriceTolerance)

	out := make([]coin.Candidate, 0, len(pool))
	for _, c := range pool {
		if c.Price <= 0 || math.IsInf(c.Price, 0) || math.IsNaN(c.Price) {
			continue
		}
		if decimal.NewFromFloat(c.Price).LessThanOrEqual(ceiling) {
			out = append(out, c)
		}
	}
	return out
}

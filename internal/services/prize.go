package services

import (
	"github.com/shopspring/decimal"

	"github.com/SAP-F-2025/quiz-service/internal/config"
	"github.com/SAP-F-2025/quiz-service/internal/models"
)

// PrizeRanks is the number of ranks that receive a payout.
const PrizeRanks = 3

// defaultDistribution applies when a quiz has a pool but no split configured.
var defaultDistribution = models.PrizeDistribution{First: 50, Second: 30, Third: 20}

var hundred = decimal.NewFromInt(100)

// PrizeCalculator maps ranks to prize amounts. It only computes amounts; money
// movement belongs to the payment collaborator.
type PrizeCalculator struct {
	mode string
}

func NewPrizeCalculator(mode string) *PrizeCalculator {
	if mode != config.CommissionPerPayout {
		mode = config.CommissionGross
	}
	return &PrizeCalculator{mode: mode}
}

func (c *PrizeCalculator) Mode() string {
	return c.mode
}

// EffectiveDistribution returns the split used for payouts.
func EffectiveDistribution(pool float64, dist models.PrizeDistribution) models.PrizeDistribution {
	if pool > 0 && dist.First == 0 && dist.Second == 0 && dist.Third == 0 {
		return defaultDistribution
	}
	return dist
}

// Amount computes the payout for rank. Ranks outside 1..3 receive zero.
//
// In gross mode the commission is taken off the pool once and the net pool is
// split. In per_payout mode each rank's share of the full pool is rounded to
// cents first and the commission is taken off that share.
func (c *PrizeCalculator) Amount(pool float64, dist models.PrizeDistribution, commission float64, rank int) float64 {
	pct := decimal.NewFromFloat(EffectiveDistribution(pool, dist).Percent(rank))
	if rank < 1 || rank > PrizeRanks || pool <= 0 || pct.IsZero() {
		return 0
	}

	p := decimal.NewFromFloat(pool)
	keep := hundred.Sub(decimal.NewFromFloat(commission)).Div(hundred)

	var amount decimal.Decimal
	switch c.mode {
	case config.CommissionPerPayout:
		share := p.Mul(pct).Div(hundred).Round(2)
		amount = share.Mul(keep)
	default:
		net := p.Mul(keep).Round(2)
		amount = net.Mul(pct).Div(hundred)
	}

	f, _ := amount.Round(2).Float64()
	if f < 0 {
		return 0
	}
	return f
}

// Distribute returns the payout for each of the top ranks.
func (c *PrizeCalculator) Distribute(pool float64, dist models.PrizeDistribution, commission float64) []PrizePayout {
	effective := EffectiveDistribution(pool, dist)
	payouts := make([]PrizePayout, 0, PrizeRanks)
	for rank := 1; rank <= PrizeRanks; rank++ {
		payouts = append(payouts, PrizePayout{
			Rank:    rank,
			Percent: effective.Percent(rank),
			Amount:  c.Amount(pool, dist, commission, rank),
		})
	}
	return payouts
}

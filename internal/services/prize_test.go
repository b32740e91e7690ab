package services

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/SAP-F-2025/quiz-service/internal/config"
	"github.com/SAP-F-2025/quiz-service/internal/models"
)

func TestPrizeCalculator_Amount(t *testing.T) {
	dist := models.PrizeDistribution{First: 50, Second: 30, Third: 20}

	for _, mode := range []string{config.CommissionGross, config.CommissionPerPayout} {
		t.Run(mode, func(t *testing.T) {
			calc := NewPrizeCalculator(mode)
			assert.Equal(t, 500.0, calc.Amount(1000, dist, 0, 1))
			assert.Equal(t, 300.0, calc.Amount(1000, dist, 0, 2))
			assert.Equal(t, 200.0, calc.Amount(1000, dist, 0, 3))
			assert.Equal(t, 0.0, calc.Amount(1000, dist, 0, 4))
			assert.Equal(t, 0.0, calc.Amount(1000, dist, 0, 0))

			assert.Equal(t, 450.0, calc.Amount(1000, dist, 10, 1))
			assert.Equal(t, 180.0, calc.Amount(1000, dist, 10, 3))
		})
	}
}

func TestPrizeCalculator_Rounding(t *testing.T) {
	calc := NewPrizeCalculator(config.CommissionGross)
	dist := models.PrizeDistribution{First: 33.33, Second: 33.33, Third: 33.34}

	payouts := calc.Distribute(100, dist, 0)

	assert.Equal(t, []PrizePayout{
		{Rank: 1, Percent: 33.33, Amount: 33.33},
		{Rank: 2, Percent: 33.33, Amount: 33.33},
		{Rank: 3, Percent: 33.34, Amount: 33.34},
	}, payouts)
}

func TestPrizeCalculator_DefaultSplit(t *testing.T) {
	calc := NewPrizeCalculator("")
	assert.Equal(t, config.CommissionGross, calc.Mode())

	payouts := calc.Distribute(200, models.PrizeDistribution{}, 0)
	assert.Equal(t, 100.0, payouts[0].Amount)
	assert.Equal(t, 60.0, payouts[1].Amount)
	assert.Equal(t, 40.0, payouts[2].Amount)

	for _, p := range calc.Distribute(0, models.PrizeDistribution{}, 0) {
		assert.Zero(t, p.Amount)
	}
}

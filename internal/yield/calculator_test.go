package yield

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/rovshanmuradov/lp-yield/internal/types"
)

func cakeBNB() types.ProtocolConstants {
	return types.ProtocolConstants{
		FeeRate:               0.0017,
		TotalFarmMultiplier:   102.1,
		TotalEmissionPerDay:   72400,
		TargetFarmMultiplier:  40,
		CompoundingPeriodDays: 365,
	}
}

func TestDailyLPReturn(t *testing.T) {
	calc := NewCalculator(cakeBNB(), zap.NewNop())

	inputs := []struct{ price, volume, liquidity float64 }{
		{5, 1_000_000, 2_000_000},
		{0, 1_000_000, 2_000_000},
		{12.34, 0, 1},
		{0.5, 123_456.789, 9_876_543.21},
	}
	for _, in := range inputs {
		want := (in.volume * in.price * 0.0017) / in.liquidity
		assert.InDelta(t, want, calc.DailyLPReturn(in.price, in.volume, in.liquidity), 1e-15)
	}
}

func TestDailyFarmReturn(t *testing.T) {
	calc := NewCalculator(cakeBNB(), zap.NewNop())

	for _, in := range []struct{ price, liquidity float64 }{{5, 2_000_000}, {0, 10}, {7.77, 345_678}} {
		want := ((72400 / 102.1) * 40) * in.price / in.liquidity
		assert.InDelta(t, want, calc.DailyFarmReturn(in.price, in.liquidity), 1e-12)
	}
}

func TestRewardTokensPerDay(t *testing.T) {
	calc := NewCalculator(cakeBNB(), nil)
	assert.InDelta(t, 28364.3487, calc.RewardTokensPerDay(), 1e-3)
}

func TestEndToEndExample(t *testing.T) {
	calc := NewCalculator(cakeBNB(), zap.NewNop())

	lp := calc.DailyLPReturn(5.0, 1_000_000, 2_000_000)
	farm := calc.DailyFarmReturn(5.0, 2_000_000)
	total := calc.TotalCompounded(lp, farm)

	assert.InDelta(t, 0.00425, lp, 1e-12)
	assert.InDelta(t, 0.0709109, farm, 1e-6)
	assert.InDelta(t, math.Pow(1+lp+farm, 365)-1, total, 1)
	assert.Greater(t, total, 1e11)
}

func TestTotalCompoundedMonotonic(t *testing.T) {
	daily := [][2]float64{{0, 0}, {0.001, 0}, {0.00425, 0.0709}, {0, 0.0003}}

	for _, d := range daily {
		prev := math.Inf(-1)
		for n := 0; n <= 400; n += 20 {
			c := cakeBNB()
			c.CompoundingPeriodDays = n
			total := NewCalculator(c, nil).TotalCompounded(d[0], d[1])
			if n == 0 {
				assert.Equal(t, 0.0, total)
			}
			if d[0]+d[1] > 0 {
				assert.Greater(t, total, prev, "n=%d daily=%v", n, d)
			} else {
				assert.GreaterOrEqual(t, total, prev)
			}
			prev = total
		}
	}
}

func TestAnnualize(t *testing.T) {
	calc := NewCalculator(cakeBNB(), nil)
	assert.InDelta(t, 0.00425*365, calc.Annualize(0.00425), 1e-12)
}

func TestCalculateZeroLiquidity(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	calc := NewCalculator(cakeBNB(), zap.New(core))

	res := calc.Calculate(types.PairSnapshot{
		Price:         types.Reading{Value: 5},
		BaseVolume24h: types.Reading{Value: 1000},
		Liquidity:     types.Reading{Value: 0},
	})

	assert.True(t, math.IsInf(res.DailyLPYield, 1))
	assert.True(t, math.IsInf(res.DailyFarmYield, 1))
	assert.False(t, res.Finite())
	assert.Equal(t, 1, logs.Len())
}

func TestCalculateFailedFetchCascades(t *testing.T) {
	calc := NewCalculator(cakeBNB(), zap.NewNop())
	fetchErr := errors.New("connection refused")

	var res types.YieldResult
	require.NotPanics(t, func() {
		res = calc.Calculate(types.PairSnapshot{
			Price:         types.Reading{Err: fetchErr},
			BaseVolume24h: types.Reading{Err: fetchErr},
			Liquidity:     types.Reading{Err: fetchErr},
		})
	})

	// 0/0 на каждом шаге
	assert.True(t, math.IsNaN(res.DailyLPYield))
	assert.True(t, math.IsNaN(res.DailyFarmYield))
	assert.True(t, math.IsNaN(res.TotalCompoundedYield))
	assert.False(t, IsFinite(res.AnnualLPYield))
}

func TestCalculateSnapshot(t *testing.T) {
	calc := NewCalculator(cakeBNB(), zap.NewNop())

	res := calc.Calculate(types.PairSnapshot{
		Price:         types.Reading{Value: 5},
		BaseVolume24h: types.Reading{Value: 1_000_000},
		Liquidity:     types.Reading{Value: 2_000_000},
	})

	require.True(t, res.Finite())
	assert.InDelta(t, 0.00425, res.DailyLPYield, 1e-12)
	assert.InDelta(t, 0.00425*365, res.AnnualLPYield, 1e-9)
	assert.InDelta(t, res.DailyFarmYield*365, res.AnnualFarmYield, 1e-9)
}

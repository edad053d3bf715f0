// internal/yield/calculator.go
package yield

import (
	"math"

	"go.uber.org/zap"

	"github.com/rovshanmuradov/lp-yield/internal/types"
)

// Допущения (как в документации PancakeSwap):
//  1. Вложенная сумма не влияет на ликвидность пула.
//  2. Реинвестирование без комиссий свопа и газа.
//  3. Реинвестирование без проскальзывания.
//  4. Объем за 24 часа повторяется каждый день.

// Calculator считает доходность пула по статическим параметрам фарма.
type Calculator struct {
	constants types.ProtocolConstants
	logger    *zap.Logger
}

// NewCalculator создает калькулятор. constants копируются и дальше не меняются.
func NewCalculator(constants types.ProtocolConstants, logger *zap.Logger) *Calculator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Calculator{
		constants: constants,
		logger:    logger.Named("yield"),
	}
}

// Constants returns the parameters the calculator was built with.
func (c *Calculator) Constants() types.ProtocolConstants {
	return c.constants
}

// DailyLPReturn - доля торговых комиссий за день на единицу ликвидности.
// Объем переводится в котируемую валюту умножением на цену.
func (c *Calculator) DailyLPReturn(price, baseVolume, liquidity float64) float64 {
	volume := baseVolume * price
	return volume * c.constants.FeeRate / liquidity
}

// RewardTokensPerDay - сколько токенов награды получает пул в день
// пропорционально своему множителю.
func (c *Calculator) RewardTokensPerDay() float64 {
	return c.constants.TotalEmissionPerDay / c.constants.TotalFarmMultiplier * c.constants.TargetFarmMultiplier
}

// DailyFarmReturn - стоимость дневной эмиссии пула на единицу ликвидности.
func (c *Calculator) DailyFarmReturn(price, liquidity float64) float64 {
	return c.RewardTokensPerDay() * price / liquidity
}

// TotalCompounded returns (1 + lp + farm)^N - 1 with N = CompoundingPeriodDays.
// The two daily returns are summed before compounding.
func (c *Calculator) TotalCompounded(lpDaily, farmDaily float64) float64 {
	return math.Pow(1+lpDaily+farmDaily, float64(c.constants.CompoundingPeriodDays)) - 1
}

// Annualize scales a daily return over the period without compounding.
func (c *Calculator) Annualize(daily float64) float64 {
	return daily * float64(c.constants.CompoundingPeriodDays)
}

// Calculate считает все показатели по снимку пары. Неудачные чтения дают 0.
// Результат может содержать NaN или Inf; это логируется, но не считается ошибкой.
func (c *Calculator) Calculate(snapshot types.PairSnapshot) types.YieldResult {
	price := snapshot.Price.Float()
	baseVolume := snapshot.BaseVolume24h.Float()
	liquidity := snapshot.Liquidity.Float()

	lp := c.DailyLPReturn(price, baseVolume, liquidity)
	farm := c.DailyFarmReturn(price, liquidity)

	result := types.YieldResult{
		DailyLPYield:         lp,
		DailyFarmYield:       farm,
		TotalCompoundedYield: c.TotalCompounded(lp, farm),
		AnnualLPYield:        c.Annualize(lp),
		AnnualFarmYield:      c.Annualize(farm),
	}

	if !result.Finite() {
		c.logger.Warn("Cannot compute finite yield",
			zap.Float64("price", price),
			zap.Float64("base_volume", baseVolume),
			zap.Float64("liquidity", liquidity),
			zap.Float64("daily_lp", lp),
			zap.Float64("daily_farm", farm))
	}

	return result
}

// IsFinite reports whether v is neither NaN nor ±Inf.
func IsFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

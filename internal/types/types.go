// internal/types/types.go
package types

import (
	"math"
	"time"
)

// Reading is a single fetched value. A failed fetch carries Err and a zero Value.
type Reading struct {
	Value float64
	Err   error
}

// OK reports whether the value was actually fetched.
func (r Reading) OK() bool {
	return r.Err == nil
}

// Float returns the value, or the 0 sentinel if the fetch failed.
func (r Reading) Float() float64 {
	if r.Err != nil {
		return 0
	}
	return r.Value
}

// PairSnapshot holds the values fetched for one pair in one cycle.
type PairSnapshot struct {
	Price         Reading // quote currency per base token
	BaseVolume24h Reading // base-token units
	Liquidity     Reading // base-token units
	FetchedAt     time.Time
}

// Failed returns the names of readings that could not be fetched.
func (s PairSnapshot) Failed() []string {
	var failed []string
	if !s.Price.OK() {
		failed = append(failed, "price")
	}
	if !s.BaseVolume24h.OK() {
		failed = append(failed, "base_volume")
	}
	if !s.Liquidity.OK() {
		failed = append(failed, "liquidity")
	}
	return failed
}

// ProtocolConstants are the static farm parameters of the pool.
type ProtocolConstants struct {
	FeeRate               float64 // LP share of the trading fee, 0.0017 on PancakeSwap v2
	TotalFarmMultiplier   float64
	TotalEmissionPerDay   float64 // reward tokens emitted to all farms per day
	TargetFarmMultiplier  float64
	CompoundingPeriodDays int
}

// YieldResult is derived once per cycle. Fields may be NaN or ±Inf.
type YieldResult struct {
	DailyLPYield         float64
	DailyFarmYield       float64
	TotalCompoundedYield float64
	AnnualLPYield        float64 // DailyLPYield * period, not compounded
	AnnualFarmYield      float64
}

// Finite reports whether every field is a finite number.
func (y YieldResult) Finite() bool {
	for _, v := range []float64{y.DailyLPYield, y.DailyFarmYield, y.TotalCompoundedYield, y.AnnualLPYield, y.AnnualFarmYield} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// CycleReport is everything printed for one cycle.
type CycleReport struct {
	CycleID  string
	Pair     string
	Time     time.Time
	Snapshot PairSnapshot
	Yield    YieldResult
}

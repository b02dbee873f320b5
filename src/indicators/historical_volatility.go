package indicators

import (
	"fmt"
	"math"

	"github.com/montanaflynn/stats"

	"github.com/jiaming2012/tradecraft/src/eventmodels"
)

const tradingDaysPerYear = 252

// HistoricalVolatility computes annualized close-to-close volatility over a
// series of bars, expressed as a percentage.
func HistoricalVolatility(candles []eventmodels.Candle) (float64, error) {
	if len(candles) < 2 {
		return 0, fmt.Errorf("HistoricalVolatility: need at least 2 candles, got %d", len(candles))
	}

	logReturns := make([]float64, 0, len(candles)-1)
	for i := 1; i < len(candles); i += 1 {
		prev := candles[i-1].Close
		cur := candles[i].Close
		if prev <= 0 || cur <= 0 {
			continue
		}

		logReturns = append(logReturns, math.Log(cur/prev))
	}

	if len(logReturns) < 2 {
		return 0, fmt.Errorf("HistoricalVolatility: not enough positive closes to compute returns")
	}

	sd, err := stats.StandardDeviation(logReturns)
	if err != nil {
		return 0, fmt.Errorf("failed to caculate the standard deviation: %v", err)
	}

	return sd * math.Sqrt(tradingDaysPerYear) * 100, nil
}

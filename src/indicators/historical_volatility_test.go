package indicators

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jiaming2012/tradecraft/src/eventmodels"
)

func newCloseSeries(closes ...float64) []eventmodels.Candle {
	candles := make([]eventmodels.Candle, 0, len(closes))
	ts := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)

	for i, c := range closes {
		candles = append(candles, eventmodels.Candle{
			Timestamp: ts.Add(time.Duration(i) * 24 * time.Hour),
			Close:     c,
		})
	}

	return candles
}

func TestHistoricalVolatility(t *testing.T) {
	t.Run("constant closes have zero volatility", func(t *testing.T) {
		vol, err := HistoricalVolatility(newCloseSeries(100, 100, 100, 100))
		require.NoError(t, err)
		assert.InDelta(t, 0.0, vol, 1e-9)
	})

	t.Run("larger swings mean larger volatility", func(t *testing.T) {
		calm, err := HistoricalVolatility(newCloseSeries(100, 101, 100, 101, 100))
		require.NoError(t, err)

		wild, err := HistoricalVolatility(newCloseSeries(100, 120, 90, 130, 80))
		require.NoError(t, err)

		assert.Greater(t, wild, calm)
	})

	t.Run("too few candles", func(t *testing.T) {
		_, err := HistoricalVolatility(newCloseSeries(100))
		assert.Error(t, err)
	})

	t.Run("non positive closes are skipped", func(t *testing.T) {
		_, err := HistoricalVolatility(newCloseSeries(0, 0, 100))
		assert.Error(t, err)
	})
}

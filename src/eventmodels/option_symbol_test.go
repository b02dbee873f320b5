package eventmodels

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOptionSymbol(t *testing.T) {
	t.Run("build occ symbol", func(t *testing.T) {
		symbol, err := NewOptionSymbol(OptionSymbolComponents{
			Underlying:  "AAPL",
			Expiration:  time.Date(2026, time.January, 16, 0, 0, 0, 0, time.UTC),
			OptionType:  "C",
			StrikePrice: 230,
		})

		require.NoError(t, err)
		assert.Equal(t, OptionSymbol("AAPL260116C00230000"), symbol)
	})

	t.Run("round trip", func(t *testing.T) {
		symbol, err := NewOptionSymbol(OptionSymbolComponents{
			Underlying:  "SPXW",
			Expiration:  time.Date(2025, time.June, 7, 0, 0, 0, 0, time.UTC),
			OptionType:  "P",
			StrikePrice: 5305.5,
		})
		require.NoError(t, err)

		components, err := NewOptionSymbolComponents(symbol)
		require.NoError(t, err)

		assert.Equal(t, "SPXW", components.Underlying)
		assert.Equal(t, "P", components.OptionType)
		assert.Equal(t, 5305.5, components.StrikePrice)
		assert.Equal(t, 2025, components.Expiration.Year())
		assert.Equal(t, time.June, components.Expiration.Month())
		assert.Equal(t, 7, components.Expiration.Day())
	})

	t.Run("strips polygon prefix", func(t *testing.T) {
		components, err := NewOptionSymbolComponents(OptionSymbol("O:AAPL260116C00230000"))
		require.NoError(t, err)
		assert.Equal(t, "AAPL", components.Underlying)
	})

	t.Run("invalid right", func(t *testing.T) {
		_, err := NewOptionSymbol(OptionSymbolComponents{
			Underlying:  "AAPL",
			Expiration:  time.Date(2026, time.January, 16, 0, 0, 0, 0, time.UTC),
			OptionType:  "X",
			StrikePrice: 230,
		})

		assert.Error(t, err)
	})

	t.Run("symbol too short", func(t *testing.T) {
		_, err := NewOptionSymbolComponents(OptionSymbol("AAPL"))
		assert.Error(t, err)
	})
}

func TestStockSymbolValidate(t *testing.T) {
	t.Run("plain ticker", func(t *testing.T) {
		assert.NoError(t, StockSymbol("AAPL").Validate())
	})

	t.Run("class share dot", func(t *testing.T) {
		assert.NoError(t, StockSymbol("BRK.B").Validate())
	})

	t.Run("preferred dash", func(t *testing.T) {
		assert.NoError(t, StockSymbol("BF-B").Validate())
	})

	t.Run("empty", func(t *testing.T) {
		assert.Error(t, StockSymbol("").Validate())
	})

	t.Run("punctuation", func(t *testing.T) {
		assert.Error(t, StockSymbol("AA$PL").Validate())
	})
}

func TestNewOptionTypeFromRight(t *testing.T) {
	t.Run("long tokens", func(t *testing.T) {
		call, err := NewOptionTypeFromRight("CALL")
		require.NoError(t, err)
		assert.Equal(t, OptionTypeCall, call)
		assert.Equal(t, "C", call.GatewayRight())

		put, err := NewOptionTypeFromRight("put")
		require.NoError(t, err)
		assert.Equal(t, OptionTypePut, put)
		assert.Equal(t, "P", put.GatewayRight())
	})

	t.Run("single letters", func(t *testing.T) {
		call, err := NewOptionTypeFromRight("c")
		require.NoError(t, err)
		assert.Equal(t, OptionTypeCall, call)
	})

	t.Run("unknown right", func(t *testing.T) {
		_, err := NewOptionTypeFromRight("STRADDLE")
		assert.Error(t, err)
	})
}

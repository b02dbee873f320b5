package eventmodels

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeExpiry(t *testing.T) {
	t.Run("dashed date", func(t *testing.T) {
		assert.Equal(t, "20260116", NormalizeExpiry("2026-01-16"))
	})

	t.Run("already canonical", func(t *testing.T) {
		assert.Equal(t, "20260116", NormalizeExpiry("20260116"))
	})

	t.Run("slashed date", func(t *testing.T) {
		assert.Equal(t, "20251231", NormalizeExpiry("2025/12/31"))
	})
}

func TestOrderValidation(t *testing.T) {
	t.Run("sides", func(t *testing.T) {
		assert.NoError(t, OrderSideBuy.Validate())
		assert.NoError(t, OrderSideSell.Validate())
		assert.Error(t, OrderSide("HOLD").Validate())
	})

	t.Run("order types", func(t *testing.T) {
		assert.NoError(t, OrderTypeMarket.Validate())
		assert.NoError(t, OrderTypeLimit.Validate())
		assert.Error(t, OrderType("STOP").Validate())
	})
}

func TestPositionMultiplier(t *testing.T) {
	t.Run("stock", func(t *testing.T) {
		assert.Equal(t, 1.0, Position{Kind: PositionKindStock}.Multiplier())
	})

	t.Run("options", func(t *testing.T) {
		assert.Equal(t, 100.0, Position{Kind: PositionKindCall}.Multiplier())
		assert.Equal(t, 100.0, Position{Kind: PositionKindPut}.Multiplier())
	})
}

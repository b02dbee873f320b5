package ibkr

import (
	"context"

	"github.com/jiaming2012/tradecraft/src/eventmodels"
	"github.com/jiaming2012/tradecraft/src/eventservices"
)

// GetOptionsChain assembles the strike-windowed chain for a ticker. When the
// session tracks a live quote for the underlying stock, its price seeds the
// window; otherwise the assembler falls back to the provider's daily
// snapshot.
func (s *Session) GetOptionsChain(ctx context.Context, symbol eventmodels.StockSymbol, maxStrikes int) (eventmodels.OptionChain, error) {
	if maxStrikes <= 0 {
		maxStrikes = s.maxStrikes
	}

	underlyingHint := 0.0
	if quote, found := s.market.stockQuoteBySymbol(symbol); found {
		switch {
		case quote.Mark > 0:
			underlyingHint = quote.Mark
		case quote.Last > 0:
			underlyingHint = quote.Last
		default:
			underlyingHint = quote.Close
		}
	}

	return s.chain.Assemble(ctx, symbol, maxStrikes, underlyingHint)
}

func (s *Session) ChainCacheStats() eventservices.CacheStats {
	return s.chain.CacheStats()
}

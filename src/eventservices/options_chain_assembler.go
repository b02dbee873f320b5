package eventservices

import (
	"context"
	"fmt"
	"math"
	"sort"

	log "github.com/sirupsen/logrus"

	"github.com/jiaming2012/tradecraft/src/eventmodels"
	"github.com/jiaming2012/tradecraft/src/utils"
)

const maxChainExpirations = 5

// ChainAssembler builds a strike-windowed options chain from a provider
// snapshot stream. It is independent of any live broker session: callers may
// pass a live underlying price hint, otherwise the provider's daily snapshot
// supplies the reference price.
type ChainAssembler struct {
	provider IDataProvider
	cache    *TTLCache[eventmodels.OptionChain]
}

func NewChainAssembler(provider IDataProvider, clock *MarketSessionClock) *ChainAssembler {
	return &ChainAssembler{
		provider: provider,
		cache:    NewTTLCache[eventmodels.OptionChain](clock),
	}
}

func (a *ChainAssembler) CacheStats() CacheStats {
	return a.cache.Stats()
}

func (a *ChainAssembler) Assemble(ctx context.Context, symbol eventmodels.StockSymbol, maxStrikes int, underlyingHint float64) (eventmodels.OptionChain, error) {
	if err := symbol.Validate(); err != nil {
		return eventmodels.NewEmptyOptionChain(), fmt.Errorf("Assemble: %w", err)
	}

	cacheKey := fmt.Sprintf("options_chain:%s:%d", symbol, maxStrikes)
	if cached, found := a.cache.Get(cacheKey); found {
		return cached, nil
	}

	// Reference price first: it bounds the provider-side scan.
	underlyingPrice := underlyingHint
	if underlyingPrice <= 0 {
		snapshot, err := a.provider.FetchDailySnapshot(ctx, symbol)
		if err != nil {
			log.Warnf("Assemble: no daily snapshot for %s: %v", symbol, err)
		} else {
			underlyingPrice = snapshot.CurrentPrice
		}
	}

	contracts, err := a.provider.FetchOptionChainSnapshot(ctx, symbol)
	if err != nil {
		return eventmodels.NewEmptyOptionChain(), fmt.Errorf("Assemble: %w", err)
	}

	bandLow := 0.5 * underlyingPrice
	bandHigh := 1.5 * underlyingPrice

	chain := eventmodels.NewEmptyOptionChain()
	chain.UnderlyingPrice = underlyingPrice

	strikeSet := map[float64]bool{}
	expirationSet := map[string]bool{}

	for _, contract := range contracts {
		strike := utils.RoundTo(contract.Strike, 2)

		// Early skip outside the admissible band.
		if underlyingPrice > 0 && (strike < bandLow || strike > bandHigh) {
			continue
		}

		if contract.UnderlyingPrice > 0 && chain.UnderlyingPrice <= 0 {
			chain.UnderlyingPrice = contract.UnderlyingPrice
		}

		quote := resolveChainQuote(contract)

		expiration := contract.ExpirationDate
		expirationSet[expiration] = true
		strikeSet[strike] = true

		byExpiration := chain.Calls
		if contract.Type == eventmodels.OptionTypePut {
			byExpiration = chain.Puts
		}

		if byExpiration[expiration] == nil {
			byExpiration[expiration] = map[string]eventmodels.OptionChainQuote{}
		}

		byExpiration[expiration][eventmodels.FormatStrike(strike)] = quote
	}

	expirations := make([]string, 0, len(expirationSet))
	for expiration := range expirationSet {
		expirations = append(expirations, expiration)
	}
	sort.Strings(expirations)

	if len(expirations) > maxChainExpirations {
		expirations = expirations[:maxChainExpirations]
	}

	strikes := make([]float64, 0, len(strikeSet))
	for strike := range strikeSet {
		strikes = append(strikes, strike)
	}
	sort.Float64s(strikes)

	retained := windowStrikes(strikes, chain.UnderlyingPrice, maxStrikes)
	retainedSet := map[string]bool{}
	for _, strike := range retained {
		retainedSet[eventmodels.FormatStrike(strike)] = true
	}

	// Drop contracts outside the retained window, then drop expirations left
	// with no surviving contract at all.
	chain.Expirations = []string{}
	for _, expiration := range expirations {
		pruneStrikes(chain.Calls, expiration, retainedSet)
		pruneStrikes(chain.Puts, expiration, retainedSet)

		if len(chain.Calls[expiration]) > 0 || len(chain.Puts[expiration]) > 0 {
			chain.Expirations = append(chain.Expirations, expiration)
		} else {
			delete(chain.Calls, expiration)
			delete(chain.Puts, expiration)
		}
	}

	for expiration := range chain.Calls {
		if !expirationSetContains(chain.Expirations, expiration) {
			delete(chain.Calls, expiration)
		}
	}
	for expiration := range chain.Puts {
		if !expirationSetContains(chain.Expirations, expiration) {
			delete(chain.Puts, expiration)
		}
	}

	chain.Strikes = retained

	log.Debugf("assembled options chain for %s: %d expirations, %d strikes", symbol, len(chain.Expirations), len(chain.Strikes))

	a.cache.Set(cacheKey, chain)

	return chain, nil
}

// resolveChainQuote applies the price fallback chain: live bid/ask, then day
// high/low as a synthetic spread, then last trade or close, then zero.
func resolveChainQuote(contract eventmodels.OptionContractSnapshot) eventmodels.OptionChainQuote {
	bid := contract.Bid
	ask := contract.Ask

	if bid <= 0 && ask <= 0 {
		if contract.Low > 0 && contract.High > 0 {
			bid = contract.Low
			ask = contract.High
		}
	}

	last := contract.Last
	if last <= 0 {
		last = contract.Close
	}

	mid := last
	if bid > 0 && ask > 0 {
		mid = (bid + ask) / 2
	}

	return eventmodels.OptionChainQuote{
		Bid:          bid,
		Ask:          ask,
		Last:         last,
		Mid:          mid,
		Volume:       contract.Volume,
		OpenInterest: contract.OpenInterest,
		Delta:        contract.Greeks.Delta,
		Gamma:        contract.Greeks.Gamma,
		Theta:        contract.Greeks.Theta,
		Vega:         contract.Greeks.Vega,
		IV:           contract.Greeks.IV,
	}
}

// windowStrikes retains at most maxStrikes values centered on the strike
// nearest the underlying price.
func windowStrikes(strikes []float64, underlyingPrice float64, maxStrikes int) []float64 {
	if maxStrikes <= 0 || len(strikes) <= maxStrikes {
		return strikes
	}

	if underlyingPrice <= 0 {
		return strikes[:maxStrikes]
	}

	closest := 0
	for i, strike := range strikes {
		if math.Abs(strike-underlyingPrice) < math.Abs(strikes[closest]-underlyingPrice) {
			closest = i
		}
	}

	half := maxStrikes / 2
	start := closest - half
	if start < 0 {
		start = 0
	}

	end := start + maxStrikes
	if end > len(strikes) {
		end = len(strikes)
		start = end - maxStrikes
	}

	return strikes[start:end]
}

func pruneStrikes(byExpiration map[string]map[string]eventmodels.OptionChainQuote, expiration string, retained map[string]bool) {
	for key := range byExpiration[expiration] {
		if !retained[key] {
			delete(byExpiration[expiration], key)
		}
	}
}

func expirationSetContains(expirations []string, expiration string) bool {
	for _, e := range expirations {
		if e == expiration {
			return true
		}
	}

	return false
}

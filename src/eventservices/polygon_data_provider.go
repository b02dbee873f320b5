package eventservices

import (
	"context"
	"fmt"
	"time"

	polygon "github.com/polygon-io/client-go/rest"
	"github.com/polygon-io/client-go/rest/models"
	log "github.com/sirupsen/logrus"

	"github.com/jiaming2012/tradecraft/src/eventmodels"
	"github.com/jiaming2012/tradecraft/src/utils"
)

func init() {
	RegisterDataProvider("polygon", func(cfg *eventmodels.BridgeConfigYAML) (IDataProvider, error) {
		apiKey, err := utils.GetEnv("POLYGON_API_KEY")
		if err != nil {
			return nil, fmt.Errorf("polygon provider: %w", err)
		}

		return NewPolygonDataProvider(apiKey), nil
	})
}

// PolygonDataProvider serves reference market data from the polygon.io REST
// API. It carries no live-session state: every call is an independent fetch.
type PolygonDataProvider struct {
	Client *polygon.Client
}

func NewPolygonDataProvider(apiKey string) *PolygonDataProvider {
	return &PolygonDataProvider{
		Client: polygon.New(apiKey),
	}
}

func (p *PolygonDataProvider) FetchHistoricalBars(ctx context.Context, symbol eventmodels.StockSymbol, timeframe string) ([]eventmodels.Candle, error) {
	spec, err := eventmodels.NewTimeframeSpec(timeframe)
	if err != nil {
		return nil, fmt.Errorf("FetchHistoricalBars: %w", err)
	}

	now := time.Now()

	params := models.ListAggsParams{
		Ticker:     symbol.String(),
		Multiplier: spec.Multiplier,
		Timespan:   models.Timespan(spec.Timespan),
		From:       models.Millis(now.Add(-spec.Lookback)),
		To:         models.Millis(now),
	}.WithOrder(models.Asc).WithAdjusted(true)

	iter := p.Client.ListAggs(ctx, params)

	var bars []eventmodels.Candle
	for iter.Next() {
		item := iter.Item()

		bars = append(bars, eventmodels.Candle{
			Timestamp: time.Time(item.Timestamp),
			Open:      item.Open,
			High:      item.High,
			Low:       item.Low,
			Close:     item.Close,
			Volume:    item.Volume,
			VWAP:      item.VWAP,
		})
	}

	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("FetchHistoricalBars: failed to list aggs for %s: %w", symbol, err)
	}

	log.Debugf("fetched %d polygon bars for %s (%s)", len(bars), symbol, spec.Token)

	return bars, nil
}

func (p *PolygonDataProvider) FetchDailySnapshot(ctx context.Context, symbol eventmodels.StockSymbol) (eventmodels.DailySnapshot, error) {
	prevClose, err := p.fetchPreviousClose(ctx, symbol)
	if err != nil {
		return eventmodels.DailySnapshot{}, fmt.Errorf("FetchDailySnapshot: %w", err)
	}

	snapshot := eventmodels.DailySnapshot{
		Symbol:        symbol,
		PreviousClose: prevClose,
		CurrentPrice:  prevClose,
	}

	// Last trade is best-effort: off-hours or entitlement gaps fall back to
	// the previous close.
	trade, err := p.Client.GetLastTrade(ctx, &models.GetLastTradeParams{Ticker: symbol.String()})
	if err != nil {
		log.Debugf("FetchDailySnapshot: no last trade for %s: %v", symbol, err)
	} else if trade.Results.Price > 0 {
		snapshot.CurrentPrice = trade.Results.Price
	}

	if snapshot.CurrentPrice > 0 && snapshot.PreviousClose > 0 {
		snapshot.Change = snapshot.CurrentPrice - snapshot.PreviousClose
		snapshot.ChangePct = utils.RoundTo(snapshot.Change/snapshot.PreviousClose*100, 2)
	}

	return snapshot, nil
}

func (p *PolygonDataProvider) fetchPreviousClose(ctx context.Context, symbol eventmodels.StockSymbol) (float64, error) {
	params := models.GetPreviousCloseAggParams{Ticker: symbol.String()}.WithAdjusted(true)

	resp, err := p.Client.GetPreviousCloseAgg(ctx, params)
	if err != nil {
		return 0, fmt.Errorf("fetchPreviousClose: failed to fetch previous close for %s: %w", symbol, err)
	}

	if len(resp.Results) == 0 {
		return 0, fmt.Errorf("fetchPreviousClose: no previous close bar for %s", symbol)
	}

	return resp.Results[0].Close, nil
}

func (p *PolygonDataProvider) FetchTickerDetails(ctx context.Context, symbol eventmodels.StockSymbol) (eventmodels.TickerDetails, error) {
	resp, err := p.Client.GetTickerDetails(ctx, &models.GetTickerDetailsParams{Ticker: symbol.String()})
	if err != nil {
		return eventmodels.TickerDetails{}, fmt.Errorf("FetchTickerDetails: failed to fetch details for %s: %w", symbol, err)
	}

	return eventmodels.TickerDetails{
		Ticker:      symbol,
		Name:        resp.Results.Name,
		Exchange:    resp.Results.PrimaryExchange,
		Description: resp.Results.Description,
		MarketCap:   resp.Results.MarketCap,
	}, nil
}

func (p *PolygonDataProvider) FetchTickerNews(ctx context.Context, symbol eventmodels.StockSymbol, limit int) ([]eventmodels.TickerNewsItem, error) {
	params := models.ListTickerNewsParams{}.
		WithTicker(models.EQ, symbol.String()).
		WithOrder(models.Desc).
		WithLimit(limit)

	iter := p.Client.ListTickerNews(ctx, params)

	var items []eventmodels.TickerNewsItem
	for iter.Next() && len(items) < limit {
		item := iter.Item()

		items = append(items, eventmodels.TickerNewsItem{
			Title:       item.Title,
			Publisher:   item.Publisher.Name,
			PublishedAt: time.Time(item.PublishedUTC),
			ArticleURL:  item.ArticleURL,
		})
	}

	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("FetchTickerNews: failed to list news for %s: %w", symbol, err)
	}

	return items, nil
}

func (p *PolygonDataProvider) FetchOptionChainSnapshot(ctx context.Context, symbol eventmodels.StockSymbol) ([]eventmodels.OptionContractSnapshot, error) {
	iter := p.Client.ListOptionsChainSnapshot(ctx, &models.ListOptionsChainParams{UnderlyingAsset: symbol.String()})

	var contracts []eventmodels.OptionContractSnapshot
	for iter.Next() {
		item := iter.Item()

		optionType, err := eventmodels.NewOptionTypeFromRight(item.Details.ContractType)
		if err != nil {
			log.Debugf("FetchOptionChainSnapshot: skipping %s: %v", item.Details.Ticker, err)
			continue
		}

		contracts = append(contracts, eventmodels.OptionContractSnapshot{
			Ticker:         item.Details.Ticker,
			Underlying:     symbol,
			ExpirationDate: time.Time(item.Details.ExpirationDate).Format("20060102"),
			Strike:         item.Details.StrikePrice,
			Type:           optionType,
			Bid:            item.LastQuote.Bid,
			Ask:            item.LastQuote.Ask,
			Last:           item.LastTrade.Price,
			Close:          item.Day.Close,
			High:           item.Day.High,
			Low:            item.Day.Low,
			Volume:         item.Day.Volume,
			OpenInterest:   item.OpenInterest,
			Greeks: eventmodels.OptionGreeks{
				Delta:           item.Greeks.Delta,
				Gamma:           item.Greeks.Gamma,
				Theta:           item.Greeks.Theta,
				Vega:            item.Greeks.Vega,
				IV:              item.ImpliedVolatility * 100,
				UnderlyingPrice: item.UnderlyingAsset.Price,
			},
			UnderlyingPrice: item.UnderlyingAsset.Price,
		})
	}

	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("FetchOptionChainSnapshot: failed to list chain for %s: %w", symbol, err)
	}

	return contracts, nil
}

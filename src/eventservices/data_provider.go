package eventservices

import (
	"context"
	"fmt"
	"sort"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/jiaming2012/tradecraft/src/eventmodels"
)

// IDataProvider is the market-data aggregator surface the bridge consumes:
// reference data and chain snapshots, independent of the live broker session.
type IDataProvider interface {
	FetchHistoricalBars(ctx context.Context, symbol eventmodels.StockSymbol, timeframe string) ([]eventmodels.Candle, error)
	FetchDailySnapshot(ctx context.Context, symbol eventmodels.StockSymbol) (eventmodels.DailySnapshot, error)
	FetchTickerDetails(ctx context.Context, symbol eventmodels.StockSymbol) (eventmodels.TickerDetails, error)
	FetchTickerNews(ctx context.Context, symbol eventmodels.StockSymbol, limit int) ([]eventmodels.TickerNewsItem, error)
	FetchOptionChainSnapshot(ctx context.Context, symbol eventmodels.StockSymbol) ([]eventmodels.OptionContractSnapshot, error)
}

type DataProviderFactoryFunc func(cfg *eventmodels.BridgeConfigYAML) (IDataProvider, error)

var dataProviderRegistry = map[string]DataProviderFactoryFunc{}

// RegisterDataProvider adds a provider variant to the closed set selectable
// from configuration.
func RegisterDataProvider(name string, factory DataProviderFactoryFunc) {
	dataProviderRegistry[strings.ToLower(name)] = factory
}

func AvailableDataProviders() []string {
	names := make([]string, 0, len(dataProviderRegistry))
	for name := range dataProviderRegistry {
		names = append(names, name)
	}

	sort.Strings(names)
	return names
}

func NewDataProviderFromConfig(cfg *eventmodels.BridgeConfigYAML) (IDataProvider, error) {
	factory, found := dataProviderRegistry[strings.ToLower(cfg.DataProvider)]
	if !found {
		return nil, fmt.Errorf("NewDataProviderFromConfig: unknown data provider %q, available: %v", cfg.DataProvider, AvailableDataProviders())
	}

	provider, err := factory(cfg)
	if err != nil {
		return nil, fmt.Errorf("NewDataProviderFromConfig: failed to create %s provider: %w", cfg.DataProvider, err)
	}

	log.Infof("using data provider %s", cfg.DataProvider)

	return provider, nil
}

package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gocarina/gocsv"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/jiaming2012/tradecraft/src/eventmodels"
	"github.com/jiaming2012/tradecraft/src/eventservices"
	"github.com/jiaming2012/tradecraft/src/indicators"
	"github.com/jiaming2012/tradecraft/src/utils"
)

type RunArgs struct {
	Symbol    eventmodels.StockSymbol
	Timeframe string
	OutDir    string
	GoEnv     string
}

type RunResult struct {
	OutFile              string
	Bars                 int
	HistoricalVolatility float64
	Rsi                  float64
	Bands                indicators.BollingerBandsStats
	BandsReady           bool
}

var runCmd = &cobra.Command{
	Use:   "go run src/cmd/fetch_bars/main.go --symbol AAPL --timeframe 1Y",
	Short: "Fetch historical bars from the data provider, export to csv, and report realized volatility",
	Run: func(cmd *cobra.Command, args []string) {
		goEnv, err := cmd.Flags().GetString("go-env")
		if err != nil {
			log.Fatalf("error getting go-env: %v", err)
		}

		symbol, err := cmd.Flags().GetString("symbol")
		if err != nil {
			log.Fatalf("error getting symbol: %v", err)
		}

		timeframe, err := cmd.Flags().GetString("timeframe")
		if err != nil {
			log.Fatalf("error getting timeframe: %v", err)
		}

		outDir, err := cmd.Flags().GetString("out-dir")
		if err != nil {
			log.Fatalf("error getting out-dir: %v", err)
		}

		result, err := Run(RunArgs{
			Symbol:    eventmodels.NewStockSymbol(symbol),
			Timeframe: timeframe,
			OutDir:    outDir,
			GoEnv:     goEnv,
		})

		if err != nil {
			log.Errorf("Error: %v", err)
			return
		}

		fmt.Printf("exported %d bars to %s\n", result.Bars, result.OutFile)
		fmt.Printf("annualized close-to-close volatility: %.2f%%\n", result.HistoricalVolatility)
		fmt.Printf("rsi(14): %.2f\n", result.Rsi)

		if result.BandsReady {
			fmt.Printf("bollinger(20, 2): upper %.2f / sma %.2f / lower %.2f\n", result.Bands.Upper, result.Bands.MovingAverage, result.Bands.Lower)
		}
	},
}

func Run(args RunArgs) (RunResult, error) {
	projectsDir := os.Getenv("PROJECTS_DIR")
	if projectsDir == "" {
		log.Fatalf("missing PROJECTS_DIR environment variable")
	}

	if err := utils.InitEnvironmentVariables(projectsDir, args.GoEnv); err != nil {
		log.Fatalf("error loading environment variables: %v", err)
	}

	cfg, err := utils.LoadBridgeConfig(projectsDir)
	if err != nil {
		log.Fatalf("error loading bridge config: %v", err)
	}

	ctx := context.Background()

	provider, err := eventservices.NewDataProviderFromConfig(cfg)
	if err != nil {
		return RunResult{}, fmt.Errorf("failed to create data provider: %w", err)
	}

	candles, err := provider.FetchHistoricalBars(ctx, args.Symbol, args.Timeframe)
	if err != nil {
		return RunResult{}, fmt.Errorf("failed to fetch bars for %s: %w", args.Symbol, err)
	}

	if len(candles) == 0 {
		return RunResult{}, fmt.Errorf("no bars returned for %s %s", args.Symbol, args.Timeframe)
	}

	if _, err := os.Stat(args.OutDir); os.IsNotExist(err) {
		if err := os.MkdirAll(args.OutDir, 0755); err != nil {
			return RunResult{}, fmt.Errorf("failed to create output directory %s: %w", args.OutDir, err)
		}
	}

	outFile := filepath.Join(args.OutDir, fmt.Sprintf("candles-%s-%s.csv", args.Symbol, args.Timeframe))

	file, err := os.Create(outFile)
	if err != nil {
		return RunResult{}, fmt.Errorf("failed to create %s: %w", outFile, err)
	}

	defer file.Close()

	if err := gocsv.MarshalFile(&candles, file); err != nil {
		return RunResult{}, fmt.Errorf("failed to write csv: %w", err)
	}

	volatility, err := indicators.HistoricalVolatility(candles)
	if err != nil {
		log.Warnf("failed to compute historical volatility: %v", err)
	}

	rsi := indicators.NewRsi(14)
	bollinger := indicators.NewBollingerBands(20, 2.0)

	var rsiValue float64
	var bands indicators.BollingerBandsStats
	var bandsReady bool

	for _, c := range candles {
		rsiValue = rsi.Update(c)

		ready, s, err := bollinger.Update(c)
		if err != nil {
			log.Warnf("failed to update bollinger bands: %v", err)
			continue
		}

		if ready {
			bands = s
			bandsReady = true
		}
	}

	return RunResult{
		OutFile:              outFile,
		Bars:                 len(candles),
		HistoricalVolatility: volatility,
		Rsi:                  rsiValue,
		Bands:                bands,
		BandsReady:           bandsReady,
	}, nil
}

func main() {
	runCmd.PersistentFlags().String("go-env", "development", "The go environment to run the command in.")
	runCmd.PersistentFlags().String("symbol", "", "The ticker to fetch bars for.")
	runCmd.PersistentFlags().String("timeframe", "1Y", "The timeframe token: 1Y, 1M, 1W, 1D or 1H.")
	runCmd.PersistentFlags().String("out-dir", "data", "The directory to write the csv export into.")

	runCmd.MarkPersistentFlagRequired("symbol")

	runCmd.Execute()
}

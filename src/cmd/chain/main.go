package main

import (
	"context"
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/jiaming2012/tradecraft/src/brokers"
	_ "github.com/jiaming2012/tradecraft/src/brokers/alpaca"
	_ "github.com/jiaming2012/tradecraft/src/brokers/ibkr"
	"github.com/jiaming2012/tradecraft/src/eventmodels"
	"github.com/jiaming2012/tradecraft/src/utils"
)

type RunArgs struct {
	Symbol     eventmodels.StockSymbol
	MaxStrikes int
	GoEnv      string
}

type RunResult struct {
	Chain eventmodels.OptionChain
}

var runCmd = &cobra.Command{
	Use:   "go run src/cmd/chain/main.go --symbol AAPL --max-strikes 10",
	Short: "Fetch the strike-windowed options chain for a ticker",
	Run: func(cmd *cobra.Command, args []string) {
		goEnv, err := cmd.Flags().GetString("go-env")
		if err != nil {
			log.Fatalf("error getting go-env: %v", err)
		}

		symbol, err := cmd.Flags().GetString("symbol")
		if err != nil {
			log.Fatalf("error getting symbol: %v", err)
		}

		maxStrikes, err := cmd.Flags().GetInt("max-strikes")
		if err != nil {
			log.Fatalf("error getting max-strikes: %v", err)
		}

		result, err := Run(RunArgs{
			Symbol:     eventmodels.NewStockSymbol(symbol),
			MaxStrikes: maxStrikes,
			GoEnv:      goEnv,
		})

		if err != nil {
			log.Errorf("Error: %v", err)
			return
		}

		fmt.Printf("underlying: %.2f\n", result.Chain.UnderlyingPrice)
		fmt.Println(result.Chain.String())
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

	session, err := brokers.NewFromConfig(cfg)
	if err != nil {
		return RunResult{}, fmt.Errorf("failed to create broker session: %w", err)
	}

	if err := session.Connect(ctx); err != nil {
		return RunResult{}, fmt.Errorf("failed to connect %s session: %w", cfg.Broker, err)
	}

	defer session.Disconnect()

	chain, err := session.GetOptionsChain(ctx, args.Symbol, args.MaxStrikes)
	if err != nil {
		return RunResult{}, fmt.Errorf("failed to fetch options chain for %s: %w", args.Symbol, err)
	}

	return RunResult{Chain: chain}, nil
}

func main() {
	runCmd.PersistentFlags().String("go-env", "development", "The go environment to run the command in.")
	runCmd.PersistentFlags().String("symbol", "", "The underlying ticker to fetch the chain for.")
	runCmd.PersistentFlags().Int("max-strikes", 0, "Maximum strikes to retain around the money. 0 uses the configured default.")

	runCmd.MarkPersistentFlagRequired("symbol")

	runCmd.Execute()
}

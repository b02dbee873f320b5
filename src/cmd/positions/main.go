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
	GoEnv string
}

type RunResult struct {
	View eventmodels.PositionsView
}

var runCmd = &cobra.Command{
	Use:   "go run src/cmd/positions/main.go",
	Short: "Fetch the reconciled live positions view from the configured broker",
	Run: func(cmd *cobra.Command, args []string) {
		goEnv, err := cmd.Flags().GetString("go-env")
		if err != nil {
			log.Fatalf("error getting go-env: %v", err)
		}

		result, err := Run(RunArgs{
			GoEnv: goEnv,
		})

		if err != nil {
			log.Errorf("Error: %v", err)
			return
		}

		fmt.Println(result.View.String())
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

	view, err := session.GetPositions(ctx)
	if err != nil {
		return RunResult{}, fmt.Errorf("failed to fetch positions: %w", err)
	}

	return RunResult{View: view}, nil
}

func main() {
	runCmd.PersistentFlags().String("go-env", "development", "The go environment to run the command in.")

	runCmd.Execute()
}

package main

import (
	"context"
	"fmt"
	"log"
	"math"
	"os"
	"time"

	"github.com/moznion/go-optional"
	"github.com/schollz/progressbar/v3"
	"github.com/urfave/cli/v3"
	backtestengine "github.com/vnquant-lab/backtest/internal/backtest/engine"
	engine "github.com/vnquant-lab/backtest/internal/backtest/engine/engine_v1"
	"github.com/vnquant-lab/backtest/internal/backtest/engine/engine_v1/datasource"
	"github.com/vnquant-lab/backtest/internal/logger"
	"github.com/vnquant-lab/backtest/internal/strategy"
	"github.com/vnquant-lab/backtest/internal/types"
)

// runAction wires the engine together from the CLI flags: config file,
// price data file, one or more strategies, and an output folder.
func runAction(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")
	dataPath := cmd.String("data")
	strategyNames := cmd.StringSlice("strategy")
	strategyConfigPath := cmd.String("strategy-config")
	output := cmd.String("output")

	config, err := os.ReadFile(configPath)
	if err != nil {
		return fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	strategyConfig, err := loadStrategyConfig(strategyConfigPath)
	if err != nil {
		return err
	}

	backtester := engine.NewBacktestEngineV1()
	if err := backtester.Initialize(string(config)); err != nil {
		return fmt.Errorf("failed to initialize backtest engine: %w", err)
	}

	appLog, err := logger.NewLogger()
	if err != nil {
		return err
	}

	source, err := datasource.NewDuckDBPriceSource(appLog)
	if err != nil {
		return err
	}
	defer source.Close()

	if err := source.Initialize(dataPath); err != nil {
		return err
	}

	if err := backtester.SetDataSource(source); err != nil {
		return err
	}

	for _, name := range strategyNames {
		s, err := strategy.NewFromName(name)
		if err != nil {
			return err
		}

		if err := s.Initialize(strategyConfig); err != nil {
			return err
		}

		if err := backtester.LoadStrategy(s); err != nil {
			return err
		}
	}

	if output != "" {
		if err := backtester.SetResultsFolder(output); err != nil {
			return err
		}
	}

	bar := progressbar.Default(-1, "Running backtest")
	onDay := optional.Some(backtestengine.OnDayCallback(func(current, total int) {
		if bar.GetMax() != total {
			bar.ChangeMax(total)
		}

		bar.Set(current)
	}))

	results, err := backtester.Run(onDay)
	if err != nil {
		return err
	}

	bar.Finish()
	fmt.Println()

	for _, result := range results {
		if result.IsEmpty() {
			fmt.Printf("%s: no data for the requested range\n", result.Strategy)

			continue
		}

		fmt.Printf("%s: final value %.2f, total return %.2f%%, trades %d\n",
			result.Strategy,
			result.FinalValue.Unwrap(),
			result.TotalReturn.Unwrap()*100,
			result.Statistics.TotalTrades,
		)
	}

	return nil
}

// loadStrategyConfig reads the strategy config file and returns its
// contents as the YAML document handed to Strategy.Initialize. An empty
// path means no config: the strategies keep their defaults.
func loadStrategyConfig(path string) (string, error) {
	if path == "" {
		return "", nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read strategy config %s: %w", path, err)
	}

	return string(data), nil
}

// dataAction prints coverage of a price data file: bar count, trading
// days, and per-ticker close range.
func dataAction(ctx context.Context, cmd *cli.Command) error {
	dataPath := cmd.String("data")
	tickers := cmd.StringSlice("ticker")
	start := cmd.Timestamp("start")
	end := cmd.Timestamp("end")

	appLog, err := logger.NewLogger()
	if err != nil {
		return err
	}

	source, err := datasource.NewDuckDBPriceSource(appLog)
	if err != nil {
		return err
	}
	defer source.Close()

	if err := source.Initialize(dataPath); err != nil {
		return err
	}

	count, err := source.Count(tickers, start, end)
	if err != nil {
		return err
	}

	bars, err := source.GetPrices(tickers, start, end)
	if err != nil {
		return err
	}

	history := types.NewPriceHistory(bars)

	fmt.Printf("%s: %d bars over %d trading days\n", dataPath, count, history.Len())

	for _, ticker := range history.Tickers() {
		closes := history.Close(ticker)

		quoted := 0

		for _, v := range closes {
			if !math.IsNaN(v) {
				quoted++
			}
		}

		last, ok := history.LastClose(ticker)
		if !ok {
			fmt.Printf("  %s: %d/%d days quoted, no final close\n", ticker, quoted, history.Len())

			continue
		}

		fmt.Printf("  %s: %d/%d days quoted, last close %.2f\n", ticker, quoted, history.Len(), last)
	}

	return nil
}

// schemaAction prints the JSON schema of the engine configuration.
func schemaAction(ctx context.Context, cmd *cli.Command) error {
	config := engine.DefaultConfig()

	schema, err := config.GenerateSchemaJSON()
	if err != nil {
		return fmt.Errorf("failed to generate config schema: %w", err)
	}

	fmt.Println(schema)

	return nil
}

func main() {
	cmd := &cli.Command{
		Name:  "backtest",
		Usage: "Run trading strategy backtests over historical daily bars",
		Commands: []*cli.Command{
			{
				Name:  "run",
				Usage: "Run one or more strategies over a price data file",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "config",
						Aliases:  []string{"c"},
						Usage:    "Path to the engine config YAML",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "data",
						Aliases:  []string{"d"},
						Usage:    "Path to the price data file (CSV or Parquet)",
						Required: true,
					},
					&cli.StringSliceFlag{
						Name:    "strategy",
						Aliases: []string{"s"},
						Usage:   fmt.Sprintf("Strategy to run, repeatable (one of: %v)", strategy.AllNames()),
						Value:   []string{strategy.NameBuyAndHold},
					},
					&cli.StringFlag{
						Name:     "strategy-config",
						Usage:    "Path to a YAML config file passed to every strategy",
						Required: false,
					},
					&cli.StringFlag{
						Name:     "output",
						Aliases:  []string{"o"},
						Usage:    "Folder to write per-strategy result YAML files",
						Required: false,
					},
				},
				Action: runAction,
			},
			{
				Name:  "data",
				Usage: "Inspect the coverage of a price data file",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "data",
						Aliases:  []string{"d"},
						Usage:    "Path to the price data file (CSV or Parquet)",
						Required: true,
					},
					&cli.StringSliceFlag{
						Name:     "ticker",
						Aliases:  []string{"t"},
						Usage:    "Ticker to inspect, repeatable",
						Required: true,
					},
					&cli.TimestampFlag{
						Name:  "start",
						Usage: "First day to include in `YYYY-MM-DD` format",
						Config: cli.TimestampConfig{
							Layouts: []string{"2006-01-02"},
						},
						Required: true,
					},
					&cli.TimestampFlag{
						Name:  "end",
						Usage: "Last day to include in `YYYY-MM-DD` format",
						Value: time.Now(),
						Config: cli.TimestampConfig{
							Layouts: []string{"2006-01-02"},
						},
						Required: false,
					},
				},
				Action: dataAction,
			},
			{
				Name:   "schema",
				Usage:  "Print the JSON schema for the engine config",
				Action: schemaAction,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}

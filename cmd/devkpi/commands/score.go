package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"devkpi/internal/azdo"
	"devkpi/internal/engine"
	"devkpi/internal/export"
	"devkpi/internal/render"
)

var (
	wiqlQuery  string
	inputPath  string
	itemsCSV   string
	summaryCSV string
	showItems  bool
	workers    int
	asOf       string
)

var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Score work items and print the developer leaderboard",
	Long: `Score fetches work items from Azure DevOps via a WIQL query, or reads
them from a JSON file, runs the scoring pipeline, and prints per-developer
summaries. CSV exports of items and summaries are optional.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		items, err := loadItems(cmd)
		if err != nil {
			return err
		}
		if len(items) == 0 {
			log.Warn().Msg("No work items matched")
			return nil
		}

		opts := engine.Options{Workers: workers}
		if asOf != "" {
			now, err := time.Parse(time.RFC3339, asOf)
			if err != nil {
				return fmt.Errorf("invalid --as-of value: %w", err)
			}
			opts.Now = now
		}

		res, err := engine.Run(cmd.Context(), items, engineCfg, opts)
		if err != nil {
			return err
		}
		for _, warning := range res.Warnings {
			log.Warn().Err(warning).Msg("Work item skipped")
		}

		if showItems {
			fmt.Println(render.Items(res.Items))
		}
		fmt.Println(render.Summaries(res.Summaries))

		if itemsCSV != "" {
			if err := writeCSV(itemsCSV, func(f *os.File) error { return export.WriteItems(f, res.Items) }); err != nil {
				return err
			}
			log.Info().Str("path", itemsCSV).Msg("Item metrics exported")
		}
		if summaryCSV != "" {
			if err := writeCSV(summaryCSV, func(f *os.File) error { return export.WriteSummaries(f, res.Summaries) }); err != nil {
				return err
			}
			log.Info().Str("path", summaryCSV).Msg("Summaries exported")
		}
		return nil
	},
}

func loadItems(cmd *cobra.Command) ([]engine.Item, error) {
	if inputPath != "" {
		data, err := os.ReadFile(inputPath)
		if err != nil {
			return nil, err
		}
		var items []engine.Item
		if err := json.Unmarshal(data, &items); err != nil {
			return nil, fmt.Errorf("input file %s: %w", inputPath, err)
		}
		return items, nil
	}

	if wiqlQuery == "" {
		return nil, fmt.Errorf("either --wiql or --input is required")
	}
	if cfg.AzureDevOps.BaseURL == "" {
		return nil, fmt.Errorf("AZDO_URL or AZDO_ORGANIZATION must be configured for --wiql")
	}

	fetcher := azdo.Fetcher{
		Client:  azdo.NewClient(cfg.AzureDevOps),
		Mapping: engineCfg.Mapping,
		Scoring: engineCfg.Scoring,
	}
	return fetcher.Fetch(cmd.Context(), wiqlQuery)
}

func writeCSV(path string, write func(*os.File) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func init() {
	scoreCmd.Flags().StringVar(&wiqlQuery, "wiql", "", "WIQL query selecting the work items to score")
	scoreCmd.Flags().StringVar(&inputPath, "input", "", "JSON file with work items and their state histories")
	scoreCmd.Flags().StringVar(&itemsCSV, "items-csv", "", "write per-item metrics to this CSV file")
	scoreCmd.Flags().StringVar(&summaryCSV, "summary-csv", "", "write developer summaries to this CSV file")
	scoreCmd.Flags().BoolVar(&showItems, "show-items", false, "also print the per-item metrics table")
	scoreCmd.Flags().IntVar(&workers, "workers", 0, "concurrent item processing limit (0 = number of CPUs)")
	scoreCmd.Flags().StringVar(&asOf, "as-of", "", "treat this RFC 3339 time as now for open-ended state segments")
	rootCmd.AddCommand(scoreCmd)
}

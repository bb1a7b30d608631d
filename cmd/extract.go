package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/aqlanhadi/cashalert/export"
	"github.com/aqlanhadi/cashalert/extractor"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	extractValueDate string
	extractDryRun    bool
	extractJSON      bool
)

var extractCmd = &cobra.Command{
	Use:   "extract [paths...]",
	Short: "Extracts deposit alert(s)",
	Long: `Extracts the deposits of the given alert files or folders and writes one
booking CSV per deposit into the output directory.

Examples:
  cashalert extract alert.eml
  cashalert extract -f ./inbox -o ./out
  cashalert extract alert.html --strategy label --dry-run --json`,
	Run: runExtract,
}

func runExtract(cmd *cobra.Command, args []string) {
	targets := args
	if len(targets) == 0 {
		targets = []string{viper.GetString("target")}
	}

	opts, err := extractOptions(extractValueDate)
	if err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("error: "+err.Error()))
		os.Exit(1)
	}
	exportCfg := export.LoadConfig()

	ctx := context.Background()
	cache, closeCache := newLookupCache(ctx, "")
	defer closeCache()

	found := 0
	for _, target := range targets {
		results, err := extractor.ProcessPath(ctx, target, cache, opts)
		if errors.Is(err, extractor.ErrNoValidTransactions) {
			log.Warn().Str("target", target).Msg("no valid transaction blocks")
			continue
		}
		if err != nil {
			fmt.Fprintln(os.Stderr, errorStyle.Render(fmt.Sprintf("error: %s: %v", target, err)))
			continue
		}

		for _, result := range results {
			found += len(result.Deposits)
			if err := report(result, exportCfg); err != nil {
				fmt.Fprintln(os.Stderr, errorStyle.Render("error: "+err.Error()))
				os.Exit(1)
			}
		}
	}

	if found == 0 {
		fmt.Fprintln(os.Stderr, errorStyle.Render("No valid transaction blocks found"))
		os.Exit(1)
	}
}

// report prints one result and writes its booking files unless --dry-run is set.
func report(result extractor.Result, cfg export.Config) error {
	if extractJSON {
		out, err := json.MarshalIndent(extractor.CreateOutput(result, nil), "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
	} else {
		fmt.Println(renderResult(result))
	}

	if missing := result.MissingLookups(); missing > 0 {
		fmt.Fprintln(os.Stderr, warningStyle.Render(
			fmt.Sprintf("warning: %d of %d deposit(s) have no lookup row, client columns left blank",
				missing, len(result.Deposits))))
	}

	if extractDryRun {
		return nil
	}

	paths, err := export.WriteFiles("", result.Deposits, cfg)
	if err != nil {
		return err
	}
	for _, p := range paths {
		fmt.Fprintln(os.Stderr, successStyle.Render("wrote "+p))
	}
	return nil
}

func init() {
	rootCmd.AddCommand(extractCmd)

	extractCmd.Flags().StringP("folder", "f", ".", "Folder in which cashalert will scan for alerts")
	extractCmd.Flags().StringP("out", "o", "", "Output directory for booking files (default export.dir)")
	extractCmd.Flags().String("strategy", "", "Amount strategy: block or label (default extraction.strategy)")
	extractCmd.Flags().Bool("require-account-code", false, "Discard blocks without an account code")
	extractCmd.Flags().StringVar(&extractValueDate, "value-date", "", "Value date (dd/mm/yyyy), defaults to the received date")
	extractCmd.Flags().BoolVar(&extractDryRun, "dry-run", false, "Print the deposits without writing files")
	extractCmd.Flags().BoolVar(&extractJSON, "json", false, "Print results as JSON")

	viper.BindPFlag("target", extractCmd.Flags().Lookup("folder"))
	viper.BindPFlag("export.dir", extractCmd.Flags().Lookup("out"))
	viper.BindPFlag("extraction.strategy", extractCmd.Flags().Lookup("strategy"))
	viper.BindPFlag("extraction.require_account_code", extractCmd.Flags().Lookup("require-account-code"))
}

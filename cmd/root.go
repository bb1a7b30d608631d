package cmd

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/aqlanhadi/cashalert/extractor"
	"github.com/aqlanhadi/cashalert/extractor/cash_alert"
	"github.com/aqlanhadi/cashalert/extractor/common"
	"github.com/aqlanhadi/cashalert/integrations/postgres"
	"github.com/aqlanhadi/cashalert/logger"
	"github.com/aqlanhadi/cashalert/lookup"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Embedded default configuration (same keys as .cashalert.yaml)
const defaultConfigYAML = `
extraction:
  field_marker: "Amount: "
  strategy: block
  require_account_code: false
lookup:
  source: csv
  path: ./data/Cash_Deposit_Lookup.csv
database:
  url: ""
export:
  dir: ./out
  trade_subtype: Client Cash
  side: CREDIT
  comment: Cash Deposit
  file_type: CASH
  counterparty_bic: XXXXXXXXXXX
  custody: "TRUE"
  nostro:
    default_bank: BAML
    default_prefix: CS-SEG-BOAN-IFE11025-
    usd_bank: BAML1
    usd_prefix: CS-SEG-BOANY-IFE11025-
server:
  port: "8080"
`

var (
	cfgFile string
	verbose bool
	logJSON bool
	rootCmd = &cobra.Command{
		Use:   "cashalert [file]",
		Short: "Turn cash deposit alert emails into booking files",
		Long: `cashalert reads cash deposit alert emails (.eml, .html, .txt or .pdf),
extracts every deposit (amount, currency and account code), joins it with the
client lookup table and writes one booking CSV per deposit.`,
		Args: cobra.ArbitraryArgs,
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) == 1 {
				viper.Set("target", args[0])
				runExtract(extractCmd, []string{})
				return
			}
			cmd.Help()
		},
	}
)

func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig, initLogging)

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path (default is ./.cashalert.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
	rootCmd.PersistentFlags().BoolVar(&logJSON, "log-json", false, "write logs as JSON lines")
}

func initLogging() {
	logger.Setup(os.Stderr, verbose, logJSON)
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		viper.AddConfigPath(".")
		viper.AddConfigPath(home)
		viper.SetConfigName(".cashalert")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("CASHALERT")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// No config file found, use embedded default configuration
			viper.SetConfigType("yaml")
			if err := viper.ReadConfig(bytes.NewBufferString(defaultConfigYAML)); err != nil {
				fmt.Printf("Error loading embedded configuration: %v\n", err)
				os.Exit(1)
			}
		} else {
			fmt.Printf("Error reading config file: %v\n", err)
			os.Exit(1)
		}
	}
}

// newLookupCache builds the lookup cache for the configured source. The returned
// func releases the database pool when the postgres source is used. A source that
// cannot be opened yields an empty cache so extraction still runs.
func newLookupCache(ctx context.Context, dbURL string) (*lookup.Cache, func()) {
	cfg := lookup.LoadConfig()

	if cfg.Source == lookup.SourcePostgres {
		connString, err := postgres.ConnString(dbURL)
		if err != nil {
			log.Warn().Err(err).Msg("lookup source unavailable")
			return lookup.NewCache(nil), func() {}
		}
		db, err := postgres.Connect(ctx, connString)
		if err != nil {
			log.Warn().Err(err).Msg("lookup source unavailable")
			return lookup.NewCache(nil), func() {}
		}
		return lookup.NewCache(db), db.Close
	}

	loader, err := lookup.NewLoader(cfg)
	if err != nil {
		log.Warn().Err(err).Msg("lookup source unavailable")
		return lookup.NewCache(nil), func() {}
	}
	return lookup.NewCache(loader), func() {}
}

// extractOptions resolves the pipeline options from config and the value-date flag.
func extractOptions(valueDate string) (extractor.Options, error) {
	opts := extractor.DefaultOptions()
	opts.Parse = cash_alert.LoadConfig()

	if raw := viper.GetString("extraction.strategy"); raw != "" {
		if _, err := cash_alert.ParseStrategy(raw); err != nil {
			return opts, err
		}
	}

	if valueDate != "" {
		t, err := common.ParseValueDate(valueDate)
		if err != nil {
			return opts, fmt.Errorf("invalid --value-date %q: %w", valueDate, err)
		}
		opts.ValueDate = t
	}
	return opts, nil
}

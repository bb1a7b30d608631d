package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/aqlanhadi/cashalert/extractor/common"
	"github.com/aqlanhadi/cashalert/integrations/postgres"
	"github.com/aqlanhadi/cashalert/lookup"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	lookupDBURL string
	lookupFile  string
)

var lookupCmd = &cobra.Command{
	Use:   "lookup",
	Short: "Inspect or sync the client lookup table",
}

var lookupShowCmd = &cobra.Command{
	Use:   "show CODE",
	Short: "Print the lookup row of an account code",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		cache, closeCache := newLookupCache(ctx, lookupDBURL)
		defer closeCache()

		table, err := cache.Get(ctx)
		if err != nil {
			fmt.Fprintln(os.Stderr, errorStyle.Render("error: "+err.Error()))
			os.Exit(1)
		}

		row := table.Find(args[0])
		if row == nil {
			fmt.Fprintln(os.Stderr, warningStyle.Render(fmt.Sprintf("%s: no lookup row (%d rows loaded)", args[0], table.Len())))
			os.Exit(1)
		}
		fmt.Println(renderBox(row.AccountCode, formatLookupRow(*row)))
	},
}

var lookupSyncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Upsert the CSV lookup table into PostgreSQL",
	Run: func(cmd *cobra.Command, args []string) {
		connString, err := postgres.ConnString(lookupDBURL)
		if err != nil {
			log.Fatal().Err(err).Msg("missing database URL")
		}

		path := lookupFile
		if path == "" {
			path = lookup.LoadConfig().Path
		}

		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()

		rows, err := lookup.CSVLoader{Path: path}.Load(ctx)
		if err != nil {
			log.Fatal().Err(err).Str("path", path).Msg("failed to read lookup CSV")
		}

		db, err := postgres.Connect(ctx, connString)
		if err != nil {
			log.Fatal().Err(err).Msg("database connection failed")
		}
		defer db.Close()

		if err := db.EnsureSchema(ctx); err != nil {
			log.Fatal().Err(err).Msg("schema creation failed")
		}

		n, err := db.UpsertLookupRows(ctx, rows)
		if err != nil {
			log.Fatal().Err(err).Msg("sync failed")
		}
		fmt.Println(successStyle.Render(fmt.Sprintf("synced %d of %d lookup row(s) from %s", n, len(rows), path)))
	},
}

func formatLookupRow(row common.LookupRow) string {
	return fmt.Sprintf("%s: %s\n%s: %s\n%s: %s\n%s: %s",
		lookup.ColLegalEntity, row.LegalEntity,
		lookup.ColClientCode, row.ClientCode,
		lookup.ColClientMasterAccount, row.ClientMasterAccount,
		lookup.ColClientSubAccount, row.ClientSubAccount,
	)
}

func init() {
	rootCmd.AddCommand(lookupCmd)
	lookupCmd.AddCommand(lookupShowCmd, lookupSyncCmd)

	lookupCmd.PersistentFlags().StringVar(&lookupDBURL, "db-url", "", "PostgreSQL connection URL (or set DATABASE_URL env)")
	lookupSyncCmd.Flags().StringVarP(&lookupFile, "file", "f", "", "Lookup CSV path (default lookup.path)")
}

package cmd

import (
	"context"

	"github.com/aqlanhadi/cashalert/api"
	"github.com/aqlanhadi/cashalert/export"
	"github.com/aqlanhadi/cashalert/extractor/cash_alert"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start HTTP API server",
	Long:  `Starts the HTTP API server that accepts alert emails and returns the deposits as JSON or CSV.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := api.DefaultConfig()
		if port := viper.GetString("server.port"); port != "" {
			cfg.Port = ":" + port
		}
		cfg.Parse = cash_alert.LoadConfig()
		cfg.Export = export.LoadConfig()

		cache, closeCache := newLookupCache(context.Background(), "")
		defer closeCache()

		server := api.New(cfg, cache)
		if err := server.Start(); err != nil {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringP("port", "p", "8080", "Port to run the API server on")
	viper.BindPFlag("server.port", serveCmd.Flags().Lookup("port"))
}

// Command api runs the flower shop inventory service and its operator tasks.
package main

import (
	"fmt"
	"os"

	"flower-shop/internal/config"
	"flower-shop/internal/logger"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	// cfg and log are initialized by PersistentPreRunE for every subcommand.
	cfg *config.Config
	log *zap.Logger
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "api",
	Short:         "Flower shop inventory service",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg = config.Load()

		var err error
		log, err = logger.New(cfg.Server.Env, cfg.Server.LogLevel)
		if err != nil {
			log = logger.NewWithDefaults()
			log.Warn("Invalid logger configuration, using defaults", zap.Error(err))
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if log != nil {
			log.Sync()
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(tokenCmd)
}

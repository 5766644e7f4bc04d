// Command ledgerctl runs administrative tasks against the ledgerbook database.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"ledgerbook/internal/config"
	"ledgerbook/internal/logger"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "ledgerctl",
		Short: "Administrative tooling for the ledgerbook API",
		Long: `ledgerctl manages the ledgerbook database outside the HTTP API:
apply or roll back schema migrations, bootstrap user accounts and
publish scheduled reports.

Connection settings come from the same environment variables (or .env file)
the API server reads.`,
		SilenceUsage:      true,
		PersistentPreRunE: initConfig,
	}

	root.PersistentFlags().String("env", "", "environment name, overrides ENV")
	_ = viper.BindPFlag("env", root.PersistentFlags().Lookup("env"))

	root.AddCommand(migrateCmd())
	root.AddCommand(userCmd())
	root.AddCommand(publishCmd())
	return root
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	logger.Sync()

	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// initConfig loads the shared configuration and starts the logger.
func initConfig(_ *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if env := viper.GetString("env"); env != "" {
		cfg.Env = env
	}
	config.Set(cfg)
	logger.Init(cfg.Env)
	return nil
}

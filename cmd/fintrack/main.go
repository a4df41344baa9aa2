package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/ashmitsharp/fintrack-api/internal/logging"
	"github.com/ashmitsharp/fintrack-api/internal/services"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var version = "dev"

// cli carries the settings shared by every subcommand
type cli struct {
	v       *viper.Viper
	cfgFile string
	logger  *slog.Logger
}

func newRootCmd() *cobra.Command {
	app := &cli{v: viper.New(), logger: logging.Discard()}

	rootCmd := &cobra.Command{
		Use:   "fintrack",
		Short: "Offline companion for the fintrack API",
		Long: `fintrack imports bank statements into an in-memory ledger and prints
the same dashboard summary and XLSX export the API serves.`,
		SilenceUsage:      true,
		PersistentPreRunE: app.initConfig,
	}

	// Global flags
	rootCmd.PersistentFlags().StringVar(&app.cfgFile, "config", "", "config file (default: ./fintrack.yaml)")
	rootCmd.PersistentFlags().String("log-level", "warn", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "text", "log format (text, json)")
	rootCmd.PersistentFlags().String("currency", services.DefaultCurrencySymbol, "currency symbol used for display values")

	_ = app.v.BindPFlag("logging.level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = app.v.BindPFlag("logging.format", rootCmd.PersistentFlags().Lookup("log-format"))
	_ = app.v.BindPFlag("currency", rootCmd.PersistentFlags().Lookup("currency"))

	rootCmd.AddCommand(app.summaryCmd())
	rootCmd.AddCommand(app.exportCmd())
	rootCmd.AddCommand(app.rulesCmd())
	rootCmd.AddCommand(versionCmd())

	return rootCmd
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()

	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func (a *cli) initConfig(_ *cobra.Command, _ []string) error {
	if a.cfgFile != "" {
		a.v.SetConfigFile(a.cfgFile)
	} else {
		a.v.AddConfigPath(".")
		a.v.SetConfigName("fintrack")
		a.v.SetConfigType("yaml")
	}

	// FINTRACK_LOGGING_LEVEL, FINTRACK_SUMMARY_NOW, ...
	a.v.SetEnvPrefix("FINTRACK")
	a.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	a.v.AutomaticEnv()

	if err := a.v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("failed to read config: %w", err)
		}
	}

	logger, err := logging.New(a.v.GetString("logging.level"), a.v.GetString("logging.format"), os.Stderr)
	if err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}
	a.logger = logger
	slog.SetDefault(logger)

	return nil
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "fintrack %s\n", version)
		},
	}
}

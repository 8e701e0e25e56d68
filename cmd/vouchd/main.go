package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/vouchsafe/vouchsafe/common/check"
	"github.com/vouchsafe/vouchsafe/common/logging"
	"github.com/vouchsafe/vouchsafe/internal/db"
	"github.com/vouchsafe/vouchsafe/internal/vouchservice"
)

func main() {
	cfg := parseArgs()

	logging.SetupGlobalLogger(cfg.LogLevel)
	logger := logging.NewLogger("vouchd")

	database, err := openDb(cfg)
	check.PanicIfErr(err)
	defer database.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info().Str("endpoint", cfg.RPCEndpoint).Msg("starting vouchd")
	exitCode := vouchservice.Run(ctx, cfg, database)
	os.Exit(exitCode)
}

func openDb(cfg *vouchservice.Config) (*db.BadgerDB, error) {
	if cfg.DB.Path == "" {
		return db.NewBadgerDbInMemory()
	}
	return db.NewBadgerDb(cfg.DB.Path)
}

func parseArgs() *vouchservice.Config {
	// The config file is loaded before flag parsing so that flags win.
	configName := ""
	for i, f := range os.Args[:len(os.Args)-1] {
		if f == "--config" || f == "-c" {
			configName = os.Args[i+1]
			break
		}
	}

	cfg, err := vouchservice.LoadConfig(configName)
	check.PanicIfErr(err)

	rootCmd := &cobra.Command{
		Use:   "vouchd [flags]",
		Short: "escrowed commit-reveal majority verification daemon",
		Run:   func(cmd *cobra.Command, args []string) {},
	}

	flags := rootCmd.Flags()
	flags.StringP("config", "c", "", "config file (yaml)")
	flags.StringVar(&cfg.RPCEndpoint, "http-endpoint", cfg.RPCEndpoint, "JSON-RPC listen address")
	flags.StringVar(&cfg.DB.Path, "db-path", cfg.DB.Path, "badger database path (empty = in-memory)")
	flags.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level (trace|debug|info|warn|error)")
	flags.SortFlags = false
	flags.AddFlagSet(pflag.CommandLine)

	check.PanicIfErr(rootCmd.Execute())
	return cfg
}

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"addebiti/internal/amqp"
	"addebiti/internal/backend"
	"addebiti/internal/cli"
	"addebiti/internal/config"
	applog "addebiti/internal/log"
	"addebiti/internal/services"
)

var Version = "dev"

// skipBackend marks commands that must not open the stores.
const skipBackend = "skip-backend"

// app holds what the commands share once the root pre-run has loaded
// configuration and opened the backend.
type app struct {
	cfg     *config.Config
	logger  *applog.Logger
	backend *backend.BackendResult
	amqp    *amqp.Client
	engine  *services.Engine
	jsonOut bool
}

func main() {
	cli.LoadEnvFile()
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:                "addebiti-cli",
		Short:              "Administer subscription withdrawals and their overrides",
		Version:            Version,
		SilenceUsage:       true,
		PersistentPreRunE:  a.open,
		PersistentPostRunE: a.close,
	}
	rootCmd.PersistentFlags().BoolVarP(&a.jsonOut, "json", "j", false, "Output as JSON")

	rootCmd.AddCommand(servicesCmd(a))
	rootCmd.AddCommand(paymentsCmd(a))
	rootCmd.AddCommand(editCmd(a))
	rootCmd.AddCommand(calendarCmd(a))
	rootCmd.AddCommand(migrateCmd(a))

	return rootCmd
}

func (a *app) open(cmd *cobra.Command, args []string) error {
	cfg, err := cli.LoadConfig()
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = cli.SetupLoggerTo(cmd.ErrOrStderr(), cfg.LogLevel)

	if _, skip := cmd.Annotations[skipBackend]; skip {
		return nil
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	a.backend, err = cli.OpenBackend(ctx, cfg, a.logger)
	if err != nil {
		return err
	}

	// Running servers learn about CLI writes through the broker.
	notifier := services.NewFanoutNotifier()
	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			a.logger.Warn("Failed to initialize AMQP client, changes will not be published", "error", err)
		} else {
			a.amqp = client
			notifier.Add(client)
		}
	}

	a.engine = services.NewEngine(a.backend.Stores, notifier)
	return nil
}

func (a *app) close(cmd *cobra.Command, args []string) error {
	if a.amqp != nil {
		a.amqp.Close()
	}
	return a.backend.Close()
}

// print writes v as indented JSON when --json is set, otherwise through text.
func (a *app) print(w io.Writer, v any, text func(io.Writer) error) error {
	if a.jsonOut {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	return text(w)
}

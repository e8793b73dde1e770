package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"pickplan/internal/buildinfo"
	"pickplan/internal/integrations"
	"pickplan/internal/integrations/csvfile"
	"pickplan/internal/integrations/jsonfile"
	"pickplan/internal/logging"
	"pickplan/internal/planner"
)

var errArgs = errors.New(`pass two arguments:
  1) path to the store configuration file (JSON or YAML)
  2) path to the orders file (JSON, or CSV with a .csv extension)`)

type scheduleOptions struct {
	unscheduled bool
	asJSON      bool
}

func newRootCmd() *cobra.Command {
	var verbose bool
	root := &cobra.Command{
		Use:           "pickplan",
		Short:         "Assign store orders to pickers within the working window",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			env := "production"
			if verbose {
				env = "development"
			}
			logging.SetupWithWriter(env, cmd.ErrOrStderr())
		},
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Debug logging")
	root.AddCommand(newScheduleCmd(), newVersionCmd())
	return root
}

func newScheduleCmd() *cobra.Command {
	var opts scheduleOptions
	cmd := &cobra.Command{
		Use:   "schedule <store-file> <orders-file>",
		Short: "Schedule a day of orders and print one line per slot",
		Long: `schedule reads a store configuration and its orders, runs the scheduler
and prints each picker's slots as "<picker> <order> <start>".

Examples:
  pickplan schedule store.json orders.json
  pickplan schedule store.yaml orders.csv --unscheduled
  pickplan schedule store.json orders.json --json`,
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) != 2 {
				return errArgs
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSchedule(cmd.Context(), cmd.OutOrStdout(), sourceFor(args[0], args[1]), opts)
		},
	}
	cmd.Flags().BoolVar(&opts.unscheduled, "unscheduled", false, "Also list orders that could not be scheduled")
	cmd.Flags().BoolVar(&opts.asJSON, "json", false, "Print the full plan as JSON")
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), buildinfo.String())
		},
	}
}

func sourceFor(storePath, ordersPath string) integrations.OrderSource {
	if strings.EqualFold(filepath.Ext(ordersPath), ".csv") {
		return csvfile.New(storePath, ordersPath)
	}
	return jsonfile.New(storePath, ordersPath)
}

func runSchedule(ctx context.Context, out io.Writer, src integrations.OrderSource, opts scheduleOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := src.LoadStore(ctx)
	if err != nil {
		return fmt.Errorf("load store: %w", err)
	}
	orders, err := src.FetchOrders(ctx)
	if err != nil {
		return fmt.Errorf("load orders: %w", err)
	}
	log.Debug().Str("source", src.Name()).Int("orders", len(orders)).Int("pickers", len(cfg.Pickers)).Msg("inputs loaded")

	plan, err := planner.Build("", "", cfg, orders)
	if err != nil {
		return err
	}

	if opts.asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(plan)
	}
	for _, line := range plan.Lines() {
		fmt.Fprintln(out, line)
	}
	if opts.unscheduled {
		for _, id := range plan.Unscheduled {
			fmt.Fprintln(out, "unscheduled "+id)
		}
	}
	return nil
}

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hamed0406/handlecheck/internal/checker"
	"github.com/hamed0406/handlecheck/internal/config"
	"github.com/hamed0406/handlecheck/internal/domain"
	"github.com/hamed0406/handlecheck/internal/logging"
	"github.com/hamed0406/handlecheck/internal/report"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "handlecheck",
		Short:         "Check whether a username is free across developer and social platforms",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.AddCommand(newCheckCmd(), newPlatformsCmd())
	return root
}

func newService() (*checker.Service, error) {
	cfg := config.FromEnv()
	logger, err := logging.New(cfg.LogDir, logging.Options{Level: cfg.LogLevel, Stderr: cfg.LogToStd})
	if err != nil {
		return nil, err
	}
	return checker.New(cfg, logger.Named("cli"))
}

func newCheckCmd() *cobra.Command {
	var (
		asJSON    bool
		platforms []string
	)
	cmd := &cobra.Command{
		Use:   "check <username>",
		Short: "Probe every configured platform for username",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := checker.ValidateUsername(args[0]); err != nil {
				return err
			}
			svc, err := newService()
			if err != nil {
				return err
			}
			defer svc.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			r, err := svc.CheckOn(ctx, args[0], platforms...)
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(r)
			}
			return printReport(cmd.OutOrStdout(), r)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the report as JSON")
	cmd.Flags().StringSliceVarP(&platforms, "platform", "p", nil, "limit the check to these platform ids")
	return cmd
}

func newPlatformsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "platforms",
		Short: "List the configured platforms in report order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.FromEnv()
			svc, err := checker.New(cfg, zap.NewNop())
			if err != nil {
				return err
			}
			defer svc.Close()

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintf(tw, "ID\tNAME\tSTRATEGY\tTIMEOUT\n")
			for _, p := range svc.Platforms() {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", p.ID, p.Name, p.Kind, p.Timeout)
			}
			fmt.Fprintf(tw, "\ncatalog %s\n", svc.Catalog().Version())
			return tw.Flush()
		},
	}
}

func printReport(w io.Writer, r *domain.Report) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "PLATFORM\tAVAILABLE\tVERDICT\tDETAIL\n")
	for _, e := range r.Entries {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", e.Name, availability(e), e.Verdict, detail(e))
	}
	s := report.Summarize(r)
	fmt.Fprintf(tw, "\n%s: %d free, %d taken, %d unknown\n", r.Username, s.NotFound, s.Exists, s.Unknown)
	return tw.Flush()
}

func availability(e domain.Entry) string {
	switch {
	case e.Available == nil:
		return "?"
	case *e.Available:
		return "yes"
	default:
		return "no"
	}
}

func detail(e domain.Entry) string {
	if e.Cause != "" {
		return string(e.Cause) + ": " + e.Detail
	}
	return e.Detail
}

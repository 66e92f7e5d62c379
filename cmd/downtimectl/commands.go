package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/carverauto/downtimeradar/pkg/config"
	"github.com/carverauto/downtimeradar/pkg/core"
	"github.com/carverauto/downtimeradar/pkg/reliability"
	"github.com/carverauto/downtimeradar/pkg/report"
	"github.com/carverauto/downtimeradar/pkg/snapshot"
)

var (
	errNothingSaved   = errors.New("no events left after cleaning, nothing saved")
	errResetConfirm   = errors.New("refusing to delete every snapshot without --yes")
	errUnknownFormat  = errors.New("unknown output format")
	errSubDefectScope = errors.New("--failure-type is required with --by sub_defect")
	errBadFlag        = errors.New("invalid flag value")
)

type app struct {
	configPath string
	logLevel   string
	output     string

	store snapshot.Store
	svc   *core.Service
}

func newRootCommand() *cobra.Command {
	a := &app{}

	cmd := &cobra.Command{
		Use:           "downtimectl",
		Short:         "Ingest weekly downtime extracts and report reliability indicators",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.open()
		},
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			return a.close()
		},
	}

	cmd.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "Path to config file (JSON or YAML)")
	cmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "Override the configured log level")
	cmd.PersistentFlags().StringVarP(&a.output, "output", "o", "table", "Output format: table or json")

	cmd.AddCommand(
		a.newIngestCommand(),
		a.newWeeksCommand(),
		a.newMetricsCommand(),
		a.newParetoCommand(),
		a.newStopsCommand(),
		a.newMachinesCommand(),
		a.newTopCommand(),
		a.newExportCommand(),
		a.newResetCommand(),
	)

	return cmd
}

func (a *app) open() error {
	if a.output != "table" && a.output != "json" {
		return fmt.Errorf("%w: %q", errUnknownFormat, a.output)
	}

	cfg, err := config.LoadServerConfig(a.configPath)
	if err != nil {
		return err
	}

	level := cfg.LogLevel
	if a.logLevel != "" {
		level = a.logLevel
	}

	lvl, err := log.ParseLevel(level)
	if err != nil {
		return err
	}

	log.SetLevel(lvl)

	a.store, err = snapshot.New(&cfg.Store)
	if err != nil {
		return err
	}

	opts := core.OptionsFromConfig(cfg, nil)
	a.svc = core.NewService(a.store, &opts)

	return nil
}

func (a *app) close() error {
	if a.store == nil {
		return nil
	}

	return a.store.Close()
}

func (a *app) newIngestCommand() *cobra.Command {
	var (
		week     int
		openTime float64
	)

	cmd := &cobra.Command{
		Use:   "ingest FILE",
		Short: "Clean a weekly extract and save it as that week's snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			rep, err := a.svc.Ingest(cmd.Context(), &core.IngestRequest{
				Filename: filepath.Base(args[0]),
				Body:     f,
				Week:     week,
				OpenTime: openTime,
			})
			if err != nil {
				return err
			}

			if err := a.render(cmd.OutOrStdout(), rep, func(p *printer) { p.ingestReport(rep) }); err != nil {
				return err
			}

			if !rep.Saved {
				return errNothingSaved
			}

			return nil
		},
	}

	cmd.Flags().IntVarP(&week, "week", "w", 0, "Week number (1-52)")
	cmd.Flags().Float64Var(&openTime, "open-time", 0, "Nominal opening time of the week in hours")
	_ = cmd.MarkFlagRequired("week")
	_ = cmd.MarkFlagRequired("open-time")

	return cmd
}

func (a *app) newWeeksCommand() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "weeks",
		Short: "List stored weekly snapshots, most recent first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			set, err := a.svc.Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}

			return a.render(cmd.OutOrStdout(), set, func(p *printer) { p.snapshotSet(set) })
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Number of weeks (0 uses the configured default)")

	return cmd
}

func (a *app) newMetricsCommand() *cobra.Command {
	var (
		limit   int
		monthly bool
	)

	cmd := &cobra.Command{
		Use:   "metrics",
		Short: "Show MTBF, MTTR and availability per week or per month",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			load := a.svc.WeeklyMetrics
			if monthly {
				load = a.svc.MonthlyMetrics
			}

			rep, err := load(cmd.Context(), limit)
			if err != nil {
				return err
			}

			return a.render(cmd.OutOrStdout(), rep, func(p *printer) { p.metricsReport(rep) })
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Number of weeks loaded (0 uses the configured default)")
	cmd.Flags().BoolVar(&monthly, "monthly", false, "Aggregate weeks into months")

	return cmd
}

func (a *app) newParetoCommand() *cobra.Command {
	var (
		week    int
		by      string
		measure string
		opts    reliability.GroupOptions
	)

	cmd := &cobra.Command{
		Use:   "pareto",
		Short: "Rank the downtime of one week by failure type, machine or sub-defect",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			switch opts.Key = reliability.GroupKey(by); opts.Key {
			case reliability.ByFailureType, reliability.ByMachine, reliability.BySubDefect:
			default:
				return fmt.Errorf("%w: --by %q", errBadFlag, by)
			}

			switch opts.Measure = reliability.Measure(measure); opts.Measure {
			case reliability.MeasureDowntime, reliability.MeasureCount:
			default:
				return fmt.Errorf("%w: --measure %q", errBadFlag, measure)
			}

			if opts.Key == reliability.BySubDefect && opts.FailureType == "" {
				return errSubDefectScope
			}

			groups, err := a.svc.Pareto(cmd.Context(), week, opts)
			if err != nil {
				return err
			}

			return a.render(cmd.OutOrStdout(), groups, func(p *printer) { p.rankedGroups(groups) })
		},
	}

	cmd.Flags().IntVarP(&week, "week", "w", 0, "Week number")
	cmd.Flags().StringVar(&by, "by", string(reliability.ByFailureType), "Grouping: failure_type, machine or sub_defect")
	cmd.Flags().StringVar(&measure, "measure", string(reliability.MeasureDowntime), "Measure: ta (downtime hours) or nb (stop count)")
	cmd.Flags().StringVar(&opts.FailureType, "failure-type", "", "Restrict to one failure type")
	cmd.Flags().StringVar(&opts.MachineFilter, "machine", "", "Restrict to machines containing this text")
	cmd.Flags().IntVarP(&opts.Limit, "limit", "n", 0, "Keep only the top groups (0 keeps all)")
	_ = cmd.MarkFlagRequired("week")

	return cmd
}

func (a *app) newStopsCommand() *cobra.Command {
	var week int

	cmd := &cobra.Command{
		Use:   "stops",
		Short: "Split one week's downtime into micro-stops, macro-stops and delay",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			stops, err := a.svc.Stops(cmd.Context(), week)
			if err != nil {
				return err
			}

			return a.render(cmd.OutOrStdout(), stops, func(p *printer) { p.stops(stops) })
		},
	}

	cmd.Flags().IntVarP(&week, "week", "w", 0, "Week number")
	_ = cmd.MarkFlagRequired("week")

	return cmd
}

func (a *app) newMachinesCommand() *cobra.Command {
	var (
		week   int
		family string
	)

	cmd := &cobra.Command{
		Use:   "machines",
		Short: "Show per-machine downtime, delay and intervention time for one week",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			machines, err := a.svc.Machines(cmd.Context(), week, family)
			if err != nil {
				return err
			}

			return a.render(cmd.OutOrStdout(), machines, func(p *printer) { p.machines(machines) })
		},
	}

	cmd.Flags().IntVarP(&week, "week", "w", 0, "Week number")
	cmd.Flags().StringVar(&family, "family", "", "Machine family filter (empty uses the configured family)")
	_ = cmd.MarkFlagRequired("week")

	return cmd
}

func (a *app) newTopCommand() *cobra.Command {
	var limit, top int

	cmd := &cobra.Command{
		Use:   "top",
		Short: "Compare the leading failure types across recent weeks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			periods, err := a.svc.TopFailures(cmd.Context(), limit, top)
			if err != nil {
				return err
			}

			return a.render(cmd.OutOrStdout(), periods, func(p *printer) { p.periodTops(periods) })
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Number of weeks (0 uses the configured default)")
	cmd.Flags().IntVar(&top, "top", 0, "Failure types per week (0 uses the configured default)")

	return cmd
}

func (a *app) newExportCommand() *cobra.Command {
	var (
		out     string
		limit   int
		monthly bool
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the indicator table to an XLSX workbook",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			load := a.svc.WeeklyMetrics
			if monthly {
				load = a.svc.MonthlyMetrics
			}

			rep, err := load(cmd.Context(), limit)
			if err != nil {
				return err
			}

			f, err := os.Create(out)
			if err != nil {
				return err
			}

			if err := report.WriteMetricsXLSX(f, rep.MetricsRows()); err != nil {
				_ = f.Close()

				return err
			}

			if err := f.Close(); err != nil {
				return err
			}

			log.Infof("Wrote %d rows to %s", len(rep.Rows), out)

			return nil
		},
	}

	cmd.Flags().StringVar(&out, "out", "indicateurs.xlsx", "Destination workbook")
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Number of weeks loaded (0 uses the configured default)")
	cmd.Flags().BoolVar(&monthly, "monthly", false, "Export monthly rows")

	return cmd
}

func (a *app) newResetCommand() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete every stored snapshot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !yes {
				return errResetConfirm
			}

			if err := a.svc.Reset(cmd.Context()); err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), "all snapshots deleted")

			return nil
		},
	}

	cmd.Flags().BoolVar(&yes, "yes", false, "Confirm deletion")

	return cmd
}

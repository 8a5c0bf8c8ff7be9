package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"leasehold/internal/lease/content"
	"leasehold/internal/lease/policy"
	"leasehold/internal/lease/ports"
	"leasehold/internal/lease/scheduler"
	"leasehold/internal/lease/service"
	leasepg "leasehold/internal/lease/store/postgres"
	"leasehold/internal/platform/config"
	"leasehold/internal/platform/logger"
	"leasehold/internal/platform/postgres"
	id "leasehold/pkg/domain"
	"leasehold/pkg/platform/clock"
)

// backend is what every subcommand operates on.
type backend struct {
	cfg    config.Config
	logger *slog.Logger
	repo   ports.Repository
	tx     content.TxRunner
	// migrate is nil when the store has no schema.
	migrate func(ctx context.Context) error
	close   func()
}

type backendOpener func(ctx context.Context, out io.Writer) (*backend, error)

func openBackend(ctx context.Context, out io.Writer) (*backend, error) {
	cfg, err := config.FromEnv()
	if err != nil {
		return nil, err
	}
	if cfg.Postgres.URL == "" {
		return nil, errors.New("DATABASE_URL is required")
	}
	db, err := postgres.Open(ctx, cfg.Postgres)
	if err != nil {
		return nil, err
	}
	return &backend{
		cfg:    cfg,
		logger: logger.NewWithWriter(out, cfg.Log.Level, "text"),
		repo:   leasepg.New(db),
		tx:     postgres.NewTxRunner(db),
		migrate: func(ctx context.Context) error {
			return postgres.Migrate(ctx, db)
		},
		close: func() { _ = db.Close() },
	}, nil
}

func newRootCmd(open backendOpener) *cobra.Command {
	root := &cobra.Command{
		Use:           "leasectl",
		Short:         "Leasehold property lease tooling",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		migrateCmd(open),
		seedCmd(open),
		sweepCmd(open),
		eligibilityCmd(open),
	)
	return root
}

func withBackend(cmd *cobra.Command, open backendOpener, fn func(ctx context.Context, b *backend) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	b, err := open(ctx, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	if b.close != nil {
		defer b.close()
	}
	return fn(ctx, b)
}

func migrateCmd(open backendOpener) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the property and audit schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withBackend(cmd, open, func(ctx context.Context, b *backend) error {
				if b.migrate == nil {
					return errors.New("store has no schema to migrate")
				}
				if err := b.migrate(ctx); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Schema is up to date.")
				return nil
			})
		},
	}
}

func seedCmd(open backendOpener) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Create vacant snapshots for properties in a world content file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, _ := cmd.Flags().GetString("content")
			return withBackend(cmd, open, func(ctx context.Context, b *backend) error {
				if path == "" {
					path = b.cfg.Content.Path
				}
				if path == "" {
					return errors.New("--content or WORLD_CONTENT_PATH is required")
				}
				defs, err := content.LoadFile(path, b.cfg.Content.DefaultGraceDays)
				if err != nil {
					return err
				}
				opts := []content.Option{content.WithLogger(b.logger)}
				if b.tx != nil {
					opts = append(opts, content.WithTxRunner(b.tx))
				}
				seeder, err := content.NewSeeder(b.repo, opts...)
				if err != nil {
					return err
				}
				report, err := seeder.Seed(ctx, defs)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Seeded %d properties (%d created, %d already present).\n",
					len(defs), report.Created, report.Existing)
				return nil
			})
		},
	}
	cmd.Flags().String("content", "", "path to the world content YAML file")
	return cmd
}

func sweepCmd(open backendOpener) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Run one eviction sweep",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			dryRun, _ := cmd.Flags().GetBool("dry-run")
			rawAt, _ := cmd.Flags().GetString("at")
			at, err := parseAt(rawAt)
			if err != nil {
				return err
			}
			return withBackend(cmd, open, func(ctx context.Context, b *backend) error {
				now := clock.Fixed(at)
				leases, err := service.New(b.repo,
					service.WithLogger(b.logger),
					service.WithClock(now),
					service.WithGraceDaysOverride(b.cfg.Scheduler.GraceDaysOverride),
				)
				if err != nil {
					return err
				}
				sweeper, err := scheduler.New(b.repo, leases,
					scheduler.Config{},
					scheduler.WithClock(now),
					scheduler.WithLogger(b.logger),
					scheduler.WithDryRun(dryRun),
				)
				if err != nil {
					return err
				}
				report, err := sweeper.RunOnce(ctx)
				if err != nil {
					return err
				}
				printSweep(cmd.OutOrStdout(), report, dryRun)
				return nil
			})
		},
	}
	cmd.Flags().Bool("dry-run", false, "report eligible properties without evicting")
	cmd.Flags().String("at", "", "evaluation time in RFC3339 (default now)")
	return cmd
}

func printSweep(w io.Writer, report scheduler.SweepReport, dryRun bool) {
	fmt.Fprintf(w, "Sweep at %s: %d rented, %d eligible, %d evicted, %d failed.\n",
		report.EvaluatedAt.Format(time.RFC3339), report.Evaluated, report.Eligible, report.Evicted, report.Failed)
	if dryRun && len(report.Candidates) > 0 {
		fmt.Fprintln(w, "Would evict:")
		for _, c := range report.Candidates {
			fmt.Fprintf(w, "  %s\n", c)
		}
	}
}

func eligibilityCmd(open backendOpener) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "eligibility <property-id>",
		Short: "Explain whether a property would be evicted",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			propertyID, err := id.ParsePropertyID(args[0])
			if err != nil {
				return err
			}
			rawAt, _ := cmd.Flags().GetString("at")
			at, err := parseAt(rawAt)
			if err != nil {
				return err
			}
			return withBackend(cmd, open, func(ctx context.Context, b *backend) error {
				snap, err := b.repo.GetSnapshot(ctx, propertyID)
				if err != nil {
					return err
				}
				if snap == nil {
					return fmt.Errorf("property %s not found", propertyID)
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "%s (%s): %s\n", snap.Definition.InternalName, propertyID, snap.Status)
				if !snap.IsRented() {
					fmt.Fprintln(out, "Not rented, never evicted by the sweep.")
					return nil
				}
				override := b.cfg.Scheduler.GraceDaysOverride
				lease := *snap.ActiveRental
				fmt.Fprintf(out, "Next payment due: %s\n", lease.NextPaymentDueDate)
				fmt.Fprintf(out, "Grace days: %d\n", policy.GraceDays(snap.Definition, override))
				fmt.Fprintf(out, "Eviction threshold: %s\n", policy.EvictionThreshold(lease, snap.Definition, override).Format(time.RFC3339))
				if lease.LastOccupantSeenUtc != nil {
					fmt.Fprintf(out, "Occupant last seen: %s\n", lease.LastOccupantSeenUtc.Format(time.RFC3339))
				} else {
					fmt.Fprintln(out, "Occupant last seen: never")
				}
				fmt.Fprintf(out, "Eligible at %s: %t\n", at.Format(time.RFC3339),
					policy.IsEvictionEligible(lease, snap.Definition, at, override))
				return nil
			})
		},
	}
	cmd.Flags().String("at", "", "evaluation time in RFC3339 (default now)")
	return cmd
}

func parseAt(raw string) (time.Time, error) {
	if raw == "" {
		return time.Now().UTC(), nil
	}
	at, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --at %q: %w", raw, err)
	}
	return at.UTC(), nil
}

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dhos/janitor/internal/domain/populate"
	"github.com/dhos/janitor/internal/domain/reset"
	"github.com/dhos/janitor/internal/platform/db"
	"github.com/dhos/janitor/internal/platform/jobs"
)

var errDropDisabled = errors.New("dropping data is disabled, set ALLOW_DROP_DATA=true")

// withApp loads config, wires the app and runs fn against it.
func withApp(fn func(ctx context.Context, a *app) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	logger := newLogger(cfg)

	ctx := logger.WithContext(context.Background())
	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(ctx, a)
}

// runTask admits fn in the shared task store so a CLI run cannot overlap a
// task started through the API, then waits for its result.
func runTask(ctx context.Context, a *app, name string, fn jobs.Func) (json.RawMessage, error) {
	runner := jobs.NewRunner(a.store, a.logger, name)
	if _, err := runner.Start(ctx, fn); err != nil {
		return nil, err
	}
	return runner.Wait(ctx)
}

func resetCmd() *cobra.Command {
	var (
		req              reset.Request
		hospitals, wards int
	)
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Drop and regenerate test data in the downstream services",
		RunE: func(cmd *cobra.Command, args []string) error {
			if hospitals > 0 && wards > 0 {
				req.Locations = &reset.LocationConfig{Hospitals: hospitals, Wards: wards}
			}
			return withApp(func(ctx context.Context, a *app) error {
				if !a.cfg.AllowDropData {
					return errDropDisabled
				}
				out, err := runTask(ctx, a, "reset", func(ctx context.Context) (any, error) {
					return a.reset.Reset(ctx, req)
				})
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), out)
			})
		},
	}
	cmd.Flags().StringSliceVar(&req.Targets, "targets", nil, "Services to reset (default all)")
	cmd.Flags().IntVar(&req.Products.GDM, "gdm", 12, "Number of GDM patients")
	cmd.Flags().IntVar(&req.Products.DBM, "dbm", 18, "Number of DBM patients")
	cmd.Flags().IntVar(&req.Products.SEND, "send", 12, "Number of SEND patients")
	cmd.Flags().IntVar(&hospitals, "hospitals", 0, "Generate this many SEND hospitals")
	cmd.Flags().IntVar(&wards, "wards", 0, "Generate this many wards per hospital")
	return cmd
}

func populateCmd() *cobra.Command {
	var req populate.Request
	cmd := &cobra.Command{
		Use:   "populate",
		Short: "Add readings, messages and visits for existing active patients",
		RunE: func(cmd *cobra.Command, args []string) error {
			if req.Days < 0 {
				return fmt.Errorf("days must be a non-negative integer")
			}
			return withApp(func(ctx context.Context, a *app) error {
				out, err := runTask(ctx, a, "populate", func(ctx context.Context) (any, error) {
					return a.populate.Populate(ctx, req)
				})
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), out)
			})
		},
	}
	cmd.Flags().IntVar(&req.Days, "days", 1, "Days of history to generate")
	cmd.Flags().BoolVar(&req.UseSystemJWT, "use-system-jwt", false, "Act as the system instead of clinicians")
	return cmd
}

func jwtCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jwt",
		Short: "Print a signed JWT",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "system <system_id>",
		Short: "JWT for a system identity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, a *app) error {
				tok, err := a.tokens.SystemJWT(args[0])
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), tok)
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "clinician <email>",
		Short: "JWT for a seeded clinician",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, a *app) error {
				tok, err := a.tokens.ClinicianJWT(args[0], "")
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), tok)
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "patient <patient_id>",
		Short: "JWT for a patient, activating them through the activation auth API",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, a *app) error {
				tok, err := a.tokens.PatientJWT(ctx, args[0])
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), tok)
				return nil
			})
		},
	})

	return cmd
}

func printJSON(w io.Writer, raw json.RawMessage) error {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printMigrationStatus(w io.Writer, statuses []db.MigrationStatus) {
	fmt.Fprintf(w, "%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
	fmt.Fprintln(w, strings.Repeat("-", 10)+" "+strings.Repeat("-", 40)+" "+strings.Repeat("-", 10)+" "+strings.Repeat("-", 20))
	for _, s := range statuses {
		status := "pending"
		appliedAt := ""
		if s.Applied {
			status = "applied"
			if s.AppliedAt != nil {
				appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
			}
		}
		fmt.Fprintf(w, "%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
	}
}

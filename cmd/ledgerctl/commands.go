// cmd/ledgerctl/commands.go
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	app "chainlend-ledger/internal"
	"chainlend-ledger/internal/config"
	"chainlend-ledger/internal/domain"
	"chainlend-ledger/internal/scoring"
	"chainlend-ledger/internal/service"
	"chainlend-ledger/pkg/db"
)

// globalFlags override the loaded configuration.
type globalFlags struct {
	driver  string
	path    string
	timeout time.Duration
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}
	rootCmd := &cobra.Command{
		Use:           "ledgerctl",
		Short:         "Operate the loan ledger and credit scores",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&flags.driver, "db-driver", "", "database driver override (postgres|sqlite)")
	rootCmd.PersistentFlags().StringVar(&flags.path, "db-path", "", "sqlite database path override")
	rootCmd.PersistentFlags().DurationVar(&flags.timeout, "timeout", 30*time.Second, "command timeout")

	rootCmd.AddCommand(migrateCmd(flags))
	rootCmd.AddCommand(scoreCmd(flags))
	rootCmd.AddCommand(classifyCmd())
	rootCmd.AddCommand(verifyCmd(flags))
	rootCmd.AddCommand(activeCmd(flags))
	rootCmd.AddCommand(defaultCmd(flags))
	return rootCmd
}

func loadConfig(flags *globalFlags) (*config.AppConfig, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, err
	}
	if flags.driver != "" {
		cfg.DB.Driver = flags.driver
	}
	if flags.path != "" {
		cfg.DB.Path = flags.path
	}
	cfg.LogLevel = "error"
	return cfg, nil
}

// withService runs fn against a fully initialized application.
func withService(cmd *cobra.Command, flags *globalFlags, fn func(ctx context.Context, svc service.ReconciliationService) error) error {
	cfg, err := loadConfig(flags)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(cmd.Context(), flags.timeout)
	defer cancel()

	a := app.NewApplication()
	defer func() { _ = a.Shutdown(context.Background()) }()
	if err := a.InitializeWithConfig(ctx, cfg); err != nil {
		return err
	}
	return fn(ctx, a.ReconciliationService)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func migrateCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the embedded schema migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}
			conn, err := db.Open(cfg.DB)
			if err != nil {
				return err
			}
			defer conn.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), flags.timeout)
			defer cancel()
			if err := db.Migrate(ctx, conn); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "migrations applied (%s)\n", conn.DriverName())
			return nil
		},
	}
}

func scoreCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "score <userKey>",
		Short: "Show a user's credit score",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd, flags, func(ctx context.Context, svc service.ReconciliationService) error {
				score, err := svc.GetCreditScore(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), score)
			})
		},
	}
}

// classification is the output of the classify command.
type classification struct {
	domain.Classification
	ScoreDelta float64 `json:"scoreDelta"`
}

func classifyCmd() *cobra.Command {
	var deadline, repaidAt, fundedAt string
	var defaultDays float64
	cmd := &cobra.Command{
		Use:   "classify",
		Short: "Classify a repayment without touching the ledger",
		Example: "  ledgerctl classify --deadline 1700000000000 --repaid-at 1699136000000 " +
			"--funded-at 1697408000000",
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := decimal.NewFromString(deadline)
			if err != nil {
				return fmt.Errorf("invalid --deadline: %w", err)
			}
			r, err := decimal.NewFromString(repaidAt)
			if err != nil {
				return fmt.Errorf("invalid --repaid-at: %w", err)
			}
			f := decimal.Zero
			if fundedAt != "" {
				if f, err = decimal.NewFromString(fundedAt); err != nil {
					return fmt.Errorf("invalid --funded-at: %w", err)
				}
			}

			c := scoring.NewClassifier(defaultDays).Classify(d, r, scoring.KnownTime(f))
			delta := scoring.PaymentDelta(domain.PaymentDetail{
				Category:         c.Category,
				MagnitudeDays:    c.MagnitudeDays,
				LoanDurationDays: c.LoanDurationDays,
			})
			return printJSON(cmd.OutOrStdout(), classification{Classification: c, ScoreDelta: delta})
		},
	}
	cmd.Flags().StringVar(&deadline, "deadline", "", "loan deadline, epoch milliseconds")
	cmd.Flags().StringVar(&repaidAt, "repaid-at", "", "repayment time, epoch milliseconds")
	cmd.Flags().StringVar(&fundedAt, "funded-at", "", "funding time, epoch milliseconds (optional)")
	cmd.Flags().Float64Var(&defaultDays, "default-duration", scoring.DefaultLoanDurationDays, "loan duration in days when --funded-at is unknown")
	_ = cmd.MarkFlagRequired("deadline")
	_ = cmd.MarkFlagRequired("repaid-at")
	return cmd
}

func verifyCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "verify <fundedLoanId>...",
		Short: "Deactivate every active funded loan not listed",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd, flags, func(ctx context.Context, svc service.ReconciliationService) error {
				res, err := svc.VerifyAgainstChain(ctx, service.VerificationInput{ActiveFundedLoanIDs: args})
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), res)
			})
		},
	}
}

func activeCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "active",
		Short: "List active funded loans",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd, flags, func(ctx context.Context, svc service.ReconciliationService) error {
				ids, err := svc.ActiveFundedLoanIDs(ctx)
				if err != nil {
					return err
				}
				for _, id := range ids {
					fmt.Fprintln(cmd.OutOrStdout(), id)
				}
				return nil
			})
		},
	}
}

func defaultCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "default <loanId>",
		Short: "Mark a loan request as defaulted",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd, flags, func(ctx context.Context, svc service.ReconciliationService) error {
				req, err := svc.MarkDefaulted(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), req)
			})
		},
	}
}

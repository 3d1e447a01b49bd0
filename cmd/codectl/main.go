// codectl is the operator CLI. It talks straight to the database, so
// the access code never travels over HTTP.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"codegate/internal/auth"
	"codegate/internal/config"
	"codegate/internal/logging"
	"codegate/internal/metrics"
	"codegate/internal/notify"
	"codegate/internal/repository"
)

func main() {
	root := &cobra.Command{
		Use:          "codectl",
		Short:        "Operator tooling for the workflow gateway",
		SilenceUsage: true,
	}

	codeCmd := &cobra.Command{
		Use:   "code",
		Short: "Manage the daily access code",
	}
	codeCmd.AddCommand(generateCmd(), showCmd())
	root.AddCommand(codeCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func generateCmd() *cobra.Command {
	var deliver bool
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Ensure today's code exists, optionally delivering it by email",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			env, err := newEnv(ctx, deliver)
			if err != nil {
				return err
			}
			defer env.close()

			code, err := env.codes.Current(ctx)
			if err != nil {
				return fmt.Errorf("failed to generate daily code: %w", err)
			}

			fmt.Printf("day:        %s\n", code.Day)
			fmt.Printf("code:       %s\n", code.Code)
			fmt.Printf("expires_at: %s\n", code.ExpiresAt.Format(time.RFC3339))
			return nil
		},
	}
	cmd.Flags().BoolVar(&deliver, "deliver", false, "send the code to enabled accounts via SMTP")
	return cmd
}

func showCmd() *cobra.Command {
	var day string
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print an existing code without minting a new one",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			env, err := newEnv(ctx, false)
			if err != nil {
				return err
			}
			defer env.close()

			if day == "" {
				loc, err := env.cfg.Location()
				if err != nil {
					return err
				}
				day = time.Now().In(loc).Format("2006-01-02")
			}

			code, err := env.store.GetDailyCode(ctx, day)
			if err != nil {
				return fmt.Errorf("no code found for %s: %w", day, err)
			}

			fmt.Printf("day:        %s\n", code.Day)
			fmt.Printf("code:       %s\n", code.Code)
			fmt.Printf("expires_at: %s\n", code.ExpiresAt.Format(time.RFC3339))
			return nil
		},
	}
	cmd.Flags().StringVar(&day, "day", "", "day to show (YYYY-MM-DD, default today)")
	return cmd
}

type env struct {
	cfg   *config.Config
	pool  *pgxpool.Pool
	store repository.Store
	codes *auth.CodeService
}

func newEnv(ctx context.Context, deliver bool) (*env, error) {
	logger := logging.NewLogger()

	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	connStr := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.DB.Host, cfg.DB.Port, cfg.DB.User, cfg.DB.Password, cfg.DB.Name, cfg.DB.SSLMode,
	)
	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	store := repository.NewPostgresStore(pool)
	if err := store.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	accounts, err := auth.NewAccounts(cfg.Accounts)
	if err != nil {
		pool.Close()
		return nil, err
	}

	var notifier notify.Notifier
	if deliver && cfg.SMTP.Host != "" {
		notifier = notify.NewSMTPNotifier(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.Username, cfg.SMTP.Password, cfg.SMTP.From)
	} else {
		notifier = notify.NewLogNotifier(logger)
	}

	var meters *metrics.Metrics
	codes := auth.NewCodeService(store, notifier, accounts, logger, meters, cfg.Auth.CodeLength, loc)

	return &env{cfg: cfg, pool: pool, store: store, codes: codes}, nil
}

func (e *env) close() {
	e.pool.Close()
}

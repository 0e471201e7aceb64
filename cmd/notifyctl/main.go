// Command notifyctl is the Money Flow notifications operator CLI.
//
// Usage:
//
//	notifyctl migrate
//	notifyctl run --category all
//	notifyctl run --category weekly_reports --dry-run
//	notifyctl send --user <uuid> --title "Hi" --body "Test" --category budget_alert
//	notifyctl subscriptions list --user <uuid>
//	notifyctl vapid-keys
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"time"

	webpush "github.com/SherClockHolmes/webpush-go"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/moneyflow/notifier/internal/app"
	"github.com/moneyflow/notifier/internal/config"
	"github.com/moneyflow/notifier/internal/db"
	"github.com/moneyflow/notifier/internal/maintenance"
	"github.com/moneyflow/notifier/internal/model"
)

var logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

func main() {
	// Load .env if present
	_ = godotenv.Load(".env")

	root := &cobra.Command{
		Use:          "notifyctl",
		Short:        "Money Flow notifications CLI",
		SilenceUsage: true,
	}

	root.AddCommand(migrateCmd())
	root.AddCommand(runCmd())
	root.AddCommand(sendCmd())
	root.AddCommand(subscriptionsCmd())
	root.AddCommand(vapidKeysCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// --------------------------------------------------------------------------
// migrate command
// --------------------------------------------------------------------------

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the embedded notification schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
			defer cancel()

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			start := time.Now()
			if err := db.Migrate(ctx, cfg.DatabaseURL); err != nil {
				return err
			}
			logger.Info("Schema applied", "duration", time.Since(start).Round(time.Millisecond))
			return nil
		},
	}
}

// --------------------------------------------------------------------------
// run command
// --------------------------------------------------------------------------

func runCmd() *cobra.Command {
	var category string
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Evaluate scheduled alerts now",
		RunE: func(cmd *cobra.Command, args []string) error {
			categories, err := model.ParseScheduled(category)
			if err != nil {
				return err
			}
			return withServices(dryRun, func(ctx context.Context, svc *app.Services) error {
				result, err := maintenance.RunNow(ctx, svc.Generator, categories, logger)
				if err != nil {
					return err
				}
				for _, c := range result.Categories {
					if c.Error != "" {
						logger.Error("category failed", "category", c.Category, "error", c.Error)
					}
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&category, "category", "all", "expense_reminders, budget_alerts, weekly_reports, monthly_reports or all")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Log payloads instead of sending them")
	return cmd
}

// --------------------------------------------------------------------------
// send command
// --------------------------------------------------------------------------

func sendCmd() *cobra.Command {
	var user, title, body, category string
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "send",
		Short: "Send one notification to every device a user has",
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := uuid.Parse(user)
			if err != nil {
				return fmt.Errorf("--user: %w", err)
			}
			c, err := model.ParseCategory(category)
			if err != nil {
				return err
			}
			msg, err := model.NewMessage(title, body, c, nil)
			if err != nil {
				return err
			}
			return withServices(dryRun, func(ctx context.Context, svc *app.Services) error {
				report, err := svc.Dispatcher.Dispatch(ctx, userID, msg)
				if err != nil {
					return err
				}
				if err := report.Err(); err != nil {
					return err
				}
				logger.Info("Notification sent", "user", userID, "summary", report.Summary())
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&user, "user", "", "Recipient user id")
	cmd.Flags().StringVar(&title, "title", "", "Notification title")
	cmd.Flags().StringVar(&body, "body", "", "Notification body")
	cmd.Flags().StringVar(&category, "category", string(model.BudgetAlert), "Notification category")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Log payloads instead of sending them")
	_ = cmd.MarkFlagRequired("user")
	_ = cmd.MarkFlagRequired("title")
	_ = cmd.MarkFlagRequired("body")
	return cmd
}

// --------------------------------------------------------------------------
// subscriptions command
// --------------------------------------------------------------------------

func subscriptionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "subscriptions",
		Short: "Inspect push subscriptions",
	}

	var user string
	list := &cobra.Command{
		Use:   "list",
		Short: "List a user's subscriptions",
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := uuid.Parse(user)
			if err != nil {
				return fmt.Errorf("--user: %w", err)
			}
			return withServices(true, func(ctx context.Context, svc *app.Services) error {
				subs, err := svc.Subscriptions.ListByUser(ctx, userID)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "%d subscription(s)\n", len(subs))
				for _, s := range subs {
					fmt.Fprintf(out, "%d\t%s\t%s\n", s.ID, s.UpdatedAt.Format(time.RFC3339), s.ShortEndpoint())
				}
				return nil
			})
		},
	}
	list.Flags().StringVar(&user, "user", "", "User id")
	_ = list.MarkFlagRequired("user")

	cmd.AddCommand(list)
	return cmd
}

// --------------------------------------------------------------------------
// vapid-keys command
// --------------------------------------------------------------------------

func vapidKeysCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "vapid-keys",
		Short: "Generate a VAPID key pair",
		RunE: func(cmd *cobra.Command, args []string) error {
			privateKey, publicKey, err := webpush.GenerateVAPIDKeys()
			if err != nil {
				return fmt.Errorf("generate keys: %w", err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "VAPID_PUBLIC_KEY=%s\n", publicKey)
			fmt.Fprintf(out, "VAPID_PRIVATE_KEY=%s\n", privateKey)
			return nil
		},
	}
}

func withServices(dryRun bool, fn func(ctx context.Context, svc *app.Services) error) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	pool, err := db.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer pool.Close()

	transport, err := app.Transport(cfg, dryRun, logger)
	if err != nil {
		return err
	}
	svc, err := app.Build(pool, cfg, transport, logger)
	if err != nil {
		return err
	}
	defer svc.Dedup.Close()

	return fn(ctx, svc)
}

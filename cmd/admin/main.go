// Command admin runs maintenance tasks against a tenantdrive deployment:
// schema migrations, one-off sweeps, journal inspection, user seeding,
// development tokens and smoke-test uploads.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/dmitrijs2005/tenantdrive/internal/logging"
	"github.com/dmitrijs2005/tenantdrive/internal/server/auth"
	"github.com/dmitrijs2005/tenantdrive/internal/server/config"
	"github.com/dmitrijs2005/tenantdrive/internal/server/docstore"
	"github.com/dmitrijs2005/tenantdrive/internal/server/models"
	"github.com/dmitrijs2005/tenantdrive/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/tenantdrive/internal/server/services"
	"github.com/dmitrijs2005/tenantdrive/internal/server/storage"
	"github.com/dmitrijs2005/tenantdrive/internal/timex"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

// loadConfig reads defaults, then the --config file, then the override flags.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := &config.Config{}
	cfg.LoadDefaults()

	if path, _ := cmd.Flags().GetString("config"); path != "" {
		if err := config.LoadFile(path, cfg); err != nil {
			return nil, err
		}
	}
	if v, _ := cmd.Flags().GetString("dsn"); v != "" {
		cfg.DatabaseDSN = v
	}
	if v, _ := cmd.Flags().GetString("docstore"); v != "" {
		cfg.DocStoreType = v
	}
	if v, _ := cmd.Flags().GetString("storage"); v != "" {
		cfg.StorageType = v
	}
	return cfg, nil
}

// openStore opens the configured document store. The caller must call close.
func openStore(cmd *cobra.Command) (*config.Config, docstore.Store, func() error, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, nil, err
	}
	store, closeStore, err := repomanager.Open(cmd.Context(), cfg)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("opening document store: %w", err)
	}
	return cfg, store, closeStore, nil
}

func newLogger(cmd *cobra.Command) logging.Logger {
	verbose, _ := cmd.Flags().GetBool("verbose")
	if !verbose {
		return logging.NopLogger{}
	}
	return logging.NewJSON(cmd.ErrOrStderr(), "debug")
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			db, err := repomanager.OpenDB(cfg.DocStoreType, cfg.DatabaseDSN)
			if err != nil {
				return err
			}
			defer db.Close()

			if err := repomanager.RunMigrations(cmd.Context(), db, cfg.DocStoreType); err != nil {
				return fmt.Errorf("applying migrations: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Migrations applied")
			return nil
		},
	}
}

func newSweepCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Purge expired trash and abort stale uploads once",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, store, closeStore, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer closeStore()

			provider, err := storage.New(cmd.Context(), cfg)
			if err != nil {
				return fmt.Errorf("initializing storage: %w", err)
			}

			rm := repomanager.NewDocRepositoryManager(store)
			sweeper := services.NewSweeper(rm, provider, timex.RealClock{}, newLogger(cmd), cfg.SweepInterval, cfg.UploadSessionTTL)

			report, err := sweeper.RunOnce(cmd.Context())
			fmt.Fprintf(cmd.OutOrStdout(), "trash purged: %d, failed: %d\nsessions expired: %d, failed: %d\n",
				report.TrashPurged, report.TrashFailed, report.SessionsExpired, report.SessionsFailed)
			return err
		},
	}
}

func newReconcileCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile",
		Short: "List operations that did not complete",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, store, closeStore, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer closeStore()

			rm := repomanager.NewDocRepositoryManager(store)
			journal := services.NewJournal(rm.Operations(), timex.RealClock{}, newLogger(cmd))

			ops, err := journal.ListIncomplete(cmd.Context())
			if err != nil {
				return err
			}
			if len(ops) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No incomplete operations.")
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tKIND\tSTATUS\tTENANT\tITEM\tSTEPS\tUPDATED\tERROR")
			for _, op := range ops {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%v\t%s\t%s\n",
					op.ID, op.Kind, op.Status, op.TenantID, op.ItemID, op.Steps,
					time.UnixMilli(op.UpdatedAt).UTC().Format(time.RFC3339), op.Error)
			}
			return w.Flush()
		},
	}
}

func newUserCmd() *cobra.Command {
	userCmd := &cobra.Command{
		Use:   "user",
		Short: "Manage users",
	}

	addCmd := &cobra.Command{
		Use:   "add",
		Short: "Create or replace a user record",
		RunE: func(cmd *cobra.Command, args []string) error {
			id, _ := cmd.Flags().GetString("id")
			tenant, _ := cmd.Flags().GetString("tenant")
			role, _ := cmd.Flags().GetString("role")
			email, _ := cmd.Flags().GetString("email")
			name, _ := cmd.Flags().GetString("name")

			if id == "" || tenant == "" {
				return errors.New("--id and --tenant are required")
			}
			switch role {
			case models.RoleViewer, models.RoleMember, models.RoleAdmin, models.RoleOwner:
			default:
				return fmt.Errorf("unknown role %q", role)
			}

			_, store, closeStore, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer closeStore()

			rm := repomanager.NewDocRepositoryManager(store)
			user := &models.User{ID: id, Email: email, Name: name, TenantID: tenant, Role: role}
			if err := rm.Users().Create(cmd.Context(), user); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "User %s added to tenant %s as %s\n", id, tenant, role)
			return nil
		},
	}
	addCmd.Flags().String("id", "", "User id")
	addCmd.Flags().String("tenant", "", "Tenant id")
	addCmd.Flags().String("role", models.RoleMember, "Role: viewer, member, admin or owner")
	addCmd.Flags().String("email", "", "Email address")
	addCmd.Flags().String("name", "", "Display name")

	userCmd.AddCommand(addCmd)
	return userCmd
}

func newTokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a bearer token for a user",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if secret, _ := cmd.Flags().GetString("secret"); secret != "" {
				cfg.SecretKey = secret
			}
			if cfg.SecretKey == "" {
				return errors.New("no secret key configured")
			}

			user, _ := cmd.Flags().GetString("user")
			tenant, _ := cmd.Flags().GetString("tenant")
			if user == "" {
				return errors.New("--user is required")
			}

			ttl, _ := cmd.Flags().GetDuration("ttl")
			if ttl <= 0 {
				ttl = cfg.AccessTokenValidityDuration
			}

			token, err := auth.GenerateToken(user, tenant, []byte(cfg.SecretKey), ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().String("user", "", "User id")
	cmd.Flags().String("tenant", "", "Tenant id")
	cmd.Flags().String("secret", "", "Signing key, overrides the configured one")
	cmd.Flags().Duration("ttl", 0, "Token validity, defaults to the configured access token validity")
	return cmd
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "admin",
		Short:        "tenantdrive maintenance tool",
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringP("config", "c", "", "JSON config file")
	rootCmd.PersistentFlags().String("dsn", "", "Database DSN, overrides the config file")
	rootCmd.PersistentFlags().String("docstore", "", "Document store: memory, postgres or sqlite")
	rootCmd.PersistentFlags().String("storage", "", "Object storage: memory or s3")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Log to stderr")

	rootCmd.AddCommand(newMigrateCmd())
	rootCmd.AddCommand(newSweepCmd())
	rootCmd.AddCommand(newReconcileCmd())
	rootCmd.AddCommand(newUserCmd())
	rootCmd.AddCommand(newTokenCmd())
	rootCmd.AddCommand(newUploadCmd())
	return rootCmd
}

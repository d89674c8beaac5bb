package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hackgods/booking-engine/internal/app"
	"github.com/hackgods/booking-engine/internal/config"
	"github.com/hackgods/booking-engine/internal/logging"
)

var (
	verbose     bool
	lockBackend string

	application *app.App
	logger      *zap.Logger
	startedAt   time.Time
)

var rootCmd = &cobra.Command{
	Use:   "bookingctl",
	Short: "Operate the booking engine",
	Long: `bookingctl runs migrations and drives the booking engine directly
against Postgres, using the same day locks as the api-server.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "help" || strings.HasPrefix(cmd.CommandPath(), "bookingctl completion") {
			return nil
		}
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		if lockBackend != "" {
			cfg.LockBackend = lockBackend
		}

		env := cfg.Env
		if !verbose && !logging.IsProduction(env) {
			env = "production"
		}
		logger, err = logging.New(env)
		if err != nil {
			return err
		}

		application, err = app.New(cmd.Context(), cfg, logger)
		if err != nil {
			return err
		}

		startedAt = time.Now()
		logger.Debug("command start",
			zap.String("command", cmd.CommandPath()),
			zap.String("correlation_id", uuid.NewString()),
		)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger == nil {
			return
		}
		logger.Debug("command end",
			zap.String("command", cmd.CommandPath()),
			zap.Duration("took", time.Since(startedAt)),
		)
		if application != nil {
			application.Close()
		}
		_ = logger.Sync()
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "development logging")
	rootCmd.PersistentFlags().StringVar(&lockBackend, "lock-backend", "", "override LOCK_BACKEND (redis, local)")

	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(availabilityCmd)
	rootCmd.AddCommand(bookCmd)
	rootCmd.AddCommand(cancelCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(completeCmd)
}

func parseUUIDArg(name, raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid %s %q: %w", name, raw, err)
	}
	return id, nil
}

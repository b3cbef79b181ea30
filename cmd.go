package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/CrowderSoup/todo-lists/database"
	"github.com/CrowderSoup/todo-lists/handlers"
	"github.com/CrowderSoup/todo-lists/services"
)

var (
	configFile string
	envFile    string
)

func newRootCommand() *cobra.Command {
	v := viper.New()

	rootCmd := &cobra.Command{
		Use:   "todo-lists",
		Short: "Personal todo list server",
		Long: `todo-lists serves a JSON API for todos with priorities, due dates,
subtasks and user-defined lists. All data lives in memory.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), v)
		},
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (yaml, toml or json)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file, ignored when missing")
	addServerFlags(rootCmd.PersistentFlags(), v)

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), v)
		},
	}

	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Print the resolved configuration as YAML",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := services.LoadConfig(v, configFile, envFile)
			if err != nil {
				return err
			}
			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			defer enc.Close()
			return enc.Encode(cfg)
		},
	}

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(configCmd)

	return rootCmd
}

// addServerFlags registers flags and binds each one to its config key.
func addServerFlags(flags *pflag.FlagSet, v *viper.Viper) {
	flags.String("host", "", "interface to listen on")
	flags.Int("port", 3001, "port to listen on")
	flags.String("log-level", "info", "debug, info, warn or error")
	flags.String("log-format", "text", "text, logfmt or json")
	flags.StringSlice("cors-origins", []string{"*"}, "allowed CORS origins")
	flags.Bool("seed-lists", true, "create the personal, work and shopping lists at startup")

	bindings := map[string]string{
		"host":         "host",
		"port":         "port",
		"log_level":    "log-level",
		"log_format":   "log-format",
		"cors_origins": "cors-origins",
		"seed_lists":   "seed-lists",
	}
	for key, flag := range bindings {
		// Lookup cannot fail for flags registered just above.
		_ = v.BindPFlag(key, flags.Lookup(flag))
	}
}

func runServe(ctx context.Context, v *viper.Viper) error {
	cfg, err := services.LoadConfig(v, configFile, envFile)
	if err != nil {
		return err
	}

	logger, err := services.NewLogger(os.Stderr, cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}
	if cfg.UsesDefaultSecret() {
		logger.Warn("jwt_secret not set, using the built-in default")
	}

	validator, err := services.NewValidator()
	if err != nil {
		return fmt.Errorf("loading request schemas: %w", err)
	}

	store := database.NewMemStore()
	if cfg.SeedLists {
		for _, l := range store.SeedDefaultLists() {
			logger.Debug("seeded list", "id", l.ID, "name", l.Name)
		}
	}

	router := handlers.NewRouter(handlers.RouterConfig{
		Store:       store,
		Validator:   validator,
		Auth:        services.NewAuthService(store, cfg.JWTSecret, cfg.TokenTTL),
		Logger:      logger,
		CORSOrigins: cfg.CORSOrigins,
	})

	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen on %s: %w", server.Addr, err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

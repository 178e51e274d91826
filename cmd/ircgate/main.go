package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/vovakirdan/ircgate/internal/app"
	"github.com/vovakirdan/ircgate/internal/auth"
	"github.com/vovakirdan/ircgate/internal/config"
	"github.com/vovakirdan/ircgate/internal/log"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:          "ircgate",
		Short:        "IRC gateway for the chat.cz web chat",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to the YAML config file")

	root.AddCommand(newServeCmd(&configPath), newTokenCmd(&configPath), newVersionCmd())
	return root
}

func newServeCmd(configPath *string) *cobra.Command {
	var overrides config.Config

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the IRC gateway",
		RunE: func(cmd *cobra.Command, _ []string) error {
			bootLog, err := log.New(overrides.LogLevel, "")
			if err != nil {
				return err
			}
			cfg, path, err := config.Load(bootLog, *configPath)
			if err != nil {
				return err
			}
			cfg.UpdateFrom(overrides)

			logger, err := log.New(cfg.LogLevel, cfg.LogFile)
			if err != nil {
				return err
			}
			logger.Info().Str("config", path).Str("irc_addr", cfg.IRC.Addr).Str("version", app.Version).Msg("starting ircgate")

			application, err := app.New(cfg, logger)
			if err != nil {
				return fmt.Errorf("init app: %w", err)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := application.Run(ctx); err != nil {
				logger.Error().Err(err).Msg("gateway exited with error")
				return err
			}
			logger.Info().Msg("gateway stopped")
			return nil
		},
	}

	cmd.Flags().StringVar(&overrides.IRC.Addr, "addr", "", "IRC listen address")
	cmd.Flags().StringVar(&overrides.Status.Addr, "status-addr", "", "status HTTP listen address")
	cmd.Flags().StringVar(&overrides.LogLevel, "log-level", "", "log level (debug, info, warn, error)")
	cmd.Flags().StringVar(&overrides.LogFile, "log-file", "", "also append JSON logs to this file")
	return cmd
}

func newTokenCmd(configPath *string) *cobra.Command {
	var (
		subject string
		ttl     time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a status API token from the configured secret",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, _, err := config.Load(nil, *configPath)
			if err != nil {
				return err
			}
			token, err := auth.GenerateToken(auth.TokenConfig{
				Secret: []byte(cfg.Status.JWTSecret),
				Issuer: cfg.Status.JWTIssuer,
				TTL:    ttl,
			}, subject, auth.RoleOperator)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
			return err
		},
	}

	cmd.Flags().StringVar(&subject, "subject", "operator", "token subject")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime, 0 for no expiry")
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), app.Version)
		},
	}
}

package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/m3rciful/gptbot/bot/app"
	"github.com/m3rciful/gptbot/bot/history"
	"github.com/m3rciful/gptbot/core/buildinfo"
	corecmd "github.com/m3rciful/gptbot/core/cmd"
	"github.com/m3rciful/gptbot/core/logger"
)

const defaultConfigPath = "config.yaml"

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:          "gptbot",
		Short:        "Telegram bot for OpenAI text, image, vision and speech generation",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config.yaml (env CONFIG_PATH)")

	run := newRunCmd(&configPath)
	root.RunE = run.RunE
	root.AddCommand(run, newMigrateCmd(&configPath), newVersionCmd())
	return root
}

func runOptions(configPath string) corecmd.Options {
	return corecmd.Options{
		ConfigPath:        configPath,
		DefaultConfigPath: defaultConfigPath,
		LoadConfig: func(path string) (corecmd.ConfigCarrier, error) {
			cfg, err := app.LoadConfig(path)
			if err != nil {
				return nil, err
			}
			return cfg, nil
		},
		Bootstrap: app.Bootstrap,
	}
}

func newRunCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Start the bot",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return corecmd.Run(cmd.Context(), runOptions(*configPath))
		},
	}
}

func newMigrateCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply generation journal migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, err := corecmd.ResolveConfigPath(runOptions(*configPath))
			if err != nil {
				return err
			}
			cfg, err := app.LoadConfig(path)
			if err != nil {
				return err
			}
			if !cfg.Database.Enabled() {
				return errors.New("migrate: database.driver is not set")
			}
			if err := logger.InitLogger(&cfg.Config); err != nil {
				return err
			}
			defer func() { _ = logger.Shutdown() }()
			if err := history.Migrate(cfg.Database); err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "migrations applied (%s)\n", cfg.Database.Driver)
			return err
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "gptbot %s (%s) %s\n", buildinfo.Version, buildinfo.Commit, buildinfo.Date)
			return err
		},
	}
}

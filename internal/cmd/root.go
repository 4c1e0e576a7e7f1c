// Package cmd implements the waitgate command line.
package cmd

import (
	"fmt"
	"strings"

	"github.com/MrEthical07/waitgate/internal/config"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	cfgFile string
	envFile string

	versionInfo struct {
		Version   string
		Commit    string
		BuildDate string
	}
)

// SetVersionInfo is called by main with ldflags values.
func SetVersionInfo(version, commit, buildDate string) {
	versionInfo.Version = version
	versionInfo.Commit = commit
	versionInfo.BuildDate = buildDate
}

var rootCmd = &cobra.Command{
	Use:   "waitgate",
	Short: "Abuse-gated waitlist service",
	Long: `waitgate runs a waitlist signup service behind Redis fixed-window limiters,
a content spam filter and optional Turnstile bot verification.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ./waitgate.yaml or /etc/waitgate/waitgate.yaml)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before reading WAITGATE_ variables")

	rootCmd.AddCommand(serveCmd, migrateCmd, policiesCmd, tokenCmd, loadtestCmd, benchdiffCmd, versionCmd)
}

func loadConfig(overrides map[string]any) (*config.Config, error) {
	return config.Load(config.Options{File: cfgFile, DotEnv: envFile, Overrides: overrides})
}

// newLogger builds a production JSON logger or a development console logger.
func newLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil {
		return nil, fmt.Errorf("logging.level: %w", err)
	}
	var zc zap.Config
	if cfg.Format == "console" {
		zc = zap.NewDevelopmentConfig()
	} else {
		zc = zap.NewProductionConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	return zc.Build()
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "waitgate %s (commit %s, built %s)\n",
			versionInfo.Version, versionInfo.Commit, versionInfo.BuildDate)
	},
}

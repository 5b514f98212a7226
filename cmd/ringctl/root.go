package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/yourusername/ringwatch/internal/account"
	"github.com/yourusername/ringwatch/internal/client"
	"github.com/yourusername/ringwatch/internal/core"
)

var (
	cfgFile    string
	jsonOutput bool
	verbose    bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "ringctl",
	Short: "Inspect a Ring account from the command line",
	Long: `Query locations, cameras, event history and the local ding log
using the same configuration file as the ringwatch server.`,
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "configs/config.yaml", "config file")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output results as JSON")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log client activity to stderr")
}

// session bundles what a single command needs
type session struct {
	config  *core.Config
	logger  *zap.Logger
	account *account.Account
}

// newSession loads the config and prepares an account without polling.
func newSession() (*session, error) {
	config, err := core.LoadConfig(cfgFile)
	if err != nil {
		return nil, err
	}

	log := newLogger()
	store := core.NewTokenStore(config.Ring.TokenFile, log.Named("token"))
	hardwareID, err := store.HardwareID()
	if err != nil {
		return nil, err
	}

	refreshToken := config.Ring.RefreshToken
	if stored := store.RefreshToken(); stored != "" {
		refreshToken = stored
	}

	api := client.NewAPIClient(client.Config{
		Email:          config.Ring.Email,
		Password:       config.Ring.Password,
		RefreshToken:   refreshToken,
		TwoFactorCode:  config.Ring.TwoFactorCode,
		HardwareID:     hardwareID,
		RequestTimeout: config.Ring.RequestTimeoutDuration(),
		Logger:         log.Named("client"),
		OnTokenRefreshed: func(token string) {
			if err := store.SaveRefreshToken(token); err != nil {
				log.Warn("Failed to persist refresh token", zap.Error(err))
			}
		},
	})

	acct := account.New(account.Config{
		API:     api,
		Options: account.Options{LocationIDs: config.Ring.LocationIDs},
		Logger:  log.Named("account"),
	})

	return &session{config: config, logger: log, account: acct}, nil
}

func (s *session) Close() {
	s.account.Close()
	_ = s.logger.Sync()
}

func (s *session) context(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	timeout := s.config.Ring.RequestTimeoutDuration() * 2
	if timeout <= 0 {
		timeout = time.Minute
	}
	return context.WithTimeout(cmd.Context(), timeout)
}

// newLogger writes to stderr so stdout stays parseable with --json
func newLogger() *zap.Logger {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "console"
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	} else {
		cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	}

	log, err := cfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return log
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

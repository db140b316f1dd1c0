package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/briandowns/spinner"
	"github.com/spf13/cobra"

	"github.com/gondar-software/domain-manager/internal/client"
	"github.com/gondar-software/domain-manager/internal/logging"
	"github.com/gondar-software/domain-manager/internal/version"
)

var logger *logging.Logger

var (
	serverFlag  string
	configFlag  string
	verboseFlag bool
	jsonFlag    bool
)

var rootCmd = &cobra.Command{
	Use:   "domainctl",
	Short: "domainctl - manage subdomains served by domain-manager",
	Long: `domainctl talks to a domain-manager server to provision subdomains:
DNS records, a TLS certificate and nginx reverse-proxy routes.

Run 'domainctl login' first. The token is stored in ~/.domain-manager/config.json.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := logging.LevelInfo
		if verboseFlag {
			level = logging.LevelDebug
		}
		logger = logging.NewWriterLogger(os.Stderr, level)
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Print the client version and, when a server is reachable, the server version.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Printf("domainctl %s\n", version.Info())

		cfg, _, err := loadConfig()
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
		defer cancel()
		info, err := version.CheckServerVersion(ctx, cfg.Server)
		if err != nil {
			logger.Debug("Server version unavailable: %v", err)
			return nil
		}
		fmt.Printf("server %s at %s\n", info.ServerVersion, cfg.Server)
		if version.CompareVersions(version.Version, info.ServerVersion) < 0 {
			logger.Warn("Client %s is older than server %s", version.Version, info.ServerVersion)
		}
		return nil
	},
}

func configPath() (string, error) {
	if configFlag != "" {
		return configFlag, nil
	}
	return client.GetConfigPath()
}

// loadConfig reads the stored session, applying --server
func loadConfig() (*client.Config, string, error) {
	path, err := configPath()
	if err != nil {
		return nil, "", err
	}
	cfg, err := client.LoadConfig(path)
	if err != nil {
		return nil, "", err
	}
	if serverFlag != "" {
		cfg.Server = serverFlag
	}
	return cfg, path, nil
}

// newClient builds an authenticated client or explains how to get one
func newClient() (*client.Client, error) {
	cfg, _, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if !cfg.LoggedIn(time.Now()) {
		return nil, fmt.Errorf("not logged in to %s, run 'domainctl login'", cfg.Server)
	}
	return client.New(cfg.Server, cfg.Token), nil
}

// withSpinner shows a spinner on stderr while fn runs
func withSpinner(suffix string, fn func() error) error {
	s := spinner.New(spinner.CharSets[14], 120*time.Millisecond, spinner.WithWriter(os.Stderr))
	s.Suffix = " " + suffix
	s.Start()
	err := fn()
	s.Stop()
	return err
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// explain turns API errors into an actionable message
func explain(err error) error {
	if client.IsUnauthorized(err) {
		return fmt.Errorf("%w; run 'domainctl login' again", err)
	}
	return err
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverFlag, "server", "", "domain-manager API URL (default: stored server or "+client.DefaultServer+")")
	rootCmd.PersistentFlags().StringVar(&configFlag, "config", "", "path to the client config file (default: ~/.domain-manager/config.json)")
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "log debug output")
	rootCmd.PersistentFlags().BoolVar(&jsonFlag, "json", false, "print raw JSON")

	rootCmd.AddCommand(versionCmd)
	initAuthCommands()
	initDomainCommands()
	initOfflineCommands()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		if logger == nil {
			logger = logging.NewWriterLogger(os.Stderr, logging.LevelInfo)
		}
		logger.Error("%v", err)
		os.Exit(1)
	}
}

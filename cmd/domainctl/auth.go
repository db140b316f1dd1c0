package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/gondar-software/domain-manager/internal/client"
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in to a domain-manager server",
	Long: `Log in with the operator password and store the issued token.

The password is read from --password, then DOMAINCTL_PASSWORD, then prompted for.

Example:
  domainctl login --server https://manager.example.com`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, path, err := loadConfig()
		if err != nil {
			return err
		}

		password, _ := cmd.Flags().GetString("password")
		if password == "" {
			password = os.Getenv("DOMAINCTL_PASSWORD")
		}
		if password == "" {
			if password, err = promptPassword(); err != nil {
				return err
			}
		}

		resp, err := client.New(cfg.Server, "").Login(cmd.Context(), password)
		if err != nil {
			return fmt.Errorf("login failed: %w", err)
		}

		cfg.Token = resp.Token
		cfg.ExpiresAt = resp.ExpiresAt
		if err := client.SaveConfig(path, cfg); err != nil {
			return err
		}

		logger.Info("Logged in to %s, token valid until %s", cfg.Server, resp.ExpiresAt.Local().Format("2006-01-02 15:04"))
		logger.Debug("Config written to %s", path)
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the stored token",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, path, err := loadConfig()
		if err != nil {
			return err
		}
		if err := client.SaveConfig(path, &client.Config{Server: cfg.Server}); err != nil {
			return err
		}
		logger.Info("Logged out of %s", cfg.Server)
		return nil
	},
}

func promptPassword() (string, error) {
	fmt.Fprint(os.Stderr, "Password: ")
	defer fmt.Fprintln(os.Stderr)

	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		data, err := term.ReadPassword(fd)
		if err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		return string(data), nil
	}

	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return "", errors.New("no password given")
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func initAuthCommands() {
	loginCmd.Flags().String("password", "", "operator password")
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
}

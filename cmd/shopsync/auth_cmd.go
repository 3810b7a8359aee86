package main

import (
	"fmt"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func init() {
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
}

var loginCmd = &cobra.Command{
	Use:   "login <username>",
	Short: "Authenticate against the backend",
	Long:  "Log in with a dashboard account and store the session token in the config file.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		username := args[0]

		fmt.Print("Password: ")
		password, err := term.ReadPassword(int(syscall.Stdin))
		fmt.Println()
		if err != nil {
			return fmt.Errorf("cannot read password: %w", err)
		}

		client, cfg, err := newClient()
		if err != nil {
			return err
		}

		ctx, cancel := opContext()
		defer cancel()

		result, err := client.Login(ctx, username, string(password))
		if err != nil {
			return fmt.Errorf("login failed: %w", err)
		}
		if !result.Success {
			if result.Error != nil {
				return fmt.Errorf("login rejected: %s", result.Error.Message)
			}
			return fmt.Errorf("login rejected")
		}

		cfg.Auth.Token = result.Token
		cfg.Auth.Username = username
		if err := saveConfig(cfg); err != nil {
			return fmt.Errorf("failed to save config: %w", err)
		}

		fmt.Printf("Logged in as %s\n", username)
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "End the session and clear the stored token",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, cfg, err := newClient()
		if err != nil {
			return err
		}

		ctx, cancel := opContext()
		defer cancel()

		if err := client.Logout(ctx); err != nil {
			return fmt.Errorf("logout failed: %w", err)
		}

		cfg.Auth.Token = ""
		cfg.Auth.Username = ""
		if err := saveConfig(cfg); err != nil {
			return fmt.Errorf("failed to save config: %w", err)
		}

		fmt.Println("Logged out.")
		return nil
	},
}

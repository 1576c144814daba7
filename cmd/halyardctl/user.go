package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/halyard-advisory/halyard/pkg/config"
	"github.com/halyard-advisory/halyard/pkg/db"
	"github.com/halyard-advisory/halyard/pkg/model"
	"github.com/halyard-advisory/halyard/pkg/server/store"
	gormstore "github.com/halyard-advisory/halyard/pkg/server/store/gorm"
)

// userCmd represents the user command
var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage portal users",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("error: Command 'user' requires a subcommand (promote, demote)")
		fmt.Println()
		_ = cmd.Help()
		os.Exit(1)
	},
}

var userPromoteCmd = &cobra.Command{
	Use:   "promote <email>",
	Short: "Give a user the admin role",
	Long: `Give a user the admin role.

The user must have signed in at least once. Addresses listed in
HALYARD_AUTH_ADMIN_EMAILS are promoted automatically on sign-in.

Example:
  halyardctl user promote colleague@halyard.example`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setUserRole(args[0], model.RoleAdmin)
	},
}

var userDemoteCmd = &cobra.Command{
	Use:   "demote <email>",
	Short: "Return a user to the client role",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setUserRole(args[0], model.RoleClient)
	},
}

func init() {
	rootCmd.AddCommand(userCmd)
	userCmd.AddCommand(userPromoteCmd)
	userCmd.AddCommand(userDemoteCmd)
}

func setUserRole(email, role string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return fmt.Errorf("email is required")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	database, err := db.Connect(db.Config{LogLevel: cfg.LogLevel})
	if err != nil {
		return err
	}

	user, err := gormstore.NewUsersStore(database).SetRole(email, role)
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("no user with email %s; they must sign in first", email)
	}
	if err != nil {
		return err
	}

	fmt.Printf("%s is now %s\n", user.Email, user.Role)
	return nil
}

package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"ledgerbook/internal/authz"
	"ledgerbook/internal/config"
	"ledgerbook/internal/database"
	"ledgerbook/internal/models"
	"ledgerbook/internal/services"
)

func userCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage user accounts",
	}
	cmd.AddCommand(userCreateCmd())
	return cmd
}

// userCreateCmd bootstraps accounts, typically the first admin. The password
// may come from LEDGERCTL_PASSWORD to keep it out of shell history.
func userCreateCmd() *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("ledgerctl")

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a user account",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, _ []string) error {
			input := services.CreateUserInput{
				Username: v.GetString("username"),
				Password: v.GetString("password"),
				FullName: v.GetString("name"),
				Role:     models.Role(v.GetString("role")),
			}
			if err := validateUserInput(input); err != nil {
				return err
			}

			dbManager, err := database.NewManager(config.Get())
			if err != nil {
				return err
			}
			defer func() { _ = dbManager.Close() }()

			users := services.NewUserService(dbManager.DB(), services.DefaultLoginPolicy())
			user, err := users.CreateUser(c.Context(), authz.System(), input)
			if err != nil {
				return fmt.Errorf("failed to create user: %w", err)
			}
			c.Printf("Created %s %s (%s)\n", user.Role, user.Username, user.ID)
			return nil
		},
	}

	flags := cmd.Flags()
	flags.String("username", "", "login name")
	flags.String("password", "", "initial password (or LEDGERCTL_PASSWORD)")
	flags.String("name", "", "full name")
	flags.String("role", string(models.RoleAdmin), "admin, manager or cash_collector")
	for _, name := range []string{"username", "password", "name", "role"} {
		_ = v.BindPFlag(name, flags.Lookup(name))
	}
	_ = v.BindEnv("password")

	return cmd
}

func validateUserInput(input services.CreateUserInput) error {
	if input.Username == "" {
		return fmt.Errorf("--username is required")
	}
	if len(input.Password) < 8 {
		return fmt.Errorf("password must be at least 8 characters")
	}
	if !input.Role.Valid() {
		return fmt.Errorf("invalid role %q", input.Role)
	}
	return nil
}

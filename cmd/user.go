package cmd

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/joescharf/urbaneyes/internal/models"
	"github.com/joescharf/urbaneyes/internal/output"
)

var (
	userName     string
	userEmail    string
	userPassword string
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage user accounts",
	RunE: func(cmd *cobra.Command, args []string) error {
		return userListRun()
	},
}

var userListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List users",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return userListRun()
	},
}

var userRegisterCmd = &cobra.Command{
	Use:   "register",
	Short: "Register a new user",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return userRegisterRun()
	},
}

var userLoginCmd = &cobra.Command{
	Use:   "login",
	Short: "Check a user's email and password",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return userLoginRun()
	},
}

var userDeleteCmd = &cobra.Command{
	Use:     "delete <user-id>",
	Aliases: []string{"rm"},
	Short:   "Delete a user",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return userDeleteRun(args[0])
	},
}

func init() {
	userRegisterCmd.Flags().StringVar(&userName, "username", "", "Username (required)")
	userRegisterCmd.Flags().StringVar(&userEmail, "email", "", "Email address (required)")
	userRegisterCmd.Flags().StringVar(&userPassword, "password", "", "Password (required)")
	_ = userRegisterCmd.MarkFlagRequired("username")
	_ = userRegisterCmd.MarkFlagRequired("email")
	_ = userRegisterCmd.MarkFlagRequired("password")

	userLoginCmd.Flags().StringVar(&userEmail, "email", "", "Email address (required)")
	userLoginCmd.Flags().StringVar(&userPassword, "password", "", "Password (required)")
	_ = userLoginCmd.MarkFlagRequired("email")
	_ = userLoginCmd.MarkFlagRequired("password")

	userCmd.AddCommand(userListCmd)
	userCmd.AddCommand(userRegisterCmd)
	userCmd.AddCommand(userLoginCmd)
	userCmd.AddCommand(userDeleteCmd)
	rootCmd.AddCommand(userCmd)
}

func userListRun() error {
	m, err := getManagers()
	if err != nil {
		return err
	}

	users, err := m.Users.List(context.Background())
	if err != nil {
		return err
	}
	if len(users) == 0 {
		ui.Info("No users registered.")
		return nil
	}

	table := ui.Table([]string{"ID", "Username", "Email"})
	for _, u := range users {
		_ = table.Append([]string{strconv.FormatInt(u.ID, 10), u.Username, u.Email})
	}
	_ = table.Render()
	return nil
}

func userRegisterRun() error {
	if dryRun {
		ui.DryRunMsg("Would register user %s <%s>", userName, userEmail)
		return nil
	}

	m, err := getManagers()
	if err != nil {
		return err
	}

	u, err := m.Users.Register(context.Background(), &models.User{
		Username: userName,
		Email:    userEmail,
		Password: userPassword,
	})
	if err != nil {
		return fmt.Errorf("register user: %w", err)
	}

	ui.Success("Registered user %s: %s <%s>", output.Cyan(strconv.FormatInt(u.ID, 10)), u.Username, u.Email)
	return nil
}

func userLoginRun() error {
	m, err := getManagers()
	if err != nil {
		return err
	}

	msg, err := m.Users.Login(context.Background(), userEmail, userPassword)
	if err != nil {
		return fmt.Errorf("login: %w", err)
	}

	ui.Success("%s", msg)
	return nil
}

func userDeleteRun(idArg string) error {
	id, err := parseID("user", idArg)
	if err != nil {
		return err
	}
	if dryRun {
		ui.DryRunMsg("Would delete user %d", id)
		return nil
	}

	m, err := getManagers()
	if err != nil {
		return err
	}

	if err := m.Users.Delete(context.Background(), id); err != nil {
		return fmt.Errorf("delete user: %w", err)
	}

	ui.Success("Deleted user %s", output.Cyan(idArg))
	return nil
}

package cmd

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/seastarlegal/seastar/internal/auth"
	"github.com/seastarlegal/seastar/internal/markdown"
	"github.com/seastarlegal/seastar/internal/store"
	"github.com/spf13/cobra"
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage office users",
}

var userRegisterCmd = &cobra.Command{
	Use:   "register",
	Short: "Register a user",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		u := auth.NewUser{}
		u.Username, _ = cmd.Flags().GetString("username")
		u.Name, _ = cmd.Flags().GetString("name")
		u.Email, _ = cmd.Flags().GetString("email")
		u.Phone, _ = cmd.Flags().GetString("phone")
		u.Role, _ = cmd.Flags().GetString("role")

		pw, err := passwordInput(cmd, "Password for "+u.Username)
		if err != nil {
			return err
		}
		u.Password = pw

		a := auth.New(st, auth.WithLogger(logger.Named("auth")))
		key, err := a.Register(cmd.Context(), u)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Registered %s as users/%v\n", u.Username, key)
		return nil
	},
}

var userLoginCmd = &cobra.Command{
	Use:   "login",
	Short: "Check a user's credentials",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		username, _ := cmd.Flags().GetString("username")
		pw, err := passwordInput(cmd, "Password for "+username)
		if err != nil {
			return err
		}
		a := auth.New(st, auth.WithLogger(logger.Named("auth")))
		user, err := a.Login(cmd.Context(), username, pw)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s (%s)\n", user.String("name"), user.String("role"))
		return nil
	},
}

var userListCmd = &cobra.Command{
	Use:   "list",
	Short: "List users",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		users, err := auth.New(st).Users(cmd.Context())
		if err != nil {
			return err
		}
		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			return printJSON(cmd, users)
		}
		fmt.Fprintln(cmd.OutOrStdout(), markdown.RenderRecordTable(users, "id", []string{"id", "username", "name", "role", "lastLogin"}))
		return nil
	},
}

// passwordInput takes --password, then piped stdin, then prompts.
func passwordInput(cmd *cobra.Command, title string) (string, error) {
	if pw, _ := cmd.Flags().GetString("password"); pw != "" {
		return pw, nil
	}
	if in := strings.TrimSpace(readInput(cmd)); in != "" {
		return in, nil
	}
	var pw string
	if err := huh.NewInput().
		Title(title).
		EchoMode(huh.EchoModePassword).
		Value(&pw).
		Run(); err != nil {
		return "", fmt.Errorf("cancelled")
	}
	return pw, nil
}

func init() {
	userRegisterCmd.Flags().StringP("username", "u", "", "login name")
	userRegisterCmd.Flags().String("password", "", "password (prompted when omitted)")
	userRegisterCmd.Flags().String("name", "", "display name")
	userRegisterCmd.Flags().String("email", "", "email address")
	userRegisterCmd.Flags().String("phone", "", "phone number")
	userRegisterCmd.Flags().String("role", "", "role, e.g. admin or lawyer")
	_ = userRegisterCmd.MarkFlagRequired("username")

	userLoginCmd.Flags().StringP("username", "u", "", "login name")
	userLoginCmd.Flags().String("password", "", "password (prompted when omitted)")
	_ = userLoginCmd.MarkFlagRequired("username")

	userListCmd.Flags().Bool("json", false, "print as JSON")

	userCmd.AddCommand(userRegisterCmd)
	userCmd.AddCommand(userLoginCmd)
	userCmd.AddCommand(userListCmd)
	rootCmd.AddCommand(userCmd)
}

var _ auth.Store = (*store.Store)(nil)

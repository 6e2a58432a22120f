package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/ragbot/internal/core/domain"
)

var authEmail string

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Sign in to the identity service",
	Long: `Manage the signed-in account.

When [identity] url is configured every command acts on the signed-in
user's documents and sessions. Without it RAGbot runs as a single local
user and signing in is not needed.`,
}

var authSignUpCmd = &cobra.Command{
	Use:   "signup",
	Short: "Create an account",
	Args:  cobra.NoArgs,
	RunE:  runAuthSignUp,
}

var authSignInCmd = &cobra.Command{
	Use:   "signin",
	Short: "Sign in",
	Args:  cobra.NoArgs,
	RunE:  runAuthSignIn,
}

var authSignOutCmd = &cobra.Command{
	Use:   "signout",
	Short: "Sign out and forget the saved session",
	Args:  cobra.NoArgs,
	RunE:  runAuthSignOut,
}

var authWhoAmICmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the signed-in account",
	Args:  cobra.NoArgs,
	RunE:  runAuthWhoAmI,
}

func init() {
	authSignUpCmd.Flags().StringVarP(&authEmail, "email", "e", "", "account email")
	authSignInCmd.Flags().StringVarP(&authEmail, "email", "e", "", "account email")

	authCmd.AddCommand(authSignUpCmd)
	authCmd.AddCommand(authSignInCmd)
	authCmd.AddCommand(authSignOutCmd)
	authCmd.AddCommand(authWhoAmICmd)
	rootCmd.AddCommand(authCmd)
}

func runAuthSignUp(cmd *cobra.Command, _ []string) error {
	svc, remote, err := openAuth(cmd.Context())
	if err != nil {
		return err
	}
	if !remote {
		cmd.Println("No identity service configured; RAGbot is running as the local user.")
		return nil
	}

	email, password, err := readCredentials(cmd)
	if err != nil {
		return err
	}
	identity, err := svc.SignUp(cmd.Context(), email, password)
	if err != nil {
		return err
	}

	if identity.AccessToken == "" {
		cmd.Printf("Account created for %s. Check your inbox to confirm it, then run 'ragbot auth signin'.\n", email)
		return nil
	}
	cmd.Printf("Account created. Signed in as %s\n", identity.Email)
	return nil
}

func runAuthSignIn(cmd *cobra.Command, _ []string) error {
	svc, remote, err := openAuth(cmd.Context())
	if err != nil {
		return err
	}
	if !remote {
		cmd.Println("No identity service configured; RAGbot is running as the local user.")
		return nil
	}

	email, password, err := readCredentials(cmd)
	if err != nil {
		return err
	}
	identity, err := svc.SignIn(cmd.Context(), email, password)
	if err != nil {
		return err
	}
	cmd.Printf("Signed in as %s\n", identity.Email)
	return nil
}

func runAuthSignOut(cmd *cobra.Command, _ []string) error {
	svc, _, err := openAuth(cmd.Context())
	if err != nil {
		return err
	}
	if err := svc.SignOut(cmd.Context()); err != nil {
		return err
	}
	cmd.Println("Signed out.")
	return nil
}

func runAuthWhoAmI(cmd *cobra.Command, _ []string) error {
	svc, remote, err := openAuth(cmd.Context())
	if err != nil {
		return err
	}
	if !remote {
		cmd.Printf("Local user (%s). No identity service configured.\n", domain.LocalUserID)
		return nil
	}

	identity, err := svc.Current(cmd.Context())
	if errors.Is(err, domain.ErrAuthRequired) {
		cmd.Println("Not signed in. Run 'ragbot auth signin'.")
		return nil
	}
	if err != nil {
		return err
	}
	cmd.Printf("Signed in as %s (%s)\n", identity.Email, identity.UserID)
	return nil
}

func readCredentials(cmd *cobra.Command) (string, string, error) {
	email := authEmail
	if email == "" {
		var err error
		if email, err = promptLine(cmd, "Email: "); err != nil {
			return "", "", err
		}
	}
	if email == "" {
		return "", "", &userError{msg: "Email is required."}
	}

	password, err := promptPassword(cmd, "Password: ")
	if err != nil {
		return "", "", err
	}
	if password == "" {
		return "", "", &userError{msg: "Password is required."}
	}
	return email, password, nil
}

package cmd

import (
	"context"
	"errors"
	"log"

	"github.com/spf13/cobra"

	"taskboard/internal/session"
)

func credentialFlags(cmd *cobra.Command) {
	cmd.Flags().String("email", "", "Account email (required)")
	if err := cmd.MarkFlagRequired("email"); err != nil {
		log.Printf("Error marking flag as required: %v", err)
	}
	cmd.Flags().String("password", "", "Account password (required)")
	if err := cmd.MarkFlagRequired("password"); err != nil {
		log.Printf("Error marking flag as required: %v", err)
	}
}

func signUpCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create an account and sign in",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCredentials(cmd, (*session.Provider).SignUp, "Account created, signed in as %s")
		},
	}
	credentialFlags(cmd)
	return cmd
}

func signInCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "signin",
		Short: "Sign in with email and password",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCredentials(cmd, (*session.Provider).SignIn, "Signed in as %s")
		},
	}
	credentialFlags(cmd)
	return cmd
}

type credentialFunc func(p *session.Provider, ctx context.Context, email, password string) error

func runCredentials(cmd *cobra.Command, fn credentialFunc, done string) error {
	email, _ := cmd.Flags().GetString("email")
	password, _ := cmd.Flags().GetString("password")

	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := fn(a.sessions, cmd.Context(), email, password); err != nil {
		return err
	}
	return a.out.message(done, email)
}

func signOutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "signout",
		Short: "Sign out and forget saved credentials",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.restore(cmd.Context()); err != nil {
				if errors.Is(err, session.ErrNotSignedIn) {
					return a.out.message("Not signed in.")
				}
				// The saved session is unusable; forget it anyway.
				if clearErr := a.creds.Clear(); clearErr != nil {
					return clearErr
				}
				return a.out.message("Signed out.")
			}

			if err := a.sessions.SignOut(cmd.Context()); err != nil {
				a.log.WithError(err).Warn("server sign-out failed")
			}
			return a.out.message("Signed out.")
		},
	}
}

func recoverCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "recover",
		Short: "Request a password reset email",
		RunE: func(cmd *cobra.Command, args []string) error {
			email, _ := cmd.Flags().GetString("email")

			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.sessions.ResetPassword(cmd.Context(), email); err != nil {
				return err
			}
			return a.out.message("If %s has an account, a reset link is on its way.", email)
		},
	}
	cmd.Flags().String("email", "", "Account email (required)")
	if err := cmd.MarkFlagRequired("email"); err != nil {
		log.Printf("Error marking flag as required: %v", err)
	}
	return cmd
}

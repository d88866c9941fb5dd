package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	loginToken    string
	loginNoVerify bool
)

func init() {
	loginCmd.Flags().StringVar(&loginToken, "token", "", "bearer token issued by the backend")
	loginCmd.Flags().BoolVar(&loginNoVerify, "no-verify", false, "store the token without checking it")
	_ = loginCmd.MarkFlagRequired("token")

	rootCmd.AddCommand(loginCmd, logoutCmd, whoamiCmd)
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Store the bearer token of a profile",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := newEnv()
		if err != nil {
			return err
		}
		if loginToken == "" {
			return errors.New("token must not be empty")
		}
		if err := e.creds.Save(loginToken); err != nil {
			return err
		}
		if loginNoVerify {
			fmt.Printf("Token stored for profile %q\n", e.params.Profile)
			return nil
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), timeoutFlag)
		defer cancel()
		me, err := e.api.Me(ctx)
		if err != nil {
			return fmt.Errorf("verify token: %w", err)
		}
		fmt.Printf("Signed in to profile %q as %s (id %d)\n", e.params.Profile, me.Name, me.ID)
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Remove the stored token of a profile",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := newEnv()
		if err != nil {
			return err
		}
		if err := e.creds.Clear(); err != nil {
			return err
		}
		fmt.Printf("Signed out of profile %q\n", e.params.Profile)
		return nil
	},
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the user the stored token belongs to",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := newEnv()
		if err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(cmd.Context(), timeoutFlag)
		defer cancel()
		me, err := e.api.Me(ctx)
		if err != nil {
			return err
		}
		if jsonFlag {
			return printJSON(me)
		}
		fmt.Printf("%s <%s> (id %d) on %s\n", me.Name, me.Email, me.ID, e.params.Config.Server.BaseURL)
		return nil
	},
}

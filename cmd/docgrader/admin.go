package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pavelanni/docgrader/internal/auth"
)

func adminCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Manage administrator accounts",
	}
	setPassword := &cobra.Command{
		Use:   "set-password",
		Short: "Replace an administrator's password",
		RunE:  runAdminSetPassword,
	}
	f := setPassword.Flags()
	addDBFlag(f)
	f.String("username", auth.AdminUsername, "Account to update")
	f.String("password", "", "New password (or set DOCGRADER_PASSWORD)")
	addLogFlags(f)

	cmd.AddCommand(setPassword)
	return cmd
}

func runAdminSetPassword(cmd *cobra.Command, _ []string) error {
	db, err := openStore(cmd)
	if err != nil {
		return err
	}
	v := viperForCmd(cmd)
	username := v.GetString("username")
	if err := auth.ResetPassword(db, username, v.GetString("password")); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Password updated for %s.\n", username)
	return nil
}

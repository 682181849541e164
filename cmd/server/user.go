package main

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

// The user commands edit the store directly. Run them while the server is
// stopped: a running server keeps its own copy of the users document and
// would overwrite the change on its next write.
func newUserCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage accounts from the command line",
	}
	cmd.AddCommand(newSetRoleCmd(), newListUsersCmd())
	return cmd
}

func newSetRoleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set-role <username> <member|admin>",
		Short: "Change an account's role (use it to create the first admin)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmdContext(cmd)
			cfg, logger, st, err := openStore(ctx)
			if err != nil {
				return err
			}
			defer st.Close()

			if err := newAuth(cfg, st, logger).AssignRole(ctx, args[0], args[1]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s is now %s\n", args[0], args[1])
			return nil
		},
	}
}

func newListUsersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List accounts and their roles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, st, err := openStore(cmdContext(cmd))
			if err != nil {
				return err
			}
			defer st.Close()

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "USERNAME\tEMAIL\tROLE")
			for _, u := range newAuth(cfg, st, logger).Users() {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", u.Username, u.Email, u.Role)
			}
			return tw.Flush()
		},
	}
}

func cmdContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/civicdesk/rollcall/internal/rollcall/types"
)

// cliActor is the actor recorded for changes made from the command line.
const cliActor = "cli"

var validRoles = []string{"member", "head", "admin"}

func NewIdentityCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "identity",
		Aliases: []string{"identities"},
		Short:   "Manage registered members",
	}
	cmd.AddCommand(newIdentityAddCommand(opts))
	cmd.AddCommand(newIdentityListCommand(opts))
	cmd.AddCommand(newIdentityBlockCommand(opts))
	cmd.AddCommand(newIdentityUnblockCommand(opts))
	return cmd
}

func newIdentityAddCommand(opts *RootOptions) *cobra.Command {
	var ident types.Identity

	cmd := &cobra.Command{
		Use:           "add <identity-id>",
		Short:         "Register or update a member",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ident.ID = strings.TrimSpace(args[0])
			ident.Role = strings.ToLower(strings.TrimSpace(ident.Role))
			if ident.CouncilID == "" || ident.Name == "" {
				return WrapExitError(ExitCommandError, "identity add", fmt.Errorf("--council-id and --name are required"))
			}
			if !isValidRole(ident.Role) {
				return WrapExitError(ExitCommandError, "identity add", fmt.Errorf("invalid role %q: must be one of %v", ident.Role, validRoles))
			}

			a, err := buildApp(cmd.Context(), opts, appOptions{})
			if err != nil {
				return err
			}
			defer a.Close()

			// Re-adding an existing member updates the profile, not the block.
			if prev, err := a.identities.GetIdentity(cmd.Context(), ident.ID); err == nil {
				ident.QRBlocked = prev.QRBlocked
				ident.QRBlockReason = prev.QRBlockReason
				ident.QRBlockedAt = prev.QRBlockedAt
			}
			if err := a.identities.UpsertIdentity(cmd.Context(), ident); err != nil {
				return err
			}
			saved, err := a.identities.GetIdentity(cmd.Context(), ident.ID)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), saved)
		},
	}

	cmd.Flags().StringVar(&ident.CouncilID, "council-id", "", "council registration number (required)")
	cmd.Flags().StringVar(&ident.Name, "name", "", "display name (required)")
	cmd.Flags().StringVar(&ident.Committee, "committee", "", "committee name")
	cmd.Flags().StringVar(&ident.Role, "role", "member", "role (member|head|admin)")

	return cmd
}

func isValidRole(role string) bool {
	for _, r := range validRoles {
		if r == role {
			return true
		}
	}
	return false
}

func newIdentityListCommand(opts *RootOptions) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:           "list",
		Short:         "List members with their QR block status",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp(cmd.Context(), opts, appOptions{})
			if err != nil {
				return err
			}
			defer a.Close()

			idents, err := a.admin.ListQRStatus(cmd.Context())
			if err != nil {
				return err
			}
			if asJSON {
				return printJSON(cmd.OutOrStdout(), idents)
			}

			rows := make([][]string, 0, len(idents))
			for _, i := range idents {
				blocked := "-"
				if i.QRBlocked {
					blocked = "blocked: " + i.QRBlockReason
				}
				rows = append(rows, []string{i.ID, i.CouncilID, i.Name, i.Committee, i.Role, blocked})
			}
			return printTable(cmd.OutOrStdout(), []string{"ID", "COUNCIL", "NAME", "COMMITTEE", "ROLE", "QR"}, rows)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of a table")

	return cmd
}

func newIdentityBlockCommand(opts *RootOptions) *cobra.Command {
	var reason string

	cmd := &cobra.Command{
		Use:           "block <identity-id>",
		Short:         "Stop a member from generating QR codes",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(reason) == "" {
				return WrapExitError(ExitCommandError, "identity block", fmt.Errorf("--reason is required"))
			}

			a, err := buildApp(cmd.Context(), opts, appOptions{})
			if err != nil {
				return err
			}
			defer a.Close()

			ident, err := a.admin.Block(cmd.Context(), args[0], reason, cliActor)
			if err != nil {
				return WrapExitError(ExitFailure, "block", err)
			}
			return printJSON(cmd.OutOrStdout(), ident)
		},
	}

	cmd.Flags().StringVar(&reason, "reason", "", "reason shown to the member (required)")

	return cmd
}

func newIdentityUnblockCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "unblock <identity-id>",
		Short:         "Allow a member to generate QR codes again",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp(cmd.Context(), opts, appOptions{})
			if err != nil {
				return err
			}
			defer a.Close()

			ident, err := a.admin.Unblock(cmd.Context(), args[0], cliActor)
			if err != nil {
				return WrapExitError(ExitFailure, "unblock", err)
			}
			return printJSON(cmd.OutOrStdout(), ident)
		},
	}
}

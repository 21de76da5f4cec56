package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/civicdesk/rollcall/internal/httpapi"
)

func NewTokenCommand(opts *RootOptions) *cobra.Command {
	var (
		role string
		ttl  time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token <identity-id>",
		Short: "Mint a bearer token for the member and admin API",
		Long: `Sign an access token with the configured auth secret.  Intended for
operators and local testing; production members get tokens from the
council's identity provider.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			role = strings.ToLower(strings.TrimSpace(role))
			if !isValidRole(role) {
				return WrapExitError(ExitCommandError, "token", fmt.Errorf("invalid role %q: must be one of %v", role, validRoles))
			}

			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			tok, err := httpapi.SignAccessToken([]byte(cfg.AuthSecret), args[0], role, time.Now(), ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}

	cmd.Flags().StringVar(&role, "role", "member", "role claim (member|head|admin)")
	cmd.Flags().DurationVar(&ttl, "ttl", 12*time.Hour, "token lifetime")

	return cmd
}

package main

import (
	"fmt"
	"time"

	"github.com/samber/do/v2"
	"github.com/spf13/cobra"

	"github.com/verbetes/verbete-server/internal/auth"
	"github.com/verbetes/verbete-server/internal/domain"
)

func newTokenCommand(ctx *commandContext) *cobra.Command {
	var p domain.Principal
	var role string

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an access token signed with the server key",
		Long: "Issues a PASETO access token for the given user, signed with the key the server uses.\n" +
			"Intended for development and for wiring a trusted identity provider.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			defer ctx.shutdown()

			p.Role = domain.Role(role)
			if !p.Role.Valid() {
				return fmt.Errorf("invalid role %q (must be %s or %s)", role, domain.RoleAuthor, domain.RoleReviewer)
			}

			tokens, err := do.Invoke[*auth.TokenService](ctx.container())
			if err != nil {
				return err
			}
			token, err := tokens.GenerateAccessToken(p)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), token)
			fmt.Fprintf(cmd.ErrOrStderr(), "expires in %s\n", tokens.AccessTokenDuration().Round(time.Second))
			return nil
		},
	}

	cmd.Flags().StringVar(&p.UserID, "user", "", "User id carried in the token")
	cmd.Flags().StringVar(&p.Name, "name", "", "Display name used for author bylines")
	cmd.Flags().StringVar(&role, "role", string(domain.RoleAuthor), "Role (author, reviewer)")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}

package cli

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/dmitrijs2005/socialmaster/internal/server/auth"
	"github.com/spf13/cobra"
)

const secretEnv = "SOCIALMASTER_JWT_SECRET"

// newTokenCmd mints an access token for local development. The signing
// secret must match the server's JWT secret.
func newTokenCmd() *cobra.Command {
	var (
		accountID string
		validity  time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a development access token",
		Long:  "Mint a development access token signed with the server secret. The secret is taken from " + secretEnv + " or prompted for.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			secret := []byte(os.Getenv(secretEnv))
			if len(secret) == 0 {
				var err error
				if secret, err = GetSecret("JWT secret", cmd.ErrOrStderr()); err != nil {
					return fmt.Errorf("read secret: %w", err)
				}
			}
			defer wipe(secret)
			if len(secret) == 0 {
				return errors.New("secret must not be empty")
			}

			token, err := auth.GenerateToken(accountID, secret, validity)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
			return err
		},
	}
	cmd.Flags().StringVar(&accountID, "account", "", "account ID to embed in the token")
	cmd.Flags().DurationVar(&validity, "ttl", 24*time.Hour, "token validity")
	_ = cmd.MarkFlagRequired("account")
	return cmd
}

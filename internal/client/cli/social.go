package cli

import (
	"bufio"
	"context"
	"fmt"

	"github.com/dmitrijs2005/socialmaster/internal/api"
	"github.com/dmitrijs2005/socialmaster/internal/client/client"
	"github.com/spf13/cobra"
)

func newSocialCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "social",
		Short: "Manage connected social media accounts",
	}
	cmd.AddCommand(newSocialConnectCmd(a), newSocialListCmd(a), newSocialDisconnectCmd(a))
	return cmd
}

func newSocialConnectCmd(a *app) *cobra.Command {
	var req api.ConnectSocialAccountRequest

	cmd := &cobra.Command{
		Use:   "connect",
		Short: "Connect a Facebook page or Instagram account",
		Long:  "Connect a Facebook page or Instagram account. Missing values are prompted for; the access token is read without echo.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			in := bufio.NewReader(cmd.InOrStdin())
			w := cmd.ErrOrStderr()

			var err error
			if req.Platform == "" {
				if req.Platform, err = GetSimpleText(in, "Platform (facebook or instagram)", w); err != nil {
					return err
				}
			}
			if req.ExternalID == "" {
				if req.ExternalID, err = GetSimpleText(in, "Page or account ID", w); err != nil {
					return err
				}
			}
			if req.AccessToken == "" {
				token, err := GetSecret("Platform access token", w)
				if err != nil {
					return fmt.Errorf("read access token: %w", err)
				}
				req.AccessToken = string(token)
				wipe(token)
			}

			return a.withClient(cmd, true, func(ctx context.Context, c client.Client) error {
				acc, err := c.ConnectSocialAccount(ctx, req)
				if err != nil {
					return err
				}
				return printJSON(cmd, acc)
			})
		},
	}
	cmd.Flags().StringVar(&req.Platform, "platform", "", "facebook or instagram")
	cmd.Flags().StringVar(&req.ExternalID, "external-id", "", "page or account ID on the platform")
	cmd.Flags().StringVar(&req.AccessToken, "access-token", "", "platform access token (prompted when empty)")
	return cmd
}

func newSocialListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List social media accounts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withClient(cmd, true, func(ctx context.Context, c client.Client) error {
				accs, err := c.ListSocialAccounts(ctx)
				if err != nil {
					return err
				}
				if accs == nil {
					accs = []api.SocialAccount{}
				}
				return printJSON(cmd, accs)
			})
		},
	}
}

func newSocialDisconnectCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "disconnect ID",
		Short: "Disconnect a social media account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withClient(cmd, true, func(ctx context.Context, c client.Client) error {
				if err := c.DisconnectSocialAccount(ctx, args[0]); err != nil {
					return err
				}
				_, err := fmt.Fprintf(cmd.OutOrStdout(), "disconnected %s\n", args[0])
				return err
			})
		},
	}
}

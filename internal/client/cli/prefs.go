package cli

import (
	"context"

	"github.com/dmitrijs2005/socialmaster/internal/client/client"
	"github.com/spf13/cobra"
)

func newPrefsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prefs",
		Short: "Show or change posting preferences",
	}

	get := &cobra.Command{
		Use:   "get",
		Short: "Show posting preferences",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withClient(cmd, true, func(ctx context.Context, c client.Client) error {
				p, err := c.GetPreferences(ctx)
				if err != nil {
					return err
				}
				return printJSON(cmd, p)
			})
		},
	}

	var (
		autoPublish, facebook, instagram bool
		defaultTime                      string
	)
	set := &cobra.Command{
		Use:   "set",
		Short: "Change posting preferences; unset flags keep their current value",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withClient(cmd, true, func(ctx context.Context, c client.Client) error {
				p, err := c.GetPreferences(ctx)
				if err != nil {
					return err
				}
				flags := cmd.Flags()
				if flags.Changed("auto-publish") {
					p.AutoPublish = autoPublish
				}
				if flags.Changed("time") {
					p.DefaultTime = defaultTime
				}
				if flags.Changed("facebook") {
					p.Facebook = facebook
				}
				if flags.Changed("instagram") {
					p.Instagram = instagram
				}
				saved, err := c.UpdatePreferences(ctx, p)
				if err != nil {
					return err
				}
				return printJSON(cmd, saved)
			})
		},
	}
	set.Flags().BoolVar(&autoPublish, "auto-publish", false, "publish due posts automatically")
	set.Flags().StringVar(&defaultTime, "time", "", "daily posting time (HH:MM, UTC)")
	set.Flags().BoolVar(&facebook, "facebook", true, "publish to Facebook")
	set.Flags().BoolVar(&instagram, "instagram", true, "publish to Instagram")

	cmd.AddCommand(get, set)
	return cmd
}
